// Package apperr defines sentinel errors shared across the application.
package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyRecording  = errors.New("already recording")
	ErrNotRecording      = errors.New("not recording")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyDataset      = errors.New("empty dataset")
	ErrNoData            = errors.New("no data collected")
)
