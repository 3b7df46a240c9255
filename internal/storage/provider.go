// Package storage defines the file-artifact store used for ingest logs and reports.
package storage

import "time"

// ArtifactInfo is a lightweight representation returned by list operations.
type ArtifactInfo struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for artifact file operations. Paths are
// relative to the provider's root directory.
type Provider interface {
	// List returns metadata for every regular file under the root.
	List() ([]ArtifactInfo, error)
	// Read returns the raw bytes of the artifact at name.
	Read(name string) ([]byte, error)
	// Write atomically writes content to name.
	Write(name string, content []byte) error
	// Append appends content to name, creating it when absent.
	Append(name string, content []byte) error
	// Size returns the artifact's size in bytes, or 0 when it does not exist.
	Size(name string) (int64, error)
	// Remove deletes the artifact at name.
	Remove(name string) error
	// Abs resolves name to an absolute path under the root.
	Abs(name string) (string, error)
}
