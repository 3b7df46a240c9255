package api

import "time"

// ImportResponse is returned after a successful data import.
type ImportResponse struct {
	RecordingID int64 `json:"recording_id" example:"7" validate:"required"`
	Samples     int   `json:"samples" example:"120" validate:"required"`
}

// AnalyzeRequest is the request body for generating a sleep report.
type AnalyzeRequest struct {
	RecordingID int64  `json:"recording_id" example:"7" validate:"required"`
	APIKey      string `json:"api_key,omitempty"`
}

// AnalyzeResponse is returned after a report has been generated.
type AnalyzeResponse struct {
	Success   bool   `json:"success" validate:"required"`
	Content   string `json:"content,omitempty"`
	ReportURL string `json:"report_url,omitempty" example:"/api/reports/report_20250101_120000_ab12cd34.html"`
}

// RecordingItem is one recording in a list or detail response.
type RecordingItem struct {
	ID          int64     `json:"id" example:"7" validate:"required"`
	Name        string    `json:"name" example:"EEG_Recording_20250101_120000" validate:"required"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	DataCount   int64     `json:"data_count" example:"120" validate:"required"`
}

// RecordingListResponse wraps the full recording listing.
type RecordingListResponse struct {
	Recordings []RecordingItem `json:"recordings" validate:"required"`
	Total      int             `json:"total" example:"3" validate:"required"`
}

// TestKeyRequest is the request body for probing an AI API key.
type TestKeyRequest struct {
	APIKey string `json:"api_key" validate:"required"`
}

// TestKeyResponse reports the probe outcome.
type TestKeyResponse struct {
	Valid   bool   `json:"valid" validate:"required"`
	Message string `json:"message,omitempty"`
}
