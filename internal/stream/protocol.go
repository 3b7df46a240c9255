package stream

import "encoding/json"

// Inbound event tags.
const (
	TypeEEGData         = "eeg_data"
	TypeStartRecording  = "start_recording"
	TypeStopRecording   = "stop_recording"
	TypeRequestAnalysis = "request_analysis"
)

// Recording status values carried by recording_status events.
const (
	StatusStarted          = "started"
	StatusStopped          = "stopped"
	StatusAlreadyRecording = "already_recording"
	StatusNotRecording     = "not_recording"
	StatusError            = "error"
)

// Inbound is a tagged client message.
type Inbound struct {
	Type        string          `json:"type"`
	Data        json.RawMessage `json:"data,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	APIKey      string          `json:"api_key,omitempty"`
}

// DataReceived acknowledges an ingested eeg_data event.
type DataReceived struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// DataError reports a failure while handling an eeg_data event.
type DataError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// RecordingStatus reports the outcome of a start/stop command.
type RecordingStatus struct {
	Type        string `json:"type"`
	Status      string `json:"status"`
	RecordingID int64  `json:"recording_id,omitempty"`
	Message     string `json:"message"`
}

// AnalysisResult carries either the report content or the failure.
type AnalysisResult struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorEvent reports a malformed or unrecognised inbound message. It never
// terminates the channel.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
