package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/starford/hypnos/internal/apperr"
	"github.com/starford/hypnos/internal/band"
	"github.com/starford/hypnos/internal/report"
	"github.com/starford/hypnos/internal/session"
	"github.com/starford/hypnos/internal/sse"
)

// timestampLayouts are tried in order when parsing an inbound sample
// timestamp; unparsable timestamps default to the current time.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// Analyzer runs the analysis pipeline against a log artifact.
type Analyzer interface {
	AnalyzeFile(ctx context.Context, path, apiKey string) (*report.Document, error)
}

// Handler serves one duplex WebSocket ingestion channel per client.
// Handlers for different clients run independently; they share the session
// manager's active-recording slot and the journal's rotation state.
type Handler struct {
	upgrader websocket.Upgrader
	sessions *session.Manager
	journal  *Journal
	analyzer Analyzer
	broker   *sse.Broker
	logger   *slog.Logger
}

// NewHandler creates a stream handler. broker may be nil.
func NewHandler(sessions *session.Manager, journal *Journal, analyzer Analyzer, broker *sse.Broker, logger *slog.Logger) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients are local GUI/browser apps; origin policy is a
			// collaborator concern.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: sessions,
		journal:  journal,
		analyzer: analyzer,
		broker:   broker,
		logger:   logger,
	}
}

// ServeHTTP upgrades the connection and runs the message loop until the
// client disconnects. Every inbound failure is converted into an outbound
// event; the loop itself never aborts on malformed input.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket closed", slog.String("error", err.Error()))
			}
			return
		}

		reply := h.handleMessage(ctx, raw)
		if reply == nil {
			continue
		}
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Warn("websocket write failed", slog.String("error", err.Error()))
			return
		}
	}
}

// handleMessage decodes one inbound message and returns the outbound reply.
func (h *Handler) handleMessage(ctx context.Context, raw []byte) any {
	var msg Inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ErrorEvent{Type: "error", Message: fmt.Sprintf("invalid message: %v", err)}
	}

	switch msg.Type {
	case TypeEEGData:
		return h.handleEEGData(ctx, msg)
	case TypeStartRecording:
		return h.handleStart(ctx, msg)
	case TypeStopRecording:
		return h.handleStop(ctx)
	case TypeRequestAnalysis:
		return h.handleAnalysis(ctx, msg)
	default:
		return ErrorEvent{Type: "error", Message: fmt.Sprintf("unknown message type: %q", msg.Type)}
	}
}

func (h *Handler) handleEEGData(ctx context.Context, msg Inbound) any {
	// Extraction failures degrade to zero-valued bands rather than aborting.
	v := band.Extract(band.Classify(msg.Data))

	line := band.FormatLine(v)
	if err := h.journal.Append(msg.Timestamp + " - " + line); err != nil {
		h.logger.Error("journal append failed", slog.String("error", err.Error()))
		return DataError{Type: "data_error", Error: err.Error()}
	}

	if err := h.sessions.Record(ctx, v, parseTimestamp(msg.Timestamp)); err != nil {
		h.logger.Error("record sample failed", slog.String("error", err.Error()))
		return DataError{Type: "data_error", Error: err.Error()}
	}

	if h.broker != nil {
		h.broker.PublishDataEvent(msg.Timestamp)
	}
	return DataReceived{Type: "data_received", Timestamp: msg.Timestamp}
}

func (h *Handler) handleStart(ctx context.Context, msg Inbound) any {
	id, err := h.sessions.Start(ctx, msg.Name, msg.Description)
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyRecording) {
			return RecordingStatus{
				Type:    "recording_status",
				Status:  StatusAlreadyRecording,
				Message: "a recording is already in progress",
			}
		}
		h.logger.Error("start recording failed", slog.String("error", err.Error()))
		return RecordingStatus{Type: "recording_status", Status: StatusError, Message: err.Error()}
	}

	if h.broker != nil {
		h.broker.PublishRecordingEvent("started", id)
	}
	return RecordingStatus{
		Type:        "recording_status",
		Status:      StatusStarted,
		RecordingID: id,
		Message:     fmt.Sprintf("recording started, id %d", id),
	}
}

func (h *Handler) handleStop(ctx context.Context) any {
	id, err := h.sessions.Stop(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrNotRecording) {
			return RecordingStatus{
				Type:    "recording_status",
				Status:  StatusNotRecording,
				Message: "no recording in progress",
			}
		}
		h.logger.Error("stop recording failed", slog.String("error", err.Error()))
		return RecordingStatus{Type: "recording_status", Status: StatusError, Message: err.Error()}
	}

	if h.broker != nil {
		h.broker.PublishRecordingEvent("stopped", id)
	}
	return RecordingStatus{
		Type:        "recording_status",
		Status:      StatusStopped,
		RecordingID: id,
		Message:     fmt.Sprintf("recording stopped, id %d", id),
	}
}

func (h *Handler) handleAnalysis(ctx context.Context, msg Inbound) any {
	_, abs, size, err := h.journal.Snapshot()
	if err != nil {
		return AnalysisResult{Type: "analysis_result", Error: err.Error()}
	}
	if size == 0 {
		return AnalysisResult{
			Type:  "analysis_result",
			Error: apperr.ErrNoData.Error() + ": collect data before requesting analysis",
		}
	}

	// Analysis reads a point-in-time snapshot and never holds the journal
	// lock while the AI call is in flight. The log rotates on completion,
	// success or failure.
	doc, err := h.analyzer.AnalyzeFile(ctx, abs, msg.APIKey)
	h.journal.Rotate()
	if err != nil {
		h.logger.Error("analysis failed", slog.String("error", err.Error()))
		return AnalysisResult{Type: "analysis_result", Error: err.Error()}
	}

	if h.broker != nil {
		h.broker.Publish(sse.Event{Type: "analysis.completed", Data: map[string]string{"report": doc.Filename}})
	}
	return AnalysisResult{
		Type:    "analysis_result",
		Success: true,
		Content: doc.Content,
		Path:    doc.Filename,
	}
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Now()
}
