// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Hypnos tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/hypnos/internal/analysis"
	"github.com/starford/hypnos/internal/storage"
	"github.com/starford/hypnos/internal/store"
)

// Server wraps the MCP server with Hypnos tools.
type Server struct {
	mcp      *server.MCPServer
	db       store.RecordingStore
	analyzer *analysis.Service
	reports  storage.Provider
}

// New creates a new MCP server with all Hypnos tools registered.
func New(db store.RecordingStore, analyzer *analysis.Service, reports storage.Provider) *Server {
	s := &Server{db: db, analyzer: analyzer, reports: reports}

	s.mcp = server.NewMCPServer(
		"Hypnos",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_recordings",
		mcp.WithDescription("List all stored EEG recordings, newest first."),
	), s.listRecordings)

	s.mcp.AddTool(mcp.NewTool("get_recording",
		mcp.WithDescription("Get one recording's metadata and sample count."),
		mcp.WithNumber("recording_id", mcp.Required(), mcp.Description("Numeric recording identifier")),
	), s.getRecording)

	s.mcp.AddTool(mcp.NewTool("analyze_recording",
		mcp.WithDescription("Generate a sleep analysis report for a recording. "+
			"Returns the report filename; fetch the HTML via the read_report tool."),
		mcp.WithNumber("recording_id", mcp.Required(), mcp.Description("Numeric recording identifier")),
		mcp.WithString("api_key", mcp.Description("Optional AI API key overriding the configured one")),
	), s.analyzeRecording)

	s.mcp.AddTool(mcp.NewTool("read_report",
		mcp.WithDescription("Read the HTML content of a previously generated report."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Report filename as returned by analyze_recording")),
	), s.readReport)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listRecordings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := s.db.ListRecordings()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(recs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getRecording(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("recording_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.db.GetRecording(int64(id))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: recording %d", id)), nil
	}
	count, err := s.db.CountSamples(rec.ID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"recording": rec,
		"samples":   count,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) analyzeRecording(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("recording_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	apiKey := req.GetString("api_key", "")

	doc, err := s.analyzer.AnalyzeRecording(ctx, int64(id), apiKey)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("report generated: %s (%d rows analyzed)", doc.Filename, doc.Rows)), nil
}

func (s *Server) readReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.reports.Read(filename)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", filename)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
