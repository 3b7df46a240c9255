// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/hypnos/internal/analysis"
	"github.com/starford/hypnos/internal/api"
	"github.com/starford/hypnos/internal/importer"
	"github.com/starford/hypnos/internal/mcpserver"
	"github.com/starford/hypnos/internal/report"
	"github.com/starford/hypnos/internal/session"
	"github.com/starford/hypnos/internal/sse"
	"github.com/starford/hypnos/internal/storage"
	"github.com/starford/hypnos/internal/store"
	"github.com/starford/hypnos/internal/stream"
)

// services bundles everything both the HTTP and MCP entrypoints need.
type services struct {
	db       *store.DB
	sessions *session.Manager
	journal  *stream.Journal
	composer *report.Composer
	analyzer *analysis.Service
	importer *importer.Service
	reports  storage.Provider
}

// buildServices initializes storage, the database and the domain services.
// The caller owns db.Close.
func buildServices(cfg *Config, logger *slog.Logger) (*services, error) {
	for _, dir := range []string{cfg.Ingest.LogDir, cfg.Reports.Dir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	logs, err := storage.NewFS(cfg.Ingest.LogDir)
	if err != nil {
		return nil, fmt.Errorf("init log storage: %w", err)
	}
	reports, err := storage.NewFS(cfg.Reports.Dir)
	if err != nil {
		return nil, fmt.Errorf("init report storage: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	composer := report.NewComposer(cfg.AI.ReportConfig(), reports, logger)

	return &services{
		db:       db,
		sessions: session.NewManager(db),
		journal:  stream.NewJournal(logs, cfg.Ingest.RotateMaxBytes),
		composer: composer,
		analyzer: analysis.NewService(db, composer, logs, logger),
		importer: importer.NewService(db, logger),
		reports:  reports,
	}, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_dir", cfg.Ingest.LogDir),
		slog.String("report_dir", cfg.Reports.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svcs, err := buildServices(cfg, logger)
	if err != nil {
		return err
	}
	defer svcs.db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	// WebSocket ingest handler.
	wsHandler := stream.NewHandler(svcs.sessions, svcs.journal, svcs.analyzer, broker, logger)

	// Build API router.
	apiRouter := api.NewRouter(svcs.db, svcs.importer, svcs.analyzer, svcs.composer,
		cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.Reports.Dir)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// WebSocket ingest endpoint.
	r.Get("/ws", wsHandler.ServeHTTP)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start the inbox watcher when enabled.
	if cfg.Import.Watch {
		g.Go(func() error {
			return importer.Watch(gCtx, svcs.importer, cfg.Import.InboxDir, logger, func(id int64, _ string) {
				broker.PublishRecordingEvent("imported", id)
			})
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP stdio server instead of the HTTP stack.
// Logs go to stderr so they do not interfere with the stdio transport.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	svcs, err := buildServices(cfg, logger)
	if err != nil {
		return err
	}
	defer svcs.db.Close()

	srv := mcpserver.New(svcs.db, svcs.analyzer, svcs.reports)
	logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}
