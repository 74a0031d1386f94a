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

	"github.com/starford/ansuz/internal/build"
	"github.com/starford/ansuz/internal/manifest"
	"github.com/starford/ansuz/internal/server"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/watch"
)

// Run starts the dev server with the given options: an initial build, a
// content watcher that rebuilds on change, and an HTTP server publishing the
// rendered site plus the JSON API.
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
		slog.String("content_path", cfg.Content.Path),
		slog.String("output_path", cfg.Build.OutputPath),
		slog.String("manifest_path", cfg.Manifest.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure content and output directories exist.
	if err := os.MkdirAll(cfg.Content.Path, 0o755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Build.OutputPath, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	// Initialize storage.
	source, err := storage.NewFS(cfg.Content.Path)
	if err != nil {
		return fmt.Errorf("init content storage: %w", err)
	}
	output, err := storage.NewFS(cfg.Build.OutputPath)
	if err != nil {
		return fmt.Errorf("init output storage: %w", err)
	}

	// Initialize SQLite build manifest.
	db, err := manifest.Open(cfg.Manifest.Path)
	if err != nil {
		return fmt.Errorf("init manifest: %w", err)
	}
	defer db.Close()

	// The dev server never aborts on content problems: strict mode is a CLI
	// concern, authors get warnings and a live site for everything valid.
	pipeline := build.New(source, output, logger,
		build.WithManifest(db),
		build.WithDrafts(cfg.Build.Drafts),
		build.WithWorkers(cfg.Build.Workers),
		build.WithMaxDescription(cfg.Content.MaxDescription),
		build.WithBaseURL(cfg.Content.BaseURL),
	)

	// Run initial build.
	if report, err := pipeline.Run(ctx); err != nil {
		logger.Warn("initial build failed", slog.String("error", err.Error()))
	} else if len(report.Issues) > 0 {
		logger.Warn("initial build finished with issues", slog.Int("issues", len(report.Issues)))
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	// Build API router.
	apiRouter := server.NewRouter(db, source, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// Serve the rendered site from the output directory.
	r.Handle("/*", http.FileServer(http.Dir(cfg.Build.OutputPath)))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start content watcher with SSE callbacks and rebuild-on-change.
	g.Go(func() error {
		rebuild := func(ctx context.Context) error {
			report, err := pipeline.Run(ctx)
			if err != nil {
				return err
			}
			broker.Publish(sse.Event{Type: "build.completed", Data: map[string]int{
				"built":  report.Built,
				"reused": report.Reused,
				"issues": len(report.Issues),
			}})
			return nil
		}
		err := watch.Watch(gCtx, cfg.Content.Path, 0, logger, func(kind, path string) {
			broker.PublishArticleEvent(kind, path)
		}, rebuild)
		if err != nil {
			logger.Error("watcher error", slog.String("error", err.Error()))
		}
		return nil
	})

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
		broker.Close()

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
