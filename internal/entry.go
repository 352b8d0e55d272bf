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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/dagaz/internal/api"
	"github.com/starford/dagaz/internal/index"
	"github.com/starford/dagaz/internal/notify"
	"github.com/starford/dagaz/internal/reminder"
	"github.com/starford/dagaz/internal/reminderservice"
	"github.com/starford/dagaz/internal/sse"
	"github.com/starford/dagaz/internal/storage"
	"github.com/starford/dagaz/internal/watch"
)

// Components holds the storage stack shared by the server and the one-shot
// CLI commands.
type Components struct {
	FS      *storage.FS
	Store   *reminder.Store
	Index   *index.DB
	Service *reminderservice.Service
}

// Close releases the search index, if open.
func (c *Components) Close() error {
	if c.Index == nil {
		return nil
	}
	return c.Index.Close()
}

// Open loads the reminders file and, when configured, the search index.
// pub may be nil. A corrupt reminders file is returned as an error.
func Open(cfg *Config, pub reminderservice.Publisher, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir, name := filepath.Split(cfg.Store.Path)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	fsys, err := storage.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	store, err := reminder.Load(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("load reminders: %w", err)
	}

	c := &Components{FS: fsys, Store: store}

	var idx index.ReminderIndex
	if cfg.SQLite.Enabled() {
		db, err := index.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		c.Index = db
		idx = db
	}

	c.Service = reminderservice.NewService(store, idx, pub, logger)

	if err := c.Service.SyncIndex(); err != nil {
		logger.Warn("initial index sync failed", slog.String("error", err.Error()))
	}

	return c, nil
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
	if app.logOutput == nil {
		app.logOutput = os.Stdout
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("notify", cfg.Notify.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	comps, err := Open(cfg, broker, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	svc := comps.Service
	loc := cfg.Notify.Location()

	logger.Info("Reminders loaded", slog.Int("count", comps.Store.Len()))

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, loc)

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

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload the store when another process rewrites the reminders file.
	if cfg.Store.Watch {
		g.Go(func() error {
			return watch.Watch(gCtx, comps.FS, comps.Store, watch.DefaultDebounce, logger, func() {
				if err := svc.Reload(gCtx); err != nil {
					logger.Error("reload after external change failed", slog.String("error", err.Error()))
				}
			})
		})
	}

	// Due-reminder scheduler.
	if cfg.Notify.Enabled {
		sched := notify.New(comps.Store, broker, loc, logger)
		g.Go(func() error {
			return sched.Start(gCtx, cfg.Notify.Schedule)
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
		defer signal.Stop(quit)

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher and scheduler stop with the
// HTTP server.
var errShutdown = errors.New("shutdown requested")
