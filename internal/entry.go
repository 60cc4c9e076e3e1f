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

	"github.com/starford/hugopub/internal/api"
	"github.com/starford/hugopub/internal/contentservice"
	"github.com/starford/hugopub/internal/formatter"
	"github.com/starford/hugopub/internal/index"
	"github.com/starford/hugopub/internal/jobs"
	"github.com/starford/hugopub/internal/mcpserver"
	"github.com/starford/hugopub/internal/sse"
	"github.com/starford/hugopub/internal/storage"
)

// backend is the content stack shared by the HTTP and MCP servers.
type backend struct {
	fs        *storage.FS
	repo      *storage.Repo
	db        *index.DB
	svc       *contentservice.Service
	formatter formatter.Formatter
}

func openBackend(cfg *Config, logger *slog.Logger) (*backend, error) {
	loc, err := cfg.Content.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	if err := os.MkdirAll(cfg.Content.RepoPath, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	fs, err := storage.NewFS(cfg.Content.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	repo, err := storage.OpenRepo(fs, storage.Author{
		Name:  cfg.Content.Author.Name,
		Email: cfg.Content.Author.Email,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	for _, dir := range cfg.Content.Directories {
		if err := index.Sync(db, fs, dir, logger); err != nil {
			logger.Warn("initial sync failed", slog.String("dir", dir), slog.String("error", err.Error()))
		}
	}

	svc := contentservice.NewService(repo, db, contentservice.Config{
		Dirs:       cfg.Content.Directories,
		DefaultDir: cfg.Content.DefaultDir,
		ImageDir:   cfg.Content.ImageDir,
		PublicURL:  cfg.Content.PublicURL,
		Password:   cfg.Auth.Password,
		Location:   loc,
	})

	return &backend{
		fs:        fs,
		repo:      repo,
		db:        db,
		svc:       svc,
		formatter: formatter.New(cfg.Formatter),
	}, nil
}

// newRouter mounts the API under /api next to the health checks and the
// image route.
func newRouter(b *backend, handler *api.Handler, apiRouter http.Handler) chi.Router {
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
		if err := b.db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)
	r.Get("/images/{filename}", handler.ServeImage)
	return r
}

// Run starts the HTTP backend with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("repo_path", cfg.Content.RepoPath),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Any("directories", cfg.Content.Directories),
		slog.String("log_level", cfg.App.LogLevel.String()))

	b, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer b.db.Close()

	loc, _ := cfg.Content.Location()

	broker := sse.NewBroker()
	defer broker.Close()

	manager := jobs.NewManager(b.repo, b.db, b.formatter, jobs.Config{
		Workers:    cfg.Jobs.Workers,
		QueueSize:  cfg.Jobs.QueueSize,
		DefaultDir: cfg.Content.DefaultDir,
		Dirs:       cfg.Content.Directories,
		PublicURL:  cfg.Content.PublicURL,
		Location:   loc,
		Retention:  cfg.Jobs.Retention,
	}, logger,
		jobs.WithNotifier(broker.PublishJobEvent),
		jobs.WithWrittenHook(func(p string, content []byte) {
			if err := b.svc.IndexFile(p, content); err != nil {
				logger.Warn("index published article", slog.String("path", p), slog.String("error", err.Error()))
			}
		}),
	)

	handler := api.NewHandler(b.svc, manager, b.formatter, logger)
	apiRouter := api.NewRouter(handler, api.AuthOptions{
		Enabled: cfg.Auth.AuthEnabled(),
		Token:   cfg.Auth.Token,
	}, broker)

	r := newRouter(b, handler, apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return manager.Run(gCtx)
	})

	for _, dir := range cfg.Content.Directories {
		g.Go(func() error {
			if err := index.Watch(gCtx, b.db, b.fs, b.fs.Root(), dir, logger, broker.PublishArticleEvent); err != nil {
				logger.Error("watcher stopped", slog.String("dir", dir), slog.String("error", err.Error()))
			}
			return nil
		})
	}

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
		stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}

	b, err := openBackend(app.config, logger)
	if err != nil {
		return err
	}
	defer b.db.Close()

	logger.Info("MCP server starting", slog.String("repo_path", app.config.Content.RepoPath))
	return mcpserver.New(b.svc, app.version).ServeStdio()
}
