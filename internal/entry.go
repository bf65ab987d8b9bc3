// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/basalt/internal/api"
	"github.com/starford/basalt/internal/bases"
	"github.com/starford/basalt/internal/filter"
	"github.com/starford/basalt/internal/mcpserver"
	"github.com/starford/basalt/internal/noteservice"
	"github.com/starford/basalt/internal/pathfilter"
	"github.com/starford/basalt/internal/search"
	"github.com/starford/basalt/internal/sse"
	"github.com/starford/basalt/internal/storage"
	"github.com/starford/basalt/internal/vault"
	"github.com/starford/basalt/internal/watcher"
)

// NewLogger returns the JSON logger used across the application.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// Vault bundles the read-only services built over one vault directory.
type Vault struct {
	Service *noteservice.Service
	Filter  *pathfilter.Filter
}

// OpenVault wires storage, the access filter and the query engines for cfg.
func OpenVault(cfg *Config, logger *slog.Logger) (*Vault, error) {
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	pf := pathfilter.New(pathfilter.Config{
		IgnoredPatterns:   cfg.Vault.IgnoredPatterns,
		AllowedExtensions: cfg.Vault.AllowedExtensions,
	})
	loader := vault.NewLoader(store, pf,
		vault.WithConcurrency(cfg.Vault.ScanConcurrency),
		vault.WithLogger(logger))

	svc := noteservice.NewService(loader,
		search.New(loader, logger),
		bases.New(loader, filter.NewEvaluator(), logger))
	return &Vault{Service: svc, Filter: pf}, nil
}

// newHTTPHandler builds the top-level router: health probes plus the API under /api.
func newHTTPHandler(cfg *Config, svc *noteservice.Service, events http.Handler, logger *slog.Logger) http.Handler {
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
		if info, err := os.Stat(svc.VaultRoot()); err != nil || !info.IsDir() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"vault unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, events, logger))
	return r
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{http: true, version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return errors.New("config is required")
	}
	cfg := app.config
	if cfg.MCP.Enabled && !app.stdio {
		WithStdio(os.Stdin, os.Stdout)(app)
	}
	if !app.http && !app.stdio {
		return errors.New("nothing to serve: both HTTP and MCP are disabled")
	}

	// Structured JSON logger. Never stdout: that is the MCP transport.
	logger := NewLogger(cfg, app.logOutput)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.Bool("http", app.http),
		slog.Bool("mcp_stdio", app.stdio),
		slog.String("log_level", cfg.App.LogLevel.String()))

	v, err := OpenVault(cfg, logger)
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)

	if app.stdio {
		mcpSrv := mcpserver.New(v.Service, app.version, logger)
		g.Go(func() error {
			logger.Info("Starting MCP stdio server")
			if err := mcpSrv.Serve(gCtx, app.stdin, app.stdout); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
				return fmt.Errorf("MCP server error: %w", err)
			}
			// A closed stdin ends the session and with it the process.
			return errMCPClosed
		})
	}

	if app.http {
		runHTTP(gCtx, g, cfg, v, logger)
	}

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			return errShutdown
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) && !errors.Is(err, errMCPClosed) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var (
	errShutdown  = errors.New("shutdown requested")
	errMCPClosed = errors.New("mcp session closed")
)

// runHTTP adds the HTTP server, the SSE broker and the vault watcher to g.
func runHTTP(ctx context.Context, g *errgroup.Group, cfg *Config, v *Vault, logger *slog.Logger) {
	broker := sse.NewBroker(sse.Options{Coalesce: 2 * time.Second})

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHTTPHandler(cfg, v.Service, broker, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		err := watcher.Watch(ctx, v.Service.VaultRoot(), v.Filter, logger, broker.PublishChange)
		if err != nil {
			logger.Warn("vault watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		broker.Close()
		return nil
	})
}
