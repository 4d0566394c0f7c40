// Package app wires configuration, the vault database and the query service
// into a runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/arkilian/vaultquery/internal/api/http"
	"github.com/arkilian/vaultquery/internal/config"
	"github.com/arkilian/vaultquery/internal/observability"
	"github.com/arkilian/vaultquery/internal/server"
	"github.com/arkilian/vaultquery/internal/storage"
	"github.com/arkilian/vaultquery/internal/vault"
)

// App owns the vault database, the query service and the HTTP server.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	vault    *storage.SQLiteVault
	svc      *vault.Service
	registry *prometheus.Registry
	shutdown *server.ShutdownManager

	closeOnce sync.Once
	closeErr  error
}

// New resolves and validates cfg, opens the vault database and builds the
// query service.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	typeRegistry, err := cfg.BuildRegistry()
	if err != nil {
		return nil, fmt.Errorf("invalid type registry: %w", err)
	}
	extensions, err := cfg.BuildExtensions()
	if err != nil {
		return nil, fmt.Errorf("invalid extension tables: %w", err)
	}

	v, err := storage.OpenSQLite(cfg.Database.Path, storage.SQLiteOptions{
		BusyTimeout:  cfg.Database.BusyTimeout,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := vault.New(v, typeRegistry, vault.Options{
		RootType:    cfg.Query.RootType,
		MaxPageSize: cfg.Query.MaxPageSize,
		Extensions:  extensions,
		Stats:       observability.NewQueryStats(cfg.Query.StatsWindow),
		Metrics:     observability.NewMetrics(registry),
		Logger:      logger,
	})

	logger.Info("vault opened",
		slog.String("path", cfg.Database.Path),
		slog.Int("types", len(cfg.Types)),
		slog.Int("extension_tables", len(extensions.Tables())),
	)

	return &App{
		cfg:      cfg,
		logger:   logger,
		vault:    v,
		svc:      svc,
		registry: registry,
		shutdown: server.NewShutdownManager(server.ShutdownConfig{Logger: logger}),
	}, nil
}

// Service returns the vault query service.
func (a *App) Service() *vault.Service { return a.svc }

// Vault returns the vault database.
func (a *App) Vault() *storage.SQLiteVault { return a.vault }

// Handler returns the HTTP API including /health and /metrics.
func (a *App) Handler() http.Handler {
	return httpapi.NewRouter(a.svc, httpapi.RouterOptions{
		DefaultPageSize: a.cfg.Query.DefaultPageSize,
		Sessions:        a.vault,
		Gatherer:        a.registry,
		Wrap:            a.shutdown.Middleware,
		Logger:          a.logger,
	})
}

// Serve runs the HTTP server until ctx is cancelled or a termination signal
// arrives, then drains requests and closes the vault.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}
	a.shutdown.RegisterCloser(server.CloserFunc(a.Close))

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("vault query HTTP server listening", slog.String("addr", a.cfg.HTTP.Addr))
		errCh <- a.shutdown.Serve(srv)
	}()

	go func() {
		if err := a.shutdown.ListenForSignals(ctx); err != nil {
			a.logger.Error("shutdown failed", slog.Any("error", err))
		}
	}()

	if err := <-errCh; err != nil {
		a.shutdown.Shutdown(context.Background(), "server error")
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Close releases the vault database. It is safe to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.closeErr = a.vault.Close()
	})
	return a.closeErr
}
