package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/arkilian/vaultquery/internal/app"
	"github.com/arkilian/vaultquery/internal/config"
)

// loadConfig layers file, environment and flags, in that order.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.ConfigFile != "" {
		var err error
		if cfg, err = config.LoadFromFile(opts.ConfigFile); err != nil {
			return nil, err
		}
	}
	config.LoadFromEnv(cfg)

	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Log.Format = opts.LogFormat
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid log format: %s", cfg.Format)
	}
}

// openApp loads configuration and opens the vault. Logs go to logOut.
func openApp(logOut io.Writer) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := newLogger(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return app.New(cfg, logger)
}
