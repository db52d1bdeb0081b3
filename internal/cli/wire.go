package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dshills/criticat/internal/cache"
	"github.com/dshills/criticat/internal/config"
	"github.com/dshills/criticat/internal/document"
	"github.com/dshills/criticat/internal/flow"
	"github.com/dshills/criticat/internal/github"
	"github.com/dshills/criticat/internal/providers"
	"github.com/dshills/criticat/internal/store"
)

func newLogger(cfg config.Config) *slog.Logger {
	return config.NewLogger(cfg.Log, os.Stderr)
}

// buildRegistry wires every usable provider. It fails with a
// ConfigurationError when none can be initialized.
func buildRegistry(ctx context.Context, cfg config.Config, logger *slog.Logger, useCache bool) (*providers.Registry, error) {
	usable, err := cfg.UsableProviders()
	if err != nil {
		return nil, err
	}
	opts := providers.BuildOptions{Logger: logger}
	if useCache && cfg.Cache.Enabled {
		c, err := cache.New(true, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
		if err != nil {
			logger.Warn("review cache unavailable", "error", err)
		} else {
			opts.Cache = c
		}
	}
	reg := providers.Build(ctx, usable, opts)
	if reg.Len() == 0 {
		return nil, &config.ConfigurationError{Field: "providers", Err: errors.New("no provider could be initialized")}
	}
	return reg, nil
}

// openHistory opens the run store, or returns nil when it is disabled or
// cannot be opened. History is never required for a review.
func openHistory(cfg config.Config, logger *slog.Logger) *store.DB {
	if !cfg.Store.Enabled {
		return nil
	}
	path := cfg.Store.Path
	if path == "" {
		p, err := store.DefaultPath()
		if err != nil {
			logger.Warn("run history disabled", "error", err)
			return nil
		}
		path = p
	}
	db, err := store.Open(path)
	if err != nil {
		logger.Warn("run history disabled", "path", path, "error", err)
		return nil
	}
	return db
}

func newNotifier(cfg config.Config, logger *slog.Logger) (*github.Notifier, error) {
	n := github.NewNotifier(logger)
	if cfg.GitHub.APIURL == "" {
		return n, nil
	}
	return n.WithBaseURL(cfg.GitHub.APIURL)
}

type wireOptions struct {
	noCache  bool
	recorder flow.Recorder
}

func newOrchestrator(ctx context.Context, cfg config.Config, logger *slog.Logger, wo wireOptions) (*flow.Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reg, err := buildRegistry(ctx, cfg, logger, !wo.noCache)
	if err != nil {
		return nil, err
	}
	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return nil, &config.ConfigurationError{Field: "github.api_url", Err: err}
	}
	extractor := document.NewExtractor(document.Pdftoppm{DPI: cfg.Review.DPI}, document.WithLogger(logger))

	opts := flow.Options{
		Registry:    reg,
		Extractor:   extractor,
		Notifier:    notifier,
		ReportDir:   cfg.ReportDir,
		Logger:      logger,
		Concurrency: cfg.Review.Concurrency,
	}
	if wo.recorder != nil {
		opts.Recorder = wo.recorder
	}
	o, err := flow.New(opts)
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}
	return o, nil
}
