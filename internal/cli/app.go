package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/guiyumin/vscribe/internal/core/ai/transcriber"
	"github.com/guiyumin/vscribe/internal/core/audio"
	"github.com/guiyumin/vscribe/internal/core/config"
	"github.com/guiyumin/vscribe/internal/core/pipeline"
	"github.com/guiyumin/vscribe/internal/core/tempfile"
)

// app holds the long-lived pieces shared by the one-shot command and the
// server: one engine, one worker pool and the pipeline on top of them.
type app struct {
	cfg      *config.Config
	fetcher  *audio.YtdlpFetcher
	engine   *transcriber.Serialized
	pool     *pipeline.Pool
	pipeline *pipeline.Pipeline
}

func newApp(cfg *config.Config, log zerolog.Logger) (*app, error) {
	if cfg.TempDir != "" {
		if err := os.MkdirAll(cfg.TempDir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create temp directory: %w", err)
		}
	}

	engine, err := transcriber.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s engine: %w", cfg.ASR.Engine, err)
	}

	pool := pipeline.NewPool(cfg.Server.MaxConcurrent, cfg.Server.QueueSize)
	pool.Start()

	fetcher := audio.NewYtdlpFetcher(cfg.Fetcher, cfg.TempDir, log)
	opts := transcriber.Options{BeamSize: cfg.ASR.BeamSize, Language: cfg.ASR.Language}

	return &app{
		cfg:      cfg,
		fetcher:  fetcher,
		engine:   engine,
		pool:     pool,
		pipeline: pipeline.New(fetcher, engine, tempfile.New(cfg.TempDir), pool, opts, log),
	}, nil
}

// Close drains the worker pool, then releases the engine.
func (a *app) Close() error {
	a.pool.Stop()
	return a.engine.Close()
}

// loadConfig reads the config file and environment, applies flag
// overrides and validates the result.
func loadConfig(override func(cfg *config.Config)) (*config.Config, error) {
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if override != nil {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
