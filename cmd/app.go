package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kozaktomas/faceauth/internal/config"
	"github.com/kozaktomas/faceauth/internal/database"
	"github.com/kozaktomas/faceauth/internal/database/postgres"
	"github.com/kozaktomas/faceauth/internal/enrollment"
	"github.com/kozaktomas/faceauth/internal/facematch"
	"github.com/kozaktomas/faceauth/internal/features"
	"github.com/kozaktomas/faceauth/internal/imaging"
	"github.com/kozaktomas/faceauth/internal/logging"
	"github.com/kozaktomas/faceauth/internal/verifier"

	// registers the mariadb backend
	_ "github.com/kozaktomas/faceauth/internal/database/mariadb"
)

// app bundles everything a command needs to work with the store.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	persister database.Persister
	store     *enrollment.Store
	service   *verifier.Service
}

// loadConfig reads the config file (if given) and validates it.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if configFile != "" {
		var err error
		if cfg, err = config.LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openPersister connects to the configured backend.
func openPersister(ctx context.Context, cfg *config.Config) (database.Persister, error) {
	if cfg.Storage.Backend == postgres.BackendName {
		store, err := postgres.Open(ctx, postgres.Options{
			URL:          cfg.Storage.DatabaseURL,
			MaxOpenConns: cfg.Storage.MaxOpenConns,
			MaxIdleConns: cfg.Storage.MaxIdleConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		return store, nil
	}
	return database.Open(ctx, cfg.Storage.Backend, cfg.Storage.Target())
}

// openApp loads configuration, connects storage and builds the service.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return nil, err
	}

	persister, err := openPersister(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := enrollment.Open(ctx, persister, enrollment.Settings{
		AccuracyThreshold: cfg.Enrollment.AccuracyThreshold,
		MinSamplesPerUser: cfg.Enrollment.MinSamplesPerUser,
		MaxSamplesPerUser: cfg.Enrollment.MaxSamplesPerUser,
	}, enrollment.WithLogger(logger))
	if err != nil {
		closePersister(persister)
		return nil, err
	}

	pre, ext, err := newPipeline(cfg)
	if err != nil {
		closePersister(persister)
		return nil, err
	}

	opts := []verifier.Option{
		verifier.WithLogger(logger),
		verifier.WithMinSampleConfidence(cfg.Enrollment.MinSampleConfidence),
		verifier.WithRequireEnrolled(cfg.Enrollment.RequireEnrolled),
		verifier.WithMatcher(facematch.NewMatcher(cfg.Match.Workers)),
	}
	if searcher, ok := persister.(database.SampleSearcher); ok {
		opts = append(opts, verifier.WithSampleSearcher(searcher))
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		persister: persister,
		store:     store,
		service:   verifier.NewService(pre, ext, store, opts...),
	}, nil
}

// newPipeline builds the preprocessor and extractor from the pipeline config.
func newPipeline(cfg *config.Config) (*imaging.Preprocessor, *features.Extractor, error) {
	pre, err := imaging.NewPreprocessor(imaging.Options{
		ROIMode:        imaging.ROIMode(cfg.Pipeline.ROIMode),
		BrightnessGain: cfg.Pipeline.BrightnessGain,
		CanonicalSize:  cfg.Pipeline.CanonicalSize,
		Filter:         cfg.Pipeline.Resample,
	})
	if err != nil {
		return nil, nil, err
	}
	ext, err := features.NewExtractor(features.Options{
		GridSize:       cfg.Pipeline.GridSize,
		TextureBuckets: cfg.Pipeline.TextureBuckets,
	})
	if err != nil {
		return nil, nil, err
	}
	return pre, ext, nil
}

// Close releases the storage connection and flushes logs.
func (a *app) Close() {
	closePersister(a.persister)
	_ = a.logger.Sync()
}

func closePersister(p database.Persister) {
	if c, ok := p.(database.Closer); ok {
		c.Close()
	}
}
