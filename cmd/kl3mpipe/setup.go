package main

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/alea-labs/kl3mpipe/internal/config"
	"github.com/alea-labs/kl3mpipe/internal/logging"
	"github.com/alea-labs/kl3mpipe/internal/objectstore"
	"github.com/alea-labs/kl3mpipe/internal/tokenizer"
)

// loadConfig reads path, falling back to config.Default() when path is
// empty, and installs the resulting logger as the process-wide singleton.
func loadConfig(path string) (*config.Config, arbor.ILogger, error) {
	var cfg *config.Config
	if path == "" {
		cfg = config.Default()
	} else {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
	}
	logger := logging.Setup(cfg)
	return cfg, logger, nil
}

// newObjectStore builds an objectstore.S3Store from cfg.ObjectStore.
func newObjectStore(ctx context.Context, cfg *config.Config, logger arbor.ILogger) (*objectstore.S3Store, error) {
	return objectstore.NewS3Store(ctx, objectstore.S3Config{
		Region:     cfg.ObjectStore.Region,
		Endpoint:   cfg.ObjectStore.Endpoint,
		MaxRetries: cfg.ObjectStore.MaxRetries,
		PageSize:   cfg.ObjectStore.PageSize,
	}, logger)
}

// initTokenizers registers every encoding cfg.Tokenizer names and installs
// the global registry, matching spec.md §7's process-wide singleton.
func initTokenizers(cfg *config.Config) (*tokenizer.Registry, error) {
	registry := tokenizer.NewRegistry()
	for _, encoding := range cfg.Tokenizer.Encodings {
		tok, err := tokenizer.NewTiktokenTokenizer(encoding)
		if err != nil {
			return nil, fmt.Errorf("initialize tokenizer %s: %w", encoding, err)
		}
		registry.Register(tok)
	}
	if cfg.Tokenizer.Canonical != "" {
		if err := registry.SetCanonical(cfg.Tokenizer.Canonical); err != nil {
			return nil, fmt.Errorf("set canonical tokenizer: %w", err)
		}
	}
	tokenizer.InitGlobalRegistry(registry)
	return registry, nil
}
