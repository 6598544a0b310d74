package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/alea-labs/kl3mpipe/internal/pipeline"
	"github.com/alea-labs/kl3mpipe/internal/tokenizer"
)

func runProcess(args []string) error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file path")
	dataset := fs.String("dataset", "", "dataset id to process (required)")
	subPrefix := fs.String("sub-prefix", "", "restrict to a sub-prefix within the dataset")
	schedule := fs.String("schedule", "", "cron schedule for periodic runs; empty runs once and exits")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dataset == "" {
		return fmt.Errorf("-dataset is required")
	}

	cfg, logger, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *schedule == "" {
		*schedule = cfg.Pipeline.Schedule
	}

	ctx := context.Background()
	store, err := newObjectStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize object store: %w", err)
	}
	registry, err := initTokenizers(cfg)
	if err != nil {
		return err
	}
	canonical, err := registry.Canonical()
	if err != nil {
		return err
	}

	tokenizers := make([]tokenizer.Tokenizer, 0, len(cfg.Tokenizer.Encodings))
	for _, name := range registry.Names() {
		tok, err := registry.Get(name)
		if err != nil {
			return err
		}
		tokenizers = append(tokenizers, tok)
	}

	printBanner("process", cfg, logger)

	p := &pipeline.DatasetPipeline{
		Store:      store,
		Bucket:     cfg.ObjectStore.Bucket,
		Dataset:    *dataset,
		SubPrefix:  *subPrefix,
		Tokenizers: tokenizers,
		Canonical:  canonical,
		Logger:     logger,
	}

	run := func() {
		if err := p.ProcessAll(ctx, cfg.Pipeline.Workers, cfg.Pipeline.MaxSize, cfg.Pipeline.Clobber); err != nil {
			logger.Error().Err(err).Str("dataset", *dataset).Msg("process: run failed")
		}
	}

	if *schedule == "" {
		run()
		return nil
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(*schedule, run); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", *schedule, err)
	}
	c.Start()
	logger.Info().Str("schedule", *schedule).Msg("process: scheduler started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	stopCtx := c.Stop()
	<-stopCtx.Done()
	logger.Info().Msg("process: scheduler stopped")
	return nil
}
