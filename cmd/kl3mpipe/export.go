package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/alea-labs/kl3mpipe/internal/exporter"
)

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file path")
	dataset := fs.String("dataset", "", "dataset id to export (required)")
	output := fs.String("output", "", "output .jsonl.gz path (required)")
	format := fs.String("format", "", "tokens | text, overrides config")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dataset == "" || *output == "" {
		return fmt.Errorf("-dataset and -output are required")
	}

	cfg, logger, err := loadConfig(*configPath)
	if err != nil {
		return err
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

	printBanner("export", cfg, logger)

	outFmt := exporter.Format(cfg.Exporter.Format)
	if *format != "" {
		outFmt = exporter.Format(*format)
	}

	exp := &exporter.Exporter{Store: store, Bucket: cfg.ObjectStore.Bucket, Canonical: canonical, Logger: logger}
	opts := exporter.Options{
		Dataset:             *dataset,
		Fetchers:            cfg.Exporter.Fetchers,
		QueueDepth:          cfg.Exporter.QueueDepth,
		Format:              outFmt,
		Dedup:               cfg.Exporter.Dedup,
		DedupKeyTokens:      cfg.Exporter.DedupKeyTokens,
		DedupKeyChars:       cfg.Exporter.DedupKeyChars,
		QualityGate:         cfg.Exporter.QualityGate,
		QualityThreshold:    cfg.Exporter.QualityThreshold,
		IncludeAllDocuments: cfg.Exporter.IncludeAllDocuments,
		FlushBytes:          cfg.Exporter.FlushBytes,
		FlushInterval:       time.Duration(cfg.Exporter.FlushIntervalMillis) * time.Millisecond,
	}

	f, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	stats, err := exp.Export(ctx, f, opts)
	if err != nil {
		return fmt.Errorf("export dataset %s: %w", *dataset, err)
	}

	logger.Info().
		Str("dataset", *dataset).
		Int("processed", stats.Processed).
		Int("exported", stats.Exported).
		Int("skipped", stats.Skipped).
		Int("errored", stats.Errored).
		Str("output", *output).
		Msg("export: complete")
	return nil
}
