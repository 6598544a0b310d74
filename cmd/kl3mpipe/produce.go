package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alea-labs/kl3mpipe/internal/broker/store"
	"github.com/alea-labs/kl3mpipe/internal/producer"
	"github.com/alea-labs/kl3mpipe/internal/producer/task"
)

func runProduce(args []string) error {
	fs := flag.NewFlagSet("produce", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	objStore, err := newObjectStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize object store: %w", err)
	}
	registry, err := initTokenizers(cfg)
	if err != nil {
		return err
	}
	sourceTok, err := registry.Get(cfg.Producer.SourceTokenizer)
	if err != nil {
		return fmt.Errorf("resolve source tokenizer: %w", err)
	}
	targetTok, err := registry.Get(cfg.Producer.TargetTokenizer)
	if err != nil {
		return fmt.Errorf("resolve target tokenizer: %w", err)
	}

	printBanner("produce", cfg, logger)

	client := redis.NewClient(&redis.Options{Addr: cfg.Producer.RedisAddr, DB: cfg.Producer.RedisDB})
	sampleStore := store.NewRedisListStore(client)

	p := &producer.Producer{ObjectStore: objStore, SampleStore: sampleStore, Logger: logger}
	opts := producer.Options{
		Bucket:          cfg.ObjectStore.Bucket,
		Datasets:        producer.ParseDatasets(cfg.Producer.SourceDatasets),
		Tasks:           producer.ParseTaskTypes(cfg.Producer.Tasks),
		SourceTokenizer: sourceTok,
		TargetTokenizer: targetTok,
		SequenceLength:  cfg.Producer.SequenceLength,
		BatchSize:       cfg.Producer.BatchSize,
		HighWaterMark:   cfg.Producer.HighWaterMark,
		Backpressure:    time.Duration(cfg.Producer.BackpressureMS) * time.Millisecond,
	}
	if len(opts.Tasks) == 0 {
		opts.Tasks = []task.TaskType{task.CLM}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("produce: interrupt received, stopping after current document")
		cancel()
	}()

	if err := p.Run(ctx, opts, true); err != nil && ctx.Err() == nil {
		return fmt.Errorf("producer run failed: %w", err)
	}
	logger.Info().Msg("produce: stopped")
	return nil
}
