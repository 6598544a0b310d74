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

	"github.com/alea-labs/kl3mpipe/internal/broker"
	"github.com/alea-labs/kl3mpipe/internal/broker/store"
)

func runBroker(args []string) error {
	fs := flag.NewFlagSet("broker", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	printBanner("broker", cfg, logger)

	client := redis.NewClient(&redis.Options{Addr: cfg.Broker.RedisAddr, DB: cfg.Broker.RedisDB})
	listStore := store.NewRedisListStore(client)

	srv := broker.NewHTTPServer(listStore, cfg.Broker, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info().Msg("broker: interrupt received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("broker shutdown: %w", err)
	}
	return nil
}
