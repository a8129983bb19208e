// Command chronicle-server runs the decay scheduler as a long-lived
// process against a Postgres store: connects with retry, migrates the
// schema, starts the scheduler, and blocks until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bojanni/Chronicle/internal/config"
	"github.com/bojanni/Chronicle/internal/scheduler"
	"github.com/bojanni/Chronicle/internal/store"
)

const connectMaxAttempts = 10

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the decay scheduler against a Postgres store",
	RunE:  runServe,
}

var rootCmd = &cobra.Command{
	Use:   "chronicle-server",
	Short: "Chronicle memory engine: decay scheduler process",
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := connectWithRetry(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connect to store: %w", err)
	}
	defer s.Close()

	if err := s.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	log.Info("schema migrated")

	sched := scheduler.New(s, scheduler.Config{
		IntervalMs:      cfg.DecayIntervalMs,
		BatchSize:       cfg.DecayBatchSize,
		MetricRetention: cfg.MetricRetention,
	}, log)

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	log.Info("decay scheduler started", zap.Int64("interval_ms", cfg.DecayIntervalMs))

	<-ctx.Done()
	log.Info("shutdown signal received, stopping scheduler")
	sched.Stop()

	return nil
}

// connectWithRetry dials Postgres with exponential backoff per §7: 1s→30s
// doubling, with at most connectMaxAttempts retries after the first
// attempt. Only connection-class failures (store.ErrTransport) are
// retried; any other error from NewPostgresStore is wrapped in
// backoff.Permanent and fails fast, though today NewPostgresStore only
// ever returns ErrTransport.
func connectWithRetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*store.PostgresStore, error) {
	var s *store.PostgresStore

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		var err error
		s, err = store.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.EmbeddingDim, log)
		if err != nil {
			if !errors.Is(err, store.ErrTransport) {
				return backoff.Permanent(err)
			}
			log.Warn("store connection attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, connectMaxAttempts), ctx)); err != nil {
		return nil, err
	}
	return s, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}
