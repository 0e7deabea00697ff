package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bridgeScope/internal/aggregate"
	"bridgeScope/internal/chain"
	"bridgeScope/internal/config"
	"bridgeScope/internal/indexer"
	"bridgeScope/internal/storage/postgres"
)

const aggregateStateName = "bridge-aggregate"

func runAggregate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAggregate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	if err := postgres.Migrate(cfg.PGDSN, logger); err != nil {
		return err
	}
	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	var stateStore indexer.CheckpointStore
	if cfg.StateFile != "" {
		stateStore = indexer.NewFileCheckpointStore(cfg.StateFile)
	} else {
		stateStore = &indexer.DBCheckpointStore{Backend: store, Name: aggregateStateName}
	}

	agg, err := aggregate.NewAggregator(aggregate.Config{
		BatchSize:  cfg.BatchSize,
		StateStore: stateStore,
		SkipEscrow: cfg.SkipEscrow,
	}, store, chainClient, logger)
	if err != nil {
		return err
	}

	logger.Info("aggregate start",
		zap.String("input", cfg.Input),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Bool("skip_escrow", cfg.SkipEscrow),
	)

	return agg.Run(ctx, cfg.Input)
}

// redactDSN drops the password from a URL-style DSN. Anything else is
// hidden entirely.
func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
