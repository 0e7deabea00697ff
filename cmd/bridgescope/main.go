package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"bridgeScope/internal/chain"
	"bridgeScope/internal/config"
	"bridgeScope/internal/indexer"
	"bridgeScope/internal/metrics"
	"bridgeScope/internal/storage"
	"bridgeScope/internal/storage/postgres"
)

const checkpointName = "bridge-indexer"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "bridgescope",
		Short:        "Arbitrum token bridge indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Index gateway deposits and withdrawals",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "L1 RPC URL")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	runCmd.Flags().StringSlice("gateway", nil, "gateway addresses (comma-separated)")
	runCmd.Flags().Uint64("l2-chain-id", 0, "L2 chain id, 0 derives it from the L1 chain id")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	runCmd.Flags().Int("concurrency", 8, "parallel receipt fetches per batch")
	runCmd.Flags().String("out", "./data/bridge.jsonl", "output JSONL path, unused with --pg-dsn")
	runCmd.Flags().String("errors", "./data/resolve_errors.jsonl", "unresolved identifiers JSONL path")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN, replaces the JSONL output and file checkpoint")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().Duration("max-backoff", 10*time.Second, "maximum retry backoff")
	runCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)
	root.AddCommand(newTicketIDCommand())
	root.AddCommand(newTxIndexCommand())

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Fold bridge records into network totals",
		RunE:  runAggregate,
	}

	aggregateCmd.Flags().String("rpc", "", "L1 RPC URL for token metadata and escrow balances")
	aggregateCmd.Flags().String("in", "./data/bridge.jsonl", "input bridge JSONL")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	aggregateCmd.Flags().Int("batch-size", 1000, "records folded per flush")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().Bool("skip-escrow", false, "do not read gateway token balances")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(aggregateCmd)
	return root
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
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

	gateways, err := indexer.ParseAddresses(cfg.Gateways)
	if err != nil {
		return err
	}
	if len(gateways) == 0 {
		return fmt.Errorf("gateway list is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	var (
		sink       storage.Storage
		checkpoint indexer.CheckpointStore
	)
	if cfg.PGDSN != "" {
		if err := postgres.Migrate(cfg.PGDSN, logger); err != nil {
			return err
		}
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sink = store
		checkpoint = &indexer.DBCheckpointStore{Backend: store, Name: checkpointName}
	} else {
		sink = storage.NewJsonlStorage(cfg.Out)
		checkpoint = indexer.NewFileCheckpointStore(cfg.Checkpoint)
	}

	opts := []indexer.Option{indexer.WithErrorSink(storage.NewJsonlErrorLog(cfg.Errors))}
	if cfg.CheckpointEnabled {
		opts = append(opts, indexer.WithCheckpoint(checkpoint))
	}
	if cfg.MetricsAddr != "" {
		m := metrics.NewIndexer()
		opts = append(opts, indexer.WithMetrics(m))
		go serveMetrics(ctx, cfg.MetricsAddr, m, logger)
	}

	var l2ChainID *big.Int
	if cfg.L2ChainID != 0 {
		l2ChainID = new(big.Int).SetUint64(cfg.L2ChainID)
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:   cfg.FromBlock,
		ToBlock:     cfg.ToBlock,
		Gateways:    gateways,
		L2ChainID:   l2ChainID,
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.Concurrency,
		Retry: indexer.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			Backoff:    cfg.RetryBackoff,
			MaxBackoff: cfg.MaxBackoff,
		},
	}, chainClient, sink, logger, opts...)

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("gateways", len(gateways)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
	)

	return runner.Run(ctx)
}

// newLogger builds the production logger. Every record carries the run_id
// of this invocation.
func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("run_id", uuid.NewString())), nil
}
