package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bridgeScope/internal/arbitrum"
	"bridgeScope/internal/bridge"
	"bridgeScope/internal/chain"
	"bridgeScope/internal/metrics"
	"bridgeScope/internal/model"
	"bridgeScope/internal/storage"
)

// ChainSource is the L1 RPC surface the runner reads from.
type ChainSource interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Transaction(ctx context.Context, txHash, blockHash common.Hash, txIndex uint) (chain.TxInfo, error)
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	FromBlock   uint64
	ToBlock     uint64
	Gateways    []common.Address
	L2ChainID   *big.Int
	BatchSize   uint64
	Concurrency int
	Retry       RetryPolicy
}

// Runner indexes gateway deposits and withdrawals into storage.
type Runner struct {
	cfg        RunConfig
	chain      ChainSource
	storage    storage.Storage
	errors     storage.ErrorSink
	checkpoint CheckpointStore
	metrics    *metrics.Indexer
	logger     *zap.Logger
	seen       map[string]struct{}
}

// Option customizes a Runner.
type Option func(*Runner)

// WithCheckpoint resumes from and saves progress to store.
func WithCheckpoint(store CheckpointStore) Option {
	return func(r *Runner) { r.checkpoint = store }
}

// WithErrorSink records unresolved identifiers to sink.
func WithErrorSink(sink storage.ErrorSink) Option {
	return func(r *Runner) { r.errors = sink }
}

// WithMetrics reports progress to m.
func WithMetrics(m *metrics.Indexer) Option {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, chainSource ChainSource, sink storage.Storage, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		cfg:     cfg,
		chain:   chainSource,
		storage: sink,
		logger:  logger,
		seen:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the indexing loop over the configured block range.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Gateways) == 0 {
		return fmt.Errorf("at least one gateway address is required")
	}
	if r.cfg.Concurrency <= 0 {
		r.cfg.Concurrency = 1
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	l2ChainID := r.cfg.L2ChainID
	if l2ChainID == nil || l2ChainID.Sign() == 0 {
		l2ChainID, err = bridge.L2ChainIDForL1(chainID)
		if err != nil {
			return fmt.Errorf("l2 chain id: %w", err)
		}
	}
	topics, err := arbitrum.GatewayTopics()
	if err != nil {
		return fmt.Errorf("gateway topics: %w", err)
	}

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	if r.checkpoint != nil {
		last, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return err
		}
		if ok && last >= from {
			from = last + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	builder := newRecordBuilder(chainID.Uint64(), l2ChainID, r.logger)
	r.logger.Info("index gateways",
		zap.String("l1_chain_id", chainID.String()),
		zap.String("l2_chain_id", l2ChainID.String()),
		zap.Int("batches", len(ranges)),
	)

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := r.processRange(ctx, builder, blockRange, topics); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) processRange(ctx context.Context, builder *recordBuilder, blockRange BlockRange, topics []common.Hash) error {
	started := time.Now()
	r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

	var logs []types.Log
	err := r.retry(ctx, "filter_logs", func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, blockRange.From, blockRange.To, r.cfg.Gateways, topics)
		return err
	})
	if err != nil {
		return fmt.Errorf("filter logs %s: %w", blockRange, err)
	}

	pending := make([]types.Log, 0, len(logs))
	for _, log := range logs {
		if log.Removed || r.isDuplicate(log) {
			continue
		}
		pending = append(pending, log)
	}

	type result struct {
		record     *model.BridgeTransaction
		resolveErr *model.ResolveError
	}
	results := make([]result, len(pending))
	ingestedAt := time.Now().UTC()

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.cfg.Concurrency)
	for i := range pending {
		i := i
		group.Go(func() error {
			log := pending[i]
			receipt, tx, ts, err := r.fetchContext(groupCtx, log)
			if err != nil {
				return err
			}
			record, resolveErr, err := builder.build(log, receipt, tx, ts, ingestedAt)
			if err != nil {
				r.logger.Warn("skip undecodable gateway log",
					zap.String("tx_hash", log.TxHash.Hex()),
					zap.Uint("log_index", log.Index),
					zap.Error(err),
				)
				e := decodeError(builder.chainID, log, err)
				results[i] = result{resolveErr: &e}
				return nil
			}
			results[i] = result{record: &record, resolveErr: resolveErr}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	records := make([]model.BridgeTransaction, 0, len(results))
	var resolveErrs []model.ResolveError
	for _, res := range results {
		if res.record != nil {
			records = append(records, *res.record)
			r.metrics.LogProcessed(res.record.Type)
		}
		if res.resolveErr != nil {
			resolveErrs = append(resolveErrs, *res.resolveErr)
			r.metrics.ResolveFailed(res.resolveErr.Field)
		}
	}

	if err := r.storage.PutBatch(ctx, records); err != nil {
		return fmt.Errorf("store records: %w", err)
	}
	r.metrics.RecordsWritten(len(records))
	if r.errors != nil {
		if err := r.errors.PutErrors(ctx, resolveErrs); err != nil {
			return fmt.Errorf("store resolve errors: %w", err)
		}
	}

	if r.checkpoint != nil {
		if err := r.checkpoint.Save(ctx, blockRange.To); err != nil {
			return err
		}
	}

	r.metrics.BatchDone(blockRange.To, time.Since(started).Seconds())
	r.logger.Info("batch complete",
		zap.Int("records", len(records)),
		zap.Int("unresolved", len(resolveErrs)),
		zap.Uint64("from", blockRange.From),
		zap.Uint64("to", blockRange.To),
	)
	return nil
}

// fetchContext loads the receipt, transaction and block timestamp of log.
func (r *Runner) fetchContext(ctx context.Context, log types.Log) (*types.Receipt, chain.TxInfo, uint64, error) {
	var receipt *types.Receipt
	err := r.retry(ctx, "receipt", func(ctx context.Context) error {
		var err error
		receipt, err = r.chain.TransactionReceipt(ctx, log.TxHash)
		return err
	})
	if err != nil {
		return nil, chain.TxInfo{}, 0, fmt.Errorf("receipt %s: %w", log.TxHash.Hex(), err)
	}

	var tx chain.TxInfo
	err = r.retry(ctx, "transaction", func(ctx context.Context) error {
		var err error
		tx, err = r.chain.Transaction(ctx, log.TxHash, log.BlockHash, log.TxIndex)
		return err
	})
	if err != nil {
		return nil, chain.TxInfo{}, 0, fmt.Errorf("transaction %s: %w", log.TxHash.Hex(), err)
	}

	var ts uint64
	err = r.retry(ctx, "block_timestamp", func(ctx context.Context) error {
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, log.BlockNumber)
		return err
	})
	if err != nil {
		return nil, chain.TxInfo{}, 0, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
	}
	return receipt, tx, ts, nil
}

func (r *Runner) retry(ctx context.Context, operation string, fn func(context.Context) error) error {
	return r.cfg.Retry.Do(ctx, fn, func(attempt int, err error) {
		r.metrics.RPCFailed(operation)
		r.logger.Warn("rpc call failed",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	})
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := model.BridgeTransactionID(log.TxHash.Hex(), uint64(log.Index))
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}
