package aggregate

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"bridgeScope/internal/indexer"
	"bridgeScope/internal/model"
	"bridgeScope/internal/storage"
)

// TotalsSink receives per-token total deltas, e.g. postgres.Store.
type TotalsSink interface {
	UpsertNetworkTotals(ctx context.Context, totals []model.NetworkTotal) error
}

// Config controls aggregation behavior.
type Config struct {
	// BatchSize is the number of records folded before totals are flushed.
	BatchSize int
	// StateStore remembers the last block whose records were flushed.
	StateStore indexer.CheckpointStore
	// SkipEscrow disables the gateway balanceOf lookups.
	SkipEscrow bool
}

// Aggregator folds bridge records into network totals.
type Aggregator struct {
	cfg          Config
	sink         TotalsSink
	caller       ContractCaller
	tokens       *TokenMetaCache
	logger       *zap.Logger
	accumulators map[string]*Accumulator
}

func NewAggregator(cfg Config, sink TotalsSink, caller ContractCaller, logger *zap.Logger) (*Aggregator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tokens, err := NewTokenMetaCache(caller, defaultTokenCacheSize, logger)
	if err != nil {
		return nil, err
	}
	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		caller:       caller,
		tokens:       tokens,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}, nil
}

// Run aggregates a bridge JSONL file. Records at or below the stored state
// block are skipped, as are repeats of a record ID already folded. Totals are flushed on block boundaries only, so a
// restart never double counts part of a block.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	if a.sink == nil {
		return fmt.Errorf("totals sink is nil")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startBlock, resumed, err := a.loadStartBlock(ctx)
	if err != nil {
		return err
	}

	var total, folded, skipped, duplicates, failed, pending int
	maxBlock := startBlock
	seen := make(map[string]struct{})

	err = storage.ReadBridgeTransactions(inputPath, func(record model.BridgeTransaction) error {
		total++
		if resumed && record.BlockNumber <= startBlock {
			skipped++
			return nil
		}
		if _, ok := seen[record.ID]; ok {
			duplicates++
			return nil
		}
		if !common.IsHexAddress(record.Gateway) || !common.IsHexAddress(record.L1Token) {
			failed++
			a.logger.Warn("invalid record address", zap.String("id", record.ID))
			return nil
		}

		if pending >= a.cfg.BatchSize && record.BlockNumber > maxBlock {
			if err := a.flush(ctx, maxBlock); err != nil {
				return err
			}
			pending = 0
		}

		key := totalsKey(record.ChainID, record.Gateway, record.L1Token)
		acc := a.accumulators[key]
		if acc == nil {
			acc = NewAccumulator(record)
		}
		if err := acc.AddRecord(record); err != nil {
			failed++
			a.logger.Warn("aggregate record", zap.String("id", record.ID), zap.Error(err))
			return nil
		}
		a.accumulators[key] = acc
		seen[record.ID] = struct{}{}
		folded++
		pending++
		if record.BlockNumber > maxBlock {
			maxBlock = record.BlockNumber
		}
		return nil
	}, func(line int, err error) {
		failed++
		a.logger.Warn("decode bridge record", zap.Int("line", line), zap.Error(err))
	})
	if err != nil {
		return err
	}

	if pending > 0 {
		if err := a.flush(ctx, maxBlock); err != nil {
			return err
		}
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("folded", folded),
		zap.Int("skipped", skipped),
		zap.Int("duplicates", duplicates),
		zap.Int("failed", failed),
		zap.Uint64("last_block", maxBlock),
	)
	return nil
}

func (a *Aggregator) loadStartBlock(ctx context.Context) (uint64, bool, error) {
	if a.cfg.StateStore == nil {
		return 0, false, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("load aggregate state: %w", err)
	}
	return last, ok, nil
}

// flush writes the open accumulators and records lastBlock as processed.
func (a *Aggregator) flush(ctx context.Context, lastBlock uint64) error {
	keys := make([]string, 0, len(a.accumulators))
	for key := range a.accumulators {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	totals := make([]model.NetworkTotal, 0, len(keys))
	for _, key := range keys {
		total, err := a.buildTotal(ctx, a.accumulators[key])
		if err != nil {
			return err
		}
		totals = append(totals, total)
	}

	if err := a.sink.UpsertNetworkTotals(ctx, totals); err != nil {
		return fmt.Errorf("upsert network totals: %w", err)
	}
	a.accumulators = make(map[string]*Accumulator)

	if a.cfg.StateStore != nil {
		if err := a.cfg.StateStore.Save(ctx, lastBlock); err != nil {
			return fmt.Errorf("save aggregate state: %w", err)
		}
	}
	a.logger.Info("totals flushed", zap.Int("keys", len(totals)), zap.Uint64("last_block", lastBlock))
	return nil
}

// buildTotal scales the accumulated amounts. Missing token metadata is an
// error since totals written with different scales cannot be added.
func (a *Aggregator) buildTotal(ctx context.Context, acc *Accumulator) (model.NetworkTotal, error) {
	token := common.HexToAddress(acc.L1Token)
	gateway := common.HexToAddress(acc.Gateway)

	meta, err := a.tokens.Get(ctx, token)
	if err != nil {
		return model.NetworkTotal{}, fmt.Errorf("token metadata %s: %w", token.Hex(), err)
	}

	total := model.NetworkTotal{
		ChainID:                 acc.ChainID,
		Gateway:                 gateway.Hex(),
		L1Token:                 token.Hex(),
		Symbol:                  meta.Symbol,
		Decimals:                meta.Decimals,
		TotalDeposited:          formatTokenAmount(acc.Deposited, meta.Decimals),
		TotalWithdrawnConfirmed: formatTokenAmount(acc.Withdrawn, meta.Decimals),
		DepositCount:            acc.DepositCount,
		WithdrawalCount:         acc.WithdrawalCount,
		LastBlock:               acc.LastBlock,
		EscrowMethod:            escrowMethodNone,
	}

	if a.cfg.SkipEscrow {
		return total, nil
	}
	balance, method, err := a.fetchEscrow(ctx, token, gateway, acc.LastBlock)
	if err != nil {
		a.logger.Warn("escrow balance unavailable",
			zap.String("gateway", total.Gateway),
			zap.String("token", total.L1Token),
			zap.Error(err),
		)
		return total, nil
	}
	escrow := formatTokenAmount(balance, meta.Decimals)
	total.EscrowBalance = &escrow
	total.EscrowMethod = method
	return total, nil
}
