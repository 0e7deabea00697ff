package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bridgeScope/internal/model"
)

// Store persists bridge records, network totals and progress state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutBatch upserts records keyed by id. A later run may fill in an
// identifier an earlier run could not resolve, but never clears one.
func (s *Store) PutBatch(ctx context.Context, records []model.BridgeTransaction) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		ingestedAt, err := time.Parse(time.RFC3339Nano, r.IngestedAt)
		if err != nil {
			ingestedAt = time.Now().UTC()
		}
		batch.Queue(`
			INSERT INTO bridge_transactions (
				id, type, chain_id, l2_chain_id, block_number, block_hash, block_ts, tx_hash, log_index,
				gateway, signer, from_address, to_address, l1_token, amount,
				sequence_number, retryable_ticket_id, routed, exit_num, transaction_index,
				ingested_at, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,now(),now())
			ON CONFLICT (id)
			DO UPDATE SET
				block_hash = EXCLUDED.block_hash,
				signer = EXCLUDED.signer,
				retryable_ticket_id = COALESCE(EXCLUDED.retryable_ticket_id, bridge_transactions.retryable_ticket_id),
				transaction_index = COALESCE(EXCLUDED.transaction_index, bridge_transactions.transaction_index),
				routed = EXCLUDED.routed,
				updated_at = now()
		`,
			r.ID,
			r.Type,
			int64(r.ChainID),
			int64(r.L2ChainID),
			int64(r.BlockNumber),
			r.BlockHash,
			int64(r.Timestamp),
			r.TxHash,
			int64(r.LogIndex),
			r.Gateway,
			r.Signer,
			r.From,
			r.To,
			r.L1Token,
			r.Amount,
			r.SequenceNumber,
			r.RetryableTicketID,
			r.Routed,
			r.ExitNum,
			r.TransactionIndex,
			ingestedAt,
		)
	}
	return s.sendBatch(ctx, batch, len(records))
}

// UpsertNetworkTotals adds per-token deltas onto the stored totals.
func (s *Store) UpsertNetworkTotals(ctx context.Context, totals []model.NetworkTotal) error {
	if len(totals) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range totals {
		batch.Queue(`
			INSERT INTO network_totals (
				chain_id, gateway, l1_token, symbol, decimals,
				total_deposited, total_withdrawn_confirmed, deposit_count, withdrawal_count, last_block,
				escrow_balance, escrow_method, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())
			ON CONFLICT (chain_id, gateway, l1_token)
			DO UPDATE SET
				symbol = EXCLUDED.symbol,
				decimals = EXCLUDED.decimals,
				total_deposited = network_totals.total_deposited + EXCLUDED.total_deposited,
				total_withdrawn_confirmed = network_totals.total_withdrawn_confirmed + EXCLUDED.total_withdrawn_confirmed,
				deposit_count = network_totals.deposit_count + EXCLUDED.deposit_count,
				withdrawal_count = network_totals.withdrawal_count + EXCLUDED.withdrawal_count,
				last_block = GREATEST(network_totals.last_block, EXCLUDED.last_block),
				escrow_balance = COALESCE(EXCLUDED.escrow_balance, network_totals.escrow_balance),
				escrow_method = CASE WHEN EXCLUDED.escrow_balance IS NULL THEN network_totals.escrow_method ELSE EXCLUDED.escrow_method END,
				updated_at = now()
		`,
			int64(t.ChainID),
			t.Gateway,
			t.L1Token,
			t.Symbol,
			int16(t.Decimals),
			t.TotalDeposited,
			t.TotalWithdrawnConfirmed,
			int64(t.DepositCount),
			int64(t.WithdrawalCount),
			int64(t.LastBlock),
			t.EscrowBalance,
			t.EscrowMethod,
		)
	}
	return s.sendBatch(ctx, batch, len(totals))
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last processed block stored under name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var last int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(last), true, nil
}

// SaveState upserts the last processed block under name.
func (s *Store) SaveState(ctx context.Context, name string, last uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_processed, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed = EXCLUDED.last_processed, updated_at = now()
	`, name, int64(last))
	return err
}
