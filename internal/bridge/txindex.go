package bridge

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"bridgeScope/internal/arbitrum"
)

// LogIndexSource recovers a withdrawal's transaction index from its receipt.
type LogIndexSource interface {
	TransactionIndex(receipt *types.Receipt) (*big.Int, error)
}

// TransactionIndexFromCalldata reads the transaction index argument of an
// outbox executeTransaction call.
func TransactionIndexFromCalldata(input []byte) (*big.Int, error) {
	if len(input) < len(arbitrum.ExecuteTransactionSelector) ||
		!bytes.Equal(input[:4], arbitrum.ExecuteTransactionSelector[:]) {
		return nil, ErrSelectorMismatch
	}

	values, err := arbitrum.ExecuteTransactionHead.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: unpack executeTransaction: %v", arbitrum.ErrDecode, err)
	}
	if len(values) != len(arbitrum.ExecuteTransactionHead) {
		return nil, fmt.Errorf("%w: unexpected executeTransaction values: %d", arbitrum.ErrDecode, len(values))
	}
	index, ok := values[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: transaction index has type %T", arbitrum.ErrDecode, values[1])
	}
	return index, nil
}

// TransactionIndexFromLogs reads the transaction index from the receipt's
// unique OutBoxTransactionExecuted log.
func TransactionIndexFromLogs(receipt *types.Receipt, logger *zap.Logger) (*big.Int, error) {
	executed, err := arbitrum.GetOutBoxTransactionExecuted(receipt, logger)
	if err != nil {
		return nil, err
	}
	return executed.TransactionIndex, nil
}

type receiptLogSource struct {
	logger *zap.Logger
}

func (s receiptLogSource) TransactionIndex(receipt *types.Receipt) (*big.Int, error) {
	return TransactionIndexFromLogs(receipt, s.logger)
}

// TxIndexResolver resolves withdrawal transaction indexes, preferring
// calldata and falling back to the receipt.
type TxIndexResolver struct {
	logs   LogIndexSource
	logger *zap.Logger
}

// NewTxIndexResolver returns a resolver whose fallback scans receipt logs.
func NewTxIndexResolver(logger *zap.Logger) *TxIndexResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return NewTxIndexResolverWithSource(receiptLogSource{logger: logger}, logger)
}

// NewTxIndexResolverWithSource returns a resolver with a custom fallback.
func NewTxIndexResolverWithSource(logs LogIndexSource, logger *zap.Logger) *TxIndexResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TxIndexResolver{logs: logs, logger: logger}
}

// Resolve returns the outbox transaction index of a withdrawal. Calldata sent
// through a multicall or proxy does not carry the executeTransaction
// selector, in which case the receipt is scanned instead.
func (r *TxIndexResolver) Resolve(calldata []byte, receipt *types.Receipt) (*big.Int, error) {
	index, err := TransactionIndexFromCalldata(calldata)
	if err == nil {
		return index, nil
	}
	r.logger.Debug("calldata did not yield transaction index",
		zap.String("selector", selectorHex(calldata)),
		zap.Error(err),
	)

	index, logErr := r.logs.TransactionIndex(receipt)
	if logErr != nil {
		return nil, fmt.Errorf("resolve transaction index: calldata: %w; receipt: %w", err, logErr)
	}
	return index, nil
}

func selectorHex(calldata []byte) string {
	if len(calldata) > 4 {
		calldata = calldata[:4]
	}
	return hexutil.Encode(calldata)
}
