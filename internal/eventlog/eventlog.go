// Package eventlog locates sibling logs inside a transaction receipt.
package eventlog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is the root of every "value could not be determined" error.
	ErrNotFound = errors.New("not found")
	// ErrAmbiguousOrMissingLog means zero or several logs matched a signature.
	ErrAmbiguousOrMissingLog = fmt.Errorf("%w: event log not unique in receipt", ErrNotFound)
	// ErrMissingReceipt means no receipt was supplied.
	ErrMissingReceipt = fmt.Errorf("%w: missing receipt", ErrNotFound)
)

// MatchCountError reports how many logs matched when exactly one was expected.
type MatchCountError struct {
	Event string
	Count int
}

func (e *MatchCountError) Error() string {
	return fmt.Sprintf("event count for %s is %d, expected 1", e.Event, e.Count)
}

func (e *MatchCountError) Unwrap() error {
	return ErrAmbiguousOrMissingLog
}

// Topic returns the topic0 hash of a canonical event signature.
func Topic(signature string) common.Hash {
	return crypto.Keccak256Hash([]byte(signature))
}

// EventName returns the short name of a signature, e.g. "TxToL2".
func EventName(signature string) string {
	if i := strings.IndexByte(signature, '('); i >= 0 {
		return signature[:i]
	}
	return signature
}

// CountMatches returns the number of receipt logs whose topic0 equals topic.
func CountMatches(receipt *types.Receipt, topic common.Hash) int {
	if receipt == nil {
		return 0
	}
	count := 0
	for _, log := range receipt.Logs {
		if log == nil || len(log.Topics) == 0 {
			continue
		}
		if log.Topics[0] == topic {
			count++
		}
	}
	return count
}

// FindUniqueLogData returns the data of the single log in receipt matching
// signature. Any other match count yields a *MatchCountError.
func FindUniqueLogData(receipt *types.Receipt, signature string, logger *zap.Logger) ([]byte, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if receipt == nil {
		logger.Warn("could not get tx receipt", zap.String("event", EventName(signature)))
		return nil, ErrMissingReceipt
	}

	topic := Topic(signature)
	count := 0
	var data []byte
	for _, log := range receipt.Logs {
		if log == nil || len(log.Topics) == 0 {
			continue
		}
		if log.Topics[0] != topic {
			continue
		}
		count++
		data = log.Data
	}

	if count != 1 {
		name := EventName(signature)
		logger.Warn("event count is not 1",
			zap.String("event", name),
			zap.Int("count", count),
			zap.String("tx_hash", receipt.TxHash.Hex()),
		)
		return nil, &MatchCountError{Event: name, Count: count}
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
