// Package bridge reconstructs retryable ticket IDs of deposits and outbox
// transaction indexes of withdrawals from receipts and calldata.
package bridge

import (
	"fmt"

	"bridgeScope/internal/eventlog"
)

// ErrNotFound is the root of every error returned by this package.
var ErrNotFound = eventlog.ErrNotFound

var (
	// ErrSelectorMismatch means calldata does not call executeTransaction.
	ErrSelectorMismatch = fmt.Errorf("%w: method selector mismatch", ErrNotFound)
	// ErrIncompleteFieldSet means one of the events a ticket ID is built from
	// was not uniquely present in the receipt.
	ErrIncompleteFieldSet = fmt.Errorf("%w: incomplete retryable field set", ErrNotFound)
	// ErrUnsupportedChain means no L2 chain ID is known for a network.
	ErrUnsupportedChain = fmt.Errorf("%w: unsupported chain", ErrNotFound)
)
