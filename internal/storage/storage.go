package storage

import (
	"context"

	"bridgeScope/internal/model"
)

// Storage is a sink for bridge transaction records.
type Storage interface {
	PutBatch(ctx context.Context, records []model.BridgeTransaction) error
}

// ErrorSink records gateway logs whose identifiers could not be derived.
type ErrorSink interface {
	PutErrors(ctx context.Context, errs []model.ResolveError) error
}
