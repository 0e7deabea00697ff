package indexer

import (
	"context"
	"time"
)

// RetryPolicy bounds the retries of a failing RPC call. The delay doubles
// after every attempt up to MaxBackoff.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// Do runs fn until it succeeds, the retries are spent or ctx is done.
// onError sees every failed attempt.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error, onError func(attempt int, err error)) error {
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := p.Backoff
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if onError != nil {
			onError(attempt, err)
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if p.MaxBackoff > 0 && delay > p.MaxBackoff {
			delay = p.MaxBackoff
		}
	}
}
