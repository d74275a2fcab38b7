package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-custody-ledger/internal/store"
	"github.com/sethvargo/go-retry"
)

const (
	retryBaseDelay = 5 * time.Millisecond
	retryMaxDelay  = 250 * time.Millisecond
)

// retryOnConflict runs fn until it succeeds, fails with an error other than
// a lost compare-and-set, or attempts retries are used up. fn must re-read
// the state it decides on.
func retryOnConflict(ctx context.Context, attempts uint64, fn func(ctx context.Context) error) error {
	backoff := retry.NewExponential(retryBaseDelay)
	backoff = retry.WithCappedDuration(retryMaxDelay, backoff)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithMaxRetries(attempts, backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if isConflict(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if isConflict(err) {
		return fmt.Errorf("%w: %w", ErrConcurrentModification, err)
	}
	return err
}

func isConflict(err error) bool {
	return errors.Is(err, store.ErrTipConflict) || errors.Is(err, store.ErrVersionConflict)
}
