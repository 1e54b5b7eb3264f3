package repository

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"swapmart/pkg/errors"
)

const (
	readRetryAttempts = 3
	readRetryBaseWait = 100 * time.Millisecond
)

// withReadRetry reruns an idempotent read on transient store errors with a
// bounded linear backoff. Writes never go through here; their retry stops at
// commit uncertainty.
func withReadRetry(ctx context.Context, read func() error) error {
	var err error
	for attempt := 1; attempt <= readRetryAttempts; attempt++ {
		err = read()
		if err == nil || !transient(err) {
			return err
		}
		select {
		case <-time.After(time.Duration(attempt) * readRetryBaseWait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func transient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	}
	return false
}

// mapStoreError folds a raw Firestore error into the service taxonomy.
// iterator.Done and codes.NotFound are handled at call sites where the
// resource name is known.
func mapStoreError(message string, err error) error {
	if transient(err) {
		return errors.StoreUnavailable(message, err)
	}
	return errors.Internal(message, err)
}
