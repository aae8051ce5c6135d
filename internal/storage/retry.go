package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Retrying wraps a Backend and retries failed reads and writes with
// exponential backoff. ErrNotStored and context errors are returned as is.
type Retrying struct {
	inner    Backend
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// WithRetry returns backend unchanged when attempts is below two.
func WithRetry(backend Backend, attempts int, backoff time.Duration, logger *slog.Logger) Backend {
	if attempts < 2 {
		return backend
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{inner: backend, attempts: attempts, backoff: backoff, logger: logger}
}

func (r *Retrying) Get(ctx context.Context, collection string) ([]byte, error) {
	var out []byte
	err := r.do(ctx, "get", collection, func() error {
		var err error
		out, err = r.inner.Get(ctx, collection)
		return err
	})
	return out, err
}

func (r *Retrying) Set(ctx context.Context, collection string, payload []byte) error {
	return r.do(ctx, "set", collection, func() error {
		return r.inner.Set(ctx, collection, payload)
	})
}

func (r *Retrying) Close() error {
	return r.inner.Close()
}

func (r *Retrying) do(ctx context.Context, op, collection string, fn func() error) error {
	wait := r.backoff
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		err = fn()
		if err == nil || errors.Is(err, ErrNotStored) || ctx.Err() != nil {
			return err
		}
		if attempt == r.attempts {
			break
		}
		r.logger.Warn("storage operation failed; retrying",
			slog.String("op", op),
			slog.String("collection", collection),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}
	return err
}
