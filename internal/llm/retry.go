package llm

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"
)

// RetryingCompleter retries transient completion failures with back-off.
type RetryingCompleter struct {
	next     Completer
	attempts uint
	delay    time.Duration
	logger   zerolog.Logger
}

// WithRetry wraps next so that each call is attempted up to maxRetries+1 times.
// A zero maxRetries returns next unchanged.
func WithRetry(next Completer, maxRetries uint, logger zerolog.Logger) Completer {
	if maxRetries == 0 {
		return next
	}
	return &RetryingCompleter{
		next:     next,
		attempts: maxRetries + 1,
		delay:    500 * time.Millisecond,
		logger:   logger.With().Str("component", "llm_retry").Logger(),
	}
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == 429 || statusErr.Code >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (r *RetryingCompleter) do(ctx context.Context, fn func() error) error {
	return retry.Do(
		func() error {
			err := fn()
			if err != nil && retry.IsRecoverable(err) && !IsRetryable(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Warn().Err(err).Uint("attempt", n+1).Msg("completion failed, retrying")
		}),
	)
}

func (r *RetryingCompleter) Complete(ctx context.Context, req Request) (string, error) {
	var text string
	err := r.do(ctx, func() error {
		var err error
		text, err = r.next.Complete(ctx, req)
		return err
	})
	return text, err
}

// Stream retries only while nothing has been forwarded yet; a partially
// delivered stream cannot be replayed to the caller.
func (r *RetryingCompleter) Stream(ctx context.Context, req Request, onDelta DeltaFunc) (string, error) {
	var (
		text    string
		emitted bool
	)
	tracking := func(delta string) error {
		emitted = true
		return onDelta(delta)
	}
	err := r.do(ctx, func() error {
		var err error
		text, err = r.next.Stream(ctx, req, tracking)
		if err != nil && emitted {
			return retry.Unrecoverable(err)
		}
		return err
	})
	return text, err
}
