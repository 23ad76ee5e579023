// Package retry implements the request retry policy: transient failures are
// re-attempted with linear backoff, and the attempt number travels on the
// request's own context so concurrent requests never share a counter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

const (
	// MaxRetries is how many times a retryable failure is re-attempted.
	MaxRetries = 3
	// BaseDelay is the backoff unit; retry n waits BaseDelay*n.
	BaseDelay = 1000 * time.Millisecond
)

// ErrExhausted marks a retryable failure that ran out of attempts. The
// original failure stays in the chain.
var ErrExhausted = errors.New("retries exhausted")

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config configures Do.
type Config struct {
	MaxRetries  int
	BaseDelay   time.Duration
	IsRetryable func(error) bool
	Sleep       SleepFunc
	// OnRetry is called before each backoff wait with the upcoming attempt number.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultConfig returns the fixed dashboard policy: 3 retries, 1s/2s/3s.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  MaxRetries,
		BaseDelay:   BaseDelay,
		IsRetryable: IsRetryable,
		Sleep:       Sleep,
	}
}

// Delay returns the wait before retry number attempt (1-based).
func (c Config) Delay(attempt int) time.Duration {
	return c.BaseDelay * time.Duration(attempt)
}

// Sleep waits for d, returning early with ctx.Err() if ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type attemptKey struct{}

// WithAttempt returns a context carrying the retry counter.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptKey{}, attempt)
}

// AttemptFrom returns the retry counter on ctx; zero for a first attempt.
func AttemptFrom(ctx context.Context) int {
	if n, ok := ctx.Value(attemptKey{}).(int); ok {
		return n
	}
	return 0
}

// Do runs fn until it succeeds, fails terminally, or exhausts the retry budget.
// fn receives a context whose AttemptFrom value is the current retry count.
// Context cancellation is returned unwrapped and never retried.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = BaseDelay
	}
	if cfg.IsRetryable == nil {
		cfg.IsRetryable = IsRetryable
	}
	if cfg.Sleep == nil {
		cfg.Sleep = Sleep
	}

	attemptCtx := WithAttempt(ctx, 0)
	for {
		err := fn(attemptCtx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !cfg.IsRetryable(err) {
			return err
		}

		attempt := AttemptFrom(attemptCtx)
		if attempt >= cfg.MaxRetries {
			return fmt.Errorf("%w after %d retries: %w", ErrExhausted, attempt, err)
		}

		attempt++
		delay := cfg.Delay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, delay, err)
		}
		if sleepErr := cfg.Sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
		attemptCtx = WithAttempt(ctx, attempt)
	}
}

// StatusError is returned by transports for responses whose status alone
// decides retryability.
type StatusError interface {
	error
	HTTPStatus() int
}

// retryableStatuses are the statuses worth re-sending unchanged.
var retryableStatuses = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsRetryableStatus reports whether code is in the retryable status set.
func IsRetryableStatus(code int) bool {
	return retryableStatuses[code]
}

// IsRetryable classifies err: network-class failures and retryable statuses
// are transient, everything else is terminal. Cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr StatusError
	if errors.As(err, &statusErr) {
		return IsRetryableStatus(statusErr.HTTPStatus())
	}
	return IsNetworkError(err)
}

// networkPatterns catch transport errors that arrive without a typed cause.
var networkPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"client.timeout exceeded",
	"deadline exceeded",
	"temporary failure",
	"unexpected eof",
}

// IsNetworkError reports whether err means the server could not be reached
// or the connection dropped before a response arrived.
func IsNetworkError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr StatusError
	if errors.As(err, &statusErr) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range networkPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
