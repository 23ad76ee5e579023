package retry_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/retry"
)

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) HTTPStatus() int { return int(s) }

// recordingSleep captures requested delays without waiting.
type recordingSleep struct {
	delays []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func testConfig(s *recordingSleep) retry.Config {
	cfg := retry.DefaultConfig()
	cfg.Sleep = s.sleep
	return cfg
}

func TestDo_SucceedsAfterTwoRetryableFailures(t *testing.T) {
	t.Parallel()

	s := &recordingSleep{}
	calls := 0
	var attempts []int

	err := retry.Do(context.Background(), testConfig(s), func(ctx context.Context) error {
		calls++
		attempts = append(attempts, retry.AttemptFrom(ctx))
		if calls <= 2 {
			return statusErr(http.StatusServiceUnavailable)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{0, 1, 2}, attempts)
	assert.Equal(t, []time.Duration{1000 * time.Millisecond, 2000 * time.Millisecond}, s.delays)
}

func TestDo_ExhaustionSurfacesOriginalError(t *testing.T) {
	t.Parallel()

	s := &recordingSleep{}
	original := statusErr(http.StatusBadGateway)
	calls := 0

	err := retry.Do(context.Background(), testConfig(s), func(context.Context) error {
		calls++
		return original
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.ErrorIs(t, err, original)
	assert.Equal(t, retry.MaxRetries+1, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, s.delays)
}

func TestDo_TerminalErrorNotRetried(t *testing.T) {
	t.Parallel()

	s := &recordingSleep{}
	calls := 0

	err := retry.Do(context.Background(), testConfig(s), func(context.Context) error {
		calls++
		return statusErr(http.StatusUnprocessableEntity)
	})

	require.Error(t, err)
	assert.NotErrorIs(t, err, retry.ErrExhausted)
	assert.Equal(t, 1, calls)
	assert.Empty(t, s.delays)
}

func TestDo_CancellationStopsBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := retry.DefaultConfig()
	cfg.Sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}

	err := retry.Do(ctx, cfg, func(context.Context) error {
		calls++
		return syscall.ECONNREFUSED
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_OnRetryObservesAttempts(t *testing.T) {
	t.Parallel()

	s := &recordingSleep{}
	cfg := testConfig(s)
	var seen []int
	cfg.OnRetry = func(attempt int, _ time.Duration, _ error) { seen = append(seen, attempt) }

	_ = retry.Do(context.Background(), cfg, func(context.Context) error {
		return statusErr(http.StatusTooManyRequests)
	})

	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestSleep_ReturnsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := retry.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "408", err: statusErr(http.StatusRequestTimeout), want: true},
		{name: "429", err: statusErr(http.StatusTooManyRequests), want: true},
		{name: "500", err: statusErr(http.StatusInternalServerError), want: true},
		{name: "502", err: statusErr(http.StatusBadGateway), want: true},
		{name: "503", err: statusErr(http.StatusServiceUnavailable), want: true},
		{name: "504", err: statusErr(http.StatusGatewayTimeout), want: true},
		{name: "400", err: statusErr(http.StatusBadRequest), want: false},
		{name: "404", err: statusErr(http.StatusNotFound), want: false},
		{name: "501", err: statusErr(http.StatusNotImplemented), want: false},
		{name: "connection refused", err: fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), want: true},
		{name: "connection reset", err: syscall.ECONNRESET, want: true},
		{name: "op error", err: &net.OpError{Op: "dial", Err: errors.New("no route")}, want: true},
		{name: "timeout text", err: errors.New("Client.Timeout exceeded while awaiting headers"), want: true},
		{name: "cancelled", err: fmt.Errorf("do: %w", context.Canceled), want: false},
		{name: "validation", err: errors.New("keyword is required"), want: false},
		{name: "unexpected eof text", err: errors.New("read: unexpected EOF"), want: true},
		{name: "eof inside a word", err: errors.New(`parse "/api/thereof": invalid port`), want: false},
		{name: "timeout inside a field name", err: errors.New("timeout_seconds must be positive"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, retry.IsRetryable(tt.err))
		})
	}
}

func TestAttemptFrom_DefaultsToZero(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, retry.AttemptFrom(context.Background()))
	assert.Equal(t, 2, retry.AttemptFrom(retry.WithAttempt(context.Background(), 2)))
}
