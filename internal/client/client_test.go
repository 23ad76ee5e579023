package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/apierrors"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/auth"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/client"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/metrics"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/retry"
)

// delayRecorder stands in for the backoff sleeper.
type delayRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (d *delayRecorder) sleep(ctx context.Context, dur time.Duration) error {
	d.mu.Lock()
	d.delays = append(d.delays, dur)
	d.mu.Unlock()
	return ctx.Err()
}

func (d *delayRecorder) recorded() []time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Duration(nil), d.delays...)
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...client.Option) (*client.Client, *delayRecorder) {
	t.Helper()

	rec := &delayRecorder{}
	c := client.New(srv.URL, opts...)
	c.SetSleep(rec.sleep)
	return c, rec
}

func TestGet_RetriesTransientFailuresThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var attempts []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts = append(attempts, r.Header.Get("X-Retry-Attempt"))
		mu.Unlock()
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"b1","name":"Acme Plumbing"}`))
	}))
	defer srv.Close()

	c, rec := newTestClient(t, srv)
	resp, err := c.Get(context.Background(), "/api/businesses/b1")
	require.NoError(t, err)

	var got struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, resp.Decode(&got))
	assert.Equal(t, "Acme Plumbing", got.Name)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{1000 * time.Millisecond, 2000 * time.Millisecond}, rec.recorded())
	assert.Equal(t, []string{"", "1", "2"}, attempts)
	assert.True(t, c.Health().Snapshot().Healthy)
}

func TestGet_ExhaustedRetriesRejectWithOriginalError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"worker queue unavailable"}`))
	}))
	defer srv.Close()

	c, rec := newTestClient(t, srv)
	_, err := c.Get(context.Background(), "/api/jobs/j1")
	require.Error(t, err)

	var httpErr *apierrors.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.Equal(t, "worker queue unavailable", httpErr.Message)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.Equal(t, int32(retry.MaxRetries+1), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, rec.recorded())
	assert.True(t, c.Health().Snapshot().LastChecked.IsZero(), "HTTP errors do not touch health")
}

func TestPost_TerminalErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"Validation failed","details":["keyword is required"]}`))
	}))
	defer srv.Close()

	c, rec := newTestClient(t, srv)
	c.Health().MarkUnhealthy()
	before := c.Health().Snapshot()

	_, err := c.Post(context.Background(), "/api/businesses/b1/keywords", map[string]string{"keyword": ""})
	require.Error(t, err)

	code, ok := apierrors.StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, rec.recorded())
	assert.Equal(t, before, c.Health().Snapshot())
}

func TestRequest_AttachesHeadersAndBody(t *testing.T) {
	t.Parallel()

	type seen struct {
		auth, contentType, requestID, query, method string
		body                                        map[string]any
	}
	got := make(chan seen, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		got <- seen{
			auth:        r.Header.Get("Authorization"),
			contentType: r.Header.Get("Content-Type"),
			requestID:   r.Header.Get(client.RequestIDHeader),
			query:       r.URL.RawQuery,
			method:      r.Method,
			body:        body,
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, client.WithTokenSource(auth.WithFallback(nil, "static-token")))
	_, err := c.Put(context.Background(), "/api/businesses/b1",
		map[string]any{"name": "Acme"},
		client.WithQuery(url.Values{"language": {"es"}}),
	)
	require.NoError(t, err)

	s := <-got
	assert.Equal(t, http.MethodPut, s.method)
	assert.Equal(t, "Bearer static-token", s.auth)
	assert.Equal(t, "application/json", s.contentType)
	assert.NotEmpty(t, s.requestID)
	assert.Equal(t, "language=es", s.query)
	assert.Equal(t, "Acme", s.body["name"])
}

func TestRequest_DynamicTokenWinsOverStatic(t *testing.T) {
	t.Parallel()

	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	dynamic := auth.TokenFunc(func(context.Context) (string, error) { return "session", nil })
	c, _ := newTestClient(t, srv, client.WithTokenSource(auth.WithFallback(dynamic, "static")))

	_, err := c.Delete(context.Background(), "/api/businesses/b1/keywords/k1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer session", <-got)
}

func TestRequest_NetworkFailureMarksUnhealthy(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	c, rec := newTestClient(t, srv)
	srv.Close()

	_, err := c.Get(context.Background(), "/api/businesses")
	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.NotErrorIs(t, err, client.ErrAborted)
	assert.Len(t, rec.recorded(), retry.MaxRetries)
	assert.False(t, c.IsHealthy())
}

func TestRequest_AbortIsDistinct(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	c, rec := newTestClient(t, srv)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := c.Get(ctx, "/api/businesses/b1/keywords", client.WithQuery(url.Values{"search": {"plumb"}}))
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrAborted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, rec.recorded())
	assert.True(t, c.Health().Snapshot().LastChecked.IsZero())
}

func TestRequest_ConcurrentRetryCountersAreIndependent(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	hits := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		n := hits[r.URL.Path]
		mu.Unlock()
		if r.URL.Path == "/api/flaky" && n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, path := range []string{"/api/flaky", "/api/steady"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.Get(context.Background(), path)
		}()
	}
	wg.Wait()

	require.NoError(t, errors.Join(errs...))
	assert.Equal(t, 2, hits["/api/flaky"])
	assert.Equal(t, 1, hits["/api/steady"])
}

func TestRequest_RecordsMetrics(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := metrics.New(prometheus.NewRegistry())
	c, _ := newTestClient(t, srv, client.WithMetrics(m))

	_, err := c.Get(context.Background(), "/api/businesses")
	require.NoError(t, err)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Retries.WithLabelValues(http.MethodGet)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Requests.WithLabelValues(http.MethodGet, "ok")), 0)
}

func TestPost_UnencodableBodyIsTerminal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("request must not be sent")
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	_, err := c.Post(context.Background(), "/api/businesses", map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	assert.False(t, retry.IsRetryable(err))
}
