package client

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/logger"
)

const (
	// HealthPath is probed by CheckHealth.
	HealthPath = "/health"
	// HealthProbeTimeout bounds one probe, independent of the request timeout.
	HealthProbeTimeout = 5 * time.Second
	// HealthPollInterval is the WaitUntilHealthy polling period.
	HealthPollInterval = 2 * time.Second
)

// IsHealthy returns the cached reachability hint without doing I/O.
func (c *Client) IsHealthy() bool {
	return c.health.IsHealthy()
}

func (c *Client) logHealthChange(healthy bool) {
	if healthy {
		c.logger.Info("Dashboard API reachable again", logger.String("base_url", c.baseURL))
		return
	}
	c.logger.Warn("Dashboard API marked unreachable", logger.String("base_url", c.baseURL))
}

// CheckHealth probes GET /health outside the retry machinery and records the
// result. Concurrent callers share one in-flight probe. A caller whose context
// ends first gets false. When the last waiting caller leaves, the shared probe
// is cancelled and its result is not recorded.
func (c *Client) CheckHealth(ctx context.Context) bool {
	c.probeMu.Lock()
	c.probeWaiters++
	c.probeMu.Unlock()
	defer c.leaveProbe()

	ch := c.probes.DoChan("health", func() (any, error) {
		probeCtx, cancel := c.startProbe(ctx)
		defer c.endProbe(cancel)

		healthy := c.probe(probeCtx)
		if !healthy && errors.Is(probeCtx.Err(), context.Canceled) {
			return false, nil
		}
		if healthy {
			c.markHealthy()
		} else {
			c.markUnhealthy()
		}
		c.metrics.ObserveProbe(healthy)
		return healthy, nil
	})

	select {
	case res := <-ch:
		healthy, _ := res.Val.(bool)
		return healthy
	case <-ctx.Done():
		return false
	}
}

// startProbe derives the shared probe context. It is detached from the
// starting caller so another waiter can still use it, and cancelled by
// leaveProbe once nobody waits.
func (c *Client) startProbe(ctx context.Context) (context.Context, context.CancelFunc) {
	probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), HealthProbeTimeout)

	c.probeMu.Lock()
	defer c.probeMu.Unlock()
	if c.probeWaiters == 0 {
		cancel()
		return probeCtx, cancel
	}
	c.probeCancel = cancel
	return probeCtx, cancel
}

func (c *Client) endProbe(cancel context.CancelFunc) {
	c.probeMu.Lock()
	c.probeCancel = nil
	c.probeMu.Unlock()
	cancel()
}

func (c *Client) leaveProbe() {
	c.probeMu.Lock()
	defer c.probeMu.Unlock()
	c.probeWaiters--
	if c.probeWaiters == 0 && c.probeCancel != nil {
		c.probeCancel()
	}
}

func (c *Client) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+HealthPath, http.NoBody)
	if err != nil {
		c.logger.Error("Build health probe", logger.Error(err))
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	probeClient := &http.Client{Transport: c.httpClient.Transport, Timeout: HealthProbeTimeout}
	resp, err := probeClient.Do(req)
	if err != nil {
		c.logger.Warn("Health probe failed", logger.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Health probe returned non-200", logger.Int("status", resp.StatusCode))
		return false
	}
	return true
}

// WaitUntilHealthy probes immediately and then every HealthPollInterval until
// a probe succeeds, maxWait elapses, or ctx ends. The poll timer is always
// stopped before returning.
func (c *Client) WaitUntilHealthy(ctx context.Context, maxWait time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	if c.CheckHealth(ctx) {
		return true
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Warn("Server did not become healthy", logger.Duration("max_wait", maxWait))
			return false
		case <-ticker.C:
			if c.CheckHealth(ctx) {
				return true
			}
		}
	}
}
