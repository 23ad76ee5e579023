package client

import (
	"time"

	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/retry"
)

// SetSleep replaces the backoff sleeper so tests can observe delays.
func (c *Client) SetSleep(fn retry.SleepFunc) { c.sleep = fn }

// SetPollInterval shortens WaitUntilHealthy polling in tests.
func (c *Client) SetPollInterval(d time.Duration) { c.pollInterval = d }
