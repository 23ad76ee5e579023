// Package batch runs bulk creates from pasted text.
//
// A run parses the input, caps it, drops duplicates against a fresh snapshot
// of what the server already has, and then creates the remaining records one
// at a time. A failing item never stops the run. The failed items can be
// rendered back into text so the user retries only those.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/client"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/logger"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/metrics"
)

// MaxItems is the most parsed items one run accepts.
const MaxItems = 100

var (
	// ErrTooManyItems is returned before any create when the input holds more
	// than MaxItems items.
	ErrTooManyItems = errors.New("too many items")
	// ErrEmptyInput is returned when no line could be parsed.
	ErrEmptyInput = errors.New("no valid items")
)

// Part is one server record an item produces. A bilingual item has two.
type Part struct {
	// Key identifies the record for deduplication, e.g. "en|plumber".
	Key    string
	Create func(ctx context.Context) error
}

// Config wires an Engine for one entity type.
type Config[T any] struct {
	// Entity labels logs and metrics, e.g. "keywords".
	Entity string
	// Parse turns one non-blank line into an item. ok=false marks the line malformed.
	Parse func(line string) (item T, ok bool)
	// Split returns the records an item creates, in creation order.
	Split func(item T) []Part
	// Format renders an item back into one line of retry text.
	Format func(item T) string
	// Existing returns the keys already on the server. Optional.
	Existing func(ctx context.Context) ([]string, error)
	// Limiter paces create calls. Optional.
	Limiter *rate.Limiter
	Logger  logger.Logger
	Metrics *metrics.Metrics
}

// Engine runs batches for one entity type.
type Engine[T any] struct {
	cfg Config[T]
	log logger.Logger
}

// New returns an Engine. Parse, Split and Format are required.
func New[T any](cfg Config[T]) *Engine[T] {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine[T]{cfg: cfg, log: log.With(logger.String("entity", cfg.Entity))}
}

// keyState tracks what a run knows about a dedupe key.
type keyState int

const (
	keyQueued keyState = iota + 1 // an earlier line in this paste claimed it
	keyExists                     // on the server, before or during this run
)

// Run processes raw. Partial failure is reported in the Outcome, not as an
// error. Setup problems (empty input, too many items) return an error and no
// Outcome. If ctx is cancelled mid-run the items not yet attempted are added
// to Failed and the Outcome is returned together with client.ErrAborted.
func (e *Engine[T]) Run(ctx context.Context, raw string) (*Outcome[T], error) {
	start := time.Now()
	out := &Outcome[T]{format: e.cfg.Format}

	items := e.parse(raw, out)
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: %w (%d malformed lines)", e.cfg.Entity, ErrEmptyInput, out.Malformed)
	}
	if len(items) > MaxItems {
		return nil, fmt.Errorf("%s: %w: got %d, limit is %d", e.cfg.Entity, ErrTooManyItems, len(items), MaxItems)
	}

	keys := e.existing(ctx)

	var runErr error
	for i, item := range items {
		if ctx.Err() != nil {
			runErr = e.abort(out, items[i:], ctx.Err())
			break
		}

		parts := e.cfg.Split(item)
		if isDuplicate(parts, keys) {
			out.Duplicates = append(out.Duplicates, item)
			continue
		}

		err := e.createParts(ctx, parts, keys)
		if err == nil {
			out.Succeeded = append(out.Succeeded, item)
			continue
		}
		out.Failed = append(out.Failed, Failure[T]{Item: item, Err: err})
		if isAbort(ctx, err) {
			runErr = e.abort(out, items[i+1:], err)
			break
		}
		e.log.Debug("Item failed", logger.String("item", e.cfg.Format(item)), logger.Error(err))
	}

	elapsed := time.Since(start)
	e.cfg.Metrics.ObserveBatch(e.cfg.Entity,
		len(out.Succeeded), len(out.Failed), len(out.Duplicates), out.Malformed, elapsed.Seconds())
	e.log.Info("Batch finished",
		logger.Int("created", len(out.Succeeded)),
		logger.Int("failed", len(out.Failed)),
		logger.Int("duplicates", len(out.Duplicates)),
		logger.Int("malformed", out.Malformed),
		logger.Duration("duration", elapsed),
	)
	return out, runErr
}

func (e *Engine[T]) parse(raw string, out *Outcome[T]) []T {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	var items []T
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		item, ok := e.cfg.Parse(line)
		if !ok {
			out.Malformed++
			continue
		}
		items = append(items, item)
	}
	return items
}

// existing loads the server-side keys. Failure is not fatal: the run goes on
// without duplicate detection against the server.
func (e *Engine[T]) existing(ctx context.Context) map[string]keyState {
	keys := make(map[string]keyState)
	if e.cfg.Existing == nil {
		return keys
	}
	found, err := e.cfg.Existing(ctx)
	if err != nil {
		e.log.Warn("Could not load existing records, skipping duplicate check", logger.Error(err))
		return keys
	}
	for _, k := range found {
		keys[k] = keyExists
	}
	return keys
}

// isDuplicate reports whether every part is already on the server or was
// claimed by an earlier line. Otherwise it claims the unknown keys.
func isDuplicate(parts []Part, keys map[string]keyState) bool {
	dup := true
	for _, p := range parts {
		if _, known := keys[p.Key]; !known {
			dup = false
		}
	}
	if dup {
		return true
	}
	for _, p := range parts {
		if _, known := keys[p.Key]; !known {
			keys[p.Key] = keyQueued
		}
	}
	return false
}

// createParts creates every part not already on the server, in order. All
// parts are attempted even if one fails, unless the run is being aborted.
func (e *Engine[T]) createParts(ctx context.Context, parts []Part, keys map[string]keyState) error {
	var errs []error
	for _, p := range parts {
		if keys[p.Key] == keyExists {
			e.log.Debug("Skipping record that already exists", logger.String("key", p.Key))
			continue
		}
		if err := e.wait(ctx); err != nil {
			errs = append(errs, err)
			break
		}
		if err := p.Create(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Key, err))
			if isAbort(ctx, err) {
				break
			}
			continue
		}
		keys[p.Key] = keyExists
	}
	return errors.Join(errs...)
}

func (e *Engine[T]) wait(ctx context.Context) error {
	if e.cfg.Limiter == nil {
		return nil
	}
	if err := e.cfg.Limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", client.ErrAborted, ctx.Err())
		}
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

// abort moves the remaining items to Failed so they survive in the retry text.
func (e *Engine[T]) abort(out *Outcome[T], rest []T, cause error) error {
	for _, item := range rest {
		out.Failed = append(out.Failed, Failure[T]{Item: item, Err: client.ErrAborted})
	}
	e.log.Warn("Batch aborted", logger.Int("unattempted", len(rest)), logger.Error(cause))
	return fmt.Errorf("%s: %w", e.cfg.Entity, client.ErrAborted)
}

func isAbort(ctx context.Context, err error) bool {
	return errors.Is(err, client.ErrAborted) || (ctx.Err() != nil && errors.Is(err, context.Canceled))
}
