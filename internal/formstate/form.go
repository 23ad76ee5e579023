// Package formstate holds the editable state behind a management form: it is
// hydrated from server payloads without changing shape and knows whether the
// user has unsaved edits.
package formstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/equality"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/merge"
)

var (
	// ErrUnknownField is returned by Set for a path the form does not have.
	ErrUnknownField = errors.New("unknown field")
	// ErrNotLeaf is returned by Set for a path that names a nested object.
	ErrNotLeaf = errors.New("field is an object")
)

// Form tracks the committed baseline and the working values.
type Form struct {
	mu       sync.RWMutex
	baseline map[string]any
	values   map[string]any
}

// New returns a clean form with the given shape.
func New(shape map[string]any) *Form {
	return &Form{
		baseline: merge.Clone(shape),
		values:   merge.Clone(shape),
	}
}

// FromStruct builds a form whose shape is v's JSON form.
func FromStruct(v any) (*Form, error) {
	shape, err := merge.ToMap(v)
	if err != nil {
		return nil, fmt.Errorf("form shape: %w", err)
	}
	return New(shape), nil
}

// Hydrate loads a server payload into the form. Only fields the form already
// has are taken. Unsaved edits are discarded and the form is clean afterwards.
func (f *Form) Hydrate(payload map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.baseline = merge.Clone(merge.SafeMerge(f.baseline, payload))
	f.values = merge.Clone(f.baseline)
}

// Values returns a copy of the working values.
func (f *Form) Values() map[string]any {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return merge.Clone(f.values)
}

// Get returns the working value at a dotted path such as "hours.open".
func (f *Form) Get(path string) (any, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	parent, key, ok := lookup(f.values, path)
	if !ok {
		return nil, false
	}
	v, ok := parent[key]
	return v, ok
}

// Set replaces the value at a dotted path. The path must already exist and
// must not name a nested object. value is normalized through JSON so that,
// for example, an int compares equal to the float64 a payload decodes to.
func (f *Form) Set(path string, value any) error {
	normalized, err := normalize(value)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	parent, key, ok := lookup(f.values, path)
	if !ok {
		return fmt.Errorf("set %s: %w", path, ErrUnknownField)
	}
	current, ok := parent[key]
	if !ok {
		return fmt.Errorf("set %s: %w", path, ErrUnknownField)
	}
	if _, isObject := current.(map[string]any); isObject {
		return fmt.Errorf("set %s: %w", path, ErrNotLeaf)
	}
	parent[key] = normalized
	return nil
}

// IsDirty reports whether the working values differ from the baseline.
// Values that cannot be compared safely count as dirty.
func (f *Form) IsDirty() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return !equality.DeepEqual(f.baseline, f.values)
}

// Reset discards unsaved edits.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = merge.Clone(f.baseline)
}

// Commit makes the working values the new baseline, typically after a save.
func (f *Form) Commit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.baseline = merge.Clone(f.values)
}

// Decode converts the working values into a typed struct.
func Decode[T any](f *Form) (T, error) {
	var out T
	if err := merge.Decode(f.Values(), &out); err != nil {
		return out, err
	}
	return out, nil
}

// lookup walks a dotted path and returns the map holding the last segment.
func lookup(root map[string]any, path string) (map[string]any, string, bool) {
	if path == "" {
		return nil, "", false
	}
	segments := strings.Split(path, ".")
	m := root
	for _, seg := range segments[:len(segments)-1] {
		next, ok := m[seg].(map[string]any)
		if !ok {
			return nil, "", false
		}
		m = next
	}
	return m, segments[len(segments)-1], true
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var out any
	if err = json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return out, nil
}
