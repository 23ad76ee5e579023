// Package merge reconciles partial or untrusted JSON payloads into a
// known-shape target without changing that shape.
package merge

import (
	"reflect"
)

// MaxDepth is the deepest nesting SafeMerge and Clone descend into.
const MaxDepth = 20

type kind int

const (
	kindNull kind = iota
	kindBool
	kindNumber
	kindString
	kindArray
	kindObject
	kindOther
)

// SafeMerge returns a copy of target with values from source applied.
//
// Only keys already present in target are considered, so source can never add
// keys at any level. A nil or missing source value keeps the target value.
// Objects are merged recursively. A source array replaces a target array only
// when either is empty or their first elements have the same JSON kind.
// Scalars overwrite scalars. Anything else keeps the target value.
//
// A cycle in source or nesting deeper than MaxDepth leaves the target subtree
// at that point unchanged. Subtrees that were not changed are shared with
// target; target itself is never modified.
func SafeMerge(target, source map[string]any) map[string]any {
	m := newWalker()
	return m.mergeObject(target, source, 0)
}

type nodeID struct {
	ptr uintptr
	n   int
	arr bool
}

// walker carries the per-call visited set. Nodes are removed on the way back
// up, so only a node already on the current path counts as a cycle.
type walker struct {
	onPath map[nodeID]struct{}
	cut    bool
}

func newWalker() *walker {
	return &walker{onPath: make(map[nodeID]struct{})}
}

func (w *walker) push(v any) (nodeID, bool) {
	var id nodeID
	switch x := v.(type) {
	case map[string]any:
		if x == nil {
			return id, true
		}
		id = nodeID{ptr: reflect.ValueOf(x).Pointer()}
	case []any:
		if len(x) == 0 {
			return id, true
		}
		id = nodeID{ptr: reflect.ValueOf(x).Pointer(), n: len(x), arr: true}
	default:
		return id, true
	}
	if _, seen := w.onPath[id]; seen {
		return id, false
	}
	w.onPath[id] = struct{}{}
	return id, true
}

func (w *walker) pop(id nodeID) {
	delete(w.onPath, id)
}

func (w *walker) mergeObject(target, source map[string]any, depth int) map[string]any {
	if target == nil || source == nil || depth > MaxDepth {
		return target
	}
	id, ok := w.push(source)
	if !ok {
		return target
	}
	defer w.pop(id)

	out := make(map[string]any, len(target))
	for k, tv := range target {
		sv, present := source[k]
		if !present || sv == nil {
			out[k] = tv
			continue
		}
		out[k] = w.mergeValue(tv, sv, depth+1)
	}
	return out
}

func (w *walker) mergeValue(tv, sv any, depth int) any {
	switch t := tv.(type) {
	case map[string]any:
		s, ok := sv.(map[string]any)
		if !ok {
			return tv
		}
		return w.mergeObject(t, s, depth)

	case []any:
		s, ok := sv.([]any)
		if !ok || !compatibleArrays(t, s) {
			return tv
		}
		w.cut = false
		c := w.clone(s, depth)
		if w.cut {
			return tv
		}
		return c

	default:
		switch kindOf(sv) {
		case kindBool, kindNumber, kindString:
			return sv
		default:
			return tv
		}
	}
}

func compatibleArrays(target, source []any) bool {
	if len(target) == 0 || len(source) == 0 {
		return true
	}
	return kindOf(target[0]) == kindOf(source[0])
}

// Clone returns a deep copy of m's maps and slices. Subtrees that repeat a
// node on their own path or sit deeper than MaxDepth are replaced by nil.
func Clone(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	w := newWalker()
	out, _ := w.clone(m, 0).(map[string]any)
	return out
}

func (w *walker) clone(v any, depth int) any {
	if depth > MaxDepth {
		w.cut = true
		return nil
	}
	switch x := v.(type) {
	case map[string]any:
		if x == nil {
			return x
		}
		id, ok := w.push(x)
		if !ok {
			w.cut = true
			return nil
		}
		defer w.pop(id)
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = w.clone(e, depth+1)
		}
		return out

	case []any:
		if x == nil {
			return x
		}
		id, ok := w.push(x)
		if !ok {
			w.cut = true
			return nil
		}
		defer w.pop(id)
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = w.clone(e, depth+1)
		}
		return out

	default:
		return v
	}
}

func kindOf(v any) kind {
	switch v.(type) {
	case nil:
		return kindNull
	case bool:
		return kindBool
	case string:
		return kindString
	case map[string]any:
		return kindObject
	case []any:
		return kindArray
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return kindNumber
	case reflect.String:
		// json.Number and other named string types.
		if rv.Type().Name() == "Number" {
			return kindNumber
		}
		return kindString
	case reflect.Bool:
		return kindBool
	case reflect.Map:
		return kindObject
	case reflect.Slice, reflect.Array:
		return kindArray
	default:
		return kindOther
	}
}
