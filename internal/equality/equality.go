// Package equality provides the structural comparison used for dirty-state
// tracking. DeepEqual is total: cycles and excessive depth resolve to
// "not equal" instead of panicking or looping, so a form is reported dirty
// rather than silently discarding edits.
package equality

import (
	"reflect"
)

// MaxDepth is the deepest nesting DeepEqual will descend into.
const MaxDepth = 20

// identity keys a reference node. Slices need length and type as well because
// a sub-slice shares its backing array's address.
type identity struct {
	ptr uintptr
	typ reflect.Type
	n   int
}

type comparer struct {
	seenA map[identity]struct{}
	seenB map[identity]struct{}
}

// DeepEqual reports whether a and b are structurally equal JSON-like values.
// Slice order matters; map key order does not. Values of different dynamic
// types are never equal.
func DeepEqual(a, b any) bool {
	c := comparer{
		seenA: make(map[identity]struct{}),
		seenB: make(map[identity]struct{}),
	}
	return c.equal(reflect.ValueOf(a), reflect.ValueOf(b), 0)
}

func (c *comparer) equal(a, b reflect.Value, depth int) bool {
	if depth > MaxDepth {
		return false
	}

	a, b = unwrap(a), unwrap(b)
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}
	if sameReference(a, b) {
		return bounded(a, depth, make(map[identity]struct{}))
	}

	switch a.Kind() {
	case reflect.Map:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		if !c.enter(a, b) {
			return false
		}
		if a.Len() != b.Len() {
			return false
		}
		iter := a.MapRange()
		for iter.Next() {
			bv := b.MapIndex(iter.Key())
			if !bv.IsValid() {
				return false
			}
			if !c.equal(iter.Value(), bv, depth+1) {
				return false
			}
		}
		return true

	case reflect.Slice:
		if a.IsNil() || b.IsNil() {
			return a.Len() == b.Len()
		}
		if a.Len() != b.Len() {
			return false
		}
		if !c.enter(a, b) {
			return false
		}
		return c.equalElems(a, b, depth)

	case reflect.Array:
		return c.equalElems(a, b, depth)

	case reflect.Ptr:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		if !c.enter(a, b) {
			return false
		}
		return c.equal(a.Elem(), b.Elem(), depth+1)

	case reflect.Struct:
		for i := range a.NumField() {
			if !c.equal(a.Field(i), b.Field(i), depth+1) {
				return false
			}
		}
		return true

	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return false

	default:
		return scalarEqual(a, b)
	}
}

func (c *comparer) equalElems(a, b reflect.Value, depth int) bool {
	for i := range a.Len() {
		if !c.equal(a.Index(i), b.Index(i), depth+1) {
			return false
		}
	}
	return true
}

// enter records both nodes as visited. It returns false if either side was
// already visited in this call, which is how cycles are cut.
func (c *comparer) enter(a, b reflect.Value) bool {
	ia, okA := identityOf(a)
	ib, okB := identityOf(b)
	if okA {
		if _, seen := c.seenA[ia]; seen {
			return false
		}
		c.seenA[ia] = struct{}{}
	}
	if okB {
		if _, seen := c.seenB[ib]; seen {
			return false
		}
		c.seenB[ib] = struct{}{}
	}
	return true
}

func identityOf(v reflect.Value) (identity, bool) {
	switch v.Kind() {
	case reflect.Map, reflect.Ptr:
		if v.IsNil() {
			return identity{}, false
		}
		return identity{ptr: v.Pointer(), typ: v.Type()}, true
	case reflect.Slice:
		// Empty slices may all share the runtime's zero-size base address.
		if v.Len() == 0 {
			return identity{}, false
		}
		return identity{ptr: v.Pointer(), typ: v.Type(), n: v.Len()}, true
	default:
		return identity{}, false
	}
}

// bounded reports whether v is acyclic and fits under MaxDepth starting at
// depth. A shared reference is only equal to itself when this holds.
func bounded(v reflect.Value, depth int, onPath map[identity]struct{}) bool {
	if depth > MaxDepth {
		return false
	}
	v = unwrap(v)
	if !v.IsValid() {
		return true
	}

	id, tracked := identityOf(v)
	if tracked {
		if _, seen := onPath[id]; seen {
			return false
		}
		onPath[id] = struct{}{}
		defer delete(onPath, id)
	}

	switch v.Kind() {
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if !bounded(iter.Value(), depth+1, onPath) {
				return false
			}
		}
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			if !bounded(v.Index(i), depth+1, onPath) {
				return false
			}
		}
	case reflect.Ptr:
		if !v.IsNil() {
			return bounded(v.Elem(), depth+1, onPath)
		}
	case reflect.Struct:
		for i := range v.NumField() {
			if !bounded(v.Field(i), depth+1, onPath) {
				return false
			}
		}
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return false
	}
	return true
}

// sameReference is the identity short-circuit.
func sameReference(a, b reflect.Value) bool {
	ia, okA := identityOf(a)
	ib, okB := identityOf(b)
	return okA && okB && ia == ib
}

// unwrap strips interface layers so map[string]any values compare by their
// dynamic type.
func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func scalarEqual(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Bool:
		return a.Bool() == b.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() == b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() == b.Uint()
	case reflect.Float32, reflect.Float64:
		return a.Float() == b.Float()
	case reflect.Complex64, reflect.Complex128:
		return a.Complex() == b.Complex()
	case reflect.String:
		return a.String() == b.String()
	default:
		return false
	}
}
