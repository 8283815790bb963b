// Package derive contains the pure read-side transformations over committed
// store state: project groupings, variant-by-family maps, locus list
// enrichment, field composition for family detail views, and project
// overview aggregates. Everything here is synchronous and side-effect free;
// enrichment returns copies rather than mutating its inputs.
package derive

import (
	"reflect"
	"sync"
)

// Memo caches the output of a single derivation keyed on the identity of its
// input collection. Maps and slices are compared by underlying pointer, so a
// wholesale replacement of the source collection invalidates the cache while
// repeated calls against the same collection return the previously computed
// output without recomputing.
type Memo[In any, Out any] struct {
	mu      sync.Mutex
	compute func(In) Out

	valid bool
	key   uintptr
	out   Out
}

// NewMemo wraps compute with an identity-keyed cache.
func NewMemo[In any, Out any](compute func(In) Out) *Memo[In, Out] {
	return &Memo[In, Out]{compute: compute}
}

// Get returns the cached output when in is identical to the previous input,
// recomputing otherwise.
func (m *Memo[In, Out]) Get(in In) Out {
	key := identity(in)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.valid && key != 0 && key == m.key {
		return m.out
	}
	m.out = m.compute(in)
	m.key = key
	m.valid = key != 0
	return m.out
}

// Invalidate drops the cached output.
func (m *Memo[In, Out]) Invalidate() {
	m.mu.Lock()
	m.valid = false
	m.mu.Unlock()
}

// Memo2 caches a derivation over two input collections, keyed on the
// identity pair. Either input being replaced invalidates the cache.
type Memo2[A any, B any, Out any] struct {
	mu      sync.Mutex
	compute func(A, B) Out

	valid bool
	keyA  uintptr
	keyB  uintptr
	out   Out
}

// NewMemo2 wraps compute with an identity-pair cache.
func NewMemo2[A any, B any, Out any](compute func(A, B) Out) *Memo2[A, B, Out] {
	return &Memo2[A, B, Out]{compute: compute}
}

// Get returns the cached output when both inputs are identical to the
// previous call, recomputing otherwise.
func (m *Memo2[A, B, Out]) Get(a A, b B) Out {
	keyA := identity(a)
	keyB := identity(b)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.valid && keyA != 0 && keyA == m.keyA && keyB != 0 && keyB == m.keyB {
		return m.out
	}
	m.out = m.compute(a, b)
	m.keyA = keyA
	m.keyB = keyB
	m.valid = keyA != 0 && keyB != 0
	return m.out
}

// identity returns a comparable token for the input's underlying storage.
// Maps, slices, and pointers compare by data pointer; anything else yields 0
// and is never cached.
func identity(v any) uintptr {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.UnsafePointer, reflect.Chan, reflect.Func:
		return rv.Pointer()
	default:
		return 0
	}
}
