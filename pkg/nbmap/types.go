package nbmap

// HashFunc computes a hash for a key. It must be deterministic and
// reasonably collision-avoiding. A result of 0 is remapped internally to 1
// (the hash field doubles as a PARTIAL-state marker, so it must never be
// visibly 0 on a published slot).
type HashFunc[K any] func(key K) uint32

// EqualsFunc reports whether two keys are equal. It must be reflexive,
// symmetric, and consistent with the HashFunc supplied to [New]: equal keys
// must hash equal.
//
// EqualsFunc must tolerate being called with a stale key during a table
// resize: the copy path may free a tombstoned key concurrently with a
// reader's equality probe on the old table (see [Map] concurrency notes).
// The design accepts this bounded hazard window; EqualsFunc must not crash
// or corrupt memory on a stale key, though any answer it gives in that
// window is discarded by the caller.
type EqualsFunc[K any] func(a, b K) bool

// FreeFunc releases a key the Map no longer needs.
//
// It is called exactly once per key the Map takes ownership of: when a
// PutIf overwrites an existing key with an equal one (the caller's new key
// copy is freed, the stored one is kept), when a key is deleted, when a
// tombstoned key is retired during a resize copy, and for every live key
// still present at [Map.Dispose].
type FreeFunc[K any] func(key K)

// Optional represents a value that may or may not be present — nbmap's
// stand-in for the C source's ∅ sentinel, modeled as a tagged variant
// instead of a raw null pointer so the zero value of V is never confused
// with "absent."
type Optional[V any] struct {
	value V
	ok    bool
}

// Some wraps a present value.
func Some[V any](v V) Optional[V] { return Optional[V]{value: v, ok: true} }

// None represents an absent value.
func None[V any]() Optional[V] { return Optional[V]{} }

// Get returns the wrapped value and whether it was present.
func (o Optional[V]) Get() (V, bool) { return o.value, o.ok }

// expectedMode distinguishes the three disjoint things PutIf's expected
// parameter can mean. See [Ignore] and [Is].
type expectedMode uint8

const (
	expectIgnore expectedMode = iota
	expectOptional
)

// Expected encodes PutIf's conditional-write precondition: either "any
// current value is acceptable" ([Ignore]) or "the current value must equal
// this" ([Is], where the wrapped [Optional]'s absence means "must not
// currently exist").
type Expected[V any] struct {
	mode expectedMode
	opt  Optional[V]
}

// Ignore means PutIf should write unconditionally, regardless of the
// slot's current value. This is the Go-idiomatic replacement for the
// source's exported IGNORE sentinel (see package Design Notes): a distinct
// enum variant instead of a magic pointer value.
func Ignore[V any]() Expected[V] { return Expected[V]{mode: expectIgnore} }

// Is means PutIf should only write if the slot's current value equals opt
// (including opt == [None] meaning "only if absent").
func Is[V any](opt Optional[V]) Expected[V] { return Expected[V]{mode: expectOptional, opt: opt} }

// Options configures [New].
type Options struct {
	// InitialCapacity is the minimum table length. It is rounded up to
	// the next power of two, with a floor of 4 (the algorithm's baseline
	// capacity — see spec §3's Table entity). Zero means use the default.
	InitialCapacity int
}

// Stats is a read-only, lock-free snapshot of a Map's internal state.
//
// It exists purely for introspection (grafted on from the original
// source's debug-dump tooling, which spec.md §1 excludes from the core
// protocol but which every production cache in this style exposes — see
// SPEC_FULL.md §5). Reading it never touches slot contents and never
// blocks.
type Stats struct {
	// Size is the current (possibly approximate, see [Map.Size]) count of
	// live entries.
	Size int

	// TableLength is the length of the current table.
	TableLength int

	// Resizes is the cumulative number of resizes this Map has completed.
	Resizes uint64
}
