package nbmap

import "sync/atomic"

// Map is a lock-free concurrent hash map from K to V. See the package
// doc for usage and concurrency guarantees; see SPEC_FULL.md for the
// underlying protocol. The zero Map is not usable — construct one with
// [New].
type Map[K any, V comparable] struct {
	cur  atomic.Pointer[table[K, V]]
	next atomic.Pointer[table[K, V]] // nil: idle. promise: claimed, not yet published. else: published resize target.

	size        atomic.Int64
	changes     atomic.Uint64
	resizeCount atomic.Uint64

	hashFn   HashFunc[K]
	equalsFn EqualsFunc[K]
	freeFn   FreeFunc[K]

	// sizedKey and sizedValue are per-Map sentinel allocations. Their
	// value never matters; only their pointer identity does. Every live
	// Map owns exactly one of each, so no two Maps can mistake one
	// sentinel for another's.
	sizedKey   *K
	sizedValue *V

	// promise is the distinguished "a resize has been claimed" marker in
	// next, distinct from both nil and any real *table[K,V].
	promise *table[K, V]
}

// New constructs an empty Map. hash, equals, and free are mandatory
// capability functions (see their doc comments); New panics with
// [ErrNilCapability] if any is nil.
func New[K any, V comparable](hash HashFunc[K], equals EqualsFunc[K], free FreeFunc[K], opts Options) *Map[K, V] {
	if hash == nil || equals == nil || free == nil {
		panic(ErrNilCapability)
	}

	m := &Map[K, V]{
		hashFn:     hash,
		equalsFn:   equals,
		freeFn:     free,
		sizedKey:   new(K),
		sizedValue: new(V),
		promise:    newTable[K, V](0),
	}
	m.cur.Store(newTable[K, V](nextPowerOfTwo(opts.InitialCapacity)))
	return m
}

// Get returns the value stored under key, if any.
func (m *Map[K, V]) Get(key K) (V, bool) {
	hash := m.callHash(key)

	for {
		t := m.cur.Load()
		res := m.lookup(t, key, hash)

		switch res.outcome {
		case lookupFound:
			return *res.value, true
		case lookupAbsent:
			var zero V
			return zero, false
		default: // lookupSized
			m.helpResize(t)
		}
	}
}

// PutIf atomically updates the value stored under key and returns what
// was there before the write.
//
//   - newVal = [None] means delete the mapping.
//   - expected = [Ignore] means write unconditionally.
//   - expected = [Is](want) means write only if the current value equals
//     want ([None] for "only if absent").
//
// The returned [Optional] is always the value observed immediately
// before this call took effect (or, on a failed conditional write, the
// value that caused the mismatch) — never the value PutIf just wrote.
func (m *Map[K, V]) PutIf(key K, newVal Optional[V], expected Expected[V]) Optional[V] {
	hash := m.callHash(key)

	for {
		t := m.cur.Load()
		res := m.putIf(t, key, hash, newVal, expected, false)

		switch res.outcome {
		case putValue:
			if res.prior == nil {
				return None[V]()
			}
			return Some(*res.prior)
		default: // putSized; putDeleted never escapes the resizing=true path
			m.helpResize(t)
		}
	}
}

// Size returns the map's approximate live-entry count. Per spec §6, a
// concurrent writer racing this call can make it momentarily stale by up
// to one entry; it is exact in the absence of concurrent writers.
func (m *Map[K, V]) Size() int {
	n := m.size.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

// Stats returns a snapshot of the map's internal state for introspection
// and benchmarking; see [Stats].
func (m *Map[K, V]) Stats() Stats {
	t := m.cur.Load()
	return Stats{
		Size:        m.Size(),
		TableLength: t.length(),
		Resizes:     m.resizeCount.Load(),
	}
}

// Dispose releases every key still live in the map via the FreeFunc
// supplied to [New], and drops the map's predecessor-table chain.
//
// Dispose is not safe to call concurrently with any other Map method, or
// with another call to Dispose: it assumes exclusive ownership, matching
// the source contract that dispose runs only after every other
// reference to the map has been dropped.
func (m *Map[K, V]) Dispose() {
	t := m.cur.Load()
	t.prev = nil // drop the chain; GC reclaims anything still referenced only from here

	for i := range t.slots {
		s := &t.slots[i]

		k := s.loadKey()
		if k == nil || k == m.sizedKey {
			continue
		}
		if v := s.loadValue(); v == m.sizedValue {
			continue
		}

		m.freeKey(*k)
	}
}
