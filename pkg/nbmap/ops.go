package nbmap

import (
	"fmt"
	"runtime"
)

// reprobeLimit is the maximum linear probe distance a writer tolerates
// before triggering a resize (spec Glossary: REPROBE_LIMIT).
const reprobeLimit = 17

type lookupOutcome uint8

const (
	lookupAbsent lookupOutcome = iota
	lookupFound
	lookupSized
)

type lookupResult[V any] struct {
	outcome lookupOutcome
	value   *V
}

// lookup implements spec §4.1.1: a single-table probe that never touches
// the resize plane. All hash comparisons happen before any key-equality
// call, and equality is only invoked on a hash match.
func (m *Map[K, V]) lookup(t *table[K, V], key K, hash uint32) lookupResult[V] {
	n := t.length()
	idx := int(hash) & (n - 1)

	for range n {
		s := &t.slots[idx]

		k := s.loadKey()
		if k == nil {
			return lookupResult[V]{outcome: lookupAbsent}
		}
		if k == m.sizedKey {
			return lookupResult[V]{outcome: lookupSized}
		}

		if s.waitHash() == hash && m.callEquals(*k, key) {
			v := s.loadValue()
			if v == m.sizedValue {
				return lookupResult[V]{outcome: lookupSized}
			}
			if v == nil {
				return lookupResult[V]{outcome: lookupAbsent}
			}
			return lookupResult[V]{outcome: lookupFound, value: v}
		}

		idx = (idx + 1) & (n - 1)
	}

	return lookupResult[V]{outcome: lookupAbsent}
}

type putOutcome uint8

const (
	putValue putOutcome = iota
	putSized
	putDeleted
)

type putResult[V any] struct {
	outcome putOutcome
	prior   *V // meaningful when outcome == putValue; nil means the prior value was absent
}

// isDeleteAbsentCase reports whether this PutIf call is a delete of a key
// that, per the caller's own precondition, isn't expected to exist — spec
// §4.1.2 Phase A step 2.
func isDeleteAbsentCase[V any](newVal Optional[V], expected Expected[V]) bool {
	if _, present := newVal.Get(); present {
		return false
	}
	if expected.mode == expectIgnore {
		return true
	}
	_, wantPresent := expected.opt.Get()
	return !wantPresent
}

// matchesExpected reports whether current (nil meaning absent) satisfies
// expected.
func matchesExpected[V comparable](expected Expected[V], current *V) bool {
	if expected.mode == expectIgnore {
		return true
	}
	want, wantOk := expected.opt.Get()
	if current == nil {
		return !wantOk
	}
	return wantOk && *current == want
}

// putIf implements spec §4.1.2 on a single table. resizing distinguishes
// the resize copy path (called from copySlot) from a caller-facing write:
// on the resizing path, a conditional mismatch or a mandatory-CAS failure
// is a fatal protocol violation (spec §7), not a normal retry outcome.
func (m *Map[K, V]) putIf(t *table[K, V], key K, hash uint32, newVal Optional[V], expected Expected[V], resizing bool) putResult[V] {
	n := t.length()
	idx := int(hash) & (n - 1)
	reprobes := 0

	for {
		s := &t.slots[idx]
		k := s.loadKey()

		if k == nil {
			if isDeleteAbsentCase(newVal, expected) {
				if resizing {
					return putResult[V]{outcome: putDeleted}
				}
				s.casKey(nil, nil) // confirmation CAS; always a no-op, keeps ordering explicit
				m.freeKey(key)
				return putResult[V]{outcome: putValue, prior: nil}
			}

			keyCopy := key
			if s.casKey(nil, &keyCopy) {
				s.publishHash(hash)
				return m.putIfPhaseB(t, s, key, newVal, expected, resizing, false)
			}
			continue // lost the claim race; re-read this same slot
		}

		if k == m.sizedKey {
			return putResult[V]{outcome: putSized}
		}

		if s.waitHash() == hash && m.callEquals(*k, key) {
			return m.putIfPhaseB(t, s, key, newVal, expected, resizing, true)
		}

		idx = (idx + 1) & (n - 1)
		reprobes++

		if reprobes >= reprobeLimit {
			if resizing {
				panic("nbmap: fatal: reprobe limit exhausted copying into a freshly sized table")
			}
			return m.beginResize(t)
		}
	}
}

// putIfPhaseB implements spec §4.1.2 Phase B: updating the value of a
// slot whose key has already been resolved (either freshly claimed or
// matched as a duplicate). dupKey indicates the caller's key copy must be
// freed once the write lands, because an equal key is already stored.
func (m *Map[K, V]) putIfPhaseB(t *table[K, V], s *slot[K, V], key K, newVal Optional[V], expected Expected[V], resizing bool, dupKey bool) putResult[V] {
	v := s.loadValue()
	if v == m.sizedValue {
		return putResult[V]{outcome: putSized}
	}

	if !resizing && (m.next.Load() != nil || m.cur.Load() != t) {
		return putResult[V]{outcome: putSized}
	}

	var newBox *V
	if nv, ok := newVal.Get(); ok {
		newBox = &nv
	}

	for {
		if !matchesExpected(expected, v) {
			if resizing {
				panic("nbmap: fatal: conditional mismatch while copying during resize")
			}
			return putResult[V]{outcome: putValue, prior: v}
		}

		if s.casValue(v, newBox) {
			if !resizing {
				switch {
				case v == nil && newBox != nil:
					m.size.Add(1)
				case v != nil && newBox == nil:
					m.size.Add(-1)
				}
				m.changes.Add(1)
			}
			if dupKey {
				m.freeKey(key)
			}
			return putResult[V]{outcome: putValue, prior: v}
		}

		v = s.loadValue()
		if v == m.sizedValue {
			return putResult[V]{outcome: putSized}
		}
	}
}

// callHash invokes the caller-supplied HashFunc, remapping a 0 result to 1
// (spec §4.3: "computes hash (remap 0 to 1)"), and converts any panic
// inside the capability into ErrKeyCapabilityPanic.
func (m *Map[K, V]) callHash(key K) (h uint32) {
	defer func() {
		if r := recover(); r != nil {
			panic(fmt.Errorf("%w: %v", ErrKeyCapabilityPanic, r))
		}
	}()

	h = m.hashFn(key)
	if h == 0 {
		h = 1
	}
	return h
}

func (m *Map[K, V]) callEquals(a, b K) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			panic(fmt.Errorf("%w: %v", ErrKeyCapabilityPanic, r))
		}
	}()
	return m.equalsFn(a, b)
}

func (m *Map[K, V]) freeKey(key K) {
	defer func() {
		if r := recover(); r != nil {
			panic(fmt.Errorf("%w: %v", ErrKeyCapabilityPanic, r))
		}
	}()
	m.freeFn(key)
}

// yield relinquishes one time-slice. Every unbounded wait in this package
// (hash publication, resize promise, block barrier, promotion) goes
// through this single choke point so the cooperative-yield contract in
// spec §5 has one place to document and, if ever needed, replace with
// adaptive backoff.
func yield() { runtime.Gosched() }
