package nbmap

import "time"

// beginResize is the entry point used by putIf when it exhausts
// reprobeLimit on the current table (spec §4.1.2 step 6). It always
// returns SIZED: the caller retries on whatever table m.cur points to
// once the resize (by this goroutine or whoever actually wins it) has
// progressed.
func (m *Map[K, V]) beginResize(old *table[K, V]) putResult[V] {
	m.attemptResize(old)
	return putResult[V]{outcome: putSized}
}

// attemptResize tries to become the resize winner for old (spec §4.2
// steps 1-3). A losing goroutine returns immediately without waiting —
// that's the caller's job via helpResize, which loops until it observes
// the winner's table.
func (m *Map[K, V]) attemptResize(old *table[K, V]) {
	if !m.next.CompareAndSwap(nil, m.promise) {
		return
	}
	if m.cur.Load() != old {
		m.next.CompareAndSwap(m.promise, nil)
		return
	}

	newT := newTable[K, V](m.chooseNewLength(old))

	// Reuse old's block counters for the copy phase (spec §4.2 step 5).
	// The reset is required: unless old is the map's first table, its
	// counters were already advanced by the zero phase of the resize that
	// created it.
	old.btodo.Store(0)
	old.bdone.Store(0)

	m.next.Store(newT) // publish: promise -> real table

	m.runZeroAndCopy(old, newT)
	m.finishResize(old, newT)
}

// helpResize is called by any goroutine that observed SIZED on observed.
// It cooperates on the zero/copy work in progress (or, if none is
// visible yet, starts one) and does not return until observed has been
// superseded as the map's current table (spec §4.2 "helpers").
func (m *Map[K, V]) helpResize(observed *table[K, V]) {
	for {
		if m.cur.Load() != observed {
			return
		}

		next := m.next.Load()
		switch next {
		case nil:
			// Late promise: no resize is visibly underway. Try to start
			// one; whether we win or lose the race, the next iteration
			// will observe a real table (or, if we also lose the
			// cur-still-old check, loop and try again).
			m.attemptResize(observed)
		case m.promise:
			yield()
		default:
			m.runZeroAndCopy(observed, next)
			for m.cur.Load() == observed {
				yield()
			}
			return
		}
	}
}

// finishResize is run by the resize winner alone, once every goroutine
// (winner and helpers) has finished the zero/copy phases. It links old
// into newT's predecessor chain, sweeps anything past the grace interval,
// then promotes newT to current and clears the promise (spec §4.2 steps
// 8-9).
func (m *Map[K, V]) finishResize(old, newT *table[K, V]) {
	newT.prev = old
	old.markRetired(time.Now())
	sweepChain(newT)

	if !m.cur.CompareAndSwap(old, newT) {
		panic("nbmap: fatal: current-table promotion CAS failed")
	}
	if !m.next.CompareAndSwap(newT, nil) {
		panic("nbmap: fatal: next-table clear CAS failed")
	}

	m.changes.Store(0)
	m.resizeCount.Add(1)
}

// chooseNewLength implements spec §4.2 step 4's compact-or-double
// heuristic: a table with many tombstones and low live occupancy is
// rebuilt into a fresh table of the same length to reclaim space instead
// of growing.
func (m *Map[K, V]) chooseNewLength(t *table[K, V]) int {
	n := t.length()
	changes := m.changes.Load()
	size := m.Size()

	if changes > uint64(n/4) && float64(size)/float64(n) < 0.3 {
		return n
	}
	return n * 2
}

// runZeroAndCopy drives both cooperative phases of a resize: zeroing the
// new table, then copying old's live contents into it. It is shared by
// the resize winner and every helper; the block-claiming protocol (spec
// §4.2 "Block claiming") makes it safe for any number of goroutines to
// call this concurrently for the same (old, newT) pair.
func (m *Map[K, V]) runZeroAndCopy(old, newT *table[K, V]) {
	m.runBlocks(newT, newT.blockCount(), func(start, end int) {
		zeroRange(newT, start, end)
	})

	m.runBlocks(old, old.blockCount(), func(start, end int) {
		m.copyRange(old, newT, start, end)
	})
}

// runBlocks claims and processes fixed-size blocks of work against
// owner's counters until none remain, then waits at the barrier for
// every block (including ones other goroutines claimed) to finish. No
// caller proceeds past runBlocks until the entire phase is complete.
func (m *Map[K, V]) runBlocks(owner *table[K, V], blockCount uint64, work func(start, end int)) {
	length := owner.length()

	for {
		idx := owner.btodo.Add(1) - 1
		if idx >= blockCount {
			break
		}

		start := int(idx) * blockSize
		end := start + blockSize
		if end > length {
			end = length
		}

		work(start, end)
		owner.bdone.Add(1)
	}

	for owner.bdone.Load() < blockCount {
		yield()
	}
}

// zeroRange fills [start,end) of t with FREE slots (spec §4.2 "Zeroing a
// block"). A freshly allocated table is already zero-valued, so this
// never observes anything but FREE slots in practice; it exists so the
// zero phase is a real, literal pass over memory rather than a no-op,
// matching the protocol's documented shape.
func zeroRange[K any, V any](t *table[K, V], start, end int) {
	for i := start; i < end; i++ {
		s := &t.slots[i]
		s.key.Store(nil)
		s.hash.Store(0)
		s.value.Store(nil)
	}
}

// copyRange migrates [start,end) of old into newT (spec §4.2 "Copying a
// block"). Block ownership guarantees no two goroutines ever process the
// same index concurrently, so the only races this needs to resolve are
// against ordinary readers/writers still operating on old.
func (m *Map[K, V]) copyRange(old, newT *table[K, V], start, end int) {
	for i := start; i < end; i++ {
		m.copySlot(newT, &old.slots[i])
	}
}

func (m *Map[K, V]) copySlot(newT *table[K, V], s *slot[K, V]) {
	for {
		k := s.loadKey()

		if k == nil {
			if s.casKey(nil, m.sizedKey) {
				return
			}
			continue // someone claimed it concurrently; re-read and retry
		}

		if k == m.sizedKey {
			// Already retired by a previous pass; nothing left to do.
			// (Not expected under single-owner block claiming, kept as a
			// defensive terminal case.)
			return
		}

		vOld := s.loadValue()
		if vOld == m.sizedValue {
			return
		}
		if !s.casValue(vOld, m.sizedValue) {
			continue // lost a race with a concurrent writer; re-read value
		}

		hash := s.waitHash()

		var moving Optional[V]
		if vOld != nil {
			moving = Some(*vOld)
		}

		res := m.putIf(newT, *k, hash, moving, Ignore[V](), true)
		if res.outcome == putDeleted {
			s.casKey(k, m.sizedKey)
			m.freeKey(*k)
		}
		return
	}
}
