package nbmap

import (
	"sync/atomic"
	"time"
)

// blockSize is the granularity of cooperative resize work-stealing
// (spec Glossary: BLOCK_SIZE).
const blockSize = 8192

// initialCapacity is the baseline table length (spec §3: "length ...
// power of two, >= initial capacity 4").
const initialCapacity = 4

// table is one generation of the backing slot array.
type table[K any, V any] struct {
	slots []slot[K, V]

	// btodo/bdone drive the cooperative zero/copy block-claiming protocol
	// during a resize rooted at this table (spec §4.2 Block claiming).
	// Both are reset to 0 by the resize winner before publishing the
	// table that replaces this one.
	btodo atomic.Uint64
	bdone atomic.Uint64

	// prev links to the table this one superseded, for delayed
	// reclamation (spec §3, §5).
	prev *table[K, V]

	// retiredAt is set once, by the resize winner, when this table is
	// linked into its successor's predecessor chain. Zero means "still
	// current or not yet retired."
	retiredAt atomic.Int64 // unix nanoseconds
}

// newTable allocates a table of the given length. Per spec §4.2 step 5,
// a freshly allocated table's slots start zero-valued, which for a
// slot[K,V] is already (nil key, hash 0, nil value) == FREE — so no
// explicit zeroing pass is needed for a brand-new table. This
// implementation always allocates fresh and never reuses an array in
// place; the resize protocol's zero phase (zeroRange) still makes a
// literal pass over every new table it allocates.
func newTable[K any, V any](length int) *table[K, V] {
	return &table[K, V]{slots: make([]slot[K, V], length)}
}

func (t *table[K, V]) length() int { return len(t.slots) }

func (t *table[K, V]) blockCount() uint64 {
	n := uint64(t.length())
	return (n + blockSize - 1) / blockSize
}

// nextPowerOfTwo rounds n up to a power of two, with a floor of
// initialCapacity.
func nextPowerOfTwo(n int) int {
	p := initialCapacity
	for p < n {
		p <<= 1
	}
	return p
}

// markRetired stamps the table with the current wall-clock time, making it
// eligible for sweeping once graceInterval has elapsed (spec §4.2 step 8,
// §5 Table reclamation).
func (t *table[K, V]) markRetired(now time.Time) {
	t.retiredAt.Store(now.UnixNano())
}
