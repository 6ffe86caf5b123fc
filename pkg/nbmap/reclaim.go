package nbmap

import "time"

// graceInterval is how long a retired table is kept reachable off its
// successor's predecessor chain before being swept (spec §5 Table
// reclamation). It is a wall-clock heuristic, not a proof: a goroutine
// that stalls for longer than this between reading a *table[K,V] off
// m.cur and dereferencing it can still observe a swept table. The
// protocol accepts that hazard rather than adopting epoch-based or
// hazard-pointer reclamation (see DESIGN.md).
const graceInterval = 30 * time.Second

// sweepChain walks head's predecessor chain and cuts it at the first
// table old enough to have passed graceInterval, dropping the reference
// to everything behind it so the garbage collector can reclaim it. It is
// called once per completed resize, by the resize winner only.
func sweepChain[K any, V any](head *table[K, V]) {
	now := time.Now()

	cur := head
	for cur.prev != nil {
		retiredAt := cur.prev.retiredAt.Load()
		if retiredAt != 0 && now.Sub(time.Unix(0, retiredAt)) >= graceInterval {
			cur.prev = nil
			return
		}
		cur = cur.prev
	}
}
