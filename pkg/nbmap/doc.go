// Package nbmap provides a lock-free concurrent hash map.
//
// nbmap is a fixed-floor, growable hash map for arbitrary keys owned by the
// map and opaque, caller-owned values. Multiple goroutines may call Get and
// PutIf concurrently without ever holding a global lock; the table grows
// transparently, via a cooperative resize that any caller can help drive,
// once linear probing crosses a reprobe bound.
//
// # Basic Usage
//
//	m := nbmap.New[string, string](
//	    func(k string) uint32 { return uint32(xxhash.Sum64String(k)) },
//	    func(a, b string) bool { return a == b },
//	    func(string) {},
//	    nbmap.Options{},
//	)
//
//	m.PutIf("hello", nbmap.Some("bye"), nbmap.Ignore[string]())
//	v, ok := m.Get("hello") // "bye", true
//
//	m.PutIf("hello", nbmap.None[string](), nbmap.Ignore[string]()) // delete
//
// # Concurrency
//
// nbmap uses a multi-reader, multi-writer model:
//   - Get and PutIf are safe for unlimited concurrent use from any number
//     of goroutines; no caller-visible lock is ever held.
//   - A PutIf that observes the table mid-resize transparently helps finish
//     the resize before retrying on the promoted table. This means a single
//     call can do much more work than one slot update, but it always
//     returns.
//   - Size is lock-free and may run concurrently with everything else; it
//     can momentarily under- or over-count during heavy churn (see
//     [Map.Size]).
//
// # Error Handling
//
// Get, PutIf, and Size return no error: every failure mode internal to the
// structure (a slot mid-resize, a lost CAS race, a lost resize promise) is
// a retry, never surfaced to the caller. The only panics this package
// raises are programming errors: a nil capability function passed to [New],
// or a panic escaping a caller-supplied [HashFunc], [EqualsFunc], or
// [FreeFunc] (wrapped in [ErrKeyCapabilityPanic] and re-raised, since a
// broken capability makes the whole structure's invariants unsound).
// Beyond those, a broken internal protocol invariant detected during a
// resize (a failed mandatory CAS, a conditional mismatch or an exhausted
// reprobe limit while copying) panics with a message beginning
// "nbmap: fatal:".
package nbmap
