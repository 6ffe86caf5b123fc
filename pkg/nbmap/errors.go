package nbmap

import "errors"

// Sentinel errors surfaced by nbmap.
//
// These are all programming-error class: a correctly used Map never
// returns an error from its hot path (Get/PutIf/Size communicate via
// return values, not errors — see package doc). Errors here are only ever
// raised as panics: by New on a nil capability, or wrapping a panic from a
// caller-supplied capability function.
var (
	// ErrNilCapability indicates New was called with a nil hash, equals,
	// or free function.
	ErrNilCapability = errors.New("nbmap: hash, equals, and free must be non-nil")

	// ErrKeyCapabilityPanic wraps a panic recovered from a caller-supplied
	// HashFunc, EqualsFunc, or FreeFunc.
	//
	// A panicking capability leaves slot state impossible to reason about
	// (the slot may be mid-claim or mid-copy), so it is never swallowed:
	// it is wrapped and re-panicked rather than converted into a benign
	// return value.
	ErrKeyCapabilityPanic = errors.New("nbmap: panic in key capability function")
)
