// Package nbhash provides ready-made [nbmap.HashFunc] implementations for
// the key types most nbmap callers reach for first: strings and byte
// slices. Both are thin wrappers over xxhash, folded down to the 32-bit
// width nbmap's slots store.
package nbhash

import "github.com/cespare/xxhash/v2"

// String hashes a string key with xxhash64, folded down to 32 bits.
// Folding (rather than truncating) mixes the high bits into the result
// so collisions aren't concentrated on keys that differ only in their
// upper 32 hash bits.
func String(s string) uint32 {
	return fold(xxhash.Sum64String(s))
}

// Bytes hashes a []byte key with xxhash64, folded down to 32 bits.
func Bytes(b []byte) uint32 {
	return fold(xxhash.Sum64(b))
}

func fold(h uint64) uint32 {
	return uint32(h) ^ uint32(h>>32)
}
