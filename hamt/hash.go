package hamt

import (
	"math/bits"

	"github.com/OneOfOne/xxhash"
	"github.com/pkg/errors"
)

// Key is the contract a HAMT key must satisfy. HashCode returns the key's
// native (possibly wide) hash; Equal compares two keys for the structural
// equality the trie relies on to resolve same-slot collisions. Both may
// fail — mirroring a host object whose __hash__/__eq__ can raise — and
// those failures surface as ErrHashFailure / ErrEqualityFailure.
type Key interface {
	HashCode() (uint64, error)
	Equal(other Key) (bool, error)
}

// StringKey is a ready-made Key backed by xxhash, used by the hub/worker
// shared index (keys there are always strings).
type StringKey string

func (s StringKey) HashCode() (uint64, error) { return xxhash.ChecksumString64(string(s)), nil }

func (s StringKey) Equal(other Key) (bool, error) {
	o, ok := other.(StringKey)
	if !ok {
		return false, nil
	}
	return s == o, nil
}

const (
	bitsPerLevel = 5
	levelMask    = 0x1f
	maxDepth     = 7 // ceil(32/5)
)

// foldHash derives the 32-bit trie hash from a (possibly wider) native
// hash by xor-folding the high half into the low half.
// -1 is kept out of the result range: a folded value of exactly -1 is
// nudged to -2. Hash failures are reported as ErrHashFailure (see mapHash).
func foldHash(raw uint64) int32 {
	folded := int32(uint32(raw) ^ uint32(raw>>32))
	if folded == -1 {
		folded = -2
	}
	return folded
}

func mapHash(k Key) (int32, error) {
	raw, err := k.HashCode()
	if err != nil {
		return 0, errors.Wrap(ErrHashFailure, err.Error())
	}
	return foldHash(raw), nil
}

func keysEqual(a, b Key) (bool, error) {
	eq, err := a.Equal(b)
	if err != nil {
		return false, errors.Wrap(ErrEqualityFailure, err.Error())
	}
	return eq, nil
}

func maskHash(hash int32, shift uint) uint32 {
	return (uint32(hash) >> shift) & levelMask
}

func bitpos(hash int32, shift uint) uint32 {
	return uint32(1) << maskHash(hash, shift)
}

func bitcount(x uint32) int { return bits.OnesCount32(x) }

// bitindex returns the dense array index of the slot pair that bit occupies
// within a bitmap node's sparse array, given the node's occupancy bitmap.
func bitindex(bitmap, bit uint32) uint32 {
	return uint32(bitcount(bitmap & (bit - 1)))
}
