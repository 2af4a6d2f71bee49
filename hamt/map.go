// Package hamt implements the persistent hash-array-mapped trie shared
// read-only across domains: bitmap, array, and collision nodes with
// structural sharing, plus a transient mutation-batch mode for cheap
// in-place updates that stay invisible outside the batch that made them.
package hamt

import (
	"github.com/corehive/corehive/domain"
	"github.com/pkg/errors"
)

// Map is an immutable (outside an open Mutation) persistent associative
// structure over (K, V) pairs. The zero Map is not valid; use New.
type Map[K Key, V any] struct {
	owner domain.ID
	root  node[K, V]
	count int
	fr    ForeignRef
}

// New returns an empty Map owned by self. fr may be nil if this Map will
// never hold references into another domain's nodes.
func New[K Key, V any](self domain.ID, fr ForeignRef) *Map[K, V] {
	return &Map[K, V]{owner: self, fr: fr}
}

func (m *Map[K, V]) Len() int { return m.count }

// Get returns the value for key, reporting ErrNoSuchKey if absent.
func (m *Map[K, V]) Get(key K) (V, error) {
	var zero V
	hash, err := mapHash(key)
	if err != nil {
		return zero, err
	}
	val, res, err := find[K, V](m.owner, m.root, 0, hash, key)
	if err != nil {
		return zero, err
	}
	if res == findNotFound {
		return zero, errors.WithMessagef(ErrNoSuchKey, "key %v", key)
	}
	return val, nil
}

// Contains reports whether key is present. An absent key is (false, nil);
// hash/equality failures are returned as errors, as from Get.
func (m *Map[K, V]) Contains(key K) (bool, error) {
	_, err := m.Get(key)
	if err != nil {
		if errors.Is(err, ErrNoSuchKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Foreign reports whether key resolves to a value owned by a domain other
// than this Map's own — the case adoption (package adopt) must handle
// specially before handing the value back across a domain boundary.
func (m *Map[K, V]) Foreign(key K) (bool, error) {
	hash, err := mapHash(key)
	if err != nil {
		return false, err
	}
	_, res, err := find[K, V](m.owner, m.root, 0, hash, key)
	if err != nil {
		return false, err
	}
	return res == findForeign, nil
}

// Assoc returns a new Map with key bound to val, sharing every unaffected
// node with the receiver (persistent update — mutid 0 means "always clone").
func (m *Map[K, V]) Assoc(key K, val V) (*Map[K, V], error) {
	hash, err := mapHash(key)
	if err != nil {
		return nil, err
	}
	newRoot, added, err := assoc[K, V](m.owner, m.fr, m.root, 0, hash, key, val, 0)
	if err != nil {
		return nil, err
	}
	count := m.count
	if added {
		count++
	}
	return &Map[K, V]{owner: m.owner, root: newRoot, count: count, fr: m.fr}, nil
}

// Without returns a new Map with key removed, or the receiver itself
// (structurally shared, not copied) if key was absent.
func (m *Map[K, V]) Without(key K) (*Map[K, V], error) {
	hash, err := mapHash(key)
	if err != nil {
		return nil, err
	}
	newRoot, outcome, err := without[K, V](m.owner, m.fr, m.root, 0, hash, key, 0)
	if err != nil {
		return nil, err
	}
	if outcome == withoutNotFound {
		return m, nil
	}
	count := m.count - 1
	if outcome == withoutEmpty {
		newRoot = nil
		count = 0
	}
	return &Map[K, V]{owner: m.owner, root: newRoot, count: count, fr: m.fr}, nil
}

// Iter returns a fresh single-pass iterator over the Map's pairs.
func (m *Map[K, V]) Iter() *Iter[K, V] { return newIter[K, V](m.root) }

// Keys collects every key via Iter; order is unspecified.
func (m *Map[K, V]) Keys() []K {
	out := make([]K, 0, m.count)
	it := m.Iter()
	for {
		k, _, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, k)
	}
	return out
}

// Values collects every value via Iter; order is unspecified.
func (m *Map[K, V]) Values() []V {
	out := make([]V, 0, m.count)
	it := m.Iter()
	for {
		_, v, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

// Equal reports structural equality: same key set, equal values pairwise.
// eq compares two values for equality (the Map has no a-priori notion of V
// equality beyond what the caller supplies).
func (m *Map[K, V]) Equal(other *Map[K, V], eq func(a, b V) bool) (bool, error) {
	if m.count != other.count {
		return false, nil
	}
	it := m.Iter()
	for {
		k, v, ok := it.Next()
		if !ok {
			break
		}
		ov, err := other.Get(k)
		if err != nil {
			if errors.Is(err, ErrNoSuchKey) {
				return false, nil
			}
			return false, err
		}
		if !eq(v, ov) {
			return false, nil
		}
	}
	return true, nil
}

// Hash folds every (key, value) pair into an order-independent structural
// hash via XOR-accumulation, so two Maps that are Equal always Hash equal
// regardless of insertion order. hv hashes a single value.
func (m *Map[K, V]) Hash(hv func(V) (uint64, error)) (uint64, error) {
	var acc uint64
	it := m.Iter()
	for {
		k, v, ok := it.Next()
		if !ok {
			break
		}
		kh, err := k.HashCode()
		if err != nil {
			return 0, errors.Wrap(ErrHashFailure, err.Error())
		}
		vh, err := hv(v)
		if err != nil {
			return 0, errors.Wrap(ErrHashFailure, err.Error())
		}
		acc ^= kh*31 + vh
	}
	return acc, nil
}
