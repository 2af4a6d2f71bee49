package hamt

import "github.com/corehive/corehive/domain"

// withoutResult mirrors without()'s three-way outcome: the key
// was never present, the subtree shrank but survives, or the subtree became
// empty and should be spliced out of its parent entirely.
type withoutResult int

const (
	withoutNotFound withoutResult = iota
	withoutNewNode
	withoutEmpty
)

func without[K Key, V any](self domain.ID, fr ForeignRef, n node[K, V], shift uint, hash int32, key K, mutid uint64) (node[K, V], withoutResult, error) {
	if n == nil {
		return nil, withoutNotFound, nil
	}
	switch nn := n.(type) {
	case *bitmapNode[K, V]:
		return withoutBitmap[K, V](self, fr, nn, shift, hash, key, mutid)
	case *arrayNode[K, V]:
		return withoutArray[K, V](self, fr, nn, shift, hash, key, mutid)
	case *collisionNode[K, V]:
		return withoutCollision[K, V](self, fr, nn, shift, hash, key, mutid)
	default:
		return nil, withoutNotFound, ErrInternal
	}
}

func withoutBitmap[K Key, V any](self domain.ID, fr ForeignRef, n *bitmapNode[K, V], shift uint, hash int32, key K, mutid uint64) (node[K, V], withoutResult, error) {
	bit := bitpos(hash, shift)
	if n.bitmap&bit == 0 {
		return n, withoutNotFound, nil
	}
	idx := bitindex(n.bitmap, bit)
	slot := n.slots[idx]

	if slot.hasKey {
		eq, err := keysEqual(key, slot.key)
		if err != nil {
			return nil, withoutNotFound, err
		}
		if !eq {
			return n, withoutNotFound, nil
		}
		if bitcount(n.bitmap) == 1 {
			return nil, withoutEmpty, nil
		}
		return spliceBitmapSlot[K, V](self, fr, n, idx, bit, mutid)
	}

	childResult, outcome, err := without[K, V](self, fr, slot.child, shift+bitsPerLevel, hash, key, mutid)
	if err != nil {
		return nil, withoutNotFound, err
	}
	switch outcome {
	case withoutNotFound:
		return n, withoutNotFound, nil
	case withoutEmpty:
		if bitcount(n.bitmap) == 1 {
			return nil, withoutEmpty, nil
		}
		return spliceBitmapSlot[K, V](self, fr, n, idx, bit, mutid)
	default: // withoutNewNode
		if isLocal[K, V](n, self, mutid) {
			if err := releaseChild[K, V](self, fr, slot.child); err != nil {
				return nil, withoutNotFound, err
			}
			n.slots[idx].child = childResult
			return n, withoutNewNode, nil
		}
		clone, err := cloneBitmap[K, V](self, fr, n, mutid)
		if err != nil {
			return nil, withoutNotFound, err
		}
		if err := releaseChild[K, V](self, fr, clone.slots[idx].child); err != nil {
			return nil, withoutNotFound, err
		}
		clone.slots[idx].child = childResult
		return clone, withoutNewNode, nil
	}
}

// spliceBitmapSlot removes slot idx from n. Called only when at least one
// other bit remains set in n.bitmap, so the result is always a smaller
// bitmap node, never empty.
func spliceBitmapSlot[K Key, V any](self domain.ID, fr ForeignRef, n *bitmapNode[K, V], idx uint32, bit uint32, mutid uint64) (node[K, V], withoutResult, error) {
	if isLocal[K, V](n, self, mutid) {
		n.slots = append(n.slots[:idx], n.slots[idx+1:]...)
		n.bitmap &^= bit
		return n, withoutNewNode, nil
	}
	newSlots := make([]bitmapSlot[K, V], 0, len(n.slots)-1)
	newSlots = append(newSlots, n.slots[:idx]...)
	newSlots = append(newSlots, n.slots[idx+1:]...)
	clone := &bitmapNode[K, V]{header: newHeader(self, mutid), bitmap: n.bitmap &^ bit, slots: newSlots}
	for _, s := range clone.slots {
		if !s.hasKey {
			if err := retainChild[K, V](self, fr, s.child); err != nil {
				return nil, withoutNotFound, err
			}
		}
	}
	return clone, withoutNewNode, nil
}

func withoutArray[K Key, V any](self domain.ID, fr ForeignRef, n *arrayNode[K, V], shift uint, hash int32, key K, mutid uint64) (node[K, V], withoutResult, error) {
	idx := maskHash(hash, shift)
	child := n.children[idx]
	if child == nil {
		return n, withoutNotFound, nil
	}

	childResult, outcome, err := without[K, V](self, fr, child, shift+bitsPerLevel, hash, key, mutid)
	if err != nil {
		return nil, withoutNotFound, err
	}
	if outcome == withoutNotFound {
		return n, withoutNotFound, nil
	}

	if outcome == withoutEmpty && n.count-1 <= 8 {
		return demoteToBitmap[K, V](self, fr, n, idx, mutid)
	}

	if isLocal[K, V](n, self, mutid) {
		if err := releaseChild[K, V](self, fr, child); err != nil {
			return nil, withoutNotFound, err
		}
		if outcome == withoutEmpty {
			n.children[idx] = nil
			n.count--
		} else {
			n.children[idx] = childResult
		}
		return n, withoutNewNode, nil
	}

	clone, err := cloneArray[K, V](self, fr, n, mutid)
	if err != nil {
		return nil, withoutNotFound, err
	}
	if err := releaseChild[K, V](self, fr, clone.children[idx]); err != nil {
		return nil, withoutNotFound, err
	}
	if outcome == withoutEmpty {
		clone.children[idx] = nil
		clone.count--
	} else {
		clone.children[idx] = childResult
	}
	return clone, withoutNewNode, nil
}

// demoteToBitmap converts an array node that has dropped to 8 or fewer
// children back into its denser bitmap representation (the inverse of
// promoteToArray), removing idx's entry in the process.
func demoteToBitmap[K Key, V any](self domain.ID, fr ForeignRef, n *arrayNode[K, V], removeIdx uint32, mutid uint64) (node[K, V], withoutResult, error) {
	var bitmap uint32
	var slots []bitmapSlot[K, V]
	for i, c := range n.children {
		if uint32(i) == removeIdx || c == nil {
			continue
		}
		bitmap |= uint32(1) << uint(i)
		slots = append(slots, bitmapSlot[K, V]{hasKey: false, child: c})
		if err := retainChild[K, V](self, fr, c); err != nil {
			return nil, withoutNotFound, err
		}
	}
	if len(slots) == 0 {
		return nil, withoutEmpty, nil
	}
	return &bitmapNode[K, V]{header: newHeader(self, mutid), bitmap: bitmap, slots: slots}, withoutNewNode, nil
}

func withoutCollision[K Key, V any](self domain.ID, fr ForeignRef, n *collisionNode[K, V], shift uint, hash int32, key K, mutid uint64) (node[K, V], withoutResult, error) {
	if hash != n.hash {
		return n, withoutNotFound, nil
	}
	foundAt := -1
	for i, k := range n.keys {
		eq, err := keysEqual(key, k)
		if err != nil {
			return nil, withoutNotFound, err
		}
		if eq {
			foundAt = i
			break
		}
	}
	if foundAt < 0 {
		return n, withoutNotFound, nil
	}
	if len(n.keys) <= 2 {
		// invariant 3: a collision node always holds at least 2 pairs, so
		// dropping one below that threshold leaves exactly one survivor,
		// which is inlined into a single-slot bitmap node rather than
		// vanishing along with the pair that was actually removed.
		survivor := 1 - foundAt
		leaf := newBitmapNode[K, V](self, bitpos(hash, shift), 1, mutid)
		leaf.slots[0] = bitmapSlot[K, V]{hasKey: true, key: n.keys[survivor], val: n.vals[survivor]}
		return leaf, withoutNewNode, nil
	}
	if isLocal[K, V](n, self, mutid) {
		n.keys = append(n.keys[:foundAt], n.keys[foundAt+1:]...)
		n.vals = append(n.vals[:foundAt], n.vals[foundAt+1:]...)
		return n, withoutNewNode, nil
	}
	clone := newCollisionNode[K, V](self, n.hash, len(n.keys)-1, mutid)
	for i := range n.keys {
		if i == foundAt {
			continue
		}
		clone.keys = append(clone.keys, n.keys[i])
		clone.vals = append(clone.vals, n.vals[i])
	}
	return clone, withoutNewNode, nil
}
