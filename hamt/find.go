package hamt

import "github.com/corehive/corehive/domain"

// findResult distinguishes "not present" from the two found cases a
// cross-domain caller needs told apart: a value that lives in a node the
// caller already owns, versus one reached through a foreign (another
// domain's) node, which adoption rules (package adopt) treat differently.
type findResult int

const (
	findNotFound findResult = iota
	findLocal
	findForeign
)

func find[K Key, V any](self domain.ID, n node[K, V], shift uint, hash int32, key K) (V, findResult, error) {
	var zero V
	if n == nil {
		return zero, findNotFound, nil
	}
	switch nn := n.(type) {
	case *bitmapNode[K, V]:
		bit := bitpos(hash, shift)
		if nn.bitmap&bit == 0 {
			return zero, findNotFound, nil
		}
		idx := bitindex(nn.bitmap, bit)
		slot := nn.slots[idx]
		if !slot.hasKey {
			return find[K, V](self, slot.child, shift+bitsPerLevel, hash, key)
		}
		eq, err := keysEqual(key, slot.key)
		if err != nil {
			return zero, findNotFound, err
		}
		if !eq {
			return zero, findNotFound, nil
		}
		return slot.val, owner(nn, self), nil

	case *arrayNode[K, V]:
		idx := maskHash(hash, shift)
		child := nn.children[idx]
		return find[K, V](self, child, shift+bitsPerLevel, hash, key)

	case *collisionNode[K, V]:
		if hash != nn.hash {
			return zero, findNotFound, nil
		}
		for i, k := range nn.keys {
			eq, err := keysEqual(key, k)
			if err != nil {
				return zero, findNotFound, err
			}
			if eq {
				return nn.vals[i], owner(nn, self), nil
			}
		}
		return zero, findNotFound, nil

	default:
		return zero, findNotFound, ErrInternal
	}
}

func owner[K Key, V any](n node[K, V], self domain.ID) findResult {
	if n.Owner() == self {
		return findLocal
	}
	return findForeign
}
