package hamt

import (
	"github.com/corehive/corehive/cmn/cos"
	"github.com/corehive/corehive/cmn/debug"
	"github.com/corehive/corehive/domain"
)

type nodeKind uint8

const (
	kindBitmap nodeKind = iota
	kindArray
	kindCollision
)

// the branching factor: 32-way fan-out per node level.
const arrayNodeSize = 32

// Retainable is the minimal contract the refqueue package schedules
// operations against. Every node header satisfies it.
type Retainable interface {
	Retain()
	Release()
}

// header is the common prefix embedded in every HAMT node
// variant: the domain id of the allocating domain and (for mutable builds)
// the mutation-batch id; the node kind comes from each variant's kind()
// method. refs is the node's local
// reference count; it is only ever touched directly by the node's own
// owning domain (invariant 1) — foreign domains must route through a
// ForeignRef hook (see refown.go).
type header struct {
	owner domain.ID
	mutid uint64
	refs  cos.Int64
}

func newHeader(owner domain.ID, mutid uint64) header {
	h := header{owner: owner, mutid: mutid}
	h.refs.Store(1)
	return h
}

func (h *header) Owner() domain.ID { return h.owner }
func (h *header) Mutid() uint64    { return h.mutid }
func (h *header) RefCount() int64  { return h.refs.Load() }

func (h *header) Retain() { h.refs.Inc() }

func (h *header) Release() {
	if v := h.refs.Dec(); v < 0 {
		debug.Assert(false, "node refcount underflow")
	}
}

// node is the HAMT sum type: bitmapNode | arrayNode |
// collisionNode, all generic over the same (K, V) pair as their owning Map.
type node[K Key, V any] interface {
	Retainable
	kind() nodeKind
	Owner() domain.ID
	Mutid() uint64
}

// bitmapSlot is one of the 2N slot pairs of a bitmap node: either a (key,
// value) leaf, or a (nil-key, child) link to the next level — invariant 2.
type bitmapSlot[K Key, V any] struct {
	hasKey bool
	key    K
	val    V
	child  node[K, V]
}

type bitmapNode[K Key, V any] struct {
	header
	bitmap uint32
	slots  []bitmapSlot[K, V]
}

func (*bitmapNode[K, V]) kind() nodeKind { return kindBitmap }

func newBitmapNode[K Key, V any](owner domain.ID, bitmap uint32, nslots int, mutid uint64) *bitmapNode[K, V] {
	return &bitmapNode[K, V]{
		header: newHeader(owner, mutid),
		bitmap: bitmap,
		slots:  make([]bitmapSlot[K, V], nslots),
	}
}

// arrayNode holds up to 32 children, one per 5-bit mask value, used once a
// level would otherwise host more than 16 bitmap entries (invariant 4).
type arrayNode[K Key, V any] struct {
	header
	children [arrayNodeSize]node[K, V]
	count    int
}

func (*arrayNode[K, V]) kind() nodeKind { return kindArray }

func newArrayNode[K Key, V any](owner domain.ID, mutid uint64) *arrayNode[K, V] {
	return &arrayNode[K, V]{header: newHeader(owner, mutid)}
}

// collisionNode holds every (key, value) pair that shares one hash code,
// always at least two pairs (invariant 3).
type collisionNode[K Key, V any] struct {
	header
	hash int32
	keys []K
	vals []V
}

func (*collisionNode[K, V]) kind() nodeKind { return kindCollision }

func newCollisionNode[K Key, V any](owner domain.ID, hash int32, cap int, mutid uint64) *collisionNode[K, V] {
	return &collisionNode[K, V]{
		header: newHeader(owner, mutid),
		hash:   hash,
		keys:   make([]K, 0, cap),
		vals:   make([]V, 0, cap),
	}
}

// isLocal reports whether n may be mutated in place by a mutation batch
// owned by caller with the given mutid — invariant 5: only nodes stamped
// with the current batch id, owned by the caller's own domain, qualify.
func isLocal[K Key, V any](n node[K, V], caller domain.ID, mutid uint64) bool {
	return mutid != 0 && n.Mutid() == mutid && n.Owner() == caller
}
