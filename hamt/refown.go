package hamt

import (
	"github.com/corehive/corehive/cmn/debug"
	"github.com/corehive/corehive/domain"
)

// ForeignRef is installed on a Map/Mutation by a cross-domain caller (the
// hub/worker/adopt layer) that knows how to reach another domain's ref
// queue. isIncrement distinguishes a retain from a release; owner is the
// node's owning domain, which is always different from the local domain
// when this hook fires (invariant 1: a foreign node's lifetime is only
// ever extended or shortened by scheduling on its owner's ref queue).
type ForeignRef func(owner domain.ID, n Retainable, isIncrement bool) error

// retainChild bumps n's refcount: directly, if n is locally owned, or via
// the foreign-ref hook otherwise. A nil hook with a foreign node is treated
// as an internal-error condition rather than silently corrupting the count.
func retainChild[K Key, V any](self domain.ID, fr ForeignRef, n node[K, V]) error {
	if n == nil {
		return nil
	}
	if n.Owner() == self {
		n.Retain()
		return nil
	}
	if fr == nil {
		debug.Assert(false, "retaining a foreign node without a ForeignRef route")
		return ErrInternal
	}
	return fr(n.Owner(), n, true)
}

func releaseChild[K Key, V any](self domain.ID, fr ForeignRef, n node[K, V]) error {
	if n == nil {
		return nil
	}
	if n.Owner() == self {
		n.Release()
		return nil
	}
	if fr == nil {
		debug.Assert(false, "releasing a foreign node without a ForeignRef route")
		return ErrInternal
	}
	return fr(n.Owner(), n, false)
}
