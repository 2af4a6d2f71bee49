package adopt

import "github.com/corehive/corehive/hamt"

// MapAdopter builds the asymmetric Descriptor a proxied Map needs:
//
//   - ToWorker shares the hub's Map by reference: since a Map handed to a
//     worker is never mutated through that reference (only the hub's own
//     Mutation batches touch hub-owned nodes), no copy is needed — the
//     worker's ref queue gains an entry so the hub knows not to free nodes
//     the worker still points at.
//   - ToHub must deep-copy: a worker's Map may still be subject to that
//     worker's own in-place Mutation batches, so the hub cannot safely
//     alias it — it walks the Map and rebuilds an equivalent hub-owned one.
type MapAdopter[K hamt.Key, V any] struct {
	// Retain, if set, is called with the hub-owned Map being shared
	// ToWorker, letting the caller schedule the ref-queue entry that keeps
	// the hub from freeing it out from under the worker.
	Retain func(*hamt.Map[K, V])
	// ReownValue adapts one leaf value during a ToHub deep copy (e.g.
	// recursively Adopting it); nil means "copy the value as-is".
	ReownValue func(v V, dir Direction) (V, error)
}

// Descriptor returns the adopt.Descriptor this type pair installs via
// adopt.Register for every concrete (K, V) instantiation in use. empty
// constructs an empty Map owned by the receiving domain to copy into.
func (a MapAdopter[K, V]) Descriptor(empty func() *hamt.Map[K, V]) Descriptor {
	return Descriptor{
		ToWorker: func(v any) (any, error) {
			m := v.(*hamt.Map[K, V])
			if a.Retain != nil {
				a.Retain(m)
			}
			return m, nil
		},
		ToHub: func(v any) (any, error) {
			m := v.(*hamt.Map[K, V])
			out := empty()
			it := m.Iter()
			for {
				k, val, ok := it.Next()
				if !ok {
					break
				}
				nv := val
				if a.ReownValue != nil {
					var err error
					nv, err = a.ReownValue(val, ToHub)
					if err != nil {
						return nil, err
					}
				}
				next, err := out.Assoc(k, nv)
				if err != nil {
					return nil, err
				}
				out = next
			}
			return out, nil
		},
	}
}
