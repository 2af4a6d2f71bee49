package hamt

import (
	"github.com/corehive/corehive/cmn/debug"
	"github.com/corehive/corehive/cmn/mono"
	"github.com/corehive/corehive/domain"
	"github.com/pkg/errors"
)

// Mutation is the transient, in-place-updating counterpart to Map: every
// node it touches is stamped with a fresh mutation-batch id, so subsequent
// Set/Pop calls within the same batch mutate those nodes directly instead of
// cloning (invariant 5). A Mutation must be Finished exactly once; using it
// afterward returns ErrUseAfterFinalize.
type Mutation[K Key, V any] struct {
	owner domain.ID
	root  node[K, V]
	count int
	fr    ForeignRef
	mutid uint64
	done  bool
}

// Mutate opens a new Mutation batch over m's current contents. The receiver
// Map is left untouched; its structure may be shared with the batch until
// individual nodes are cloned-on-first-write within it.
func (m *Map[K, V]) Mutate() *Mutation[K, V] {
	return &Mutation[K, V]{
		owner: m.owner,
		root:  m.root,
		count: m.count,
		fr:    m.fr,
		mutid: mono.NanoTime(),
	}
}

func (mu *Mutation[K, V]) checkOpen() error {
	if mu.done {
		return errors.WithMessage(ErrUseAfterFinalize, "mutation batch already finished")
	}
	return nil
}

// Set is Assoc under the open mutation batch: nodes already stamped with
// this batch's id and owned by mu's domain are updated in place.
func (mu *Mutation[K, V]) Set(key K, val V) error {
	if err := mu.checkOpen(); err != nil {
		return err
	}
	hash, err := mapHash(key)
	if err != nil {
		return err
	}
	newRoot, added, err := assoc[K, V](mu.owner, mu.fr, mu.root, 0, hash, key, val, mu.mutid)
	if err != nil {
		return err
	}
	mu.root = newRoot
	if added {
		mu.count++
	}
	return nil
}

// Pop is Without under the open mutation batch.
func (mu *Mutation[K, V]) Pop(key K) error {
	if err := mu.checkOpen(); err != nil {
		return err
	}
	hash, err := mapHash(key)
	if err != nil {
		return err
	}
	newRoot, outcome, err := without[K, V](mu.owner, mu.fr, mu.root, 0, hash, key, mu.mutid)
	if err != nil {
		return err
	}
	if outcome == withoutNotFound {
		return nil
	}
	mu.count--
	if outcome == withoutEmpty {
		newRoot = nil
		mu.count = 0
	}
	mu.root = newRoot
	return nil
}

// Update reads the current value for key (ErrNoSuchKey if absent) and
// writes back f's result, without requiring the caller to round-trip
// through Get/Set — convenient for read-modify-write loops inside a batch.
func (mu *Mutation[K, V]) Update(key K, f func(V) (V, error)) error {
	if err := mu.checkOpen(); err != nil {
		return err
	}
	hash, err := mapHash(key)
	if err != nil {
		return err
	}
	cur, res, err := find[K, V](mu.owner, mu.root, 0, hash, key)
	if err != nil {
		return err
	}
	if res == findNotFound {
		return errors.WithMessagef(ErrNoSuchKey, "key %v", key)
	}
	next, err := f(cur)
	if err != nil {
		return err
	}
	return mu.Set(key, next)
}

// Get reads from the batch's current (possibly in-place-mutated) root, so
// reads inside a batch observe the batch's own writes.
func (mu *Mutation[K, V]) Get(key K) (V, error) {
	var zero V
	if err := mu.checkOpen(); err != nil {
		return zero, err
	}
	hash, err := mapHash(key)
	if err != nil {
		return zero, err
	}
	val, res, err := find[K, V](mu.owner, mu.root, 0, hash, key)
	if err != nil {
		return zero, err
	}
	if res == findNotFound {
		return zero, errors.WithMessagef(ErrNoSuchKey, "key %v", key)
	}
	return val, nil
}

func (mu *Mutation[K, V]) Len() int { return mu.count }

// Finish closes the batch and returns the resulting persistent Map. Every
// node stamped with this batch's id becomes immutable the instant Finish
// returns: nothing retains mu.mutid as a live "in place" ticket afterward.
func (mu *Mutation[K, V]) Finish() (*Map[K, V], error) {
	if err := mu.checkOpen(); err != nil {
		return nil, err
	}
	mu.done = true
	return &Map[K, V]{owner: mu.owner, root: mu.root, count: mu.count, fr: mu.fr}, nil
}

// Abort discards the batch without producing a Map. Any nodes mutated in
// place so far are left dangling from the batch's perspective; the
// receiver Map that Mutate() was called on remains valid and unaffected,
// since in-place writes only ever touched nodes stamped with mu's own
// mutid, never the original root's shared structure.
func (mu *Mutation[K, V]) Abort() {
	mu.done = true
}

// Do runs f over a fresh Mutation batch on m, guaranteeing the batch is
// finished exactly once regardless of how f returns (the scoped
// mutation helper). If f returns an error, Do aborts the batch and
// propagates the error instead of producing a Map; if f panics, the batch
// is aborted before the panic propagates.
func (m *Map[K, V]) Do(f func(*Mutation[K, V]) error) (*Map[K, V], error) {
	mu := m.Mutate()
	defer func() {
		if !mu.done {
			mu.Abort()
		}
	}()
	if err := f(mu); err != nil {
		mu.Abort()
		return nil, err
	}
	result, err := mu.Finish()
	debug.Assert(mu.done, "Do: mutation batch left open")
	return result, err
}
