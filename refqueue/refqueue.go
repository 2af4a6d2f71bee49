// Package refqueue implements the batched cross-domain reference-count
// reconciliation queue: a domain that has taken (or dropped) a reference to
// a node it does not own appends that fact here instead of touching the
// owner's refcount directly, and the owner drains the queue at a safepoint:
// the pending entries are unlinked under the queue's lock, and every
// increment/decrement is then applied after the lock is released.
package refqueue

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/corehive/corehive/cmn/debug"
	"github.com/corehive/corehive/hamt"
)

// ErrClosed is returned by Schedule* once the queue has been Closed.
var ErrClosed = errors.New("refqueue: closed")

// ErrNotEmpty is returned by Close when pending entries remain undrained —
// closing a queue that still owes refcount reconciliation is a bug in the
// caller, not a condition to paper over.
var ErrNotEmpty = errors.New("refqueue: cannot close with pending entries")

type entry struct {
	obj  hamt.Retainable
	next *entry
}

// Queue holds two singly linked FIFOs — pending increments and pending
// decrements — behind one mutex, plus a small freelist of spent entry cells
// so steady-state traffic doesn't keep allocating.
type Queue struct {
	mu sync.Mutex

	firstInc, lastInc *entry
	firstDec, lastDec *entry

	reuse    *entry
	reuseLen int

	closed bool
}

// maxReuse caps the freelist so a queue that goes quiet doesn't hold onto
// an unbounded number of spare cells forever.
const maxReuse = 100

// New returns an empty, open Queue.
func New() *Queue { return &Queue{} }

func (q *Queue) push(obj hamt.Retainable, isInc bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	var cnt *entry
	if q.reuse != nil {
		cnt = q.reuse
		q.reuse = cnt.next
		q.reuseLen--
	} else {
		cnt = &entry{}
	}
	cnt.next = nil
	cnt.obj = obj

	if isInc {
		if q.lastInc == nil {
			q.firstInc, q.lastInc = cnt, cnt
		} else {
			q.lastInc.next = cnt
			q.lastInc = cnt
		}
	} else {
		if q.lastDec == nil {
			q.firstDec, q.lastDec = cnt, cnt
		} else {
			q.lastDec.next = cnt
			q.lastDec = cnt
		}
	}
	return nil
}

// ScheduleIncr records a pending Retain() for obj, to be applied on Drain.
func (q *Queue) ScheduleIncr(obj hamt.Retainable) error { return q.push(obj, true) }

// ScheduleDecr records a pending Release() for obj, to be applied on Drain.
func (q *Queue) ScheduleDecr(obj hamt.Retainable) error { return q.push(obj, false) }

// Drain swaps out every pending entry, releases the lock, and then applies
// every Retain/Release. Entries are returned to the freelist (bounded by
// maxReuse) rather than immediately discarded.
func (q *Queue) Drain() (applied int) {
	q.mu.Lock()
	incs := q.firstInc
	decs := q.firstDec
	q.firstInc, q.lastInc = nil, nil
	q.firstDec, q.lastDec = nil, nil
	q.mu.Unlock()

	var toReuse *entry

	for incs != nil {
		incs.obj.Retain()
		incs.obj = nil
		next := incs.next
		incs.next = toReuse
		toReuse = incs
		incs = next
		applied++
	}
	for decs != nil {
		decs.obj.Release()
		decs.obj = nil
		next := decs.next
		decs.next = toReuse
		toReuse = decs
		decs = next
		applied++
	}

	if toReuse != nil {
		q.mu.Lock()
		for toReuse != nil && q.reuseLen < maxReuse {
			next := toReuse.next
			toReuse.next = q.reuse
			q.reuse = toReuse
			q.reuseLen++
			toReuse = next
		}
		q.mu.Unlock()
	}
	return applied
}

// Len reports the number of entries currently pending (for metrics and
// tests; racy by nature against concurrent Schedule* calls).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for e := q.firstInc; e != nil; e = e.next {
		n++
	}
	for e := q.firstDec; e != nil; e = e.next {
		n++
	}
	return n
}

// Close marks the queue closed, refusing further Schedule* calls. It fails
// with ErrNotEmpty if entries are still pending — callers must Drain first.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	if q.firstInc != nil || q.firstDec != nil {
		return ErrNotEmpty
	}
	q.closed = true
	debug.Assert(q.lastInc == nil && q.lastDec == nil, "close: dangling tail pointer")
	q.reuse = nil
	q.reuseLen = 0
	return nil
}
