// Package hub implements the process-wide (but explicitly owned, never a
// package-level singleton) registry of workers sharing one persistent
// index: three message queues (hub→workers, workers→hub, health), the
// shared index map guarded by a reader/writer lock, and the worker
// registry used to drain every worker's main-side ref queue before an
// index write commits.
package hub

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/corehive/corehive/adopt"
	"github.com/corehive/corehive/cmn/cos"
	"github.com/corehive/corehive/cmn/nlog"
	"github.com/corehive/corehive/domain"
	"github.com/corehive/corehive/hamt"
	"github.com/corehive/corehive/metrics"
	"github.com/corehive/corehive/mqueue"
	"github.com/corehive/corehive/refqueue"
)

// ErrCapacityExceeded is returned by RegisterWorker once the hub's
// configured worker cap has been reached.
var ErrCapacityExceeded = errors.New("hub: worker capacity exceeded")

// DefaultCapacity is used when New is given capacity <= 0.
const DefaultCapacity = 256

type registeredWorker struct {
	channel  int
	id       string
	mainRefs *refqueue.Queue
}

// Hub owns the shared index and the three queues every registered worker
// communicates through. The zero Hub is not valid; use New.
type Hub struct {
	self     domain.ID
	capacity int

	indexMu sync.RWMutex
	index   *hamt.Map[hamt.StringKey, any]

	forWorkers *mqueue.Queue
	forHub     *mqueue.Queue
	health     *mqueue.Queue

	workersMu sync.Mutex
	workers   []*registeredWorker

	reqID   uint64
	flushSF singleflight.Group
}

// New returns an empty Hub owned by self, configured to accept at most
// capacity registered workers (DefaultCapacity if capacity <= 0).
func New(self domain.ID, capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Hub{
		self:       self,
		capacity:   capacity,
		index:      hamt.New[hamt.StringKey, any](self, nil),
		forWorkers: mqueue.New(),
		forHub:     mqueue.New(),
		health:     mqueue.New(),
	}
}

// RegisterWorker allocates a side channel for a new worker, recording
// mainRefs (the worker's own queue of pending ops on hub-owned objects) so
// FlushRefs can drain it later. It returns the new channel index.
func (h *Hub) RegisterWorker(id string, mainRefs *refqueue.Queue) (int, error) {
	h.workersMu.Lock()
	defer h.workersMu.Unlock()

	if len(h.workers) >= h.capacity {
		return 0, errors.WithMessagef(ErrCapacityExceeded, "capacity %d", h.capacity)
	}

	channel, err := h.forWorkers.AddChannel()
	if err != nil {
		return 0, err
	}
	h.workers = append(h.workers, &registeredWorker{channel: channel, id: id, mainRefs: mainRefs})
	nlog.Infof("hub: registered worker %s on channel %d", id, channel)
	return channel, nil
}

// UnregisterWorker removes the worker owning channel from the registry.
// The underlying mqueue channel itself is never reclaimed — channels are
// append-only: channel indices must stay stable for registered workers.
func (h *Hub) UnregisterWorker(channel int) {
	h.workersMu.Lock()
	defer h.workersMu.Unlock()
	for i, w := range h.workers {
		if w.channel == channel {
			h.workers = append(h.workers[:i], h.workers[i+1:]...)
			nlog.Infof("hub: unregistered worker %s on channel %d", w.id, channel)
			return
		}
	}
}

// ReportQueueDepths refreshes the metrics.QueueDepth gauge for every
// channel of every queue the hub owns; callers (typically a periodic
// housekeeping tick, see cmd/corehived) invoke this on whatever cadence
// suits their scrape interval.
func (h *Hub) ReportQueueDepths() {
	report := func(name string, q *mqueue.Queue) {
		n := q.NumChannels()
		for c := 0; c < n; c++ {
			metrics.QueueDepth.WithLabelValues(name, strconv.Itoa(c)).Set(float64(q.Len(c)))
		}
	}
	report("for_workers", h.forWorkers)
	report("for_hub", h.forHub)
	report("health", h.health)
}

// Len reports the number of keys currently in the index.
func (h *Hub) Len() int {
	h.indexMu.RLock()
	defer h.indexMu.RUnlock()
	return h.index.Len()
}

// Contains reports whether key is present in the index.
func (h *Hub) Contains(key string) bool {
	h.indexMu.RLock()
	defer h.indexMu.RUnlock()
	ok, err := h.index.Contains(hamt.StringKey(key))
	debugAssertNoErr(err)
	return ok
}

// Get returns the value for key, adopted for worker-domain use (deep-copied
// or, for a proxied Map, shared by reference with a ref-queue entry
// recorded on behalf of dir). Hub-domain code that wants the raw value
// without adoption should use Snapshot instead.
func (h *Hub) Get(key string, dir adopt.Direction) (any, error) {
	h.indexMu.RLock()
	v, err := h.index.Get(hamt.StringKey(key))
	h.indexMu.RUnlock()
	if err != nil {
		return nil, err
	}
	return adopt.Adopt(v, dir)
}

// Snapshot returns the hub's own index Map directly, with no adoption —
// valid only for hub-domain callers that trust their own thread of
// execution and don't need cross-domain adoption.
func (h *Hub) Snapshot() *hamt.Map[hamt.StringKey, any] {
	h.indexMu.RLock()
	defer h.indexMu.RUnlock()
	return h.index
}

// Set commits key = val into the index, draining every registered worker's
// main-refs queue first so any reads already in flight observe a
// consistent pre-commit index.
func (h *Hub) Set(key string, val any) error {
	h.FlushRefs(context.Background())
	h.indexMu.Lock()
	defer h.indexMu.Unlock()
	next, err := h.index.Assoc(hamt.StringKey(key), val)
	if err != nil {
		return err
	}
	h.index = next
	metrics.IndexLen.WithLabelValues(h.self.String()).Set(float64(next.Len()))
	return nil
}

// Delete removes key from the index, same drain-then-commit ordering as
// Set.
func (h *Hub) Delete(key string) error {
	h.FlushRefs(context.Background())
	h.indexMu.Lock()
	defer h.indexMu.Unlock()
	next, err := h.index.Without(hamt.StringKey(key))
	if err != nil {
		return err
	}
	h.index = next
	metrics.IndexLen.WithLabelValues(h.self.String()).Set(float64(next.Len()))
	return nil
}

// FlushRefs drains every registered worker's main-refs queue concurrently,
// coalescing concurrent callers into a single pass via singleflight (a
// flush already in progress satisfies every caller that arrived while it
// ran, rather than queuing up redundant drains).
func (h *Hub) FlushRefs(ctx context.Context) {
	_, _, _ = h.flushSF.Do("flush", func() (any, error) {
		h.workersMu.Lock()
		workers := make([]*registeredWorker, len(h.workers))
		copy(workers, h.workers)
		h.workersMu.Unlock()

		g, _ := errgroup.WithContext(ctx)
		for _, w := range workers {
			w := w
			g.Go(func() error {
				metrics.RefQueuePending.WithLabelValues(w.id, "main").Set(float64(w.mainRefs.Len()))
				w.mainRefs.Drain()
				metrics.RefQueuePending.WithLabelValues(w.id, "main").Set(0)
				return nil
			})
		}
		_ = g.Wait()
		return nil, nil
	})
}

// Push posts val on channel 0: at most one listener (whichever worker
// dequeues it first) ever observes it.
func (h *Hub) Push(val any) error {
	return h.forWorkers.Push(h.self, val)
}

// Broadcast posts val on every registered worker's side channel, so each
// sees it exactly once regardless of how many workers are listening.
func (h *Hub) Broadcast(val any) error {
	return h.forWorkers.Broadcast(h.self, val)
}

// Request posts val to the given worker's side channel as a hub-originated
// request, tagged with a fresh monotonically increasing request id that
// the worker's response (posted on forHub) must echo back.
func (h *Hub) Request(channel int, val any) (uint64, error) {
	id := atomic.AddUint64(&h.reqID, 1)
	metrics.RequestsTotal.WithLabelValues("hub_to_worker").Inc()
	return id, h.forWorkers.Request(channel, h.self, requestEnvelope{ID: id, Val: val})
}

type requestEnvelope struct {
	ID  uint64
	Val any
}

// Listen blocks for the next item on forHub — a worker's request or
// response — and returns it.
func (h *Hub) Listen() (mqueue.Message, error) {
	return h.forHub.Listen(0)
}

// ListenOn blocks for the next item on the hub→workers queue's channel 0
// or the given worker side channel, whichever arrives first. This is what
// a registered worker's Listen calls with its own channel index.
func (h *Hub) ListenOn(channel int) (mqueue.Message, error) {
	return h.forWorkers.Listen(channel)
}

// ListenHealth blocks for the next worker lifecycle/error event.
func (h *Hub) ListenHealth() (mqueue.Message, error) {
	return h.health.Listen(0)
}

// PostHealth is used by a Worker (same package tree, different package) to
// report START/CLOSE/ERROR; exported as a method on Hub so worker need not
// reach into mqueue internals directly.
func (h *Hub) PostHealth(event any) error {
	return h.health.Push(h.self, event)
}

// PostResponse is how a worker posts its reply back to the hub's forHub
// queue, keeping the request/response channel symmetric with Request.
func (h *Hub) PostResponse(sender any, val any) error {
	metrics.ResponsesTotal.WithLabelValues(h.self.String()).Inc()
	return h.forHub.Push(sender, val)
}

// CloseWorkersQueue closes the hub→workers queue; every blocked worker
// Listen wakes with mqueue.ErrClosed.
func (h *Hub) CloseWorkersQueue() error { return h.forWorkers.Close() }

// CloseHealthQueue closes the health queue.
func (h *Hub) CloseHealthQueue() error { return h.health.Close() }

// Close drains every registered worker's main-refs queue one last time,
// then closes every queue the hub owns.
func (h *Hub) Close() error {
	h.FlushRefs(context.Background())
	errs := &cos.Errs{}
	errs.Add(h.forWorkers.Close())
	errs.Add(h.forHub.Close())
	errs.Add(h.health.Close())
	return errs.Err()
}

func debugAssertNoErr(err error) {
	if err != nil && !errors.Is(err, hamt.ErrNoSuchKey) {
		nlog.Warningf("hub: unexpected index error: %v", err)
	}
}
