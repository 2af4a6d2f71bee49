// Package worker implements one peer domain's view onto a shared hub:
// construction registers a side channel and two ref queues, teardown drains
// and unregisters, and the exposed operations cover indexing, listen,
// request, flush_refs, close, and report_start/close/error.
package worker

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/corehive/corehive/adopt"
	"github.com/corehive/corehive/cmn/cos"
	"github.com/corehive/corehive/cmn/nlog"
	"github.com/corehive/corehive/domain"
	"github.com/corehive/corehive/hub"
	"github.com/corehive/corehive/mqueue"
	"github.com/corehive/corehive/reflecterr"
	"github.com/corehive/corehive/refqueue"
)

// ErrClosed is returned by any Worker operation once Close has completed.
var ErrClosed = errors.New("worker: subinterpreter is closing")

// HealthEvent is the payload posted to the hub's health channel; Kind is
// one of "START", "CLOSE", "ERROR".
type HealthEvent struct {
	Kind     string
	WorkerID string
	Name     string
	Message  string
	Records  []reflecterr.Record
	Root     int
}

// Worker is one peer domain's handle onto a Hub. The zero Worker is not
// valid; use New.
type Worker struct {
	hub     *hub.Hub
	self    domain.ID
	id      string
	channel int

	// mainRefs holds ops on hub-owned objects this worker has touched;
	// appended to here, drained by the hub's FlushRefs.
	mainRefs *refqueue.Queue
	// workerRefs holds ops on this worker's own objects that the hub has
	// touched; drained here by FlushRefs and Close. No hub-side code path
	// schedules onto it.
	workerRefs *refqueue.Queue

	reqID uint64

	mu     sync.Mutex
	closed bool
}

// New constructs a Worker identified by id, registering it with h and
// reporting a START health event.
func New(h *hub.Hub, self domain.ID, id string) (*Worker, error) {
	if id == "" {
		id = self.String()
	}
	mainRefs := refqueue.New()
	channel, err := h.RegisterWorker(id, mainRefs)
	if err != nil {
		return nil, err
	}
	w := &Worker{
		hub:        h,
		self:       self,
		id:         id,
		channel:    channel,
		mainRefs:   mainRefs,
		workerRefs: refqueue.New(),
	}
	if err := w.ReportStart(); err != nil {
		nlog.Warningf("worker %s: failed to report start: %v", id, err)
	}
	return w, nil
}

func (w *Worker) checkOpen() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return nil
}

// Len returns the hub index's current length.
func (w *Worker) Len() (int, error) {
	if err := w.checkOpen(); err != nil {
		return 0, err
	}
	return w.hub.Len(), nil
}

// Contains reports whether key is present in the hub index.
func (w *Worker) Contains(key string) (bool, error) {
	if err := w.checkOpen(); err != nil {
		return false, err
	}
	return w.hub.Contains(key), nil
}

// Get reads key from the hub index, adopted into this worker's domain.
func (w *Worker) Get(key string) (any, error) {
	if err := w.checkOpen(); err != nil {
		return nil, err
	}
	return w.hub.Get(key, adopt.ToWorker)
}

// Listen blocks for the next item on this worker's side channel (or the
// shared hub channel 0, whichever arrives first).
func (w *Worker) Listen() (mqueue.Message, error) {
	if err := w.checkOpen(); err != nil {
		return mqueue.Message{}, err
	}
	return w.hub.ListenOn(w.channel)
}

// Request posts val to the hub's forHub queue, auto-assigning a fresh
// request id local to this worker.
func (w *Worker) Request(val any) (uint64, error) {
	if err := w.checkOpen(); err != nil {
		return 0, err
	}
	id := atomic.AddUint64(&w.reqID, 1)
	return id, w.hub.PostResponse(w.id, workerRequest{WorkerID: w.id, ID: id, Val: val})
}

type workerRequest struct {
	WorkerID string
	ID       uint64
	Val      any
}

// FlushRefs drains this worker's own worker-refs queue (ops the hub has
// scheduled against objects this worker owns).
func (w *Worker) FlushRefs() int {
	return w.workerRefs.Drain()
}

// ReportStart posts a START health event.
func (w *Worker) ReportStart() error {
	return w.hub.PostHealth(HealthEvent{Kind: "START", WorkerID: w.id})
}

// ReportClose posts a CLOSE health event.
func (w *Worker) ReportClose() error {
	return w.hub.PostHealth(HealthEvent{Kind: "CLOSE", WorkerID: w.id})
}

// ReportError reflects err into a flat record sequence and posts an ERROR
// health event carrying it.
func (w *Worker) ReportError(err error) error {
	records, root, rerr := reflecterr.Reflect(err)
	if rerr != nil {
		return rerr
	}
	return w.hub.PostHealth(HealthEvent{
		Kind:     "ERROR",
		WorkerID: w.id,
		Name:     errTypeName(err),
		Message:  err.Error(),
		Records:  records,
		Root:     root,
	})
}

func errTypeName(err error) string {
	if n, ok := err.(interface{ TypeName() string }); ok {
		return n.TypeName()
	}
	return fmt.Sprintf("%T", err)
}

// Close tears this worker down: marks it closed, drains the worker-refs
// queue, unregisters from the hub, and reports a CLOSE health event. Close
// is idempotent.
func (w *Worker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	errs := &cos.Errs{}
	w.workerRefs.Drain()
	if err := w.workerRefs.Close(); err != nil {
		errs.Add(err)
	}
	if err := w.mainRefs.Close(); err != nil {
		errs.Add(err)
	}
	w.hub.UnregisterWorker(w.channel)
	errs.Add(w.ReportClose())
	return errs.Err()
}
