// Package mqueue implements the multi-channel message queue shared between
// a hub and its workers: channel 0 is the hub's own broadcast/push channel,
// listened to by every worker; channels 1..N are per-worker side channels,
// used for replies and anything addressed to one specific worker.
package mqueue

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrClosed is returned once the queue has been Closed.
var ErrClosed = errors.New("mqueue: closed")

// Event distinguishes why a message was enqueued.
type Event uint8

const (
	EventPush Event = iota
	EventBroadcast
	EventRequest
)

func (e Event) String() string {
	switch e {
	case EventPush:
		return "push"
	case EventBroadcast:
		return "broadcast"
	case EventRequest:
		return "request"
	default:
		return "unknown"
	}
}

// Message is one entry as delivered by Listen: Sender identifies the
// originating side (opaque to this package), Event says why it was put
// there, and Val is the payload.
type Message struct {
	Event  Event
	Sender any
	Val    any
}

type item struct {
	msg  Message
	next *item
}

type channel struct {
	first, last *item
	length      int
}

func (c *channel) push(m Message) {
	it := &item{msg: m}
	if c.last == nil {
		c.first, c.last = it, it
	} else {
		c.last.next = it
		c.last = it
	}
	c.length++
}

func (c *channel) pop() (Message, bool) {
	if c.first == nil {
		return Message{}, false
	}
	m := c.first.msg
	c.first = c.first.next
	c.length--
	if c.first == nil {
		c.last = nil
		c.length = 0
	}
	return m, true
}

// Queue is a fixed-growable array of channels guarded by one mutex and one
// condition variable: channel 0 always exists; AddChannel appends the rest.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	chans   []channel
	closed  bool
	destroy bool
}

// New returns a Queue with just channel 0 (the hub/broadcast channel).
func New() *Queue {
	q := &Queue{chans: make([]channel, 1)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// AddChannel appends a new side channel and returns its index (always >= 1).
func (q *Queue) AddChannel() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, ErrClosed
	}
	q.chans = append(q.chans, channel{})
	return len(q.chans) - 1, nil
}

func (q *Queue) putLocked(channelIdx int, sender any, event Event, val any) error {
	if q.closed {
		return ErrClosed
	}
	first := q.chans[channelIdx].first
	q.chans[channelIdx].push(Message{Event: event, Sender: sender, Val: val})
	if first == nil {
		q.cond.Broadcast()
	}
	return nil
}

// Push enqueues val onto channel 0 (the hub channel) as an EventPush.
func (q *Queue) Push(sender any, val any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.putLocked(0, sender, EventPush, val)
}

// Request enqueues val onto a specific worker's side channel as an
// EventRequest — used for hub-to-worker or worker-to-worker calls expecting
// a correlated reply.
func (q *Queue) Request(channelIdx int, sender any, val any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if channelIdx <= 0 || channelIdx >= len(q.chans) {
		return errors.Errorf("mqueue: channel %d out of range", channelIdx)
	}
	return q.putLocked(channelIdx, sender, EventRequest, val)
}

// Broadcast enqueues val as an EventBroadcast onto every side channel
// (1..N), skipping channel 0 itself — every worker observes it exactly
// once on its own channel.
func (q *Queue) Broadcast(sender any, val any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	for i := 1; i < len(q.chans); i++ {
		if err := q.putLocked(i, sender, EventBroadcast, val); err != nil {
			return err
		}
	}
	return nil
}

// Listen blocks until a message is available on the given channel or on
// channel 0 (pass 0 to listen only on the hub channel), then pops and
// returns it. The caller's own channel always wins when both have entries,
// biasing toward direct messages over broadcasts. Listen returns ErrClosed
// once the queue has been closed and both channels are empty.
func (q *Queue) Listen(channelIdx int) (Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if channelIdx != 0 && (channelIdx < 1 || channelIdx >= len(q.chans)) {
		return Message{}, errors.Errorf("mqueue: channel %d out of range", channelIdx)
	}

	for !q.closed && q.chans[0].length == 0 && (channelIdx == 0 || q.chans[channelIdx].length == 0) {
		q.cond.Wait()
	}

	if channelIdx != 0 && q.chans[channelIdx].length > 0 {
		m, _ := q.chans[channelIdx].pop()
		return m, nil
	}
	if q.chans[0].length > 0 {
		m, _ := q.chans[0].pop()
		return m, nil
	}

	return Message{}, ErrClosed
}

// Len reports the number of undelivered messages on channelIdx (0 is the
// hub/broadcast channel), for metrics reporting.
func (q *Queue) Len(channelIdx int) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if channelIdx < 0 || channelIdx >= len(q.chans) {
		return 0
	}
	return q.chans[channelIdx].length
}

// NumChannels reports the total number of channels, including channel 0.
func (q *Queue) NumChannels() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chans)
}

// Close marks the queue closed and wakes every blocked Listen call; further
// puts fail with ErrClosed. Messages already queued stay deliverable to
// Listen until their channels are empty.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	q.cond.Broadcast()
	return nil
}

// Destroy is a no-op beyond requiring Close was already called; Go's
// garbage collector reclaims the Queue itself once unreferenced — there is
// no condvar/mutex to explicitly tear down.
func (q *Queue) Destroy() error {
	q.mu.Lock()
	closed := q.closed
	q.destroy = true
	q.mu.Unlock()
	if !closed {
		return errors.New("mqueue: destroying a queue that was never closed")
	}
	return nil
}
