package refqueue_test

import (
	"testing"

	"github.com/corehive/corehive/refqueue"
)

type counter struct{ n int }

func (c *counter) Retain()  { c.n++ }
func (c *counter) Release() { c.n-- }

func TestDrainAppliesIncrementsAndDecrements(t *testing.T) {
	q := refqueue.New()
	a := &counter{}
	b := &counter{}

	if err := q.ScheduleIncr(a); err != nil {
		t.Fatal(err)
	}
	if err := q.ScheduleIncr(a); err != nil {
		t.Fatal(err)
	}
	if err := q.ScheduleDecr(b); err != nil {
		t.Fatal(err)
	}

	if n := q.Drain(); n != 3 {
		t.Fatalf("Drain applied %d entries, want 3", n)
	}
	if a.n != 2 {
		t.Fatalf("a.n = %d, want 2", a.n)
	}
	if b.n != -1 {
		t.Fatalf("b.n = %d, want -1", b.n)
	}
	if q.Len() != 0 {
		t.Fatalf("queue not empty after drain")
	}
}

func TestCloseRefusesWithPendingEntries(t *testing.T) {
	q := refqueue.New()
	a := &counter{}
	_ = q.ScheduleIncr(a)

	if err := q.Close(); err != refqueue.ErrNotEmpty {
		t.Fatalf("Close err = %v, want ErrNotEmpty", err)
	}
	q.Drain()
	if err := q.Close(); err != nil {
		t.Fatalf("Close after drain: %v", err)
	}
}

func TestScheduleAfterCloseFails(t *testing.T) {
	q := refqueue.New()
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	a := &counter{}
	if err := q.ScheduleIncr(a); err != refqueue.ErrClosed {
		t.Fatalf("ScheduleIncr after close err = %v, want ErrClosed", err)
	}
}
