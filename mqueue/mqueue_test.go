package mqueue_test

import (
	"testing"
	"time"

	"github.com/corehive/corehive/mqueue"
)

func TestPushThenListenOnHubChannel(t *testing.T) {
	q := mqueue.New()
	if err := q.Push("hub", "hello"); err != nil {
		t.Fatal(err)
	}
	m, err := q.Listen(0)
	if err != nil {
		t.Fatal(err)
	}
	if m.Event != mqueue.EventPush || m.Val != "hello" {
		t.Fatalf("got %+v", m)
	}
}

func TestBroadcastReachesEveryWorkerExactlyOnce(t *testing.T) {
	q := mqueue.New()
	ch1, _ := q.AddChannel()
	ch2, _ := q.AddChannel()

	if err := q.Broadcast("hub", "stop"); err != nil {
		t.Fatal(err)
	}

	m1, err := q.Listen(ch1)
	if err != nil || m1.Event != mqueue.EventBroadcast {
		t.Fatalf("worker1: %+v, %v", m1, err)
	}
	m2, err := q.Listen(ch2)
	if err != nil || m2.Event != mqueue.EventBroadcast {
		t.Fatalf("worker2: %+v, %v", m2, err)
	}
}

func TestListenBlocksUntilPut(t *testing.T) {
	q := mqueue.New()
	ch, _ := q.AddChannel()

	done := make(chan mqueue.Message, 1)
	go func() {
		m, err := q.Listen(ch)
		if err != nil {
			t.Error(err)
			return
		}
		done <- m
	}()

	time.Sleep(20 * time.Millisecond)
	if err := q.Request(ch, "hub", 42); err != nil {
		t.Fatal(err)
	}

	select {
	case m := <-done:
		if m.Val != 42 {
			t.Fatalf("got %+v", m)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Listen to unblock")
	}
}

func TestCloseUnblocksListenersWithErrClosed(t *testing.T) {
	q := mqueue.New()
	ch, _ := q.AddChannel()

	errs := make(chan error, 1)
	go func() {
		_, err := q.Listen(ch)
		errs <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errs:
		if err != mqueue.ErrClosed {
			t.Fatalf("err = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestSideChannelTakesPriorityOverHubChannel(t *testing.T) {
	q := mqueue.New()
	ch, _ := q.AddChannel()

	_ = q.Request(ch, "hub", "side")
	_ = q.Push("hub", "main")

	m, err := q.Listen(ch)
	if err != nil {
		t.Fatal(err)
	}
	if m.Val != "side" {
		t.Fatalf("expected side channel message to be delivered first, got %+v", m)
	}
}
