package worker_test

import (
	"errors"
	"testing"

	"github.com/corehive/corehive/domain"
	"github.com/corehive/corehive/hub"
	"github.com/corehive/corehive/worker"
)

func TestNewRegistersAndReportsStart(t *testing.T) {
	h := hub.New(domain.New("hub"), 0)
	w, err := worker.New(h, domain.New("w1"), "w1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	msg, err := h.ListenHealth()
	if err != nil {
		t.Fatalf("ListenHealth: %v", err)
	}
	ev, ok := msg.Val.(worker.HealthEvent)
	if !ok {
		t.Fatalf("expected HealthEvent, got %T", msg.Val)
	}
	if ev.Kind != "START" || ev.WorkerID != "w1" {
		t.Fatalf("unexpected start event: %+v", ev)
	}
}

func TestDefaultIDFallsBackToDomainString(t *testing.T) {
	h := hub.New(domain.New("hub"), 0)
	self := domain.New("w-default")
	w, err := worker.New(h, self, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	msg, err := h.ListenHealth()
	if err != nil {
		t.Fatalf("ListenHealth: %v", err)
	}
	ev := msg.Val.(worker.HealthEvent)
	if ev.WorkerID != self.String() {
		t.Fatalf("expected worker id %q, got %q", self.String(), ev.WorkerID)
	}
}

func TestReportErrorFlattensCauseChainIntoHealthEvent(t *testing.T) {
	h := hub.New(domain.New("hub"), 0)
	w, err := worker.New(h, domain.New("w1"), "w1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	// drain the START event first
	if _, err := h.ListenHealth(); err != nil {
		t.Fatalf("ListenHealth (start): %v", err)
	}

	cause := errors.New("disk full")
	wrapped := errWithCause{msg: "flush failed", cause: cause}

	if err := w.ReportError(wrapped); err != nil {
		t.Fatalf("ReportError: %v", err)
	}

	msg, err := h.ListenHealth()
	if err != nil {
		t.Fatalf("ListenHealth (error): %v", err)
	}
	ev := msg.Val.(worker.HealthEvent)
	if ev.Kind != "ERROR" || ev.WorkerID != "w1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if len(ev.Records) < 2 {
		t.Fatalf("expected at least 2 flattened records, got %d", len(ev.Records))
	}
	if ev.Records[ev.Root].Message != "flush failed" {
		t.Fatalf("unexpected root message: %q", ev.Records[ev.Root].Message)
	}
}

func TestCloseIsIdempotentAndRejectsFurtherUse(t *testing.T) {
	h := hub.New(domain.New("hub"), 0)
	w, err := worker.New(h, domain.New("w1"), "w1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := h.ListenHealth(); err != nil {
		t.Fatalf("ListenHealth: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}

	if _, err := w.Len(); !errors.Is(err, worker.ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}

type errWithCause struct {
	msg   string
	cause error
}

func (e errWithCause) Error() string { return e.msg }
func (e errWithCause) Cause() error  { return e.cause }
