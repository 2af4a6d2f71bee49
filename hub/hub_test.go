package hub_test

import (
	"context"
	"time"

	"github.com/corehive/corehive/domain"
	"github.com/corehive/corehive/hub"
	"github.com/corehive/corehive/worker"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Hub", func() {
	var self domain.ID
	var h *hub.Hub

	BeforeEach(func() {
		self = domain.New("hub-test")
		h = hub.New(self, 0)
	})

	It("stores and retrieves scalar values", func() {
		Expect(h.Set("a", int64(1))).To(Succeed())
		v, err := h.Get("a", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(int64(1)))
	})

	It("delivers a broadcast exactly once to each registered worker, and not to latecomers", func() {
		var workers []*worker.Worker
		for i := 0; i < 3; i++ {
			w, err := worker.New(h, domain.New("w"), "")
			Expect(err).NotTo(HaveOccurred())
			workers = append(workers, w)
		}

		Expect(h.Broadcast("stop")).To(Succeed())

		for _, w := range workers {
			m, err := w.Listen()
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Val).To(Equal("stop"))
		}

		late, err := worker.New(h, domain.New("w"), "")
		Expect(err).NotTo(HaveOccurred())

		received := make(chan bool, 1)
		go func() {
			_, err := late.Listen()
			received <- (err == nil)
		}()
		select {
		case <-received:
			Fail("latecomer should not have received the prior broadcast")
		case <-time.After(100 * time.Millisecond):
			// expected: still blocked, nothing delivered
		}
	})

	It("reads a scalar through a worker and flushes ref queues after the round trip", func() {
		w, err := worker.New(h, domain.New("w"), "reader")
		Expect(err).NotTo(HaveOccurred())

		Expect(h.Set("a", int64(1))).To(Succeed())
		v, err := w.Get("a")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(int64(1)))

		h.FlushRefs(context.Background())
	})

	It("delivers replies on the hub channel in the order the worker posts them, not the order requested", func() {
		w, err := worker.New(h, domain.New("w1"), "w1")
		Expect(err).NotTo(HaveOccurred())

		_, err = h.Request(1, "payload-A")
		Expect(err).NotTo(HaveOccurred())
		_, err = h.Request(1, "payload-B")
		Expect(err).NotTo(HaveOccurred())

		msgA, err := w.Listen()
		Expect(err).NotTo(HaveOccurred())
		msgB, err := w.Listen()
		Expect(err).NotTo(HaveOccurred())

		// Worker replies to B first, then A.
		Expect(h.PostResponse(w, msgB.Val)).To(Succeed())
		Expect(h.PostResponse(w, msgA.Val)).To(Succeed())

		first, err := h.Listen()
		Expect(err).NotTo(HaveOccurred())
		second, err := h.Listen()
		Expect(err).NotTo(HaveOccurred())

		Expect(first.Val).To(Equal(msgB.Val))
		Expect(second.Val).To(Equal(msgA.Val))
	})

	It("enforces the configured worker capacity", func() {
		small := hub.New(domain.New("small-hub"), 1)
		_, err := worker.New(small, domain.New("w1"), "w1")
		Expect(err).NotTo(HaveOccurred())
		_, err = worker.New(small, domain.New("w2"), "w2")
		Expect(err).To(MatchError(hub.ErrCapacityExceeded))
	})
})
