// Package main runs a standalone corehive hub: it owns the shared index,
// accepts a configurable number of in-process workers, and serves
// Prometheus metrics over HTTP. It exists to exercise the hub/worker wiring
// end to end outside of tests, not as a production deployment artifact.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/corehive/corehive/cmn/cos"
	"github.com/corehive/corehive/cmn/nlog"
	"github.com/corehive/corehive/domain"
	"github.com/corehive/corehive/hub"
	"github.com/corehive/corehive/metrics"
	"github.com/corehive/corehive/worker"
)

var (
	listenAddr  string
	numWorkers  int
	hkInterval  time.Duration
	hubCapacity int
)

func init() {
	flag.StringVar(&listenAddr, "listen", ":9797", "address to serve /metrics on")
	flag.IntVar(&numWorkers, "workers", 4, "number of in-process workers to register at startup")
	flag.DurationVar(&hkInterval, "hk-interval", 5*time.Second, "housekeeping tick: flush ref queues and report queue depths")
	flag.IntVar(&hubCapacity, "capacity", hub.DefaultCapacity, "maximum number of registered workers")
}

func main() {
	flag.Parse()

	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	self := domain.New("hub")
	h := hub.New(self, hubCapacity)
	nlog.Infof("corehived: hub %s starting, capacity %d", self, hubCapacity)

	var workers []*worker.Worker
	for i := 0; i < numWorkers; i++ {
		w, err := worker.New(h, domain.New("worker"), "")
		if err != nil {
			cos.ExitLogf("corehived: failed to register worker %d: %v", i, err)
		}
		workers = append(workers, w)
	}
	nlog.Infof("corehived: registered %d workers", len(workers))

	go housekeep(h, hkInterval)
	go drainHealth(h)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: listenAddr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			cos.ExitLogf("corehived: metrics server failed: %v", err)
		}
	}()
	nlog.Infof("corehived: serving metrics on %s", listenAddr)

	waitForSignal()

	nlog.Infof("corehived: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)

	errs := &cos.Errs{}
	for _, w := range workers {
		errs.Add(w.Close())
	}
	errs.Add(h.Close())
	if err := errs.Err(); err != nil {
		nlog.Warningf("corehived: shutdown errors: %v", err)
	}
}

// housekeep periodically flushes every worker's ref queue and refreshes the
// queue-depth gauges on a fixed cadence, independent of any request traffic.
func housekeep(h *hub.Hub, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for range t.C {
		h.FlushRefs(context.Background())
		h.ReportQueueDepths()
	}
}

// drainHealth logs every worker lifecycle/error event posted to the hub's
// health channel so operators running the binary standalone can see worker
// churn without a separate consumer.
func drainHealth(h *hub.Hub) {
	for {
		msg, err := h.ListenHealth()
		if err != nil {
			return
		}
		if ev, ok := msg.Val.(worker.HealthEvent); ok {
			switch ev.Kind {
			case "ERROR":
				nlog.Warningf("corehived: worker %s reported an error: %s", ev.WorkerID, ev.Message)
			default:
				nlog.Infof("corehived: worker %s: %s", ev.WorkerID, ev.Kind)
			}
		}
	}
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-c
}
