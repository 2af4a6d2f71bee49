package cos

import (
	"fmt"
	"os"
	"sync"

	"github.com/corehive/corehive/cmn/nlog"
)

// Errs coalesces distinct errors observed while draining a batch (e.g. a
// ref queue drain that hits several broken pointers) without recording the
// same message twice.
type Errs struct {
	errs []error
	mu   sync.Mutex
}

const maxErrs = 8

func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
	}
}

func (e *Errs) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.errs) == 0 {
		return nil
	}
	return e.errs[0]
}

func (e *Errs) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errs)
}

const fatalPrefix = "FATAL ERROR: "

// ExitLogf logs msg at error severity and terminates the process with exit
// code 1. Used by cmd entrypoints for unrecoverable startup failures.
func ExitLogf(f string, a ...any) {
	msg := fmt.Sprintf(fatalPrefix+f, a...)
	nlog.ErrorDepth(1, msg)
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
