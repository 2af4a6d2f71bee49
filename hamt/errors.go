package hamt

import "errors"

// Sentinel error kinds every HAMT operation can return. Callers recover these with
// errors.Is; every returned error is wrapped with github.com/pkg/errors at
// the call site so the message still carries context.
var (
	ErrNoSuchKey           = errors.New("hamt: no such key")
	ErrUseAfterFinalize    = errors.New("hamt: mutation already finished")
	ErrCrossDomainMutation = errors.New("hamt: cross-domain mutation forbidden")
	ErrHashFailure         = errors.New("hamt: hash failure")
	ErrEqualityFailure     = errors.New("hamt: equality failure")
	ErrInternal            = errors.New("hamt: internal invariant violation")
)
