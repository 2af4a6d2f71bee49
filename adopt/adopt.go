// Package adopt implements value reconciliation: the rules for handing a
// value that lives in one domain to another domain, used whenever a Map
// lookup resolves to a foreign node (hamt's find returning "foreign") or a
// message payload crosses the hub/worker boundary.
//
// Every value falls into exactly one of five buckets, checked in order:
// a well-known singleton (passed through by identity), an immortal/host
// primitive (deep-copied), a registered Descriptor's Proxyable type (copied
// via one of two direction-specific functions), a Sequence (recursively
// adopted element by element), or none of the above (an adoption error).
package adopt

import (
	"reflect"

	"github.com/pkg/errors"
)

// ErrNotAdoptable is returned when a value matches none of the adoption
// rules below: no Descriptor is registered for its type, and it is neither
// a primitive nor a Sequence of adoptable elements.
var ErrNotAdoptable = errors.New("adopt: value cannot cross a domain boundary")

// Direction distinguishes the two asymmetric copy functions a Descriptor
// must supply: "worker-owned value observed by the hub" versus "hub-owned
// value observed by a worker". The two directions are not required to do
// the same work — a type may share by reference one way and deep-copy the
// other (see MapAdopter).
type Direction uint8

const (
	// ToHub adopts a value that a worker owns into the hub's domain.
	ToHub Direction = iota
	// ToWorker adopts a value that the hub owns into a worker's domain.
	ToWorker
)

// Descriptor is how a proxyable type plugs into adoption. Registered once
// per Go type via Register, never per-instance.
type Descriptor struct {
	// ToHub copies v (owned by some worker domain) into a hub-owned
	// equivalent.
	ToHub func(v any) (any, error)
	// ToWorker copies v (owned by the hub) into a worker-owned equivalent.
	ToWorker func(v any) (any, error)
}

// Sequence is implemented by container types (besides Map, which has its
// own Descriptor) whose elements must each be independently adopted.
type Sequence interface {
	Elements() []any
	Rebuild(elems []any) any
}

var registry = map[reflect.Type]Descriptor{}

// Register installs descriptor for every value of type sample's Go type.
// Calling Register twice for the same type replaces the prior entry.
func Register(sample any, descriptor Descriptor) {
	registry[reflect.TypeOf(sample)] = descriptor
}

// singleton is implemented by the handful of well-known shared values
// (None/True/False analogues) that cross domain boundaries by identity,
// never copied — matching the host's None/True/False/Ellipsis passthrough.
type singleton interface {
	Singleton() bool
}

// primitive is implemented by host-native scalar types that are always
// safe to deep-copy: Clone must return an independent copy sharing no
// mutable state with the receiver.
type primitive interface {
	Clone() any
}

// Adopt copies v across a domain boundary in direction dir, applying the
// five-bucket dispatch documented on the package.
func Adopt(v any, dir Direction) (any, error) {
	if v == nil {
		return nil, nil
	}

	if s, ok := v.(singleton); ok && s.Singleton() {
		return v, nil
	}

	switch x := v.(type) {
	case []byte:
		return append([]byte(nil), x...), nil
	case string, int64, float64, bool:
		return x, nil
	}

	if p, ok := v.(primitive); ok {
		return p.Clone(), nil
	}

	if d, ok := registry[reflect.TypeOf(v)]; ok {
		switch dir {
		case ToHub:
			return d.ToHub(v)
		default:
			return d.ToWorker(v)
		}
	}

	if seq, ok := v.(Sequence); ok {
		elems := seq.Elements()
		out := make([]any, len(elems))
		for i, e := range elems {
			adopted, err := Adopt(e, dir)
			if err != nil {
				return nil, err
			}
			out[i] = adopted
		}
		return seq.Rebuild(out), nil
	}

	return nil, errors.WithMessagef(ErrNotAdoptable, "type %T", v)
}
