// Package reflecterr flattens an error's cause/context/group graph into a
// flat, indexed sequence of immutable records suitable for transport across
// a domain boundary on the health channel, and rebuilds an equivalent error
// graph on the receiving side. It intentionally does not preserve the
// original error's Go type: only its name, message, and graph shape.
package reflecterr

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMarshal is returned when the wire format handed to Decode or Rebuild
// isn't a well-formed record sequence.
var ErrMarshal = errors.New("reflecterr: malformed reflected-error payload")

// Frame is one reflected stack location: (file, func, line).
type Frame struct {
	File string `json:"file"`
	Func string `json:"func"`
	Line int    `json:"line"`
}

// Record is the fixed 6-field tuple describing one reflected
// error: message, type name, group member indices (nil unless this was an
// error group), frames innermost-first, and the cause/context back-edges as
// indices into the same slice (-1 meaning "none").
type Record struct {
	Message string  `json:"message"`
	Name    string  `json:"name"`
	Group   []int   `json:"group,omitempty"`
	Frames  []Frame `json:"frames,omitempty"`
	Cause   int     `json:"cause"`
	Context int     `json:"context"`
}

// noEdge is the sentinel Cause/Context value meaning "this edge is absent".
const noEdge = -1

// Framer lets an error contribute stack frames to its own Record; errors
// that don't implement it simply reflect with no frames.
type Framer interface {
	Frames() []Frame
}

// Grouper lets an error expose its member errors (an ExceptionGroup
// analogue); errors that don't implement it are never treated as a group.
type Grouper interface {
	Group() []error
	Summary() string
}

type causer interface{ Cause() error }
type contexter interface{ Context() error }

// Reflect walks err's cause/context/group graph and returns it as a flat
// Record slice plus the index of err's own record within it — traversal
// order means err is not necessarily first or last, so callers must use the
// returned root rather than assuming a position.
func Reflect(err error) ([]Record, int, error) {
	if err == nil {
		return nil, noEdge, nil
	}
	memo := map[error]int{}
	var out []Record
	root, err2 := reflectOne(err, memo, &out)
	if err2 != nil {
		return nil, 0, err2
	}
	return out, root, nil
}

func reflectOne(err error, memo map[error]int, out *[]Record) (int, error) {
	if pos, ok := memo[err]; ok {
		return pos, nil
	}

	rec := Record{
		Name:    typeName(err),
		Cause:   noEdge,
		Context: noEdge,
	}

	if g, ok := err.(Grouper); ok {
		rec.Message = g.Summary()
		for _, sub := range g.Group() {
			idx, rerr := reflectOne(sub, memo, out)
			if rerr != nil {
				return 0, rerr
			}
			rec.Group = append(rec.Group, idx)
		}
	} else {
		rec.Message = err.Error()
	}

	if f, ok := err.(Framer); ok {
		rec.Frames = f.Frames()
	}

	*out = append(*out, rec)
	pos := len(*out) - 1
	memo[err] = pos

	if c, ok := err.(causer); ok && c.Cause() != nil && c.Cause() != err {
		idx, rerr := reflectOne(c.Cause(), memo, out)
		if rerr != nil {
			return 0, rerr
		}
		(*out)[pos].Cause = idx
	}
	if c, ok := err.(contexter); ok && c.Context() != nil && c.Context() != err {
		idx, rerr := reflectOne(c.Context(), memo, out)
		if rerr != nil {
			return 0, rerr
		}
		(*out)[pos].Context = idx
	}

	return pos, nil
}

func typeName(err error) string {
	if n, ok := err.(interface{ TypeName() string }); ok {
		return n.TypeName()
	}
	return fmt.Sprintf("%T", err)
}

// reflected is the reconstructed error type Rebuild produces: instances of
// one dynamically-shaped type carrying the reflected name, message, frames
// and back-edges. The original error's Go type never crosses the boundary.
type reflected struct {
	name    string
	message string
	frames  []Frame
	group   []*reflected
	cause   *reflected
	context *reflected
}

func (r *reflected) Error() string {
	if r.name == "" {
		return r.message
	}
	return r.name + ": " + r.message
}

func (r *reflected) TypeName() string  { return r.name }
func (r *reflected) Frames() []Frame   { return r.frames }
func (r *reflected) Unwrap() error     { return r.cause.asError() }
func (r *reflected) Cause() error      { return r.cause.asError() }
func (r *reflected) Context() error    { return r.context.asError() }
func (r *reflected) Members() []error {
	out := make([]error, len(r.group))
	for i, g := range r.group {
		out[i] = g.asError()
	}
	return out
}

func (r *reflected) asError() error {
	if r == nil {
		return nil
	}
	return r
}

// Rebuild reconstructs the root error (Records[root]) and its full graph
// from a flattened Record slice, the inverse of Reflect.
func Rebuild(records []Record, root int) (error, error) {
	if root < 0 || root >= len(records) {
		return nil, errors.WithMessagef(ErrMarshal, "root index %d out of range", root)
	}
	inRange := func(i int) bool { return i >= 0 && i < len(records) }
	built := make([]*reflected, len(records))
	var build func(i int) (*reflected, error)
	build = func(i int) (*reflected, error) {
		if built[i] != nil {
			return built[i], nil
		}
		rec := records[i]
		r := &reflected{name: rec.Name, message: rec.Message, frames: rec.Frames}
		built[i] = r
		for _, gi := range rec.Group {
			if !inRange(gi) {
				return nil, errors.WithMessagef(ErrMarshal, "group index %d out of range", gi)
			}
			sub, err := build(gi)
			if err != nil {
				return nil, err
			}
			r.group = append(r.group, sub)
		}
		if rec.Cause != noEdge {
			if !inRange(rec.Cause) {
				return nil, errors.WithMessagef(ErrMarshal, "cause index %d out of range", rec.Cause)
			}
			sub, err := build(rec.Cause)
			if err != nil {
				return nil, err
			}
			r.cause = sub
		}
		if rec.Context != noEdge {
			if !inRange(rec.Context) {
				return nil, errors.WithMessagef(ErrMarshal, "context index %d out of range", rec.Context)
			}
			sub, err := build(rec.Context)
			if err != nil {
				return nil, err
			}
			r.context = sub
		}
		return r, nil
	}
	r, err := build(root)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Encode/Decode wrap the wire transport of a Record slice plus its root
// index, using json-iterator for speed-compatible stdlib-equivalent JSON.
type wireEnvelope struct {
	Root    int      `json:"root"`
	Records []Record `json:"records"`
}

func Encode(records []Record, root int) ([]byte, error) {
	return json.Marshal(wireEnvelope{Root: root, Records: records})
}

func Decode(data []byte) ([]Record, int, error) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, 0, errors.WithMessage(ErrMarshal, err.Error())
	}
	if env.Root < 0 || (len(env.Records) > 0 && env.Root >= len(env.Records)) {
		return nil, 0, errors.WithMessagef(ErrMarshal, "root index %d out of range", env.Root)
	}
	return env.Records, env.Root, nil
}
