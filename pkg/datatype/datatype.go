package datatype

import (
	"fmt"
	"unicode/utf8"
)

// Validation constants for element content.
const (
	// MaxElementLength is the maximum byte length of a set element,
	// register value, or map member name accepted by the store.
	MaxElementLength = 64 << 10
)

// Context is the opaque causal token handed out by the store alongside a
// snapshot. The client never interprets it; it only checks presence and
// returns it verbatim with operations whose safety depends on the causal
// history it encodes (set removal, flag disable, map member removal).
type Context []byte

// Present reports whether a causal context has been established.
func (c Context) Present() bool {
	return len(c) > 0
}

// Clone returns an independent copy of the context.
func (c Context) Clone() Context {
	if c == nil {
		return nil
	}
	out := make(Context, len(c))
	copy(out, c)
	return out
}

// Datatype is the contract shared by all convergent datatype values.
//
// Implementations hold an immutable snapshot plus staged local mutations.
// They are pure in-memory state machines: no IO, no locking, one logical
// edit session at a time.
type Datatype interface {
	// TypeName returns the stable wire name of the datatype ("set", ...).
	TypeName() string

	// Modified reports whether any local mutation is staged.
	Modified() bool

	// ToOp extracts the staged delta. The second return is false when
	// nothing is staged, distinguishing "no operation" from an empty one.
	ToOp() (Op, bool)

	// Reset atomically installs a fresh snapshot and context and clears all
	// staged state. The raw value is validated first; on failure the
	// instance is left untouched.
	Reset(raw any, ctx Context) error

	// Context returns a copy of the current causal context, if any.
	Context() Context
}

// staged is the shared state every concrete datatype embeds: the last
// snapshot confirmed by the store and the causal context it was derived
// from. Snapshot and context are only ever replaced together.
type staged[V any] struct {
	value V
	ctx   Context
}

// Context returns a copy of the current causal context.
func (s *staged[V]) Context() Context {
	return s.ctx.Clone()
}

// replace installs a new snapshot and context pair. Callers clear their
// staging containers in the same step.
func (s *staged[V]) replace(value V, ctx Context) {
	s.value = value
	s.ctx = ctx.Clone()
}

// requireContext fails when no causal context has been established yet.
func (s *staged[V]) requireContext() error {
	if !s.ctx.Present() {
		return ErrContextRequired
	}
	return nil
}

// checkElement validates element content before it enters a staging
// container. Invalid UTF-8 would be rewritten by JSON encoding on the wire
// and break convergence, so it is rejected here rather than on the server.
func checkElement(element string) error {
	if len(element) > MaxElementLength {
		return ErrInvalidElement.WithDetails(fmt.Sprintf("element exceeds %d bytes", MaxElementLength))
	}
	if !utf8.ValidString(element) {
		return ErrInvalidElement.WithDetails("element is not valid utf-8")
	}
	return nil
}
