package datatype

import (
	"encoding/json"
	"fmt"
	"math"
)

// Counter is a convergent integer counter. Increments and decrements
// accumulate into a single staged delta; the store merges deltas from all
// replicas commutatively. Counters never need a causal context.
type Counter struct {
	staged[int64]

	delta int64
}

// NewCounter creates a counter with a zero snapshot and no staged delta.
func NewCounter() *Counter {
	return &Counter{}
}

// TypeName returns the wire name of the datatype.
func (c *Counter) TypeName() string {
	return TypeNameCounter
}

// Value returns the snapshot value. The staged delta is not included.
func (c *Counter) Value() int64 {
	return c.value
}

// Increment stages an increment by n.
func (c *Counter) Increment(n int64) {
	c.delta += n
}

// Decrement stages a decrement by n.
func (c *Counter) Decrement(n int64) {
	c.delta -= n
}

// Modified reports whether the staged delta is non-zero. Increments that
// cancel out leave the counter unmodified.
func (c *Counter) Modified() bool {
	return c.delta != 0
}

// ToOp extracts the staged delta, or (nil, false) when it is zero.
func (c *Counter) ToOp() (Op, bool) {
	if c.delta == 0 {
		return nil, false
	}
	return &CounterOp{Increment: c.delta}, true
}

// Reset validates and installs a fresh snapshot and context and clears the
// staged delta.
func (c *Counter) Reset(raw any, ctx Context) error {
	value, err := coerceCounterValue(raw)
	if err != nil {
		return err
	}

	c.replace(value, ctx)
	c.delta = 0
	return nil
}

// coerceCounterValue accepts the integer shapes a decoded store response
// can produce. JSON numbers arrive as float64; non-integral values are
// rejected rather than truncated.
func coerceCounterValue(raw any) (int64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, ErrInvalidSnapshot.WithDetails("counter value is not integral")
		}
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, ErrInvalidSnapshot.WithDetails("counter value is not integral").WithCause(err)
		}
		return n, nil
	default:
		return 0, ErrInvalidSnapshot.WithDetails(fmt.Sprintf("counter value is %T, not an integer", raw))
	}
}
