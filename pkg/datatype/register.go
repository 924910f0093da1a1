package datatype

import "fmt"

// Register is a string value resolved last-write-wins by the store. It only
// exists as a Map member. Assigning never needs a causal context.
type Register struct {
	staged[string]

	pending  string
	assigned bool
}

// NewRegister creates a register with an empty snapshot and no staged
// assignment.
func NewRegister() *Register {
	return &Register{}
}

// TypeName returns the wire name of the datatype.
func (r *Register) TypeName() string {
	return TypeNameRegister
}

// Value returns the snapshot value. A staged assignment is not visible.
func (r *Register) Value() string {
	return r.value
}

// Assign stages a new value. Assigning the empty string is a real
// assignment, not a no-op.
func (r *Register) Assign(value string) error {
	if err := checkElement(value); err != nil {
		return err
	}
	r.pending = value
	r.assigned = true
	return nil
}

// Modified reports whether an assignment is staged.
func (r *Register) Modified() bool {
	return r.assigned
}

// ToOp extracts the staged assignment, or (nil, false) when none is staged.
func (r *Register) ToOp() (Op, bool) {
	if !r.assigned {
		return nil, false
	}
	return &RegisterOp{Assign: r.pending}, true
}

// Reset validates and installs a fresh snapshot and context and drops any
// staged assignment.
func (r *Register) Reset(raw any, ctx Context) error {
	value, err := coerceRegisterValue(raw)
	if err != nil {
		return err
	}

	r.replace(value, ctx)
	r.pending = ""
	r.assigned = false
	return nil
}

func coerceRegisterValue(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", ErrInvalidSnapshot.WithDetails(fmt.Sprintf("register value is %T, not string", raw))
	}
}
