package datatype

import "fmt"

// Flag is a convergent boolean, available only as a Map member. Enabling
// needs no context; disabling follows the same observed-remove rule as set
// removal and requires one, because a disable only cancels enables the
// local replica has observed.
type Flag struct {
	staged[bool]

	pending bool
	dirty   bool
}

// NewFlag creates a disabled flag with nothing staged.
func NewFlag() *Flag {
	return &Flag{}
}

// TypeName returns the wire name of the datatype.
func (f *Flag) TypeName() string {
	return TypeNameFlag
}

// Enabled returns the snapshot value. Staged changes are not visible.
func (f *Flag) Enabled() bool {
	return f.value
}

// Enable stages enabling the flag.
func (f *Flag) Enable() {
	f.pending = true
	f.dirty = true
}

// Disable stages disabling the flag. Requires a causal context.
func (f *Flag) Disable() error {
	if err := f.requireContext(); err != nil {
		return err
	}
	f.pending = false
	f.dirty = true
	return nil
}

// Modified reports whether a change is staged.
func (f *Flag) Modified() bool {
	return f.dirty
}

// ToOp extracts the staged change, or (nil, false) when none is staged.
// When Enable and Disable were both called, the last call wins.
func (f *Flag) ToOp() (Op, bool) {
	if !f.dirty {
		return nil, false
	}
	return &FlagOp{Enabled: f.pending}, true
}

// Reset validates and installs a fresh snapshot and context and drops any
// staged change.
func (f *Flag) Reset(raw any, ctx Context) error {
	value, err := coerceFlagValue(raw)
	if err != nil {
		return err
	}

	f.replace(value, ctx)
	f.pending = false
	f.dirty = false
	return nil
}

func coerceFlagValue(raw any) (bool, error) {
	switch v := raw.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	default:
		return false, ErrInvalidSnapshot.WithDetails(fmt.Sprintf("flag value is %T, not bool", raw))
	}
}
