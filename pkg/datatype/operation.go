package datatype

import "encoding/json"

// Op is the minimal delta a datatype ships to the store instead of its full
// state. Concrete payloads marshal to the JSON bodies of the data API; the
// transport layer treats them opaquely.
type Op interface {
	isOp()
}

// SetOp is the delta of an observed-remove set. A dimension is present only
// when its staging container was non-empty; an omitted field means "no
// change along that dimension", which is distinct from an empty list.
type SetOp struct {
	Adds    []string `json:"adds,omitempty"`
	Removes []string `json:"removes,omitempty"`
}

func (*SetOp) isOp() {}

// CounterOp is the accumulated counter delta. Negative increments decrement.
type CounterOp struct {
	Increment int64 `json:"increment"`
}

func (*CounterOp) isOp() {}

// RegisterOp assigns a new register value, resolved last-write-wins by the
// store.
type RegisterOp struct {
	Assign string `json:"assign"`
}

func (*RegisterOp) isOp() {}

// FlagOp enables or disables a flag. Disabling carries the causal context
// of the enclosing operation.
type FlagOp struct {
	Enabled bool `json:"enabled"`
}

func (*FlagOp) isOp() {}

// MapOp is the composite delta of a map: member operations keyed by wire
// key ("name_type") plus staged member removals.
type MapOp struct {
	Updates map[string]Op `json:"updates,omitempty"`
	Removes []string      `json:"removes,omitempty"`
}

func (*MapOp) isOp() {}

// RawOp is a pre-encoded operation payload. The operation journal stores
// deltas as JSON and replays them without reconstructing typed ops.
type RawOp json.RawMessage

func (RawOp) isOp() {}

// MarshalJSON emits the raw payload verbatim.
func (r RawOp) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return []byte(r), nil
}

// UnmarshalJSON stores the payload verbatim.
func (r *RawOp) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}
