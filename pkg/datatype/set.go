package datatype

import (
	"fmt"
	"sort"
)

// Set is a convergent set of strings with observed-remove semantics.
//
// Additions and removals are staged locally and shipped as a delta via
// ToOp. Removal is only safe relative to a causal history the local replica
// has actually observed, so Discard requires a context from the store;
// Add never does, because adding cannot conflict with content the remover
// has not seen.
//
// The read view (Contains, Len, Elements, Range) reflects the snapshot
// only. An element staged with Add does not appear in reads until a commit
// round-trip has completed and Reset installed a snapshot containing it.
type Set struct {
	staged[map[string]struct{}]

	adds    map[string]struct{}
	removes map[string]struct{}
}

// NewSet creates an empty set with no causal context and nothing staged.
func NewSet() *Set {
	return &Set{
		staged:  staged[map[string]struct{}]{value: map[string]struct{}{}},
		adds:    make(map[string]struct{}),
		removes: make(map[string]struct{}),
	}
}

// TypeName returns the wire name of the datatype.
func (s *Set) TypeName() string {
	return TypeNameSet
}

// Add stages an element for addition. Adding an element that is already
// staged or already present is a no-op beyond ensuring membership; it may
// be used as an assertion that the element is a member.
func (s *Set) Add(element string) error {
	if err := checkElement(element); err != nil {
		return err
	}
	s.adds[element] = struct{}{}
	return nil
}

// Discard stages an element for removal. A causal context from the store is
// required; without one Discard fails with ErrContextRequired and stages
// nothing. Discarding an element absent from the snapshot is legal; the
// store treats it as a no-op.
func (s *Set) Discard(element string) error {
	if err := checkElement(element); err != nil {
		return err
	}
	if err := s.requireContext(); err != nil {
		return err
	}
	s.removes[element] = struct{}{}
	return nil
}

// Modified reports whether any adds or removes are staged.
func (s *Set) Modified() bool {
	return len(s.adds) > 0 || len(s.removes) > 0
}

// ToOp extracts the staged delta. It returns (nil, false) when nothing is
// staged. A dimension with an empty staging container is omitted from the
// delta entirely. Slices are sorted so identical staging states produce
// identical wire payloads.
func (s *Set) ToOp() (Op, bool) {
	if len(s.adds) == 0 && len(s.removes) == 0 {
		return nil, false
	}

	op := &SetOp{}
	if len(s.adds) > 0 {
		op.Adds = sortedElements(s.adds)
	}
	if len(s.removes) > 0 {
		op.Removes = sortedElements(s.removes)
	}
	return op, true
}

// Contains reports whether the snapshot contains the element. Staged adds
// and removes never affect the result.
func (s *Set) Contains(element string) bool {
	_, ok := s.value[element]
	return ok
}

// Len returns the number of elements in the snapshot.
func (s *Set) Len() int {
	return len(s.value)
}

// Elements returns the snapshot elements as a sorted copy.
func (s *Set) Elements() []string {
	return sortedElements(s.value)
}

// Range calls fn for each snapshot element until fn returns false.
// Iteration order is unspecified.
func (s *Set) Range(fn func(element string) bool) {
	for element := range s.value {
		if !fn(element) {
			return
		}
	}
}

// Reset validates and installs a fresh snapshot and context, clearing all
// staged adds and removes. On validation failure the set is left untouched.
func (s *Set) Reset(raw any, ctx Context) error {
	value, err := coerceSetValue(raw)
	if err != nil {
		return err
	}

	s.replace(value, ctx)
	s.adds = make(map[string]struct{})
	s.removes = make(map[string]struct{})
	return nil
}

// coerceSetValue converts an externally supplied raw value into the
// immutable snapshot representation. Accepted shapes are nil, []string, and
// []any with string members, matching what a decoded store response yields.
func coerceSetValue(raw any) (map[string]struct{}, error) {
	switch v := raw.(type) {
	case nil:
		return map[string]struct{}{}, nil
	case []string:
		value := make(map[string]struct{}, len(v))
		for _, element := range v {
			value[element] = struct{}{}
		}
		return value, nil
	case []any:
		value := make(map[string]struct{}, len(v))
		for _, member := range v {
			element, ok := member.(string)
			if !ok {
				return nil, ErrInvalidElement.WithDetails(fmt.Sprintf("set member is %T, not string", member))
			}
			value[element] = struct{}{}
		}
		return value, nil
	default:
		return nil, ErrInvalidSnapshot.WithDetails(fmt.Sprintf("set value is %T, not a string collection", raw))
	}
}

func sortedElements(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for element := range set {
		out = append(out, element)
	}
	sort.Strings(out)
	return out
}
