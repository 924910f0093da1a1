package datatype

import (
	"fmt"
	"sort"
	"strings"
)

// MapKey identifies a map member: members with the same name but different
// types are distinct entries.
type MapKey struct {
	Name string
	Type string
}

// wireKey renders the key in the store's wire form. The type name comes
// last so the name may itself contain underscores.
func (k MapKey) wireKey() string {
	return k.Name + "_" + k.Type
}

// splitWireKey parses a wire key by splitting on the last underscore.
func splitWireKey(key string) (MapKey, error) {
	i := strings.LastIndex(key, "_")
	if i <= 0 || i == len(key)-1 {
		return MapKey{}, ErrInvalidSnapshot.WithDetails("malformed map key: " + key)
	}

	k := MapKey{Name: key[:i], Type: key[i+1:]}
	if !validMemberType(k.Type) {
		return MapKey{}, ErrInvalidSnapshot.WithDetails("unknown member type in map key: " + key)
	}
	return k, nil
}

// Map is a convergent key-value composite whose members are themselves
// datatypes. Members are keyed by (name, type) pairs; the same name may
// hold a set and a counter side by side.
//
// Accessors (Sets, Counters, Flags, Registers, Maps) materialize an empty
// member on first access; members inherit the map's causal context, so a
// member operation that needs a context works iff the map was fetched with
// one. The read view (Len, Keys, Get) reflects the fetched snapshot only.
//
// Reset rebuilds all members from the fresh snapshot; member values
// obtained from accessors before the reset are detached afterwards.
type Map struct {
	staged[map[MapKey]Datatype]

	updates map[MapKey]Datatype
	removes map[MapKey]struct{}
}

// NewMap creates an empty map with no causal context and nothing staged.
func NewMap() *Map {
	return &Map{
		staged:  staged[map[MapKey]Datatype]{value: map[MapKey]Datatype{}},
		updates: make(map[MapKey]Datatype),
		removes: make(map[MapKey]struct{}),
	}
}

// TypeName returns the wire name of the datatype.
func (m *Map) TypeName() string {
	return TypeNameMap
}

// Sets returns the set member with the given name, materializing an empty
// one on first access.
func (m *Map) Sets(name string) *Set {
	return member(m, name, TypeNameSet, NewSet)
}

// Counters returns the counter member with the given name, materializing
// an empty one on first access.
func (m *Map) Counters(name string) *Counter {
	return member(m, name, TypeNameCounter, NewCounter)
}

// Flags returns the flag member with the given name, materializing an
// empty one on first access.
func (m *Map) Flags(name string) *Flag {
	return member(m, name, TypeNameFlag, NewFlag)
}

// Registers returns the register member with the given name, materializing
// an empty one on first access.
func (m *Map) Registers(name string) *Register {
	return member(m, name, TypeNameRegister, NewRegister)
}

// Maps returns the nested map member with the given name, materializing an
// empty one on first access.
func (m *Map) Maps(name string) *Map {
	return member(m, name, TypeNameMap, NewMap)
}

// member looks up a typed member in the snapshot, then among materialized
// members, and finally creates one carrying the map's context.
func member[T Datatype](m *Map, name, typeName string, create func() T) T {
	key := MapKey{Name: name, Type: typeName}

	if child, ok := m.value[key]; ok {
		return child.(T)
	}
	if child, ok := m.updates[key]; ok {
		return child.(T)
	}

	child := create()
	setMemberContext(child, m.ctx)
	m.updates[key] = child
	return child
}

// setMemberContext hands the parent's causal context to a member, so
// context-gated member operations are permitted exactly when the map
// itself was fetched with a context.
func setMemberContext(child Datatype, ctx Context) {
	switch c := child.(type) {
	case *Set:
		c.ctx = ctx.Clone()
	case *Counter:
		c.ctx = ctx.Clone()
	case *Flag:
		c.ctx = ctx.Clone()
	case *Register:
		c.ctx = ctx.Clone()
	case *Map:
		c.ctx = ctx.Clone()
	}
}

// Get returns the snapshot member for the given name and type. Members
// materialized by accessors but not yet committed are not visible.
func (m *Map) Get(name, typeName string) (Datatype, bool) {
	child, ok := m.value[MapKey{Name: name, Type: typeName}]
	return child, ok
}

// Len returns the number of members in the snapshot.
func (m *Map) Len() int {
	return len(m.value)
}

// Keys returns the snapshot member keys sorted by name, then type.
func (m *Map) Keys() []MapKey {
	keys := make([]MapKey, 0, len(m.value))
	for key := range m.value {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Type < keys[j].Type
	})
	return keys
}

// Remove stages removal of a member. Like set removal this requires a
// causal context. A staged removal cancels any pending operations of a
// locally materialized member with the same key.
func (m *Map) Remove(name, typeName string) error {
	if !validMemberType(typeName) {
		return ErrUnknownDatatype.WithDetails(typeName)
	}
	if err := checkElement(name); err != nil {
		return err
	}
	if err := m.requireContext(); err != nil {
		return err
	}

	key := MapKey{Name: name, Type: typeName}
	m.removes[key] = struct{}{}
	delete(m.updates, key)
	return nil
}

// Modified reports whether any member has staged mutations or any removal
// is staged.
func (m *Map) Modified() bool {
	if len(m.removes) > 0 {
		return true
	}
	for _, child := range m.value {
		if child.Modified() {
			return true
		}
	}
	for _, child := range m.updates {
		if child.Modified() {
			return true
		}
	}
	return false
}

// ToOp gathers the deltas of all modified members plus staged removals.
// Members staged for removal contribute no update; the removal wins.
// Returns (nil, false) when nothing is staged anywhere in the composite.
func (m *Map) ToOp() (Op, bool) {
	updates := make(map[string]Op)
	collect := func(key MapKey, child Datatype) {
		if _, removed := m.removes[key]; removed {
			return
		}
		if op, ok := child.ToOp(); ok {
			updates[key.wireKey()] = op
		}
	}
	for key, child := range m.value {
		collect(key, child)
	}
	for key, child := range m.updates {
		collect(key, child)
	}

	if len(updates) == 0 && len(m.removes) == 0 {
		return nil, false
	}

	op := &MapOp{}
	if len(updates) > 0 {
		op.Updates = updates
	}
	if len(m.removes) > 0 {
		removes := make([]string, 0, len(m.removes))
		for key := range m.removes {
			removes = append(removes, key.wireKey())
		}
		sort.Strings(removes)
		op.Removes = removes
	}
	return op, true
}

// Reset validates and installs a fresh snapshot and context, rebuilding
// all members and clearing every staged mutation, including members that
// were materialized but never modified. The whole raw value is validated
// before anything is replaced.
func (m *Map) Reset(raw any, ctx Context) error {
	value, err := coerceMapValue(raw, ctx)
	if err != nil {
		return err
	}

	m.replace(value, ctx)
	m.updates = make(map[MapKey]Datatype)
	m.removes = make(map[MapKey]struct{})
	return nil
}

// coerceMapValue reifies a decoded wire map into typed members, handing
// the new context down to each of them.
func coerceMapValue(raw any, ctx Context) (map[MapKey]Datatype, error) {
	switch v := raw.(type) {
	case nil:
		return map[MapKey]Datatype{}, nil
	case map[string]any:
		value := make(map[MapKey]Datatype, len(v))
		for wireKey, memberRaw := range v {
			key, err := splitWireKey(wireKey)
			if err != nil {
				return nil, err
			}
			child := newMember(key.Type)
			if err := child.Reset(memberRaw, ctx); err != nil {
				return nil, err
			}
			value[key] = child
		}
		return value, nil
	default:
		return nil, ErrInvalidSnapshot.WithDetails(fmt.Sprintf("map value is %T, not an object", raw))
	}
}

// validMemberType reports whether the type name is usable inside a map.
func validMemberType(typeName string) bool {
	switch typeName {
	case TypeNameCounter, TypeNameSet, TypeNameMap, TypeNameFlag, TypeNameRegister:
		return true
	default:
		return false
	}
}

// newMember builds an empty member. Callers check validMemberType first.
func newMember(typeName string) Datatype {
	switch typeName {
	case TypeNameCounter:
		return NewCounter()
	case TypeNameSet:
		return NewSet()
	case TypeNameMap:
		return NewMap()
	case TypeNameFlag:
		return NewFlag()
	case TypeNameRegister:
		return NewRegister()
	default:
		return nil
	}
}
