package datatype

import (
	"sort"
	"sync"
)

// Stable wire names of the built-in datatypes.
const (
	TypeNameCounter  = "counter"
	TypeNameSet      = "set"
	TypeNameMap      = "map"
	TypeNameFlag     = "flag"
	TypeNameRegister = "register"
)

// Factory constructs an empty instance of a datatype.
type Factory func() Datatype

// registry maps type names to factories. The built-in table is populated
// here, in one place, so reification is deterministic and does not depend
// on import side effects. Flags and registers are deliberately absent:
// the store only exposes them as map members, never as bucket values.
type registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var defaultRegistry = &registry{
	factories: map[string]Factory{
		TypeNameCounter: func() Datatype { return NewCounter() },
		TypeNameSet:     func() Datatype { return NewSet() },
		TypeNameMap:     func() Datatype { return NewMap() },
	},
}

// New constructs an empty instance of the named datatype. Unknown names
// fail with ErrUnknownDatatype.
func New(name string) (Datatype, error) {
	defaultRegistry.mu.RLock()
	factory, ok := defaultRegistry.factories[name]
	defaultRegistry.mu.RUnlock()

	if !ok {
		return nil, ErrUnknownDatatype.WithDetails(name)
	}
	return factory(), nil
}

// Register adds a custom datatype factory under the given name. Registering
// an empty name, a nil factory, or a name that is already taken fails with
// ErrInvalidArgument.
func Register(name string, factory Factory) error {
	if name == "" {
		return ErrInvalidArgument.WithDetails("datatype name is empty")
	}
	if factory == nil {
		return ErrInvalidArgument.WithDetails("datatype factory is nil")
	}

	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()

	if _, exists := defaultRegistry.factories[name]; exists {
		return ErrInvalidArgument.WithDetails("datatype already registered: " + name)
	}
	defaultRegistry.factories[name] = factory
	return nil
}

// Registered returns the registered type names in sorted order.
func Registered() []string {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()

	names := make([]string, 0, len(defaultRegistry.factories))
	for name := range defaultRegistry.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
