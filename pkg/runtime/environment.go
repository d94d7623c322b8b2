package runtime

import (
	"sort"
)

// Environment is one scope frame in a lexical chain. The frame without a
// parent is the global frame.
type Environment struct {
	values map[string]Value
	parent *Environment
}

// NewEnvironment creates a new environment, optionally nested under a parent.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{
		values: make(map[string]Value),
		parent: parent,
	}
}

// Global walks to the outermost frame.
func (e *Environment) Global() *Environment {
	env := e
	for env.parent != nil {
		env = env.parent
	}
	return env
}

// Snapshot returns a copy of the current frame's bindings.
func (e *Environment) Snapshot() map[string]Value {
	out := make(map[string]Value, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// Define inserts or overwrites a binding in this frame only.
func (e *Environment) Define(name string, value Value) {
	e.values[name] = value
}

// Has reports whether this frame (not its parents) binds name.
func (e *Environment) Has(name string) bool {
	_, ok := e.values[name]
	return ok
}

// Get retrieves a binding, searching outward through the scope chain.
func (e *Environment) Get(name string) (Value, error) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.values[name]; ok {
			return v, nil
		}
	}
	return nil, Errorf(ErrorUnboundVariable, "Undefined variable '%s'", name)
}

// Keys returns the bindings in sorted order (useful for determinism in tests).
func (e *Environment) Keys() []string {
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Extend creates a new child scope of e.
func (e *Environment) Extend() *Environment {
	return NewEnvironment(e)
}

// Depth counts the frames between e and the global frame.
func (e *Environment) Depth() int {
	depth := 0
	for env := e.parent; env != nil; env = env.parent {
		depth++
	}
	return depth
}
