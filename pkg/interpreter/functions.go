package interpreter

import (
	"sort"

	"minilisp/interpreter-go/pkg/runtime"
)

// FunctionRegistry holds named functions for the lifetime of an interpreter.
type FunctionRegistry struct {
	entries map[string]*runtime.FunctionValue
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{entries: make(map[string]*runtime.FunctionValue)}
}

// Register binds name to fn, replacing any earlier definition.
func (r *FunctionRegistry) Register(name string, fn *runtime.FunctionValue) {
	r.entries[name] = fn
}

// Has reports whether name is registered.
func (r *FunctionRegistry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Lookup returns the function bound to name or an UndefinedFunction error.
func (r *FunctionRegistry) Lookup(name string) (*runtime.FunctionValue, error) {
	if fn, ok := r.entries[name]; ok {
		return fn, nil
	}
	return nil, runtime.Errorf(runtime.ErrorUndefinedFunction, "Undefined function '%s'", name)
}

// Names returns the registered names in sorted order.
func (r *FunctionRegistry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered functions.
func (r *FunctionRegistry) Len() int {
	return len(r.entries)
}
