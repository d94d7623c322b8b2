package interpreter

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"minilisp/interpreter-go/pkg/ast"
	"minilisp/interpreter-go/pkg/runtime"
)

// Options configures a new Interpreter.
type Options struct {
	// Stdout receives print output. Defaults to os.Stdout.
	Stdout io.Writer
	// DisableMemo turns off call memoisation; results are unchanged, only the
	// amount of work differs.
	DisableMemo bool
	// Trace, when set, records definitions, calls, and memo hits.
	Trace *log.Logger
}

// Interpreter evaluates minilisp modules. It owns all state that outlives a
// single call: the global frame, the function registry, and the memo cache.
// An Interpreter is not safe for concurrent use.
type Interpreter struct {
	global    *runtime.Environment
	functions *FunctionRegistry
	memo      *Memoizer
	stdout    io.Writer
	trace     *log.Logger
	memoOn    bool
	nextFnID  uint64
	stats     Stats
}

// Stats counts call activity since the interpreter was created.
type Stats struct {
	// Calls is the number of function invocations that passed the arity check.
	Calls int
	// BodyEvaluations is the number of calls whose body was actually evaluated.
	BodyEvaluations int
	// MemoHits is the number of calls answered from the memo cache.
	MemoHits int
}

// New returns an interpreter with an empty global environment writing to os.Stdout.
func New() *Interpreter {
	return NewWithOptions(Options{})
}

// NewWithOptions returns an interpreter configured by opts.
func NewWithOptions(opts Options) *Interpreter {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	return &Interpreter{
		global:    runtime.NewEnvironment(nil),
		functions: NewFunctionRegistry(),
		memo:      NewMemoizer(),
		stdout:    out,
		trace:     opts.Trace,
		memoOn:    !opts.DisableMemo,
	}
}

// GlobalEnvironment returns the interpreter's global environment.
func (i *Interpreter) GlobalEnvironment() *runtime.Environment {
	return i.global
}

// Functions exposes the named-function registry.
func (i *Interpreter) Functions() *FunctionRegistry {
	return i.functions
}

// Memo exposes the call memoizer.
func (i *Interpreter) Memo() *Memoizer {
	return i.memo
}

// Stats returns a copy of the call counters.
func (i *Interpreter) Stats() Stats {
	return i.stats
}

// EvaluateModule executes a module's statements in order and returns the
// value of the last statement (nil for definitions and prints) along with the
// global environment. The first runtime error stops evaluation; output already
// written stays written.
func (i *Interpreter) EvaluateModule(module *ast.Module) (runtime.Value, *runtime.Environment, error) {
	if module == nil {
		return nil, nil, fmt.Errorf("interpreter: module is nil")
	}
	var last runtime.Value
	for _, stmt := range module.Body {
		val, err := i.evaluateStatement(stmt, i.global)
		if err != nil {
			return nil, i.global, err
		}
		last = val
	}
	return last, i.global, nil
}

// CallFunction invokes a registered function with already-evaluated arguments.
func (i *Interpreter) CallFunction(name string, args []runtime.Value) (runtime.Value, error) {
	fn, err := i.functions.Lookup(name)
	if err != nil {
		return nil, err
	}
	return i.invokeFunction(fn, args)
}

// State is a point-in-time description of the interpreter, for debug dumps.
type State struct {
	Globals   map[string]string
	Functions []string
	Memo      MemoStats
	Calls     Stats
}

// Snapshot describes the global frame, registry, and counters.
func (i *Interpreter) Snapshot() State {
	globals := make(map[string]string)
	bindings := i.global.Snapshot()
	for _, name := range i.global.Keys() {
		globals[name] = runtime.FormatValue(bindings[name])
	}
	return State{
		Globals:   globals,
		Functions: i.functions.Names(),
		Memo:      i.memo.Stats(),
		Calls:     i.stats,
	}
}

func (i *Interpreter) newFunctionID() uint64 {
	i.nextFnID++
	return i.nextFnID
}

func (i *Interpreter) tracef(format string, args ...any) {
	if i.trace == nil {
		return
	}
	i.trace.Printf(format, args...)
}

// attachNode records where a runtime error arose. Only the innermost node is
// kept as the error propagates outward.
func attachNode(err error, node ast.Node) error {
	var rtErr *runtime.Error
	if errors.As(err, &rtErr) && rtErr.Node == "" && node != nil {
		rtErr.Node = node.NodeType()
	}
	return err
}

func typeMismatch(node ast.Node, format string, args ...any) error {
	return attachNode(runtime.Errorf(runtime.ErrorTypeMismatch, format, args...), node)
}
