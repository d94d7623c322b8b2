package runtime

import (
	"fmt"
	"strconv"
	"strings"

	"minilisp/interpreter-go/pkg/ast"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindInteger Kind = iota
	KindBool
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindBool:
		return "bool"
	case KindFunction:
		return "function"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values.
type Value interface {
	Kind() Kind
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type IntegerValue struct {
	Val int64
}

func (v IntegerValue) Kind() Kind { return KindInteger }

type BoolValue struct {
	Val bool
}

func (v BoolValue) Kind() Kind { return KindBool }

//-----------------------------------------------------------------------------
// Functions & closures
//-----------------------------------------------------------------------------

// FunctionValue is a callable: a named definition owned by the function
// registry, or a closure materialised from a function literal. ID is unique
// per materialisation and is the function's identity for memoisation.
type FunctionValue struct {
	ID      uint64
	Name    string
	Params  []*ast.Identifier
	Body    ast.Expression
	Closure *Environment
}

func (v *FunctionValue) Kind() Kind { return KindFunction }

// Arity returns the declared parameter count.
func (v *FunctionValue) Arity() int {
	return len(v.Params)
}

// DisplayName is used in diagnostics.
func (v *FunctionValue) DisplayName() string {
	if v.Name == "" {
		return "<anonymous>"
	}
	return v.Name
}

//-----------------------------------------------------------------------------
// Utility helpers
//-----------------------------------------------------------------------------

// ValuesEqual reports structural equality; values of different kinds are never equal.
func ValuesEqual(left, right Value) bool {
	switch lv := left.(type) {
	case IntegerValue:
		if rv, ok := right.(IntegerValue); ok {
			return lv.Val == rv.Val
		}
	case BoolValue:
		if rv, ok := right.(BoolValue); ok {
			return lv.Val == rv.Val
		}
	case *FunctionValue:
		if rv, ok := right.(*FunctionValue); ok {
			return lv.ID == rv.ID
		}
	}
	return false
}

// FormatValue renders a value the way print statements do.
func FormatValue(val Value) string {
	switch v := val.(type) {
	case IntegerValue:
		return strconv.FormatInt(v.Val, 10)
	case BoolValue:
		if v.Val {
			return "#t"
		}
		return "#f"
	case *FunctionValue:
		return fmt.Sprintf("#<function %s>", v.DisplayName())
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("[%s]", v.Kind())
	}
}

// AppendKey writes a stable, kind-tagged encoding of val into b. Equal values
// always produce equal encodings.
func AppendKey(b *strings.Builder, val Value) {
	switch v := val.(type) {
	case IntegerValue:
		b.WriteByte('i')
		b.WriteString(strconv.FormatInt(v.Val, 10))
	case BoolValue:
		if v.Val {
			b.WriteString("b1")
		} else {
			b.WriteString("b0")
		}
	case *FunctionValue:
		b.WriteByte('f')
		b.WriteString(strconv.FormatUint(v.ID, 10))
	default:
		b.WriteString("?")
	}
	b.WriteByte(';')
}
