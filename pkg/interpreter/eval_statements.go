package interpreter

import (
	"fmt"

	"minilisp/interpreter-go/pkg/ast"
	"minilisp/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateStatement(node ast.Statement, env *runtime.Environment) (runtime.Value, error) {
	switch n := node.(type) {
	case *ast.VariableDefinition:
		return nil, i.evaluateVariableDefinition(n, env)
	case *ast.FunctionDefinition:
		return nil, i.evaluateFunctionDefinition(n.ID, n.Params, n.Body)
	case *ast.PrintStatement:
		return nil, i.evaluatePrintStatement(n, env)
	case *ast.FunctionLiteral:
		// A literal that is never called has nothing to do.
		return nil, nil
	case ast.Expression:
		return i.evaluateExpression(n, env)
	case nil:
		return nil, fmt.Errorf("interpreter: nil statement")
	default:
		return nil, fmt.Errorf("unsupported statement type: %s", n.NodeType())
	}
}

func (i *Interpreter) evaluateVariableDefinition(def *ast.VariableDefinition, env *runtime.Environment) error {
	if def.ID == nil {
		return fmt.Errorf("interpreter: definition without a name")
	}
	if lit, ok := def.Value.(*ast.FunctionLiteral); ok {
		return i.evaluateFunctionDefinition(def.ID, lit.Params, lit.Body)
	}
	val, err := i.evaluateExpression(def.Value, env)
	if err != nil {
		return err
	}
	global := env.Global()
	if global.Has(def.ID.Name) {
		// Named bodies may read this binding; cached results are stale now.
		i.memo.Reset()
		i.tracef("redefine %s = %s (memo reset)", def.ID.Name, runtime.FormatValue(val))
	} else {
		i.tracef("define %s = %s", def.ID.Name, runtime.FormatValue(val))
	}
	global.Define(def.ID.Name, val)
	return nil
}

func (i *Interpreter) evaluateFunctionDefinition(id *ast.Identifier, params []*ast.Identifier, body ast.Expression) error {
	if id == nil {
		return fmt.Errorf("interpreter: function definition without a name")
	}
	fn := &runtime.FunctionValue{
		ID:      i.newFunctionID(),
		Name:    id.Name,
		Params:  params,
		Body:    body,
		Closure: i.global,
	}
	if i.functions.Has(id.Name) {
		// Callers cached results computed with the old body.
		i.memo.Reset()
		i.tracef("redefine function %s/%d (memo reset)", fn.Name, fn.Arity())
	} else {
		i.tracef("define function %s/%d", fn.Name, fn.Arity())
	}
	i.functions.Register(id.Name, fn)
	return nil
}

func (i *Interpreter) evaluatePrintStatement(stmt *ast.PrintStatement, env *runtime.Environment) error {
	val, err := i.evaluateExpression(stmt.Expression, env)
	if err != nil {
		return err
	}
	switch stmt.Kind {
	case ast.PrintNum:
		if _, ok := val.(runtime.IntegerValue); !ok {
			return typeMismatch(stmt, "print-num expects integer, got %s", val.Kind())
		}
	case ast.PrintBool:
		if _, ok := val.(runtime.BoolValue); !ok {
			return typeMismatch(stmt, "print-bool expects bool, got %s", val.Kind())
		}
	default:
		return fmt.Errorf("unsupported print kind %q", stmt.Kind)
	}
	_, err = fmt.Fprintln(i.stdout, runtime.FormatValue(val))
	return err
}
