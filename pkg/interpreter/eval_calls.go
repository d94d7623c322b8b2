package interpreter

import (
	"fmt"

	"minilisp/interpreter-go/pkg/ast"
	"minilisp/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateFunctionCall(call *ast.FunctionCall, env *runtime.Environment) (runtime.Value, error) {
	fn, err := i.resolveCallee(call.Callee, env)
	if err != nil {
		return nil, attachNode(err, call)
	}
	args := make([]runtime.Value, 0, len(call.Arguments))
	for _, argExpr := range call.Arguments {
		val, err := i.evaluateExpression(argExpr, env)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}
	result, err := i.invokeFunction(fn, args)
	if err != nil {
		return nil, attachNode(err, call)
	}
	return result, nil
}

// resolveCallee maps a call target to a function value. Named callees come
// from the registry; an inline literal becomes a closure over the calling
// environment, with a fresh identity each time it is evaluated.
func (i *Interpreter) resolveCallee(callee ast.Expression, env *runtime.Environment) (*runtime.FunctionValue, error) {
	switch c := callee.(type) {
	case *ast.Identifier:
		return i.functions.Lookup(c.Name)
	case *ast.FunctionLiteral:
		return &runtime.FunctionValue{
			ID:      i.newFunctionID(),
			Params:  c.Params,
			Body:    c.Body,
			Closure: env,
		}, nil
	case nil:
		return nil, fmt.Errorf("interpreter: call without callee")
	default:
		return nil, typeMismatch(c, "cannot call %s", c.NodeType())
	}
}

func (i *Interpreter) invokeFunction(fn *runtime.FunctionValue, args []runtime.Value) (runtime.Value, error) {
	if len(args) != fn.Arity() {
		return nil, runtime.Errorf(runtime.ErrorArityMismatch, "Function '%s' expects %d arguments, got %d", fn.DisplayName(), fn.Arity(), len(args))
	}
	i.stats.Calls++

	var key MemoKey
	if i.memoOn {
		key = NewMemoKey(fn, args)
		if cached, ok := i.memo.Get(key); ok {
			i.stats.MemoHits++
			i.tracef("memo hit %s%s", fn.DisplayName(), formatArgs(args))
			return cached, nil
		}
	}

	closure := fn.Closure
	if closure == nil {
		closure = i.global
	}
	frame := closure.Extend()
	for idx, param := range fn.Params {
		frame.Define(param.Name, args[idx])
	}

	i.stats.BodyEvaluations++
	i.tracef("call %s%s depth=%d", fn.DisplayName(), formatArgs(args), frame.Depth())
	result, err := i.evaluateExpression(fn.Body, frame)
	if err != nil {
		return nil, err
	}
	if i.memoOn {
		i.memo.Put(key, result)
	}
	return result, nil
}

func formatArgs(args []runtime.Value) string {
	out := "("
	for idx, arg := range args {
		if idx > 0 {
			out += " "
		}
		out += runtime.FormatValue(arg)
	}
	return out + ")"
}
