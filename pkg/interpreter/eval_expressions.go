package interpreter

import (
	"fmt"

	"minilisp/interpreter-go/pkg/ast"
	"minilisp/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateExpression(node ast.Expression, env *runtime.Environment) (runtime.Value, error) {
	switch n := node.(type) {
	case *ast.IntegerLiteral:
		return runtime.IntegerValue{Val: n.Value}, nil
	case *ast.BooleanLiteral:
		return runtime.BoolValue{Val: n.Value}, nil
	case *ast.Identifier:
		val, err := env.Get(n.Name)
		if err != nil {
			return nil, attachNode(err, n)
		}
		return val, nil
	case *ast.UnaryExpression:
		return i.evaluateUnaryExpression(n, env)
	case *ast.BinaryExpression:
		return i.evaluateBinaryExpression(n, env)
	case *ast.VariadicExpression:
		return i.evaluateVariadicExpression(n, env)
	case *ast.IfExpression:
		return i.evaluateIfExpression(n, env)
	case *ast.FunctionCall:
		return i.evaluateFunctionCall(n, env)
	case *ast.FunctionLiteral:
		return nil, typeMismatch(n, "function literal cannot be used as a value")
	case nil:
		return nil, fmt.Errorf("interpreter: nil expression")
	default:
		return nil, fmt.Errorf("unsupported expression type: %s", n.NodeType())
	}
}

func (i *Interpreter) evaluateIfExpression(expr *ast.IfExpression, env *runtime.Environment) (runtime.Value, error) {
	cond, err := i.evaluateExpression(expr.Test, env)
	if err != nil {
		return nil, err
	}
	test, ok := cond.(runtime.BoolValue)
	if !ok {
		return nil, typeMismatch(expr, "if test must be bool, got %s", cond.Kind())
	}
	if test.Val {
		return i.evaluateExpression(expr.Then, env)
	}
	return i.evaluateExpression(expr.Else, env)
}

func (i *Interpreter) evaluateUnaryExpression(expr *ast.UnaryExpression, env *runtime.Environment) (runtime.Value, error) {
	operand, err := i.evaluateExpression(expr.Operand, env)
	if err != nil {
		return nil, err
	}
	switch expr.Operator {
	case ast.UnaryOperatorNot:
		if bv, ok := operand.(runtime.BoolValue); ok {
			return runtime.BoolValue{Val: !bv.Val}, nil
		}
		return nil, typeMismatch(expr, "unary 'not' expects bool, got %s", operand.Kind())
	default:
		return nil, fmt.Errorf("unsupported unary operator %s", expr.Operator)
	}
}

func (i *Interpreter) evaluateBinaryExpression(expr *ast.BinaryExpression, env *runtime.Environment) (runtime.Value, error) {
	leftVal, err := i.evaluateExpression(expr.Left, env)
	if err != nil {
		return nil, err
	}
	rightVal, err := i.evaluateExpression(expr.Right, env)
	if err != nil {
		return nil, err
	}
	result, err := applyBinaryOperator(expr.Operator, leftVal, rightVal)
	if err != nil {
		return nil, attachNode(err, expr)
	}
	return result, nil
}

// evaluateVariadicExpression folds (op a b c ...) left to right. Every operand
// is evaluated before any type check, matching the binary form.
func (i *Interpreter) evaluateVariadicExpression(expr *ast.VariadicExpression, env *runtime.Environment) (runtime.Value, error) {
	if len(expr.Operands) < 2 {
		return nil, fmt.Errorf("operator %s needs at least two operands, got %d", expr.Operator, len(expr.Operands))
	}
	values := make([]runtime.Value, 0, len(expr.Operands))
	for _, operand := range expr.Operands {
		val, err := i.evaluateExpression(operand, env)
		if err != nil {
			return nil, err
		}
		values = append(values, val)
	}

	if expr.Operator == ast.OperatorEqual {
		equal := true
		for idx, val := range values {
			if err := requireInteger(expr.Operator, val); err != nil {
				return nil, attachNode(err, expr)
			}
			if idx > 0 && !runtime.ValuesEqual(values[0], val) {
				equal = false
			}
		}
		return runtime.BoolValue{Val: equal}, nil
	}

	acc := values[0]
	for _, val := range values[1:] {
		next, err := applyBinaryOperator(expr.Operator, acc, val)
		if err != nil {
			return nil, attachNode(err, expr)
		}
		acc = next
	}
	return acc, nil
}

func applyBinaryOperator(op string, left, right runtime.Value) (runtime.Value, error) {
	switch op {
	case ast.OperatorAdd, ast.OperatorSub, ast.OperatorMul, ast.OperatorDiv, ast.OperatorMod:
		return evaluateArithmetic(op, left, right)
	case ast.OperatorGreater, ast.OperatorLess, ast.OperatorEqual:
		return evaluateComparison(op, left, right)
	case ast.OperatorAnd, ast.OperatorOr:
		return evaluateLogical(op, left, right)
	default:
		return nil, fmt.Errorf("unsupported binary operator %s", op)
	}
}

func evaluateArithmetic(op string, left, right runtime.Value) (runtime.Value, error) {
	lv, rv, err := requireIntegers(op, left, right)
	if err != nil {
		return nil, err
	}
	var result int64
	switch op {
	case ast.OperatorAdd:
		result = lv + rv
	case ast.OperatorSub:
		result = lv - rv
	case ast.OperatorMul:
		result = lv * rv
	case ast.OperatorDiv:
		if rv == 0 {
			return nil, runtime.Errorf(runtime.ErrorDivisionByZero, "division by zero")
		}
		result = floorDiv(lv, rv)
	case ast.OperatorMod:
		if rv == 0 {
			return nil, runtime.Errorf(runtime.ErrorDivisionByZero, "modulo by zero")
		}
		result = floorMod(lv, rv)
	default:
		return nil, fmt.Errorf("unsupported arithmetic operator %s", op)
	}
	return runtime.IntegerValue{Val: result}, nil
}

func evaluateComparison(op string, left, right runtime.Value) (runtime.Value, error) {
	lv, rv, err := requireIntegers(op, left, right)
	if err != nil {
		return nil, err
	}
	switch op {
	case ast.OperatorGreater:
		return runtime.BoolValue{Val: lv > rv}, nil
	case ast.OperatorLess:
		return runtime.BoolValue{Val: lv < rv}, nil
	case ast.OperatorEqual:
		return runtime.BoolValue{Val: lv == rv}, nil
	default:
		return nil, fmt.Errorf("unsupported comparison operator %s", op)
	}
}

func evaluateLogical(op string, left, right runtime.Value) (runtime.Value, error) {
	lb, lok := left.(runtime.BoolValue)
	rb, rok := right.(runtime.BoolValue)
	if !lok || !rok {
		return nil, runtime.Errorf(runtime.ErrorTypeMismatch, "operator %s expects bool operands, got %s and %s", op, left.Kind(), right.Kind())
	}
	if op == ast.OperatorAnd {
		return runtime.BoolValue{Val: lb.Val && rb.Val}, nil
	}
	return runtime.BoolValue{Val: lb.Val || rb.Val}, nil
}

func requireIntegers(op string, left, right runtime.Value) (int64, int64, error) {
	lv, lok := left.(runtime.IntegerValue)
	rv, rok := right.(runtime.IntegerValue)
	if !lok || !rok {
		return 0, 0, runtime.Errorf(runtime.ErrorTypeMismatch, "operator %s expects integer operands, got %s and %s", op, left.Kind(), right.Kind())
	}
	return lv.Val, rv.Val, nil
}

func requireInteger(op string, val runtime.Value) error {
	if _, ok := val.(runtime.IntegerValue); !ok {
		return runtime.Errorf(runtime.ErrorTypeMismatch, "operator %s expects integer operands, got %s", op, val.Kind())
	}
	return nil
}

// floorDiv rounds the quotient toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// floorMod returns a result with the sign of the divisor.
func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}
