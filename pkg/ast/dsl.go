package ast

// Identifier and literal helpers.

func ID(name string) *Identifier {
	return NewIdentifier(name)
}

func Int(value int64) *IntegerLiteral {
	return NewIntegerLiteral(value)
}

func Bool(value bool) *BooleanLiteral {
	return NewBooleanLiteral(value)
}

// Operator helpers.

func Bin(op string, left, right Expression) *BinaryExpression {
	return NewBinaryExpression(op, left, right)
}

func Many(op string, operands ...Expression) *VariadicExpression {
	return NewVariadicExpression(op, operands)
}

func Not(operand Expression) *UnaryExpression {
	return NewUnaryExpression(UnaryOperatorNot, operand)
}

func If(test, then, otherwise Expression) *IfExpression {
	return NewIfExpression(test, then, otherwise)
}

// Function helpers.

func Params(names ...string) []*Identifier {
	out := make([]*Identifier, 0, len(names))
	for _, name := range names {
		out = append(out, ID(name))
	}
	return out
}

func Fun(params []*Identifier, body Expression) *FunctionLiteral {
	return NewFunctionLiteral(params, body)
}

func Call(name string, args ...Expression) *FunctionCall {
	return NewFunctionCall(ID(name), args)
}

func CallExpr(callee Expression, args ...Expression) *FunctionCall {
	return NewFunctionCall(callee, args)
}

// Statement helpers.

func Def(name string, value Expression) *VariableDefinition {
	return NewVariableDefinition(ID(name), value)
}

func DefFn(name string, params []*Identifier, body Expression) *FunctionDefinition {
	return NewFunctionDefinition(ID(name), params, body)
}

func PrintN(expr Expression) *PrintStatement {
	return NewPrintStatement(PrintNum, expr)
}

func PrintB(expr Expression) *PrintStatement {
	return NewPrintStatement(PrintBool, expr)
}

func Mod(body ...Statement) *Module {
	return NewModule(body)
}
