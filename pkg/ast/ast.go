package ast

type NodeType string

const (
	NodeIdentifier         NodeType = "Identifier"
	NodeIntegerLiteral     NodeType = "IntegerLiteral"
	NodeBooleanLiteral     NodeType = "BooleanLiteral"
	NodeUnaryExpression    NodeType = "UnaryExpression"
	NodeBinaryExpression   NodeType = "BinaryExpression"
	NodeVariadicExpression NodeType = "VariadicExpression"
	NodeIfExpression       NodeType = "IfExpression"
	NodeFunctionLiteral    NodeType = "FunctionLiteral"
	NodeFunctionCall       NodeType = "FunctionCall"
	NodeVariableDefinition NodeType = "VariableDefinition"
	NodeFunctionDefinition NodeType = "FunctionDefinition"
	NodePrintStatement     NodeType = "PrintStatement"
	NodeModule             NodeType = "Module"
)

type Node interface {
	NodeType() NodeType
	isNode()
}

type nodeImpl struct {
	Type NodeType `json:"type"`
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (nodeImpl) isNode()              {}

// Marker interfaces.

type Expression interface {
	Node
	expressionNode()
	statementNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

type Statement interface {
	Node
	statementNode()
}

type statementMarker struct{}

func (statementMarker) statementNode() {}

type Literal interface {
	Expression
	literalNode()
}

type literalMarker struct{}

func (literalMarker) literalNode() {}

// Identifier

type Identifier struct {
	nodeImpl
	expressionMarker
	statementMarker

	Name string `json:"name"`
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Name: name}
}

// Literals

type IntegerLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker
	literalMarker

	Value int64 `json:"value"`
}

func NewIntegerLiteral(value int64) *IntegerLiteral {
	return &IntegerLiteral{nodeImpl: newNodeImpl(NodeIntegerLiteral), Value: value}
}

type BooleanLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker
	literalMarker

	Value bool `json:"value"`
}

func NewBooleanLiteral(value bool) *BooleanLiteral {
	return &BooleanLiteral{nodeImpl: newNodeImpl(NodeBooleanLiteral), Value: value}
}

// Operators

type UnaryOperator string

const (
	UnaryOperatorNot UnaryOperator = "not"
)

type UnaryExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator UnaryOperator `json:"operator"`
	Operand  Expression    `json:"operand"`
}

func NewUnaryExpression(operator UnaryOperator, operand Expression) *UnaryExpression {
	return &UnaryExpression{nodeImpl: newNodeImpl(NodeUnaryExpression), Operator: operator, Operand: operand}
}

// Binary operator spellings accepted by the evaluator. OperatorModAlias is
// normalised to OperatorMod when a node is built.
const (
	OperatorAdd      = "+"
	OperatorSub      = "-"
	OperatorMul      = "*"
	OperatorDiv      = "/"
	OperatorMod      = "mod"
	OperatorModAlias = "%"
	OperatorGreater  = ">"
	OperatorLess     = "<"
	OperatorEqual    = "="
	OperatorAnd      = "and"
	OperatorOr       = "or"
)

type BinaryExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator string     `json:"operator"`
	Left     Expression `json:"left"`
	Right    Expression `json:"right"`
}

func NewBinaryExpression(operator string, left, right Expression) *BinaryExpression {
	return &BinaryExpression{nodeImpl: newNodeImpl(NodeBinaryExpression), Operator: normalizeOperator(operator), Left: left, Right: right}
}

// VariadicExpression is the n-ary form of the associative operators
// (+, *, =, and, or). It always holds at least two operands.
type VariadicExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Operator string       `json:"operator"`
	Operands []Expression `json:"operands"`
}

func NewVariadicExpression(operator string, operands []Expression) *VariadicExpression {
	return &VariadicExpression{nodeImpl: newNodeImpl(NodeVariadicExpression), Operator: normalizeOperator(operator), Operands: operands}
}

// IsVariadicOperator reports whether op may appear in a VariadicExpression.
func IsVariadicOperator(op string) bool {
	switch op {
	case OperatorAdd, OperatorMul, OperatorEqual, OperatorAnd, OperatorOr:
		return true
	default:
		return false
	}
}

// IsBinaryOperator reports whether op may appear in a BinaryExpression.
func IsBinaryOperator(op string) bool {
	switch normalizeOperator(op) {
	case OperatorAdd, OperatorSub, OperatorMul, OperatorDiv, OperatorMod,
		OperatorGreater, OperatorLess, OperatorEqual, OperatorAnd, OperatorOr:
		return true
	default:
		return false
	}
}

func normalizeOperator(op string) string {
	if op == OperatorModAlias {
		return OperatorMod
	}
	return op
}

// Control flow

type IfExpression struct {
	nodeImpl
	expressionMarker
	statementMarker

	Test Expression `json:"test"`
	Then Expression `json:"then"`
	Else Expression `json:"else"`
}

func NewIfExpression(test, then, otherwise Expression) *IfExpression {
	return &IfExpression{nodeImpl: newNodeImpl(NodeIfExpression), Test: test, Then: then, Else: otherwise}
}

// Functions

// FunctionLiteral is an anonymous `(fun (params...) body)` form.
type FunctionLiteral struct {
	nodeImpl
	expressionMarker
	statementMarker

	Params []*Identifier `json:"params"`
	Body   Expression    `json:"body"`
}

func NewFunctionLiteral(params []*Identifier, body Expression) *FunctionLiteral {
	return &FunctionLiteral{nodeImpl: newNodeImpl(NodeFunctionLiteral), Params: params, Body: body}
}

// FunctionCall invokes either a named function (Callee is *Identifier) or an
// inline literal (Callee is *FunctionLiteral).
type FunctionCall struct {
	nodeImpl
	expressionMarker
	statementMarker

	Callee    Expression   `json:"callee"`
	Arguments []Expression `json:"arguments"`
}

func NewFunctionCall(callee Expression, args []Expression) *FunctionCall {
	return &FunctionCall{nodeImpl: newNodeImpl(NodeFunctionCall), Callee: callee, Arguments: args}
}

// Definitions

type VariableDefinition struct {
	nodeImpl
	statementMarker

	ID    *Identifier `json:"id"`
	Value Expression  `json:"value"`
}

func NewVariableDefinition(id *Identifier, value Expression) *VariableDefinition {
	return &VariableDefinition{nodeImpl: newNodeImpl(NodeVariableDefinition), ID: id, Value: value}
}

type FunctionDefinition struct {
	nodeImpl
	statementMarker

	ID     *Identifier   `json:"id"`
	Params []*Identifier `json:"params"`
	Body   Expression    `json:"body"`
}

func NewFunctionDefinition(id *Identifier, params []*Identifier, body Expression) *FunctionDefinition {
	return &FunctionDefinition{nodeImpl: newNodeImpl(NodeFunctionDefinition), ID: id, Params: params, Body: body}
}

// Statements

type PrintKind string

const (
	PrintNum  PrintKind = "num"
	PrintBool PrintKind = "bool"
)

type PrintStatement struct {
	nodeImpl
	statementMarker

	Kind       PrintKind  `json:"kind"`
	Expression Expression `json:"expression"`
}

func NewPrintStatement(kind PrintKind, expr Expression) *PrintStatement {
	return &PrintStatement{nodeImpl: newNodeImpl(NodePrintStatement), Kind: kind, Expression: expr}
}

// Module

type Module struct {
	nodeImpl

	Body []Statement `json:"body"`
}

func NewModule(body []Statement) *Module {
	return &Module{nodeImpl: newNodeImpl(NodeModule), Body: body}
}
