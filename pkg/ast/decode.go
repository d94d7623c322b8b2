package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// DecodeModule constructs a module from a JSON document. Integers are read
// exactly; values outside the int64 range are rejected.
func DecodeModule(data []byte) (*Module, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode module json: %w", err)
	}
	return ModuleFromDocument(raw)
}

// ModuleFromDocument decodes a generic document and requires the root to be a Module.
func ModuleFromDocument(raw map[string]any) (*Module, error) {
	node, err := DecodeNode(raw)
	if err != nil {
		return nil, err
	}
	mod, ok := node.(*Module)
	if !ok {
		return nil, fmt.Errorf("decoded node is %s, want Module", node.NodeType())
	}
	return mod, nil
}

// DecodeNode builds an AST node from its generic document form (the shape
// produced by encoding/json or yaml.v3 when decoding into map[string]any).
// Every object carries a "type" key naming its NodeType.
func DecodeNode(node map[string]any) (Node, error) {
	typ, _ := node["type"].(string)
	switch NodeType(typ) {
	case NodeModule:
		bodyVal, err := listField(node, "body")
		if err != nil {
			return nil, err
		}
		stmts := make([]Statement, 0, len(bodyVal))
		for idx, raw := range bodyVal {
			child, err := decodeChild(raw)
			if err != nil {
				return nil, fmt.Errorf("module body[%d]: %w", idx, err)
			}
			stmt, ok := child.(Statement)
			if !ok {
				return nil, fmt.Errorf("module body[%d]: %s is not a statement", idx, child.NodeType())
			}
			stmts = append(stmts, stmt)
		}
		return NewModule(stmts), nil
	case NodeIntegerLiteral:
		val, err := decodeInteger(node["value"])
		if err != nil {
			return nil, err
		}
		return NewIntegerLiteral(val), nil
	case NodeBooleanLiteral:
		val, ok := node["value"].(bool)
		if !ok {
			return nil, fmt.Errorf("BooleanLiteral value must be a bool, got %T", node["value"])
		}
		return NewBooleanLiteral(val), nil
	case NodeIdentifier:
		name, _ := node["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("Identifier missing name")
		}
		return NewIdentifier(name), nil
	case NodeUnaryExpression:
		op, _ := node["operator"].(string)
		if UnaryOperator(op) != UnaryOperatorNot {
			return nil, fmt.Errorf("unsupported unary operator %q", op)
		}
		operand, err := expressionField(node, "operand")
		if err != nil {
			return nil, err
		}
		return NewUnaryExpression(UnaryOperatorNot, operand), nil
	case NodeBinaryExpression:
		op, _ := node["operator"].(string)
		if !IsBinaryOperator(op) {
			return nil, fmt.Errorf("unsupported binary operator %q", op)
		}
		left, err := expressionField(node, "left")
		if err != nil {
			return nil, err
		}
		right, err := expressionField(node, "right")
		if err != nil {
			return nil, err
		}
		return NewBinaryExpression(op, left, right), nil
	case NodeVariadicExpression:
		op, _ := node["operator"].(string)
		if !IsVariadicOperator(op) {
			return nil, fmt.Errorf("operator %q cannot take a variable number of operands", op)
		}
		operands, err := expressionList(node, "operands")
		if err != nil {
			return nil, err
		}
		if len(operands) < 2 {
			return nil, fmt.Errorf("operator %q needs at least two operands, got %d", op, len(operands))
		}
		return NewVariadicExpression(op, operands), nil
	case NodeIfExpression:
		test, err := expressionField(node, "test")
		if err != nil {
			return nil, err
		}
		then, err := expressionField(node, "then")
		if err != nil {
			return nil, err
		}
		otherwise, err := expressionField(node, "else")
		if err != nil {
			return nil, err
		}
		return NewIfExpression(test, then, otherwise), nil
	case NodeFunctionLiteral:
		params, err := identifierList(node, "params")
		if err != nil {
			return nil, err
		}
		body, err := expressionField(node, "body")
		if err != nil {
			return nil, err
		}
		return NewFunctionLiteral(params, body), nil
	case NodeFunctionCall:
		callee, err := expressionField(node, "callee")
		if err != nil {
			return nil, err
		}
		switch callee.(type) {
		case *Identifier, *FunctionLiteral:
		default:
			return nil, fmt.Errorf("FunctionCall callee must be Identifier or FunctionLiteral, got %s", callee.NodeType())
		}
		args, err := expressionList(node, "arguments")
		if err != nil {
			return nil, err
		}
		return NewFunctionCall(callee, args), nil
	case NodeVariableDefinition:
		id, err := identifierField(node, "id")
		if err != nil {
			return nil, err
		}
		value, err := expressionField(node, "value")
		if err != nil {
			return nil, err
		}
		// (define f (fun (x) ...)) names a function.
		if lit, ok := value.(*FunctionLiteral); ok {
			return NewFunctionDefinition(id, lit.Params, lit.Body), nil
		}
		return NewVariableDefinition(id, value), nil
	case NodeFunctionDefinition:
		id, err := identifierField(node, "id")
		if err != nil {
			return nil, err
		}
		params, err := identifierList(node, "params")
		if err != nil {
			return nil, err
		}
		body, err := expressionField(node, "body")
		if err != nil {
			return nil, err
		}
		return NewFunctionDefinition(id, params, body), nil
	case NodePrintStatement:
		kind, _ := node["kind"].(string)
		switch PrintKind(kind) {
		case PrintNum, PrintBool:
		default:
			return nil, fmt.Errorf("unsupported print kind %q", kind)
		}
		expr, err := expressionField(node, "expression")
		if err != nil {
			return nil, err
		}
		return NewPrintStatement(PrintKind(kind), expr), nil
	case "":
		return nil, fmt.Errorf("node missing type")
	default:
		return nil, fmt.Errorf("unsupported node type %q", typ)
	}
}

func decodeChild(raw any) (Node, error) {
	child, ok := asObject(raw)
	if !ok {
		return nil, fmt.Errorf("expected node object, got %T", raw)
	}
	return DecodeNode(child)
}

// asObject accepts both map[string]any (encoding/json, yaml.v3) and
// map[any]any (older YAML decoders).
func asObject(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, true
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			k, ok := key.(string)
			if !ok {
				return nil, false
			}
			out[k] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func listField(node map[string]any, field string) ([]any, error) {
	raw, ok := node[field]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s field %q must be a list, got %T", node["type"], field, raw)
	}
	return list, nil
}

func expressionField(node map[string]any, field string) (Expression, error) {
	raw, ok := node[field]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%s missing %q", node["type"], field)
	}
	child, err := decodeChild(raw)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", node["type"], field, err)
	}
	expr, ok := child.(Expression)
	if !ok {
		return nil, fmt.Errorf("%s.%s: %s is not an expression", node["type"], field, child.NodeType())
	}
	return expr, nil
}

func expressionList(node map[string]any, field string) ([]Expression, error) {
	list, err := listField(node, field)
	if err != nil {
		return nil, err
	}
	out := make([]Expression, 0, len(list))
	for idx, raw := range list {
		child, err := decodeChild(raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s[%d]: %w", node["type"], field, idx, err)
		}
		expr, ok := child.(Expression)
		if !ok {
			return nil, fmt.Errorf("%s.%s[%d]: %s is not an expression", node["type"], field, idx, child.NodeType())
		}
		out = append(out, expr)
	}
	return out, nil
}

// identifierField accepts either a bare string or an Identifier object.
func identifierField(node map[string]any, field string) (*Identifier, error) {
	raw, ok := node[field]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%s missing %q", node["type"], field)
	}
	return decodeIdentifier(raw)
}

func identifierList(node map[string]any, field string) ([]*Identifier, error) {
	list, err := listField(node, field)
	if err != nil {
		return nil, err
	}
	out := make([]*Identifier, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for idx, raw := range list {
		id, err := decodeIdentifier(raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s[%d]: %w", node["type"], field, idx, err)
		}
		if _, dup := seen[id.Name]; dup {
			return nil, fmt.Errorf("%s.%s: duplicate parameter %q", node["type"], field, id.Name)
		}
		seen[id.Name] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func decodeIdentifier(raw any) (*Identifier, error) {
	if name, ok := raw.(string); ok {
		if name == "" {
			return nil, fmt.Errorf("empty identifier")
		}
		return NewIdentifier(name), nil
	}
	child, err := decodeChild(raw)
	if err != nil {
		return nil, err
	}
	id, ok := child.(*Identifier)
	if !ok {
		return nil, fmt.Errorf("expected Identifier, got %s", child.NodeType())
	}
	return id, nil
}

func decodeInteger(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("integer literal %d overflows int64", v)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, fmt.Errorf("integer literal %v is not an int64", v)
		}
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("integer literal %s: %w", v, err)
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("integer literal %q: %w", v, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("IntegerLiteral value must be a number, got %T", value)
	}
}
