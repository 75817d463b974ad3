// Package calculator implements the calculator tool: it evaluates a
// numeric arithmetic expression safely by parsing it as a Go expression
// with go/parser and walking only a whitelisted subset of the resulting
// AST (literals, +, -, *, /, %, ** for power, parentheses, unary +/-). No arbitrary code
// ever runs — any node outside that whitelist is rejected before
// evaluation starts.
package calculator

import (
	"context"
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
	"strings"

	"github.com/baliwise/ragcore/internal/tool"
)

// Tool implements tool.Tool for arithmetic evaluation.
type Tool struct{}

// New creates a calculator tool.
func New() *Tool { return &Tool{} }

func (t *Tool) Name() string { return "calculator" }

func (t *Tool) Description() string {
	return "Evaluates an arithmetic expression (numbers, + - * / %, parentheses) and returns the numeric result."
}

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "expression": {"type": "string", "description": "Arithmetic expression to evaluate, e.g. \"(3 + 4) * 2\""}
  },
  "required": ["expression"]
}`)
}

type input struct {
	Expression string `json:"expression"`
}

func (t *Tool) Execute(_ context.Context, params json.RawMessage) (*tool.Result, error) {
	var in input
	if err := json.Unmarshal(params, &in); err != nil {
		return &tool.Result{Content: fmt.Sprintf("invalid params: %v", err), IsError: true}, nil
	}
	expr := strings.TrimSpace(in.Expression)
	if expr == "" {
		return &tool.Result{Content: "expression is required", IsError: true}, nil
	}

	result, err := Evaluate(expr)
	if err != nil {
		return &tool.Result{Content: fmt.Sprintf("could not evaluate %q: %v", expr, err), IsError: true}, nil
	}
	return &tool.Result{Content: fmt.Sprintf("%s = %s", expr, formatFloat(result))}, nil
}

// Evaluate parses and evaluates a whitelisted arithmetic expression. "**"
// is accepted as the power operator by rewriting it to Go's "^" token
// before parsing, since "**" is not itself a valid Go binary operator.
func Evaluate(expr string) (float64, error) {
	node, err := parser.ParseExpr(strings.ReplaceAll(expr, "**", "^"))
	if err != nil {
		return 0, fmt.Errorf("not a valid expression: %w", err)
	}
	return evalNode(node)
}

func evalNode(node ast.Expr) (float64, error) {
	switch n := node.(type) {
	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return 0, fmt.Errorf("unsupported literal kind")
		}
		return strconv.ParseFloat(n.Value, 64)
	case *ast.ParenExpr:
		return evalNode(n.X)
	case *ast.UnaryExpr:
		v, err := evalNode(n.X)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.ADD:
			return v, nil
		case token.SUB:
			return -v, nil
		default:
			return 0, fmt.Errorf("unsupported unary operator %s", n.Op)
		}
	case *ast.BinaryExpr:
		left, err := evalNode(n.X)
		if err != nil {
			return 0, err
		}
		right, err := evalNode(n.Y)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.ADD:
			return left + right, nil
		case token.SUB:
			return left - right, nil
		case token.MUL:
			return left * right, nil
		case token.XOR:
			return math.Pow(left, right), nil
		case token.QUO:
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return left / right, nil
		case token.REM:
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			return float64(int64(left) % int64(right)), nil
		default:
			return 0, fmt.Errorf("unsupported operator %s", n.Op)
		}
	default:
		return 0, fmt.Errorf("unsupported expression of type %T", node)
	}
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
