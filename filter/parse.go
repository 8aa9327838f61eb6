package filter

import (
	"fmt"
	"strings"
	"time"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Kind is the declared type of a filterable identifier.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindFloat
	KindTime
)

// Ident declares an identifier that may appear in a parsed filter.
type Ident struct {
	Name string
	Kind Kind
}

func (k Kind) exprType() *expr.Type {
	switch k {
	case KindBool:
		return filtering.TypeBool
	case KindInt:
		return filtering.TypeInt
	case KindFloat:
		return filtering.TypeFloat
	case KindTime:
		return filtering.TypeTimestamp
	}
	return filtering.TypeString
}

// Declarations returns the AIP-160 declarations for idents.
func Declarations(idents ...Ident) (*filtering.Declarations, error) {
	opts := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	for _, id := range idents {
		opts = append(opts, filtering.DeclareIdent(id.Name, id.Kind.exprType()))
	}
	return filtering.NewDeclarations(opts...)
}

// Parse parses an AIP-160 filter expression over the declared identifiers.
// An empty expression yields All().
func Parse(s string, idents ...Ident) (Filter, error) {
	if strings.TrimSpace(s) == "" {
		return All(), nil
	}

	decls, err := Declarations(idents...)
	if err != nil {
		return Filter{}, fmt.Errorf("create declarations: %w", err)
	}

	parsed, err := filtering.ParseFilterString(s, decls)
	if err != nil {
		return Filter{}, fmt.Errorf("parse filter: %w", err)
	}
	if parsed.CheckedExpr == nil {
		return All(), nil
	}
	return translateExpr(parsed.CheckedExpr.GetExpr())
}

func translateExpr(e *expr.Expr) (Filter, error) {
	if e == nil {
		return All(), nil
	}

	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_CallExpr:
		return translateCall(kind.CallExpr)
	default:
		return Filter{}, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

var comparisons = map[string]Op{
	"_==_": OpEq, "=": OpEq,
	"_!=_": OpNe, "!=": OpNe,
	"_<_": OpLt, "<": OpLt,
	"_<=_": OpLe, "<=": OpLe,
	"_>_": OpGt, ">": OpGt,
	"_>=_": OpGe, ">=": OpGe,
}

func translateCall(call *expr.Expr_Call) (Filter, error) {
	switch call.GetFunction() {
	case "_&&_", "AND", "FUZZY":
		args, err := translateArgs(call.GetArgs())
		if err != nil {
			return Filter{}, err
		}
		return And(args...), nil
	case "_||_", "OR":
		args, err := translateArgs(call.GetArgs())
		if err != nil {
			return Filter{}, err
		}
		return Or(args...), nil
	case "!_", "NOT", "-":
		if len(call.GetArgs()) != 1 {
			return Filter{}, fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := translateExpr(call.GetArgs()[0])
		if err != nil {
			return Filter{}, err
		}
		return Not(inner), nil
	}

	op, ok := comparisons[call.GetFunction()]
	if !ok {
		return Filter{}, fmt.Errorf("unsupported function: %s", call.GetFunction())
	}
	return translateComparison(op, call.GetArgs())
}

func translateArgs(args []*expr.Expr) ([]Filter, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("logical operator requires at least 2 arguments")
	}
	out := make([]Filter, 0, len(args))
	for _, a := range args {
		f, err := translateExpr(a)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func translateComparison(op Op, args []*expr.Expr) (Filter, error) {
	if len(args) != 2 {
		return Filter{}, fmt.Errorf("comparison requires 2 arguments")
	}

	field, err := extractFieldName(args[0])
	if err != nil {
		return Filter{}, err
	}

	value, err := extractValue(args[1])
	if err != nil {
		return Filter{}, err
	}

	return cmp(op, field, value), nil
}

func extractFieldName(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}

	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_IdentExpr:
		return kind.IdentExpr.GetName(), nil
	default:
		return "", fmt.Errorf("expected identifier, got %T", kind)
	}
}

func extractValue(e *expr.Expr) (any, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}

	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_ConstExpr:
		return extractConstValue(kind.ConstExpr)
	case *expr.Expr_IdentExpr:
		switch kind.IdentExpr.GetName() {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("unexpected identifier in value position: %s", kind.IdentExpr.GetName())
	case *expr.Expr_CallExpr:
		if kind.CallExpr.GetFunction() == "timestamp" && len(kind.CallExpr.GetArgs()) == 1 {
			return extractTimestampValue(kind.CallExpr.GetArgs()[0])
		}
		return nil, fmt.Errorf("unsupported function in value position: %s", kind.CallExpr.GetFunction())
	default:
		return nil, fmt.Errorf("expected constant or timestamp, got %T", kind)
	}
}

func extractConstValue(c *expr.Constant) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("nil constant")
	}

	switch kind := c.GetConstantKind().(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return kind.Uint64Value, nil
	case *expr.Constant_DoubleValue:
		return kind.DoubleValue, nil
	case *expr.Constant_BoolValue:
		return kind.BoolValue, nil
	case *expr.Constant_NullValue:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}

func extractTimestampValue(e *expr.Expr) (time.Time, error) {
	if e == nil {
		return time.Time{}, fmt.Errorf("nil timestamp argument")
	}

	c, ok := e.GetExprKind().(*expr.Expr_ConstExpr)
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp argument must be a constant string")
	}
	s, ok := c.ConstExpr.GetConstantKind().(*expr.Constant_StringValue)
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp argument must be a string")
	}
	t, err := time.Parse(time.RFC3339Nano, s.StringValue)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp format: %s", s.StringValue)
	}
	return t.UTC(), nil
}
