package sqlite

import (
	"fmt"
	"strings"

	"github.com/jacentio/docstore/driver"
	"github.com/jacentio/docstore/filter"
)

// Condition is a SQL WHERE clause fragment with positional parameters.
type Condition struct {
	Clause string
	Params []any
}

var sqlOps = map[filter.Op]string{
	filter.OpEq: "=",
	filter.OpNe: "!=",
	filter.OpLt: "<",
	filter.OpLe: "<=",
	filter.OpGt: ">",
	filter.OpGe: ">=",
}

// Where translates f into a condition over the id and data columns.
func Where(f filter.Filter) (Condition, error) {
	switch f.Op {
	case filter.OpAll:
		return Condition{Clause: "1 = 1"}, nil
	case filter.OpAnd, filter.OpOr:
		return whereLogical(f)
	case filter.OpNot:
		if len(f.Args) != 1 {
			return Condition{}, fmt.Errorf("%w: NOT requires 1 argument", driver.ErrUnsupportedFilter)
		}
		inner, err := Where(f.Args[0])
		if err != nil {
			return Condition{}, err
		}
		// A comparison against a missing field is NULL; treat it as false
		// before negating.
		return Condition{
			Clause: fmt.Sprintf("NOT COALESCE((%s), 0)", inner.Clause),
			Params: inner.Params,
		}, nil
	}
	return whereComparison(f)
}

func whereLogical(f filter.Filter) (Condition, error) {
	sep := " AND "
	if f.Op == filter.OpOr {
		sep = " OR "
	}
	var clauses []string
	var params []any
	for _, a := range f.Args {
		c, err := Where(a)
		if err != nil {
			return Condition{}, err
		}
		clauses = append(clauses, c.Clause)
		params = append(params, c.Params...)
	}
	return Condition{
		Clause: "(" + strings.Join(clauses, sep) + ")",
		Params: params,
	}, nil
}

func whereComparison(f filter.Filter) (Condition, error) {
	op, ok := sqlOps[f.Op]
	if !ok {
		return Condition{}, fmt.Errorf("%w: operator %s", driver.ErrUnsupportedFilter, f.Op)
	}
	column, err := columnFor(f.Field)
	if err != nil {
		return Condition{}, err
	}

	value := filter.Normalize(f.Value)
	switch v := value.(type) {
	case nil:
		switch f.Op {
		case filter.OpEq:
			return Condition{Clause: column + " IS NULL"}, nil
		case filter.OpNe:
			return Condition{Clause: column + " IS NOT NULL"}, nil
		}
		return Condition{}, fmt.Errorf("%w: ordering against null", driver.ErrUnsupportedFilter)
	case bool:
		// json_extract yields 1/0 for JSON booleans.
		if v {
			value = int64(1)
		} else {
			value = int64(0)
		}
	case string, int64, float64:
	default:
		return Condition{}, fmt.Errorf("%w: value of type %T", driver.ErrUnsupportedFilter, v)
	}

	if f.Op == filter.OpNe {
		return Condition{
			Clause: fmt.Sprintf("(%s IS NULL OR %s != ?)", column, column),
			Params: []any{value},
		}, nil
	}
	return Condition{
		Clause: fmt.Sprintf("%s %s ?", column, op),
		Params: []any{value},
	}, nil
}

func columnFor(field string) (string, error) {
	if field == driver.IDField {
		return "id", nil
	}
	if err := driver.ValidateFieldName(field); err != nil {
		return "", err
	}
	return fmt.Sprintf("json_extract(data, '$.%s')", field), nil
}
