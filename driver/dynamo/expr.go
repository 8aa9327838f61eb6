package dynamo

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/docstore/driver"
	"github.com/jacentio/docstore/filter"
)

// Expression is a DynamoDB condition/filter expression with its placeholders.
type Expression struct {
	Condition string
	Names     map[string]string
	Values    map[string]types.AttributeValue
}

// Empty reports whether e has no condition.
func (e Expression) Empty() bool {
	return e.Condition == ""
}

var dynamoOps = map[filter.Op]string{
	filter.OpEq: "=",
	filter.OpNe: "<>",
	filter.OpLt: "<",
	filter.OpLe: "<=",
	filter.OpGt: ">",
	filter.OpGe: ">=",
}

type exprBuilder struct {
	names   map[string]string
	values  map[string]types.AttributeValue
	byField map[string]string
}

// FilterExpression translates f into a Scan filter expression. A match-all
// filter yields an empty expression.
func FilterExpression(f filter.Filter) (Expression, error) {
	if f.IsAll() {
		return Expression{}, nil
	}
	b := &exprBuilder{
		names:   make(map[string]string),
		values:  make(map[string]types.AttributeValue),
		byField: make(map[string]string),
	}
	cond, err := b.build(f)
	if err != nil {
		return Expression{}, err
	}
	return Expression{Condition: cond, Names: b.names, Values: b.values}, nil
}

func (b *exprBuilder) build(f filter.Filter) (string, error) {
	switch f.Op {
	case filter.OpAll:
		// Every item carries the key attribute.
		return fmt.Sprintf("attribute_exists(%s)", b.name(driver.IDField)), nil
	case filter.OpAnd, filter.OpOr:
		parts := make([]string, 0, len(f.Args))
		for _, a := range f.Args {
			p, err := b.build(a)
			if err != nil {
				return "", err
			}
			parts = append(parts, p)
		}
		return "(" + strings.Join(parts, " "+f.Op.String()+" ") + ")", nil
	case filter.OpNot:
		if len(f.Args) != 1 {
			return "", fmt.Errorf("%w: NOT requires 1 argument", driver.ErrUnsupportedFilter)
		}
		inner, err := b.build(f.Args[0])
		if err != nil {
			return "", err
		}
		return "(NOT " + inner + ")", nil
	}
	return b.comparison(f)
}

func (b *exprBuilder) comparison(f filter.Filter) (string, error) {
	op, ok := dynamoOps[f.Op]
	if !ok {
		return "", fmt.Errorf("%w: operator %s", driver.ErrUnsupportedFilter, f.Op)
	}
	name := b.name(f.Field)

	value := filter.Normalize(f.Value)
	if value == nil {
		switch f.Op {
		case filter.OpEq:
			return fmt.Sprintf("attribute_not_exists(%s)", name), nil
		case filter.OpNe:
			return fmt.Sprintf("attribute_exists(%s)", name), nil
		}
		return "", fmt.Errorf("%w: ordering against null", driver.ErrUnsupportedFilter)
	}

	av, err := EncodeValue(value)
	if err != nil {
		return "", err
	}
	valueKey := fmt.Sprintf(":val%d", len(b.values))
	b.values[valueKey] = av

	if f.Op == filter.OpNe {
		return fmt.Sprintf("(attribute_not_exists(%s) OR %s <> %s)", name, name, valueKey), nil
	}
	return fmt.Sprintf("%s %s %s", name, op, valueKey), nil
}

func (b *exprBuilder) name(field string) string {
	if key, ok := b.byField[field]; ok {
		return key
	}
	key := fmt.Sprintf("#attr%d", len(b.byField))
	b.byField[field] = key
	b.names[key] = field
	return key
}

// UpdateExpression builds a SET expression for the given fields, skipping
// the identity attribute. Keys are emitted in sorted order.
func UpdateExpression(set driver.Record) (Expression, error) {
	keys := sortedKeys(set)
	var setClauses []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}

	i := 0
	for _, k := range keys {
		if k == driver.IDField {
			continue
		}
		av, err := EncodeValue(set[k])
		if err != nil {
			return Expression{}, fmt.Errorf("field %s: %w", k, err)
		}
		nameKey := fmt.Sprintf("#attr%d", i)
		valueKey := fmt.Sprintf(":val%d", i)
		names[nameKey] = k
		values[valueKey] = av
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
		i++
	}
	if len(setClauses) == 0 {
		return Expression{}, nil
	}
	return Expression{
		Condition: "SET " + strings.Join(setClauses, ", "),
		Names:     names,
		Values:    values,
	}, nil
}
