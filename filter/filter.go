// Package filter provides a store-neutral predicate tree used to select
// documents. Drivers translate a Filter into their native query language;
// the memory driver evaluates it in process with Match.
package filter

import (
	"fmt"
	"strings"
)

// Op is the operator of a Filter node.
type Op int

const (
	// OpAll matches every document. It is the zero value.
	OpAll Op = iota
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpNot
)

var opNames = map[Op]string{
	OpAll: "ALL",
	OpEq:  "=",
	OpNe:  "!=",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
	OpAnd: "AND",
	OpOr:  "OR",
	OpNot: "NOT",
}

// String returns the operator as written in filter strings.
func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// IsComparison reports whether o compares a field against a value.
func (o Op) IsComparison() bool {
	return o >= OpEq && o <= OpGe
}

// Filter is a node in a predicate tree.
//
// Comparison nodes use Field and Value. Logical nodes (AND, OR, NOT) use Args.
// The zero Filter matches every document.
type Filter struct {
	Op    Op
	Field string
	Value any
	Args  []Filter
}

// All returns a filter matching every document.
func All() Filter { return Filter{} }

// Eq matches documents whose field equals v.
func Eq(field string, v any) Filter { return cmp(OpEq, field, v) }

// Ne matches documents whose field differs from v.
func Ne(field string, v any) Filter { return cmp(OpNe, field, v) }

// Lt matches documents whose field is less than v.
func Lt(field string, v any) Filter { return cmp(OpLt, field, v) }

// Le matches documents whose field is less than or equal to v.
func Le(field string, v any) Filter { return cmp(OpLe, field, v) }

// Gt matches documents whose field is greater than v.
func Gt(field string, v any) Filter { return cmp(OpGt, field, v) }

// Ge matches documents whose field is greater than or equal to v.
func Ge(field string, v any) Filter { return cmp(OpGe, field, v) }

func cmp(op Op, field string, v any) Filter {
	return Filter{Op: op, Field: field, Value: Normalize(v)}
}

// And matches documents satisfying every filter. Match-all arguments are
// dropped; And() with nothing left is All().
func And(fs ...Filter) Filter {
	args := make([]Filter, 0, len(fs))
	for _, f := range fs {
		if f.IsAll() {
			continue
		}
		args = append(args, f)
	}
	switch len(args) {
	case 0:
		return All()
	case 1:
		return args[0]
	}
	return Filter{Op: OpAnd, Args: args}
}

// Or matches documents satisfying at least one filter. If any argument
// matches everything, so does the result. Or() with no arguments is All().
func Or(fs ...Filter) Filter {
	for _, f := range fs {
		if f.IsAll() {
			return All()
		}
	}
	switch len(fs) {
	case 0:
		return All()
	case 1:
		return fs[0]
	}
	return Filter{Op: OpOr, Args: append([]Filter(nil), fs...)}
}

// Not negates f.
func Not(f Filter) Filter {
	if f.Op == OpNot && len(f.Args) == 1 {
		return f.Args[0]
	}
	return Filter{Op: OpNot, Args: []Filter{f}}
}

// IsAll reports whether f matches every document.
func (f Filter) IsAll() bool {
	return f.Op == OpAll
}

// Fields returns the distinct field names referenced by f, in first-seen order.
func (f Filter) Fields() []string {
	seen := make(map[string]bool)
	var out []string
	f.walk(func(n Filter) {
		if n.Op.IsComparison() && !seen[n.Field] {
			seen[n.Field] = true
			out = append(out, n.Field)
		}
	})
	return out
}

func (f Filter) walk(fn func(Filter)) {
	fn(f)
	for _, a := range f.Args {
		a.walk(fn)
	}
}

// Rename returns a copy of f with every field name passed through fn.
func (f Filter) Rename(fn func(string) (string, error)) (Filter, error) {
	out := Filter{Op: f.Op, Value: f.Value}
	if f.Op.IsComparison() {
		name, err := fn(f.Field)
		if err != nil {
			return Filter{}, err
		}
		out.Field = name
	}
	if len(f.Args) > 0 {
		out.Args = make([]Filter, len(f.Args))
		for i, a := range f.Args {
			r, err := a.Rename(fn)
			if err != nil {
				return Filter{}, err
			}
			out.Args[i] = r
		}
	}
	return out, nil
}

// IDLookup reports whether f is a single equality on field, returning the
// compared string value. Drivers use it to turn identity lookups into key reads.
func (f Filter) IDLookup(field string) (string, bool) {
	if f.Op != OpEq || f.Field != field {
		return "", false
	}
	s, ok := f.Value.(string)
	return s, ok
}

// String renders f in AIP-160 syntax. It is meant for logs.
func (f Filter) String() string {
	switch f.Op {
	case OpAll:
		return ""
	case OpAnd, OpOr:
		parts := make([]string, len(f.Args))
		for i, a := range f.Args {
			parts[i] = "(" + a.String() + ")"
		}
		return strings.Join(parts, " "+f.Op.String()+" ")
	case OpNot:
		if len(f.Args) == 0 {
			return "NOT ()"
		}
		return "NOT (" + f.Args[0].String() + ")"
	}
	return fmt.Sprintf("%s %s %s", f.Field, f.Op, literal(f.Value))
}

func literal(v any) string {
	switch x := v.(type) {
	case string:
		return fmt.Sprintf("%q", x)
	case nil:
		return "null"
	}
	return fmt.Sprint(v)
}
