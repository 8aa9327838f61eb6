package store

import (
	"fmt"
	"math"
	"time"

	"github.com/jacentio/docstore/driver"
	"github.com/jacentio/docstore/filter"
)

// Value lists the Go types a mapped field may have.
type Value interface {
	string | bool | int | int64 | float64 | time.Time
}

// Field maps one struct field of T to its wire name.
type Field[T any] struct {
	name  string
	wire  string
	kind  filter.Kind
	get   func(*T) any
	set   func(*T, any) error
	check func(*T) error
	equal func(a, b *T) bool
}

// Map declares a field named name, stored under wire, reached through ptr.
//
//	store.Map("Age", "ag", func(u *User) *int { return &u.Age })
func Map[T any, V Value](name, wire string, ptr func(*T) *V) Field[T] {
	return Field[T]{
		name: name,
		wire: wire,
		kind: kindOf[V](),
		get:  func(doc *T) any { return *ptr(doc) },
		set: func(doc *T, v any) error {
			val, err := coerce[V](v)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrFieldType, name, err)
			}
			*ptr(doc) = val
			return nil
		},
		check: func(doc *T) error {
			if err := checkValue(*ptr(doc)); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrFieldType, name, err)
			}
			return nil
		},
		equal: func(a, b *T) bool { return equalValues(*ptr(a), *ptr(b)) },
	}
}

// Name returns the in-language field name.
func (f Field[T]) Name() string { return f.name }

// Wire returns the name used when talking to the store.
func (f Field[T]) Wire() string { return f.wire }

// Kind returns the filter kind of the field's values.
func (f Field[T]) Kind() filter.Kind { return f.kind }

// Schema is the field table of a document type. It is consulted by plain
// lookups and needs no store connection.
type Schema[T any] struct {
	fields []Field[T]
	index  map[string]int
}

// NewSchema validates and indexes a field table.
func NewSchema[T any](fields ...Field[T]) (*Schema[T], error) {
	s := &Schema[T]{
		fields: append([]Field[T](nil), fields...),
		index:  make(map[string]int, 2*len(fields)),
	}
	for i, f := range s.fields {
		if f.name == "" || f.get == nil || f.check == nil {
			return nil, fmt.Errorf("%w: field %d has no name or accessor", ErrInvalidSchema, i)
		}
		if err := driver.ValidateFieldName(f.wire); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
		}
		if isIdentity(f.name) || isIdentity(f.wire) {
			return nil, fmt.Errorf("%w: field %s uses the reserved identity name", ErrInvalidSchema, f.name)
		}
		for _, key := range []string{f.name, f.wire} {
			if j, dup := s.index[key]; dup && j != i {
				return nil, fmt.Errorf("%w: name %q is used by more than one field", ErrInvalidSchema, key)
			}
			s.index[key] = i
		}
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error. It is meant for
// package-level schema variables.
func MustSchema[T any](fields ...Field[T]) *Schema[T] {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the mapped fields in declaration order.
func (s *Schema[T]) Fields() []Field[T] {
	return append([]Field[T](nil), s.fields...)
}

// Field looks a field up by in-language name or wire name.
func (s *Schema[T]) Field(name string) (Field[T], error) {
	i, ok := s.index[name]
	if !ok {
		return Field[T]{}, fmt.Errorf("%w: %s", ErrUnmappedField, name)
	}
	return s.fields[i], nil
}

// Wire resolves an in-language name, a wire name or the identity ("id" /
// "ID") to the wire name.
func (s *Schema[T]) Wire(name string) (string, error) {
	if isIdentity(name) {
		return driver.IDField, nil
	}
	f, err := s.Field(name)
	if err != nil {
		return "", err
	}
	return f.wire, nil
}

// Encode returns the wire form of doc's mapped fields. The identity is not included.
func (s *Schema[T]) Encode(doc *T) driver.Record {
	rec := make(driver.Record, len(s.fields))
	for _, f := range s.fields {
		rec[f.wire] = filter.Normalize(f.get(doc))
	}
	return rec
}

// Decode builds a persisted document from a record. Missing fields keep
// their zero value. If id is empty the record's identity is used.
func (s *Schema[T]) Decode(id string, rec driver.Record) (*T, error) {
	doc := new(T)
	for _, f := range s.fields {
		v, ok := rec[f.wire]
		if !ok || v == nil {
			continue
		}
		if err := f.set(doc, v); err != nil {
			return nil, err
		}
	}
	if id == "" {
		id = rec.ID()
	}
	if m, ok := metaOf(doc); ok {
		m.id = id
		m.state = Persisted
	}
	return doc, nil
}

// check validates the values doc holds in fields before they are written.
func (s *Schema[T]) check(doc *T, fields []Field[T]) error {
	for _, f := range fields {
		if err := f.check(doc); err != nil {
			return err
		}
	}
	return nil
}

// Idents returns filter declarations for the in-language field names.
func (s *Schema[T]) Idents() []filter.Ident {
	idents := []filter.Ident{{Name: driver.IDField, Kind: filter.KindString}}
	for _, f := range s.fields {
		idents = append(idents, filter.Ident{Name: f.name, Kind: f.kind})
	}
	return idents
}

// resolve rewrites field references in f to wire names.
func (s *Schema[T]) resolve(f filter.Filter) (filter.Filter, error) {
	return f.Rename(s.Wire)
}

// Changed returns the wire names of the fields whose values differ between
// a and b, in declaration order.
func (s *Schema[T]) Changed(a, b *T) []string {
	var names []string
	for _, f := range s.diff(a, b) {
		names = append(names, f.wire)
	}
	return names
}

// diff returns the fields whose values differ between a and b.
func (s *Schema[T]) diff(a, b *T) []Field[T] {
	var changed []Field[T]
	for _, f := range s.fields {
		if !f.equal(a, b) {
			changed = append(changed, f)
		}
	}
	return changed
}

func isIdentity(name string) bool {
	return name == driver.IDField || name == "ID"
}

func kindOf[V Value]() filter.Kind {
	var zero V
	switch any(zero).(type) {
	case bool:
		return filter.KindBool
	case int, int64:
		return filter.KindInt
	case float64:
		return filter.KindFloat
	case time.Time:
		return filter.KindTime
	}
	return filter.KindString
}

func equalValues[V Value](a, b V) bool {
	switch x := any(a).(type) {
	case time.Time:
		return x.Equal(any(b).(time.Time))
	case float64:
		y := any(b).(float64)
		return x == y || (math.IsNaN(x) && math.IsNaN(y))
	}
	return any(a) == any(b)
}

// checkValue rejects values no backend can store.
func checkValue[V Value](v V) error {
	if x, ok := any(v).(float64); ok && (math.IsNaN(x) || math.IsInf(x, 0)) {
		return fmt.Errorf("%v is not a finite number", x)
	}
	return nil
}

// coerce converts a wire value (or an equivalent driver encoding) to V.
func coerce[V Value](v any) (V, error) {
	var out V
	if v == nil {
		return out, nil
	}
	n := filter.Normalize(v)
	switch p := any(&out).(type) {
	case *string:
		s, ok := n.(string)
		if !ok {
			return out, fmt.Errorf("want string, got %T", v)
		}
		*p = s
	case *bool:
		b, ok := n.(bool)
		if !ok {
			return out, fmt.Errorf("want bool, got %T", v)
		}
		*p = b
	case *int:
		i, err := toInt64(n)
		if err != nil {
			return out, err
		}
		*p = int(i)
	case *int64:
		i, err := toInt64(n)
		if err != nil {
			return out, err
		}
		*p = i
	case *float64:
		switch x := n.(type) {
		case float64:
			*p = x
		case int64:
			*p = float64(x)
		default:
			return out, fmt.Errorf("want number, got %T", v)
		}
		if err := checkValue(*p); err != nil {
			return out, err
		}
	case *time.Time:
		t, err := toTime(v)
		if err != nil {
			return out, err
		}
		*p = t
	}
	return out, nil
}

func toInt64(n any) (int64, error) {
	switch x := n.(type) {
	case int64:
		return x, nil
	case float64:
		if x != math.Trunc(x) || x > math.MaxInt64 || x < math.MinInt64 {
			return 0, fmt.Errorf("number %v is not an integer", x)
		}
		return int64(x), nil
	}
	return 0, fmt.Errorf("want integer, got %T", n)
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case string:
		if t, err := time.Parse(filter.TimeLayout, x); err == nil {
			return t, nil
		}
		t, err := time.Parse(time.RFC3339Nano, x)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse time %q: %w", x, err)
		}
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("want time, got %T", v)
}
