package store

import (
	"reflect"
)

// binding associates a document type with a collection on one handle.
type binding struct {
	// typ is the document type (T, not *T).
	typ reflect.Type

	// collection is the collection name in the store.
	collection string

	// schema is the *Schema[T] supplied at bind time.
	schema any
}

// registry holds the bindings of one handle. It is not safe for concurrent
// use; Handle guards it with its mutex.
type registry struct {
	bindings map[reflect.Type]*binding
}

func newRegistry() *registry {
	return &registry{bindings: make(map[reflect.Type]*binding)}
}

// register adds b, failing if its type is already bound.
func (r *registry) register(b *binding) error {
	if _, ok := r.bindings[b.typ]; ok {
		return ErrDuplicateBinding
	}
	r.bindings[b.typ] = b
	return nil
}

// lookup returns the binding for typ.
func (r *registry) lookup(typ reflect.Type) (*binding, bool) {
	b, ok := r.bindings[typ]
	return b, ok
}

// active reports whether b is the current binding of its type.
func (r *registry) active(b *binding) bool {
	cur, ok := r.bindings[b.typ]
	return ok && cur == b
}

// clone copies every binding into a new registry. The copies are distinct
// values, so collections of the source registry are not active in the clone.
func (r *registry) clone() *registry {
	out := newRegistry()
	for typ, b := range r.bindings {
		cp := *b
		out.bindings[typ] = &cp
	}
	return out
}

// clear removes every binding.
func (r *registry) clear() {
	r.bindings = make(map[reflect.Type]*binding)
}

// snapshot returns type name to collection name.
func (r *registry) snapshot() map[string]string {
	out := make(map[string]string, len(r.bindings))
	for typ, b := range r.bindings {
		out[typ.String()] = b.collection
	}
	return out
}
