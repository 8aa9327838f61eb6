package store

// State is the lifecycle state of a document instance.
type State int

const (
	// Transient documents have no identity and have never been inserted.
	Transient State = iota
	// Persisted documents carry a store-assigned identity.
	Persisted
	// Deleted documents were removed from their collection. Terminal.
	Deleted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Transient:
		return "transient"
	case Persisted:
		return "persisted"
	case Deleted:
		return "deleted"
	}
	return "unknown"
}

// Meta holds the identity and lifecycle state of a document. Document
// types embed it:
//
//	type User struct {
//	    store.Meta
//	    Name string
//	    Age  int
//	}
//
// Only the store assigns the identity.
type Meta struct {
	id    string
	state State
}

// ID returns the store-assigned identity, or "" for a transient document.
func (m *Meta) ID() string { return m.id }

// State returns the lifecycle state.
func (m *Meta) State() State { return m.state }

func (m *Meta) meta() *Meta { return m }

// Document is implemented by pointers to types embedding Meta.
type Document interface {
	ID() string
	State() State
	meta() *Meta
}

func metaOf[T any](doc *T) (*Meta, bool) {
	d, ok := any(doc).(Document)
	if !ok {
		return nil, false
	}
	return d.meta(), true
}
