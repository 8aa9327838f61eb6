package store

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection is returned when the store cannot be reached or opened.
	ErrConnection = errors.New("docstore: cannot connect to store")

	// ErrCollectionNotFound is returned by Bind when the collection is absent
	// and creation was not requested.
	ErrCollectionNotFound = errors.New("docstore: collection not found")

	// ErrDuplicateBinding is returned by Bind when the type is already bound on the handle.
	ErrDuplicateBinding = errors.New("docstore: document type already bound")

	// ErrNotBound is returned when a collection is used after its binding is gone.
	ErrNotBound = errors.New("docstore: document type is not bound")

	// ErrHandleClosed is returned by any operation through a closed handle.
	ErrHandleClosed = errors.New("docstore: handle is closed")

	// ErrNotDocument is returned by Bind when the type does not embed Meta.
	ErrNotDocument = errors.New("docstore: type does not embed store.Meta")

	// ErrInvalidSchema is returned by NewSchema for an inconsistent field table.
	ErrInvalidSchema = errors.New("docstore: invalid schema")

	// ErrUnmappedField is returned when a field name has no wire-name mapping.
	ErrUnmappedField = errors.New("docstore: field has no wire-name mapping")

	// ErrFieldType is returned when a value cannot be converted to a field's type.
	ErrFieldType = errors.New("docstore: value does not match field type")

	// ErrNotFound is returned by One when no document matches.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrStaleDocument is returned when a write targets a document that no
	// longer exists in the store.
	ErrStaleDocument = errors.New("docstore: document no longer exists")

	// ErrInsert is returned when the store rejects an insert.
	ErrInsert = errors.New("docstore: insert failed")

	// ErrWrite is returned when the store rejects an update or delete.
	ErrWrite = errors.New("docstore: write failed")

	// ErrAlreadyPersisted is returned by Insert on a document that has an identity.
	ErrAlreadyPersisted = errors.New("docstore: document is already persisted")

	// ErrNotPersisted is returned by writes on a document that was never inserted.
	ErrNotPersisted = errors.New("docstore: document is not persisted")

	// ErrDeleted is returned by writes on a deleted document.
	ErrDeleted = errors.New("docstore: document is deleted")

	// ErrCursorConsumed is returned when a cursor is iterated a second time.
	ErrCursorConsumed = errors.New("docstore: cursor already consumed")
)

// ConnectionError reports a failure to open a store backend.
type ConnectionError struct {
	Backend string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("docstore: connect %s: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() []error {
	return []error{ErrConnection, e.Err}
}
