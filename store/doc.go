// Package store maps typed Go documents onto collections of a document store.
//
// A [Handle] owns one store connection and a table of bindings from document
// types to collections. Binding a type returns a [Collection] that performs
// reads and writes for that type.
//
// # Key Features
//
//   - Explicit per-handle binding table (no process-wide state)
//   - Declared field tables with separate wire names
//   - Lazy single-pass query cursors
//   - Diffed whole-document updates that write only changed fields
//   - Interchangeable backends: memory, SQLite and DynamoDB
//
// # Documents
//
// Document types embed [Meta], which carries the store-assigned identity
// and the lifecycle state (Transient, Persisted, Deleted):
//
//	type User struct {
//	    store.Meta
//	    Name string
//	    Age  int
//	}
//
//	var userSchema = store.MustSchema(
//	    store.Map("Name", "nm", func(u *User) *string { return &u.Name }),
//	    store.Map("Age", "ag", func(u *User) *int { return &u.Age }),
//	)
//
// # Usage
//
//	h, err := store.Open(ctx, store.DefaultConfig())
//	users, err := store.Bind(ctx, h, "users", userSchema, store.CreateIfMissing())
//
//	u := &User{Name: "Ann", Age: 30}
//	err = users.Insert(ctx, u)
//
//	u.Age = 31
//	fields, err := users.SyncAll(ctx, u) // ["ag"]
//
// # Errors
//
// The package defines domain-specific errors:
//
//   - [ErrConnection] - the store could not be opened (see [ConnectionError])
//   - [ErrCollectionNotFound] - collection absent and creation not requested
//   - [ErrDuplicateBinding] - type already bound on the handle
//   - [ErrHandleClosed] - handle was closed
//   - [ErrUnmappedField] - field name has no wire-name mapping
//   - [ErrNotFound] - no document matched
//   - [ErrStaleDocument] - the document was removed from the store
//   - [ErrInsert], [ErrWrite] - the store rejected a write
//   - [ErrNotPersisted], [ErrDeleted] - write not allowed in the document's state
package store
