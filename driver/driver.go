// Package driver defines the boundary between the document mapping layer
// and a concrete document store.
//
// A driver exposes five primitives: connect (the driver's own Open),
// collection lookup/creation, filtered find, single-document
// insert/update/delete, and translation of a filter.Filter into the store's
// query language. Records crossing the boundary hold wire names and wire
// values (see filter.Normalize).
package driver

import (
	"context"
	"errors"

	"github.com/jacentio/docstore/filter"
)

// IDField is the wire name of the identity attribute in every collection.
const IDField = "id"

var (
	// ErrNoDocument is returned by UpdateOne and DeleteOne when no document
	// has the given identity.
	ErrNoDocument = errors.New("driver: no document with that id")

	// ErrDuplicateID is returned by InsertOne when the generated identity collides.
	ErrDuplicateID = errors.New("driver: duplicate document id")

	// ErrClosed is returned by any operation on a closed connection.
	ErrClosed = errors.New("driver: connection is closed")

	// ErrUnsupportedFilter is returned when a filter cannot be expressed in
	// the store's query language.
	ErrUnsupportedFilter = errors.New("driver: unsupported filter")

	// ErrNoCollection is returned when an operation targets a missing collection.
	ErrNoCollection = errors.New("driver: collection does not exist")

	// ErrCollectionExists is returned by CreateCollection when the name is taken.
	ErrCollectionExists = errors.New("driver: collection already exists")

	// ErrInvalidName is returned for collection or field names the store cannot address.
	ErrInvalidName = errors.New("driver: invalid name")
)

// Record is a document in wire form: wire name to wire value.
type Record map[string]any

// Clone returns a shallow copy of r. Wire values are immutable.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ID returns the identity held in r, or "" if absent.
func (r Record) ID() string {
	s, _ := r[IDField].(string)
	return s
}

// FindOptions tunes a Find call.
type FindOptions struct {
	// Limit caps the number of records the cursor yields (0 = no limit).
	Limit int
}

// Driver is a live connection to a document store.
// Implementations must be safe for concurrent use.
type Driver interface {
	// Backend names the store implementation (e.g. "dynamodb").
	Backend() string

	// CollectionExists reports whether the named collection exists.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// CreateCollection creates the named collection.
	CreateCollection(ctx context.Context, name string) error

	// ListCollections returns the names of all collections.
	ListCollections(ctx context.Context) ([]string, error)

	// Find returns a cursor over the records of a collection matching f.
	// Order is unspecified.
	Find(ctx context.Context, collection string, f filter.Filter, opts FindOptions) (Cursor, error)

	// InsertOne stores rec and returns the identity assigned by the store.
	// Any IDField in rec is ignored.
	InsertOne(ctx context.Context, collection string, rec Record) (string, error)

	// UpdateOne sets the given fields on the document with identity id.
	UpdateOne(ctx context.Context, collection, id string, set Record) error

	// DeleteOne removes the document with identity id.
	DeleteOne(ctx context.Context, collection, id string) error

	// Clone opens a new connection with the same settings, backed by the same store.
	Clone(ctx context.Context) (Driver, error)

	// Close releases the connection.
	Close() error
}

// Cursor iterates over the result of a Find. It is single pass.
type Cursor interface {
	// Next advances to the next record, fetching from the store as needed.
	Next(ctx context.Context) bool

	// Record returns the current record. Valid after Next returns true.
	Record() Record

	// Err returns the error that stopped iteration, if any.
	Err() error

	// Close releases resources held by the cursor.
	Close() error
}

// SliceCursor is a Cursor over records already in memory.
type SliceCursor struct {
	records []Record
	pos     int
	cur     Record
	closed  bool
	err     error
}

// NewSliceCursor returns a cursor yielding records in order.
func NewSliceCursor(records []Record) *SliceCursor {
	return &SliceCursor{records: records}
}

// Next advances to the next record.
func (c *SliceCursor) Next(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		c.err = err
	}
	if c.closed || c.err != nil || c.pos >= len(c.records) {
		c.cur = nil
		return false
	}
	c.cur = c.records[c.pos]
	c.pos++
	return true
}

// Record returns the current record.
func (c *SliceCursor) Record() Record { return c.cur }

// Err returns the error that stopped iteration, if any.
func (c *SliceCursor) Err() error { return c.err }

// Close ends iteration.
func (c *SliceCursor) Close() error {
	c.closed = true
	return nil
}
