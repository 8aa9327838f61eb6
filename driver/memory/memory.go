// Package memory provides an in-process document store driver.
//
// Data lives only as long as the process. Connections created with Clone
// share the same data, so a copied store handle sees the same documents.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jacentio/docstore/driver"
	"github.com/jacentio/docstore/filter"
)

// Backend is the backend name reported by this driver.
const Backend = "memory"

type collection struct {
	docs  map[string]driver.Record
	order map[string]uint64
}

// data is the shared backing store.
type data struct {
	mu          sync.RWMutex
	collections map[string]*collection
	seq         uint64
}

// Driver is a connection to an in-memory store. Safe for concurrent use.
type Driver struct {
	data   *data
	closed atomic.Bool
	newID  func() string
}

var _ driver.Driver = (*Driver)(nil)

// New creates an empty in-memory store and returns a connection to it.
func New() *Driver {
	return &Driver{
		data:  &data{collections: make(map[string]*collection)},
		newID: uuid.NewString,
	}
}

// Backend returns "memory".
func (d *Driver) Backend() string { return Backend }

func (d *Driver) check(ctx context.Context) error {
	if d.closed.Load() {
		return driver.ErrClosed
	}
	return ctx.Err()
}

// CollectionExists reports whether the collection has been created.
func (d *Driver) CollectionExists(ctx context.Context, name string) (bool, error) {
	if err := d.check(ctx); err != nil {
		return false, err
	}
	d.data.mu.RLock()
	defer d.data.mu.RUnlock()
	_, ok := d.data.collections[name]
	return ok, nil
}

// CreateCollection creates an empty collection.
func (d *Driver) CreateCollection(ctx context.Context, name string) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	if err := driver.ValidateCollectionName(name); err != nil {
		return err
	}
	d.data.mu.Lock()
	defer d.data.mu.Unlock()
	if _, ok := d.data.collections[name]; ok {
		return fmt.Errorf("%w: %s", driver.ErrCollectionExists, name)
	}
	d.data.collections[name] = &collection{
		docs:  make(map[string]driver.Record),
		order: make(map[string]uint64),
	}
	return nil
}

// ListCollections returns the collection names in sorted order.
func (d *Driver) ListCollections(ctx context.Context) ([]string, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	d.data.mu.RLock()
	defer d.data.mu.RUnlock()
	names := make([]string, 0, len(d.data.collections))
	for name := range d.data.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Find evaluates f in process and returns a snapshot cursor.
func (d *Driver) Find(ctx context.Context, name string, f filter.Filter, opts driver.FindOptions) (driver.Cursor, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	d.data.mu.RLock()
	defer d.data.mu.RUnlock()
	coll, ok := d.data.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", driver.ErrNoCollection, name)
	}

	if id, ok := f.IDLookup(driver.IDField); ok {
		if rec, found := coll.docs[id]; found {
			return driver.NewSliceCursor([]driver.Record{rec.Clone()}), nil
		}
		return driver.NewSliceCursor(nil), nil
	}

	var out []driver.Record
	for _, id := range coll.sorted() {
		rec := coll.docs[id]
		if !filter.Match(f, rec) {
			continue
		}
		out = append(out, rec.Clone())
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return driver.NewSliceCursor(out), nil
}

// sorted returns ids in insertion order. Callers hold the read lock.
func (c *collection) sorted() []string {
	ids := make([]string, 0, len(c.docs))
	for id := range c.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return c.order[ids[i]] < c.order[ids[j]] })
	return ids
}

// InsertOne stores a copy of rec under a new identity and returns it.
func (d *Driver) InsertOne(ctx context.Context, name string, rec driver.Record) (string, error) {
	if err := d.check(ctx); err != nil {
		return "", err
	}
	d.data.mu.Lock()
	defer d.data.mu.Unlock()
	coll, ok := d.data.collections[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", driver.ErrNoCollection, name)
	}

	id := d.newID()
	if _, exists := coll.docs[id]; exists {
		return "", driver.ErrDuplicateID
	}
	stored := normalize(rec)
	stored[driver.IDField] = id
	coll.docs[id] = stored
	d.data.seq++
	coll.order[id] = d.data.seq
	return id, nil
}

// UpdateOne sets the given fields on the document with identity id.
func (d *Driver) UpdateOne(ctx context.Context, name, id string, set driver.Record) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	d.data.mu.Lock()
	defer d.data.mu.Unlock()
	coll, ok := d.data.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", driver.ErrNoCollection, name)
	}
	doc, ok := coll.docs[id]
	if !ok {
		return driver.ErrNoDocument
	}

	// Replace rather than mutate so snapshots handed to cursors stay intact.
	next := doc.Clone()
	for k, v := range set {
		if k == driver.IDField {
			continue
		}
		next[k] = filter.Normalize(v)
	}
	coll.docs[id] = next
	return nil
}

// DeleteOne removes the document with identity id.
func (d *Driver) DeleteOne(ctx context.Context, name, id string) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	d.data.mu.Lock()
	defer d.data.mu.Unlock()
	coll, ok := d.data.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", driver.ErrNoCollection, name)
	}
	if _, ok := coll.docs[id]; !ok {
		return driver.ErrNoDocument
	}
	delete(coll.docs, id)
	delete(coll.order, id)
	return nil
}

// Clone returns a new connection to the same data.
func (d *Driver) Clone(ctx context.Context) (driver.Driver, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	return &Driver{data: d.data, newID: d.newID}, nil
}

// Close closes this connection. The data stays reachable through clones.
func (d *Driver) Close() error {
	d.closed.Store(true)
	return nil
}

func normalize(rec driver.Record) driver.Record {
	out := make(driver.Record, len(rec))
	for k, v := range rec {
		out[k] = filter.Normalize(v)
	}
	return out
}
