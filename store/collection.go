package store

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/jacentio/docstore/driver"
	"github.com/jacentio/docstore/filter"
)

// Collection reads and writes documents of type T in one bound collection.
// It stays usable until the handle is closed or the binding is replaced.
type Collection[T any] struct {
	handle  *Handle
	binding *binding
	schema  *Schema[T]
	name    string
}

func newCollection[T any](h *Handle, b *binding, schema *Schema[T]) *Collection[T] {
	return &Collection[T]{handle: h, binding: b, schema: schema, name: b.collection}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.name }

// Schema returns the field table of T.
func (c *Collection[T]) Schema() *Schema[T] { return c.schema }

// QueryOption tunes a query.
type QueryOption func(*driver.FindOptions)

// WithLimit caps the number of documents a query yields. Zero means no limit.
func WithLimit(n int) QueryOption {
	return func(o *driver.FindOptions) {
		if n > 0 {
			o.Limit = n
		}
	}
}

// Query returns a lazy cursor over the documents matching f. Field names in
// f may be in-language names, wire names or "id"; unknown names fail with
// ErrUnmappedField before the store is contacted. Documents are fetched as
// the cursor advances and the cursor can be iterated once.
func (c *Collection[T]) Query(ctx context.Context, f filter.Filter, opts ...QueryOption) (*Cursor[T], error) {
	var o driver.FindOptions
	for _, opt := range opts {
		opt(&o)
	}

	resolved, err := c.schema.resolve(f)
	if err != nil {
		return nil, err
	}

	d, err := c.handle.activeConn(c.binding)
	if err != nil {
		return nil, err
	}

	ctx, span := c.handle.startSpan(ctx, "query", c.name, attribute.String("docstore.filter", resolved.String()))
	defer span.End()

	cur, err := d.Find(ctx, c.name, resolved, o)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	c.handle.logger.Debug("query",
		zap.String("collection", c.name),
		zap.Stringer("filter", resolved),
		zap.Int("limit", o.Limit),
	)
	return newCursor(cur, c.schema), nil
}

// All returns every document matching f.
func (c *Collection[T]) All(ctx context.Context, f filter.Filter, opts ...QueryOption) ([]*T, error) {
	cur, err := c.Query(ctx, f, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var out []*T
	for cur.Next(ctx) {
		out = append(out, cur.Doc())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// One returns the first document matching f, or ErrNotFound.
func (c *Collection[T]) One(ctx context.Context, f filter.Filter) (*T, error) {
	docs, err := c.All(ctx, f, WithLimit(1))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s where %s", ErrNotFound, c.name, f)
	}
	return docs[0], nil
}

// Exists reports whether any document matches f.
func (c *Collection[T]) Exists(ctx context.Context, f filter.Filter) (bool, error) {
	_, err := c.One(ctx, f)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the document with the given identity, or ErrNotFound.
func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	return c.One(ctx, filter.Eq(driver.IDField, id))
}

// ParseFilter parses an AIP-160 filter expression over the in-language
// field names of T and "id".
func (c *Collection[T]) ParseFilter(expr string) (filter.Filter, error) {
	f, err := filter.Parse(expr, c.schema.Idents()...)
	if err != nil {
		return filter.Filter{}, err
	}
	if _, err := c.schema.resolve(f); err != nil {
		return filter.Filter{}, err
	}
	return f, nil
}
