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

// Insert stores a transient document. On success the store-assigned
// identity is recorded on doc and its state becomes Persisted; on failure
// doc is left unchanged.
func (c *Collection[T]) Insert(ctx context.Context, doc *T) (err error) {
	m, err := c.meta(doc)
	if err != nil {
		return err
	}
	switch m.state {
	case Persisted:
		return fmt.Errorf("%w: %s", ErrAlreadyPersisted, m.id)
	case Deleted:
		return fmt.Errorf("%w: %s", ErrDeleted, m.id)
	}

	if err := c.schema.check(doc, c.schema.fields); err != nil {
		return err
	}

	d, err := c.handle.activeConn(c.binding)
	if err != nil {
		return err
	}

	ctx, span := c.handle.startSpan(ctx, "insert", c.name)
	defer func() { endSpan(span, err) }()

	id, err := d.InsertOne(ctx, c.name, c.schema.Encode(doc))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInsert, c.name, err)
	}
	m.id = id
	m.state = Persisted

	c.handle.logger.Debug("document inserted",
		zap.String("collection", c.name),
		zap.String("id", id),
	)
	return nil
}

// SetField writes a single field of a persisted document. name may be the
// in-language or the wire name. The in-memory field is updated only after
// the store accepts the write.
func (c *Collection[T]) SetField(ctx context.Context, doc *T, name string, value any) (err error) {
	m, err := c.writable(doc)
	if err != nil {
		return err
	}
	f, err := c.schema.Field(name)
	if err != nil {
		return err
	}

	// Convert on a scratch copy so a type error leaves doc untouched.
	scratch := *doc
	if err := f.set(&scratch, value); err != nil {
		return err
	}

	d, err := c.handle.activeConn(c.binding)
	if err != nil {
		return err
	}

	ctx, span := c.handle.startSpan(ctx, "set_field", c.name,
		attribute.StringSlice("docstore.fields", []string{f.wire}),
	)
	defer func() { endSpan(span, err) }()

	set := driver.Record{f.wire: filter.Normalize(f.get(&scratch))}
	if err = c.update(ctx, d, m.id, set); err != nil {
		return err
	}
	if err = f.set(doc, value); err != nil {
		return err
	}

	c.handle.logger.Debug("field updated",
		zap.String("collection", c.name),
		zap.String("id", m.id),
		zap.String("field", f.wire),
	)
	return nil
}

// SyncAll writes the fields of doc that differ from the stored document and
// returns their wire names. Nothing is written when no field differs.
//
// The read and the write are not atomic. Concurrent writers to the same
// document resolve field by field with the last write winning. If the
// document is gone from the store SyncAll fails with ErrStaleDocument.
func (c *Collection[T]) SyncAll(ctx context.Context, doc *T) (written []string, err error) {
	m, err := c.writable(doc)
	if err != nil {
		return nil, err
	}

	d, err := c.handle.activeConn(c.binding)
	if err != nil {
		return nil, err
	}

	ctx, span := c.handle.startSpan(ctx, "sync_all", c.name)
	defer func() {
		span.SetAttributes(attribute.StringSlice("docstore.fields", written))
		endSpan(span, err)
	}()

	stored, err := c.fetch(ctx, d, m.id)
	if err != nil {
		return nil, err
	}

	changed := c.schema.diff(stored, doc)
	if len(changed) == 0 {
		c.handle.logger.Debug("document in sync",
			zap.String("collection", c.name),
			zap.String("id", m.id),
		)
		return nil, nil
	}
	if err = c.schema.check(doc, changed); err != nil {
		return nil, err
	}

	set := make(driver.Record, len(changed))
	fields := make([]string, 0, len(changed))
	for _, f := range changed {
		set[f.wire] = filter.Normalize(f.get(doc))
		fields = append(fields, f.wire)
	}
	if err = c.update(ctx, d, m.id, set); err != nil {
		return nil, err
	}

	c.handle.logger.Debug("document synced",
		zap.String("collection", c.name),
		zap.String("id", m.id),
		zap.Strings("fields", fields),
	)
	return fields, nil
}

// Delete removes a persisted document and marks it Deleted. Deleting a
// document that is already gone from the store succeeds.
func (c *Collection[T]) Delete(ctx context.Context, doc *T) (err error) {
	m, err := c.writable(doc)
	if err != nil {
		return err
	}

	d, err := c.handle.activeConn(c.binding)
	if err != nil {
		return err
	}

	ctx, span := c.handle.startSpan(ctx, "delete", c.name)
	defer func() { endSpan(span, err) }()

	if err = d.DeleteOne(ctx, c.name, m.id); err != nil {
		if !errors.Is(err, driver.ErrNoDocument) {
			return fmt.Errorf("%w: delete %s/%s: %w", ErrWrite, c.name, m.id, err)
		}
		err = nil
	}
	m.state = Deleted

	c.handle.logger.Debug("document deleted",
		zap.String("collection", c.name),
		zap.String("id", m.id),
	)
	return nil
}

func (c *Collection[T]) update(ctx context.Context, d driver.Driver, id string, set driver.Record) error {
	err := d.UpdateOne(ctx, c.name, id, set)
	if errors.Is(err, driver.ErrNoDocument) {
		return fmt.Errorf("%w: %s/%s", ErrStaleDocument, c.name, id)
	}
	if err != nil {
		return fmt.Errorf("%w: update %s/%s: %w", ErrWrite, c.name, id, err)
	}
	return nil
}

func (c *Collection[T]) fetch(ctx context.Context, d driver.Driver, id string) (*T, error) {
	cur, err := d.Find(ctx, c.name, filter.Eq(driver.IDField, id), driver.FindOptions{Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", c.name, id, err)
	}
	defer cur.Close()

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, fmt.Errorf("fetch %s/%s: %w", c.name, id, err)
		}
		return nil, fmt.Errorf("%w: %s/%s", ErrStaleDocument, c.name, id)
	}
	return c.schema.Decode(id, cur.Record())
}

func (c *Collection[T]) meta(doc *T) (*Meta, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrNotDocument)
	}
	m, ok := metaOf(doc)
	if !ok {
		return nil, ErrNotDocument
	}
	return m, nil
}

// writable returns the meta of a document that may be updated or deleted.
func (c *Collection[T]) writable(doc *T) (*Meta, error) {
	m, err := c.meta(doc)
	if err != nil {
		return nil, err
	}
	switch m.state {
	case Transient:
		return nil, ErrNotPersisted
	case Deleted:
		return nil, fmt.Errorf("%w: %s", ErrDeleted, m.id)
	}
	return m, nil
}
