package store

import (
	"context"
	"iter"

	"github.com/jacentio/docstore/driver"
)

// Cursor is a lazy, single-pass sequence of documents. Documents are decoded
// as the cursor advances; a second pass yields ErrCursorConsumed.
type Cursor[T any] struct {
	cur    driver.Cursor
	schema *Schema[T]
	doc    *T
	err    error
	used   bool
	done   bool
}

func newCursor[T any](cur driver.Cursor, schema *Schema[T]) *Cursor[T] {
	return &Cursor[T]{cur: cur, schema: schema}
}

// Next advances to the next document. It returns false at the end of the
// sequence or on error; check Err afterwards.
func (c *Cursor[T]) Next(ctx context.Context) bool {
	c.used = true
	if c.done {
		return false
	}
	if !c.cur.Next(ctx) {
		c.finish(c.cur.Err())
		return false
	}
	doc, err := c.schema.Decode("", c.cur.Record())
	if err != nil {
		c.finish(err)
		return false
	}
	c.doc = doc
	return true
}

// Doc returns the current document. Valid after Next returns true.
func (c *Cursor[T]) Doc() *T { return c.doc }

// Err returns the error that stopped iteration, if any.
func (c *Cursor[T]) Err() error { return c.err }

// Close releases the underlying store cursor. Safe to call more than once.
func (c *Cursor[T]) Close() error {
	if c.done {
		return nil
	}
	c.done = true
	c.doc = nil
	return c.cur.Close()
}

// Docs returns an iterator over the remaining documents. An error ends the
// sequence as its last element. The cursor is closed when iteration stops.
//
//	for doc, err := range cur.Docs(ctx) { ... }
func (c *Cursor[T]) Docs(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		if c.used {
			yield(nil, ErrCursorConsumed)
			return
		}
		defer c.Close()
		for c.Next(ctx) {
			if !yield(c.doc, nil) {
				return
			}
		}
		if c.err != nil {
			yield(nil, c.err)
		}
	}
}

func (c *Cursor[T]) finish(err error) {
	if c.err == nil {
		c.err = err
	}
	c.doc = nil
	if !c.done {
		c.done = true
		if cerr := c.cur.Close(); cerr != nil && c.err == nil {
			c.err = cerr
		}
	}
}
