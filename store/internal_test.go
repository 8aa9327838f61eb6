package store

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/docstore/driver"
)

type item struct {
	Meta
	Label string
	Count int
}

var itemSchema = MustSchema(
	Map("Label", "l", func(i *item) *string { return &i.Label }),
	Map("Count", "n", func(i *item) *int { return &i.Count }),
)

// --- registry ---

func TestRegistry(t *testing.T) {
	r := newRegistry()
	typ := reflect.TypeFor[item]()
	b := &binding{typ: typ, collection: "items", schema: itemSchema}

	require.NoError(t, r.register(b))
	assert.ErrorIs(t, r.register(&binding{typ: typ, collection: "other"}), ErrDuplicateBinding)

	got, ok := r.lookup(typ)
	require.True(t, ok)
	assert.Same(t, b, got)
	assert.True(t, r.active(b))
	assert.Equal(t, map[string]string{"store.item": "items"}, r.snapshot())

	cp := r.clone()
	cb, ok := cp.lookup(typ)
	require.True(t, ok)
	assert.NotSame(t, b, cb)
	assert.Equal(t, *b, *cb)
	assert.False(t, cp.active(b))
	assert.True(t, cp.active(cb))

	r.clear()
	assert.False(t, r.active(b))
	_, ok = r.lookup(typ)
	assert.False(t, ok)
	assert.True(t, cp.active(cb))
}

// --- coerce ---

func TestCoerce(t *testing.T) {
	i, err := coerce[int](float64(42))
	require.NoError(t, err)
	assert.Equal(t, 42, i)

	i64, err := coerce[int64](int32(-7))
	require.NoError(t, err)
	assert.Equal(t, int64(-7), i64)

	_, err = coerce[int](4.5)
	assert.Error(t, err)

	_, err = coerce[int]("4")
	assert.Error(t, err)

	f, err := coerce[float64](int64(2))
	require.NoError(t, err)
	assert.Equal(t, 2.0, f)

	_, err = coerce[float64](math.NaN())
	assert.Error(t, err)

	_, err = coerce[float64](math.Inf(1))
	assert.Error(t, err)

	b, err := coerce[bool](true)
	require.NoError(t, err)
	assert.True(t, b)

	_, err = coerce[bool]("true")
	assert.Error(t, err)

	s, err := coerce[string]("x")
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	_, err = coerce[string](1)
	assert.Error(t, err)

	zero, err := coerce[string](nil)
	require.NoError(t, err)
	assert.Empty(t, zero)
}

func TestCoerceTime(t *testing.T) {
	want := time.Date(2024, 5, 6, 7, 8, 9, 10, time.UTC)

	got, err := coerce[time.Time]("2024-05-06T07:08:09.000000010Z")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = coerce[time.Time]("2024-05-06T09:08:09.00000001+02:00")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
	assert.Equal(t, time.UTC, got.Location())

	got, err = coerce[time.Time](want.In(time.FixedZone("X", -3600)))
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	_, err = coerce[time.Time]("yesterday")
	assert.Error(t, err)

	_, err = coerce[time.Time](int64(1))
	assert.Error(t, err)
}

func TestEqualValues(t *testing.T) {
	now := time.Now()
	assert.True(t, equalValues(now, now.In(time.FixedZone("X", 7200))))
	assert.False(t, equalValues(now, now.Add(time.Nanosecond)))
	assert.True(t, equalValues(3, 3))
	assert.False(t, equalValues("a", "b"))
	assert.True(t, equalValues(math.NaN(), math.NaN()))
	assert.False(t, equalValues(math.NaN(), 1.0))
}

// --- meta ---

func TestMetaOf(t *testing.T) {
	it := &item{}
	m, ok := metaOf(it)
	require.True(t, ok)
	m.id = "x"
	m.state = Persisted
	assert.Equal(t, "x", it.ID())
	assert.Equal(t, Persisted, it.State())

	_, ok = metaOf(&struct{ Label string }{})
	assert.False(t, ok)

	assert.Equal(t, "deleted", Deleted.String())
	assert.Equal(t, "unknown", State(9).String())
}

// --- cursor ---

type failingCursor struct {
	records []driver.Record
	pos     int
	err     error
	closes  int
}

func (c *failingCursor) Next(context.Context) bool {
	if c.pos >= len(c.records) {
		return false
	}
	c.pos++
	return true
}

func (c *failingCursor) Record() driver.Record { return c.records[c.pos-1] }
func (c *failingCursor) Err() error            { return c.err }

func (c *failingCursor) Close() error {
	c.closes++
	return nil
}

func TestCursor_StoreError(t *testing.T) {
	boom := errors.New("boom")
	fc := &failingCursor{
		records: []driver.Record{{"id": "1", "l": "a", "n": int64(1)}},
		err:     boom,
	}
	cur := newCursor(fc, itemSchema)

	var got []string
	var errs []error
	for doc, err := range cur.Docs(context.Background()) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		got = append(got, doc.Label)
	}
	assert.Equal(t, []string{"a"}, got)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
	assert.Equal(t, 1, fc.closes)

	require.NoError(t, cur.Close())
	assert.Equal(t, 1, fc.closes)
}

func TestCursor_DecodeError(t *testing.T) {
	fc := &failingCursor{records: []driver.Record{
		{"id": "1", "l": "a", "n": int64(1)},
		{"id": "2", "l": "b", "n": "many"},
		{"id": "3", "l": "c", "n": int64(3)},
	}}
	cur := newCursor(fc, itemSchema)

	ctx := context.Background()
	require.True(t, cur.Next(ctx))
	assert.Equal(t, "1", cur.Doc().ID())
	assert.False(t, cur.Next(ctx))
	assert.ErrorIs(t, cur.Err(), ErrFieldType)
	assert.False(t, cur.Next(ctx))
	assert.Equal(t, 1, fc.closes)
}
