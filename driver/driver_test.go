package driver_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jacentio/docstore/driver"
)

func TestValidateCollectionName(t *testing.T) {
	for _, name := range []string{"users", "_tmp", "audit.log", "user-events_2", strings.Repeat("a", 200)} {
		assert.NoError(t, driver.ValidateCollectionName(name), name)
	}
	for _, name := range []string{"", "1users", "users table", "a/b", `a"b`, strings.Repeat("a", 201)} {
		assert.ErrorIs(t, driver.ValidateCollectionName(name), driver.ErrInvalidName, name)
	}
}

func TestValidateFieldName(t *testing.T) {
	for _, name := range []string{"nm", "_x", "created_at", "A1"} {
		assert.NoError(t, driver.ValidateFieldName(name), name)
	}
	for _, name := range []string{"", "1a", "a.b", "a-b", "a b", "a'"} {
		assert.ErrorIs(t, driver.ValidateFieldName(name), driver.ErrInvalidName, name)
	}
}

func TestRecord(t *testing.T) {
	r := driver.Record{"id": "abc", "n": int64(1)}
	assert.Equal(t, "abc", r.ID())

	c := r.Clone()
	c["n"] = int64(2)
	assert.Equal(t, int64(1), r["n"])

	assert.Nil(t, driver.Record(nil).Clone())
	assert.Empty(t, driver.Record{"id": 7}.ID())
}

func TestSliceCursor(t *testing.T) {
	ctx := context.Background()
	c := driver.NewSliceCursor([]driver.Record{{"id": "1"}, {"id": "2"}})

	assert.True(t, c.Next(ctx))
	assert.Equal(t, "1", c.Record().ID())
	assert.True(t, c.Next(ctx))
	assert.Equal(t, "2", c.Record().ID())
	assert.False(t, c.Next(ctx))
	assert.Nil(t, c.Record())
	assert.NoError(t, c.Err())

	c = driver.NewSliceCursor([]driver.Record{{"id": "1"}})
	assert.NoError(t, c.Close())
	assert.False(t, c.Next(ctx))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	c = driver.NewSliceCursor([]driver.Record{{"id": "1"}})
	assert.False(t, c.Next(canceled))
	assert.ErrorIs(t, c.Err(), context.Canceled)
}
