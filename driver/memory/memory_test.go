package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/docstore/driver"
	"github.com/jacentio/docstore/filter"
)

func all(t *testing.T, d *Driver, f filter.Filter, limit int) []driver.Record {
	t.Helper()
	cur, err := d.Find(context.Background(), "users", f, driver.FindOptions{Limit: limit})
	require.NoError(t, err)
	defer cur.Close()
	var out []driver.Record
	for cur.Next(context.Background()) {
		out = append(out, cur.Record())
	}
	require.NoError(t, cur.Err())
	return out
}

func TestCollections(t *testing.T) {
	ctx := context.Background()
	d := New()

	require.NoError(t, d.CreateCollection(ctx, "users"))
	require.NoError(t, d.CreateCollection(ctx, "accounts"))
	assert.ErrorIs(t, d.CreateCollection(ctx, "users"), driver.ErrCollectionExists)
	assert.ErrorIs(t, d.CreateCollection(ctx, ""), driver.ErrInvalidName)

	names, err := d.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"accounts", "users"}, names)

	ok, err := d.CollectionExists(ctx, "users")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCRUD(t *testing.T) {
	ctx := context.Background()
	d := New()
	require.NoError(t, d.CreateCollection(ctx, "users"))

	ann, err := d.InsertOne(ctx, "users", driver.Record{"nm": "Ann", "ag": 30})
	require.NoError(t, err)
	bob, err := d.InsertOne(ctx, "users", driver.Record{"nm": "Bob", "ag": 25, "id": "spoofed"})
	require.NoError(t, err)
	assert.NotEqual(t, "spoofed", bob)

	recs := all(t, d, filter.All(), 0)
	require.Len(t, recs, 2)
	assert.Equal(t, driver.Record{"id": ann, "nm": "Ann", "ag": int64(30)}, recs[0])
	assert.Equal(t, bob, recs[1].ID())

	assert.Len(t, all(t, d, filter.All(), 1), 1)
	assert.Len(t, all(t, d, filter.Eq("id", bob), 0), 1)
	assert.Empty(t, all(t, d, filter.Eq("id", "nope"), 0))

	require.NoError(t, d.UpdateOne(ctx, "users", ann, driver.Record{"ag": 31, "id": "x"}))
	recs = all(t, d, filter.Eq("ag", 31), 0)
	require.Len(t, recs, 1)
	assert.Equal(t, ann, recs[0].ID())

	assert.ErrorIs(t, d.UpdateOne(ctx, "users", "nope", driver.Record{"ag": 1}), driver.ErrNoDocument)
	require.NoError(t, d.DeleteOne(ctx, "users", ann))
	assert.ErrorIs(t, d.DeleteOne(ctx, "users", ann), driver.ErrNoDocument)
	assert.Len(t, all(t, d, filter.All(), 0), 1)
}

func TestSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	d := New()
	require.NoError(t, d.CreateCollection(ctx, "users"))
	id, err := d.InsertOne(ctx, "users", driver.Record{"nm": "Ann"})
	require.NoError(t, err)

	cur, err := d.Find(ctx, "users", filter.All(), driver.FindOptions{})
	require.NoError(t, err)
	require.NoError(t, d.UpdateOne(ctx, "users", id, driver.Record{"nm": "Bea"}))

	require.True(t, cur.Next(ctx))
	assert.Equal(t, "Ann", cur.Record()["nm"])

	// Mutating a returned record does not reach the store.
	cur.Record()["nm"] = "Zed"
	assert.Equal(t, "Bea", all(t, d, filter.All(), 0)[0]["nm"])
}

func TestMissingCollection(t *testing.T) {
	ctx := context.Background()
	d := New()

	_, err := d.Find(ctx, "users", filter.All(), driver.FindOptions{})
	assert.ErrorIs(t, err, driver.ErrNoCollection)
	_, err = d.InsertOne(ctx, "users", driver.Record{})
	assert.ErrorIs(t, err, driver.ErrNoCollection)
	assert.ErrorIs(t, d.UpdateOne(ctx, "users", "x", driver.Record{}), driver.ErrNoCollection)
	assert.ErrorIs(t, d.DeleteOne(ctx, "users", "x"), driver.ErrNoCollection)
}

func TestDuplicateID(t *testing.T) {
	ctx := context.Background()
	d := New()
	d.newID = func() string { return "fixed" }
	require.NoError(t, d.CreateCollection(ctx, "users"))

	_, err := d.InsertOne(ctx, "users", driver.Record{})
	require.NoError(t, err)
	_, err = d.InsertOne(ctx, "users", driver.Record{})
	assert.ErrorIs(t, err, driver.ErrDuplicateID)
}

func TestCloneSharesData(t *testing.T) {
	ctx := context.Background()
	d := New()
	require.NoError(t, d.CreateCollection(ctx, "users"))

	c, err := d.Clone(ctx)
	require.NoError(t, err)
	_, err = c.InsertOne(ctx, "users", driver.Record{"nm": "Ann"})
	require.NoError(t, err)
	assert.Len(t, all(t, d, filter.All(), 0), 1)

	require.NoError(t, d.Close())
	_, err = d.ListCollections(ctx)
	assert.ErrorIs(t, err, driver.ErrClosed)
	_, err = d.Clone(ctx)
	assert.ErrorIs(t, err, driver.ErrClosed)

	names, err := c.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, names)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().CollectionExists(ctx, "users")
	assert.ErrorIs(t, err, context.Canceled)
}
