package store_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jacentio/docstore/driver"
	"github.com/jacentio/docstore/driver/memory"
	"github.com/jacentio/docstore/driver/sqlite"
	"github.com/jacentio/docstore/store"
)

// --- Test Document Types ---

// User is the two-field document used by the scenario tests.
type User struct {
	store.Meta
	Name string
	Age  int
}

var userSchema = store.MustSchema(
	store.Map("Name", "nm", func(u *User) *string { return &u.Name }),
	store.Map("Age", "ag", func(u *User) *int { return &u.Age }),
)

// Profile exercises every supported field type.
type Profile struct {
	store.Meta
	Handle  string
	Active  bool
	Visits  int64
	Score   float64
	Joined  time.Time
	Comment string
}

var profileSchema = store.MustSchema(
	store.Map("Handle", "h", func(p *Profile) *string { return &p.Handle }),
	store.Map("Active", "act", func(p *Profile) *bool { return &p.Active }),
	store.Map("Visits", "v", func(p *Profile) *int64 { return &p.Visits }),
	store.Map("Score", "sc", func(p *Profile) *float64 { return &p.Score }),
	store.Map("Joined", "j", func(p *Profile) *time.Time { return &p.Joined }),
	store.Map("Comment", "c", func(p *Profile) *string { return &p.Comment }),
)

// plain does not embed store.Meta.
type plain struct {
	Name string
}

// --- Backends ---

type backend struct {
	name string
	open func(t *testing.T) driver.Driver
}

var backends = []backend{
	{
		name: memory.Backend,
		open: func(t *testing.T) driver.Driver { return memory.New() },
	},
	{
		name: sqlite.Backend,
		open: func(t *testing.T) driver.Driver {
			d, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "store.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = d.Close() })
			return d
		},
	},
}

// forEachBackend runs fn once per local backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, d driver.Driver)) {
	t.Helper()
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.open(t))
		})
	}
}

func newHandle(t *testing.T, d driver.Driver, opts ...store.Option) *store.Handle {
	t.Helper()
	opts = append([]store.Option{store.WithLogger(zaptest.NewLogger(t))}, opts...)
	h := store.New(d, opts...)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func bindUsers(t *testing.T, h *store.Handle) *store.Collection[User] {
	t.Helper()
	users, err := store.Bind(context.Background(), h, "users", userSchema, store.CreateIfMissing())
	require.NoError(t, err)
	return users
}

// countingDriver records every UpdateOne call.
type countingDriver struct {
	driver.Driver

	mu      sync.Mutex
	updates []driver.Record
}

func (d *countingDriver) UpdateOne(ctx context.Context, collection, id string, set driver.Record) error {
	d.mu.Lock()
	d.updates = append(d.updates, set.Clone())
	d.mu.Unlock()
	return d.Driver.UpdateOne(ctx, collection, id, set)
}

func (d *countingDriver) Updates() []driver.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]driver.Record(nil), d.updates...)
}
