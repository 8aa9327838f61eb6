package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/docstore/driver"
	"github.com/jacentio/docstore/filter"
	"github.com/jacentio/docstore/store"
)

func TestNewSchema_Invalid(t *testing.T) {
	name := func(u *User) *string { return &u.Name }
	age := func(u *User) *int { return &u.Age }

	tests := []struct {
		desc   string
		fields []store.Field[User]
	}{
		{"empty name", []store.Field[User]{store.Map("", "nm", name)}},
		{"empty wire name", []store.Field[User]{store.Map("Name", "", name)}},
		{"invalid wire name", []store.Field[User]{store.Map("Name", "n m", name)}},
		{"wire name is identity", []store.Field[User]{store.Map("Name", "id", name)}},
		{"name is identity", []store.Field[User]{store.Map("ID", "ident", name)}},
		{"duplicate name", []store.Field[User]{store.Map("Name", "nm", name), store.Map("Name", "ag", age)}},
		{"duplicate wire name", []store.Field[User]{store.Map("Name", "x", name), store.Map("Age", "x", age)}},
		{"wire name shadows name", []store.Field[User]{store.Map("Name", "nm", name), store.Map("Age", "Name", age)}},
		{"zero field", []store.Field[User]{{}}},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := store.NewSchema(tt.fields...)
			assert.ErrorIs(t, err, store.ErrInvalidSchema)
		})
	}
}

func TestMustSchema_Panics(t *testing.T) {
	assert.Panics(t, func() {
		store.MustSchema(store.Map("Name", "id", func(u *User) *string { return &u.Name }))
	})
}

func TestSchema_Lookup(t *testing.T) {
	f, err := userSchema.Field("Name")
	require.NoError(t, err)
	assert.Equal(t, "Name", f.Name())
	assert.Equal(t, "nm", f.Wire())
	assert.Equal(t, filter.KindString, f.Kind())

	f, err = userSchema.Field("ag")
	require.NoError(t, err)
	assert.Equal(t, "Age", f.Name())
	assert.Equal(t, filter.KindInt, f.Kind())

	_, err = userSchema.Field("Email")
	assert.ErrorIs(t, err, store.ErrUnmappedField)

	tests := []struct {
		in   string
		want string
	}{
		{"Name", "nm"},
		{"nm", "nm"},
		{"Age", "ag"},
		{"id", "id"},
		{"ID", "id"},
	}
	for _, tt := range tests {
		got, err := userSchema.Wire(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}

	fields := userSchema.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "Name", fields[0].Name())
	assert.Equal(t, "Age", fields[1].Name())
}

func TestSchema_EncodeDecode(t *testing.T) {
	joined := time.Date(2023, 7, 1, 8, 30, 0, 500, time.FixedZone("X", 3600))
	p := &Profile{Handle: "ann", Active: true, Visits: 7, Score: 0.25, Joined: joined}

	rec := profileSchema.Encode(p)
	assert.Equal(t, driver.Record{
		"h":   "ann",
		"act": true,
		"v":   int64(7),
		"sc":  0.25,
		"j":   "2023-07-01T07:30:00.000000500Z",
		"c":   "",
	}, rec)

	rec[driver.IDField] = "abc"
	got, err := profileSchema.Decode("", rec)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.ID())
	assert.Equal(t, store.Persisted, got.State())
	assert.True(t, joined.Equal(got.Joined))
	assert.Empty(t, profileSchema.Changed(p, got))
}

func TestSchema_DecodeLenient(t *testing.T) {
	// Missing and null fields keep their zero value; numbers arrive in
	// whatever numeric type the driver produced.
	got, err := profileSchema.Decode("x", driver.Record{
		"v":  float64(12),
		"sc": int64(3),
		"j":  "2024-01-02T03:04:05Z",
		"c":  nil,
	})
	require.NoError(t, err)
	assert.Equal(t, "x", got.ID())
	assert.Equal(t, int64(12), got.Visits)
	assert.Equal(t, 3.0, got.Score)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), got.Joined)
	assert.Empty(t, got.Handle)
}

func TestSchema_DecodeTypeMismatch(t *testing.T) {
	_, err := userSchema.Decode("x", driver.Record{"ag": "thirty"})
	assert.ErrorIs(t, err, store.ErrFieldType)
}

func TestSchema_Changed(t *testing.T) {
	a := &User{Name: "Ann", Age: 30}
	b := &User{Name: "Ann", Age: 31}
	assert.Equal(t, []string{"ag"}, userSchema.Changed(a, b))

	b.Name = "Bea"
	assert.Equal(t, []string{"nm", "ag"}, userSchema.Changed(a, b))

	assert.Empty(t, userSchema.Changed(a, a))
}

func TestSchema_Idents(t *testing.T) {
	idents := userSchema.Idents()
	assert.Equal(t, []filter.Ident{
		{Name: "id", Kind: filter.KindString},
		{Name: "Name", Kind: filter.KindString},
		{Name: "Age", Kind: filter.KindInt},
	}, idents)
}
