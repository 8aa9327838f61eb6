// Package sqlite provides a SQLite-backed document store driver.
//
// Each collection is a table holding the identity in an `id` column and the
// document body as JSON in a `data` column. Filters are translated to
// json_extract comparisons.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/jacentio/docstore/driver"
	"github.com/jacentio/docstore/filter"
)

// Backend is the backend name reported by this driver.
const Backend = "sqlite"

// ErrInMemoryPath is returned by Open for in-memory database paths. Every
// pooled connection would get its own empty database; use the memory
// driver instead.
var ErrInMemoryPath = errors.New("sqlite: in-memory databases are not supported, use the memory backend")

// Driver is a connection to a SQLite database file.
type Driver struct {
	sqlDB  *sql.DB
	path   string
	closed atomic.Bool
	newID  func() string
}

var _ driver.Driver = (*Driver)(nil)

// Open opens the SQLite database at path, creating the file if needed.
func Open(ctx context.Context, path string) (*Driver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if isInMemoryPath(path) {
		return nil, fmt.Errorf("%w: %q", ErrInMemoryPath, path)
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return &Driver{sqlDB: sqlDB, path: cleanPath, newID: uuid.NewString}, nil
}

func isInMemoryPath(path string) bool {
	p := strings.TrimSpace(path)
	return p == ":memory:" ||
		strings.HasPrefix(p, "file::memory:") ||
		strings.Contains(p, "mode=memory")
}

// Backend returns "sqlite".
func (d *Driver) Backend() string { return Backend }

// Path returns the database file path.
func (d *Driver) Path() string { return d.path }

func (d *Driver) check(ctx context.Context) error {
	if d.closed.Load() {
		return driver.ErrClosed
	}
	return ctx.Err()
}

// Close closes the SQLite handle.
func (d *Driver) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	return d.sqlDB.Close()
}

// Clone opens a second connection pool on the same database file.
func (d *Driver) Clone(ctx context.Context) (driver.Driver, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	return Open(ctx, d.path)
}

// CollectionExists reports whether the collection table exists.
func (d *Driver) CollectionExists(ctx context.Context, name string) (bool, error) {
	if err := d.check(ctx); err != nil {
		return false, err
	}
	var one int
	err := d.sqlDB.QueryRowContext(ctx,
		"SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup table %s: %w", name, err)
	}
	return true, nil
}

// CreateCollection creates the collection table.
func (d *Driver) CreateCollection(ctx context.Context, name string) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	if err := driver.ValidateCollectionName(name); err != nil {
		return err
	}
	exists, err := d.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", driver.ErrCollectionExists, name)
	}
	stmt := fmt.Sprintf(`CREATE TABLE %s (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL
	)`, quoteIdent(name))
	if _, err := d.sqlDB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	return nil
}

// ListCollections returns the collection table names in sorted order.
func (d *Driver) ListCollections(ctx context.Context) ([]string, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	rows, err := d.sqlDB.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Find runs a SELECT and streams rows through the returned cursor.
func (d *Driver) Find(ctx context.Context, name string, f filter.Filter, opts driver.FindOptions) (driver.Cursor, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	cond, err := Where(f)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT id, data FROM %s WHERE %s ORDER BY rowid", quoteIdent(name), cond.Clause)
	params := cond.Params
	if opts.Limit > 0 {
		query += " LIMIT ?"
		params = append(params, opts.Limit)
	}
	rows, err := d.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, mapTableError(name, err)
	}
	return &cursor{rows: rows}, nil
}

// InsertOne stores rec under a new identity and returns it.
func (d *Driver) InsertOne(ctx context.Context, name string, rec driver.Record) (string, error) {
	if err := d.check(ctx); err != nil {
		return "", err
	}
	body := rec.Clone()
	delete(body, driver.IDField)
	data, err := encodeRecord(body)
	if err != nil {
		return "", err
	}

	id := d.newID()
	_, err = d.sqlDB.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, data) VALUES (?, ?)", quoteIdent(name)),
		id, data,
	)
	if err != nil {
		if isPrimaryKeyViolation(err) {
			return "", driver.ErrDuplicateID
		}
		return "", mapTableError(name, err)
	}
	return id, nil
}

// UpdateOne sets the given fields on the document with identity id.
func (d *Driver) UpdateOne(ctx context.Context, name, id string, set driver.Record) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		if k == driver.IDField {
			continue
		}
		if err := driver.ValidateFieldName(k); err != nil {
			return err
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)

	var args []string
	var params []any
	for _, k := range keys {
		raw, err := json.Marshal(filter.Normalize(set[k]))
		if err != nil {
			return fmt.Errorf("encode field %s: %w", k, err)
		}
		args = append(args, fmt.Sprintf("'$.%s', json(?)", k))
		params = append(params, string(raw))
	}
	params = append(params, id)

	res, err := d.sqlDB.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET data = json_set(data, %s) WHERE id = ?",
			quoteIdent(name), strings.Join(args, ", ")),
		params...,
	)
	if err != nil {
		return mapTableError(name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return driver.ErrNoDocument
	}
	return nil
}

// DeleteOne removes the document with identity id.
func (d *Driver) DeleteOne(ctx context.Context, name, id string) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	res, err := d.sqlDB.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", quoteIdent(name)), id)
	if err != nil {
		return mapTableError(name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return driver.ErrNoDocument
	}
	return nil
}

type cursor struct {
	rows *sql.Rows
	cur  driver.Record
	err  error
}

func (c *cursor) Next(ctx context.Context) bool {
	c.cur = nil
	if c.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if !c.rows.Next() {
		c.err = c.rows.Err()
		return false
	}
	var id, data string
	if err := c.rows.Scan(&id, &data); err != nil {
		c.err = err
		return false
	}
	rec, err := decodeRecord(data)
	if err != nil {
		c.err = fmt.Errorf("decode document %s: %w", id, err)
		return false
	}
	rec[driver.IDField] = id
	c.cur = rec
	return true
}

func (c *cursor) Record() driver.Record { return c.cur }

func (c *cursor) Err() error { return c.err }

func (c *cursor) Close() error { return c.rows.Close() }

func encodeRecord(rec driver.Record) (string, error) {
	normalized := make(map[string]any, len(rec))
	for k, v := range rec {
		if err := driver.ValidateFieldName(k); err != nil {
			return "", err
		}
		normalized[k] = filter.Normalize(v)
	}
	b, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}

func decodeRecord(data string) (driver.Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	rec := make(driver.Record, len(raw)+1)
	for k, v := range raw {
		rec[k] = filter.Normalize(v)
	}
	return rec, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func isPrimaryKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT:
			return true
		}
	}
	return false
}

func mapTableError(name string, err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "no such table") {
		return fmt.Errorf("%w: %s", driver.ErrNoCollection, name)
	}
	return err
}
