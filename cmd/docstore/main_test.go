package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI against the SQLite file at path.
func run(t *testing.T, path string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	argv := append([]string{"docstore", "--backend", "sqlite", "--sqlite-path", path, "--log-level", "error"}, args...)
	err := makeApp(strings.NewReader(""), &stdout, &stderr).Run(argv)
	return stdout.String(), stderr.String(), err
}

func TestCLI_RecordLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")

	_, _, err := run(t, path, "create", "users")
	require.NoError(t, err)

	out, _, err := run(t, path, "collections")
	require.NoError(t, err)
	assert.Equal(t, "users\n", out)

	out, _, err = run(t, path, "insert", "--set", "nm=Ann", "--set", "ag=30", "users")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	out, _, err = run(t, path, "get", "users", id)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, id, rec["id"])
	assert.Equal(t, "Ann", rec["nm"])
	assert.EqualValues(t, 30, rec["ag"])

	out, _, err = run(t, path, "find", "--where", "ag=30", "users")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))

	out, _, err = run(t, path, "find", "--where", "ag=31", "users")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, _, err = run(t, path, "delete", "users", id)
	require.NoError(t, err)

	_, stderr, err := run(t, path, "get", "users", id)
	require.Error(t, err)
	assert.Contains(t, stderr, "no record")
}

func TestCLI_ArgumentErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")

	tests := []struct {
		name string
		args []string
	}{
		{"create without name", []string{"create"}},
		{"get without id", []string{"get", "users"}},
		{"insert bad assignment", []string{"insert", "--set", "novalue", "users"}},
		{"find missing collection", []string{"find", "ghosts"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := run(t, path, tt.args...)
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(stderr, "error: "), stderr)
		})
	}
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		in        string
		wantName  string
		wantValue any
	}{
		{"nm=Ann", "nm", "Ann"},
		{"ag=30", "ag", int64(30)},
		{"score=1.5", "score", 1.5},
		{"active=true", "active", true},
		{`code="30"`, "code", "30"},
		{"empty=", "empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, value, err := parseAssignment(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantValue, value)
		})
	}

	_, _, err := parseAssignment("=x")
	assert.Error(t, err)
}
