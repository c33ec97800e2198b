package log

import (
	"bytes"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAt(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	Close()
	require.NoError(t, Open(dir))
	t.Cleanup(Close)
	return dir
}

func lastRow(t *testing.T, dir string, query string, dest ...any) {
	t.Helper()
	db, err := sql.Open("sqlite", DBPath(dir))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.QueryRow(query).Scan(dest...))
}

func TestBuilder(t *testing.T) {
	t.Run("success with entity", func(t *testing.T) {
		dir := openAt(t)
		assert.FileExists(t, DBPath(dir))

		Event("card:add", "create").
			Author("ada").
			Entity("card", "c1").
			Write(nil)

		var source, author, action, kind, id string
		var success int
		lastRow(t, dir, `SELECT source, author, action, kind, entity_id, success FROM log ORDER BY id DESC LIMIT 1`,
			&source, &author, &action, &kind, &id, &success)
		assert.Equal(t, "card:add", source)
		assert.Equal(t, "ada", author)
		assert.Equal(t, "create", action)
		assert.Equal(t, "card", kind)
		assert.Equal(t, "c1", id)
		assert.Equal(t, 1, success)
	})

	t.Run("failure records the error", func(t *testing.T) {
		dir := openAt(t)

		Event("box:delete", "delete").Entity("box", "b1").Write(errors.New("cannot delete non-empty box"))

		var success int
		var msg string
		lastRow(t, dir, `SELECT success, error FROM log ORDER BY id DESC LIMIT 1`, &success, &msg)
		assert.Equal(t, 0, success)
		assert.Equal(t, "cannot delete non-empty box", msg)
	})

	t.Run("detail is json", func(t *testing.T) {
		dir := openAt(t)

		Event("search:query", "search").
			Detail("query", "golang").
			Detail("count", 42).
			Write(nil)

		var detail string
		var kind sql.NullString
		lastRow(t, dir, `SELECT detail, kind FROM log ORDER BY id DESC LIMIT 1`, &detail, &kind)
		assert.JSONEq(t, `{"query":"golang","count":42}`, detail)
		assert.False(t, kind.Valid)
	})

	t.Run("without logger is noop", func(t *testing.T) {
		Close()
		Event("test:cmd", "test").Write(nil)
	})

	t.Run("open is idempotent", func(t *testing.T) {
		dir := openAt(t)
		require.NoError(t, Open(dir))
	})
}

func TestHash(t *testing.T) {
	h1 := hash("/home/user/.config/pim")
	h2 := hash("/home/user/.config/pim")
	h3 := hash("/tmp/pim")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 16, "BLAKE2b-64 should produce 16 hex chars")
}

func TestDiagnostics(t *testing.T) {
	dir := t.TempDir()
	var stderr bytes.Buffer

	logger, closer, err := Diagnostics(dir, "debug", &stderr)
	require.NoError(t, err)

	logger.Debug("migration step", "step", "add_card_count")
	logger.Warn("search index write failed", "kind", "page")
	require.NoError(t, closer.Close())

	file, err := os.ReadFile(DiagPath(dir))
	require.NoError(t, err)
	assert.Contains(t, string(file), "migration step")
	assert.Contains(t, string(file), "search index write failed")

	assert.NotContains(t, stderr.String(), "migration step")
	assert.Contains(t, stderr.String(), "search index write failed")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLevel("debug").String())
	assert.Equal(t, "ERROR", ParseLevel("error").String())
	assert.Equal(t, "INFO", ParseLevel("loud").String())
}
