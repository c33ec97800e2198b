package cmd

import (
	"database/sql"
	"testing"

	"github.com/jpl-au/pim/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnowledgeBase(t *testing.T) {
	env := newTestEnv(t)

	kb := env.id("kb", "create", "Work", "--description", "Day job notes")
	out := env.run("kb", "ls")
	env.contains(out, "Work")

	env.run("kb", "update", kb, "--name", "Office")
	out = env.run("kb", "search", "office")
	env.contains(out, "Office")

	env.run("kb", "rm", kb, "--force")
	out = env.run("kb", "ls")
	env.notContains(out, "Office")
}

func TestPage(t *testing.T) {
	t.Run("create and show", func(t *testing.T) {
		env := newTestEnv(t)
		kb := env.id("kb", "create", "Notes")

		page := env.id("page", "create", "--kb", kb, "--title", "Onboarding", "--content", "# Welcome\n\nRead the handbook.")
		out := env.run("page", "show", page, "--raw")
		env.contains(out, "Read the handbook.")

		out = env.run("page", "ls", "--kb", kb)
		env.contains(out, "Onboarding")
	})

	t.Run("content from stdin", func(t *testing.T) {
		env := newTestEnv(t)
		kb := env.id("kb", "create", "Notes")

		var p map[string]any
		env.runStdinJSON("piped body", &p, "page", "create", "--kb", kb, "--title", "Piped", "--content", "-")
		out := env.run("page", "show", p["id"].(string), "--raw")
		env.contains(out, "piped body")
	})

	t.Run("hierarchy and path", func(t *testing.T) {
		env := newTestEnv(t)
		kb := env.id("kb", "create", "Notes")
		parent := env.id("page", "create", "--kb", kb, "--title", "Parent")
		child := env.id("page", "create", "--kb", kb, "--title", "Child", "--parent", parent)

		out := env.run("page", "path", child)
		env.contains(out, "Parent")

		out = env.run("page", "ls", "--kb", kb, "--tree")
		env.contains(out, "Child")
	})

	t.Run("trash and restore", func(t *testing.T) {
		env := newTestEnv(t)
		kb := env.id("kb", "create", "Notes")
		parent := env.id("page", "create", "--kb", kb, "--title", "Parent")
		env.id("page", "create", "--kb", kb, "--title", "Child", "--parent", parent)

		var res map[string]any
		env.runJSON(&res, "page", "rm", parent)
		assert.EqualValues(t, 2, res["count"])

		out := env.run("page", "ls", "--kb", kb, "--deleted")
		env.contains(out, "Parent")

		env.run("page", "restore", parent)
		out = env.run("page", "ls", "--kb", kb)
		env.contains(out, "Parent")
	})

	t.Run("versions", func(t *testing.T) {
		env := newTestEnv(t)
		kb := env.id("kb", "create", "Notes")
		page := env.id("page", "create", "--kb", kb, "--title", "Draft", "--content", "first")

		env.run("page", "edit", page, "--content", "second", "--snapshot")
		env.run("page", "edit", page, "--content", "third", "--snapshot")

		var vs []map[string]any
		env.runJSON(&vs, "page", "versions", page)
		require.Len(t, vs, 2)

		out := env.run("page", "show", page, "--raw", "--version", "1")
		env.contains(out, "second")
	})

	t.Run("links and tags", func(t *testing.T) {
		env := newTestEnv(t)
		kb := env.id("kb", "create", "Notes")
		a := env.id("page", "create", "--kb", kb, "--title", "Alpha")
		b := env.id("page", "create", "--kb", kb, "--title", "Beta")

		env.run("page", "link", a, b)
		out := env.run("page", "links", b)
		env.contains(out, "Alpha")

		env.run("page", "tag", a, "idea")
		out = env.run("page", "tags")
		env.contains(out, "idea")

		env.run("page", "untag", a, "idea")
		out = env.run("page", "tags", a)
		env.notContains(out, "idea")
	})

	t.Run("cycle rejected", func(t *testing.T) {
		env := newTestEnv(t)
		kb := env.id("kb", "create", "Notes")
		parent := env.id("page", "create", "--kb", kb, "--title", "Parent")
		child := env.id("page", "create", "--kb", kb, "--title", "Child", "--parent", parent)

		_, err := env.runErr("page", "mv", parent, "--parent", child)
		assert.Error(t, err)
	})

	t.Run("missing page", func(t *testing.T) {
		env := newTestEnv(t)
		out, err := env.runErr("page", "show", "no-such-page")
		assert.Error(t, err)
		env.contains(out, "not found")
	})
}

func TestBlock(t *testing.T) {
	env := newTestEnv(t)
	kb := env.id("kb", "create", "Notes")
	page := env.id("page", "create", "--kb", kb, "--title", "Groceries")

	list := env.id("block", "add", page, "--type", "list", "--content", "shopping")
	env.id("block", "add", page, "--type", "item", "--content", "milk", "--parent", list)

	var all, top, kids []map[string]any
	env.runJSON(&all, "block", "ls", page)
	assert.Len(t, all, 2)
	env.runJSON(&top, "block", "ls", page, "--parent", "")
	require.Len(t, top, 1)
	assert.Equal(t, list, top[0]["id"])
	env.runJSON(&kids, "block", "ls", page, "--parent", list)
	require.Len(t, kids, 1)
	assert.Equal(t, "milk", kids[0]["content"])
}

func TestPageEventsReachHandlers(t *testing.T) {
	env := newTestEnv(t)
	kb := env.id("kb", "create", "Notes")
	a := env.id("page", "create", "--kb", kb, "--title", "A")
	b := env.id("page", "create", "--kb", kb, "--title", "B")
	env.run("page", "link", a, b)
	env.run("page", "rm", a)
	env.run("page", "restore", a)

	db, err := sql.Open("sqlite", log.DBPath(env.dataDir()))
	require.NoError(t, err)
	defer db.Close()
	rows, err := db.Query(`SELECT action FROM log WHERE source = 'core:observed' AND entity_id = ? ORDER BY id`, a)
	require.NoError(t, err)
	defer rows.Close()
	var actions []string
	for rows.Next() {
		var action string
		require.NoError(t, rows.Scan(&action))
		actions = append(actions, action)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"page:write", "link:create", "page:delete", "page:restore"}, actions)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	kb := env.id("kb", "create", "Notes")
	env.id("page", "create", "--kb", kb, "--title", "Kubernetes", "--content", "pods and deployments")

	out := env.run("search", "deployments")
	env.contains(out, "Kubernetes")
}
