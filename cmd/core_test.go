package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		env := newTestEnv(t)
		env.run("config", "limits.search_results", "50")
		out := env.run("config", "limits.search_results")
		env.equals(out, "50")
	})

	t.Run("rejects out of range", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.runErr("config", "limits.search_results", "0")
		assert.Error(t, err)
	})

	t.Run("rejects unknown key", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.runErr("config", "colour.theme", "dark")
		assert.Error(t, err)
	})

	t.Run("author stamps versions", func(t *testing.T) {
		env := newTestEnv(t)
		env.run("config", "author.name", "Ada")
		kb := env.id("kb", "create", "Notes")
		page := env.id("page", "create", "--kb", kb, "--title", "Log")
		env.run("page", "edit", page, "--content", "v1", "--snapshot")

		var vs []map[string]any
		env.runJSON(&vs, "page", "versions", page)
		require.Len(t, vs, 1)
		assert.Equal(t, "Ada", vs[0]["created_by"])
	})
}

func TestVacuum(t *testing.T) {
	t.Run("purges trash", func(t *testing.T) {
		env := newTestEnv(t)
		kb := env.id("kb", "create", "Notes")
		page := env.id("page", "create", "--kb", kb, "--title", "Scrap")
		task := env.id("task", "add", "Dropped")
		env.run("page", "rm", page)
		env.run("task", "rm", task)

		env.run("vacuum", "--force")

		out := env.run("page", "ls", "--kb", kb, "--deleted")
		env.notContains(out, "Scrap")
		out = env.run("task", "trash")
		env.notContains(out, "Dropped")
	})

	t.Run("preserves active", func(t *testing.T) {
		env := newTestEnv(t)
		env.id("task", "add", "Keep")
		env.run("vacuum", "--force")
		out := env.run("task", "ls")
		env.contains(out, "Keep")
	})

	t.Run("older-than keeps recent deletions", func(t *testing.T) {
		env := newTestEnv(t)
		task := env.id("task", "add", "Recent")
		env.run("task", "rm", task)

		env.run("vacuum", "--older-than", "7d", "--force")
		out := env.run("task", "trash")
		env.contains(out, "Recent")
	})

	t.Run("dry run", func(t *testing.T) {
		env := newTestEnv(t)
		task := env.id("task", "add", "Pending purge")
		env.run("task", "rm", task)

		env.run("vacuum", "--dry-run")
		out := env.run("task", "trash")
		env.contains(out, "Pending purge")
	})
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	env.id("task", "add", "One")
	env.id("box", "create", "Inbox")

	var s map[string]any
	env.runJSON(&s, "stats")
	assert.NotEmpty(t, s)
}

func TestGuide(t *testing.T) {
	t.Run("main guide", func(t *testing.T) {
		env := newTestEnv(t)
		out := env.run("guide")
		env.contains(out, "Quick Start")
	})

	t.Run("lists available on not found", func(t *testing.T) {
		env := newTestEnv(t)
		out, _ := env.runErr("guide", "nonexistent")
		env.contains(out, "Available:")
	})

	t.Run("topics", func(t *testing.T) {
		env := newTestEnv(t)
		for _, topic := range []string{"vault", "mcp", "config"} {
			var g map[string]string
			env.runJSON(&g, "guide", topic)
			assert.NotEmpty(t, g["guide"], topic)
		}
	})
}
