package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask(t *testing.T) {
	t.Run("add and done", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.id("task", "add", "Write report", "--priority", "high")

		out := env.run("task", "ls", "--filter", "high")
		env.contains(out, "Write report")

		env.run("task", "done", id)
		var tasks []map[string]any
		env.runJSON(&tasks, "task", "ls", "--filter", "completed")
		require.Len(t, tasks, 1)
		assert.Equal(t, "completed", tasks[0]["status"])
	})

	t.Run("invalid filter", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.runErr("task", "ls", "--filter", "someday")
		assert.Error(t, err)
	})

	t.Run("invalid priority", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.runErr("task", "add", "Bad", "--priority", "whenever")
		assert.Error(t, err)
	})

	t.Run("soft delete and restore", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.id("task", "add", "Maybe later")

		env.run("task", "rm", id)
		out := env.run("task", "ls")
		env.notContains(out, "Maybe later")

		out = env.run("task", "trash")
		env.contains(out, "Maybe later")

		env.run("task", "restore", id)
		out = env.run("task", "ls")
		env.contains(out, "Maybe later")
	})

	t.Run("hard delete", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.id("task", "add", "Never")
		env.run("task", "rm", id, "--hard", "--force")

		out := env.run("task", "trash")
		env.notContains(out, "Never")
	})

	t.Run("search", func(t *testing.T) {
		env := newTestEnv(t)
		env.id("task", "add", "Renew passport", "--description", "before the trip")
		out := env.run("task", "search", "trip")
		env.contains(out, "Renew passport")
	})

	t.Run("due date range", func(t *testing.T) {
		env := newTestEnv(t)
		env.id("task", "add", "Early", "--due", "2026-01-05")
		env.id("task", "add", "Late", "--due", "2026-03-05")

		out := env.run("task", "ls", "--start", "2026-01-01", "--end", "2026-01-31")
		env.contains(out, "Early")
		env.notContains(out, "Late")
	})
}

func TestProject(t *testing.T) {
	env := newTestEnv(t)
	project := env.id("project", "create", "Renovation")
	task := env.id("task", "add", "Buy paint", "--project", project)
	env.id("task", "add", "Unfiled")

	out := env.run("task", "ls", "--project", project)
	env.contains(out, "Buy paint")
	env.notContains(out, "Unfiled")

	out = env.run("task", "ls", "--project", "none")
	env.contains(out, "Unfiled")
	env.notContains(out, "Buy paint")

	var show map[string]any
	env.runJSON(&show, "project", "show", project)
	stats, ok := show["stats"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, stats["total"])

	env.run("task", "mv", task)
	out = env.run("task", "ls", "--project", "none")
	env.contains(out, "Buy paint")

	env.run("project", "rm", project)
	out = env.run("project", "ls")
	env.notContains(out, "Renovation")
}
