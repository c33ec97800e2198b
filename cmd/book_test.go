package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBook(t *testing.T) {
	t.Run("add and list by status", func(t *testing.T) {
		env := newTestEnv(t)
		env.id("book", "add", "Dune", "--book-author", "Frank Herbert", "--pages", "412")
		env.id("book", "add", "Emma", "--status", "finished")

		out := env.run("book", "ls", "--status", "wanted")
		env.contains(out, "Dune")
		env.notContains(out, "Emma")
	})

	t.Run("progress stamps dates", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.id("book", "add", "Dune", "--pages", "412")

		var b map[string]any
		env.runJSON(&b, "book", "update", id, "--status", "reading", "--page", "120")
		assert.EqualValues(t, 120, b["current_page"])
		assert.NotNil(t, b["start_date"])

		env.runJSON(&b, "book", "update", id, "--status", "finished", "--rating", "5")
		assert.NotNil(t, b["finish_date"])
		assert.EqualValues(t, 5, b["rating"])
	})

	t.Run("invalid status", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.runErr("book", "add", "Odd", "--status", "abandoned")
		assert.Error(t, err)
	})

	t.Run("notes and highlights", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.id("book", "add", "Dune")
		note := env.id("book", "note", "add", id, "Fear is the mind-killer.", "--chapter", "1")
		env.id("book", "highlight", "add", id, "I must not fear.", "--page", "8", "--note", note)

		var show map[string]any
		env.runJSON(&show, "book", "show", id)
		notes, ok := show["notes"].([]any)
		require.True(t, ok)
		assert.Len(t, notes, 1)
		hs, ok := show["highlights"].([]any)
		require.True(t, ok)
		assert.Len(t, hs, 1)

		env.run("book", "rm", id, "--force")
		out, err := env.runErr("book", "note", "ls", id)
		if err == nil {
			env.notContains(out, "mind-killer")
		}
	})

	t.Run("search", func(t *testing.T) {
		env := newTestEnv(t)
		env.id("book", "add", "Neuromancer", "--book-author", "William Gibson", "--tag", "cyberpunk")
		out := env.run("book", "search", "gibson")
		env.contains(out, "Neuromancer")
	})
}
