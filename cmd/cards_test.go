package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBox(t *testing.T) {
	t.Run("create and list", func(t *testing.T) {
		env := newTestEnv(t)
		env.id("box", "create", "Inbox")
		out := env.run("box", "ls")
		env.contains(out, "Inbox")
	})

	t.Run("rm refuses non-empty box", func(t *testing.T) {
		env := newTestEnv(t)
		box := env.id("box", "create", "Inbox")
		env.id("card", "create", "Keep me", "--box", box)

		out, err := env.runErr("box", "rm", box)
		assert.Error(t, err)
		env.contains(out, "non-empty")
	})

	t.Run("rm empty box", func(t *testing.T) {
		env := newTestEnv(t)
		box := env.id("box", "create", "Scratch")
		env.run("box", "rm", box)
		out := env.run("box", "ls")
		env.notContains(out, "Scratch")
	})

	t.Run("counts stay consistent", func(t *testing.T) {
		env := newTestEnv(t)
		a := env.id("box", "create", "A")
		b := env.id("box", "create", "B")
		card := env.id("card", "create", "Moving", "--box", a)
		env.run("card", "mv", card, b)

		var counts []map[string]any
		env.runJSON(&counts, "box", "check")
		assert.Empty(t, counts)
	})
}

func TestCard(t *testing.T) {
	t.Run("create with tags and search", func(t *testing.T) {
		env := newTestEnv(t)
		box := env.id("box", "create", "Inbox")
		env.id("card", "create", "Grocery list", "--box", box, "--content", "milk and eggs", "--tag", "home")

		out := env.run("card", "search", "eggs")
		env.contains(out, "Grocery list")

		out = env.run("card", "ls", "--box", box)
		env.contains(out, "Grocery list")
	})

	t.Run("archive hides from list", func(t *testing.T) {
		env := newTestEnv(t)
		box := env.id("box", "create", "Inbox")
		card := env.id("card", "create", "Old idea", "--box", box)

		env.run("card", "archive", card)
		out := env.run("card", "ls", "--box", box)
		env.notContains(out, "Old idea")

		out = env.run("card", "ls", "--box", box, "--all")
		env.contains(out, "Old idea")

		env.run("card", "archive", card, "--off")
		out = env.run("card", "ls", "--box", box)
		env.contains(out, "Old idea")
	})

	t.Run("pin", func(t *testing.T) {
		env := newTestEnv(t)
		box := env.id("box", "create", "Inbox")
		card := env.id("card", "create", "Important", "--box", box)

		var c map[string]any
		env.runJSON(&c, "card", "pin", card)
		assert.Equal(t, true, c["is_pinned"])
	})

	t.Run("links", func(t *testing.T) {
		env := newTestEnv(t)
		box := env.id("box", "create", "Inbox")
		a := env.id("card", "create", "Cause", "--box", box)
		b := env.id("card", "create", "Effect", "--box", box)

		env.run("card", "link", a, b)
		var links []map[string]any
		env.runJSON(&links, "card", "links", a)
		require.Len(t, links, 1)
		assert.Equal(t, b, links[0]["target_card_id"])

		env.run("card", "unlink", a, b)
		env.runJSON(&links, "card", "links", a)
		assert.Empty(t, links)
	})

	t.Run("rm", func(t *testing.T) {
		env := newTestEnv(t)
		box := env.id("box", "create", "Inbox")
		card := env.id("card", "create", "Gone", "--box", box)
		env.run("card", "rm", card)

		out, err := env.runErr("card", "show", card)
		assert.Error(t, err)
		env.contains(out, "not found")
	})

	t.Run("requires box", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.runErr("card", "create", "Loose")
		assert.Error(t, err)
	})
}
