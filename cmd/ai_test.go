package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation(t *testing.T) {
	t.Run("new, say and show", func(t *testing.T) {
		env := newTestEnv(t)
		conv := env.id("ai", "new", "Trip planning", "--model", "claude-sonnet")
		env.run("ai", "say", conv, "Where should I go in spring?")
		env.run("ai", "say", conv, "Kyoto.", "--role", "assistant")

		var tr map[string]any
		env.runJSON(&tr, "ai", "show", conv)
		msgs, ok := tr["messages"].([]any)
		require.True(t, ok)
		assert.Len(t, msgs, 2)

		out := env.run("ai", "search", "kyoto")
		env.contains(out, "Trip planning")
	})

	t.Run("export and import", func(t *testing.T) {
		env := newTestEnv(t)
		conv := env.id("ai", "new", "Recipe", "--model", "m")
		env.run("ai", "say", conv, "How long to boil an egg?")

		exported := env.run("ai", "export", conv)
		env.run("ai", "rm", conv)

		out := env.runStdin(exported, "ai", "import", "-")
		env.contains(out, "1 messages")

		out = env.run("ai", "ls")
		env.contains(out, "Recipe")
	})

	t.Run("rename", func(t *testing.T) {
		env := newTestEnv(t)
		conv := env.id("ai", "new", "Untitled", "--model", "m")
		env.run("ai", "rename", conv, "Budget")
		out := env.run("ai", "ls")
		env.contains(out, "Budget")
	})

	t.Run("cleanup requires age", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.runErr("ai", "cleanup")
		assert.Error(t, err)

		env.id("ai", "new", "Fresh", "--model", "m")
		var res map[string]any
		env.runJSON(&res, "ai", "cleanup", "--older-than", "30d")
		assert.EqualValues(t, 0, res["deleted"])
	})
}

func TestProvider(t *testing.T) {
	env := newTestEnv(t)
	env.run("ai", "provider", "set", "openai", "--model", "gpt-4o", "--api-key", "sk-test-abcd1234", "--current")

	out := env.run("ai", "provider", "ls")
	env.contains(out, "openai")
	env.contains(out, "****1234")
	env.notContains(out, "sk-test-abcd1234")

	out = env.run("ai", "provider", "current")
	env.contains(out, "openai")

	env.run("ai", "provider", "rm", "openai")
	out = env.run("ai", "provider", "ls")
	env.notContains(out, "openai")
}

func TestAgent(t *testing.T) {
	env := newTestEnv(t)
	env.runStdin("You review Go code.", "ai", "agent", "set", "reviewer", "--name", "Reviewer", "--system-prompt", "-")

	var a map[string]any
	env.runJSON(&a, "ai", "agent", "show", "reviewer")
	assert.Equal(t, "You review Go code.", a["system_prompt"])

	env.run("ai", "agent", "use", "reviewer")
	out := env.run("ai", "agent", "current")
	env.contains(out, "Reviewer")

	env.run("ai", "agent", "rm", "reviewer")
	_, err := env.runErr("ai", "agent", "show", "reviewer")
	assert.Error(t, err)
}
