package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newVaultEnv returns an environment with a configured vault. The key
// derivation is turned down so the suite stays fast.
func newVaultEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	env.run("config", "vault.kdf_time", "1")
	env.run("config", "vault.kdf_memory", "8192")
	env.setenv("PIM_MASTER", "correct horse")
	env.run("vault", "setup")
	return env
}

func TestVaultSetup(t *testing.T) {
	t.Run("prompts twice on stdin", func(t *testing.T) {
		env := newTestEnv(t)
		env.run("config", "vault.kdf_memory", "8192")
		env.runStdin("pw\npw\n", "vault", "setup")

		out := env.runStdin("pw\n", "vault", "unlock")
		env.contains(out, "OK")
	})

	t.Run("mismatch", func(t *testing.T) {
		env := newTestEnv(t)
		out, err := env.runStdinErr("one\ntwo\n", "vault", "setup")
		assert.Error(t, err)
		env.contains(out, "do not match")
	})

	t.Run("only once", func(t *testing.T) {
		env := newVaultEnv(t)
		_, err := env.runErr("vault", "setup")
		assert.Error(t, err)
	})
}

func TestVaultEntry(t *testing.T) {
	t.Run("add and reveal", func(t *testing.T) {
		env := newVaultEnv(t)
		var added map[string]any
		env.runStdinJSON("s3cret\n", &added, "vault", "add", "GitHub", "--username", "octo", "--url", "https://github.com")
		entry := added["entry"].(map[string]any)
		id := entry["id"]

		var shown map[string]any
		env.runJSON(&shown, "vault", "show", toString(id), "--reveal")
		assert.Equal(t, "s3cret", shown["password"])

		out := env.run("vault", "ls")
		env.contains(out, "GitHub")
		env.notContains(out, "s3cret")
	})

	t.Run("wrong master", func(t *testing.T) {
		env := newVaultEnv(t)
		var added map[string]any
		env.runStdinJSON("s3cret\n", &added, "vault", "add", "Mail")
		id := toString(added["entry"].(map[string]any)["id"])

		env.setenv("PIM_MASTER", "wrong")
		out, err := env.runErr("vault", "show", id, "--reveal")
		assert.Error(t, err)
		env.contains(out, "wrong master password")
	})

	t.Run("generated password", func(t *testing.T) {
		env := newVaultEnv(t)
		var added map[string]any
		env.runJSON(&added, "vault", "add", "Bank", "--generate")
		pw, ok := added["password"].(string)
		require.True(t, ok)
		assert.Len(t, pw, 16)
	})

	t.Run("change master", func(t *testing.T) {
		env := newVaultEnv(t)
		var added map[string]any
		env.runStdinJSON("keepme\n", &added, "vault", "add", "Server", "--ip", "10.0.0.1")
		id := toString(added["entry"].(map[string]any)["id"])

		var res map[string]any
		env.runStdinJSON("new master\n", &res, "vault", "passwd")
		assert.EqualValues(t, 1, res["reencrypted"])

		env.setenv("PIM_MASTER", "new master")
		var shown map[string]any
		env.runJSON(&shown, "vault", "show", id, "--reveal")
		assert.Equal(t, "keepme", shown["password"])
	})

	t.Run("categories", func(t *testing.T) {
		env := newVaultEnv(t)
		cat := env.id("vault", "category", "create", "Work")
		env.runStdin("pw\n", "vault", "add", "Jira", "--category", cat)
		env.runStdin("pw\n", "vault", "add", "Netflix")

		out := env.run("vault", "ls", "--category", cat)
		env.contains(out, "Jira")
		env.notContains(out, "Netflix")

		env.run("vault", "category", "rm", cat)
		out = env.run("vault", "ls", "--category", "0")
		env.contains(out, "Jira")
	})

	t.Run("search", func(t *testing.T) {
		env := newVaultEnv(t)
		env.runStdin("pw\n", "vault", "add", "Database", "--db-type", "postgres", "--username", "admin")
		out := env.run("vault", "search", "admin")
		env.contains(out, "Database")
	})
}

func TestVaultGenerate(t *testing.T) {
	env := newTestEnv(t)
	var res map[string]any
	env.runJSON(&res, "vault", "generate", "--length", "32", "--no-symbols")
	pw := res["password"].(string)
	assert.Len(t, pw, 32)
	assert.Regexp(t, `^[A-Za-z0-9]+$`, pw)

	_, err := env.runErr("vault", "generate", "--length", "2")
	assert.Error(t, err)

	out := env.run("vault", "strength", "Tr0ub4dor&3xyzzy!")
	env.contains(out, "/100")
}
