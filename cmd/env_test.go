// The cmd/ package holds CLI integration tests that run the real binary:
// command parsing -> extension -> store -> SQLite.
//
// Each test gets its own data directory through PIM_DIR and its own HOME so
// the global config file never leaks between tests.

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	binaryPath string
	buildOnce  sync.Once
	buildErr   error
)

// buildBinary compiles the pim binary once for all tests.
func buildBinary(t *testing.T) string {
	t.Helper()

	buildOnce.Do(func() {
		tmpDir, err := os.MkdirTemp("", "pim-test-bin-*")
		if err != nil {
			buildErr = err
			return
		}

		binaryName := "pim"
		if os.PathSeparator == '\\' {
			binaryName = "pim.exe"
		}
		binaryPath = filepath.Join(tmpDir, binaryName)

		projectRoot := filepath.Dir(mustGetwd())

		cmd := exec.Command("go", "build", "-o", binaryPath, ".")
		cmd.Dir = projectRoot
		if out, err := cmd.CombinedOutput(); err != nil {
			buildErr = &buildError{err: err, output: string(out)}
			return
		}
	})

	if buildErr != nil {
		t.Fatalf("failed to build binary: %v", buildErr)
	}
	return binaryPath
}

type buildError struct {
	err    error
	output string
}

func (e *buildError) Error() string {
	return e.err.Error() + "\n" + e.output
}

func mustGetwd() string {
	dir, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return dir
}

// testEnv holds test environment state.
type testEnv struct {
	t      *testing.T
	dir    string
	binary string
	extra  []string
}

// newTestEnv creates a temporary directory with an initialised database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{t: t, dir: t.TempDir(), binary: buildBinary(t)}
	env.run("init")
	return env
}

// dataDir is the PIM_DIR the binary runs against.
func (e *testEnv) dataDir() string { return filepath.Join(e.dir, "data") }

// setenv adds a variable to every later invocation.
func (e *testEnv) setenv(key, value string) {
	e.extra = append(e.extra, key+"="+value)
}

func (e *testEnv) command(stdin string, args ...string) *exec.Cmd {
	cmd := exec.Command(e.binary, args...)
	cmd.Dir = e.dir
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "PIM_") {
			cmd.Env = append(cmd.Env, kv)
		}
	}
	cmd.Env = append(cmd.Env,
		"PIM_DIR="+e.dataDir(),
		"HOME="+e.dir,
		"XDG_CONFIG_HOME="+filepath.Join(e.dir, ".config"),
	)
	cmd.Env = append(cmd.Env, e.extra...)
	cmd.Stdin = strings.NewReader(stdin)
	return cmd
}

// run executes pim with the given args and returns its output.
func (e *testEnv) run(args ...string) string {
	e.t.Helper()
	out, err := e.runErr(args...)
	if err != nil {
		e.t.Fatalf("pim %v failed: %v\noutput: %s", args, err, out)
	}
	return out
}

// runErr executes pim and returns its output and any error.
func (e *testEnv) runErr(args ...string) (string, error) {
	e.t.Helper()
	out, err := e.command("", args...).CombinedOutput()
	return string(out), err
}

// runStdin executes pim with stdin input.
func (e *testEnv) runStdin(input string, args ...string) string {
	e.t.Helper()
	out, err := e.runStdinErr(input, args...)
	if err != nil {
		e.t.Fatalf("pim %v failed: %v\noutput: %s", args, err, out)
	}
	return out
}

// runStdinErr executes pim with stdin input and returns any error.
func (e *testEnv) runStdinErr(input string, args ...string) (string, error) {
	e.t.Helper()
	out, err := e.command(input, args...).CombinedOutput()
	return string(out), err
}

// runJSON executes pim with -o json and decodes stdout into v. Stderr is
// kept apart so warnings cannot corrupt the document.
func (e *testEnv) runJSON(v any, args ...string) {
	e.t.Helper()
	e.runStdinJSON("", v, args...)
}

// runStdinJSON is runJSON with stdin input.
func (e *testEnv) runStdinJSON(input string, v any, args ...string) {
	e.t.Helper()
	cmd := e.command(input, append(args, "-o", "json")...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		e.t.Fatalf("pim %v failed: %v\nstdout: %s\nstderr: %s", args, err, out, stderr.String())
	}
	require.NoError(e.t, json.Unmarshal(out, v), "pim %v output: %s", args, out)
}

// id runs a create command with JSON output and returns the new id.
func (e *testEnv) id(args ...string) string {
	e.t.Helper()
	var v map[string]any
	e.runJSON(&v, args...)
	id, ok := v["id"]
	require.True(e.t, ok, "pim %v returned no id: %v", args, v)
	return fmt.Sprint(id)
}

// contains checks if output contains expected string.
func (e *testEnv) contains(output, expected string) {
	e.t.Helper()
	assert.Contains(e.t, output, expected)
}

// notContains checks that output lacks a string.
func (e *testEnv) notContains(output, unexpected string) {
	e.t.Helper()
	assert.NotContains(e.t, output, unexpected)
}

// equals checks if output equals expected string (trimmed).
func (e *testEnv) equals(output, expected string) {
	e.t.Helper()
	assert.Equal(e.t, strings.TrimSpace(expected), strings.TrimSpace(output))
}

// toString formats a decoded JSON id for use as an argument.
func toString(v any) string { return fmt.Sprint(v) }
