package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpradana/deeply"
)

func writePlan(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh available")
	}
}

func TestVerifyCmd_Success(t *testing.T) {
	present := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(present, nil, 0644))
	t.Setenv("DEEPLY_CLI_TEST", "yes")

	path := writePlan(t, `
name: release
kind: parallel
tasks:
  - name: config
    kind: file
    path: `+present+`
  - name: token
    kind: env
    env: DEEPLY_CLI_TEST
`)

	out, err := run(t, "verify", path)
	require.NoError(t, err)
	assert.Contains(t, out, "VERIFY")
	assert.Contains(t, out, "config")
	assert.Contains(t, out, "3 tasks: 3 succeeded")
}

func TestVerifyCmd_Failure(t *testing.T) {
	path := writePlan(t, `
name: release
kind: sequential
tasks:
  - name: config
    kind: file
    path: /definitely/not/here
`)

	out, err := run(t, "verify", path)
	assert.ErrorIs(t, err, deeply.ErrVerificationFailed)
	assert.Contains(t, out, "2 failed")
}

func TestVerifyCmd_MissingArgAndPlan(t *testing.T) {
	_, err := run(t, "verify")
	assert.Error(t, err)

	_, err = run(t, "verify", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunCmd_ExecutesAfterVerify(t *testing.T) {
	requireShell(t)
	path := writePlan(t, `
name: release
kind: sequential
tasks:
  - name: first
    kind: command
    command: [/bin/sh, -c, "echo first-ran"]
  - name: second
    kind: command
    command: [/bin/sh, -c, "echo second-ran"]
`)

	out, err := run(t, "run", path, "--max-concurrency", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "VERIFY")
	assert.Contains(t, out, "EXECUTE")
	first := strings.Index(out, "first-ran")
	second := strings.Index(out, "second-ran")
	require.GreaterOrEqual(t, first, 0)
	assert.Greater(t, second, first)
}

func TestRunCmd_FailedVerifyBlocksExecute(t *testing.T) {
	requireShell(t)
	path := writePlan(t, `
name: release
kind: parallel
tasks:
  - name: side-effect
    kind: command
    command: [/bin/sh, -c, "echo must-not-run"]
  - name: gate
    kind: env
    env: DEEPLY_CLI_TEST_NEVER_SET
`)

	out, err := run(t, "run", path)
	assert.ErrorIs(t, err, deeply.ErrVerificationFailed)
	assert.NotContains(t, out, "must-not-run")
}

func TestRunCmd_SkipVerify(t *testing.T) {
	requireShell(t)
	path := writePlan(t, `
name: only
kind: command
command: [/bin/sh, -c, "echo skipped-verify"]
`)

	out, err := run(t, "run", "--skip-verify", path)
	require.NoError(t, err)
	assert.Contains(t, out, "skipped-verify")
	assert.NotContains(t, out, "VERIFY")
}

func TestRunCmd_Timeout(t *testing.T) {
	path := writePlan(t, `
name: wait
kind: sleep
duration: 1h
`)

	_, err := run(t, "run", "--timeout", "30ms", path)
	assert.True(t, deeply.IsCancelled(err), "got %v", err)
}

func TestTreeCmd(t *testing.T) {
	path := writePlan(t, `
name: release
kind: sequential
tasks:
  - name: checks
    kind: parallel
    tasks:
      - name: token
        kind: env
        env: HOME
`)

	out, err := run(t, "tree", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "release")
	assert.Contains(t, lines[0], "(sequential)")
	assert.True(t, strings.HasPrefix(lines[1], "  "))
	assert.Contains(t, lines[1], "(parallel)")
	assert.Equal(t, "    token", lines[2])
}

func TestDotCmd(t *testing.T) {
	path := writePlan(t, `
name: release
kind: sequential
tasks:
  - name: token
    kind: env
    env: HOME
`)

	out, err := run(t, "dot", "--rank-dir", "LR", path)
	require.NoError(t, err)
	assert.Contains(t, out, `digraph "release" {`)
	assert.Contains(t, out, "rankdir=LR;")
	assert.Contains(t, out, "n0 -> n1;")
}
