package core

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshell/marsh/core/config"
	"github.com/marshell/marsh/core/logger"
	"github.com/marshell/marsh/core/parser"
	"github.com/marshell/marsh/core/proc"
)

// testShell builds a session with buffered streams and no readline.
func testShell(t *testing.T) (*Shell, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	s := &Shell{
		Config:  config.Default(),
		Tracker: proc.NewTracker(),
		Log:     logger.NewNopRecorder(),
		stdout:  stdout,
		stderr:  stderr,
	}
	s.Engine = proc.NewEngine(s.Tracker)
	s.Engine.Stderr = stderr
	return s, stdout, stderr
}

func mustParse(t *testing.T, line string) []*parser.Command {
	t.Helper()
	pipeline, err := parser.Parse(line)
	require.NoError(t, err)
	require.NotEmpty(t, pipeline)
	return pipeline
}

// chdirTemp moves into a fresh directory and restores the original
// working directory when the test finishes.
func chdirTemp(t *testing.T) string {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(orig) })

	require.NoError(t, os.Chdir(t.TempDir()))
	resolved, err := os.Getwd()
	require.NoError(t, err)
	return resolved
}

func sameDir(t *testing.T, want, got string) {
	t.Helper()
	w, err := filepath.EvalSymlinks(want)
	require.NoError(t, err)
	g, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	assert.Equal(t, w, g)
}

func TestCdHome(t *testing.T) {
	s, _, _ := testShell(t)
	chdirTemp(t)
	home := t.TempDir()
	t.Setenv(EnvHome, home)

	assert.Equal(t, 0, Cd(s, mustParse(t, "cd")))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	sameDir(t, home, cwd)
}

func TestCdHomeUnset(t *testing.T) {
	s, _, stderr := testShell(t)
	start := chdirTemp(t)
	t.Setenv(EnvHome, "")

	assert.Equal(t, 1, Cd(s, mustParse(t, "cd")))
	assert.Contains(t, stderr.String(), "HOME not set")

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, start, cwd)
}

func TestCdDashRoundTrip(t *testing.T) {
	s, stdout, _ := testShell(t)
	first := chdirTemp(t)
	second := t.TempDir()

	require.Equal(t, 0, Cd(s, mustParse(t, "cd "+second)))
	require.Equal(t, 0, Cd(s, mustParse(t, "cd -")))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, first, cwd)
	// `cd -` announces where it landed.
	assert.Equal(t, first+"\n", stdout.String())
}

func TestCdDashWithoutPrevious(t *testing.T) {
	s, _, stderr := testShell(t)
	chdirTemp(t)

	assert.Equal(t, 1, Cd(s, mustParse(t, "cd -")))
	assert.Contains(t, stderr.String(), "no previous directory")
}

func TestCdMissingTarget(t *testing.T) {
	s, _, stderr := testShell(t)
	start := chdirTemp(t)
	s.prevDir = "/somewhere"

	assert.Equal(t, 1, Cd(s, mustParse(t, "cd /definitely/missing/dir")))
	assert.Contains(t, stderr.String(), "no such file")

	// Neither the working directory nor the previous directory moved.
	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, start, cwd)
	assert.Equal(t, "/somewhere", s.prevDir)
}

func TestCdRejectedInPipeline(t *testing.T) {
	s, _, stderr := testShell(t)
	start := chdirTemp(t)

	assert.Equal(t, 1, Cd(s, mustParse(t, "cd /tmp | ls")))
	assert.Contains(t, stderr.String(), "pipeline")

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, start, cwd)
}

func TestCdRejectedInBackground(t *testing.T) {
	s, _, stderr := testShell(t)
	start := chdirTemp(t)

	assert.Equal(t, 1, Cd(s, mustParse(t, "cd /tmp &")))
	assert.Contains(t, stderr.String(), "background")

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, start, cwd)
}

func TestCdTooManyArguments(t *testing.T) {
	s, _, stderr := testShell(t)

	assert.Equal(t, 1, Cd(s, mustParse(t, "cd a b")))
	assert.Contains(t, stderr.String(), "too many arguments")
}

func TestExit(t *testing.T) {
	s, stdout, _ := testShell(t)

	assert.Equal(t, 0, Exit(s, mustParse(t, "exit")))
	assert.True(t, s.quit)
	assert.Contains(t, stdout.String(), "Goodbye")
}

func TestExitRejectedInBackground(t *testing.T) {
	s, _, stderr := testShell(t)

	assert.Equal(t, 1, Exit(s, mustParse(t, "exit &")))
	assert.False(t, s.quit)
	assert.Contains(t, stderr.String(), "background")
}

func TestExitTooManyArguments(t *testing.T) {
	s, _, stderr := testShell(t)

	assert.Equal(t, 1, Exit(s, mustParse(t, "exit now")))
	assert.False(t, s.quit)
	assert.Contains(t, stderr.String(), "too many arguments")
}

func TestBuiltinRegistry(t *testing.T) {
	for _, name := range []string{"cd", "exit"} {
		t.Run(name, func(t *testing.T) {
			assert.NotNil(t, AllBuiltins[name])
		})
	}
}
