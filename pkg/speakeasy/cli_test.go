package speakeasy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeBinary installs a shell script standing in for the speakeasy CLI.
func writeFakeBinary(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "speakeasy")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestRunCapturesOutput(t *testing.T) {
	bin := writeFakeBinary(t, `echo "lint ok"; echo "1 warning" >&2; exit 0`)
	cli, err := New(t.TempDir(), WithBinary(bin))
	require.NoError(t, err)

	result := cli.Lint(context.Background(), "openapi.yaml")
	assert.True(t, result.Success())
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Stdout, "lint ok")
	assert.Contains(t, result.Stderr, "1 warning")
	assert.Equal(t, "lint ok\n1 warning", result.Output())
	assert.Contains(t, result.Command, "lint openapi")
}

func TestRunNonZeroExit(t *testing.T) {
	bin := writeFakeBinary(t, `echo "spec has errors" >&2; exit 3`)
	cli, err := New(t.TempDir(), WithBinary(bin))
	require.NoError(t, err)

	result := cli.Lint(context.Background(), "openapi.yaml")
	assert.False(t, result.Success())
	assert.Equal(t, 3, result.ExitCode)
	assert.Contains(t, result.Stderr, "spec has errors")
}

func TestRunTimeout(t *testing.T) {
	bin := writeFakeBinary(t, `sleep 5`)
	cli, err := New(t.TempDir(), WithBinary(bin), WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	result := cli.Run(context.Background(), "lint")
	assert.False(t, result.Success())
	assert.Equal(t, -1, result.ExitCode)
	assert.Contains(t, result.Stderr, "timed out")
}

func TestRunRunsInWorkingDir(t *testing.T) {
	workDir := t.TempDir()
	bin := writeFakeBinary(t, `pwd`)
	cli, err := New(workDir, WithBinary(bin))
	require.NoError(t, err)

	result := cli.Run(context.Background(), "version")
	require.True(t, result.Success())
	assert.Contains(t, result.Stdout, filepath.Base(workDir))
}

func TestIsAvailable(t *testing.T) {
	ok := writeFakeBinary(t, `echo "1.0.0"; exit 0`)
	cli, err := New(t.TempDir(), WithBinary(ok))
	require.NoError(t, err)
	assert.True(t, cli.IsAvailable(context.Background()))

	broken := writeFakeBinary(t, `exit 1`)
	cli, err = New(t.TempDir(), WithBinary(broken))
	require.NoError(t, err)
	assert.False(t, cli.IsAvailable(context.Background()))
}

func TestOutputTrimsEmptyStreams(t *testing.T) {
	r := Result{Stdout: "  \n", Stderr: "only stderr\n"}
	assert.Equal(t, "only stderr", r.Output())
}
