// Package speakeasy wraps the external speakeasy CLI for live evaluation
// scenarios: linting specs, applying overlays, and generating SDKs inside an
// isolated workspace. The CLI's behavior is opaque to the harness; this
// package only provides invocation plumbing with timeouts and combined
// output capture.
package speakeasy

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/skillkit/skilleval/pkg/logger"
)

// DefaultTimeout bounds a single CLI command.
const DefaultTimeout = 2 * time.Minute

// Result captures one CLI command execution.
type Result struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the command exited zero.
func (r Result) Success() bool { return r.ExitCode == 0 }

// Output returns stdout and stderr joined, trimmed, for assertion checking.
func (r Result) Output() string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(r.Stdout); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(r.Stderr); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n")
}

// CLI invokes the speakeasy binary in a working directory.
type CLI struct {
	binPath    string
	workingDir string
	timeout    time.Duration
}

// Option configures a CLI.
type Option func(*CLI)

// WithTimeout overrides the per-command timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *CLI) { c.timeout = d }
}

// WithBinary pins the binary path instead of searching for it.
func WithBinary(path string) Option {
	return func(c *CLI) { c.binPath = path }
}

// New creates a CLI bound to workingDir, locating the speakeasy binary on
// PATH or in its conventional install locations.
func New(workingDir string, opts ...Option) (*CLI, error) {
	c := &CLI{workingDir: workingDir, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	if c.binPath == "" {
		path, err := findBinary()
		if err != nil {
			return nil, err
		}
		c.binPath = path
	}
	return c, nil
}

func findBinary() (string, error) {
	if path, err := exec.LookPath("speakeasy"); err == nil {
		return path, nil
	}

	homeDir, _ := os.UserHomeDir()
	candidates := []string{
		filepath.Join(homeDir, ".speakeasy", "bin", "speakeasy"),
		"/usr/local/bin/speakeasy",
		"/opt/homebrew/bin/speakeasy",
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.New("speakeasy CLI not found; install it from https://github.com/speakeasy-api/speakeasy")
}

// Run executes a speakeasy command with the configured timeout. Command
// failures are reported through Result, not error: a non-zero exit or a
// timeout is an evaluation observation, not a harness failure.
func (c *CLI) Run(ctx context.Context, args ...string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binPath, args...)
	cmd.Dir = c.workingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	cmdStr := c.binPath + " " + strings.Join(args, " ")
	logger.G(ctx).WithField("command", cmdStr).Debug("running speakeasy CLI")

	err := cmd.Run()
	result := Result{
		Command: cmdStr,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		result.ExitCode = -1
		result.Stderr = "command timed out after " + c.timeout.String()
	case err != nil:
		result.ExitCode = -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.Stderr = err.Error()
		}
	}
	return result
}

// Lint lints an OpenAPI spec.
func (c *CLI) Lint(ctx context.Context, spec string) Result {
	return c.Run(ctx, "lint", "openapi", "--non-interactive", "-s", spec)
}

// OverlayApply applies an overlay to a spec, writing the result to out.
func (c *CLI) OverlayApply(ctx context.Context, spec, overlay, out string) Result {
	return c.Run(ctx, "overlay", "apply", "-s", spec, "-o", overlay, "--out", out)
}

// OverlayValidate validates an overlay file.
func (c *CLI) OverlayValidate(ctx context.Context, overlay string) Result {
	return c.Run(ctx, "overlay", "validate", "-o", overlay)
}

// SuggestOperationIDs generates AI-suggested operation IDs as an overlay.
func (c *CLI) SuggestOperationIDs(ctx context.Context, spec, out string) Result {
	return c.Run(ctx, "suggest", "operation-ids", "-s", spec, "-o", out)
}

// Quickstart initializes a new SDK project non-interactively.
func (c *CLI) Quickstart(ctx context.Context, spec, target, sdkName, packageName, outputDir string) Result {
	args := []string{
		"quickstart", "--skip-interactive", "--output", "console",
		"-s", spec, "-t", target, "-n", sdkName, "-p", packageName,
	}
	if outputDir != "" {
		args = append(args, "-o", outputDir)
	}
	return c.Run(ctx, args...)
}

// Generate regenerates the SDK from an existing workflow configuration.
func (c *CLI) Generate(ctx context.Context) Result {
	return c.Run(ctx, "run", "-y", "--output", "console")
}

// Version returns the CLI version.
func (c *CLI) Version(ctx context.Context) Result {
	return c.Run(ctx, "--version")
}

// IsAvailable reports whether the CLI can be executed.
func (c *CLI) IsAvailable(ctx context.Context) bool {
	return c.Version(ctx).Success()
}
