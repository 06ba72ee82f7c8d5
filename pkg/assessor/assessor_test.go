package assessor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func checkByName(t *testing.T, result *Result, name string) Check {
	t.Helper()
	for _, c := range result.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %s not found", name)
	return Check{}
}

func TestAssessGenerationTypeScript(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, ".speakeasy/workflow.yaml", "workflowVersion: 1.0.0\n")
	writeFile(t, ws, "sdk/typescript/package.json", "{}")
	writeFile(t, ws, "sdk/typescript/src/index.ts", "export {}\n")

	result := New(ws).AssessGeneration("typescript", []string{"package.json"})
	assert.True(t, result.Passed)
	assert.True(t, checkByName(t, result, "workflow_exists").Passed)
	assert.True(t, checkByName(t, result, "has_package_json").Passed)
	assert.True(t, checkByName(t, result, "has_sdk_entrypoint").Passed)
	assert.Equal(t, 0, result.FailedCount())
}

func TestAssessGenerationMissingSDKDir(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, ".speakeasy/workflow.yaml", "workflowVersion: 1.0.0\n")

	result := New(ws).AssessGeneration("go", nil)
	assert.False(t, result.Passed)
	assert.False(t, checkByName(t, result, "sdk_directory_exists").Passed)
}

func TestAssessGenerationGoChecks(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, ".speakeasy/workflow.yaml", "workflowVersion: 1.0.0\n")
	writeFile(t, ws, "sdk/go/go.mod", "module example.com/sdk\n")
	writeFile(t, ws, "sdk/go/client.go", "package sdk\n")

	result := New(ws).AssessGeneration("go", nil)
	assert.True(t, result.Passed)
	assert.True(t, checkByName(t, result, "has_go_files").Passed)
}

func TestAssessOverlayValid(t *testing.T) {
	dir := t.TempDir()
	overlay := `overlay: 1.0.0
info:
  title: Add retries
  version: 0.0.1
actions:
  - target: $.paths
    update:
      x-speakeasy-retries:
        strategy: backoff
`
	writeFile(t, dir, "overlay.yaml", overlay)

	result := New(dir).AssessOverlay(filepath.Join(dir, "overlay.yaml"))
	assert.True(t, result.Passed)
	assert.True(t, checkByName(t, result, "valid_yaml").Passed)
	assert.True(t, checkByName(t, result, "action_0_valid").Passed)
}

func TestAssessOverlayMissingFields(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "overlay.yaml", "overlay: 1.0.0\nactions:\n  - update: {}\n")

	result := New(dir).AssessOverlay(filepath.Join(dir, "overlay.yaml"))
	assert.False(t, result.Passed)
	assert.False(t, checkByName(t, result, "has_info").Passed)
	assert.False(t, checkByName(t, result, "action_0_valid").Passed)
}

func TestAssessOverlayInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "overlay.yaml", "overlay: [unclosed\n")

	result := New(dir).AssessOverlay(filepath.Join(dir, "overlay.yaml"))
	assert.False(t, result.Passed)
	assert.False(t, checkByName(t, result, "valid_yaml").Passed)
}

func TestAssessOverlayMissingFile(t *testing.T) {
	dir := t.TempDir()
	result := New(dir).AssessOverlay(filepath.Join(dir, "nope.yaml"))
	assert.False(t, result.Passed)
}

func TestAssessLintOutput(t *testing.T) {
	t.Run("clean", func(t *testing.T) {
		result := New(t.TempDir()).AssessLintOutput("3 warnings found\nwarning: missing example")
		assert.True(t, result.Passed)
		assert.Contains(t, result.Summary, "0 errors")
	})

	t.Run("with errors", func(t *testing.T) {
		result := New(t.TempDir()).AssessLintOutput("error: missing operationId at /paths/~1users")
		assert.False(t, result.Passed)
		assert.False(t, checkByName(t, result, "no_errors").Passed)
		assert.False(t, checkByName(t, result, "missing_operation_ids").Passed)
	})
}

func TestAssessNaming(t *testing.T) {
	sdkDir := t.TempDir()
	writeFile(t, sdkDir, "src/users.ts", "export function listUsers() {}\n")

	result, err := New(t.TempDir()).AssessNaming(sdkDir, []string{"listUsers"})
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.True(t, checkByName(t, result, "good_naming").Passed)
	assert.True(t, checkByName(t, result, "has_method_listUsers").Passed)
}

func TestAssessNamingPoorPatterns(t *testing.T) {
	sdkDir := t.TempDir()
	writeFile(t, sdkDir, "src/gen.ts", "export function api_v1_users_get() {}\n")

	result, err := New(t.TempDir()).AssessNaming(sdkDir, nil)
	require.NoError(t, err)
	assert.False(t, result.Passed)
}

func TestAssessNamingNoSources(t *testing.T) {
	result, err := New(t.TempDir()).AssessNaming(t.TempDir(), nil)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.False(t, checkByName(t, result, "has_source_files").Passed)
}
