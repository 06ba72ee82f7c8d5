package fixtures

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T) (*Loader, string) {
	t.Helper()
	fixturesDir := t.TempDir()
	l, err := NewLoader(fixturesDir, WithCacheDir(t.TempDir()))
	require.NoError(t, err)
	return l, fixturesDir
}

func TestLoadFile(t *testing.T) {
	l, dir := newTestLoader(t)

	specDir := filepath.Join(dir, "petstore")
	require.NoError(t, os.MkdirAll(specDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(specDir, "openapi.yaml"), []byte("openapi: 3.1.0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(specDir, "gen.yaml"), []byte("configVersion: 2.0.0\n"), 0o644))

	fixture, err := l.LoadFile("petstore/openapi.yaml")
	require.NoError(t, err)
	assert.Equal(t, "openapi: 3.1.0\n", fixture.Spec)
	assert.Equal(t, map[string]string{"petstore/gen.yaml": "configVersion: 2.0.0\n"}, fixture.Files)
}

func TestLoadFileMissing(t *testing.T) {
	l, _ := newTestLoader(t)

	_, err := l.LoadFile("nope/openapi.yaml")
	assert.ErrorContains(t, err, "spec file not found")
}

func TestLoadGitRequiresRepositoryAndCommit(t *testing.T) {
	l, _ := newTestLoader(t)

	_, err := l.LoadGit(t.Context(), Source{Repository: "https://example.com/repo.git"}, "")
	assert.ErrorContains(t, err, "missing repository or commit")

	_, err = l.LoadGit(t.Context(), Source{Commit: "abc123"}, "")
	assert.ErrorContains(t, err, "missing repository or commit")
}

func TestCloneDirName(t *testing.T) {
	assert.Equal(t, "speakeasy-api-openapi-deadbeef",
		cloneDirName("https://github.com/speakeasy-api/openapi.git", "deadbeefcafe"))
	assert.Equal(t, "speakeasy-api-openapi-abc",
		cloneDirName("https://github.com/speakeasy-api/openapi/", "abc"))
}

func TestFormatIssueMarkdown(t *testing.T) {
	data := []byte(`{
		"title": "Retries not applied",
		"body": "The SDK ignores x-speakeasy-retries.",
		"state": "open",
		"html_url": "https://github.com/acme/api/issues/42",
		"created_at": "2026-01-15T10:00:00Z",
		"user": {"login": "octocat"},
		"repository_url": "https://api.github.com/repos/acme/api"
	}`)

	md := formatIssueMarkdown(data)
	assert.Contains(t, md, "# GitHub Issue: Retries not applied")
	assert.Contains(t, md, "**Repository:** acme/api")
	assert.Contains(t, md, "**Author:** octocat")
	assert.Contains(t, md, "**Created:** 2026-01-15")
	assert.Contains(t, md, "x-speakeasy-retries")
}

func TestFormatIssueMarkdownInvalid(t *testing.T) {
	assert.Empty(t, formatIssueMarkdown([]byte("not json")))
	assert.Empty(t, formatIssueMarkdown([]byte("{}")))
}

func TestClearCache(t *testing.T) {
	l, _ := newTestLoader(t)

	marker := filepath.Join(l.cacheDir, "stale-clone")
	require.NoError(t, os.MkdirAll(marker, 0o755))

	require.NoError(t, l.ClearCache())
	_, err := os.Stat(marker)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(l.cacheDir)
	assert.NoError(t, err)
}
