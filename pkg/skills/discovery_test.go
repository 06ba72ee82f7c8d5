package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkill(t *testing.T, dir, name, description, body string) {
	t.Helper()
	skillDir := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(skillDir, 0o755))
	content := "---\nname: " + name + "\ndescription: " + description + "\n---\n\n" + body
	require.NoError(t, os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(content), 0o644))
}

func TestDiscoverSkills(t *testing.T) {
	tmpDir := t.TempDir()
	writeSkill(t, tmpDir, "openapi-validation", "Validate OpenAPI specs before generation", "# OpenAPI Validation\n\nRun the linter first.")
	writeSkill(t, tmpDir, "overlay-authoring", "Author overlay patch documents", "# Overlays\n\nUse targeted actions.")

	discovery, err := NewDiscovery(WithSkillDirs(tmpDir))
	require.NoError(t, err)

	found, err := discovery.DiscoverSkills()
	require.NoError(t, err)
	require.Len(t, found, 2)

	skill := found["openapi-validation"]
	require.NotNil(t, skill)
	assert.Equal(t, "Validate OpenAPI specs before generation", skill.Description)
	assert.Equal(t, filepath.Join(tmpDir, "openapi-validation"), skill.Directory)
	assert.Contains(t, skill.Content, "Run the linter first.")
	assert.NotContains(t, skill.Content, "description:")
}

func TestDiscoverSkillsPrecedence(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeSkill(t, first, "shared", "from the first directory", "first body")
	writeSkill(t, second, "shared", "from the second directory", "second body")

	discovery, err := NewDiscovery(WithSkillDirs(first, second))
	require.NoError(t, err)

	found, err := discovery.DiscoverSkills()
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "from the first directory", found["shared"].Description)
}

func TestDiscoverSkillsSkipsInvalid(t *testing.T) {
	tmpDir := t.TempDir()

	noFrontmatter := filepath.Join(tmpDir, "broken")
	require.NoError(t, os.MkdirAll(noFrontmatter, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(noFrontmatter, "SKILL.md"), []byte("# No frontmatter here\n"), 0o644))

	missingName := filepath.Join(tmpDir, "nameless")
	require.NoError(t, os.MkdirAll(missingName, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(missingName, "SKILL.md"), []byte("---\ndescription: has no name\n---\nbody\n"), 0o644))

	writeSkill(t, tmpDir, "valid-skill", "the only valid one", "body")

	discovery, err := NewDiscovery(WithSkillDirs(tmpDir))
	require.NoError(t, err)

	found, err := discovery.DiscoverSkills()
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Contains(t, found, "valid-skill")
}

func TestGetSkill(t *testing.T) {
	tmpDir := t.TempDir()
	writeSkill(t, tmpDir, "sdk-generation", "Generate client SDKs", "body")

	discovery, err := NewDiscovery(WithSkillDirs(tmpDir))
	require.NoError(t, err)

	skill, err := discovery.GetSkill("sdk-generation")
	require.NoError(t, err)
	assert.Equal(t, "sdk-generation", skill.Name)

	_, err = discovery.GetSkill("does-not-exist")
	assert.ErrorContains(t, err, "not found")
}

func TestListSkillNamesSorted(t *testing.T) {
	tmpDir := t.TempDir()
	writeSkill(t, tmpDir, "zeta", "last", "body")
	writeSkill(t, tmpDir, "alpha", "first", "body")

	discovery, err := NewDiscovery(WithSkillDirs(tmpDir))
	require.NoError(t, err)

	names, err := discovery.ListSkillNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, names)
}

func TestExtractBody(t *testing.T) {
	t.Run("strips frontmatter", func(t *testing.T) {
		body := extractBody("---\nname: x\n---\n\n# Title\n")
		assert.Equal(t, "# Title\n", body)
	})

	t.Run("no frontmatter returns content unchanged", func(t *testing.T) {
		content := "# Title\nbody\n"
		assert.Equal(t, content, extractBody(content))
	})

	t.Run("unterminated frontmatter returns content unchanged", func(t *testing.T) {
		content := "---\nname: x\nno closing fence\n"
		assert.Equal(t, content, extractBody(content))
	})
}
