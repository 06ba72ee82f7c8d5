// Package skills discovers and loads agent skill documents. A skill is a
// directory containing a SKILL.md file whose YAML frontmatter carries the
// skill's name and description; the Markdown body is the instructional text
// handed to the model during evaluation. The harness treats the body as opaque
// text and never interprets its content.
package skills

// Skill represents a loaded skill document.
type Skill struct {
	Name        string // Unique name from frontmatter
	Description string // Brief description from frontmatter
	Directory   string // Full path to the skill directory
	Content     string // Body of SKILL.md with frontmatter stripped
}

// Metadata represents the YAML frontmatter in SKILL.md files.
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}
