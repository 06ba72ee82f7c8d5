// Package suite loads evaluation test suites from YAML definition files into
// typed, validated records. A suite file carries a top-level "tests" list;
// each entry names a skill plus either a prompt with assertions to check
// against the model's response, or activation phrase lists checked offline
// against the skill's description. All structural validation happens at load
// time so a malformed suite is rejected before any model invocation.
package suite

// AssertionKind identifies one of the recognized assertion variants.
type AssertionKind string

const (
	// Contains passes iff the value is a literal substring of the output.
	Contains AssertionKind = "contains"
	// NotContains passes iff the value is not a substring of the output.
	NotContains AssertionKind = "not_contains"
	// MatchesRegex passes iff the pattern matches anywhere in the output.
	MatchesRegex AssertionKind = "matches_regex"
	// ValidYAML passes iff the fenced yaml blocks in the output (or the bare
	// output when unfenced) parse as YAML.
	ValidYAML AssertionKind = "valid_yaml"
	// ValidJSON passes iff the fenced json blocks in the output (or the bare
	// output when unfenced) parse as JSON.
	ValidJSON AssertionKind = "valid_json"
	// NoInvalidExtensions passes iff every x-speakeasy-* extension mentioned
	// in the output appears in the assertion's allowlist.
	NoInvalidExtensions AssertionKind = "no_invalid_extensions"
	// NoInvalidCommands passes iff every speakeasy CLI command mentioned in
	// the output starts with an allowlisted command.
	NoInvalidCommands AssertionKind = "no_invalid_commands"
	// MentionsSteps passes iff at least 80% of the listed steps are
	// mentioned in the output, matched by each step's key terms.
	MentionsSteps AssertionKind = "mentions_steps"

	// Activates and NotActivates are synthesized from a test's
	// should_activate/should_not_activate phrase lists and checked against
	// the skill's frontmatter description rather than model output.

	// Activates passes iff a key term of the phrase appears in the
	// skill description.
	Activates AssertionKind = "activates"
	// NotActivates passes iff the whole phrase does not appear in the
	// skill description.
	NotActivates AssertionKind = "not_activates"
)

// CaseKind distinguishes how a test case is evaluated.
type CaseKind string

const (
	// CasePrompt sends the prompt to the model and checks assertions
	// against the response.
	CasePrompt CaseKind = "prompt"
	// CaseActivation checks trigger phrases against the skill's
	// description offline; no model invocation happens.
	CaseActivation CaseKind = "activation"
)

// Assertion is a single declarative check against a model response.
// Immutable after load.
type Assertion struct {
	Kind  AssertionKind
	Value string   // substring, regex pattern, or trigger phrase, depending on Kind
	Valid []string // allowlist for the no_invalid_* kinds
	Steps []string // required steps for mentions_steps
}

// TestCase is one evaluation case: a prompt sent on behalf of a skill, plus
// the assertions its response must satisfy. Index is the stable sequence
// position assigned at load time; the runner keys result slots by it so the
// final report preserves declaration order under concurrent execution.
type TestCase struct {
	Name       string
	Suite      string
	Skill      string
	Kind       CaseKind
	Prompt     string
	Assertions []Assertion
	Index      int
}

// Suite is a named, ordered collection of test cases.
type Suite struct {
	Name  string
	Cases []TestCase
}
