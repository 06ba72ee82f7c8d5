package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// AllSuites is the pseudo-name that expands to every suite file in the
// definitions directory.
const AllSuites = "all"

// rawTest mirrors the YAML shape of a single test entry before validation.
type rawTest struct {
	Name              string         `yaml:"name"`
	Skill             string         `yaml:"skill"`
	Prompt            string         `yaml:"prompt"`
	Assertions        []rawAssertion `yaml:"assertions"`
	RequiredSteps     []string       `yaml:"required_steps"`
	ShouldActivate    []string       `yaml:"should_activate"`
	ShouldNotActivate []string       `yaml:"should_not_activate"`
}

type rawAssertion struct {
	Type      string   `yaml:"type"`
	Value     string   `yaml:"value"`
	Valid     []string `yaml:"valid"`
	ValidList []string `yaml:"valid_list"` // legacy alias for valid
	Steps     []string `yaml:"steps"`
}

type rawSuite struct {
	Tests []rawTest `yaml:"tests"`
}

// Loader reads suite definition files from a directory.
type Loader struct {
	dir string
}

// NewLoader creates a Loader rooted at the given suite definitions directory.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// SuiteNames returns the sorted names of all suite files in the directory.
func (l *Loader) SuiteNames() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read suite directory %s", l.dir)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if ext := filepath.Ext(name); ext == ".yaml" || ext == ".yml" {
			names = append(names, strings.TrimSuffix(name, ext))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Load reads and validates a single suite by name.
func (l *Loader) Load(name string) (*Suite, error) {
	path := filepath.Join(l.dir, name+".yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		path = filepath.Join(l.dir, name+".yml")
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read suite file for %q", name)
	}

	var raw rawSuite
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "%s: malformed suite file", path)
	}
	if len(raw.Tests) == 0 {
		return nil, errors.Errorf("%s: suite has no tests", path)
	}

	s := &Suite{Name: name}
	var merr *multierror.Error
	seen := make(map[string]bool)

	for i, rt := range raw.Tests {
		tc, err := buildCase(name, i, rt)
		if err != nil {
			merr = multierror.Append(merr, errors.Wrapf(err, "%s: test %d", path, i+1))
			continue
		}
		if seen[tc.Name] {
			merr = multierror.Append(merr, errors.Errorf("%s: test %d: duplicate test name %q", path, i+1, tc.Name))
			continue
		}
		seen[tc.Name] = true
		s.Cases = append(s.Cases, tc)
	}

	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadCases returns the union of cases for the named suite, or for every
// suite when name is AllSuites. Cases are assigned stable sequence indexes in
// suite order then declaration order. An optional skill filter keeps only
// cases exercising that skill.
func (l *Loader) LoadCases(name, skillFilter string) ([]TestCase, error) {
	var suiteNames []string
	if name == AllSuites {
		var err error
		suiteNames, err = l.SuiteNames()
		if err != nil {
			return nil, err
		}
		if len(suiteNames) == 0 {
			return nil, errors.Errorf("no suite files found in %s", l.dir)
		}
	} else {
		suiteNames = []string{name}
	}

	var cases []TestCase
	for _, sn := range suiteNames {
		s, err := l.Load(sn)
		if err != nil {
			return nil, err
		}
		cases = append(cases, s.Cases...)
	}

	if skillFilter != "" {
		filtered := cases[:0]
		for _, tc := range cases {
			if tc.Skill == skillFilter {
				filtered = append(filtered, tc)
			}
		}
		cases = filtered
	}

	for i := range cases {
		cases[i].Index = i
	}
	return cases, nil
}

func buildCase(suiteName string, ordinal int, rt rawTest) (TestCase, error) {
	if rt.Skill == "" {
		return TestCase{}, errors.New("missing skill")
	}

	name := rt.Name
	if name == "" {
		name = fmt.Sprintf("%s-%02d", rt.Skill, ordinal+1)
	}

	tc := TestCase{
		Name:   name,
		Suite:  suiteName,
		Skill:  rt.Skill,
		Kind:   CasePrompt,
		Prompt: rt.Prompt,
	}

	if len(rt.ShouldActivate) > 0 || len(rt.ShouldNotActivate) > 0 {
		if rt.Prompt != "" || len(rt.Assertions) > 0 || len(rt.RequiredSteps) > 0 {
			return TestCase{}, errors.New("activation phrases cannot be combined with prompt, assertions, or required_steps")
		}
		tc.Kind = CaseActivation
		for _, phrase := range rt.ShouldActivate {
			tc.Assertions = append(tc.Assertions, Assertion{Kind: Activates, Value: phrase})
		}
		for _, phrase := range rt.ShouldNotActivate {
			tc.Assertions = append(tc.Assertions, Assertion{Kind: NotActivates, Value: phrase})
		}
		return tc, nil
	}

	if rt.Prompt == "" {
		return TestCase{}, errors.New("missing prompt")
	}
	if len(rt.Assertions) == 0 && len(rt.RequiredSteps) == 0 {
		return TestCase{}, errors.New("no assertions")
	}

	for j, ra := range rt.Assertions {
		a, err := buildAssertion(ra)
		if err != nil {
			return TestCase{}, errors.Wrapf(err, "assertion %d", j+1)
		}
		tc.Assertions = append(tc.Assertions, a)
	}
	if len(rt.RequiredSteps) > 0 {
		tc.Assertions = append(tc.Assertions, Assertion{Kind: MentionsSteps, Steps: rt.RequiredSteps})
	}
	return tc, nil
}

// buildAssertion converts a raw YAML assertion into its typed variant.
// Unrecognized kinds fail closed at load time rather than being skipped.
func buildAssertion(ra rawAssertion) (Assertion, error) {
	kind := AssertionKind(ra.Type)
	if ra.Type == "matches" { // legacy alias
		kind = MatchesRegex
	}

	switch kind {
	case Contains, NotContains, MatchesRegex:
		if ra.Value == "" {
			return Assertion{}, errors.Errorf("%s assertion requires a value", kind)
		}
		return Assertion{Kind: kind, Value: ra.Value}, nil
	case ValidYAML, ValidJSON:
		return Assertion{Kind: kind}, nil
	case MentionsSteps:
		if len(ra.Steps) == 0 {
			return Assertion{}, errors.Errorf("%s assertion requires a steps list", kind)
		}
		return Assertion{Kind: kind, Steps: ra.Steps}, nil
	case NoInvalidExtensions, NoInvalidCommands:
		valid := ra.Valid
		if len(valid) == 0 {
			valid = ra.ValidList
		}
		if len(valid) == 0 {
			return Assertion{}, errors.Errorf("%s assertion requires a valid allowlist", kind)
		}
		return Assertion{Kind: kind, Valid: valid}, nil
	default:
		return Assertion{}, errors.Errorf("unrecognized assertion type %q", ra.Type)
	}
}
