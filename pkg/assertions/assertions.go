// Package assertions evaluates declarative assertions against captured model
// responses. Evaluation is pure: no I/O, no mutation of inputs. Every outcome
// carries a human-readable detail explaining why it passed or failed, so the
// reporter never has to reconstruct the reason.
package assertions

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/skillkit/skilleval/pkg/suite"
)

// Outcome is the result of checking a single assertion.
type Outcome struct {
	Assertion suite.Assertion
	Passed    bool
	Detail    string
}

var (
	yamlFenceRe = regexp.MustCompile("(?s)```ya?ml\n(.*?)```")
	jsonFenceRe = regexp.MustCompile("(?s)```json\n(.*?)```")
	extensionRe = regexp.MustCompile(`x-speakeasy-[\w-]+`)
	commandRe   = regexp.MustCompile(`speakeasy\s+[\w-]+`)
)

// CheckAll evaluates assertions in order against the output.
func CheckAll(output string, as []suite.Assertion) []Outcome {
	outcomes := make([]Outcome, 0, len(as))
	for _, a := range as {
		outcomes = append(outcomes, Check(output, a))
	}
	return outcomes
}

// Check evaluates a single assertion against the output. For the activation
// kinds the output is the skill's frontmatter description rather than a model
// response.
//
// Empty output fails every assertion except not_contains and not_activates,
// which are vacuously true: text that says nothing certainly did not say the
// forbidden thing.
func Check(output string, a suite.Assertion) Outcome {
	if strings.TrimSpace(output) == "" {
		if a.Kind == suite.NotContains || a.Kind == suite.NotActivates {
			return Outcome{Assertion: a, Passed: true, Detail: "output is empty"}
		}
		return Outcome{Assertion: a, Passed: false, Detail: "output is empty"}
	}

	switch a.Kind {
	case suite.Contains:
		return checkContains(output, a)
	case suite.NotContains:
		return checkNotContains(output, a)
	case suite.MatchesRegex:
		return checkMatchesRegex(output, a)
	case suite.ValidYAML:
		return checkValidYAML(output, a)
	case suite.ValidJSON:
		return checkValidJSON(output, a)
	case suite.NoInvalidExtensions:
		return checkNoInvalidExtensions(output, a)
	case suite.NoInvalidCommands:
		return checkNoInvalidCommands(output, a)
	case suite.MentionsSteps:
		return checkMentionsSteps(output, a)
	case suite.Activates:
		return checkActivates(output, a)
	case suite.NotActivates:
		return checkNotActivates(output, a)
	default:
		// The loader rejects unknown kinds; reaching this is a programming error.
		return Outcome{Assertion: a, Passed: false, Detail: fmt.Sprintf("unrecognized assertion kind %q", a.Kind)}
	}
}

func checkContains(output string, a suite.Assertion) Outcome {
	if strings.Contains(output, a.Value) {
		return Outcome{Assertion: a, Passed: true, Detail: fmt.Sprintf("output contains %q", a.Value)}
	}
	return Outcome{Assertion: a, Passed: false, Detail: fmt.Sprintf("output does not contain %q", a.Value)}
}

func checkNotContains(output string, a suite.Assertion) Outcome {
	if strings.Contains(output, a.Value) {
		return Outcome{Assertion: a, Passed: false, Detail: fmt.Sprintf("output contains forbidden %q", a.Value)}
	}
	return Outcome{Assertion: a, Passed: true, Detail: fmt.Sprintf("output does not contain %q", a.Value)}
}

func checkMatchesRegex(output string, a suite.Assertion) Outcome {
	re, err := regexp.Compile(a.Value)
	if err != nil {
		return Outcome{Assertion: a, Passed: false, Detail: fmt.Sprintf("invalid pattern: %v", err)}
	}
	if re.MatchString(output) {
		return Outcome{Assertion: a, Passed: true, Detail: fmt.Sprintf("output matches /%s/", a.Value)}
	}
	return Outcome{Assertion: a, Passed: false, Detail: fmt.Sprintf("output does not match /%s/", a.Value)}
}

// extractBlocks returns the contents of fenced code blocks matching re. When
// the output has no fences at all, the whole output is treated as one block
// so that a bare "a: 1" response still satisfies valid_yaml.
func extractBlocks(output string, re *regexp.Regexp) []string {
	matches := re.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 && !strings.Contains(output, "```") {
		return []string{output}
	}
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, m[1])
	}
	return blocks
}

func checkValidYAML(output string, a suite.Assertion) Outcome {
	blocks := extractBlocks(output, yamlFenceRe)
	if len(blocks) == 0 {
		return Outcome{Assertion: a, Passed: false, Detail: "no yaml code block found in output"}
	}
	for _, block := range blocks {
		var v any
		if err := yaml.Unmarshal([]byte(block), &v); err != nil {
			return Outcome{Assertion: a, Passed: false, Detail: fmt.Sprintf("yaml parse error: %v", err)}
		}
	}
	return Outcome{Assertion: a, Passed: true, Detail: fmt.Sprintf("%d yaml block(s) parsed", len(blocks))}
}

func checkValidJSON(output string, a suite.Assertion) Outcome {
	blocks := extractBlocks(output, jsonFenceRe)
	if len(blocks) == 0 {
		return Outcome{Assertion: a, Passed: false, Detail: "no json code block found in output"}
	}
	for _, block := range blocks {
		var v any
		if err := json.Unmarshal([]byte(block), &v); err != nil {
			return Outcome{Assertion: a, Passed: false, Detail: fmt.Sprintf("json parse error: %v", err)}
		}
	}
	return Outcome{Assertion: a, Passed: true, Detail: fmt.Sprintf("%d json block(s) parsed", len(blocks))}
}

func checkNoInvalidExtensions(output string, a suite.Assertion) Outcome {
	allowed := make(map[string]bool, len(a.Valid))
	for _, v := range a.Valid {
		allowed[v] = true
	}

	var invalid []string
	for _, ext := range extensionRe.FindAllString(output, -1) {
		if !allowed[ext] {
			invalid = append(invalid, ext)
		}
	}
	if len(invalid) > 0 {
		return Outcome{Assertion: a, Passed: false, Detail: fmt.Sprintf("invented extensions: %s", strings.Join(dedupe(invalid), ", "))}
	}
	return Outcome{Assertion: a, Passed: true, Detail: "no invented extensions"}
}

func checkNoInvalidCommands(output string, a suite.Assertion) Outcome {
	var invalid []string
	for _, cmd := range commandRe.FindAllString(output, -1) {
		known := false
		for _, v := range a.Valid {
			if strings.Contains(cmd, v) {
				known = true
				break
			}
		}
		if !known {
			invalid = append(invalid, cmd)
		}
	}
	if len(invalid) > 0 {
		return Outcome{Assertion: a, Passed: false, Detail: fmt.Sprintf("invented commands: %s", strings.Join(dedupe(invalid), ", "))}
	}
	return Outcome{Assertion: a, Passed: true, Detail: "no invented commands"}
}

// checkMentionsSteps passes when at least 80% of the required steps are
// mentioned in the output. A step counts as mentioned when at least half of
// its key terms (words longer than three characters) appear, matching how the
// steps are phrased loosely relative to free-form model prose.
func checkMentionsSteps(output string, a suite.Assertion) Outcome {
	lower := strings.ToLower(output)

	mentioned := 0
	var missing []string
	for _, step := range a.Steps {
		if stepMentioned(lower, step) {
			mentioned++
		} else {
			missing = append(missing, step)
		}
	}

	if float64(mentioned) >= float64(len(a.Steps))*0.8 {
		return Outcome{Assertion: a, Passed: true, Detail: fmt.Sprintf("mentions %d/%d required steps", mentioned, len(a.Steps))}
	}
	return Outcome{Assertion: a, Passed: false, Detail: fmt.Sprintf("mentions %d/%d required steps; missing: %s", mentioned, len(a.Steps), strings.Join(missing, "; "))}
}

func stepMentioned(output, step string) bool {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(step)) {
		if len(w) > 3 {
			terms = append(terms, w)
		}
	}
	if len(terms) == 0 {
		return true
	}

	required := len(terms) / 2
	if required == 0 {
		required = 1
	}
	found := 0
	for _, term := range terms {
		if strings.Contains(output, term) {
			found++
		}
	}
	return found >= required
}

// checkActivates treats the output as the skill description and passes when
// any key term of the trigger phrase appears in it.
func checkActivates(description string, a suite.Assertion) Outcome {
	desc := strings.ToLower(description)
	for _, word := range strings.Fields(strings.ToLower(a.Value)) {
		if len(word) > 3 && strings.Contains(desc, word) {
			return Outcome{Assertion: a, Passed: true, Detail: fmt.Sprintf("description mentions %q", word)}
		}
	}
	return Outcome{Assertion: a, Passed: false, Detail: fmt.Sprintf("description does not match trigger phrase %q", a.Value)}
}

// checkNotActivates passes when the whole phrase is absent from the skill
// description, so generic requests do not pull the skill in.
func checkNotActivates(description string, a suite.Assertion) Outcome {
	if strings.Contains(strings.ToLower(description), strings.ToLower(a.Value)) {
		return Outcome{Assertion: a, Passed: false, Detail: fmt.Sprintf("description matches generic phrase %q", a.Value)}
	}
	return Outcome{Assertion: a, Passed: true, Detail: fmt.Sprintf("description does not match %q", a.Value)}
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
