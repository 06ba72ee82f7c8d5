// Package assessor inspects workspace state after a live evaluation to judge
// whether SDK generation and related operations actually succeeded. It
// complements text assertions: assertions check what the model said, the
// assessor checks what ended up on disk.
package assessor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Check is one named verification with its outcome.
type Check struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Details string `json:"details,omitempty"`
}

// Result aggregates the checks for one assessment.
type Result struct {
	Passed  bool    `json:"passed"`
	Checks  []Check `json:"checks"`
	Summary string  `json:"summary"`
}

func (r *Result) addCheck(name string, passed bool, details string) {
	r.Checks = append(r.Checks, Check{Name: name, Passed: passed, Details: details})
	if !passed {
		r.Passed = false
	}
}

// PassedCount returns the number of passing checks.
func (r *Result) PassedCount() int {
	n := 0
	for _, c := range r.Checks {
		if c.Passed {
			n++
		}
	}
	return n
}

// FailedCount returns the number of failing checks.
func (r *Result) FailedCount() int {
	return len(r.Checks) - r.PassedCount()
}

func (r *Result) summarize() {
	r.Summary = fmt.Sprintf("%d/%d checks passed", r.PassedCount(), len(r.Checks))
}

// Assessor evaluates the state of a workspace directory.
type Assessor struct {
	workspaceDir string
}

// New creates an Assessor for a workspace directory.
func New(workspaceDir string) *Assessor {
	return &Assessor{workspaceDir: workspaceDir}
}

// AssessGeneration checks whether SDK generation for the target language
// produced the expected layout. expectedArtifacts are paths relative to the
// SDK output directory.
func (a *Assessor) AssessGeneration(target string, expectedArtifacts []string) *Result {
	result := &Result{Passed: true}

	workflowPath := filepath.Join(a.workspaceDir, ".speakeasy", "workflow.yaml")
	workflowExists := fileExists(workflowPath)
	result.addCheck("workflow_exists", workflowExists, existsDetail(".speakeasy/workflow.yaml", workflowExists))

	sdkDir := a.findSDKDir(target)
	if sdkDir == "" {
		result.addCheck("sdk_directory_exists", false, "SDK output directory not found")
		result.summarize()
		return result
	}
	rel, _ := filepath.Rel(a.workspaceDir, sdkDir)
	result.addCheck("sdk_directory_exists", true, "SDK output directory found at "+rel)

	for _, artifact := range expectedArtifacts {
		exists := fileExists(filepath.Join(sdkDir, artifact))
		result.addCheck("artifact_"+artifact, exists, existsDetail(artifact, exists))
	}

	for _, check := range languageChecks(target) {
		passed, details := check.fn(sdkDir)
		result.addCheck(check.name, passed, details)
	}

	result.summarize()
	return result
}

func (a *Assessor) findSDKDir(target string) string {
	candidates := []string{
		filepath.Join("sdk", target),
		filepath.Join("sdks", target),
		target,
		"sdk",
	}
	for _, candidate := range candidates {
		path := filepath.Join(a.workspaceDir, candidate)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path
		}
	}
	return ""
}

type langCheck struct {
	name string
	fn   func(sdkDir string) (bool, string)
}

func languageChecks(target string) []langCheck {
	switch target {
	case "typescript":
		return []langCheck{
			{"has_package_json", checkFile("package.json")},
			{"has_src_directory", checkDir("src")},
			{"has_sdk_entrypoint", checkAnyFile("src/index.ts", "src/sdk.ts")},
		}
	case "python":
		return []langCheck{
			{"has_pyproject", checkAnyFile("pyproject.toml", "setup.py")},
			{"has_src_directory", checkDir("src")},
			{"has_init_py", checkPattern("**/__init__.py")},
		}
	case "go":
		return []langCheck{
			{"has_go_mod", checkFile("go.mod")},
			{"has_go_files", checkPattern("*.go")},
		}
	case "java":
		return []langCheck{
			{"has_pom_or_gradle", checkAnyFile("pom.xml", "build.gradle")},
			{"has_src_main", checkDir("src/main")},
		}
	case "terraform":
		return []langCheck{
			{"has_provider_go", checkPattern("**/provider.go")},
			{"has_go_mod", checkFile("go.mod")},
		}
	}
	return nil
}

func checkFile(relPath string) func(string) (bool, string) {
	return func(sdkDir string) (bool, string) {
		exists := fileExists(filepath.Join(sdkDir, relPath))
		return exists, existsDetail(relPath, exists)
	}
}

func checkDir(relPath string) func(string) (bool, string) {
	return func(sdkDir string) (bool, string) {
		info, err := os.Stat(filepath.Join(sdkDir, relPath))
		exists := err == nil && info.IsDir()
		return exists, existsDetail(relPath+"/", exists)
	}
}

func checkAnyFile(relPaths ...string) func(string) (bool, string) {
	return func(sdkDir string) (bool, string) {
		for _, p := range relPaths {
			if fileExists(filepath.Join(sdkDir, p)) {
				return true, "found " + p
			}
		}
		return false, "none of " + strings.Join(relPaths, ", ") + " found"
	}
}

func checkPattern(pattern string) func(string) (bool, string) {
	return func(sdkDir string) (bool, string) {
		matches, err := doublestar.Glob(os.DirFS(sdkDir), pattern)
		if err != nil || len(matches) == 0 {
			return false, "no files matching " + pattern
		}
		return true, fmt.Sprintf("found %d files matching %s", len(matches), pattern)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func existsDetail(name string, exists bool) string {
	if exists {
		return name + " found"
	}
	return name + " missing"
}

// AssessOverlay validates an overlay document: YAML syntax, required
// top-level fields, and per-action structure.
func (a *Assessor) AssessOverlay(overlayPath string) *Result {
	result := &Result{Passed: true}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		result.addCheck("overlay_exists", false, existsDetail(filepath.Base(overlayPath), false))
		result.summarize()
		return result
	}
	result.addCheck("overlay_exists", true, existsDetail(filepath.Base(overlayPath), true))

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		result.addCheck("valid_yaml", false, "invalid YAML: "+err.Error())
		result.summarize()
		return result
	}
	result.addCheck("valid_yaml", true, "valid YAML syntax")

	_, hasVersion := doc["overlay"]
	result.addCheck("has_overlay_version", hasVersion, fieldDetail("overlay", hasVersion))

	_, hasInfo := doc["info"]
	result.addCheck("has_info", hasInfo, fieldDetail("info", hasInfo))

	actions, _ := doc["actions"].([]any)
	hasActions := len(actions) > 0
	result.addCheck("has_actions", hasActions, fieldDetail("actions", hasActions))

	for i, raw := range actions {
		action, _ := raw.(map[string]any)
		_, hasTarget := action["target"]
		_, hasUpdate := action["update"]
		_, hasRemove := action["remove"]
		valid := hasTarget && (hasUpdate || hasRemove)
		details := fmt.Sprintf("action %d: valid", i)
		if !valid {
			details = fmt.Sprintf("action %d: missing target or update/remove", i)
		}
		result.addCheck(fmt.Sprintf("action_%d_valid", i), valid, details)
	}

	result.summarize()
	return result
}

var (
	lintErrorRe   = regexp.MustCompile(`(?i)\berror\b`)
	lintWarningRe = regexp.MustCompile(`(?i)\bwarning\b`)

	lintIssues = []struct {
		name    string
		pattern *regexp.Regexp
	}{
		{"missing_operation_ids", regexp.MustCompile(`(?i)missing operationId`)},
		{"missing_descriptions", regexp.MustCompile(`(?i)missing description`)},
		{"invalid_refs", regexp.MustCompile(`(?i)invalid.*\$ref`)},
	}
)

// AssessLintOutput triages speakeasy lint output. Errors fail the
// assessment; warnings are recorded but tolerated.
func (a *Assessor) AssessLintOutput(lintOutput string) *Result {
	result := &Result{Passed: true}

	errorCount := len(lintErrorRe.FindAllString(lintOutput, -1))
	warningCount := len(lintWarningRe.FindAllString(lintOutput, -1))

	result.addCheck("no_errors", errorCount == 0, fmt.Sprintf("%d errors found", errorCount))
	result.addCheck("warnings_only", true, fmt.Sprintf("%d warnings found", warningCount))

	for _, issue := range lintIssues {
		found := issue.pattern.MatchString(lintOutput)
		detail := strings.ReplaceAll(issue.name, "_", " ")
		if found {
			detail += " found"
		} else {
			detail += " not found"
		}
		result.addCheck(issue.name, !found, detail)
	}

	result.Summary = fmt.Sprintf("%d errors, %d warnings", errorCount, warningCount)
	return result
}

var poorNamingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)api_v\d+_\w+_\w+`),
	regexp.MustCompile(`(?i)endpoint\d+`),
	regexp.MustCompile(`(?i)operation\d+`),
}

// AssessNaming samples SDK source files and flags machine-generated naming
// patterns; expectedMethods must all appear in the sampled sources.
func (a *Assessor) AssessNaming(sdkDir string, expectedMethods []string) (*Result, error) {
	result := &Result{Passed: true}

	var sources []string
	for _, pattern := range []string{"**/*.ts", "**/*.py", "**/*.go"} {
		matches, err := doublestar.Glob(os.DirFS(sdkDir), pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to glob %s", pattern)
		}
		sources = append(sources, matches...)
	}

	if len(sources) == 0 {
		result.addCheck("has_source_files", false, "no source files found")
		result.summarize()
		return result, nil
	}
	result.addCheck("has_source_files", true, fmt.Sprintf("found %d source files", len(sources)))

	// sample a bounded number of files to keep assessment fast
	if len(sources) > 20 {
		sources = sources[:20]
	}
	var content strings.Builder
	for _, rel := range sources {
		data, err := os.ReadFile(filepath.Join(sdkDir, rel))
		if err != nil {
			continue
		}
		content.Write(data)
	}
	all := content.String()

	poorFound := false
	for _, pattern := range poorNamingPatterns {
		if pattern.MatchString(all) {
			poorFound = true
			result.addCheck("no_"+pattern.String(), false, "poor naming pattern found: "+pattern.String())
		}
	}
	if !poorFound {
		result.addCheck("good_naming", true, "no poor naming patterns detected")
	}

	for _, method := range expectedMethods {
		found := strings.Contains(all, method)
		result.addCheck("has_method_"+method, found, "method "+method+" "+foundWord(found))
	}

	result.summarize()
	return result, nil
}

func fieldDetail(field string, present bool) string {
	if present {
		return "'" + field + "' field present"
	}
	return "'" + field + "' field missing or empty"
}

func foundWord(found bool) string {
	if found {
		return "found"
	}
	return "not found"
}
