// Package tracker persists evaluation results over time for trend analysis.
// Each run is saved as a timestamped JSON file in a results directory, and a
// prepend-style HISTORY.md keeps a human-readable summary of recent runs
// alongside the git revision they were produced from.
package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/skillkit/skilleval/pkg/reporter"
	"github.com/skillkit/skilleval/pkg/runner"
)

const historyMarker = "<!-- New entries will be prepended below this line -->"

var timestampedFile = regexp.MustCompile(`^\d{8}_\d{6}\.json$`)

// GitInfo captures the repository state a run was produced from.
type GitInfo struct {
	Commit string `json:"commit"`
	Branch string `json:"branch"`
	Dirty  bool   `json:"dirty"`
}

// Metadata wraps a saved report with run provenance.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Model     string    `json:"model"`
	GitCommit string    `json:"git_commit"`
	GitBranch string    `json:"git_branch"`
	GitDirty  bool      `json:"git_dirty"`
}

// Entry is the on-disk shape of one tracked run.
type Entry struct {
	Metadata Metadata             `json:"metadata"`
	Results  *reporter.JSONReport `json:"results"`
}

// Tracker saves run results under a results directory.
type Tracker struct {
	resultsDir string
}

// New creates a Tracker, creating the results directory if needed.
func New(resultsDir string) (*Tracker, error) {
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create results directory %s", resultsDir)
	}
	return &Tracker{resultsDir: resultsDir}, nil
}

func (t *Tracker) historyPath() string {
	return filepath.Join(t.resultsDir, "HISTORY.md")
}

// gitInfo shells out to git; a non-repository directory yields "unknown"
// fields rather than an error.
func gitInfo() GitInfo {
	run := func(args ...string) string {
		out, err := exec.Command("git", args...).Output()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(out))
	}

	commit := run("rev-parse", "--short", "HEAD")
	branch := run("rev-parse", "--abbrev-ref", "HEAD")
	if commit == "" {
		commit = "unknown"
	}
	if branch == "" {
		branch = "unknown"
	}
	return GitInfo{
		Commit: commit,
		Branch: branch,
		Dirty:  run("status", "--porcelain") != "",
	}
}

// Save writes the report to a timestamped JSON file and returns its path.
func (t *Tracker) Save(rep *runner.Report) (string, error) {
	now := time.Now().UTC()
	git := gitInfo()

	entry := Entry{
		Metadata: Metadata{
			Timestamp: now,
			Model:     rep.Model,
			GitCommit: git.Commit,
			GitBranch: git.Branch,
			GitDirty:  git.Dirty,
		},
		Results: reporter.ToJSON(rep),
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal tracked entry")
	}

	path := filepath.Join(t.resultsDir, now.Format("20060102_150405")+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write results file %s", path)
	}

	if err := t.updateHistory(rep, git, now, filepath.Base(path)); err != nil {
		return "", err
	}
	return path, nil
}

// updateHistory prepends a summary entry below the marker line so the newest
// run always appears first.
func (t *Tracker) updateHistory(rep *runner.Report, git GitInfo, now time.Time, fileName string) error {
	var b strings.Builder
	dirtyMarker := ""
	if git.Dirty {
		dirtyMarker = " (dirty)"
	}

	b.WriteString("\n## " + now.Format("2006-01-02 15:04") + " UTC\n\n")
	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	writeRow := func(k, v string) { b.WriteString("| " + k + " | " + v + " |\n") }
	writeRow("Commit", "`"+git.Commit+"`"+dirtyMarker)
	writeRow("Branch", "`"+git.Branch+"`")
	writeRow("Model", "`"+rep.Model+"`")
	writeRow("Suite", rep.Suite)
	writeRow("**Pass Rate**", "**"+formatPercent(rep.PassRate)+"**")
	writeRow("Passed", itoa(rep.Passed))
	writeRow("Failed", itoa(rep.Failed))
	writeRow("Errored", itoa(rep.Errored))
	writeRow("Total", itoa(rep.Total))
	writeRow("Results File", "`"+fileName+"`")

	failed := 0
	for _, res := range rep.Results {
		if res.Status == runner.StatusPassed {
			continue
		}
		if failed == 0 {
			b.WriteString("\n**Failed Tests:**\n")
		}
		failed++
		if failed > 5 {
			b.WriteString("- ... and more\n")
			break
		}
		line := "- `" + res.Case.Name + "`"
		if res.Error != "" {
			line += ": " + truncate(res.Error, 100)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n---\n")

	entry := b.String()
	path := t.historyPath()

	existing, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		content := "# Evaluation History\n\n" + historyMarker + "\n" + entry
		return os.WriteFile(path, []byte(content), 0o644)
	case err != nil:
		return errors.Wrap(err, "failed to read history file")
	}

	content := string(existing)
	if idx := strings.Index(content, historyMarker); idx != -1 {
		insertAt := idx + len(historyMarker)
		content = content[:insertAt] + "\n" + entry + strings.TrimLeft(content[insertAt:], "\n")
	} else {
		content += entry
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// Recent loads the n most recent tracked entries, newest first. Only files
// matching the timestamped naming pattern are considered so ad hoc report
// files in the same directory are ignored.
func (t *Tracker) Recent(n int) ([]Entry, error) {
	dirEntries, err := os.ReadDir(t.resultsDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read results directory %s", t.resultsDir)
	}

	var names []string
	for _, de := range dirEntries {
		if !de.IsDir() && timestampedFile.MatchString(de.Name()) {
			names = append(names, de.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if len(names) > n {
		names = names[:n]
	}

	var entries []Entry
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(t.resultsDir, name))
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Trend summarizes pass rates across the n most recent runs.
type Trend struct {
	Count   int
	Latest  float64
	Average float64
	History []float64 // newest first
}

// Trend computes the pass-rate trend over recent runs.
func (t *Tracker) Trend(n int) (*Trend, error) {
	entries, err := t.Recent(n)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("no tracked results found")
	}

	trend := &Trend{Count: len(entries)}
	var sum float64
	for _, e := range entries {
		rate := 0.0
		if e.Results != nil {
			rate = e.Results.PassRate
		}
		trend.History = append(trend.History, rate)
		sum += rate
	}
	trend.Latest = trend.History[0]
	trend.Average = sum / float64(len(trend.History))
	return trend, nil
}

func formatPercent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
