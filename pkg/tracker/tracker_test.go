package tracker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillkit/skilleval/pkg/runner"
	"github.com/skillkit/skilleval/pkg/suite"
)

func sampleReport(passRate float64) *runner.Report {
	rep := &runner.Report{
		ID:        "run-1",
		Suite:     "correctness",
		Model:     "claude-sonnet-4-20250514",
		StartedAt: time.Now().UTC(),
		Results: []runner.CaseResult{
			{Case: suite.TestCase{Name: "retries", Suite: "correctness", Skill: "sdk-retries"}, Status: runner.StatusPassed},
			{Case: suite.TestCase{Name: "webhooks", Suite: "correctness", Skill: "sdk-webhooks"}, Status: runner.StatusErrored, Error: "retries exhausted"},
		},
	}
	rep.Total = 2
	rep.Passed = 1
	rep.Errored = 1
	rep.PassRate = passRate
	return rep
}

func TestSaveWritesTimestampedFile(t *testing.T) {
	dir := t.TempDir()
	tr, err := New(filepath.Join(dir, "results"))
	require.NoError(t, err)

	path, err := tr.Save(sampleReport(0.5))
	require.NoError(t, err)
	assert.Regexp(t, `\d{8}_\d{6}\.json$`, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry Entry
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "claude-sonnet-4-20250514", entry.Metadata.Model)
	assert.NotEmpty(t, entry.Metadata.GitCommit)
	require.NotNil(t, entry.Results)
	assert.Equal(t, 2, entry.Results.Total)
}

func TestSaveUpdatesHistory(t *testing.T) {
	dir := t.TempDir()
	tr, err := New(dir)
	require.NoError(t, err)

	_, err = tr.Save(sampleReport(0.5))
	require.NoError(t, err)

	history, err := os.ReadFile(filepath.Join(dir, "HISTORY.md"))
	require.NoError(t, err)
	content := string(history)

	assert.Contains(t, content, "# Evaluation History")
	assert.Contains(t, content, historyMarker)
	assert.Contains(t, content, "| **Pass Rate** | **50.0%** |")
	assert.Contains(t, content, "**Failed Tests:**")
	assert.Contains(t, content, "`webhooks`: retries exhausted")
}

func TestHistoryPrependsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	tr, err := New(dir)
	require.NoError(t, err)

	_, err = tr.Save(sampleReport(0.25))
	require.NoError(t, err)
	_, err = tr.Save(sampleReport(0.75))
	require.NoError(t, err)

	history, err := os.ReadFile(filepath.Join(dir, "HISTORY.md"))
	require.NoError(t, err)
	content := string(history)

	first := strings.Index(content, "75.0%")
	second := strings.Index(content, "25.0%")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second, "newest entry should appear first")
}

func TestRecentIgnoresAdHocFiles(t *testing.T) {
	dir := t.TempDir()
	tr, err := New(dir)
	require.NoError(t, err)

	_, err = tr.Save(sampleReport(0.5))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.json"), []byte(`{"not":"a run"}`), 0o644))

	entries, err := tr.Recent(10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTrend(t *testing.T) {
	dir := t.TempDir()
	tr, err := New(dir)
	require.NoError(t, err)

	// distinct timestamps require distinct seconds; write files directly
	write := func(name string, rate float64) {
		data := `{"metadata":{"model":"m"},"results":{"pass_rate":` + jsonFloat(rate) + `}}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
	}
	write("20260101_000000.json", 0.25)
	write("20260102_000000.json", 0.75)

	trend, err := tr.Trend(10)
	require.NoError(t, err)
	assert.Equal(t, 2, trend.Count)
	assert.Equal(t, 0.75, trend.Latest)
	assert.InDelta(t, 0.5, trend.Average, 1e-9)
}

func TestTrendEmpty(t *testing.T) {
	tr, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = tr.Trend(10)
	assert.ErrorContains(t, err, "no tracked results")
}

func jsonFloat(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
