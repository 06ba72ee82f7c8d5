package reporter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillkit/skilleval/pkg/assertions"
	"github.com/skillkit/skilleval/pkg/runner"
	"github.com/skillkit/skilleval/pkg/suite"
)

func init() {
	color.NoColor = true
}

func sampleReport() *runner.Report {
	rep := &runner.Report{
		ID:        "run-1",
		Suite:     "correctness",
		Model:     "claude-sonnet-4-20250514",
		WithSkill: true,
		StartedAt: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Results: []runner.CaseResult{
			{
				Case:    suite.TestCase{Name: "retries", Suite: "correctness", Skill: "sdk-retries"},
				Status:  runner.StatusPassed,
				Output:  "x-speakeasy-retries: ...",
				Latency: 400 * time.Millisecond,
				Outcomes: []assertions.Outcome{
					{Assertion: suite.Assertion{Kind: suite.Contains, Value: "x-speakeasy-retries"}, Passed: true, Detail: "output contains it"},
				},
			},
			{
				Case:    suite.TestCase{Name: "pagination", Suite: "correctness", Skill: "sdk-pagination"},
				Status:  runner.StatusFailed,
				Latency: 300 * time.Millisecond,
				Outcomes: []assertions.Outcome{
					{Assertion: suite.Assertion{Kind: suite.Contains, Value: "x-speakeasy-pagination"}, Passed: false, Detail: `output does not contain "x-speakeasy-pagination"`},
				},
			},
			{
				Case:   suite.TestCase{Name: "webhooks", Suite: "correctness", Skill: "sdk-webhooks"},
				Status: runner.StatusErrored,
				Error:  "retries exhausted",
			},
		},
	}
	rep.Total, rep.Passed, rep.Failed, rep.Errored, rep.PassRate = 3, 1, 1, 1, 1.0/3
	return rep
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).PrintReport(sampleReport())
	out := buf.String()

	assert.Contains(t, out, "Evaluation Results: correctness")
	assert.Contains(t, out, "Total Tests")
	assert.Contains(t, out, "Pass Rate")
	assert.Contains(t, out, "33.3%")

	// failures name the case, the assertion, and why
	assert.Contains(t, out, "correctness/pagination (skill sdk-pagination): failed")
	assert.Contains(t, out, `output does not contain "x-speakeasy-pagination"`)
	assert.Contains(t, out, "correctness/webhooks (skill sdk-webhooks): errored")
	assert.Contains(t, out, "retries exhausted")

	// passing cases are not listed in the failure section
	assert.NotContains(t, out, "correctness/retries (")
}

func TestPrintComparison(t *testing.T) {
	without := &runner.Report{Total: 4, Passed: 2, Failed: 2, PassRate: 0.5}
	with := &runner.Report{Total: 4, Passed: 4, PassRate: 1.0}

	var buf bytes.Buffer
	New(&buf).PrintComparison(without, with)
	out := buf.String()

	assert.Contains(t, out, "Comparison: Without Skills vs With Skills")
	assert.Contains(t, out, "+50.0%")
	assert.Contains(t, out, "+2")
	assert.Contains(t, out, "-2")
}

func TestWriteJSONShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "correctness", decoded["suite"])
	assert.Equal(t, "run-1", decoded["id"])
	assert.Equal(t, true, decoded["with_skills"])
	assert.InDelta(t, 1.0/3, decoded["pass_rate"], 1e-9)

	results := decoded["results"].([]any)
	require.Len(t, results, 3)

	first := results[0].(map[string]any)
	assert.Equal(t, "retries", first["name"])
	assert.Equal(t, "passed", first["status"])
	assert.EqualValues(t, 400, first["latency_ms"])

	asserts := first["assertions"].([]any)
	require.Len(t, asserts, 1)
	assert.Equal(t, "contains", asserts[0].(map[string]any)["type"])

	third := results[2].(map[string]any)
	assert.Equal(t, "errored", third["status"])
	assert.Equal(t, "retries exhausted", third["error"])
}

func TestWriteJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteJSONFile(path, sampleReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded JSONReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 3, decoded.Total)
	assert.Len(t, decoded.Results, 3)
}
