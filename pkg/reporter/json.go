package reporter

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/skillkit/skilleval/pkg/runner"
)

// JSONReport is the stable machine-readable report shape. Downstream CI
// consumers depend on these field names; change them deliberately.
type JSONReport struct {
	ID          string       `json:"id"`
	Suite       string       `json:"suite"`
	Model       string       `json:"model"`
	WithSkills  bool         `json:"with_skills"`
	GeneratedAt time.Time    `json:"generated_at"`
	DurationMS  int64        `json:"duration_ms"`
	Total       int          `json:"total"`
	Passed      int          `json:"passed"`
	Failed      int          `json:"failed"`
	Errored     int          `json:"errored"`
	PassRate    float64      `json:"pass_rate"`
	Results     []JSONResult `json:"results"`
}

// JSONResult is one test case's record.
type JSONResult struct {
	Name       string          `json:"name"`
	Suite      string          `json:"suite"`
	Skill      string          `json:"skill"`
	Status     string          `json:"status"`
	LatencyMS  int64           `json:"latency_ms"`
	Error      string          `json:"error,omitempty"`
	Output     string          `json:"output,omitempty"`
	Assertions []JSONAssertion `json:"assertions"`
}

// JSONAssertion is one assertion outcome.
type JSONAssertion struct {
	Type   string `json:"type"`
	Value  string `json:"value,omitempty"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// ToJSON converts a run report into its serializable form.
func ToJSON(rep *runner.Report) *JSONReport {
	out := &JSONReport{
		ID:          rep.ID,
		Suite:       rep.Suite,
		Model:       rep.Model,
		WithSkills:  rep.WithSkill,
		GeneratedAt: rep.StartedAt,
		DurationMS:  rep.Duration.Milliseconds(),
		Total:       rep.Total,
		Passed:      rep.Passed,
		Failed:      rep.Failed,
		Errored:     rep.Errored,
		PassRate:    rep.PassRate,
		Results:     make([]JSONResult, 0, len(rep.Results)),
	}

	for _, res := range rep.Results {
		jr := JSONResult{
			Name:      res.Case.Name,
			Suite:     res.Case.Suite,
			Skill:     res.Case.Skill,
			Status:    string(res.Status),
			LatencyMS: res.Latency.Milliseconds(),
			Error:     res.Error,
			Output:    res.Output,
		}
		for _, o := range res.Outcomes {
			jr.Assertions = append(jr.Assertions, JSONAssertion{
				Type:   string(o.Assertion.Kind),
				Value:  o.Assertion.Value,
				Passed: o.Passed,
				Detail: o.Detail,
			})
		}
		out.Results = append(out.Results, jr)
	}
	return out
}

// WriteJSON serializes the report to w with indentation.
func WriteJSON(w io.Writer, rep *runner.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ToJSON(rep)); err != nil {
		return errors.Wrap(err, "failed to encode report")
	}
	return nil
}

// WriteJSONFile writes the report to the given path.
func WriteJSONFile(path string, rep *runner.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create report file %s", path)
	}
	defer f.Close()
	return WriteJSON(f, rep)
}
