// Package reporter renders run reports for people and machines: a colored
// console summary with per-failure detail, a stable JSON document for CI
// consumption, and a side-by-side comparison of baseline versus with-skills
// runs.
package reporter

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/skillkit/skilleval/pkg/runner"
)

// Reporter renders reports to a writer.
type Reporter struct {
	out io.Writer
}

// New creates a Reporter writing to out.
func New(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// PrintReport renders the human-readable summary: a metrics table followed by
// detail for every case that did not pass. Every failure names the test case,
// the assertion, and why it failed.
func (r *Reporter) PrintReport(rep *runner.Report) {
	fmt.Fprintln(r.out)
	bold := color.New(color.Bold)
	bold.Fprintf(r.out, "Evaluation Results: %s (model %s)\n\n", rep.Suite, rep.Model)

	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total Tests\t%d\n", rep.Total)
	fmt.Fprintf(tw, "Passed\t%d\n", rep.Passed)
	fmt.Fprintf(tw, "Failed\t%d\n", rep.Failed)
	fmt.Fprintf(tw, "Errored\t%d\n", rep.Errored)
	fmt.Fprintf(tw, "Pass Rate\t%.1f%%\n", rep.PassRate*100)
	tw.Flush()

	r.printFailures(rep)
}

func (r *Reporter) printFailures(rep *runner.Report) {
	red := color.New(color.FgRed, color.Bold)
	dim := color.New(color.Faint)

	headerPrinted := false
	for _, res := range rep.Results {
		if res.Status == runner.StatusPassed {
			continue
		}
		if !headerPrinted {
			fmt.Fprintln(r.out)
			red.Fprintln(r.out, "Failed Tests:")
			headerPrinted = true
		}

		fmt.Fprintf(r.out, "  • %s/%s (skill %s): %s\n", res.Case.Suite, res.Case.Name, res.Case.Skill, res.Status)
		if res.Error != "" {
			dim.Fprintf(r.out, "    error: %s\n", res.Error)
		}
		for _, out := range res.Outcomes {
			if out.Passed {
				continue
			}
			dim.Fprintf(r.out, "    - %s: %s\n", out.Assertion.Kind, out.Detail)
		}
	}
}

// PrintComparison renders baseline (without skills) versus with-skills
// metrics with signed deltas.
func (r *Reporter) PrintComparison(without, with *runner.Report) {
	fmt.Fprintln(r.out)
	color.New(color.Bold).Fprintln(r.out, "Comparison: Without Skills vs With Skills")
	fmt.Fprintln(r.out)

	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Metric\tWithout Skills\tWith Skills\tDelta")
	fmt.Fprintf(tw, "Pass Rate\t%.1f%%\t%.1f%%\t%+.1f%%\n",
		without.PassRate*100, with.PassRate*100, (with.PassRate-without.PassRate)*100)
	fmt.Fprintf(tw, "Passed\t%d\t%d\t%+d\n", without.Passed, with.Passed, with.Passed-without.Passed)
	fmt.Fprintf(tw, "Failed\t%d\t%d\t%+d\n", without.Failed, with.Failed, with.Failed-without.Failed)
	fmt.Fprintf(tw, "Errored\t%d\t%d\t%+d\n", without.Errored, with.Errored, with.Errored-without.Errored)
	tw.Flush()
}
