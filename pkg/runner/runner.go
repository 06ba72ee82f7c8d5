// Package runner orchestrates a suite run: for each test case it renders the
// prompt (optionally with the named skill's instructions), invokes the model
// provider, checks assertions against the response, and records an outcome.
//
// Cases run concurrently under a bounded worker pool, but results land in an
// index-keyed slot array so the final report always preserves suite
// declaration order regardless of completion order. One case's failure or
// transient-error exhaustion never aborts the others; only a fatal API error
// (bad credentials, unknown model) cancels the run.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/skillkit/skilleval/pkg/assertions"
	"github.com/skillkit/skilleval/pkg/invoker"
	"github.com/skillkit/skilleval/pkg/logger"
	"github.com/skillkit/skilleval/pkg/skills"
	"github.com/skillkit/skilleval/pkg/suite"
)

// Status is the terminal state of a test case.
type Status string

const (
	// StatusPassed means every assertion passed.
	StatusPassed Status = "passed"
	// StatusFailed means at least one assertion failed.
	StatusFailed Status = "failed"
	// StatusErrored means the invocation failed or was cancelled before
	// assertions could be checked.
	StatusErrored Status = "errored"
)

// DefaultConcurrency bounds parallel model invocations; kept small to
// respect hosted API rate limits.
const DefaultConcurrency = 4

// defaultSystemPrompt mirrors the persona the skills are written for.
const defaultSystemPrompt = "You are an expert at Speakeasy SDK generation."

// CaseResult is the terminal record for one test case.
type CaseResult struct {
	Case     suite.TestCase
	Status   Status
	Output   string
	Latency  time.Duration
	Error    string // populated when Status is StatusErrored
	Outcomes []assertions.Outcome

	// fatal carries the run-aborting error so the worker can both record
	// the case result and propagate the abort through the errgroup.
	fatal error
}

// Report aggregates one run's results in suite declaration order.
type Report struct {
	ID        string
	Suite     string
	Model     string
	WithSkill bool
	StartedAt time.Time
	Duration  time.Duration
	Results   []CaseResult
	Total     int
	Passed    int
	Failed    int
	Errored   int
	PassRate  float64
}

// SkillSource resolves a skill name to its loaded document.
// *skills.Discovery satisfies it.
type SkillSource interface {
	GetSkill(name string) (*skills.Skill, error)
}

// Options configure a run.
type Options struct {
	Concurrency int
	// WithSkills prepends each case's skill instructions to the system
	// prompt. Disabled for baseline comparison runs.
	WithSkills bool
}

// Runner executes test cases against a model provider.
type Runner struct {
	provider invoker.Provider
	skills   SkillSource
	opts     Options
}

// New creates a Runner.
func New(provider invoker.Provider, skillSource SkillSource, opts Options) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Runner{provider: provider, skills: skillSource, opts: opts}
}

// Run executes all cases and assembles the report. The returned error is
// non-nil only for a run-level abort (fatal API error or cancellation); the
// partial report is still returned so the caller can render what completed.
func (r *Runner) Run(ctx context.Context, suiteName string, cases []suite.TestCase) (*Report, error) {
	report := &Report{
		ID:        uuid.NewString(),
		Suite:     suiteName,
		Model:     r.provider.Model(),
		WithSkill: r.opts.WithSkills,
		StartedAt: time.Now().UTC(),
	}

	slots := make([]CaseResult, len(cases))
	started := make([]bool, len(cases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for i, tc := range cases {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			started[i] = true
			slots[i] = r.runCase(gctx, tc)
			if slots[i].Status == StatusErrored && slots[i].fatal != nil {
				return slots[i].fatal
			}
			return nil
		})
	}

	runErr := g.Wait()
	report.Duration = time.Since(report.StartedAt)

	for i := range slots {
		if !started[i] {
			if runErr != nil && invoker.IsFatal(runErr) {
				// Run-level abort: cases that never started are omitted
				// from the report entirely.
				continue
			}
			slots[i] = CaseResult{Case: cases[i], Status: StatusErrored, Error: "cancelled"}
		}
		if slots[i].Status == "" {
			slots[i] = CaseResult{Case: cases[i], Status: StatusErrored, Error: "cancelled"}
		}
		report.Results = append(report.Results, slots[i])
	}

	report.tally()
	return report, runErr
}

func (r *Runner) runCase(ctx context.Context, tc suite.TestCase) CaseResult {
	log := logger.G(ctx).WithField("suite", tc.Suite).WithField("test", tc.Name)

	if tc.Kind == suite.CaseActivation {
		return r.runActivationCase(ctx, tc)
	}

	system := defaultSystemPrompt
	if r.opts.WithSkills {
		skill, err := r.skills.GetSkill(tc.Skill)
		if err != nil {
			log.WithError(err).Warn("skill not found, marking case errored")
			return CaseResult{Case: tc, Status: StatusErrored, Error: err.Error()}
		}
		system += "\n\nHere is your skill context:\n\n" + skill.Content
	}

	log.Debug("invoking model")
	begin := time.Now()
	resp, err := r.provider.Complete(ctx, invoker.Request{System: system, Prompt: tc.Prompt})
	latency := time.Since(begin)

	if err != nil {
		result := CaseResult{Case: tc, Status: StatusErrored, Latency: latency, Error: err.Error()}
		if invoker.IsFatal(err) {
			log.WithError(err).Error("fatal API error, aborting run")
			result.fatal = err
		} else if ctx.Err() != nil {
			result.Error = "cancelled"
		} else {
			log.WithError(err).Warn("invocation failed")
		}
		return result
	}

	outcomes := assertions.CheckAll(resp.Text, tc.Assertions)
	status := StatusPassed
	for _, out := range outcomes {
		if !out.Passed {
			status = StatusFailed
			break
		}
	}

	log.WithField("status", status).WithField("latency", latency).Debug("case finished")
	return CaseResult{
		Case:     tc,
		Status:   status,
		Output:   resp.Text,
		Latency:  latency,
		Outcomes: outcomes,
	}
}

// runActivationCase checks trigger phrases against the skill's frontmatter
// description without invoking the model. Activation is a property of the
// skill document itself, so it is evaluated identically in with-skills and
// baseline runs.
func (r *Runner) runActivationCase(ctx context.Context, tc suite.TestCase) CaseResult {
	log := logger.G(ctx).WithField("suite", tc.Suite).WithField("test", tc.Name)

	skill, err := r.skills.GetSkill(tc.Skill)
	if err != nil {
		log.WithError(err).Warn("skill not found, marking case errored")
		return CaseResult{Case: tc, Status: StatusErrored, Error: err.Error()}
	}

	outcomes := assertions.CheckAll(skill.Description, tc.Assertions)
	status := StatusPassed
	for _, out := range outcomes {
		if !out.Passed {
			status = StatusFailed
			break
		}
	}

	log.WithField("status", status).Debug("activation case finished")
	return CaseResult{Case: tc, Status: status, Outcomes: outcomes}
}

func (rep *Report) tally() {
	rep.Total = len(rep.Results)
	for _, res := range rep.Results {
		switch res.Status {
		case StatusPassed:
			rep.Passed++
		case StatusFailed:
			rep.Failed++
		case StatusErrored:
			rep.Errored++
		}
	}
	if rep.Total > 0 {
		rep.PassRate = float64(rep.Passed) / float64(rep.Total)
	}
}

// Summary returns a one-line digest of the report.
func (rep *Report) Summary() string {
	return fmt.Sprintf("%d/%d passed (%.1f%%), %d failed, %d errored",
		rep.Passed, rep.Total, rep.PassRate*100, rep.Failed, rep.Errored)
}
