package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skillkit/skilleval/pkg/invoker"
	"github.com/skillkit/skilleval/pkg/presenter"
	"github.com/skillkit/skilleval/pkg/reporter"
	"github.com/skillkit/skilleval/pkg/runner"
	"github.com/skillkit/skilleval/pkg/skills"
	"github.com/skillkit/skilleval/pkg/suite"
	"github.com/skillkit/skilleval/pkg/tracker"
)

// errEvalFailed signals a completed run with failed or errored cases.
// It is the exit-code-1 sentinel; all other errors exit 2.
var errEvalFailed = errors.New("evaluation failed")

// RunOptions contains all options for the run command.
type RunOptions struct {
	suite       string
	skill       string
	suitesDir   string
	skillDirs   []string
	maxTokens   int
	concurrency int
	format      string
	outputFile  string
	noSkills    bool
	timeout     time.Duration
	track       bool
	resultsDir  string
}

var runOptions = &RunOptions{}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an evaluation suite",
	Long: `Run the named suite (or all suites) against the configured model and
report pass/fail results for every test case.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		if runOptions.timeout > 0 {
			var timeoutCancel context.CancelFunc
			ctx, timeoutCancel = context.WithTimeout(ctx, runOptions.timeout)
			defer timeoutCancel()
		}

		cases, err := suite.NewLoader(runOptions.suitesDir).LoadCases(runOptions.suite, runOptions.skill)
		if err != nil {
			return errors.Wrap(err, "failed to load test cases")
		}
		if len(cases) == 0 {
			return errors.New("no test cases matched the given suite and skill filters")
		}

		discovery, err := newDiscovery(runOptions.skillDirs)
		if err != nil {
			return err
		}

		provider, err := newProvider(runOptions.maxTokens)
		if err != nil {
			return err
		}

		presenter.Info(fmt.Sprintf("Running %d test cases against %s", len(cases), provider.Model()))

		r := runner.New(provider, discovery, runner.Options{
			Concurrency: runOptions.concurrency,
			WithSkills:  !runOptions.noSkills,
		})
		rep, runErr := r.Run(ctx, runOptions.suite, cases)

		if err := writeReport(rep, runOptions.format, runOptions.outputFile); err != nil {
			return err
		}

		if runOptions.track {
			tr, err := tracker.New(runOptions.resultsDir)
			if err != nil {
				return err
			}
			path, err := tr.Save(rep)
			if err != nil {
				return errors.Wrap(err, "failed to track results")
			}
			presenter.Info("Results tracked in " + path)
		}

		if runErr != nil {
			return errors.Wrap(runErr, "run aborted")
		}
		if rep.Failed > 0 || rep.Errored > 0 {
			return errEvalFailed
		}
		presenter.Success(rep.Summary())
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runOptions.suite, "suite", "s", suite.AllSuites, "suite to run, or \"all\"")
	runCmd.Flags().StringVar(&runOptions.skill, "skill", "", "only run cases for this skill")
	runCmd.Flags().StringVar(&runOptions.suitesDir, "suites-dir", "suites", "directory containing suite YAML files")
	runCmd.Flags().StringSliceVar(&runOptions.skillDirs, "skills-dir", nil, "directories to search for skills (defaults to ./skills and ~/.skilleval/skills)")
	runCmd.Flags().IntVar(&runOptions.maxTokens, "max-tokens", 0, "maximum response tokens (0 uses the provider default)")
	runCmd.Flags().IntVarP(&runOptions.concurrency, "concurrency", "c", runner.DefaultConcurrency, "number of cases evaluated in parallel")
	runCmd.Flags().StringVarP(&runOptions.format, "format", "f", "text", "output format (text, json)")
	runCmd.Flags().StringVarP(&runOptions.outputFile, "output", "o", "", "write the JSON report to this file")
	runCmd.Flags().BoolVar(&runOptions.noSkills, "no-skills", false, "run without skill context (baseline)")
	runCmd.Flags().DurationVar(&runOptions.timeout, "timeout", 0, "abort the whole run after this duration")
	runCmd.Flags().BoolVar(&runOptions.track, "track", false, "save results for trend tracking")
	runCmd.Flags().StringVar(&runOptions.resultsDir, "results-dir", "results", "directory for tracked results")
}

// signalContext cancels the returned context on SIGINT or SIGTERM so
// in-flight cases wind down and the partial report is still rendered.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newDiscovery(dirs []string) (*skills.Discovery, error) {
	if len(dirs) > 0 {
		return skills.NewDiscovery(skills.WithSkillDirs(dirs...))
	}
	return skills.NewDiscovery(skills.WithDefaultDirs())
}

// newProvider resolves the model, provider, and credential from flags, config
// file, and environment, in that order of precedence.
func newProvider(maxTokens int) (invoker.Provider, error) {
	model := viper.GetString("model")
	if model == "" {
		model = invoker.DefaultModel
	}
	providerName := viper.GetString("provider")
	if providerName == "" {
		providerName = invoker.InferProvider(model)
	}

	var apiKey string
	switch providerName {
	case "anthropic":
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	return invoker.New(invoker.Config{
		Provider:  providerName,
		Model:     model,
		MaxTokens: maxTokens,
		APIKey:    apiKey,
	})
}

// writeReport renders the report in the requested format, optionally also
// writing the JSON form to a file for CI consumption.
func writeReport(rep *runner.Report, format, outputFile string) error {
	switch format {
	case "json":
		if err := reporter.WriteJSON(os.Stdout, rep); err != nil {
			return err
		}
	case "text":
		reporter.New(os.Stdout).PrintReport(rep)
	default:
		return errors.Errorf("unsupported format %q", format)
	}

	if outputFile != "" {
		if err := reporter.WriteJSONFile(outputFile, rep); err != nil {
			return err
		}
		presenter.Info("Report written to " + outputFile)
	}
	return nil
}
