package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/skillkit/skilleval/pkg/presenter"
	"github.com/skillkit/skilleval/pkg/reporter"
	"github.com/skillkit/skilleval/pkg/runner"
	"github.com/skillkit/skilleval/pkg/suite"
)

// CompareOptions contains all options for the compare command.
type CompareOptions struct {
	suite       string
	skill       string
	suitesDir   string
	skillDirs   []string
	maxTokens   int
	concurrency int
}

var compareOptions = &CompareOptions{}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare results with and without skill context",
	Long: `Run the suite twice, once with skill instructions withheld and once with
them included, and report the pass-rate delta the skills account for.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		cases, err := suite.NewLoader(compareOptions.suitesDir).LoadCases(compareOptions.suite, compareOptions.skill)
		if err != nil {
			return errors.Wrap(err, "failed to load test cases")
		}
		if len(cases) == 0 {
			return errors.New("no test cases matched the given suite and skill filters")
		}

		discovery, err := newDiscovery(compareOptions.skillDirs)
		if err != nil {
			return err
		}
		provider, err := newProvider(compareOptions.maxTokens)
		if err != nil {
			return err
		}

		presenter.Info(fmt.Sprintf("Comparing %d test cases against %s", len(cases), provider.Model()))

		presenter.Info("Baseline run (skills withheld)...")
		baseline := runner.New(provider, discovery, runner.Options{
			Concurrency: compareOptions.concurrency,
		})
		without, err := baseline.Run(ctx, compareOptions.suite, cases)
		if err != nil {
			return errors.Wrap(err, "baseline run aborted")
		}

		presenter.Info("Skill run...")
		skilled := runner.New(provider, discovery, runner.Options{
			Concurrency: compareOptions.concurrency,
			WithSkills:  true,
		})
		with, err := skilled.Run(ctx, compareOptions.suite, cases)
		if err != nil {
			return errors.Wrap(err, "skill run aborted")
		}

		reporter.New(os.Stdout).PrintComparison(without, with)
		return nil
	},
}

func init() {
	compareCmd.Flags().StringVarP(&compareOptions.suite, "suite", "s", suite.AllSuites, "suite to run, or \"all\"")
	compareCmd.Flags().StringVar(&compareOptions.skill, "skill", "", "only run cases for this skill")
	compareCmd.Flags().StringVar(&compareOptions.suitesDir, "suites-dir", "suites", "directory containing suite YAML files")
	compareCmd.Flags().StringSliceVar(&compareOptions.skillDirs, "skills-dir", nil, "directories to search for skills (defaults to ./skills and ~/.skilleval/skills)")
	compareCmd.Flags().IntVar(&compareOptions.maxTokens, "max-tokens", 0, "maximum response tokens (0 uses the provider default)")
	compareCmd.Flags().IntVarP(&compareOptions.concurrency, "concurrency", "c", runner.DefaultConcurrency, "number of cases evaluated in parallel")
}
