package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/skillkit/skilleval/pkg/presenter"
	"github.com/skillkit/skilleval/pkg/suite"
)

// ListOptions contains all options for the list command.
type ListOptions struct {
	suitesDir string
	skillDirs []string
}

var listOptions = &ListOptions{}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available suites and skills",
	RunE: func(cmd *cobra.Command, args []string) error {
		loader := suite.NewLoader(listOptions.suitesDir)
		names, err := loader.SuiteNames()
		if err != nil {
			return errors.Wrap(err, "failed to list suites")
		}

		presenter.Section("Suites")
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, name := range names {
			s, err := loader.Load(name)
			if err != nil {
				fmt.Fprintf(w, "%s\t(invalid: %v)\n", name, err)
				continue
			}
			fmt.Fprintf(w, "%s\t%d cases\n", name, len(s.Cases))
		}
		w.Flush()

		discovery, err := newDiscovery(listOptions.skillDirs)
		if err != nil {
			return err
		}
		skillNames, err := discovery.ListSkillNames()
		if err != nil {
			return errors.Wrap(err, "failed to list skills")
		}

		presenter.Section("Skills")
		if len(skillNames) == 0 {
			presenter.Warning("no skills found")
			return nil
		}
		for _, name := range skillNames {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listOptions.suitesDir, "suites-dir", "suites", "directory containing suite YAML files")
	listCmd.Flags().StringSliceVar(&listOptions.skillDirs, "skills-dir", nil, "directories to search for skills (defaults to ./skills and ~/.skilleval/skills)")
}
