package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skillkit/skilleval/pkg/logger"
	"github.com/skillkit/skilleval/pkg/presenter"
)

var rootCmd = &cobra.Command{
	Use:   "skilleval",
	Short: "Evaluate skill documents against hosted LLMs",
	Long: `skilleval runs declarative test suites that measure whether skill
documents improve model responses. Each test case sends a prompt, optionally
augmented with skill instructions, and checks the response against a set of
assertions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.SetLevel(viper.GetString("log_level")); err != nil {
			return err
		}
		logger.SetFormat(viper.GetString("log_format"))
		presenter.SetQuiet(viper.GetBool("quiet"))
		return nil
	},
}

func init() {
	viper.SetEnvPrefix("SKILLEVAL")
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skilleval")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig()

	viper.SetDefault("log_level", "warn")
	viper.SetDefault("log_format", "text")

	rootCmd.PersistentFlags().String("provider", "", "model provider (anthropic or openai); inferred from model when empty")
	rootCmd.PersistentFlags().String("model", "", "model to evaluate against")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress informational output")

	viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))
	viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(trendsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if err != errEvalFailed {
			presenter.Error(err, "skilleval")
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to process exit codes: 1 for evaluation failures,
// 2 for configuration and fatal API errors.
func exitCode(err error) int {
	if err == errEvalFailed {
		return 1
	}
	return 2
}
