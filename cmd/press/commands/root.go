package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openfroyo/press/pkg/trace"
)

var (
	// Global flags
	configPath string
	rootFolder string
	logLevel   string
	jsonOutput bool

	serviceVersion = "dev"
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	serviceVersion = version
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "press",
		Short: "Press - pipeline-driven static content engine",
		Long: `Press reads content through named pipelines of modules and produces
output documents.

Pipelines are declared in a Starlark configuration script. Without a script
the default Pages and Resources pipelines read input/*.md and input/*.html.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel == "" {
				return nil
			}
			lvl, err := trace.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			if lvl.ZerologLevel() < zerolog.GlobalLevel() {
				zerolog.SetGlobalLevel(lvl.ZerologLevel())
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "settings file path (press.yaml or press.cue)")
	rootCmd.PersistentFlags().StringVar(&rootFolder, "root", "", "root folder (defaults to the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "trace level (critical, error, warning, information, verbose)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newBuildCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
