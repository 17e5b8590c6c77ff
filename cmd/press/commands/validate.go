package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [script]",
		Short: "Check settings, configuration script and policies without executing",
		Long: `Validate the settings file, run the configuration script against a fresh
engine and evaluate policies. No pipeline is executed.

This command checks:
  - Settings syntax and constraints (YAML or CUE)
  - Starlark script errors, reported with file positions
  - Policy compliance (OPA/rego)`,
		Example: `  # Validate the default configuration
  press validate

  # Validate a script
  press validate config.star`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			script := scriptArg(s, args)

			sess, err := newSession(cmd.Context(), s, script, nil)
			if err != nil {
				return err
			}
			defer func() { _ = sess.close(context.Background()) }()

			report := &buildReport{RootFolder: sess.engine.RootFolder(), Script: script}
			result, err := sess.configure(cmd.Context())
			report.Pipelines = describePipelines(sess.engine)
			if result != nil {
				report.Violations = result.Violations
			}
			if err != nil {
				report.Error = err.Error()
			}

			if jsonOutput {
				if werr := writeJSON(cmd.OutOrStdout(), report); werr != nil {
					return werr
				}
				return err
			}
			if err != nil {
				return err
			}

			for _, d := range sess.configurator.Diagnostics() {
				fmt.Fprintln(cmd.OutOrStdout(), d.String())
			}
			for _, v := range report.Violations {
				fmt.Fprintln(cmd.OutOrStdout(), v.Diagnostic().String())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %d pipeline(s)\n", len(report.Pipelines))
			log.Debug().Str("script", script).Msg("Validation completed")
			return nil
		},
	}

	return cmd
}
