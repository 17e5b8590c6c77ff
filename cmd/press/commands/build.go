package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/press/pkg/config"
	"github.com/openfroyo/press/pkg/engine"
	"github.com/openfroyo/press/pkg/modules"
	"github.com/openfroyo/press/pkg/policy"
	"github.com/openfroyo/press/pkg/telemetry"
)

func newBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [script]",
		Short: "Configure the engine and execute every pipeline",
		Long: `Configure the engine from a Starlark script and execute its pipelines
in declaration order.

Without a script argument the script named in the settings file is used,
and without either the default Pages and Resources pipelines run.`,
		Example: `  # Build with the default pipelines
  press build

  # Build with a configuration script
  press build config.star

  # Build another folder and print a JSON report
  press build --root ./site --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			report, err := runBuild(cmd.Context(), s, scriptArg(s, args), nil)
			if report != nil {
				if werr := writeReport(cmd.OutOrStdout(), report); werr != nil {
					return werr
				}
			}
			return err
		},
	}

	return cmd
}

// scriptArg returns the script path from the arguments or the settings.
func scriptArg(s *config.Settings, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return s.Script
}

// buildReport summarizes a build for output.
type buildReport struct {
	RunID      string             `json:"run_id,omitempty"`
	TraceID    string             `json:"trace_id,omitempty"`
	RootFolder string             `json:"root_folder"`
	Script     string             `json:"script,omitempty"`
	Pipelines  []pipelineReport   `json:"pipelines"`
	Documents  []documentReport   `json:"documents"`
	Violations []policy.Violation `json:"violations,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type pipelineReport struct {
	Name    string   `json:"name"`
	Modules []string `json:"modules"`
}

type documentReport struct {
	ID            string `json:"id"`
	Source        string `json:"source,omitempty"`
	RelativePath  string `json:"relative_path,omitempty"`
	ContentLength int    `json:"content_length"`
}

// runBuild configures and executes a fresh engine. The report is returned
// even when the build fails, covering whatever completed.
func runBuild(ctx context.Context, s *config.Settings, script string, tel *telemetry.Telemetry) (*buildReport, error) {
	sess, err := newSession(ctx, s, script, tel)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := sess.close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Failed to close session")
		}
	}()

	report := &buildReport{RootFolder: sess.engine.RootFolder(), Script: script}

	result, err := sess.configure(ctx)
	report.Pipelines = describePipelines(sess.engine)
	if result != nil {
		report.Violations = result.Violations
	}
	if err != nil {
		report.Error = err.Error()
		return report, err
	}

	run, docs, err := sess.execute(ctx)
	report.RunID = run.RunID
	report.TraceID = run.TraceID
	report.Documents = describeDocuments(docs)
	if err != nil {
		report.Error = err.Error()
		return report, err
	}

	log.Info().
		Str("run_id", run.RunID).
		Str("trace_id", run.TraceID).
		Int("pipelines", len(report.Pipelines)).
		Int("documents", len(docs)).
		Msg("Build completed")
	return report, nil
}

func describePipelines(e *engine.Engine) []pipelineReport {
	out := []pipelineReport{}
	for _, p := range e.Pipelines().All() {
		pr := pipelineReport{Name: p.Name(), Modules: []string{}}
		for _, m := range p.Modules() {
			pr.Modules = append(pr.Modules, m.Name())
		}
		out = append(out, pr)
	}
	return out
}

func describeDocuments(docs []engine.Document) []documentReport {
	out := []documentReport{}
	for _, d := range docs {
		out = append(out, documentReport{
			ID:            d.ID(),
			Source:        d.Source(),
			RelativePath:  d.Metadata().String(modules.KeyRelativePath),
			ContentLength: len(d.Content()),
		})
	}
	return out
}

func writeReport(w io.Writer, r *buildReport) error {
	if jsonOutput {
		return writeJSON(w, r)
	}

	if r.RunID != "" {
		fmt.Fprintf(w, "Run %s\n", r.RunID)
	}
	if r.TraceID != "" {
		fmt.Fprintf(w, "Trace %s\n", r.TraceID)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PIPELINE\tMODULES")
	for _, p := range r.Pipelines {
		fmt.Fprintf(tw, "%s\t%d\n", p.Name, len(p.Modules))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, v := range r.Violations {
		fmt.Fprintln(w, v.Diagnostic().String())
	}
	fmt.Fprintf(w, "%d document(s)\n", len(r.Documents))
	for _, d := range r.Documents {
		name := d.RelativePath
		if name == "" {
			name = d.ID
		}
		fmt.Fprintf(w, "  %s (%d bytes)\n", name, d.ContentLength)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
