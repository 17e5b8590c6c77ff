package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/press/pkg/engine"
	"github.com/openfroyo/press/pkg/telemetry"
	"github.com/openfroyo/press/pkg/trace"
)

// Settings is the project file read by the CLI (press.yaml or press.cue).
type Settings struct {
	// RootFolder overrides the working directory as the engine root.
	RootFolder string `yaml:"root_folder" json:"root_folder"`

	// Script is the path of the Starlark configuration script, relative to the settings file.
	Script string `yaml:"script" json:"script" validate:"omitempty,endswith=.star"`

	// ScriptTimeoutSeconds bounds script execution.
	ScriptTimeoutSeconds int `yaml:"script_timeout_seconds" json:"script_timeout_seconds" validate:"gte=0,lte=3600"`

	// Metadata seeds the engine metadata before configuration.
	Metadata map[string]interface{} `yaml:"metadata" json:"metadata"`

	Trace   trace.Config            `yaml:"trace" json:"trace"`
	Tracing telemetry.TracingConfig `yaml:"tracing" json:"tracing"`
	Metrics telemetry.MetricsConfig `yaml:"metrics" json:"metrics"`
	History HistorySettings         `yaml:"history" json:"history"`
	Policy  PolicySettings          `yaml:"policy" json:"policy"`
}

// HistorySettings configures the run history database.
type HistorySettings struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path" validate:"required_if=Enabled true"`
}

// PolicySettings configures pre-execution policy checks.
type PolicySettings struct {
	Disabled bool     `yaml:"disabled" json:"disabled"`
	Files    []string `yaml:"files" json:"files" validate:"dive,endswith=.rego"`
}

// DefaultSettings returns the settings used when no project file exists.
func DefaultSettings() *Settings {
	tel := telemetry.DefaultConfig()
	return &Settings{
		ScriptTimeoutSeconds: 30,
		Metadata:             make(map[string]interface{}),
		Trace:                trace.DefaultConfig(),
		Tracing:              tel.Tracing,
		Metrics:              tel.Metrics,
		History: HistorySettings{
			Path: ".press/history.db",
		},
	}
}

// settingsSchema constrains press.cue files before decoding.
const settingsSchema = `
root_folder?: string
script?: =~"\\.star$"
script_timeout_seconds?: int & >=0 & <=3600
metadata?: {...}
trace?: {
	level?: "critical" | "error" | "warning" | "information" | "verbose"
	format?: "console" | "json"
	output?: string
	time_format?: "unix" | "unixms" | "rfc3339"
	indent_width?: int & >=0 & <=16
}
tracing?: {...}
metrics?: {...}
history?: {
	enabled?: bool
	path?: string
}
policy?: {
	disabled?: bool
	files?: [...string]
}
`

// SettingsError reports problems found while loading a settings file.
type SettingsError struct {
	Path        string
	Diagnostics []engine.Diagnostic
	Err         error
}

// Error implements the error interface.
func (e *SettingsError) Error() string {
	if len(e.Diagnostics) > 0 {
		msgs := make([]string, len(e.Diagnostics))
		for i, d := range e.Diagnostics {
			msgs[i] = d.String()
		}
		return fmt.Sprintf("invalid settings %s: %s", e.Path, strings.Join(msgs, "; "))
	}
	return fmt.Sprintf("invalid settings %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *SettingsError) Unwrap() error {
	return e.Err
}

// LoadSettings reads a YAML or CUE settings file on top of DefaultSettings.
// Relative script and root paths are resolved against the file's directory.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	s := DefaultSettings()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, &SettingsError{Path: path, Err: err}
		}
	case ".cue":
		if err := decodeCUE(path, data, s); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported settings format: %s", filepath.Ext(path))
	}

	if err := ValidateSettings(s); err != nil {
		return nil, &SettingsError{Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if s.Script != "" && !filepath.IsAbs(s.Script) {
		s.Script = filepath.Join(dir, s.Script)
	}
	if s.RootFolder != "" && !filepath.IsAbs(s.RootFolder) {
		s.RootFolder = filepath.Join(dir, s.RootFolder)
	}
	return s, nil
}

// ValidateSettings checks struct-level constraints.
func ValidateSettings(s *Settings) error {
	v := validator.New()
	if err := v.Struct(s); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func decodeCUE(path string, data []byte, s *Settings) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(settingsSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("failed to compile settings schema: %w", err)
	}

	val := ctx.CompileBytes(data, cue.Filename(path))
	if err := val.Err(); err != nil {
		return &SettingsError{Path: path, Diagnostics: cueDiagnostics(err), Err: err}
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &SettingsError{Path: path, Diagnostics: cueDiagnostics(err), Err: err}
	}

	if err := unified.Decode(s); err != nil {
		return &SettingsError{Path: path, Err: err}
	}
	return nil
}

// cueDiagnostics converts CUE errors to error diagnostics.
func cueDiagnostics(err error) []engine.Diagnostic {
	var diags []engine.Diagnostic
	for _, e := range cueerrors.Errors(err) {
		d := engine.Diagnostic{
			Severity: engine.SeverityError,
			Message:  strings.TrimSpace(cueerrors.Details(e, nil)),
		}
		if pos := cueerrors.Positions(e); len(pos) > 0 {
			d.File = pos[0].Filename()
			d.Line = pos[0].Line()
			d.Column = pos[0].Column()
		}
		diags = append(diags, d)
	}
	return diags
}
