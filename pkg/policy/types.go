package policy

import (
	"slices"
	"time"

	"github.com/openfroyo/press/pkg/engine"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed but do not block a build.
	SeverityWarning Severity = "warning"

	// SeverityError is for violations that block execution.
	SeverityError Severity = "error"

	// SeverityCritical is for violations that must be addressed immediately.
	SeverityCritical Severity = "critical"
)

// blocking reports whether a violation of this severity denies execution.
func (s Severity) blocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// diagnosticSeverity maps a policy severity to the engine diagnostic scale.
func (s Severity) diagnosticSeverity() engine.DiagnosticSeverity {
	switch s {
	case SeverityError, SeverityCritical:
		return engine.SeverityError
	case SeverityWarning:
		return engine.SeverityWarning
	default:
		return engine.SeverityInfo
	}
}

// Policy represents a policy rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code. The policy's deny set is queried.
	Rego string `json:"rego"`

	// Severity is the default severity for violations that do not carry one.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Source is the file the policy was loaded from, empty for built-ins.
	Source string `json:"source,omitempty"`
}

// Violation represents a single policy violation.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Pipeline is the pipeline the violation refers to, if any.
	Pipeline string `json:"pipeline,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`
}

// Diagnostic converts the violation to an engine diagnostic.
func (v Violation) Diagnostic() engine.Diagnostic {
	msg := "policy " + v.Policy + ": " + v.Message
	if v.Pipeline != "" {
		msg = "pipeline " + v.Pipeline + ": " + msg
	}
	return engine.Diagnostic{
		Severity: v.Severity.diagnosticSeverity(),
		Message:  msg,
	}
}

// Result represents the result of policy evaluation.
type Result struct {
	// Allowed is false when any violation has error or critical severity.
	Allowed bool `json:"allowed"`

	// Violations lists all policy violations in policy name order.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists policies whose evaluation failed.
	Warnings []string `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// EvaluatedAt is when the policy was evaluated.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// Input is the document policies are evaluated against.
type Input struct {
	Pipelines    []PipelineInput `json:"pipelines"`
	MetadataKeys []string        `json:"metadata_keys"`
	RootFolder   string          `json:"root_folder"`
}

// PipelineInput describes a configured pipeline.
type PipelineInput struct {
	Name    string   `json:"name"`
	Ordinal int      `json:"ordinal"`
	Modules []string `json:"modules"`
}

// NewInput builds the policy input for a configured engine.
func NewInput(e *engine.Engine) *Input {
	in := &Input{
		Pipelines:    []PipelineInput{},
		MetadataKeys: []string{},
		RootFolder:   e.RootFolder(),
	}
	for i, p := range e.Pipelines().All() {
		pi := PipelineInput{Name: p.Name(), Ordinal: i + 1, Modules: []string{}}
		for _, m := range p.Modules() {
			pi.Modules = append(pi.Modules, m.Name())
		}
		in.Pipelines = append(in.Pipelines, pi)
	}
	for k := range e.Metadata() {
		in.MetadataKeys = append(in.MetadataKeys, k)
	}
	slices.Sort(in.MetadataKeys)
	return in
}

// toValue converts the input to the plain map form Rego evaluates.
func (in *Input) toValue() map[string]interface{} {
	pipelines := make([]interface{}, len(in.Pipelines))
	for i, p := range in.Pipelines {
		modules := make([]interface{}, len(p.Modules))
		for j, m := range p.Modules {
			modules[j] = m
		}
		pipelines[i] = map[string]interface{}{
			"name":    p.Name,
			"ordinal": p.Ordinal,
			"modules": modules,
		}
	}
	keys := make([]interface{}, len(in.MetadataKeys))
	for i, k := range in.MetadataKeys {
		keys[i] = k
	}
	return map[string]interface{}{
		"pipelines":     pipelines,
		"metadata_keys": keys,
		"root_folder":   in.RootFolder,
	}
}
