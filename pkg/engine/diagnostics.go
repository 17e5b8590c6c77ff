package engine

import (
	"fmt"

	"github.com/openfroyo/press/pkg/trace"
)

// DiagnosticSeverity classifies a message emitted while compiling or
// validating a configuration script.
type DiagnosticSeverity int

const (
	// SeverityHidden marks diagnostics that are never shown to the user.
	SeverityHidden DiagnosticSeverity = iota
	// SeverityInfo marks informational notes.
	SeverityInfo
	// SeverityWarning marks advisory warnings.
	SeverityWarning
	// SeverityError marks blocking errors.
	SeverityError
)

// String returns the string representation of the severity.
func (s DiagnosticSeverity) String() string {
	switch s {
	case SeverityHidden:
		return "hidden"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// DiagnosticLevel maps a diagnostic severity to the trace level it is routed to.
// Severities without a trace level, including SeverityHidden, return an error
// matching ErrUnmappedSeverity instead of a default level.
func DiagnosticLevel(sev DiagnosticSeverity) (trace.Level, error) {
	switch sev {
	case SeverityError:
		return trace.LevelError, nil
	case SeverityWarning:
		return trace.LevelWarning, nil
	case SeverityInfo:
		return trace.LevelInformation, nil
	case SeverityHidden:
		return 0, newError(ErrorClassUnmappedSeverity, ErrCodeUnmappedSeverity,
			"hidden diagnostics have no trace level", nil).WithDetail("severity", sev.String())
	default:
		return 0, newError(ErrorClassUnmappedSeverity, ErrCodeUnmappedSeverity,
			fmt.Sprintf("unknown diagnostic severity %d", int(sev)), nil).WithDetail("severity", int(sev))
	}
}

// Diagnostic is a single message produced by a script compiler or validator.
type Diagnostic struct {
	Severity DiagnosticSeverity `json:"severity"`
	Message  string             `json:"message"`
	File     string             `json:"file,omitempty"`
	Line     int                `json:"line,omitempty"`
	Column   int                `json:"column,omitempty"`
}

// String formats the diagnostic as file:line:col: severity: message.
func (d Diagnostic) String() string {
	if d.File == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	if d.Line == 0 {
		return fmt.Sprintf("%s: %s: %s", d.File, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Severity, d.Message)
}

// TraceDiagnostic writes d to t at the level its severity maps to.
func TraceDiagnostic(t *trace.Trace, d Diagnostic) error {
	level, err := DiagnosticLevel(d.Severity)
	if err != nil {
		return err
	}
	t.TraceEvent(level, "%s", d.String())
	return nil
}
