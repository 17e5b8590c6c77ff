package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config configures the trace channel output.
type Config struct {
	// Level sets the minimum trace level (critical, error, warning, information, verbose).
	Level string `yaml:"level" json:"level" validate:"omitempty,oneof=critical error warning information verbose"`

	// Format specifies the output format (console, json).
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=console json"`

	// Output specifies where events are written (stdout, stderr, file path).
	Output string `yaml:"output" json:"output"`

	// TimeFormat specifies the timestamp format (unix, unixms, rfc3339).
	TimeFormat string `yaml:"time_format" json:"time_format" validate:"omitempty,oneof=unix unixms rfc3339"`

	// IndentWidth is the number of spaces per indent level.
	IndentWidth int `yaml:"indent_width" json:"indent_width" validate:"gte=0,lte=16"`
}

// DefaultConfig returns the console configuration used by the CLI.
func DefaultConfig() Config {
	return Config{
		Level:       "information",
		Format:      "console",
		Output:      "stderr",
		TimeFormat:  "rfc3339",
		IndentWidth: 2,
	}
}

// indentState is shared between a trace and its component children.
type indentState struct {
	level int
}

// Trace is a leveled, indentation-aware logging sink backed by zerolog.
//
// The indent level is mutated without synchronization. A trace is driven by
// a single caller at a time, the same way the engine that owns it is.
type Trace struct {
	zlog   zerolog.Logger
	indent *indentState
	width  int
	min    Level
}

// New creates a trace channel from the given configuration.
func New(cfg Config) (*Trace, error) {
	var writer io.Writer
	switch cfg.Output {
	case "", "stderr":
		writer = os.Stderr
	case "stdout":
		writer = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace output: %w", err)
		}
		writer = file
	}

	if cfg.Level != "" {
		if _, err := ParseLevel(cfg.Level); err != nil {
			return nil, err
		}
	}

	return NewWithWriter(writer, cfg), nil
}

// NewWithWriter creates a trace channel writing to w.
func NewWithWriter(w io.Writer, cfg Config) *Trace {
	stamp := timestampHook{format: cfg.TimeFormat}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: consoleLayout(cfg.TimeFormat),
			NoColor:    w != os.Stdout && w != os.Stderr,
		}
		stamp.format = "rfc3339"
	}

	minLevel := LevelInformation
	if lvl, err := ParseLevel(cfg.Level); err == nil {
		minLevel = lvl
	}

	width := cfg.IndentWidth
	if width <= 0 {
		width = 2
	}

	zlog := zerolog.New(w).Hook(stamp).Level(minLevel.ZerologLevel())

	return &Trace{
		zlog:   zlog,
		indent: &indentState{},
		width:  width,
		min:    minLevel,
	}
}

// Discard returns a trace that drops every event but still tracks indentation.
func Discard() *Trace {
	return &Trace{
		zlog:   zerolog.Nop(),
		indent: &indentState{},
		width:  2,
		min:    LevelVerbose,
	}
}

// WithComponent returns a child trace tagged with a component field.
// The child shares the parent's indent level.
func (t *Trace) WithComponent(component string) *Trace {
	return &Trace{
		zlog:   t.zlog.With().Str("component", component).Logger(),
		indent: t.indent,
		width:  t.width,
		min:    t.min,
	}
}

// Logger exposes the underlying zerolog logger.
func (t *Trace) Logger() zerolog.Logger {
	return t.zlog
}

// Enabled reports whether events at level are written.
func (t *Trace) Enabled(level Level) bool {
	return level <= t.min
}

// Indent increases the indent level by one and returns the previous level.
func (t *Trace) Indent() int {
	prev := t.indent.level
	t.indent.level++
	return prev
}

// IndentLevel returns the current indent level.
func (t *Trace) IndentLevel() int {
	return t.indent.level
}

// SetIndentLevel sets the current indent level. Negative values clamp to zero.
func (t *Trace) SetIndentLevel(level int) {
	if level < 0 {
		level = 0
	}
	t.indent.level = level
}

// Nest indents the trace and returns a function restoring the level that was
// current before the call:
//
//	defer t.Nest()()
func (t *Trace) Nest() func() {
	saved := t.Indent()
	return func() {
		t.SetIndentLevel(saved)
	}
}

// TraceEvent writes a formatted message at the given level.
func (t *Trace) TraceEvent(level Level, format string, args ...interface{}) {
	var ev *zerolog.Event
	switch level {
	case LevelCritical:
		ev = t.zlog.Error().Bool("critical", true)
	case LevelError:
		ev = t.zlog.Error()
	case LevelWarning:
		ev = t.zlog.Warn()
	case LevelInformation:
		ev = t.zlog.Info()
	default:
		ev = t.zlog.Debug()
	}
	if ev == nil {
		return
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	ev.Int("indent", t.indent.level).Msg(strings.Repeat(" ", t.width*t.indent.level) + msg)
}

// Critical writes a critical-level message.
func (t *Trace) Critical(format string, args ...interface{}) {
	t.TraceEvent(LevelCritical, format, args...)
}

// Error writes an error-level message.
func (t *Trace) Error(format string, args ...interface{}) {
	t.TraceEvent(LevelError, format, args...)
}

// Warning writes a warning-level message.
func (t *Trace) Warning(format string, args ...interface{}) {
	t.TraceEvent(LevelWarning, format, args...)
}

// Information writes an information-level message.
func (t *Trace) Information(format string, args ...interface{}) {
	t.TraceEvent(LevelInformation, format, args...)
}

// Verbose writes a verbose-level message.
func (t *Trace) Verbose(format string, args ...interface{}) {
	t.TraceEvent(LevelVerbose, format, args...)
}

// timestampHook stamps each event in the trace's own time format, leaving
// zerolog.TimeFieldFormat alone.
type timestampHook struct {
	format string
}

// Run implements zerolog.Hook.
func (h timestampHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	now := time.Now()
	switch h.format {
	case "unix":
		e.Int64(zerolog.TimestampFieldName, now.Unix())
	case "unixms":
		e.Int64(zerolog.TimestampFieldName, now.UnixMilli())
	default:
		e.Str(zerolog.TimestampFieldName, now.Format(time.RFC3339Nano))
	}
}

// consoleLayout returns the layout the console writer renders timestamps with.
func consoleLayout(format string) string {
	switch format {
	case "unix":
		return time.Stamp
	case "unixms":
		return time.StampMilli
	default:
		return time.RFC3339
	}
}
