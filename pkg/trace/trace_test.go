package trace

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newJSONTrace(buf *bytes.Buffer, level string) *Trace {
	return NewWithWriter(buf, Config{Level: level, Format: "json"})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var events []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var ev map[string]interface{}
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("failed to decode event %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestTrace_IndentReturnsPreviousLevel(t *testing.T) {
	tr := Discard()

	if got := tr.Indent(); got != 0 {
		t.Errorf("expected previous level 0, got %d", got)
	}
	if got := tr.Indent(); got != 1 {
		t.Errorf("expected previous level 1, got %d", got)
	}
	if tr.IndentLevel() != 2 {
		t.Errorf("expected indent level 2, got %d", tr.IndentLevel())
	}

	tr.SetIndentLevel(-3)
	if tr.IndentLevel() != 0 {
		t.Errorf("expected negative level to clamp to 0, got %d", tr.IndentLevel())
	}
}

func TestTrace_NestRestores(t *testing.T) {
	tr := Discard()
	tr.SetIndentLevel(3)

	func() {
		defer tr.Nest()()
		if tr.IndentLevel() != 4 {
			t.Errorf("expected nested level 4, got %d", tr.IndentLevel())
		}
		tr.Indent()
		tr.Indent()
	}()

	if tr.IndentLevel() != 3 {
		t.Errorf("expected level restored to 3, got %d", tr.IndentLevel())
	}
}

func TestTrace_NestRestoresOnPanic(t *testing.T) {
	tr := Discard()

	func() {
		defer func() { _ = recover() }()
		defer tr.Nest()()
		tr.Indent()
		panic("boom")
	}()

	if tr.IndentLevel() != 0 {
		t.Errorf("expected level restored to 0 after panic, got %d", tr.IndentLevel())
	}
}

func TestTrace_EventsCarryIndentation(t *testing.T) {
	var buf bytes.Buffer
	tr := newJSONTrace(&buf, "verbose")

	tr.Information("Executing %d pipelines...", 2)
	tr.Indent()
	tr.Warning("nested")

	events := decodeLines(t, &buf)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0]["message"] != "Executing 2 pipelines..." {
		t.Errorf("unexpected message: %v", events[0]["message"])
	}
	if events[0]["level"] != "info" {
		t.Errorf("expected info level, got %v", events[0]["level"])
	}
	if events[1]["message"] != "  nested" {
		t.Errorf("expected indented message, got %q", events[1]["message"])
	}
	if events[1]["indent"] != float64(1) {
		t.Errorf("expected indent field 1, got %v", events[1]["indent"])
	}
	if events[1]["level"] != "warn" {
		t.Errorf("expected warn level, got %v", events[1]["level"])
	}
}

func TestTrace_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	tr := newJSONTrace(&buf, "warning")

	tr.Verbose("hidden")
	tr.Information("hidden")
	tr.Warning("shown")
	tr.Critical("shown")

	events := decodeLines(t, &buf)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %s", len(events), buf.String())
	}
	if events[1]["critical"] != true {
		t.Errorf("expected critical flag on critical event")
	}
	if tr.Enabled(LevelVerbose) {
		t.Errorf("expected verbose to be disabled")
	}
	if !tr.Enabled(LevelError) {
		t.Errorf("expected error to be enabled")
	}
}

func TestTrace_WithComponentSharesIndent(t *testing.T) {
	var buf bytes.Buffer
	tr := newJSONTrace(&buf, "information")
	child := tr.WithComponent("config")

	tr.Indent()
	if child.IndentLevel() != 1 {
		t.Errorf("expected child to observe parent indent, got %d", child.IndentLevel())
	}

	child.Information("hello")
	events := decodeLines(t, &buf)
	if events[0]["component"] != "config" {
		t.Errorf("expected component field, got %v", events[0]["component"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"critical", LevelCritical, false},
		{"error", LevelError, false},
		{"warn", LevelWarning, false},
		{"Information", LevelInformation, false},
		{"debug", LevelVerbose, false},
		{"loud", LevelInformation, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTrace_TimeFormatIsPerTrace(t *testing.T) {
	global := zerolog.TimeFieldFormat

	tests := []struct {
		name   string
		format string
		check  func(t *testing.T, v interface{})
	}{
		{
			name:   "unix",
			format: "unix",
			check: func(t *testing.T, v interface{}) {
				n, ok := v.(float64)
				if !ok || n < 1e9 || n > 1e11 {
					t.Errorf("expected unix seconds, got %v", v)
				}
			},
		},
		{
			name:   "unixms",
			format: "unixms",
			check: func(t *testing.T, v interface{}) {
				n, ok := v.(float64)
				if !ok || n < 1e12 {
					t.Errorf("expected unix milliseconds, got %v", v)
				}
			},
		},
		{
			name:   "rfc3339",
			format: "rfc3339",
			check: func(t *testing.T, v interface{}) {
				s, ok := v.(string)
				if !ok {
					t.Fatalf("expected a string timestamp, got %v", v)
				}
				if _, err := time.Parse(time.RFC3339, s); err != nil {
					t.Errorf("invalid RFC3339 timestamp %q: %v", s, err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tr := NewWithWriter(&buf, Config{Format: "json", TimeFormat: tt.format})
			tr.Information("stamped")

			events := decodeLines(t, &buf)
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			tt.check(t, events[0][zerolog.TimestampFieldName])

			if zerolog.TimeFieldFormat != global {
				t.Errorf("zerolog.TimeFieldFormat changed to %q", zerolog.TimeFieldFormat)
			}
		})
	}

	var buf bytes.Buffer
	NewWithWriter(&buf, Config{Format: "console", TimeFormat: "unixms"}).Information("console")
	if zerolog.TimeFieldFormat != global {
		t.Errorf("console trace changed zerolog.TimeFieldFormat to %q", zerolog.TimeFieldFormat)
	}
	if !strings.Contains(buf.String(), "console") {
		t.Errorf("console output missing message: %q", buf.String())
	}
}
