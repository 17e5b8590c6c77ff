package trace

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Level is the routing level of a trace event.
type Level int

const (
	// LevelCritical marks failures that stop the current operation.
	LevelCritical Level = iota
	// LevelError marks errors.
	LevelError
	// LevelWarning marks advisory messages.
	LevelWarning
	// LevelInformation marks progress messages.
	LevelInformation
	// LevelVerbose marks detailed diagnostic output.
	LevelVerbose
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelCritical:
		return "critical"
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelInformation:
		return "information"
	case LevelVerbose:
		return "verbose"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel converts a string to a Level. Common aliases (info, warn, debug) are accepted.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "fatal":
		return LevelCritical, nil
	case "error":
		return LevelError, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "information", "info":
		return LevelInformation, nil
	case "verbose", "debug", "trace":
		return LevelVerbose, nil
	default:
		return LevelInformation, fmt.Errorf("invalid trace level: %q", s)
	}
}

// ZerologLevel returns the minimum zerolog level that lets events at l through.
func (l Level) ZerologLevel() zerolog.Level {
	switch l {
	case LevelCritical, LevelError:
		return zerolog.ErrorLevel
	case LevelWarning:
		return zerolog.WarnLevel
	case LevelInformation:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
