package slogobs

import (
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below slog.LevelDebug and is filtered out unless enabled explicitly.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel parses a log level name (TRACE, DEBUG, INFO, WARN, WARNING, ERROR,
// case-insensitive). The second return value is false for unknown names, in
// which case INFO is returned.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE":
		return LevelTrace, true
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// LevelFromEnv returns the level configured via LOG_LEVEL, INFO when unset or unknown.
func LevelFromEnv() slog.Level {
	level, _ := ParseLevel(os.Getenv("LOG_LEVEL"))
	return level
}

// levelString returns a string representation of the given slog.Level,
// mapping TRACE (level < Debug), DEBUG, INFO, WARN, and ERROR appropriately.
func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return "TRACE"
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}
