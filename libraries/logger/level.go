package logger

import "strings"

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func levelForCategory(category string) Level {
	switch {
	case category == "error":
		return LevelError
	case category == "warning":
		return LevelWarning
	case strings.HasPrefix(category, "debug"):
		return LevelDebug
	default:
		return LevelInfo
	}
}

// validCategory rejects empty names and names with upper case letters.
func validCategory(category string) bool {
	if category == "" {
		return false
	}
	return strings.ToLower(category) == category
}
