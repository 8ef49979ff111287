package trace

import (
	"fmt"
	"strings"
)

// Level selects how much of the build gets traced.
type Level uint8

const (
	LevelOff    Level = iota // tracing disabled
	LevelError               // nothing except the crash path
	LevelPhase               // driver and pass boundaries
	LevelDetail              // plus per-module events
	LevelDebug               // plus node-level noise
)

var levelNames = [...]string{
	LevelOff:    "off",
	LevelError:  "error",
	LevelPhase:  "phase",
	LevelDetail: "detail",
	LevelDebug:  "debug",
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel converts a user-supplied level name, case-insensitively.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(s)
	for l, n := range levelNames {
		if n == name {
			return Level(l), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|phase|detail|debug)", s)
}

// ShouldEmit reports whether events at the given scope pass this level.
// LevelError deliberately filters everything: crash dumps bypass the
// normal emit path, so regular events stay suppressed.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelPhase:
		return scope <= ScopePass
	case LevelDetail:
		return scope <= ScopeModule
	case LevelDebug:
		return true
	}
	return false
}
