package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode controls whether build progress renders through the TUI.
type uiMode string

const (
	uiModeAuto uiMode = "auto" // TUI only when stdout is a terminal
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	normalized := strings.TrimSpace(strings.ToLower(value))
	if normalized == "" {
		return uiModeAuto, nil
	}
	for _, m := range []uiMode{uiModeAuto, uiModeOn, uiModeOff} {
		if normalized == string(m) {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

func shouldUseTUI(mode uiMode) bool {
	if mode == uiModeAuto {
		return isTerminal(os.Stdout)
	}
	return mode == uiModeOn
}
