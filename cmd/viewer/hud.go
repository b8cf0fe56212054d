package main

import (
	"fmt"
	"strings"
)

// DebugOverlay collects the status lines shown in the window title and
// the periodic console log.
type DebugOverlay struct {
	lines []string
}

func (do *DebugOverlay) AddLine(format string, args ...interface{}) {
	do.lines = append(do.lines, fmt.Sprintf(format, args...))
}

func (do *DebugOverlay) Clear() {
	do.lines = do.lines[:0]
}

// GetText joins the lines with sep.
func (do *DebugOverlay) GetText(sep string) string {
	return strings.Join(do.lines, sep)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
