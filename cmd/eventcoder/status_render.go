package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"eventcoder/internal/journal"
)

// statusKind drives both the bracketed label and the colour of a status line,
// a run status cell and a section header.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

var statusKinds = map[statusKind]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

func (k statusKind) label() string {
	if style, ok := statusKinds[k]; ok {
		return style.label
	}
	return statusKinds[statusInfo].label
}

// paint wraps text in the kind's colour when colorize is set.
func (k statusKind) paint(text string, colorize bool) string {
	style, ok := statusKinds[k]
	if !colorize || !ok {
		return text
	}
	return style.color + text + ansiReset
}

// runStatusKind maps a journal run status onto a display kind.
func runStatusKind(status string) statusKind {
	switch status {
	case journal.RunCompleted:
		return statusOK
	case journal.RunInterrupted:
		return statusWarn
	case journal.RunFailed:
		return statusError
	default:
		return statusInfo
	}
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	text := "[" + kind.label() + "]"
	if message != "" {
		text += " " + message
	}
	return kind.paint(fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", text), colorize)
}

func colorizeStatus(status string, colorize bool) string {
	return runStatusKind(status).paint(status, colorize)
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	return []string{statusInfo.paint(line, colorize), statusInfo.paint(rule, colorize)}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
