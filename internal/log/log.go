// Package log builds the structured logger shared by the CLI and the
// provider clients.
package log

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Prefix is printed in front of every record.
const Prefix = "mediatag"

// New returns a logger writing to w at the named level. An empty level
// means info.
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          Prefix,
		ReportTimestamp: lvl == log.DebugLevel,
	})
	logger.SetStyles(styles())
	return logger, nil
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(level string) (log.Level, error) {
	level = strings.TrimSpace(level)
	if level == "" {
		return log.InfoLevel, nil
	}
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q", level)
	}
	return lvl, nil
}

func styles() *log.Styles {
	s := log.DefaultStyles()
	s.Levels[log.DebugLevel] = lipgloss.NewStyle().SetString("DEBUG").Bold(true).Foreground(lipgloss.Color("#9ba8c0"))
	s.Levels[log.InfoLevel] = lipgloss.NewStyle().SetString("INFO ").Bold(true).Foreground(lipgloss.Color("#5dc796"))
	s.Levels[log.WarnLevel] = lipgloss.NewStyle().SetString("WARN ").Bold(true).Foreground(lipgloss.Color("#8fc279"))
	s.Levels[log.ErrorLevel] = lipgloss.NewStyle().SetString("ERROR").Bold(true).Foreground(lipgloss.Color("#f04c56"))
	return s
}
