package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Mohsinsiddi/greeter/internal/ui"
)

// newLogger builds the process logger. Logs always go to w (stderr) so they
// never mix with command output or the app frame.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (want text or json)", format)
	}
}

// errorLine renders a command error for the terminal.
func errorLine(err error) string {
	return ui.Err(err.Error())
}
