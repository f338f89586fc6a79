// Package logging builds the slog handler used by the CLI.
//
// Records go to stderr so stdout stays reserved for command results
// (text or --json). When stderr is a terminal the tint handler renders
// colourised, compact lines; otherwise colour is disabled so logs piped to
// files or CI stay clean.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// NewTerminalHandler returns a tint handler writing to stderr at the given
// level.
func NewTerminalHandler(level slog.Leveler) slog.Handler {
	return NewHandler(os.Stderr, level, isTerminal(os.Stderr))
}

// NewHandler returns a tint handler writing to w. Colour is used only when
// color is true.
func NewHandler(w io.Writer, level slog.Leveler, color bool) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !color,
	})
}

// LevelFor maps the --verbose flag to a log level.
func LevelFor(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Discard returns a logger that drops every record. Useful for tests and
// library callers that do not want output.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
