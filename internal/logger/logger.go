// Package logger builds the slog logger used by all faucet binaries.
package logger

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// New returns a tinted slog logger writing to stdout. Timestamps are
// normalized to UTC with millisecond precision so log lines line up with
// block timestamps.
func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format("2006-01-02T15:04:05.000Z"))
			}
			return a
		},
	}))
}

// NewNop returns a logger that discards everything. Used in tests that do not
// assert on log output.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
