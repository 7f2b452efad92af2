// Package logging builds the rank-tagged slog loggers used by every lvmatmul
// process.
//
// By default only the coordinator logs at the configured level and workers
// log warnings and errors only, so an N-process run prints one progress
// stream. AllRanks lifts the restriction for debugging a group.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Format selects the slog handler.
type Format int

const (
	// Text uses slog.TextHandler.
	Text Format = iota
	// JSON uses slog.JSONHandler.
	JSON
)

// ErrUnknownFormat indicates a format name other than "text" or "json".
var ErrUnknownFormat = errors.New("logging: unknown format")

// String returns the format name.
func (f Format) String() string {
	if f == JSON {
		return "json"
	}

	return "text"
}

// ParseFormat maps "text" (or "") and "json" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return Text, nil
	case "json":
		return JSON, nil
	}

	return Text, fmt.Errorf("%q: %w", s, ErrUnknownFormat)
}

// ParseLevel accepts slog level names such as "debug", "info", "warn+1".
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logging: level %q: %w", s, err)
	}

	return l, nil
}

// LevelFromFlags returns the level for the -vv, -v and -q command line
// flags, in that order of precedence. Without flags the level is Info.
func LevelFromFlags(vv, v, q bool) slog.Level {
	switch {
	case vv:
		return slog.LevelDebug
	case v:
		return slog.LevelInfo
	case q:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Options configures New.
type Options struct {
	Level    slog.Level
	Format   Format
	AllRanks bool // log at Level on every rank, not just the coordinator
}

// New returns a logger writing to w whose records all carry rank=<rank>.
func New(w io.Writer, rank int, o Options) *slog.Logger {
	level := o.Level
	if !o.AllRanks && rank != 0 && level < slog.LevelWarn {
		level = slog.LevelWarn
	}

	return slog.New(Handler(w, level, o.Format)).With(slog.Int("rank", rank))
}

// Handler returns the bare handler New wraps, for components that add
// their own rank attribute.
func Handler(w io.Writer, level slog.Leveler, f Format) slog.Handler {
	hopts := &slog.HandlerOptions{Level: level}
	if f == JSON {
		return slog.NewJSONHandler(w, hopts)
	}

	return slog.NewTextHandler(w, hopts)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
