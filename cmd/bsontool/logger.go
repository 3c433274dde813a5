package main

import (
	"io"
	"log/slog"
)

// newLogger returns the diagnostic logger. Output on a terminal uses
// slog.TextHandler for people; otherwise slog.JSONHandler, so scripts and
// CI can parse it.
func newLogger(w io.Writer, terminal, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if terminal {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler)
}
