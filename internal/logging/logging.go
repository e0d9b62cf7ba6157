// Package logging builds the process-wide structured logger.
package logging

import (
	"log/slog"
	"os"
)

// New creates the process logger: one JSON object per line on stdout so the
// host's journal collector can ingest it. Every record carries the service
// tag to keep raspscan lines separable on a shared Pi.
func New(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("service", "raspscan")
}
