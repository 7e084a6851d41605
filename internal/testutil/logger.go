package testutil

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/docpilot/portal/internal/logger"
)

// MakeNoopLogger returns a logger that drops every record.
func MakeNoopLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, int(slog.LevelDebug), "text")
}

// MakeJSONLogger returns an info-level JSON logger writing into the returned
// buffer, for tests that assert on log records.
func MakeJSONLogger() (*logger.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return logger.NewWithWriter(buf, int(slog.LevelInfo), "json"), buf
}
