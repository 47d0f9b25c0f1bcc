package rowan

import (
	"bytes"
	"log/slog"
	"testing"
)

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	logger().Info("hello", "k", "v")
	if buf.Len() == 0 {
		t.Error("configured logger produced no output")
	}

	// nil restores the silent default.
	SetLogger(nil)
	buf.Reset()
	logger().Info("quiet")
	if buf.Len() != 0 {
		t.Error("nil logger still wrote output")
	}
	if logger() == nil {
		t.Error("logger() returned nil")
	}
}

func TestNopHandlerDisabled(t *testing.T) {
	if (nopHandler{}).Enabled(t.Context(), slog.LevelError) {
		t.Error("nop handler reports enabled; formatting cost is not skipped")
	}
}
