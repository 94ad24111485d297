package shared

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

func TestLogger(t *testing.T) {
	t.Run("NewLogger writes to the given writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		logger.Info("listener ready", "addr", "127.0.0.1:8888")

		out := buf.String()
		if !strings.Contains(out, "listener ready") {
			t.Errorf("expected message in output, got %q", out)
		}
		if !strings.Contains(out, "127.0.0.1:8888") {
			t.Errorf("expected key/value in output, got %q", out)
		}
	})

	t.Run("NewLogger defaults to stderr", func(t *testing.T) {
		if logger := NewLogger(nil); logger == nil {
			t.Fatal("expected logger")
		}
	})

	t.Run("WithLogger adds fields", func(t *testing.T) {
		var buf bytes.Buffer
		child := WithLogger(NewLogger(&buf), "component", "exchange")
		child.Info("posting")

		if !strings.Contains(buf.String(), "component=exchange") {
			t.Errorf("expected component field, got %q", buf.String())
		}
	})

	t.Run("SetLogLevel filters debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		SetLogLevel(logger, log.InfoLevel)
		logger.Debug("hidden")
		if buf.Len() != 0 {
			t.Errorf("expected debug to be filtered, got %q", buf.String())
		}

		SetLogLevel(logger, log.DebugLevel)
		logger.Debug("shown")
		if !strings.Contains(buf.String(), "shown") {
			t.Errorf("expected debug output, got %q", buf.String())
		}
	})
}

func TestGenerateState(t *testing.T) {
	a, b := GenerateState(), GenerateState()
	if a == b {
		t.Errorf("expected distinct states, got %s twice", a)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("expected a uuid, got %q: %v", a, err)
	}
}
