package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_ProductionMode(t *testing.T) {
	logger := New("production")

	if logger == nil {
		t.Fatal("Expected logger to be created")
	}
}

func TestInfo(t *testing.T) {
	var buf bytes.Buffer
	zlog := zerolog.New(&buf).With().Timestamp().Logger()
	logger := &Logger{zlog: zlog}

	logger.Info("wizard step submitted", map[string]interface{}{
		"step":  "parse-application",
		"index": 0,
	})

	output := buf.String()
	if !strings.Contains(output, "wizard step submitted") {
		t.Error("Expected log output to contain message")
	}
	if !strings.Contains(output, "parse-application") {
		t.Error("Expected log output to contain field value")
	}
}

func TestError(t *testing.T) {
	var buf bytes.Buffer
	zlog := zerolog.New(&buf).With().Timestamp().Logger()
	logger := &Logger{zlog: zlog}

	logger.Error("generation failed", errors.New("remote unavailable"), map[string]interface{}{
		"kind": "refusal",
	})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log output: %v", err)
	}
	if entry["error"] != "remote unavailable" {
		t.Errorf("Expected error field, got %v", entry["error"])
	}
	if entry["kind"] != "refusal" {
		t.Errorf("Expected kind field, got %v", entry["kind"])
	}
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	zlog := zerolog.New(&buf).With().Timestamp().Logger()
	logger := &Logger{zlog: zlog}

	child := logger.WithRequestID("req-123")
	child.Info("hello", nil)

	if !strings.Contains(buf.String(), "req-123") {
		t.Error("Expected request_id in child logger output")
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	zlog := zerolog.New(&buf).With().Timestamp().Logger()
	logger := &Logger{zlog: zlog}

	child := logger.With(map[string]interface{}{"wizard": "tu"})
	child.Info("hello", nil)

	if !strings.Contains(buf.String(), "\"wizard\":\"tu\"") {
		t.Error("Expected wizard field in child logger output")
	}
}
