package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "json", Output: &buf}).Slog()

	logger.Info("should be dropped")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Error("info record leaked past warn level")
	}
	if !strings.Contains(out, "should appear") {
		t.Error("warn record missing")
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Format: "json", Output: &buf}).Slog()
	logger.Info("query complete", "user_id", "u-1", "steps", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["msg"] != "query complete" || record["user_id"] != "u-1" {
		t.Errorf("record = %v", record)
	}
}

func TestLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Format: "text", Output: &buf}).Slog()
	logger.Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestLoggerRedactsSecrets(t *testing.T) {
	tests := []struct {
		name   string
		msg    string
		args   []any
		secret string
	}{
		{"anthropic key in message", "failed with key sk-ant-abc123def456ghi789", nil, "sk-ant-abc123def456ghi789"},
		{"openai key in attr", "provider error", []any{"error", "401 for key sk-aaaaaaaaaabbbbbbbbbbcc"}, "sk-aaaaaaaaaabbbbbbbbbbcc"},
		{"dsn credentials", "connecting", []any{"dsn", "postgres://ragcore:hunter2@db:5432/ragcore"}, "hunter2"},
		{"labeled secret", "loaded config", []any{"detail", "api_key=supersecretvalue"}, "supersecretvalue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(LogConfig{Format: "json", Output: &buf}).Slog()
			logger.Info(tt.msg, tt.args...)
			out := buf.String()
			if strings.Contains(out, tt.secret) {
				t.Errorf("secret leaked: %s", out)
			}
			if !strings.Contains(out, "[REDACTED]") {
				t.Errorf("expected redaction marker: %s", out)
			}
		})
	}
}

func TestLoggerCustomRedactPattern(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{
		Format:         "json",
		Output:         &buf,
		RedactPatterns: []string{`NPWP\s*\d+`},
	}).Slog()
	logger.Info("saving profile", "note", "NPWP 123456789")
	if strings.Contains(buf.String(), "123456789") {
		t.Errorf("custom pattern not applied: %s", buf.String())
	}
}

func TestLoggerWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Format: "json", Output: &buf}).Slog()
	logger.With("correlation_id", "corr-abc").Info("gate triggered")
	if !strings.Contains(buf.String(), "corr-abc") {
		t.Errorf("With fields missing: %s", buf.String())
	}
}
