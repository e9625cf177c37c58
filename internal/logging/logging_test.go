package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	t.Run("with default output", func(t *testing.T) {
		logger := NewLogger(Config{Level: InfoLevel})
		if logger == nil {
			t.Fatal("NewLogger returned nil")
		}
	})

	t.Run("with custom output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewLogger(Config{Level: InfoLevel, Output: buf})
		if logger == nil {
			t.Fatal("NewLogger returned nil")
		}
		if logger.writer != buf {
			t.Error("Logger should use provided output writer")
		}
	})
}

func TestLogLevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		configLvl  LogLevel
		logLvl     LogLevel
		shouldLog  bool
	}{
		{"debug logs debug", DebugLevel, DebugLevel, true},
		{"debug logs info", DebugLevel, InfoLevel, true},
		{"debug logs warn", DebugLevel, WarnLevel, true},
		{"debug logs error", DebugLevel, ErrorLevel, true},
		{"info skips debug", InfoLevel, DebugLevel, false},
		{"info logs info", InfoLevel, InfoLevel, true},
		{"info logs warn", InfoLevel, WarnLevel, true},
		{"info logs error", InfoLevel, ErrorLevel, true},
		{"warn skips debug", WarnLevel, DebugLevel, false},
		{"warn skips info", WarnLevel, InfoLevel, false},
		{"warn logs warn", WarnLevel, WarnLevel, true},
		{"warn logs error", WarnLevel, ErrorLevel, true},
		{"error skips debug", ErrorLevel, DebugLevel, false},
		{"error skips info", ErrorLevel, InfoLevel, false},
		{"error skips warn", ErrorLevel, WarnLevel, false},
		{"error logs error", ErrorLevel, ErrorLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewLogger(Config{Level: tt.configLvl, Output: buf})

			logger.log(tt.logLvl, "test message", nil)

			hasOutput := buf.Len() > 0
			if hasOutput != tt.shouldLog {
				t.Errorf("shouldLog = %v, but hasOutput = %v", tt.shouldLog, hasOutput)
			}
		})
	}
}

func TestDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Level: DebugLevel, Output: buf})

	logger.Debug("debug message", map[string]interface{}{"key": "value"})

	output := buf.String()
	if !strings.Contains(output, "debug") {
		t.Errorf("Debug output should contain 'debug', got: %s", output)
	}
	if !strings.Contains(output, "debug message") {
		t.Errorf("Debug output should contain message, got: %s", output)
	}
}

func TestInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Level: InfoLevel, Output: buf})

	logger.Info("info message", nil)

	output := buf.String()
	if !strings.Contains(output, "info") {
		t.Errorf("Info output should contain 'info', got: %s", output)
	}
	if !strings.Contains(output, "info message") {
		t.Errorf("Info output should contain message, got: %s", output)
	}
}

func TestWarn(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Level: WarnLevel, Output: buf})

	logger.Warn("warning message", nil)

	output := buf.String()
	if !strings.Contains(output, "warn") {
		t.Errorf("Warn output should contain 'warn', got: %s", output)
	}
}

func TestError(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Level: ErrorLevel, Output: buf})

	logger.Error("error message", nil)

	output := buf.String()
	if !strings.Contains(output, "error") {
		t.Errorf("Error output should contain 'error', got: %s", output)
	}
}

func TestJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{
		Level:  InfoLevel,
		Format: JSONFormat,
		Output: buf,
	})

	logger.Info("test message", map[string]interface{}{
		"count": 42,
		"name":  "test",
	})

	output := buf.String()

	// Verify it's valid JSON
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(output), &entry); err != nil {
		t.Fatalf("Output is not valid JSON: %v\nOutput: %s", err, output)
	}

	// Check required fields
	if entry["level"] != "info" {
		t.Errorf("level = %v, want 'info'", entry["level"])
	}
	if entry["message"] != "test message" {
		t.Errorf("message = %v, want 'test message'", entry["message"])
	}
	if entry["timestamp"] == nil {
		t.Error("timestamp should be present")
	}

	// Check fields
	fields, ok := entry["fields"].(map[string]interface{})
	if !ok {
		t.Fatal("fields should be a map")
	}
	if fields["count"] != float64(42) { // JSON numbers are float64
		t.Errorf("fields.count = %v, want 42", fields["count"])
	}
	if fields["name"] != "test" {
		t.Errorf("fields.name = %v, want 'test'", fields["name"])
	}
}

func TestHumanFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{
		Level:  InfoLevel,
		Format: HumanFormat,
		Output: buf,
	})

	logger.Info("human readable", map[string]interface{}{
		"key": "value",
	})

	output := buf.String()

	// Check for expected parts
	if !strings.Contains(output, "[info]") {
		t.Errorf("Output should contain '[info]', got: %s", output)
	}
	if !strings.Contains(output, "human readable") {
		t.Errorf("Output should contain message, got: %s", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("Output should contain field, got: %s", output)
	}
}

func TestHumanFormatNoFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{
		Level:  InfoLevel,
		Format: HumanFormat,
		Output: buf,
	})

	logger.Info("no fields", nil)

	output := buf.String()
	if strings.Contains(output, "|") {
		t.Errorf("Output without fields should not contain '|', got: %s", output)
	}
}

func TestShouldLog(t *testing.T) {
	logger := NewLogger(Config{Level: WarnLevel})

	if logger.shouldLog(DebugLevel) {
		t.Error("WarnLevel logger should not log DebugLevel")
	}
	if logger.shouldLog(InfoLevel) {
		t.Error("WarnLevel logger should not log InfoLevel")
	}
	if !logger.shouldLog(WarnLevel) {
		t.Error("WarnLevel logger should log WarnLevel")
	}
	if !logger.shouldLog(ErrorLevel) {
		t.Error("WarnLevel logger should log ErrorLevel")
	}
}

func TestMultipleFieldsHumanFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{
		Level:  InfoLevel,
		Format: HumanFormat,
		Output: buf,
	})

	logger.Info("test", map[string]interface{}{
		"a": 1,
		"b": 2,
		"c": 3,
	})

	output := buf.String()

	// Should have commas between fields
	if !strings.Contains(output, ", ") {
		t.Errorf("Multiple fields should be comma-separated, got: %s", output)
	}
}

func TestHumanFormatSortsFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{
		Level:  InfoLevel,
		Format: HumanFormat,
		Output: buf,
	})

	logger.Info("sorted", map[string]interface{}{
		"status": 200,
		"method": "GET",
		"path":   "/sparql",
	})

	output := strings.TrimSpace(buf.String())
	if !strings.HasSuffix(output, "| method=GET, path=/sparql, status=200") {
		t.Errorf("fields should be sorted by key, got: %s", output)
	}
}

func TestJSONFormatNoFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Level: InfoLevel, Format: JSONFormat, Output: buf})

	logger.Info("bare", nil)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if _, ok := entry["fields"]; ok {
		t.Errorf("fields should be omitted when empty, got: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{"WARN", WarnLevel},
		{" error ", ErrorLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNopDiscards(t *testing.T) {
	logger := Nop()
	logger.Error("dropped", map[string]interface{}{"k": "v"})
	if logger.writer != io.Discard {
		t.Error("Nop logger should write to io.Discard")
	}
}

func TestCoreLevelMatchesConfig(t *testing.T) {
	tests := []struct {
		level    LogLevel
		enabled  zapcore.Level
		disabled zapcore.Level
	}{
		{DebugLevel, zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{InfoLevel, zapcore.InfoLevel, zapcore.DebugLevel},
		{WarnLevel, zapcore.WarnLevel, zapcore.InfoLevel},
		{ErrorLevel, zapcore.ErrorLevel, zapcore.WarnLevel},
		{"verbose", zapcore.InfoLevel, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			core := NewLogger(Config{Level: tt.level, Output: io.Discard}).zl.Core()
			if !core.Enabled(tt.enabled) {
				t.Errorf("core should enable %v", tt.enabled)
			}
			if core.Enabled(tt.disabled) {
				t.Errorf("core should not enable %v", tt.disabled)
			}
		})
	}
}

func TestFieldsReachCoreSorted(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := &Logger{config: Config{Level: InfoLevel, Format: HumanFormat}, writer: io.Discard, zl: zap.New(core)}

	logger.Debug("below configured level", nil)
	logger.Warn("Loaded data file", map[string]interface{}{"quads": 3, "path": "data.nt", "graph": "urn:g"})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.WarnLevel || entry.Message != "Loaded data file" {
		t.Errorf("entry = %v %q", entry.Level, entry.Message)
	}
	var keys []string
	for _, f := range entry.Context {
		keys = append(keys, f.Key)
	}
	if got := strings.Join(keys, ","); got != "graph,path,quads" {
		t.Errorf("field order = %q, want graph,path,quads", got)
	}
	if got := entry.ContextMap()["quads"]; got != int64(3) {
		t.Errorf("quads = %v (%T), want int64 3", got, got)
	}
}

func TestJSONFieldsNamespace(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := &Logger{config: Config{Level: InfoLevel, Format: JSONFormat}, writer: io.Discard, zl: zap.New(core)}

	logger.Error("Query failed", map[string]interface{}{"code": "PARSER_ERROR"})

	entries := logs.FilterMessage("Query failed").All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	nested, ok := entries[0].ContextMap()["fields"].(map[string]interface{})
	if !ok {
		t.Fatalf("context = %v, want a fields namespace", entries[0].ContextMap())
	}
	if nested["code"] != "PARSER_ERROR" {
		t.Errorf("fields.code = %v", nested["code"])
	}
}

func TestHumanEncoderEntry(t *testing.T) {
	enc := newHumanEncoder()
	ent := zapcore.Entry{
		Time:    time.Date(2024, 3, 1, 13, 0, 0, 0, time.FixedZone("CET", 3600)),
		Level:   zapcore.WarnLevel,
		Message: "Rate limit exceeded",
	}

	buf, err := enc.EncodeEntry(ent, []zapcore.Field{zap.String("path", "/sparql"), zap.Int("status", 429)})
	if err != nil {
		t.Fatalf("EncodeEntry: %v", err)
	}
	defer buf.Free()

	want := "2024-03-01T12:00:00Z [warn] Rate limit exceeded | path=/sparql, status=429\n"
	if got := buf.String(); got != want {
		t.Errorf("line = %q, want %q", got, want)
	}

	clone := enc.Clone()
	if _, ok := clone.(*humanEncoder); !ok {
		t.Errorf("Clone() = %T, want *humanEncoder", clone)
	}
}

type syncRecorder struct {
	bytes.Buffer
	syncs int
}

func (s *syncRecorder) Sync() error {
	s.syncs++
	return nil
}

func TestSyncReachesWriter(t *testing.T) {
	out := &syncRecorder{}
	logger := NewLogger(Config{Level: InfoLevel, Output: out})

	logger.Info("flushed", nil)
	if err := logger.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if out.syncs != 1 {
		t.Errorf("writer synced %d times, want 1", out.syncs)
	}
	if !strings.Contains(out.String(), "flushed") {
		t.Errorf("output = %q", out.String())
	}

	if err := Nop().Sync(); err != nil {
		t.Errorf("Nop().Sync() = %v", err)
	}
}
