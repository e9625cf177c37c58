package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	// DebugLevel for debug messages
	DebugLevel LogLevel = "debug"
	// InfoLevel for informational messages
	InfoLevel LogLevel = "info"
	// WarnLevel for warning messages
	WarnLevel LogLevel = "warn"
	// ErrorLevel for error messages
	ErrorLevel LogLevel = "error"
)

var logLevelPriority = map[LogLevel]int{
	DebugLevel: 0,
	InfoLevel:  1,
	WarnLevel:  2,
	ErrorLevel: 3,
}

var zapLevels = map[LogLevel]zapcore.Level{
	DebugLevel: zapcore.DebugLevel,
	InfoLevel:  zapcore.InfoLevel,
	WarnLevel:  zapcore.WarnLevel,
	ErrorLevel: zapcore.ErrorLevel,
}

// ParseLevel maps a configuration string to a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	lvl := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := logLevelPriority[lvl]; ok {
		return lvl
	}
	return InfoLevel
}

// Format represents the output format for logs
type Format string

const (
	// JSONFormat outputs logs as JSON
	JSONFormat Format = "json"
	// HumanFormat outputs logs in human-readable format
	HumanFormat Format = "human"
)

// Config holds logger configuration
type Config struct {
	Format Format
	Level  LogLevel
	Output io.Writer // Optional, defaults to stdout
}

// Logger provides structured logging on top of a zap core.
type Logger struct {
	config Config
	writer io.Writer
	zl     *zap.Logger
}

// NewLogger creates a new logger with the given configuration
func NewLogger(config Config) *Logger {
	writer := config.Output
	if writer == nil {
		writer = os.Stdout
	}
	if _, ok := logLevelPriority[config.Level]; !ok {
		config.Level = InfoLevel
	}

	var enc zapcore.Encoder
	if config.Format == JSONFormat {
		enc = zapcore.NewJSONEncoder(encoderConfig())
	} else {
		enc = newHumanEncoder()
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(writer)), zapLevels[config.Level])
	return &Logger{
		config: config,
		writer: writer,
		zl:     zap.New(core),
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{
		config: Config{Level: ErrorLevel, Format: HumanFormat},
		writer: io.Discard,
		zl:     zap.NewNop(),
	}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     encodeTime,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
}

func encodeTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(time.RFC3339))
}

func (l *Logger) shouldLog(level LogLevel) bool {
	configPriority := logLevelPriority[l.config.Level]
	messagePriority := logLevelPriority[level]
	return messagePriority >= configPriority
}

func (l *Logger) log(level LogLevel, message string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	zfields := make([]zap.Field, 0, len(fields)+1)
	if len(fields) > 0 && l.config.Format == JSONFormat {
		zfields = append(zfields, zap.Namespace("fields"))
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		zfields = append(zfields, zap.Any(k, fields[k]))
	}

	if ce := l.zl.Check(zapLevels[level], message); ce != nil {
		ce.Write(zfields...)
	}
}

// Sync flushes any buffered output.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.log(DebugLevel, message, fields)
}

// Info logs an info message
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.log(InfoLevel, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.log(WarnLevel, message, fields)
}

// Error logs an error message
func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.log(ErrorLevel, message, fields)
}

// humanEncoder renders "ts [level] message | k=v, k=v".
type humanEncoder struct {
	zapcore.Encoder
	pool buffer.Pool
}

func newHumanEncoder() *humanEncoder {
	return &humanEncoder{
		Encoder: zapcore.NewJSONEncoder(encoderConfig()),
		pool:    buffer.NewPool(),
	}
}

func (enc *humanEncoder) Clone() zapcore.Encoder {
	return &humanEncoder{
		Encoder: enc.Encoder.Clone(),
		pool:    enc.pool,
	}
}

func (enc *humanEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	line := enc.pool.Get()
	line.AppendString(ent.Time.UTC().Format(time.RFC3339))
	line.AppendString(" [")
	line.AppendString(ent.Level.String())
	line.AppendString("] ")
	line.AppendString(ent.Message)

	if len(fields) > 0 {
		values := zapcore.NewMapObjectEncoder()
		for _, f := range fields {
			f.AddTo(values)
		}
		line.AppendString(" | ")
		for i, f := range fields {
			if i > 0 {
				line.AppendString(", ")
			}
			line.AppendString(f.Key)
			line.AppendByte('=')
			line.AppendString(fmt.Sprintf("%v", values.Fields[f.Key]))
		}
	}
	line.AppendString(zapcore.DefaultLineEnding)
	return line, nil
}
