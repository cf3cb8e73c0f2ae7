package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger is the structured logging interface used across the server.
// In stdio transport mode stdout carries the JSON-RPC stream, so all
// log output goes to stderr.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})

	// Context-aware variants pick up the trace ID stored in the context.
	DebugContext(ctx context.Context, msg string, fields ...interface{})
	InfoContext(ctx context.Context, msg string, fields ...interface{})
	WarnContext(ctx context.Context, msg string, fields ...interface{})
	ErrorContext(ctx context.Context, msg string, fields ...interface{})

	WithTraceID(traceID string) Logger
	WithComponent(component string) Logger
}

// Level represents a logging severity level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a level name to a Level, defaulting to info.
func ParseLevel(name string) Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

type contextKey string

// TraceIDKey is the context key under which a request trace ID is stored.
const TraceIDKey contextKey = "trace_id"

// entry is the wire form of a single log line in JSON mode.
type entry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	TraceID   string                 `json:"trace_id,omitempty"`
	Component string                 `json:"component,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// StructuredLogger writes leveled, optionally JSON-formatted log lines.
type StructuredLogger struct {
	level     Level
	traceID   string
	component string
	useJSON   bool
	out       io.Writer
}

// New creates a logger at the given level. Output format follows the
// LOG_JSON environment variable and defaults to JSON.
func New(level Level) Logger {
	return &StructuredLogger{
		level:   level,
		useJSON: envBool("LOG_JSON", true),
		out:     os.Stderr,
	}
}

// NewWithOutput creates a logger writing to an explicit destination,
// mainly for tests.
func NewWithOutput(level Level, useJSON bool, out io.Writer) Logger {
	return &StructuredLogger{level: level, useJSON: useJSON, out: out}
}

func envBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val == "true" || val == "1"
}

// WithTraceID returns a copy of the logger bound to a trace ID.
func (l *StructuredLogger) WithTraceID(traceID string) Logger {
	clone := *l
	clone.traceID = traceID
	return &clone
}

// WithComponent returns a copy of the logger bound to a component name.
func (l *StructuredLogger) WithComponent(component string) Logger {
	clone := *l
	clone.component = component
	return &clone
}

func (l *StructuredLogger) Debug(msg string, fields ...interface{}) {
	l.log(LevelDebug, msg, "", fields...)
}

func (l *StructuredLogger) Info(msg string, fields ...interface{}) {
	l.log(LevelInfo, msg, "", fields...)
}

func (l *StructuredLogger) Warn(msg string, fields ...interface{}) {
	l.log(LevelWarn, msg, "", fields...)
}

func (l *StructuredLogger) Error(msg string, fields ...interface{}) {
	l.log(LevelError, msg, "", fields...)
}

func (l *StructuredLogger) DebugContext(ctx context.Context, msg string, fields ...interface{}) {
	l.log(LevelDebug, msg, TraceID(ctx), fields...)
}

func (l *StructuredLogger) InfoContext(ctx context.Context, msg string, fields ...interface{}) {
	l.log(LevelInfo, msg, TraceID(ctx), fields...)
}

func (l *StructuredLogger) WarnContext(ctx context.Context, msg string, fields ...interface{}) {
	l.log(LevelWarn, msg, TraceID(ctx), fields...)
}

func (l *StructuredLogger) ErrorContext(ctx context.Context, msg string, fields ...interface{}) {
	l.log(LevelError, msg, TraceID(ctx), fields...)
}

func (l *StructuredLogger) log(level Level, msg, contextTraceID string, fields ...interface{}) {
	if level < l.level {
		return
	}

	traceID := l.traceID
	if contextTraceID != "" {
		traceID = contextTraceID
	}

	var fieldMap map[string]interface{}
	if len(fields) > 0 {
		fieldMap = make(map[string]interface{}, len(fields)/2)
		for i := 0; i < len(fields); i += 2 {
			key := fmt.Sprintf("%v", fields[i])
			if i+1 < len(fields) {
				fieldMap[key] = fields[i+1]
			} else {
				fieldMap[key] = "(missing)"
			}
		}
	}

	e := entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   msg,
		TraceID:   traceID,
		Component: l.component,
		Fields:    fieldMap,
	}

	if l.useJSON {
		data, err := json.Marshal(e)
		if err != nil {
			fmt.Fprintf(l.out, "log marshal failed: %v\n", err)
			return
		}
		fmt.Fprintln(l.out, string(data))
		return
	}

	parts := []string{e.Timestamp, fmt.Sprintf("[%s]", e.Level)}
	if e.TraceID != "" {
		short := e.TraceID
		if len(short) > 8 {
			short = short[:8]
		}
		parts = append(parts, "trace:"+short)
	}
	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}
	parts = append(parts, e.Message)
	for k, v := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	fmt.Fprintln(l.out, strings.Join(parts, " "))
}

// NewTraceID generates a fresh trace ID for an incoming request.
func NewTraceID() string {
	return uuid.New().String()
}

// WithTrace stores a trace ID in the context, generating one when empty.
func WithTrace(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		traceID = NewTraceID()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// TraceID extracts the trace ID from the context, if any.
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}
