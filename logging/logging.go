// Package logging provides real-time structured log output for the jobtalk
// service. Output is line-oriented key=value text intended for console
// monitoring, not machine ingestion.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger provides structured logging to stdout.
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
	sessionID string
}

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// New creates a new Logger.
func New() *Logger {
	return &Logger{
		output:   os.Stdout,
		minLevel: LevelInfo,
	}
}

// WithComponent returns a new logger with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
		sessionID: l.sessionID,
	}
}

// WithSession returns a new logger scoped to a chat session.
func (l *Logger) WithSession(sessionID string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: l.component,
		sessionID: sessionID,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats a map of fields as key=value pairs.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	var parts []string
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry in traditional format: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		f := fields[0]
		if l.sessionID != "" {
			merged := make(map[string]interface{}, len(f)+1)
			for k, v := range f {
				merged[k] = v
			}
			merged["session"] = l.sessionID
			f = merged
		}
		fieldStr = formatFields(f)
	} else if l.sessionID != "" {
		fieldStr = formatFields(map[string]interface{}{"session": l.sessionID})
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Pipeline event helpers ---
// Convenience methods for the events the chat pipeline emits per turn.

// ChatTurn logs a completed chat turn.
func (l *Logger) ChatTurn(sessionID string, duration time.Duration, degraded bool) {
	l.Info("chat_turn", map[string]interface{}{
		"session":  sessionID,
		"duration": duration.String(),
		"degraded": degraded,
	})
}

// BootstrapDone logs a completed session bootstrap.
func (l *Logger) BootstrapDone(sessionID string, chunks, upserted int, duration time.Duration) {
	l.Info("bootstrap_done", map[string]interface{}{
		"session":  sessionID,
		"chunks":   chunks,
		"upserted": upserted,
		"duration": duration.String(),
	})
}

// BootstrapFailed logs a failed session bootstrap. The turn still proceeds
// with empty context, so this is a warning rather than an error.
func (l *Logger) BootstrapFailed(sessionID string, err error) {
	l.Warn("bootstrap_failed", map[string]interface{}{
		"session": sessionID,
		"error":   err.Error(),
	})
}

// RetrievalDegraded logs a retrieval failure that degraded the turn to
// empty context.
func (l *Logger) RetrievalDegraded(sessionID string, err error) {
	l.Warn("retrieval_degraded", map[string]interface{}{
		"session": sessionID,
		"error":   err.Error(),
	})
}

// AnalyzeDone logs a completed match analysis.
func (l *Logger) AnalyzeDone(match int, fallback bool, duration time.Duration) {
	l.Info("analyze_done", map[string]interface{}{
		"match":    match,
		"fallback": fallback,
		"duration": duration.String(),
	})
}

// UploadDone logs a completed upload extraction.
func (l *Logger) UploadDone(filename string, textLen, chunks int) {
	l.Info("upload_done", map[string]interface{}{
		"file":   filename,
		"chars":  textLen,
		"chunks": chunks,
	})
}

// HTTPError logs an error surfaced to an API client.
func (l *Logger) HTTPError(route string, status int, err error) {
	fields := map[string]interface{}{
		"route":  route,
		"status": status,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	if status >= 500 {
		l.Error("http_error", fields)
	} else {
		l.Warn("http_error", fields)
	}
}
