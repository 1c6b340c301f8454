package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONLogger writes one JSON object per line. Loggers derived with With share
// the underlying writer.
type JSONLogger struct {
	out  *sink
	base map[string]any
	now  func() time.Time
}

type sink struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// NewJSONLogger appends to path, creating parent directories. An empty path
// discards every entry.
func NewJSONLogger(path string) (*JSONLogger, error) {
	if path == "" {
		return NewWriterLogger(io.Discard), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	return &JSONLogger{out: &sink{w: f}, now: time.Now}, nil
}

// NewWriterLogger logs to w; Close does not close w.
func NewWriterLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{out: &sink{w: nopCloser{Writer: w}}, now: time.Now}
}

// With returns a logger that adds fields to every entry.
func (l *JSONLogger) With(fields map[string]any) *JSONLogger {
	if l == nil {
		return nil
	}
	base := make(map[string]any, len(l.base)+len(fields))
	for k, v := range l.base {
		base[k] = v
	}
	for k, v := range fields {
		base[k] = v
	}
	return &JSONLogger{out: l.out, base: base, now: l.now}
}

func (l *JSONLogger) Info(msg string, fields map[string]any) {
	l.log("info", msg, fields)
}

func (l *JSONLogger) Warn(msg string, fields map[string]any) {
	l.log("warn", msg, fields)
}

func (l *JSONLogger) Error(msg string, fields map[string]any) {
	l.log("error", msg, fields)
}

func (l *JSONLogger) log(level, msg string, fields map[string]any) {
	if l == nil || l.out == nil {
		return
	}
	entry := make(map[string]any, len(l.base)+len(fields)+3)
	for k, v := range l.base {
		entry[k] = v
	}
	for k, v := range fields {
		entry[k] = sanitize(v)
	}
	entry["ts"] = l.now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level
	entry["msg"] = msg
	b, err := json.Marshal(entry)
	if err != nil {
		b, _ = json.Marshal(map[string]any{"ts": entry["ts"], "level": level, "msg": msg, "log_error": err.Error()})
	}
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	_, _ = l.out.w.Write(append(b, '\n'))
}

// sanitize replaces values encoding/json rejects.
func sanitize(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Sprint(x)
		}
	case error:
		return x.Error()
	}
	return v
}

func (l *JSONLogger) Close() error {
	if l == nil || l.out == nil {
		return nil
	}
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	return l.out.w.Close()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
