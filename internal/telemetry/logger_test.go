package telemetry

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func decodeLines(t *testing.T, raw []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line is not json: %q", sc.Text())
		}
		out = append(out, m)
	}
	return out
}

func TestJSONLoggerWritesLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)
	l.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	session := l.With(map[string]any{"session_id": "s-1"})

	session.Info("mission.start", map[string]any{"mission": 3})
	session.Warn("state.save_failed", map[string]any{"error": errors.New("disk full")})
	l.Error("app.crash", map[string]any{"score": math.NaN()})

	lines := decodeLines(t, buf.Bytes())
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0]["level"] != "info" || lines[0]["msg"] != "mission.start" || lines[0]["session_id"] != "s-1" {
		t.Fatalf("unexpected first line: %v", lines[0])
	}
	if lines[0]["ts"] != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected timestamp: %v", lines[0]["ts"])
	}
	if lines[1]["level"] != "warn" || lines[1]["error"] != "disk full" {
		t.Fatalf("unexpected warn line: %v", lines[1])
	}
	if _, ok := lines[2]["session_id"]; ok {
		t.Fatalf("parent logger must not inherit child fields")
	}
	if lines[2]["score"] != "NaN" {
		t.Fatalf("expected NaN sanitised, got %v", lines[2]["score"])
	}
}

func TestJSONLoggerAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.jsonl")
	for i := 0; i < 2; i++ {
		l, err := NewJSONLogger(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		l.Info("app.start", nil)
		if err := l.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(decodeLines(t, raw)); got != 2 {
		t.Fatalf("expected entries from both runs, got %d", got)
	}
}

func TestJSONLoggerDiscardAndNil(t *testing.T) {
	l, err := NewJSONLogger("")
	if err != nil {
		t.Fatal(err)
	}
	l.Info("ignored", nil)
	var nilLogger *JSONLogger
	nilLogger.Info("ignored", nil)
	if err := nilLogger.Close(); err != nil {
		t.Fatal(err)
	}
}
