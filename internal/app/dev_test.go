package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"picturemission/internal/ui"
)

func TestDevDemoEndpointSeedsScenario(t *testing.T) {
	a, view := newTestApp(t, nil)
	srv := httptest.NewServer(a.devHandler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/__dev/demo", "application/json", strings.NewReader(`{"demo":"midway"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || body["ok"] != true || body["state"] != "midway" {
		t.Fatalf("unexpected response %d %v", resp.StatusCode, body)
	}
	if view.currentScreen() != ui.ScreenHub {
		t.Fatalf("expected hub, got %s", view.currentScreen())
	}
	if got := len(a.keeper.Snapshot().CompletedMissionIDs); got != 4 {
		t.Fatalf("expected 4 completed missions, got %d", got)
	}

	ready, err := http.Get(srv.URL + "/__dev/ready")
	if err != nil {
		t.Fatalf("ready: %v", err)
	}
	defer ready.Body.Close()
	var st map[string]any
	if err := json.NewDecoder(ready.Body).Decode(&st); err != nil {
		t.Fatalf("decode ready: %v", err)
	}
	if st["state"] != "midway" || st["rendered"] != true || st["screen"] != "hub" {
		t.Fatalf("unexpected dev state %v", st)
	}
}

func TestDevDemoEndpointRejectsBadRequests(t *testing.T) {
	a, _ := newTestApp(t, nil)
	srv := httptest.NewServer(a.devHandler())
	defer srv.Close()

	cases := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{`},
		{name: "missing demo", body: `{"demo":"  "}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/__dev/demo", "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}

	resp, err := http.Get(srv.URL + "/__dev/demo")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestDevProgressStreamPushesChanges(t *testing.T) {
	a, _ := newTestApp(t, nil)
	srv := httptest.NewServer(a.devHandler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/__dev/progress"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first progressEvent
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if first.Type != "progress" || first.NextID != 1 || len(first.Document.CompletedMissionIDs) != 0 {
		t.Fatalf("unexpected snapshot %+v", first)
	}

	a.OnStartMission(1)
	a.OnGameKey(enter())

	var next progressEvent
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if len(next.Document.CompletedMissionIDs) != 1 || next.NextID != 2 {
		t.Fatalf("unexpected update %+v", next)
	}

	a.Close()
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected stream closed after app close")
	}
}

func TestRunDemoScenarioHonoursCancelledContext(t *testing.T) {
	a, _ := newTestApp(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.runDemoScenario(ctx, "midway"); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
	if st := a.getDevState(); st["error"] == "" || st["pending"] != false {
		t.Fatalf("expected error dev state, got %v", st)
	}
}
