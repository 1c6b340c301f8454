package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"picturemission/internal/devtools"
	"picturemission/internal/progress"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// Dev server only listens on localhost.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const streamWriteTimeout = 2 * time.Second

// progressEvent is pushed to /__dev/progress subscribers.
type progressEvent struct {
	Type       string            `json:"type"`
	Screen     string            `json:"screen"`
	NextID     int               `json:"next_mission_id"`
	FinalReady bool              `json:"final_ready"`
	Document   progress.Document `json:"document"`
}

func (a *App) setDevState(state, demo string) {
	a.devMu.Lock()
	defer a.devMu.Unlock()
	a.devState.State = state
	a.devState.Demo = demo
	a.devState.Rendered = true
	a.devState.Pending = false
	a.devState.Error = ""
	a.devState.RenderSeq++
}

func (a *App) setDevPending(state, demo string) {
	a.devMu.Lock()
	defer a.devMu.Unlock()
	a.devState.State = state
	a.devState.Demo = demo
	a.devState.Rendered = false
	a.devState.Pending = true
	a.devState.Error = ""
	a.devState.RenderSeq++
}

func (a *App) setDevError(state, demo, errText string) {
	a.devMu.Lock()
	defer a.devMu.Unlock()
	a.devState.State = state
	a.devState.Demo = demo
	a.devState.Rendered = false
	a.devState.Pending = false
	a.devState.Error = errText
	a.devState.RenderSeq++
}

func (a *App) getDevState() map[string]any {
	a.devMu.Lock()
	defer a.devMu.Unlock()
	return map[string]any{
		"ok":         true,
		"state":      a.devState.State,
		"demo":       a.devState.Demo,
		"render_seq": a.devState.RenderSeq,
		"rendered":   a.devState.Rendered,
		"pending":    a.devState.Pending,
		"error":      a.devState.Error,
		"screen":     a.currentScreen().String(),
	}
}

// runDemoScenario seeds the named scenario and switches to its screen.
// Concurrent requests are applied one at a time.
func (a *App) runDemoScenario(ctx context.Context, requested string) (string, error) {
	resolved := a.demo.Resolve(requested).Name
	a.logger.Info("dev.demo.dispatch.begin", map[string]any{"requested": requested, "resolved": resolved})
	a.setDevPending(resolved, requested)

	a.demoMu.Lock()
	defer a.demoMu.Unlock()

	if err := a.applyDemoScenario(ctx, requested); err != nil {
		a.logger.Error("dev.demo.dispatch.apply_failed", map[string]any{"requested": requested, "resolved": resolved, "error": err.Error()})
		a.setDevError(resolved, requested, err.Error())
		return resolved, err
	}
	a.view.RequestDraw()
	a.logger.Info("dev.demo.dispatch.done", map[string]any{"requested": requested, "resolved": resolved})
	a.setDevState(resolved, resolved)
	return resolved, nil
}

func (a *App) applyDemoScenario(ctx context.Context, requested string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sc := a.demo.Resolve(requested)
	a.abandonActive(ctx)
	doc := a.keeper.Restore(ctx, a.demo.Seed(sc, a.cat))
	a.mu.Lock()
	a.lastRes = progress.OutcomeResult{}
	a.mu.Unlock()
	a.view.SetResetConfirmOpen(false)
	a.view.SetInfo("", "", false)

	switch sc.Screen {
	case devtools.ScreenWelcome:
		a.showWelcome()
	case devtools.ScreenFinal:
		if !a.tracker.FinalRevealReady() {
			return fmt.Errorf("scenario %s did not complete the puzzle", sc.Name)
		}
		a.showFinal()
	case devtools.ScreenPrizes:
		if !a.cat.PrizesEnabled() {
			a.showFinal()
			return nil
		}
		a.showPrizes("")
	default:
		a.showHub()
	}
	a.logger.Info("dev.demo.applied", map[string]any{
		"scenario":  sc.Name,
		"completed": len(doc.CompletedMissionIDs),
		"placed":    len(doc.PlacedPieces),
	})
	return nil
}

func (a *App) startDevHTTP() error {
	if strings.TrimSpace(a.cfg.DevHTTP) == "" {
		return fmt.Errorf("dev http address is empty")
	}
	a.devServer = &http.Server{Addr: a.cfg.DevHTTP, Handler: a.devHandler()}
	a.setDevState(a.currentScreen().String(), a.cfg.DemoScenario)
	go func() {
		if err := a.devServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("dev_http.listen_failed", map[string]any{"error": err.Error(), "addr": a.cfg.DevHTTP})
		}
	}()
	a.logger.Info("dev_http.listening", map[string]any{"addr": a.cfg.DevHTTP})
	return nil
}

func (a *App) devHandler() http.Handler {
	a.keeper.Subscribe(a.broadcastProgress)

	mux := http.NewServeMux()
	mux.HandleFunc("/__dev/ready", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a.getDevState())
	})
	mux.HandleFunc("/__dev/demo", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		var req struct {
			Demo string `json:"demo"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "invalid json"})
			return
		}
		req.Demo = strings.TrimSpace(req.Demo)
		if req.Demo == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "demo is required"})
			return
		}
		a.logger.Info("dev.demo.request", map[string]any{"demo": req.Demo})

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		resolved, err := a.runDemoScenario(ctx, req.Demo)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": err.Error(), "state": resolved})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "state": resolved, "requested": req.Demo})
	})
	mux.HandleFunc("/__dev/scenarios", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "scenarios": a.demo.Names()})
	})
	mux.HandleFunc("/__dev/progress", a.serveProgressStream)
	return mux
}

// serveProgressStream upgrades to a websocket, sends the current snapshot and
// then one event per persisted change until the client goes away.
func (a *App) serveProgressStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("dev_ws.upgrade_failed", map[string]any{"error": err.Error()})
		return
	}
	writeMu := &sync.Mutex{}
	a.wsMu.Lock()
	a.wsClients[conn] = writeMu
	a.wsMu.Unlock()
	a.logger.Info("dev_ws.connected", map[string]any{"remote": r.RemoteAddr})

	if err := a.writeEvent(conn, writeMu, a.progressEvent(a.keeper.Snapshot())); err != nil {
		a.dropStream(conn)
		return
	}

	// Drain reads so close frames are noticed.
	go func() {
		defer a.dropStream(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (a *App) broadcastProgress(doc progress.Document) {
	a.wsMu.Lock()
	clients := make(map[*websocket.Conn]*sync.Mutex, len(a.wsClients))
	for c, mu := range a.wsClients {
		clients[c] = mu
	}
	a.wsMu.Unlock()
	if len(clients) == 0 {
		return
	}

	ev := a.progressEvent(doc)
	for c, mu := range clients {
		if err := a.writeEvent(c, mu, ev); err != nil {
			a.logger.Warn("dev_ws.write_failed", map[string]any{"error": err.Error()})
			a.dropStream(c)
		}
	}
}

func (a *App) progressEvent(doc progress.Document) progressEvent {
	next, _ := a.missions.NextEligibleMissionID()
	return progressEvent{
		Type:       "progress",
		Screen:     a.currentScreen().String(),
		NextID:     next,
		FinalReady: a.tracker.FinalRevealReady(),
		Document:   doc,
	}
}

func (a *App) writeEvent(conn *websocket.Conn, mu *sync.Mutex, ev progressEvent) error {
	mu.Lock()
	defer mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(ev)
}

func (a *App) dropStream(conn *websocket.Conn) {
	a.wsMu.Lock()
	_, ok := a.wsClients[conn]
	delete(a.wsClients, conn)
	a.wsMu.Unlock()
	if ok {
		_ = conn.Close()
	}
}

func (a *App) closeStreams() {
	a.wsMu.Lock()
	clients := a.wsClients
	a.wsClients = map[*websocket.Conn]*sync.Mutex{}
	a.wsMu.Unlock()
	for c := range clients {
		_ = c.Close()
	}
}
