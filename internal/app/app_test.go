package app

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"picturemission/internal/catalog"
	"picturemission/internal/minigame"
	"picturemission/internal/state"
	"picturemission/internal/ui"
)

type fakeView struct {
	mu        sync.Mutex
	ctrl      ui.Controller
	screen    ui.Screen
	welcome   ui.WelcomeState
	setup     ui.SetupState
	hub       ui.HubState
	game      ui.GameState
	complete  ui.CompleteState
	final     ui.FinalState
	prizes    ui.PrizesState
	flashes   []string
	infoOpen  bool
	infoTitle string
	infoCount int
	stopped   bool
	draws     int
}

func (v *fakeView) Run() error { return nil }
func (v *fakeView) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopped = true
}
func (v *fakeView) SetController(c ui.Controller) { v.ctrl = c }
func (v *fakeView) SetScreen(s ui.Screen) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.screen = s
}
func (v *fakeView) SetWelcome(s ui.WelcomeState) { v.mu.Lock(); v.welcome = s; v.mu.Unlock() }
func (v *fakeView) SetSetup(s ui.SetupState)     { v.mu.Lock(); v.setup = s; v.mu.Unlock() }
func (v *fakeView) SetHub(s ui.HubState)         { v.mu.Lock(); v.hub = s; v.mu.Unlock() }
func (v *fakeView) SetGame(s ui.GameState)       { v.mu.Lock(); v.game = s; v.mu.Unlock() }
func (v *fakeView) SetComplete(s ui.CompleteState) {
	v.mu.Lock()
	v.complete = s
	v.mu.Unlock()
}
func (v *fakeView) SetFinal(s ui.FinalState)   { v.mu.Lock(); v.final = s; v.mu.Unlock() }
func (v *fakeView) SetPrizes(s ui.PrizesState) { v.mu.Lock(); v.prizes = s; v.mu.Unlock() }
func (v *fakeView) SetLoading(bool)            {}
func (v *fakeView) SetResetConfirmOpen(bool)   {}
func (v *fakeView) SetInfo(title, _ string, open bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.infoOpen, v.infoTitle = open, title
	if open {
		v.infoCount++
	}
}
func (v *fakeView) FlashStatus(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.flashes = append(v.flashes, msg)
}
func (v *fakeView) RequestDraw() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.draws++
}

func (v *fakeView) currentScreen() ui.Screen {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.screen
}

func (v *fakeView) lastFlash() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.flashes) == 0 {
		return ""
	}
	return v.flashes[len(v.flashes)-1]
}

// instantGame wins on Enter and gives up on 'x'.
type instantGame struct {
	mu      sync.Mutex
	done    minigame.Completion
	cleaned bool
	over    bool
}

func (g *instantGame) Start() {}
func (g *instantGame) HandleKey(k minigame.Key) {
	g.mu.Lock()
	if g.over || g.cleaned {
		g.mu.Unlock()
		return
	}
	var out minigame.Outcome
	switch {
	case k.Code == minigame.KeyEnter:
		out = minigame.Outcome{Success: true, Score: 80, HasScore: true}
	case k.Code == minigame.KeyRune && k.Rune == 'x':
		out = minigame.Outcome{}
	default:
		g.mu.Unlock()
		return
	}
	g.over = true
	g.mu.Unlock()
	g.done(out)
}
func (g *instantGame) View() minigame.Frame { return minigame.Frame{Title: "instant"} }
func (g *instantGame) Cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cleaned = true
}

func testCatalog() catalog.Catalog {
	cat := catalog.Default()
	for i := range cat.Missions {
		cat.Missions[i].Capability = "instant"
		cat.Missions[i].Playable = true
	}
	return cat
}

func testRegistry() *minigame.Registry {
	reg := minigame.NewRegistry()
	reg.Register("instant", func(_ minigame.Env, done minigame.Completion) minigame.Game {
		return &instantGame{done: done}
	})
	return reg
}

func newTestApp(t *testing.T, history state.Store) (*App, *fakeView) {
	t.Helper()
	var kv state.KV = state.NewMemory()
	if history != nil {
		kv = history
	}
	view := &fakeView{}
	a := newApp(DefaultConfig(), deps{
		kv:       kv,
		history:  history,
		catalog:  testCatalog(),
		registry: testRegistry(),
		view:     view,
		clock:    minigame.NewManualClock(time.Unix(0, 0)),
	})
	a.boot(context.Background())
	return a, view
}

func newSQLiteHistory(t *testing.T) state.Store {
	t.Helper()
	store, err := state.NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "family.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func enter() minigame.Key { return minigame.Key{Code: minigame.KeyEnter} }

func TestStartGoesThroughSetupToHub(t *testing.T) {
	a, view := newTestApp(t, nil)
	if view.currentScreen() != ui.ScreenWelcome {
		t.Fatalf("expected welcome on boot, got %s", view.currentScreen())
	}

	a.OnStart()
	if view.currentScreen() != ui.ScreenSetup {
		t.Fatalf("expected setup before photo chosen, got %s", view.currentScreen())
	}

	a.OnSubmitPhoto(writePNG(t, 300, 240))
	if view.currentScreen() != ui.ScreenHub {
		t.Fatalf("expected hub after setup, got %s", view.currentScreen())
	}
	doc := a.keeper.Snapshot()
	if !doc.SetupComplete || !doc.GameStarted || doc.PhotoReference == "" {
		t.Fatalf("setup not persisted: %+v", doc)
	}
	if !view.infoOpen || view.infoCount != 1 {
		t.Fatalf("expected preview overlay once, got open=%v count=%d", view.infoOpen, view.infoCount)
	}

	a.OnBack()
	a.OnStart()
	if view.currentScreen() != ui.ScreenHub || view.infoCount != 1 {
		t.Fatalf("preview should not repeat: screen=%s count=%d", view.currentScreen(), view.infoCount)
	}
}

func TestSubmitPhotoRejectsMissingFile(t *testing.T) {
	a, view := newTestApp(t, nil)
	a.OnStart()
	a.OnSubmitPhoto(filepath.Join(t.TempDir(), "nope.png"))

	if view.currentScreen() != ui.ScreenSetup {
		t.Fatalf("expected to stay on setup, got %s", view.currentScreen())
	}
	if view.setup.Error == "" {
		t.Fatalf("expected setup error")
	}
	if a.keeper.Snapshot().SetupComplete {
		t.Fatalf("setup must not complete on a bad photo")
	}
}

func TestMissionSuccessUnlocksPieceAndNextMission(t *testing.T) {
	a, view := newTestApp(t, nil)

	a.OnStartMission(1)
	if view.currentScreen() != ui.ScreenGame || view.game.MissionID != 1 {
		t.Fatalf("expected game for mission 1, got %s %+v", view.currentScreen(), view.game)
	}

	a.OnGameKey(enter())
	if view.currentScreen() != ui.ScreenComplete {
		t.Fatalf("expected completion screen, got %s", view.currentScreen())
	}
	if view.complete.PieceID != 1 || view.complete.Score != 80 || view.complete.Message == "" {
		t.Fatalf("unexpected completion: %+v", view.complete)
	}

	a.OnContinue()
	if view.currentScreen() != ui.ScreenHub {
		t.Fatalf("expected hub, got %s", view.currentScreen())
	}
	rows := view.hub.Missions
	if rows[0].State != "completed" || rows[1].State != "available" || rows[2].State != "locked" {
		t.Fatalf("unexpected mission states: %s %s %s", rows[0].State, rows[1].State, rows[2].State)
	}
	if len(view.hub.Bank) != 1 || view.hub.Bank[0] != 1 || view.hub.TotalPoints != 80 {
		t.Fatalf("unexpected hub: bank=%v points=%d", view.hub.Bank, view.hub.TotalPoints)
	}
}

func TestLockedMissionIsRejected(t *testing.T) {
	a, view := newTestApp(t, nil)
	a.OnStartMission(3)
	if view.currentScreen() != ui.ScreenWelcome {
		t.Fatalf("screen should not change, got %s", view.currentScreen())
	}
	if view.lastFlash() != "Finish the earlier missions first!" {
		t.Fatalf("unexpected flash %q", view.lastFlash())
	}
	if _, g := a.slot.Current(); g != nil {
		t.Fatalf("no game should be running")
	}
}

func TestFailureReturnsToHubWithoutProgress(t *testing.T) {
	history := newSQLiteHistory(t)
	a, view := newTestApp(t, history)

	a.OnStartMission(1)
	a.OnGameKey(minigame.Rune('x'))
	if view.currentScreen() != ui.ScreenHub {
		t.Fatalf("expected hub after failure, got %s", view.currentScreen())
	}
	if doc := a.keeper.Snapshot(); len(doc.CompletedMissionIDs) != 0 || doc.TotalPoints != 0 {
		t.Fatalf("failure must not change progress: %+v", doc)
	}
	sum, err := history.GetSummary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.MissionRuns != 1 || sum.Failures != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestAbandonCleansUpAndRecordsRun(t *testing.T) {
	history := newSQLiteHistory(t)
	a, view := newTestApp(t, history)

	a.OnStartMission(1)
	_, g := a.slot.Current()
	game := g.(*instantGame)

	a.OnAbandonMission()
	if !game.cleaned {
		t.Fatalf("abandon must clean up the game")
	}
	if view.currentScreen() != ui.ScreenHub {
		t.Fatalf("expected hub, got %s", view.currentScreen())
	}
	game.HandleKey(enter())
	if len(a.keeper.Snapshot().CompletedMissionIDs) != 0 {
		t.Fatalf("cleaned-up game must not record an outcome")
	}
	if view.hub.Stats.Abandons != 1 || view.hub.Stats.LastRun == "" {
		t.Fatalf("unexpected stats: %+v", view.hub.Stats)
	}
}

func TestPlacingEveryPieceOpensFinalOnce(t *testing.T) {
	a, view := newTestApp(t, nil)
	if _, err := a.runDemoScenario(context.Background(), "all_unlocked"); err != nil {
		t.Fatalf("demo: %v", err)
	}

	a.OnPlacePiece(1, 2)
	if view.lastFlash() != "That piece goes somewhere else. Try another spot!" {
		t.Fatalf("unexpected flash %q", view.lastFlash())
	}
	for piece := 1; piece <= a.cat.TotalPieces; piece++ {
		a.OnPlacePiece(piece, piece)
	}
	if view.currentScreen() != ui.ScreenFinal {
		t.Fatalf("expected final reveal, got %s", view.currentScreen())
	}
	if !a.keeper.Snapshot().FinalShown {
		t.Fatalf("final reveal should be remembered")
	}

	a.OnBack()
	a.OnPlacePiece(1, 1)
	if view.currentScreen() != ui.ScreenHub {
		t.Fatalf("final must not re-open automatically, got %s", view.currentScreen())
	}
	a.OnOpenFinal()
	if view.currentScreen() != ui.ScreenFinal {
		t.Fatalf("expected manual final, got %s", view.currentScreen())
	}
}

func TestPrizeSelectionAndConfirm(t *testing.T) {
	a, view := newTestApp(t, nil)
	a.OnOpenPrizes()
	if view.currentScreen() == ui.ScreenPrizes {
		t.Fatalf("prizes must wait for the final reveal")
	}

	if _, err := a.runDemoScenario(context.Background(), "puzzle_done"); err != nil {
		t.Fatalf("demo: %v", err)
	}
	a.OnOpenPrizes()
	if view.currentScreen() != ui.ScreenPrizes {
		t.Fatalf("expected prizes, got %s", view.currentScreen())
	}

	a.OnConfirmPrizes()
	if view.lastFlash() != "Pick at least one prize first" {
		t.Fatalf("unexpected flash %q", view.lastFlash())
	}

	cheapest := a.cat.Prizes[0]
	for _, p := range a.cat.Prizes {
		if p.Cost < cheapest.Cost {
			cheapest = p
		}
	}
	a.OnTogglePrize(cheapest.ID)
	if !view.prizes.CanConfirm || view.prizes.PicksLeft != a.cat.MaxPrizePicks-1 {
		t.Fatalf("unexpected prizes state: %+v", view.prizes)
	}

	a.OnConfirmPrizes()
	if !view.prizes.Confirmed || view.prizes.Summary == "" || !view.infoOpen {
		t.Fatalf("expected confirmation summary: %+v", view.prizes)
	}
	if !a.keeper.Snapshot().PrizesConfirmed {
		t.Fatalf("confirmation should persist")
	}
}

func TestPrizesDisabledByConfig(t *testing.T) {
	off := false
	cfg := DefaultConfig()
	cfg.EnablePrizes = &off
	view := &fakeView{}
	a := newApp(cfg, deps{kv: state.NewMemory(), catalog: testCatalog(), registry: testRegistry(), view: view})
	a.boot(context.Background())
	if _, err := a.runDemoScenario(context.Background(), "prizes_open"); err != nil {
		t.Fatalf("demo: %v", err)
	}
	if view.currentScreen() != ui.ScreenFinal || view.final.PrizesOn {
		t.Fatalf("expected final without prizes, got %s %+v", view.currentScreen(), view.final)
	}
	a.OnOpenPrizes()
	if view.lastFlash() != "Prizes are turned off" {
		t.Fatalf("unexpected flash %q", view.lastFlash())
	}
}

func TestResetClearsProgressAndHistory(t *testing.T) {
	history := newSQLiteHistory(t)
	a, view := newTestApp(t, history)
	a.OnStartMission(1)
	a.OnGameKey(enter())

	a.OnReset()
	if view.currentScreen() != ui.ScreenWelcome {
		t.Fatalf("expected welcome after reset, got %s", view.currentScreen())
	}
	doc := a.keeper.Snapshot()
	if len(doc.CompletedMissionIDs) != 0 || doc.SetupComplete {
		t.Fatalf("expected default document, got %+v", doc)
	}
	if _, ok, _ := history.Get(context.Background(), a.cfg.StateKey); ok {
		t.Fatalf("stored key should be deleted")
	}
	sum, err := history.GetSummary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.MissionRuns != 0 {
		t.Fatalf("expected runs cleared, got %+v", sum)
	}
}

func TestQuitStopsViewAndAbandonsGame(t *testing.T) {
	a, view := newTestApp(t, nil)
	a.OnStartMission(1)
	a.OnQuit()
	if !view.stopped {
		t.Fatalf("expected view stop")
	}
	if _, g := a.slot.Current(); g != nil {
		t.Fatalf("game should be cleared on quit")
	}
}

func TestProgressSurvivesRestart(t *testing.T) {
	history := newSQLiteHistory(t)
	a, _ := newTestApp(t, history)
	a.OnStartMission(1)
	a.OnGameKey(enter())

	b, view := newTestApp(t, history)
	b.showHub()
	if got := b.keeper.Snapshot().CompletedMissionIDs; len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected mission 1 restored, got %v", got)
	}
	if view.hub.Missions[1].State != "available" {
		t.Fatalf("expected mission 2 available after restart")
	}
}
