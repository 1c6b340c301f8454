package ui

import (
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"

	"picturemission/internal/minigame"
)

type mockController struct {
	mu       sync.Mutex
	calls    []string
	started  []int
	placed   [][2]int
	toggled  []int
	keys     []minigame.Key
	photoRef string
}

func (m *mockController) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockController) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (m *mockController) OnStart() { m.record("start") }
func (m *mockController) OnSubmitPhoto(ref string) {
	m.mu.Lock()
	m.photoRef = ref
	m.mu.Unlock()
	m.record("photo")
}
func (m *mockController) OnBack() { m.record("back") }
func (m *mockController) OnStartMission(id int) {
	m.mu.Lock()
	m.started = append(m.started, id)
	m.mu.Unlock()
	m.record("mission")
}
func (m *mockController) OnGameKey(k minigame.Key) {
	m.mu.Lock()
	m.keys = append(m.keys, k)
	m.mu.Unlock()
	m.record("key")
}
func (m *mockController) OnAbandonMission() { m.record("abandon") }
func (m *mockController) OnContinue()       { m.record("continue") }
func (m *mockController) OnPlacePiece(piece, slot int) {
	m.mu.Lock()
	m.placed = append(m.placed, [2]int{piece, slot})
	m.mu.Unlock()
	m.record("place")
}
func (m *mockController) OnOpenFinal()  { m.record("final") }
func (m *mockController) OnOpenPrizes() { m.record("prizes") }
func (m *mockController) OnTogglePrize(id int) {
	m.mu.Lock()
	m.toggled = append(m.toggled, id)
	m.mu.Unlock()
	m.record("toggle")
}
func (m *mockController) OnConfirmPrizes()  { m.record("confirm") }
func (m *mockController) OnReset()          { m.record("reset") }
func (m *mockController) OnQuit()           { m.record("quit") }
func (m *mockController) OnResize(int, int) {}

func press(v *Root, code rune, mod tea.KeyMod, text string) {
	_, _ = v.Update(tea.KeyPressMsg{Code: code, Mod: mod, Text: text})
}

func waitFor(t *testing.T, ctrl *mockController, name string, want int) {
	t.Helper()
	deadline := time.Now().Add(300 * time.Millisecond)
	for ctrl.count(name) < want && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := ctrl.count(name); got != want {
		t.Fatalf("expected %d %q calls, got %d", want, name, got)
	}
}

func newRoot(screen Screen) (*Root, *mockController) {
	v := New(Options{MotionLevel: "off"})
	ctrl := &mockController{}
	v.SetController(ctrl)
	v.SetScreen(screen)
	return v, ctrl
}

func sampleHub() HubState {
	return HubState{
		Title:       "Picture Mission",
		ChildName:   "Ava",
		GridSize:    3,
		TotalPieces: 9,
		Slots:       []int{1, 0, 0, 0, 0, 0, 0, 0, 0},
		Bank:        []int{2, 3},
		Missions: []MissionRow{
			{ID: 1, Name: "Tap Targets", State: "completed", Score: 85, Playable: true},
			{ID: 2, Name: "Memory", State: "completed", Score: 100, Playable: true},
			{ID: 3, Name: "Reaction", State: "available", Playable: true},
			{ID: 4, Name: "Sliding", State: "locked", Playable: true},
		},
		TotalPoints: 185,
		Completed:   2,
	}
}

func TestCtrlQQuitsFromAnyScreen(t *testing.T) {
	for _, screen := range []Screen{ScreenWelcome, ScreenHub, ScreenGame, ScreenPrizes} {
		v, ctrl := newRoot(screen)
		press(v, 'q', tea.ModCtrl, "")
		waitFor(t, ctrl, "quit", 1)
	}
}

func TestWelcomeEnterStarts(t *testing.T) {
	v, ctrl := newRoot(ScreenWelcome)
	press(v, tea.KeyEnter, 0, "")
	waitFor(t, ctrl, "start", 1)
}

func TestSetupTypingAndSubmit(t *testing.T) {
	v, ctrl := newRoot(ScreenSetup)
	for _, r := range "us.pngx" {
		press(v, r, 0, string(r))
	}
	press(v, tea.KeyBackspace, 0, "")
	_, _ = v.Update(tea.PasteMsg{Content: "\n"})
	press(v, tea.KeyEnter, 0, "")
	waitFor(t, ctrl, "photo", 1)
	if ctrl.photoRef != "us.png" {
		t.Fatalf("unexpected photo ref %q", ctrl.photoRef)
	}
}

func TestSetupEmptyInputFlashesInsteadOfSubmitting(t *testing.T) {
	v, ctrl := newRoot(ScreenSetup)
	press(v, tea.KeyEnter, 0, "")
	time.Sleep(20 * time.Millisecond)
	if ctrl.count("photo") != 0 {
		t.Fatalf("empty photo must not be submitted")
	}
	if v.statusFlash == "" {
		t.Fatalf("expected a status hint")
	}
}

func TestHubEnterStartsAvailableMission(t *testing.T) {
	v, ctrl := newRoot(ScreenHub)
	v.SetHub(sampleHub())
	if v.missionIndex != 2 {
		t.Fatalf("cursor should start on the available mission, got %d", v.missionIndex)
	}
	press(v, tea.KeyEnter, 0, "")
	waitFor(t, ctrl, "mission", 1)
	if ctrl.started[0] != 3 {
		t.Fatalf("started mission %d", ctrl.started[0])
	}

	press(v, tea.KeyDown, 0, "")
	press(v, tea.KeyEnter, 0, "")
	time.Sleep(20 * time.Millisecond)
	if ctrl.count("mission") != 1 {
		t.Fatalf("locked mission must not start")
	}
	if !strings.Contains(v.statusFlash, "locked") {
		t.Fatalf("expected locked flash, got %q", v.statusFlash)
	}
}

func TestHubPlacementUsesBankAndSlot(t *testing.T) {
	v, ctrl := newRoot(ScreenHub)
	v.SetHub(sampleHub())
	press(v, tea.KeyTab, 0, "")
	press(v, tea.KeyRight, 0, "")
	press(v, '3', 0, "3")
	press(v, tea.KeyEnter, 0, "")
	waitFor(t, ctrl, "place", 1)
	if got := ctrl.placed[0]; got != [2]int{3, 3} {
		t.Fatalf("expected piece 3 into slot 3, got %v", got)
	}
}

func TestHubPlacementWithEmptyBank(t *testing.T) {
	v, ctrl := newRoot(ScreenHub)
	hub := sampleHub()
	hub.Bank = nil
	v.SetHub(hub)
	press(v, tea.KeyTab, 0, "")
	press(v, tea.KeyEnter, 0, "")
	time.Sleep(20 * time.Millisecond)
	if ctrl.count("place") != 0 || v.statusFlash == "" {
		t.Fatalf("expected a flash and no placement")
	}
}

func TestCtrlROpensResetConfirmWithoutImmediateReset(t *testing.T) {
	v, ctrl := newRoot(ScreenHub)
	v.SetHub(sampleHub())
	press(v, 'r', tea.ModCtrl, "")
	if !v.resetOpen {
		t.Fatalf("expected reset confirm to be open")
	}
	press(v, tea.KeyEnter, 0, "")
	time.Sleep(20 * time.Millisecond)
	if ctrl.count("reset") != 0 || v.resetOpen {
		t.Fatalf("Enter on Cancel must close without resetting")
	}

	press(v, 'r', tea.ModCtrl, "")
	press(v, tea.KeyRight, 0, "")
	press(v, tea.KeyEnter, 0, "")
	waitFor(t, ctrl, "reset", 1)
}

func TestGameForwardsKeysAndEscAbandons(t *testing.T) {
	v, ctrl := newRoot(ScreenGame)
	v.SetGame(GameState{MissionID: 1, MissionName: "Tap Targets", Frame: minigame.Frame{Status: "Tapped 0/10"}})
	press(v, '5', 0, "5")
	press(v, tea.KeyF5, 0, "")
	waitFor(t, ctrl, "key", 1)
	if ctrl.keys[0] != minigame.Rune('5') {
		t.Fatalf("unexpected key %+v", ctrl.keys[0])
	}
	press(v, tea.KeyEsc, 0, "")
	waitFor(t, ctrl, "abandon", 1)
}

func TestPrizesToggleAndConfirmGate(t *testing.T) {
	v, ctrl := newRoot(ScreenPrizes)
	v.SetPrizes(PrizesState{
		Prizes:    []PrizeRow{{ID: 1, Name: "Nintendo", Cost: 150}, {ID: 5, Name: "Book", Cost: 0, Affordable: true}},
		Budget:    100,
		Remaining: 100,
		PicksLeft: 3,
		MaxPicks:  3,
	})
	press(v, 'c', 0, "c")
	time.Sleep(20 * time.Millisecond)
	if ctrl.count("confirm") != 0 {
		t.Fatalf("confirm must be gated on a selection")
	}
	press(v, tea.KeyDown, 0, "")
	press(v, tea.KeySpace, 0, " ")
	waitFor(t, ctrl, "toggle", 1)
	if ctrl.toggled[0] != 5 {
		t.Fatalf("toggled %d", ctrl.toggled[0])
	}
	v.SetPrizes(PrizesState{Prizes: v.prizes.Prizes, CanConfirm: true})
	press(v, 'c', 0, "c")
	waitFor(t, ctrl, "confirm", 1)
}

func TestFinalOpensPrizesOnceRevealed(t *testing.T) {
	v, ctrl := newRoot(ScreenFinal)
	v.SetFinal(FinalState{GridSize: 3, Message: "I love you!", PrizesOn: true})
	if v.revealPos != 1 {
		t.Fatalf("motion off must reveal immediately")
	}
	press(v, tea.KeyEnter, 0, "")
	waitFor(t, ctrl, "prizes", 1)
}

func TestCompleteEnterContinues(t *testing.T) {
	v, ctrl := newRoot(ScreenComplete)
	press(v, tea.KeyEnter, 0, "")
	waitFor(t, ctrl, "continue", 1)
}

func TestViewRendersEveryScreen(t *testing.T) {
	v, _ := newRoot(ScreenWelcome)
	v.ascii = true
	_, _ = v.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	v.SetWelcome(WelcomeState{ChildName: "Ava", TotalPieces: 9})
	v.SetHub(sampleHub())
	v.SetGame(GameState{MissionID: 3, MissionName: "Reaction", Frame: minigame.Frame{Title: "Reaction", Status: "Wait for green", Lines: []string{"( )"}}})
	v.SetComplete(CompleteState{PieceID: 3, Score: 90, TotalPoints: 275, Message: "Proud of you"})
	v.SetFinal(FinalState{GridSize: 3, Message: "All done"})
	v.SetPrizes(PrizesState{Prizes: []PrizeRow{{ID: 1, Name: "Nintendo", Cost: 150}}})

	want := map[Screen]string{
		ScreenWelcome:  "Hi Ava!",
		ScreenSetup:    "Photo:",
		ScreenHub:      "Tap Targets",
		ScreenGame:     "Wait for green",
		ScreenComplete: "puzzle piece #3",
		ScreenFinal:    "You did it",
		ScreenPrizes:   "Nintendo",
	}
	for screen, text := range want {
		v.SetScreen(screen)
		out := ansi.Strip(v.render())
		if !strings.Contains(out, text) {
			t.Fatalf("%s screen missing %q:\n%s", screen, text, out)
		}
	}
}

func TestViewTooSmall(t *testing.T) {
	v, _ := newRoot(ScreenHub)
	_, _ = v.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	if out := ansi.Strip(v.render()); !strings.Contains(out, "Terminal too small") {
		t.Fatalf("expected resize prompt, got:\n%s", out)
	}
}

func TestResetOverlayRendersOnTop(t *testing.T) {
	v, _ := newRoot(ScreenHub)
	v.SetHub(sampleHub())
	v.SetResetConfirmOpen(true)
	if out := v.renderOverlay(); !strings.Contains(ansi.Strip(out), "Start over?") {
		t.Fatalf("expected reset dialog in view")
	}
}
