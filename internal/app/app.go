package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"picturemission/internal/catalog"
	"picturemission/internal/devtools"
	"picturemission/internal/minigame"
	"picturemission/internal/photo"
	"picturemission/internal/progress"
	"picturemission/internal/state"
	"picturemission/internal/telemetry"
	"picturemission/internal/ui"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type App struct {
	cfg Config

	logger *telemetry.JSONLogger
	kv     state.KV
	// history is nil when progress lives in memory.
	history  state.Store
	registry *minigame.Registry
	demo     devtools.Demo
	clock    minigame.Clock
	cat      catalog.Catalog

	keeper   *progress.Keeper
	missions *progress.Controller
	tracker  *progress.Tracker
	prizes   *progress.PrizeSelector

	view ui.View
	slot minigame.Slot

	sessionID string

	mu      sync.Mutex
	screen  ui.Screen
	active  *activeMission
	cols    int
	rows    int
	lastRes progress.OutcomeResult

	devMu     sync.Mutex
	devServer *http.Server
	demoMu    sync.Mutex
	devState  struct {
		State     string
		Demo      string
		RenderSeq int
		Rendered  bool
		Pending   bool
		Error     string
	}
	wsMu      sync.Mutex
	wsClients map[*websocket.Conn]*sync.Mutex
}

// activeMission is the mission whose mini-game currently owns the slot.
type activeMission struct {
	mission catalog.Mission
	game    minigame.Game
	runID   int64
}

// deps are the collaborators New builds from Config. Tests supply their own.
type deps struct {
	logger   *telemetry.JSONLogger
	kv       state.KV
	history  state.Store
	catalog  catalog.Catalog
	registry *minigame.Registry
	view     ui.View
	clock    minigame.Clock
}

func New(cfg Config) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	logger, err := telemetry.NewJSONLogger(cfg.LogPath)
	if err != nil {
		return nil, err
	}

	kv, history, err := openStores(context.Background(), cfg)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	closeAll := func() {
		if history != nil {
			_ = history.Close()
		}
		_ = logger.Close()
	}

	registry := minigame.DefaultRegistry()
	cat, err := catalog.NewLoader(registry, logger).Load(context.Background(), cfg.CatalogPath)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	view := ui.New(ui.Options{
		ASCIIOnly:    cfg.ASCIIOnly,
		Debug:        cfg.Debug,
		StyleVariant: cfg.UI.StyleVariant,
		MotionLevel:  cfg.UI.MotionLevel,
	})

	return newApp(cfg, deps{
		logger:   logger,
		kv:       kv,
		history:  history,
		catalog:  cat,
		registry: registry,
		view:     view,
		clock:    minigame.RealClock{},
	}), nil
}

// openStores returns the progress store and, unless running in memory, the
// sqlite mission history backing it.
func openStores(ctx context.Context, cfg Config) (state.KV, state.Store, error) {
	if cfg.Memory {
		return state.NewMemory(), nil, nil
	}
	store, err := state.NewSQLite(cfg.StatePath())
	if err != nil {
		return nil, nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, store, nil
}

func newApp(cfg Config, d deps) *App {
	if cfg.EnablePrizes != nil {
		enabled := *cfg.EnablePrizes
		d.catalog.EnablePrizes = &enabled
	}
	if d.logger == nil {
		d.logger = telemetry.NewWriterLogger(io.Discard)
	}
	if cfg.StateKey == "" {
		cfg.StateKey = progress.DefaultStateKey
	}
	keeper := progress.NewKeeper(d.kv, cfg.StateKey, d.catalog, d.logger)
	a := &App{
		cfg:       cfg,
		logger:    d.logger,
		kv:        d.kv,
		history:   d.history,
		registry:  d.registry,
		demo:      devtools.NewManager(),
		clock:     d.clock,
		cat:       d.catalog,
		keeper:    keeper,
		missions:  progress.NewController(keeper),
		tracker:   progress.NewTracker(keeper),
		prizes:    progress.NewPrizeSelector(keeper),
		view:      d.view,
		sessionID: uuid.NewString(),
		screen:    ui.ScreenWelcome,
		wsClients: map[*websocket.Conn]*sync.Mutex{},
	}
	a.view.SetController(a)
	return a
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("app.start", map[string]any{
		"session": a.sessionID,
		"catalog": firstNonEmpty(a.cat.Path, "built-in"),
		"memory":  a.history == nil,
	})
	for _, m := range a.cat.UnplayableMissions() {
		a.logger.Warn("mission.unplayable", map[string]any{"mission": m.ID, "capability": m.Capability})
	}

	a.boot(ctx)

	if a.cfg.Dev {
		if err := a.startDevHTTP(); err != nil {
			return err
		}
		if a.cfg.DemoScenario != "" {
			if _, err := a.runDemoScenario(context.Background(), a.cfg.DemoScenario); err != nil {
				a.logger.Error("dev.demo.initial_failed", map[string]any{"demo": a.cfg.DemoScenario, "error": err.Error()})
			}
		} else {
			a.setDevState(a.currentScreen().String(), "")
		}
	}

	return a.view.Run()
}

// boot loads the stored document and lands on the welcome screen.
func (a *App) boot(ctx context.Context) {
	doc := a.keeper.Load(ctx)
	a.logger.Info("progress.loaded", map[string]any{
		"setup":     doc.SetupComplete,
		"completed": len(doc.CompletedMissionIDs),
		"placed":    len(doc.PlacedPieces),
		"points":    doc.TotalPoints,
	})
	a.showWelcome()
}

func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.devServer != nil {
		_ = a.devServer.Shutdown(ctx)
	}
	a.closeStreams()
	a.abandonActive(ctx)
	if a.history != nil {
		_ = a.history.Close()
	}
	_ = a.logger.Close()
}

func (a *App) OnStart() {
	if a.keeper.Snapshot().SetupComplete {
		a.showHub()
		return
	}
	a.showSetup(ui.SetupState{})
}

func (a *App) OnSubmitPhoto(ref string) {
	ref = strings.TrimSpace(ref)
	a.view.SetLoading(true)
	defer a.view.SetLoading(false)

	info, err := photo.Validate(ref, a.cat.GridSize)
	if err != nil {
		a.logger.Warn("setup.photo_rejected", map[string]any{"ref": ref, "error": err.Error()})
		a.showSetup(ui.SetupState{PhotoRef: ref, Error: err.Error()})
		a.view.FlashStatus("That photo did not work")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.keeper.Setup(ctx, ref)
	a.keeper.MarkGameStarted(ctx)
	a.logger.Info("setup.complete", map[string]any{
		"format": info.Format,
		"width":  info.Width,
		"height": info.Height,
	})
	a.showHub()
	a.view.FlashStatus("Photo ready: " + photoDetail(info))
}

func (a *App) OnBack() {
	switch a.currentScreen() {
	case ui.ScreenSetup:
		a.showWelcome()
	case ui.ScreenGame:
		a.OnAbandonMission()
	case ui.ScreenPrizes:
		a.showFinal()
	default:
		a.showHub()
	}
}

func (a *App) OnStartMission(missionID int) {
	m, err := a.missions.StartMission(missionID)
	if err != nil {
		a.logger.Info("mission.start_rejected", map[string]any{"mission": missionID, "reason": err.Error()})
		a.view.FlashStatus(startRejection(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.abandonActive(ctx)

	active := &activeMission{mission: m}
	env := minigame.Env{
		Clock:  a.clock,
		Rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		Notify: a.refreshGame,
	}
	g, err := a.registry.New(m.Capability, env, func(out minigame.Outcome) {
		a.finishMission(active, out)
	})
	if err != nil {
		a.logger.Error("mission.build_failed", map[string]any{"mission": m.ID, "capability": m.Capability, "error": err.Error()})
		a.view.FlashStatus("That mission is not ready yet")
		return
	}
	active.game = g

	if a.history != nil {
		runID, err := a.history.StartMissionRun(ctx, state.MissionRun{
			SessionID:  a.sessionID,
			RunID:      uuid.NewString(),
			MissionID:  m.ID,
			Capability: m.Capability,
			StartTS:    time.Now().UTC(),
		})
		if err != nil {
			a.logger.Error("mission_run.start_failed", map[string]any{"mission": m.ID, "error": err.Error()})
		}
		active.runID = runID
	}

	a.mu.Lock()
	a.active = active
	a.mu.Unlock()

	a.logger.Info("mission.start", map[string]any{"mission": m.ID, "capability": m.Capability})
	a.slot.Run(m.Capability, g)
	a.view.SetGame(a.gameState(active))
	a.setScreen(ui.ScreenGame)
}

func (a *App) OnGameKey(k minigame.Key) {
	_, g := a.slot.Current()
	if g == nil {
		return
	}
	g.HandleKey(k)
	a.refreshGame()
}

func (a *App) OnAbandonMission() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	abandoned := a.abandonActive(ctx)
	a.showHub()
	if abandoned {
		a.view.FlashStatus("Mission paused. Try again whenever you like!")
	}
}

func (a *App) OnContinue() {
	a.mu.Lock()
	res := a.lastRes
	a.mu.Unlock()
	if res.AllComplete && a.tracker.FinalRevealReady() {
		a.showFinal()
		return
	}
	a.showHub()
}

func (a *App) OnPlacePiece(pieceID, slotID int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res := a.tracker.AttemptPlacement(ctx, pieceID, slotID)
	switch res {
	case progress.PlacementCorrect:
		if a.tracker.FinalRevealReady() && a.tracker.JustCompleted(ctx) {
			a.logger.Info("puzzle.complete", map[string]any{"pieces": a.cat.TotalPieces})
			a.showFinal()
			return
		}
		a.showHub()
		a.view.FlashStatus(fmt.Sprintf("Piece %d fits!", pieceID))
	case progress.PlacementIncorrect:
		a.view.FlashStatus("That piece goes somewhere else. Try another spot!")
	case progress.PlacementRejectedSlotOccupied:
		a.view.FlashStatus("That spot already has a piece")
	default:
		a.view.FlashStatus("Win that piece in a mission first")
	}
}

func (a *App) OnOpenFinal() {
	if !a.tracker.FinalRevealReady() {
		a.view.FlashStatus("Finish the puzzle to see the big reveal")
		return
	}
	a.showFinal()
}

func (a *App) OnOpenPrizes() {
	if !a.cat.PrizesEnabled() {
		a.view.FlashStatus("Prizes are turned off")
		return
	}
	if !a.tracker.FinalRevealReady() {
		a.view.FlashStatus("Finish the puzzle to pick prizes")
		return
	}
	a.showPrizes("")
}

func (a *App) OnTogglePrize(prizeID int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res := a.prizes.Toggle(ctx, prizeID)
	a.showPrizes("")
	switch res {
	case progress.ToggleRejectedPickLimit:
		a.view.FlashStatus(fmt.Sprintf("You can only pick %d prizes", a.cat.MaxPrizePicks))
	case progress.ToggleRejectedBudget:
		a.view.FlashStatus("Not enough points for that one")
	case progress.ToggleRejectedDisabled:
		a.view.FlashStatus("Prizes are turned off")
	case progress.ToggleRejectedUnknown:
		a.view.FlashStatus("Unknown prize")
	}
}

func (a *App) OnConfirmPrizes() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	picked, ok := a.prizes.Confirm(ctx)
	if !ok {
		a.view.FlashStatus("Pick at least one prize first")
		return
	}
	names := make([]string, 0, len(picked))
	for _, p := range picked {
		names = append(names, p.Name)
	}
	summary := fmt.Sprintf("Awesome choices, %s! You picked: %s. %s will make it happen!",
		a.cat.ChildName, strings.Join(names, ", "), firstNonEmpty(a.cat.ParentName, "Your grown-up"))
	a.showPrizes(summary)
	a.view.SetInfo("Prizes locked in", summary, true)
}

func (a *App) OnReset() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.abandonActive(ctx)
	a.keeper.Reset(ctx)
	if a.history != nil {
		if err := a.history.ClearMissionRuns(ctx); err != nil {
			a.logger.Error("mission_run.clear_failed", map[string]any{"error": err.Error()})
		}
	}
	a.mu.Lock()
	a.lastRes = progress.OutcomeResult{}
	a.mu.Unlock()
	a.logger.Info("progress.reset", nil)
	a.view.SetResetConfirmOpen(false)
	a.showWelcome()
	a.view.FlashStatus("Fresh start!")
}

func (a *App) OnQuit() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.abandonActive(ctx)
	a.logger.Info("app.quit", map[string]any{"screen": a.currentScreen().String()})
	a.view.Stop()
}

func (a *App) OnResize(cols, rows int) {
	a.mu.Lock()
	a.cols, a.rows = cols, rows
	a.mu.Unlock()
}

// finishMission runs on whichever goroutine the game reported from.
func (a *App) finishMission(active *activeMission, out minigame.Outcome) {
	a.slot.Release(active.game)
	a.mu.Lock()
	if a.active == active {
		a.active = nil
	}
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m := active.mission
	res, err := a.missions.RecordOutcome(ctx, m.ID, out.Success, out.Points())

	outcome := state.OutcomeFailed
	if out.Success {
		outcome = state.OutcomeCompleted
	}
	a.finishRun(ctx, active.runID, outcome, res.Score)

	if !out.Success || err != nil {
		a.showHub()
		a.view.FlashStatus("Good try! Give it another go when you're ready.")
		return
	}

	a.mu.Lock()
	a.lastRes = res
	a.mu.Unlock()
	a.view.SetComplete(ui.CompleteState{
		MissionID:   m.ID,
		MissionName: m.Name,
		PieceID:     res.PieceID,
		Score:       res.Score,
		TotalPoints: res.TotalPoints,
		Message:     res.Message,
		AllComplete: res.AllComplete,
	})
	a.setScreen(ui.ScreenComplete)
}

// abandonActive cleans up the running mini-game, if any, and closes its run
// row. It reports whether a game was running.
func (a *App) abandonActive(ctx context.Context) bool {
	a.mu.Lock()
	active := a.active
	a.active = nil
	a.mu.Unlock()
	if active == nil {
		return false
	}
	a.slot.Clear()
	a.logger.Info("mission.abandon", map[string]any{"mission": active.mission.ID})
	a.finishRun(ctx, active.runID, state.OutcomeAbandoned, 0)
	return true
}

func (a *App) finishRun(ctx context.Context, runID int64, outcome state.RunOutcome, score int) {
	if a.history == nil || runID == 0 {
		return
	}
	if err := a.history.FinishMissionRun(ctx, runID, outcome, score); err != nil {
		a.logger.Error("mission_run.finish_failed", map[string]any{"run": runID, "error": err.Error()})
	}
}

// refreshGame pushes the current game's frame to the view. Games call it from
// timer goroutines.
func (a *App) refreshGame() {
	a.mu.Lock()
	active := a.active
	a.mu.Unlock()
	if active == nil {
		return
	}
	if _, g := a.slot.Current(); g != active.game {
		return
	}
	a.view.SetGame(a.gameState(active))
	a.view.RequestDraw()
}

func (a *App) gameState(active *activeMission) ui.GameState {
	return ui.GameState{
		MissionID:   active.mission.ID,
		MissionName: active.mission.Name,
		Icon:        active.mission.Icon,
		Frame:       active.game.View(),
	}
}

func (a *App) showWelcome() {
	doc := a.keeper.Snapshot()
	a.view.SetWelcome(ui.WelcomeState{
		Title:         a.cat.Title,
		ChildName:     a.cat.ChildName,
		ParentName:    a.cat.ParentName,
		TotalPieces:   a.cat.TotalPieces,
		SetupComplete: doc.SetupComplete,
	})
	a.setScreen(ui.ScreenWelcome)
}

func (a *App) showSetup(s ui.SetupState) {
	s.ParentName = a.cat.ParentName
	if s.PhotoRef == "" {
		s.PhotoRef = a.keeper.Snapshot().PhotoReference
	}
	a.view.SetSetup(s)
	a.setScreen(ui.ScreenSetup)
}

func (a *App) showHub() {
	a.view.SetHub(a.hubState())
	a.setScreen(ui.ScreenHub)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.keeper.MarkPreviewShown(ctx) {
		a.view.SetInfo("Your secret picture", a.previewText(), true)
	}
}

func (a *App) showFinal() {
	doc := a.keeper.Snapshot()
	a.view.SetFinal(ui.FinalState{
		Title:      a.cat.Title,
		ChildName:  a.cat.ChildName,
		Message:    a.cat.FinalMessage,
		PhotoLabel: photoLabel(doc.PhotoReference),
		GridSize:   a.cat.GridSize,
		PrizesOn:   a.cat.PrizesEnabled(),
	})
	a.setScreen(ui.ScreenFinal)
}

func (a *App) showPrizes(summary string) {
	doc := a.keeper.Snapshot()
	if summary == "" && doc.PrizesConfirmed {
		summary = "Your prizes are locked in!"
	}
	selected := map[int]bool{}
	for _, id := range doc.SelectedPrizeIDs {
		selected[id] = true
	}
	rows := make([]ui.PrizeRow, 0, len(a.cat.Prizes))
	for _, p := range a.cat.Prizes {
		rows = append(rows, ui.PrizeRow{
			ID:         p.ID,
			Name:       p.Name,
			Icon:       p.Icon,
			Cost:       p.Cost,
			Selected:   selected[p.ID],
			Affordable: a.prizes.Affordable(p.ID),
		})
	}
	a.view.SetPrizes(ui.PrizesState{
		Prizes:     rows,
		Budget:     doc.TotalPoints,
		Remaining:  a.prizes.RemainingBudget(),
		PicksLeft:  a.prizes.RemainingPicks(),
		MaxPicks:   a.cat.MaxPrizePicks,
		CanConfirm: a.prizes.CanConfirm(),
		Confirmed:  doc.PrizesConfirmed,
		Summary:    summary,
	})
	a.setScreen(ui.ScreenPrizes)
}

func (a *App) hubState() ui.HubState {
	doc := a.keeper.Snapshot()
	states := a.missions.MissionStates()

	slots := make([]int, a.cat.TotalPieces)
	for piece, slot := range doc.PlacedPieces {
		if slot >= 1 && slot <= len(slots) {
			slots[slot-1] = piece
		}
	}

	rows := make([]ui.MissionRow, 0, len(a.cat.Missions))
	for i, m := range a.cat.Missions {
		st := progress.MissionLocked
		if i < len(states) {
			st = states[i]
		}
		rows = append(rows, ui.MissionRow{
			ID:          m.ID,
			Name:        m.Name,
			Description: m.Description,
			Icon:        m.Icon,
			State:       st.String(),
			Score:       doc.MissionScores[m.ID],
			Playable:    m.Playable,
		})
	}

	return ui.HubState{
		Title:       a.cat.Title,
		ChildName:   a.cat.ChildName,
		PhotoLabel:  photoLabel(doc.PhotoReference),
		GridSize:    a.cat.GridSize,
		TotalPieces: a.cat.TotalPieces,
		Slots:       slots,
		Bank:        a.tracker.AvailablePieceIDs(),
		Missions:    rows,
		TotalPoints: doc.TotalPoints,
		Completed:   len(doc.CompletedMissionIDs),
		FinalReady:  a.tracker.FinalRevealReady(),
		PrizesOn:    a.cat.PrizesEnabled(),
		Stats:       a.stats(),
	}
}

func (a *App) stats() ui.StatsRow {
	if a.history == nil {
		return ui.StatsRow{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sum, err := a.history.GetSummary(ctx)
	if err != nil {
		a.logger.Error("mission_run.summary_failed", map[string]any{"error": err.Error()})
		return ui.StatsRow{}
	}
	row := ui.StatsRow{
		Runs:        sum.MissionRuns,
		Completions: sum.Completions,
		Failures:    sum.Failures,
		Abandons:    sum.Abandons,
		BestScore:   sum.BestScore,
	}
	last, err := a.history.GetLastRun(ctx)
	if err != nil {
		a.logger.Error("mission_run.last_failed", map[string]any{"error": err.Error()})
		return row
	}
	if last != nil {
		name := fmt.Sprintf("Mission %d", last.MissionID)
		if m, ok := a.cat.Mission(last.MissionID); ok {
			name = m.Name
		}
		row.LastRun = fmt.Sprintf("%s (%s)", name, last.Outcome)
	}
	return row
}

func (a *App) previewText() string {
	return fmt.Sprintf("Your grown-up hid a picture inside %d puzzle pieces. "+
		"Finish missions to win pieces, then put them in the right spots to reveal it!",
		a.cat.TotalPieces)
}

func (a *App) setScreen(s ui.Screen) {
	a.mu.Lock()
	a.screen = s
	a.mu.Unlock()
	a.view.SetScreen(s)
}

func (a *App) currentScreen() ui.Screen {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.screen
}

func startRejection(err error) string {
	switch {
	case errors.Is(err, progress.ErrMissionLocked):
		return "Finish the earlier missions first!"
	case errors.Is(err, progress.ErrMissionCompleted):
		return "You already won this one!"
	case errors.Is(err, progress.ErrMissionUnavailable):
		return "That mission is not ready yet"
	default:
		return "Unknown mission"
	}
}

func photoLabel(ref string) string {
	switch {
	case ref == "":
		return ""
	case ref == devtools.DemoPhotoReference:
		return "demo photo"
	case strings.HasPrefix(ref, "data:"):
		return "embedded photo"
	default:
		return filepath.Base(ref)
	}
}

func photoDetail(info photo.Info) string {
	return fmt.Sprintf("%s %dx%d", info.Format, info.Width, info.Height)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
