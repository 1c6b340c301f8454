package ui

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/harmonica"
	clog "github.com/charmbracelet/log"
)

type applyMsg struct {
	fn func(*Root)
}

type drawMsg struct{}
type clockMsg time.Time
type animateMsg time.Time

// bindings adapts a flat binding list to help.KeyMap.
type bindings []key.Binding

func (b bindings) ShortHelp() []key.Binding  { return b }
func (b bindings) FullHelp() [][]key.Binding { return [][]key.Binding{b} }

type hubFocus int

const (
	focusMissions hubFocus = iota
	focusPuzzle
)

type Root struct {
	theme       Theme
	ascii       bool
	debug       bool
	ctrl        Controller
	motionLevel string

	mu      sync.Mutex
	program *tea.Program
	running bool

	screen Screen
	layout LayoutMode
	cols   int
	rows   int

	welcome  WelcomeState
	setup    SetupState
	hub      HubState
	game     GameState
	complete CompleteState
	final    FinalState
	prizes   PrizesState

	photoInput  string
	statusFlash string
	loading     bool

	resetOpen  bool
	resetIndex int
	infoOpen   bool
	infoTitle  string
	infoText   string

	focus        hubFocus
	missionIndex int
	bankIndex    int
	slotIndex    int
	prizeIndex   int

	help      help.Model
	bar       progress.Model
	spin      spinner.Model
	markdown  *glamour.TermRenderer
	logger    *clog.Logger
	revealPos float64
	revealVel float64
	spring    harmonica.Spring

	drawPending atomic.Bool

	lastInputEvent string
}

type Options struct {
	ASCIIOnly    bool
	Debug        bool
	StyleVariant string
	MotionLevel  string
}

func New(opts Options) *Root {
	logger := clog.NewWithOptions(os.Stderr, clog.Options{Prefix: "picturemission-ui", Level: clog.WarnLevel})
	if opts.Debug {
		logger.SetLevel(clog.DebugLevel)
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(72),
	)
	if err != nil {
		renderer = nil
	}

	h := help.New()
	h.Styles = help.DefaultDarkStyles()
	motionLevel := normalizeMotionLevel(opts.MotionLevel)
	theme := ThemeForVariant(normalizeStyleVariant(opts.StyleVariant))
	spring := harmonica.NewSpring(harmonica.FPS(60), 6.0, 0.9)
	if motionLevel == "reduced" {
		spring = harmonica.NewSpring(harmonica.FPS(30), 9.0, 1.0)
	}
	bar := progress.New(
		progress.WithWidth(24),
		progress.WithColors(lipgloss.Color(theme.BarFrom), lipgloss.Color(theme.BarTo)),
		progress.WithScaled(true),
	)
	spin := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(theme.Accent),
	)

	return &Root{
		theme:       theme,
		ascii:       opts.ASCIIOnly,
		debug:       opts.Debug,
		motionLevel: motionLevel,
		screen:      ScreenWelcome,
		layout:      LayoutWide,
		cols:        120,
		rows:        30,
		help:        h,
		bar:         bar,
		spin:        spin,
		markdown:    renderer,
		logger:      logger,
		spring:      spring,
	}
}

func (r *Root) Init() tea.Cmd {
	return tea.Batch(clockTickCmd(), spinnerTickCmd(r.spin))
}

func (r *Root) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("update", rec, msg)
			model = r
			cmd = nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.cols = msg.Width
		r.rows = msg.Height
		r.layout = DetermineLayoutMode(r.cols, r.rows)
		r.dispatchController(func(c Controller) { c.OnResize(msg.Width, msg.Height) })
		return r, nil
	case applyMsg:
		if msg.fn != nil {
			msg.fn(r)
		}
		return r, r.animateIfNeeded()
	case drawMsg:
		r.drawPending.Store(false)
		return r, nil
	case clockMsg:
		return r, clockTickCmd()
	case animateMsg:
		if r.screen != ScreenFinal {
			return r, nil
		}
		r.revealPos, r.revealVel = r.spring.Update(r.revealPos, r.revealVel, 1)
		if r.shouldAnimate() {
			return r, animateTickCmd()
		}
		r.revealPos, r.revealVel = 1, 0
		return r, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		r.spin, cmd = r.spin.Update(msg)
		return r, cmd
	case tea.PasteMsg:
		return r.handlePaste(msg)
	case tea.KeyPressMsg:
		return r.handleKey(msg)
	}
	return r, nil
}

func (r *Root) View() (view tea.View) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("view", rec, nil)
			width := max(1, r.cols)
			view = tea.NewView(r.theme.Fail.Width(width).Render(trimForWidth("UI recovered from a rendering panic. Check logs.", max(1, width-1))))
		}
	}()

	if r.cols < 1 {
		r.cols = 120
	}
	if r.rows < 1 {
		r.rows = 30
	}

	base := r.render()
	if overlay := r.renderOverlay(); overlay != "" {
		base = composeOverlay(base, overlay, r.cols, r.rows)
	}
	v := tea.NewView(base)
	v.AltScreen = true
	return v
}

func (r *Root) Run() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	p := tea.NewProgram(r)
	r.program = p
	r.running = true
	r.mu.Unlock()

	_, err := p.Run()

	r.mu.Lock()
	r.program = nil
	r.running = false
	r.mu.Unlock()
	return err
}

func (r *Root) Stop() {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Quit()
	}
}

func (r *Root) SetController(c Controller) {
	r.ctrl = c
}

func (r *Root) SetScreen(screen Screen) {
	r.apply(func(m *Root) {
		if screen == ScreenFinal && m.screen != ScreenFinal {
			m.revealPos, m.revealVel = 0, 0
			if m.motionLevel == "off" {
				m.revealPos = 1
			}
		}
		if screen == ScreenSetup && m.screen != ScreenSetup {
			m.photoInput = m.setup.PhotoRef
		}
		if screen == ScreenHub && m.screen != ScreenHub {
			m.focus = focusMissions
		}
		m.screen = screen
		m.statusFlash = ""
	})
}

func (r *Root) SetWelcome(s WelcomeState) {
	r.apply(func(m *Root) { m.welcome = s })
}

func (r *Root) SetSetup(s SetupState) {
	r.apply(func(m *Root) {
		m.setup = s
		if m.photoInput == "" {
			m.photoInput = s.PhotoRef
		}
	})
}

func (r *Root) SetHub(s HubState) {
	r.apply(func(m *Root) {
		m.hub = s
		for i, row := range s.Missions {
			if row.State == "available" {
				m.missionIndex = i
				break
			}
		}
		m.missionIndex = clampIndex(m.missionIndex, len(s.Missions))
		m.bankIndex = clampIndex(m.bankIndex, len(s.Bank))
		m.slotIndex = clampIndex(m.slotIndex, len(s.Slots))
	})
}

func (r *Root) SetGame(s GameState) {
	r.apply(func(m *Root) { m.game = s })
}

func (r *Root) SetComplete(s CompleteState) {
	r.apply(func(m *Root) { m.complete = s })
}

func (r *Root) SetFinal(s FinalState) {
	r.apply(func(m *Root) { m.final = s })
}

func (r *Root) SetPrizes(s PrizesState) {
	r.apply(func(m *Root) {
		m.prizes = s
		m.prizeIndex = clampIndex(m.prizeIndex, len(s.Prizes))
	})
}

func (r *Root) SetLoading(loading bool) {
	r.apply(func(m *Root) { m.loading = loading })
}

func (r *Root) SetResetConfirmOpen(open bool) {
	r.apply(func(m *Root) {
		m.resetOpen = open
		m.resetIndex = 0
	})
}

func (r *Root) SetInfo(title, text string, open bool) {
	r.apply(func(m *Root) {
		m.infoTitle = title
		m.infoText = text
		m.infoOpen = open
	})
}

func (r *Root) FlashStatus(msg string) {
	r.apply(func(m *Root) {
		m.statusFlash = msg
	})
}

// RequestDraw coalesces redraw requests from game timers to one per frame.
func (r *Root) RequestDraw() {
	r.mu.Lock()
	p := r.program
	running := r.running
	r.mu.Unlock()
	if !running || p == nil {
		return
	}
	if !r.drawPending.CompareAndSwap(false, true) {
		return
	}
	time.AfterFunc(16*time.Millisecond, func() {
		r.mu.Lock()
		p := r.program
		running := r.running
		r.mu.Unlock()
		if !running || p == nil {
			r.drawPending.Store(false)
			return
		}
		p.Send(drawMsg{})
	})
}

func (r *Root) apply(fn func(*Root)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	p := r.program
	running := r.running
	if !running || p == nil {
		fn(r)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	p.Send(applyMsg{fn: fn})
}

func (r *Root) dispatchController(fn func(Controller)) {
	if fn == nil || r.ctrl == nil {
		return
	}
	ctrl := r.ctrl
	go fn(ctrl)
}

func (r *Root) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	r.recordInputEvent(fmt.Sprintf("key:%v mod:%v text:%q", msg.Code, msg.Mod, msg.Text))

	if key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+q"))) {
		r.dispatchController(func(c Controller) { c.OnQuit() })
		return r, nil
	}
	if r.overlayActive() {
		return r.handleOverlayKey(msg)
	}

	switch r.screen {
	case ScreenWelcome:
		return r.handleWelcomeKey(msg)
	case ScreenSetup:
		return r.handleSetupKey(msg)
	case ScreenHub:
		return r.handleHubKey(msg)
	case ScreenGame:
		return r.handleGameKey(msg)
	case ScreenComplete:
		if msg.Code == tea.KeyEnter || msg.Code == tea.KeySpace {
			r.dispatchController(func(c Controller) { c.OnContinue() })
		}
		return r, nil
	case ScreenFinal:
		return r.handleFinalKey(msg)
	case ScreenPrizes:
		return r.handlePrizesKey(msg)
	}
	return r, nil
}

func (r *Root) handlePaste(msg tea.PasteMsg) (tea.Model, tea.Cmd) {
	r.recordInputEvent(fmt.Sprintf("paste:%d", len(msg.Content)))
	if r.screen != ScreenSetup || r.overlayActive() {
		return r, nil
	}
	r.photoInput += strings.TrimSpace(strings.ReplaceAll(msg.Content, "\n", ""))
	return r, nil
}

func (r *Root) handleOverlayKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if r.resetOpen {
		switch msg.Code {
		case tea.KeyEsc:
			r.resetOpen = false
		case tea.KeyLeft, tea.KeyUp:
			r.resetIndex = 0
		case tea.KeyRight, tea.KeyDown, tea.KeyTab:
			r.resetIndex = 1
		case tea.KeyEnter:
			if r.resetIndex == 1 {
				r.dispatchController(func(c Controller) { c.OnReset() })
			}
			r.resetOpen = false
			r.resetIndex = 0
		}
		return r, nil
	}
	if msg.Code == tea.KeyEsc || msg.Code == tea.KeyEnter || isRune(msg, 'q') {
		r.infoOpen = false
	}
	return r, nil
}

func (r *Root) handleWelcomeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.Code {
	case tea.KeyEnter, tea.KeySpace:
		r.dispatchController(func(c Controller) { c.OnStart() })
	case tea.KeyEsc:
		r.dispatchController(func(c Controller) { c.OnQuit() })
	}
	return r, nil
}

func (r *Root) handleSetupKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.Code {
	case tea.KeyEsc:
		r.dispatchController(func(c Controller) { c.OnBack() })
		return r, nil
	case tea.KeyEnter:
		ref := strings.TrimSpace(r.photoInput)
		if ref == "" {
			r.statusFlash = "Type the path of a photo first"
			return r, nil
		}
		r.dispatchController(func(c Controller) { c.OnSubmitPhoto(ref) })
		return r, nil
	case tea.KeyBackspace:
		if rs := []rune(r.photoInput); len(rs) > 0 {
			r.photoInput = string(rs[:len(rs)-1])
		}
		return r, nil
	}
	if key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+u"))) {
		r.photoInput = ""
		return r, nil
	}
	if k, ok := GameKey(msg); ok && k.Rune != 0 {
		r.photoInput += string(k.Rune)
	}
	return r, nil
}

func (r *Root) handleHubKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+r"))) {
		r.resetOpen = true
		r.resetIndex = 0
		return r, nil
	}
	if msg.Code == tea.KeyTab {
		if r.focus == focusMissions {
			r.focus = focusPuzzle
		} else {
			r.focus = focusMissions
		}
		return r, nil
	}
	if isRune(msg, 'f') && r.hub.FinalReady {
		r.dispatchController(func(c Controller) { c.OnOpenFinal() })
		return r, nil
	}
	if isRune(msg, 'p') && r.hub.FinalReady && r.hub.PrizesOn {
		r.dispatchController(func(c Controller) { c.OnOpenPrizes() })
		return r, nil
	}

	if r.focus == focusMissions {
		switch msg.Code {
		case tea.KeyUp:
			r.missionIndex = wrapIndex(r.missionIndex-1, len(r.hub.Missions))
		case tea.KeyDown:
			r.missionIndex = wrapIndex(r.missionIndex+1, len(r.hub.Missions))
		case tea.KeyEnter:
			if len(r.hub.Missions) == 0 {
				return r, nil
			}
			row := r.hub.Missions[r.missionIndex]
			switch row.State {
			case "locked":
				r.statusFlash = fmt.Sprintf("Mission %d is still locked", row.ID)
			case "completed":
				r.statusFlash = fmt.Sprintf("Mission %d is already done", row.ID)
			default:
				id := row.ID
				r.dispatchController(func(c Controller) { c.OnStartMission(id) })
			}
		}
		return r, nil
	}

	if d, ok := digitKey(msg); ok && d <= len(r.hub.Slots) {
		r.slotIndex = d - 1
		return r, nil
	}
	switch msg.Code {
	case tea.KeyLeft:
		r.bankIndex = wrapIndex(r.bankIndex-1, len(r.hub.Bank))
	case tea.KeyRight:
		r.bankIndex = wrapIndex(r.bankIndex+1, len(r.hub.Bank))
	case tea.KeyUp:
		r.slotIndex = wrapIndex(r.slotIndex-1, len(r.hub.Slots))
	case tea.KeyDown:
		r.slotIndex = wrapIndex(r.slotIndex+1, len(r.hub.Slots))
	case tea.KeyEnter:
		if len(r.hub.Bank) == 0 {
			r.statusFlash = "No pieces to place yet. Finish a mission!"
			return r, nil
		}
		piece, slot := r.hub.Bank[r.bankIndex], r.slotIndex+1
		r.dispatchController(func(c Controller) { c.OnPlacePiece(piece, slot) })
	}
	return r, nil
}

func (r *Root) handleGameKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if msg.Code == tea.KeyEsc {
		r.dispatchController(func(c Controller) { c.OnAbandonMission() })
		return r, nil
	}
	if k, ok := GameKey(msg); ok {
		r.dispatchController(func(c Controller) { c.OnGameKey(k) })
	}
	return r, nil
}

func (r *Root) handleFinalKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Code == tea.KeyEsc:
		r.dispatchController(func(c Controller) { c.OnBack() })
	case msg.Code == tea.KeyEnter || isRune(msg, 'p'):
		if !r.final.PrizesOn {
			r.dispatchController(func(c Controller) { c.OnBack() })
			return r, nil
		}
		if r.revealPos < 0.99 {
			return r, nil
		}
		r.dispatchController(func(c Controller) { c.OnOpenPrizes() })
	}
	return r, nil
}

func (r *Root) handlePrizesKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Code == tea.KeyEsc:
		r.dispatchController(func(c Controller) { c.OnBack() })
	case msg.Code == tea.KeyUp:
		r.prizeIndex = wrapIndex(r.prizeIndex-1, len(r.prizes.Prizes))
	case msg.Code == tea.KeyDown:
		r.prizeIndex = wrapIndex(r.prizeIndex+1, len(r.prizes.Prizes))
	case msg.Code == tea.KeyEnter || msg.Code == tea.KeySpace:
		if len(r.prizes.Prizes) == 0 {
			return r, nil
		}
		id := r.prizes.Prizes[r.prizeIndex].ID
		r.dispatchController(func(c Controller) { c.OnTogglePrize(id) })
	case isRune(msg, 'c'):
		if !r.prizes.CanConfirm {
			r.statusFlash = "Pick at least one prize first"
			return r, nil
		}
		r.dispatchController(func(c Controller) { c.OnConfirmPrizes() })
	}
	return r, nil
}

func (r *Root) overlayActive() bool {
	return r.resetOpen || r.infoOpen
}

func (r *Root) animateIfNeeded() tea.Cmd {
	if r.screen == ScreenFinal && r.shouldAnimate() {
		return animateTickCmd()
	}
	return nil
}

func (r *Root) shouldAnimate() bool {
	if r.motionLevel == "off" {
		return false
	}
	return r.revealPos < 0.999 || abs(r.revealVel) > 0.001
}

func clockTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockMsg(t) })
}

func animateTickCmd() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return animateMsg(t) })
}

func spinnerTickCmd(model spinner.Model) tea.Cmd {
	return func() tea.Msg {
		return model.Tick()
	}
}

func normalizeStyleVariant(v string) string {
	switch strings.TrimSpace(v) {
	case "cozy_clean", "retro_terminal", "modern_arcade":
		return strings.TrimSpace(v)
	default:
		return "modern_arcade"
	}
}

func normalizeMotionLevel(v string) string {
	switch strings.TrimSpace(v) {
	case "off", "reduced", "full":
		return strings.TrimSpace(v)
	default:
		return "full"
	}
}

func (r *Root) recordInputEvent(event string) {
	r.lastInputEvent = trimForWidth(strings.TrimSpace(event), 160)
}

func (r *Root) onModelPanic(where string, recovered any, msg tea.Msg) {
	if r.statusFlash == "" {
		r.statusFlash = "Recovered UI panic"
	}
	msgType := ""
	if msg != nil {
		msgType = fmt.Sprintf("%T", msg)
	}
	r.logger.Error("ui.panic_recovered",
		"where", where,
		"panic", fmt.Sprintf("%v", recovered),
		"message_type", msgType,
		"screen", r.screen.String(),
		"cols", r.cols,
		"rows", r.rows,
		"last_input", r.lastInputEvent,
		"stack", string(debug.Stack()),
	)
}

var _ tea.Model = (*Root)(nil)
var _ View = (*Root)(nil)
