package ui

import "picturemission/internal/minigame"

type Controller interface {
	OnStart()
	OnSubmitPhoto(ref string)
	OnBack()
	OnStartMission(missionID int)
	OnGameKey(k minigame.Key)
	OnAbandonMission()
	OnContinue()
	OnPlacePiece(pieceID, slotID int)
	OnOpenFinal()
	OnOpenPrizes()
	OnTogglePrize(prizeID int)
	OnConfirmPrizes()
	OnReset()
	OnQuit()
	OnResize(cols, rows int)
}

type View interface {
	Run() error
	Stop()
	SetController(Controller)
	SetScreen(screen Screen)
	SetWelcome(WelcomeState)
	SetSetup(SetupState)
	SetHub(HubState)
	SetGame(GameState)
	SetComplete(CompleteState)
	SetFinal(FinalState)
	SetPrizes(PrizesState)
	SetLoading(loading bool)
	SetResetConfirmOpen(open bool)
	SetInfo(title, text string, open bool)
	FlashStatus(msg string)
	RequestDraw()
}

type Screen int

const (
	ScreenWelcome Screen = iota
	ScreenSetup
	ScreenHub
	ScreenGame
	ScreenComplete
	ScreenFinal
	ScreenPrizes
)

func (s Screen) String() string {
	switch s {
	case ScreenSetup:
		return "setup"
	case ScreenHub:
		return "hub"
	case ScreenGame:
		return "game"
	case ScreenComplete:
		return "complete"
	case ScreenFinal:
		return "final"
	case ScreenPrizes:
		return "prizes"
	default:
		return "welcome"
	}
}

type LayoutMode int

const (
	LayoutWide LayoutMode = iota
	LayoutMedium
	LayoutTooSmall
)

type WelcomeState struct {
	Title         string
	ChildName     string
	ParentName    string
	TotalPieces   int
	SetupComplete bool
}

type SetupState struct {
	ParentName string
	PhotoRef   string
	// Detail describes the last accepted photo, Error the last rejection.
	Detail string
	Error  string
}

type HubState struct {
	Title       string
	ChildName   string
	PhotoLabel  string
	GridSize    int
	TotalPieces int
	// Slots holds the piece placed in each slot, 0 when empty. Index i is
	// slot i+1.
	Slots       []int
	Bank        []int
	Missions    []MissionRow
	TotalPoints int
	Completed   int
	FinalReady  bool
	PrizesOn    bool
	Stats       StatsRow
}

type MissionRow struct {
	ID          int
	Name        string
	Description string
	Icon        string
	State       string
	Score       int
	Playable    bool
}

type StatsRow struct {
	Runs        int
	Completions int
	Failures    int
	Abandons    int
	BestScore   int
	LastRun     string
}

type GameState struct {
	MissionID   int
	MissionName string
	Icon        string
	Frame       minigame.Frame
}

type CompleteState struct {
	MissionID   int
	MissionName string
	PieceID     int
	Score       int
	TotalPoints int
	Message     string
	AllComplete bool
}

type FinalState struct {
	Title      string
	ChildName  string
	Message    string
	PhotoLabel string
	GridSize   int
	PrizesOn   bool
}

type PrizesState struct {
	Prizes     []PrizeRow
	Budget     int
	Remaining  int
	PicksLeft  int
	MaxPicks   int
	CanConfirm bool
	Confirmed  bool
	Summary    string
}

type PrizeRow struct {
	ID         int
	Name       string
	Icon       string
	Cost       int
	Selected   bool
	Affordable bool
}
