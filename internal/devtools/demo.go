package devtools

import (
	"picturemission/internal/catalog"
	"picturemission/internal/progress"
)

// Screen names the UI screen a scenario should land on.
type Screen string

const (
	ScreenWelcome Screen = "welcome"
	ScreenHub     Screen = "hub"
	ScreenFinal   Screen = "final"
	ScreenPrizes  Screen = "prizes"
)

// Scenario describes a canned progress document for dev mode and screenshots.
type Scenario struct {
	Name      string
	Completed int
	Placed    int
	Prizes    bool
	Screen    Screen
}

const DemoPhotoReference = "demo://sunset-beach"

type Manager struct{}

func NewManager() *Manager { return &Manager{} }

func (m *Manager) Names() []string {
	return []string{"fresh", "midway", "all_unlocked", "puzzle_done", "prizes_open"}
}

// Resolve maps a scenario name to its definition. Unknown names fall back to
// midway.
func (m *Manager) Resolve(name string) Scenario {
	switch name {
	case "fresh":
		return Scenario{Name: name, Screen: ScreenWelcome}
	case "all_unlocked":
		return Scenario{Name: name, Completed: -1, Screen: ScreenHub}
	case "puzzle_done":
		return Scenario{Name: name, Completed: -1, Placed: -1, Screen: ScreenFinal}
	case "prizes_open":
		return Scenario{Name: name, Completed: -1, Placed: -1, Prizes: true, Screen: ScreenPrizes}
	default:
		return Scenario{Name: "midway", Completed: 4, Placed: 2, Screen: ScreenHub}
	}
}

// MockScore is the deterministic score seeded for a completed mission.
func MockScore(missionID int) int {
	return 60 + (missionID*37)%41
}

// Seed builds the progress document for sc. A negative count means every
// mission or piece. The result is normalised against cat.
func (m *Manager) Seed(sc Scenario, cat catalog.Catalog) progress.Document {
	doc := progress.DefaultDocument()
	if sc.Name == "fresh" {
		return doc
	}
	doc.PhotoReference = DemoPhotoReference
	doc.SetupComplete = true
	doc.GameStarted = true
	doc.PreviewShown = true

	completed := countOrAll(sc.Completed, len(cat.Missions))
	for id := 1; id <= completed; id++ {
		doc.CompletedMissionIDs = append(doc.CompletedMissionIDs, id)
		doc.MissionScores[id] = MockScore(id)
	}
	placed := min(countOrAll(sc.Placed, cat.TotalPieces), completed)
	for id := 1; id <= placed; id++ {
		doc.PlacedPieces[id] = id
	}
	if placed == cat.TotalPieces {
		doc.FinalShown = sc.Prizes
	}
	progress.Normalize(&doc, cat)
	if sc.Prizes && cat.PrizesEnabled() {
		doc.SelectedPrizeIDs = cheapestPick(cat, doc.TotalPoints)
	}
	return doc
}

func countOrAll(n, all int) int {
	if n < 0 || n > all {
		return all
	}
	return n
}

// cheapestPick selects the single cheapest affordable prize, if any.
func cheapestPick(cat catalog.Catalog, budget int) []int {
	best := -1
	for i, p := range cat.Prizes {
		if p.Cost <= budget && (best < 0 || p.Cost < cat.Prizes[best].Cost) {
			best = i
		}
	}
	if best < 0 {
		return []int{}
	}
	return []int{cat.Prizes[best].ID}
}
