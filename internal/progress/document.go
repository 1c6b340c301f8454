package progress

import (
	"encoding/json"
	"math"
	"sort"

	"picturemission/internal/catalog"
)

const (
	DefaultStateKey = "pictureMissionState"

	MaxMissionScore = 100
)

// Document is the single persisted progress record.
type Document struct {
	PhotoReference      string      `json:"photoReference"`
	SetupComplete       bool        `json:"setupComplete"`
	GameStarted         bool        `json:"gameStarted"`
	CompletedMissionIDs []int       `json:"completedMissionIds"`
	MissionScores       map[int]int `json:"missionScores"`
	TotalPoints         int         `json:"totalPoints"`
	UnlockedPieceIDs    []int       `json:"unlockedPieceIds"`
	PlacedPieces        map[int]int `json:"placedPieces"`
	SelectedPrizeIDs    []int       `json:"selectedPrizeIds"`
	PrizesConfirmed     bool        `json:"prizesConfirmed"`
	PreviewShown        bool        `json:"previewShown"`
	FinalShown          bool        `json:"finalShown"`
}

// legacyDocument accepts the field names written by older releases.
type legacyDocument struct {
	Document
	PhotoData         string `json:"photoData"`
	CompletedMissions []int  `json:"completedMissions"`
	UnlockedPieces    []int  `json:"unlockedPieces"`
	SelectedPrizes    []int  `json:"selectedPrizes"`
}

func DefaultDocument() Document {
	return Document{
		CompletedMissionIDs: []int{},
		MissionScores:       map[int]int{},
		UnlockedPieceIDs:    []int{},
		PlacedPieces:        map[int]int{},
		SelectedPrizeIDs:    []int{},
	}
}

func (d Document) Clone() Document {
	out := d
	out.CompletedMissionIDs = append([]int{}, d.CompletedMissionIDs...)
	out.UnlockedPieceIDs = append([]int{}, d.UnlockedPieceIDs...)
	out.SelectedPrizeIDs = append([]int{}, d.SelectedPrizeIDs...)
	out.MissionScores = make(map[int]int, len(d.MissionScores))
	for k, v := range d.MissionScores {
		out.MissionScores[k] = v
	}
	out.PlacedPieces = make(map[int]int, len(d.PlacedPieces))
	for k, v := range d.PlacedPieces {
		out.PlacedPieces[k] = v
	}
	return out
}

func (d Document) HasCompleted(missionID int) bool {
	return containsInt(d.CompletedMissionIDs, missionID)
}

func (d Document) HasUnlocked(pieceID int) bool {
	return containsInt(d.UnlockedPieceIDs, pieceID)
}

// Encode serialises the document for storage.
func Encode(d Document) ([]byte, error) {
	return json.Marshal(d)
}

// Decode parses a stored document and merges it over defaults. Fields missing
// from older documents keep their default values.
func Decode(raw []byte) (Document, error) {
	var wire legacyDocument
	wire.Document = DefaultDocument()
	if err := json.Unmarshal(raw, &wire); err != nil {
		return DefaultDocument(), err
	}
	doc := wire.Document
	if doc.PhotoReference == "" {
		doc.PhotoReference = wire.PhotoData
	}
	if len(doc.CompletedMissionIDs) == 0 && len(wire.CompletedMissions) > 0 {
		doc.CompletedMissionIDs = wire.CompletedMissions
	}
	if len(doc.UnlockedPieceIDs) == 0 && len(wire.UnlockedPieces) > 0 {
		doc.UnlockedPieceIDs = wire.UnlockedPieces
	}
	if len(doc.SelectedPrizeIDs) == 0 && len(wire.SelectedPrizes) > 0 {
		doc.SelectedPrizeIDs = wire.SelectedPrizes
	}
	if doc.CompletedMissionIDs == nil {
		doc.CompletedMissionIDs = []int{}
	}
	if doc.UnlockedPieceIDs == nil {
		doc.UnlockedPieceIDs = []int{}
	}
	if doc.SelectedPrizeIDs == nil {
		doc.SelectedPrizeIDs = []int{}
	}
	if doc.MissionScores == nil {
		doc.MissionScores = map[int]int{}
	}
	if doc.PlacedPieces == nil {
		doc.PlacedPieces = map[int]int{}
	}
	return doc, nil
}

// Normalize rebuilds every derived field so the document satisfies the
// progress invariants for cat. It reports whether anything changed.
func Normalize(d *Document, cat catalog.Catalog) bool {
	before := d.Clone()

	// Completed missions must form the prefix 1..k.
	completed := map[int]bool{}
	for _, id := range d.CompletedMissionIDs {
		if id >= 1 && id <= len(cat.Missions) {
			completed[id] = true
		}
	}
	prefix := []int{}
	for id := 1; completed[id]; id++ {
		prefix = append(prefix, id)
	}
	ordered := []int{}
	for _, id := range d.CompletedMissionIDs {
		if id <= len(prefix) && !containsInt(ordered, id) {
			ordered = append(ordered, id)
		}
	}
	d.CompletedMissionIDs = ordered

	scores := make(map[int]int, len(ordered))
	for _, id := range ordered {
		scores[id] = clampInt(d.MissionScores[id], 0, MaxMissionScore)
	}
	d.MissionScores = scores
	d.TotalPoints = sumScores(scores)
	d.UnlockedPieceIDs = append([]int{}, ordered...)

	placed := map[int]int{}
	for piece, slot := range d.PlacedPieces {
		if piece == slot && completed[piece] && piece <= len(prefix) {
			placed[piece] = slot
		}
	}
	d.PlacedPieces = placed
	if len(placed) != cat.TotalPieces {
		d.FinalShown = false
	}

	selected := []int{}
	for _, id := range d.SelectedPrizeIDs {
		if _, ok := cat.Prize(id); ok && !containsInt(selected, id) {
			selected = append(selected, id)
		}
	}
	d.SelectedPrizeIDs = selected
	trimSelection(d, cat)
	if len(d.SelectedPrizeIDs) == 0 {
		d.PrizesConfirmed = false
	}

	return !equalDocuments(before, *d)
}

// trimSelection drops the most recent picks until the selection fits both the
// pick limit and the point budget.
func trimSelection(d *Document, cat catalog.Catalog) bool {
	trimmed := false
	for len(d.SelectedPrizeIDs) > 0 &&
		(len(d.SelectedPrizeIDs) > cat.MaxPrizePicks || selectionCost(d.SelectedPrizeIDs, cat) > d.TotalPoints) {
		d.SelectedPrizeIDs = d.SelectedPrizeIDs[:len(d.SelectedPrizeIDs)-1]
		trimmed = true
	}
	return trimmed
}

func selectionCost(ids []int, cat catalog.Catalog) int {
	total := 0
	for _, id := range ids {
		if p, ok := cat.Prize(id); ok {
			total += p.Cost
		}
	}
	return total
}

// ClampScore converts a raw mini-game score to an integer in [0,100].
func ClampScore(raw float64) int {
	switch {
	case math.IsNaN(raw):
		return 0
	case math.IsInf(raw, 1):
		return MaxMissionScore
	case math.IsInf(raw, -1):
		return 0
	}
	rounded := math.Round(raw)
	if rounded < 0 {
		return 0
	}
	if rounded > MaxMissionScore {
		return MaxMissionScore
	}
	return int(rounded)
}

func sumScores(scores map[int]int) int {
	total := 0
	for _, v := range scores {
		total += v
	}
	return total
}

func sortedKeys(m map[int]int) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func equalDocuments(a, b Document) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ab) == string(bb)
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
