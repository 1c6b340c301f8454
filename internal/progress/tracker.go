package progress

import (
	"context"
	"sort"
)

type PlacementResult int

const (
	PlacementCorrect PlacementResult = iota
	PlacementIncorrect
	PlacementRejectedNotUnlocked
	PlacementRejectedSlotOccupied
)

func (r PlacementResult) String() string {
	switch r {
	case PlacementCorrect:
		return "correct"
	case PlacementIncorrect:
		return "incorrect"
	case PlacementRejectedNotUnlocked:
		return "rejected_not_unlocked"
	case PlacementRejectedSlotOccupied:
		return "rejected_slot_occupied"
	default:
		return "unknown"
	}
}

// Tracker validates piece placements and detects puzzle completion. A piece
// fits only the slot with the same id.
type Tracker struct {
	keeper *Keeper
}

func NewTracker(k *Keeper) *Tracker {
	return &Tracker{keeper: k}
}

// AttemptPlacement checks, in order, that the piece is unlocked and the slot
// is free before comparing ids. Only a correct placement changes state.
func (t *Tracker) AttemptPlacement(ctx context.Context, pieceID, slotID int) PlacementResult {
	result := PlacementIncorrect
	t.keeper.apply(ctx, "place_piece", func(d *Document) bool {
		if !d.HasUnlocked(pieceID) {
			result = PlacementRejectedNotUnlocked
			return false
		}
		for _, slot := range d.PlacedPieces {
			if slot == slotID {
				result = PlacementRejectedSlotOccupied
				return false
			}
		}
		if pieceID != slotID {
			result = PlacementIncorrect
			return false
		}
		d.PlacedPieces[pieceID] = slotID
		result = PlacementCorrect
		return true
	})
	t.keeper.logger.Info("puzzle.place", map[string]any{"piece": pieceID, "slot": slotID, "result": result.String()})
	return result
}

func (t *Tracker) IsComplete() (complete bool) {
	t.keeper.read(func(d Document) {
		complete = len(d.PlacedPieces) == t.keeper.cat.TotalPieces
	})
	return complete
}

// JustCompleted reports true exactly once per completed puzzle. The flag is
// persisted so a restart does not replay the final reveal.
func (t *Tracker) JustCompleted(ctx context.Context) bool {
	total := t.keeper.cat.TotalPieces
	return t.keeper.apply(ctx, "final_shown", func(d *Document) bool {
		if d.FinalShown || len(d.PlacedPieces) != total {
			return false
		}
		d.FinalShown = true
		return true
	})
}

// FinalRevealReady requires every mission done and every piece placed.
func (t *Tracker) FinalRevealReady() (ready bool) {
	cat := t.keeper.cat
	t.keeper.read(func(d Document) {
		_, more := nextEligible(d, cat)
		ready = !more && len(d.PlacedPieces) == cat.TotalPieces
	})
	return ready
}

// AvailablePieceIDs lists unlocked pieces that are not yet placed, ascending.
func (t *Tracker) AvailablePieceIDs() []int {
	out := []int{}
	t.keeper.read(func(d Document) {
		for _, id := range d.UnlockedPieceIDs {
			if _, placed := d.PlacedPieces[id]; !placed {
				out = append(out, id)
			}
		}
	})
	sort.Ints(out)
	return out
}

// PlacedPieceIDs lists placed pieces, ascending.
func (t *Tracker) PlacedPieceIDs() (out []int) {
	t.keeper.read(func(d Document) {
		out = sortedKeys(d.PlacedPieces)
	})
	return out
}

// PieceAt returns the piece occupying slotID.
func (t *Tracker) PieceAt(slotID int) (piece int, ok bool) {
	t.keeper.read(func(d Document) {
		for p, s := range d.PlacedPieces {
			if s == slotID {
				piece, ok = p, true
				return
			}
		}
	})
	return piece, ok
}
