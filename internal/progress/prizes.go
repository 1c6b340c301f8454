package progress

import (
	"context"

	"picturemission/internal/catalog"
)

type ToggleResult int

const (
	ToggleSelected ToggleResult = iota
	ToggleDeselected
	ToggleRejectedPickLimit
	ToggleRejectedBudget
	ToggleRejectedUnknown
	ToggleRejectedDisabled
)

func (r ToggleResult) String() string {
	switch r {
	case ToggleSelected:
		return "selected"
	case ToggleDeselected:
		return "deselected"
	case ToggleRejectedPickLimit:
		return "rejected_pick_limit"
	case ToggleRejectedBudget:
		return "rejected_budget"
	case ToggleRejectedUnknown:
		return "rejected_unknown"
	default:
		return "rejected_disabled"
	}
}

// PrizeSelector enforces the pick limit and point budget on every toggle.
// Selection is greedy: earlier picks are never reconsidered.
type PrizeSelector struct {
	keeper *Keeper
}

func NewPrizeSelector(k *Keeper) *PrizeSelector {
	return &PrizeSelector{keeper: k}
}

// Toggle deselects a chosen prize unconditionally. Otherwise it selects the
// prize only while picks remain and the new total cost fits the points.
// Rejected toggles leave the document untouched.
func (p *PrizeSelector) Toggle(ctx context.Context, prizeID int) ToggleResult {
	cat := p.keeper.cat
	if !cat.PrizesEnabled() {
		return ToggleRejectedDisabled
	}
	prize, ok := cat.Prize(prizeID)
	if !ok {
		return ToggleRejectedUnknown
	}
	result := ToggleRejectedBudget
	p.keeper.apply(ctx, "toggle_prize", func(d *Document) bool {
		for i, id := range d.SelectedPrizeIDs {
			if id == prizeID {
				d.SelectedPrizeIDs = append(d.SelectedPrizeIDs[:i:i], d.SelectedPrizeIDs[i+1:]...)
				if len(d.SelectedPrizeIDs) == 0 {
					d.PrizesConfirmed = false
				}
				result = ToggleDeselected
				return true
			}
		}
		if len(d.SelectedPrizeIDs) >= cat.MaxPrizePicks {
			result = ToggleRejectedPickLimit
			return false
		}
		if selectionCost(d.SelectedPrizeIDs, cat)+prize.Cost > d.TotalPoints {
			result = ToggleRejectedBudget
			return false
		}
		d.SelectedPrizeIDs = append(d.SelectedPrizeIDs, prizeID)
		result = ToggleSelected
		return true
	})
	p.keeper.logger.Info("prize.toggle", map[string]any{"prize": prizeID, "result": result.String()})
	return result
}

func (p *PrizeSelector) RemainingBudget() (n int) {
	p.keeper.read(func(d Document) {
		n = d.TotalPoints - selectionCost(d.SelectedPrizeIDs, p.keeper.cat)
	})
	return n
}

func (p *PrizeSelector) RemainingPicks() (n int) {
	p.keeper.read(func(d Document) {
		n = p.keeper.cat.MaxPrizePicks - len(d.SelectedPrizeIDs)
	})
	return n
}

// Affordable reports whether selecting prizeID now would be accepted.
func (p *PrizeSelector) Affordable(prizeID int) (ok bool) {
	cat := p.keeper.cat
	prize, known := cat.Prize(prizeID)
	if !known || !cat.PrizesEnabled() {
		return false
	}
	p.keeper.read(func(d Document) {
		if containsInt(d.SelectedPrizeIDs, prizeID) {
			ok = true
			return
		}
		ok = len(d.SelectedPrizeIDs) < cat.MaxPrizePicks &&
			selectionCost(d.SelectedPrizeIDs, cat)+prize.Cost <= d.TotalPoints
	})
	return ok
}

func (p *PrizeSelector) Selected() (out []int) {
	p.keeper.read(func(d Document) {
		out = append([]int{}, d.SelectedPrizeIDs...)
	})
	return out
}

func (p *PrizeSelector) CanConfirm() bool {
	return len(p.Selected()) >= 1
}

// Confirm resolves the selection to catalog entries in pick order. ok is false
// while nothing is selected.
func (p *PrizeSelector) Confirm(ctx context.Context) (prizes []catalog.Prize, ok bool) {
	ids := p.Selected()
	if len(ids) == 0 {
		return nil, false
	}
	for _, id := range ids {
		if prize, known := p.keeper.cat.Prize(id); known {
			prizes = append(prizes, prize)
		}
	}
	p.keeper.apply(ctx, "confirm_prizes", func(d *Document) bool {
		if d.PrizesConfirmed {
			return false
		}
		d.PrizesConfirmed = true
		return true
	})
	p.keeper.logger.Info("prize.confirm", map[string]any{"prizes": ids})
	return prizes, true
}
