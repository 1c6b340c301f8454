package progress

import (
	"context"
	"errors"
	"fmt"

	"picturemission/internal/catalog"
)

var (
	ErrUnknownMission     = errors.New("unknown mission")
	ErrMissionLocked      = errors.New("mission is locked")
	ErrMissionCompleted   = errors.New("mission already completed")
	ErrMissionUnavailable = errors.New("mission has no playable mini-game")
)

type MissionState int

const (
	MissionLocked MissionState = iota
	MissionAvailable
	MissionCompleted
)

func (s MissionState) String() string {
	switch s {
	case MissionAvailable:
		return "available"
	case MissionCompleted:
		return "completed"
	default:
		return "locked"
	}
}

// OutcomeResult describes what recording a mini-game outcome did.
type OutcomeResult struct {
	MissionID     int
	Recorded      bool
	Score         int
	TotalPoints   int
	PieceID       int
	NewlyUnlocked bool
	Message       string
	AllComplete   bool
}

// Controller gates mission availability and folds mini-game outcomes into the
// progress document.
type Controller struct {
	keeper *Keeper
}

func NewController(k *Keeper) *Controller {
	return &Controller{keeper: k}
}

// NextEligibleMissionID returns the single mission that may be started. ok is
// false once every mission is complete.
func (c *Controller) NextEligibleMissionID() (id int, ok bool) {
	c.keeper.read(func(d Document) {
		id, ok = nextEligible(d, c.keeper.cat)
	})
	return id, ok
}

func nextEligible(d Document, cat catalog.Catalog) (int, bool) {
	next := len(d.CompletedMissionIDs) + 1
	if next > len(cat.Missions) {
		return 0, false
	}
	return next, true
}

func (c *Controller) AllMissionsComplete() bool {
	_, ok := c.NextEligibleMissionID()
	return !ok
}

// MissionState is a pure function of the completed mission ids.
func (c *Controller) MissionState(id int) (state MissionState) {
	c.keeper.read(func(d Document) {
		state = missionState(d, id)
	})
	return state
}

func missionState(d Document, id int) MissionState {
	if d.HasCompleted(id) {
		return MissionCompleted
	}
	if id == len(d.CompletedMissionIDs)+1 {
		return MissionAvailable
	}
	return MissionLocked
}

// MissionStates returns the state of every catalog mission in id order.
func (c *Controller) MissionStates() []MissionState {
	out := make([]MissionState, 0, len(c.keeper.cat.Missions))
	c.keeper.read(func(d Document) {
		for _, m := range c.keeper.cat.Missions {
			out = append(out, missionState(d, m.ID))
		}
	})
	return out
}

// StartMission checks that id may be played now and returns its catalog entry.
func (c *Controller) StartMission(id int) (catalog.Mission, error) {
	m, ok := c.keeper.cat.Mission(id)
	if !ok {
		return catalog.Mission{}, fmt.Errorf("mission %d: %w", id, ErrUnknownMission)
	}
	switch c.MissionState(id) {
	case MissionCompleted:
		return m, fmt.Errorf("mission %d: %w", id, ErrMissionCompleted)
	case MissionLocked:
		return m, fmt.Errorf("mission %d: %w", id, ErrMissionLocked)
	}
	if !m.Playable {
		c.keeper.logger.Warn("mission.unplayable", map[string]any{"mission": id, "capability": m.Capability})
		return m, fmt.Errorf("mission %d (%s): %w", id, m.Capability, ErrMissionUnavailable)
	}
	return m, nil
}

// RecordOutcome applies a mini-game result. A failed outcome never changes the
// document. A successful one completes the mission, stores its clamped score
// (last write wins), unlocks the matching piece and persists before returning.
// Outcomes for locked or unknown missions are rejected.
func (c *Controller) RecordOutcome(ctx context.Context, missionID int, success bool, rawScore float64) (OutcomeResult, error) {
	cat := c.keeper.cat
	result := OutcomeResult{MissionID: missionID, PieceID: missionID}
	if _, ok := cat.Mission(missionID); !ok {
		c.keeper.logger.Warn("mission.outcome_rejected", map[string]any{"mission": missionID, "reason": "unknown"})
		return result, fmt.Errorf("mission %d: %w", missionID, ErrUnknownMission)
	}

	score := ClampScore(rawScore)
	locked := false
	c.keeper.apply(ctx, "record_outcome", func(d *Document) bool {
		result.TotalPoints = d.TotalPoints
		if missionState(*d, missionID) == MissionLocked {
			locked = true
			return false
		}
		if !success {
			return false
		}
		if !d.HasCompleted(missionID) {
			d.CompletedMissionIDs = append(d.CompletedMissionIDs, missionID)
		}
		d.MissionScores[missionID] = score
		d.TotalPoints = sumScores(d.MissionScores)
		if !d.HasUnlocked(missionID) {
			d.UnlockedPieceIDs = append(d.UnlockedPieceIDs, missionID)
			result.NewlyUnlocked = true
		}
		if trimSelection(d, cat) {
			c.keeper.logger.Info("prize.selection_trimmed", map[string]any{"total_points": d.TotalPoints})
		}
		if len(d.SelectedPrizeIDs) == 0 {
			d.PrizesConfirmed = false
		}
		result.TotalPoints = d.TotalPoints
		_, more := nextEligible(*d, cat)
		result.AllComplete = !more
		result.Recorded = true
		return true
	})
	if locked {
		c.keeper.logger.Warn("mission.outcome_rejected", map[string]any{"mission": missionID, "reason": "locked"})
		return result, fmt.Errorf("mission %d: %w", missionID, ErrMissionLocked)
	}
	if !result.Recorded {
		c.keeper.logger.Info("mission.outcome", map[string]any{"mission": missionID, "success": false})
		return result, nil
	}
	result.Score = score
	result.Message = cat.MessageFor(missionID)
	c.keeper.logger.Info("mission.outcome", map[string]any{
		"mission":      missionID,
		"success":      true,
		"score":        score,
		"total_points": result.TotalPoints,
		"unlocked":     result.NewlyUnlocked,
	})
	return result, nil
}
