package minigame

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrUnknownCapability = errors.New("unknown mini-game capability")

const (
	TapTargets     = "tap-targets"
	TapTargetsHard = "tap-targets-hard"
	MemorySequence = "memory-sequence"
	ReactionGame   = "reaction-game"
	SlidingPuzzle  = "sliding-puzzle"
	SpeedTap       = "speed-tap"
	QuickMath      = "quick-math"
	TraceShape     = "trace-shape"
	DodgeGame      = "dodge-game"
	SpotDifference = "spot-difference"
)

// Registry maps capability keys to game factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// DefaultRegistry has every built-in game registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TapTargets, newTapTargets(tapTargetsNormal))
	r.Register(TapTargetsHard, newTapTargets(tapTargetsHard))
	r.Register(MemorySequence, newMemorySequence)
	r.Register(ReactionGame, newReaction)
	r.Register(SlidingPuzzle, newSlidingPuzzle)
	r.Register(SpeedTap, newSpeedTap)
	r.Register(QuickMath, newQuickMath)
	r.Register(TraceShape, newTraceShape)
	r.Register(DodgeGame, newDodge)
	r.Register(SpotDifference, newSpotDifference)
	return r
}

func (r *Registry) Register(key string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[key] = f
}

func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[key]
	return ok
}

func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New builds the game registered under key. The game is not started.
func (r *Registry) New(key string, env Env, done Completion) (Game, error) {
	r.mu.RLock()
	f, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", key, ErrUnknownCapability)
	}
	return f(env.withDefaults(), done), nil
}
