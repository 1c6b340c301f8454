package minigame

import "sync"

// Slot owns the game currently on screen. Replacing or clearing the game
// always cleans up the previous one first.
type Slot struct {
	mu      sync.Mutex
	key     string
	current Game
}

// Run cleans up any previous game, then starts g.
func (s *Slot) Run(key string, g Game) {
	s.mu.Lock()
	prev := s.current
	s.key, s.current = key, g
	s.mu.Unlock()
	if prev != nil {
		prev.Cleanup()
	}
	if g != nil {
		g.Start()
	}
}

// Clear cleans up the current game. It reports whether one was running.
func (s *Slot) Clear() bool {
	s.mu.Lock()
	prev := s.current
	s.key, s.current = "", nil
	s.mu.Unlock()
	if prev == nil {
		return false
	}
	prev.Cleanup()
	return true
}

// Release forgets g without cleaning it up, used once it has reported its
// outcome. It is a no-op if g is no longer current.
func (s *Slot) Release(g Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == g {
		s.key, s.current = "", nil
	}
}

func (s *Slot) Current() (string, Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key, s.current
}
