package minigame

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// result is the end-of-round screen. Enter continues on success and restarts
// on failure; Backspace gives up on a failed round.
type result struct {
	success  bool
	headline string
	detail   []string
	outcome  Outcome
}

// session is the bookkeeping shared by every game: one mutex for all state,
// a timer generation that invalidates stale callbacks, and the at-most-once
// completion guard.
type session struct {
	mu       sync.Mutex
	env      Env
	done     Completion
	title    string
	gen      uint64
	started  bool
	closed   bool
	reported bool
	timers   []Timer
	res      *result
	fire     *Outcome
}

func (s *session) init(title string, env Env, done Completion) {
	s.title = title
	s.env = env.withDefaults()
	s.done = done
}

// locked runs fn under the session lock and then delivers any completion fn
// queued, outside the lock.
func (s *session) locked(fn func()) {
	s.mu.Lock()
	fn()
	out := s.fire
	s.fire = nil
	done := s.done
	s.mu.Unlock()
	if out != nil && done != nil {
		done(*out)
	}
}

// startOnce reports whether this call is the first Start on a live game.
func (s *session) startOnce() bool {
	if s.started || s.closed {
		return false
	}
	s.started = true
	return true
}

// Cleanup stops all timers. Nothing scheduled before it will run, and the
// completion callback is never called afterwards.
func (s *session) Cleanup() {
	s.mu.Lock()
	s.closed = true
	s.resetTimersLocked()
	s.mu.Unlock()
}

func (s *session) resetTimersLocked() {
	s.gen++
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = s.timers[:0]
}

// after schedules fn to run under the session lock. Must be called with the
// lock held. The callback is dropped if the generation moved on.
func (s *session) after(d time.Duration, fn func()) {
	gen := s.gen
	t := s.env.Clock.AfterFunc(d, func() {
		ran := false
		s.locked(func() {
			if s.closed || s.gen != gen {
				return
			}
			fn()
			ran = true
		})
		if ran {
			s.env.Notify()
		}
	})
	s.timers = append(s.timers, t)
}

func (s *session) playing() bool {
	return s.started && !s.closed && s.res == nil
}

func (s *session) showResult(r result) {
	s.resetTimersLocked()
	s.res = &r
}

func (s *session) complete(o Outcome) {
	if s.reported || s.closed {
		return
	}
	s.reported = true
	s.closed = true
	s.resetTimersLocked()
	s.fire = &o
}

// resultKey handles keys on the result screen. It reports whether the result
// screen consumed the key.
func (s *session) resultKey(k Key, restart func()) bool {
	if s.res == nil {
		return false
	}
	switch k.Code {
	case KeyEnter:
		if s.res.success {
			s.complete(s.res.outcome)
			return true
		}
		s.res = nil
		restart()
	case KeyBackspace:
		if !s.res.success {
			out := s.res.outcome
			out.Success = false
			s.complete(out)
		}
	}
	return true
}

func (s *session) resultFrame() Frame {
	r := s.res
	lines := append([]string{r.headline, ""}, r.detail...)
	help := "enter continue"
	if !r.success {
		help = "enter try again • backspace give up"
	}
	return Frame{
		Title:    s.title,
		Lines:    lines,
		Help:     help,
		Finished: true,
		Success:  r.success,
	}
}

// view builds the frame under the lock, substituting the result screen.
func (s *session) view(build func() Frame) Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.res != nil {
		return s.resultFrame()
	}
	f := build()
	f.Title = s.title
	return f
}

// cellGrid renders a 3x3 board addressed by keys 1-9, row-major.
func cellGrid(cell func(i int) string) []string {
	lines := make([]string, 0, 3)
	for row := 0; row < 3; row++ {
		cells := make([]string, 0, 3)
		for col := 0; col < 3; col++ {
			cells = append(cells, cell(row*3+col))
		}
		lines = append(lines, strings.Join(cells, "  "))
	}
	return lines
}

func emptyCell(i int) string {
	return fmt.Sprintf("[ %d ]", i+1)
}

// cellIndex maps keys 1-9 to a board index.
func cellIndex(k Key) (int, bool) {
	d, ok := k.Digit()
	if !ok || d < 1 || d > 9 {
		return 0, false
	}
	return d - 1, true
}
