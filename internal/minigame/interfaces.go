package minigame

import (
	"math/rand"
	"time"
)

// Game is one playable mini-game. Start may be called once; HandleKey and
// View are safe to call from any goroutine. Cleanup halts every pending timer
// and guarantees the completion callback will not fire afterwards.
type Game interface {
	Start()
	HandleKey(Key)
	View() Frame
	Cleanup()
}

// Factory builds a game bound to env that reports through done.
type Factory func(env Env, done Completion) Game

// Completion receives the outcome of a playthrough. It is called at most once.
type Completion func(Outcome)

// Outcome is what a finished game reports. Score is meaningful only when
// HasScore is set.
type Outcome struct {
	Success  bool
	Score    int
	HasScore bool
}

// Points returns the score to record, zero for games that report none.
func (o Outcome) Points() float64 {
	if !o.HasScore {
		return 0
	}
	return float64(o.Score)
}

// Env carries the game's collaborators.
type Env struct {
	Clock Clock
	Rand  *rand.Rand
	// Notify is called after a timer changed the game's state.
	Notify func()
}

func (e Env) withDefaults() Env {
	if e.Clock == nil {
		e.Clock = RealClock{}
	}
	if e.Rand == nil {
		e.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.Notify == nil {
		e.Notify = func() {}
	}
	return e
}

type KeyCode int

const (
	KeyNone KeyCode = iota
	KeyRune
	KeyEnter
	KeySpace
	KeyBackspace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
)

// Key is a terminal-independent key press.
type Key struct {
	Code KeyCode
	Rune rune
}

func Rune(r rune) Key {
	if r == ' ' {
		return Key{Code: KeySpace, Rune: ' '}
	}
	return Key{Code: KeyRune, Rune: r}
}

// Digit returns the value of a 0-9 key.
func (k Key) Digit() (int, bool) {
	if k.Code != KeyRune || k.Rune < '0' || k.Rune > '9' {
		return 0, false
	}
	return int(k.Rune - '0'), true
}

// Frame is a renderer-neutral snapshot of a game screen.
type Frame struct {
	Title  string
	Status string
	Lines  []string
	Help   string
	// Finished is set while the result screen is shown.
	Finished bool
	Success  bool
}
