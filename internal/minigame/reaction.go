package minigame

import (
	"fmt"
	"time"
)

const (
	reactionAttempts  = 3
	reactionPassUnder = 1500 * time.Millisecond
	reactionIntro     = 2000 * time.Millisecond
	reactionMinWait   = 2000 * time.Millisecond
	reactionJitter    = 3000 * time.Millisecond
	reactionPause     = 2000 * time.Millisecond
	reactionPenalty   = 1500 * time.Millisecond
)

type reactionPhase int

const (
	reactionGetReady reactionPhase = iota
	reactionWaiting
	reactionGo
	reactionEarly
	reactionRecorded
)

// reaction measures how fast the player presses Space after the light turns
// green. The best of three attempts must be under 1.5s.
type reaction struct {
	session
	phase    reactionPhase
	attempts int
	best     time.Duration
	shownAt  time.Time
	message  string
}

func newReaction(env Env, done Completion) Game {
	g := &reaction{}
	g.init("Reaction Time", env, done)
	return g
}

func (g *reaction) Start() {
	g.locked(func() {
		if g.startOnce() {
			g.restart()
		}
	})
}

func (g *reaction) restart() {
	g.resetTimersLocked()
	g.attempts = 0
	g.best = 0
	g.message = ""
	g.phase = reactionGetReady
	g.after(reactionIntro, g.arm)
}

func (g *reaction) arm() {
	g.phase = reactionWaiting
	g.message = ""
	wait := reactionMinWait + time.Duration(g.env.Rand.Int63n(int64(reactionJitter)))
	g.after(wait, func() {
		if g.phase != reactionWaiting {
			return
		}
		g.phase = reactionGo
		g.shownAt = g.env.Clock.Now()
	})
}

func (g *reaction) HandleKey(k Key) {
	g.locked(func() {
		if g.resultKey(k, g.restart) || !g.playing() {
			return
		}
		if k.Code != KeySpace && k.Code != KeyEnter {
			return
		}
		switch g.phase {
		case reactionWaiting:
			// Pressing early cancels the pending green light.
			g.resetTimersLocked()
			g.phase = reactionEarly
			g.message = "Too early! Wait for green."
			g.after(reactionPenalty, g.arm)
		case reactionGo:
			g.record(g.env.Clock.Now().Sub(g.shownAt))
		}
	})
}

func (g *reaction) record(took time.Duration) {
	g.attempts++
	if g.best == 0 || took < g.best {
		g.best = took
	}
	g.phase = reactionRecorded
	g.message = fmt.Sprintf("%dms - %s!", took.Milliseconds(), speedRating(took))
	if g.attempts < reactionAttempts {
		g.after(reactionPause, g.arm)
		return
	}
	g.after(reactionPause, g.finish)
}

func (g *reaction) finish() {
	success := g.attempts > 0 && g.best < reactionPassUnder
	r := result{
		success: success,
		detail:  []string{fmt.Sprintf("Best time: %dms", g.best.Milliseconds())},
		outcome: Outcome{Success: success},
	}
	if success {
		r.headline = "Lightning Reflexes!"
		r.detail = append(r.detail, "Amazing reflexes! You're ready for action!")
	} else {
		r.headline = "Keep Practicing!"
		r.detail = append(r.detail, "Try to tap as soon as it turns green!")
	}
	g.showResult(r)
}

func speedRating(d time.Duration) string {
	switch {
	case d < 300*time.Millisecond:
		return "Lightning Fast"
	case d < 500*time.Millisecond:
		return "Super Quick"
	case d < 700*time.Millisecond:
		return "Nice Speed"
	case d < time.Second:
		return "Good Reaction"
	default:
		return "Getting There"
	}
}

func (g *reaction) View() Frame {
	return g.view(func() Frame {
		light := "(   wait   )"
		switch g.phase {
		case reactionGetReady:
			light = "( get ready )"
		case reactionGo:
			light = "((  GO!!  ))"
		case reactionEarly:
			light = "(  oops!  )"
		}
		attempt := min(g.attempts+1, reactionAttempts)
		return Frame{
			Status: fmt.Sprintf("Attempt %d of %d", attempt, reactionAttempts),
			Lines:  []string{light, "", g.message},
			Help:   "space when the light says GO",
		}
	})
}
