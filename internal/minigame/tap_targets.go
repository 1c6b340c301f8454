package minigame

import (
	"fmt"
	"time"
)

type tapTargetsConfig struct {
	title      string
	count      int
	lifetime   time.Duration
	spawnEvery time.Duration
	marker     string
}

var (
	tapTargetsNormal = tapTargetsConfig{
		title:      "Tap Targets",
		count:      10,
		lifetime:   2500 * time.Millisecond,
		spawnEvery: 1200 * time.Millisecond,
		marker:     "*",
	}
	tapTargetsHard = tapTargetsConfig{
		title:      "Target Blitz",
		count:      15,
		lifetime:   1500 * time.Millisecond,
		spawnEvery: 800 * time.Millisecond,
		marker:     "!",
	}
)

type tapPhase int

const (
	tapPlaying tapPhase = iota
	tapWinning
)

// tapTargets spawns short-lived targets on a 3x3 board until the player has
// hit cfg.count of them. Expired targets count as misses; there is no fail
// state.
type tapTargets struct {
	session
	cfg    tapTargetsConfig
	phase  tapPhase
	cells  [9]int
	serial int
	tapped int
	missed int
}

func newTapTargets(cfg tapTargetsConfig) Factory {
	return func(env Env, done Completion) Game {
		g := &tapTargets{cfg: cfg}
		g.init(cfg.title, env, done)
		return g
	}
}

func (g *tapTargets) Start() {
	g.locked(func() {
		if g.startOnce() {
			g.restart()
		}
	})
}

func (g *tapTargets) restart() {
	g.resetTimersLocked()
	g.phase = tapPlaying
	g.cells = [9]int{}
	g.tapped = 0
	g.missed = 0
	g.spawn()
}

func (g *tapTargets) spawn() {
	if g.phase != tapPlaying || g.tapped >= g.cfg.count {
		return
	}
	free := make([]int, 0, len(g.cells))
	for i, id := range g.cells {
		if id == 0 {
			free = append(free, i)
		}
	}
	if len(free) > 0 {
		cell := free[g.env.Rand.Intn(len(free))]
		g.serial++
		id := g.serial
		g.cells[cell] = id
		g.after(g.cfg.lifetime, func() {
			if g.cells[cell] == id {
				g.cells[cell] = 0
				g.missed++
			}
		})
	}
	g.after(g.cfg.spawnEvery, g.spawn)
}

func (g *tapTargets) HandleKey(k Key) {
	g.locked(func() {
		if g.resultKey(k, g.restart) || !g.playing() || g.phase != tapPlaying {
			return
		}
		cell, ok := cellIndex(k)
		if !ok || g.cells[cell] == 0 {
			return
		}
		g.cells[cell] = 0
		g.tapped++
		if g.tapped < g.cfg.count {
			return
		}
		g.phase = tapWinning
		g.resetTimersLocked()
		g.cells = [9]int{}
		g.after(500*time.Millisecond, func() {
			g.showResult(result{
				success:  true,
				headline: "Mission Complete!",
				detail:   []string{fmt.Sprintf("You hit %d out of %d targets!", g.tapped, g.cfg.count)},
				outcome:  Outcome{Success: true},
			})
		})
	})
}

func (g *tapTargets) View() Frame {
	return g.view(func() Frame {
		lines := cellGrid(func(i int) string {
			if g.cells[i] != 0 {
				return fmt.Sprintf("[%s%d%s]", g.cfg.marker, i+1, g.cfg.marker)
			}
			return emptyCell(i)
		})
		return Frame{
			Status: fmt.Sprintf("Targets: %d/%d   Missed: %d", g.tapped, g.cfg.count, g.missed),
			Lines:  lines,
			Help:   "press the number of a lit target",
		}
	})
}
