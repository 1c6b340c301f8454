package minigame

import (
	"fmt"
	"time"
)

const (
	speedTapSeconds  = 15
	speedTapGoal     = 20
	speedTapSpawn    = 600 * time.Millisecond
	speedTapLifetime = 2000 * time.Millisecond
	speedTapGoalWait = 300 * time.Millisecond
)

type speedPhase int

const (
	speedIntro speedPhase = iota
	speedRunning
	speedEnding
)

// speedTap asks for speedTapGoal hits within the time limit.
type speedTap struct {
	session
	phase    speedPhase
	cells    [9]int
	serial   int
	tapped   int
	timeLeft int
}

func newSpeedTap(env Env, done Completion) Game {
	g := &speedTap{}
	g.init("Speed Tap", env, done)
	return g
}

func (g *speedTap) Start() {
	g.locked(func() {
		if g.startOnce() {
			g.restart()
		}
	})
}

func (g *speedTap) restart() {
	g.resetTimersLocked()
	g.phase = speedIntro
	g.cells = [9]int{}
	g.tapped = 0
	g.timeLeft = speedTapSeconds
}

func (g *speedTap) begin() {
	g.phase = speedRunning
	g.after(time.Second, g.tick)
	g.spawn()
}

func (g *speedTap) tick() {
	if g.phase != speedRunning {
		return
	}
	g.timeLeft--
	if g.timeLeft <= 0 {
		g.finish()
		return
	}
	g.after(time.Second, g.tick)
}

func (g *speedTap) spawn() {
	if g.phase != speedRunning {
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
		g.after(speedTapLifetime, func() {
			if g.cells[cell] == id {
				g.cells[cell] = 0
			}
		})
	}
	g.after(speedTapSpawn, g.spawn)
}

func (g *speedTap) HandleKey(k Key) {
	g.locked(func() {
		if g.resultKey(k, g.restart) || !g.playing() {
			return
		}
		if g.phase == speedIntro {
			if k.Code == KeyEnter || k.Code == KeySpace {
				g.begin()
			}
			return
		}
		if g.phase != speedRunning {
			return
		}
		cell, ok := cellIndex(k)
		if !ok || g.cells[cell] == 0 {
			return
		}
		g.cells[cell] = 0
		g.tapped++
		if g.tapped >= speedTapGoal {
			g.phase = speedEnding
			g.resetTimersLocked()
			g.after(speedTapGoalWait, g.finish)
		}
	})
}

func (g *speedTap) finish() {
	success := g.tapped >= speedTapGoal
	r := result{
		success: success,
		detail:  []string{fmt.Sprintf("You tapped %d targets.", g.tapped)},
		outcome: Outcome{Success: success},
	}
	if success {
		r.headline = "Speed Demon!"
		r.detail = append(r.detail, "Amazing finger speed!")
	} else {
		r.headline = "Almost!"
		r.detail = append(r.detail, fmt.Sprintf("You needed %d more!", speedTapGoal-g.tapped))
	}
	g.cells = [9]int{}
	g.showResult(r)
}

func (g *speedTap) View() Frame {
	return g.view(func() Frame {
		status := fmt.Sprintf("Targets: %d/%d   Time: %ds", g.tapped, speedTapGoal, g.timeLeft)
		if g.phase == speedIntro {
			return Frame{
				Status: status,
				Lines: []string{
					fmt.Sprintf("Hit %d targets in %d seconds!", speedTapGoal, speedTapSeconds),
					"",
					"Press enter to start.",
				},
				Help: "enter start",
			}
		}
		lines := cellGrid(func(i int) string {
			if g.cells[i] != 0 {
				return fmt.Sprintf("[*%d*]", i+1)
			}
			return emptyCell(i)
		})
		return Frame{Status: status, Lines: lines, Help: "press the number of a lit target"}
	})
}
