package minigame

import (
	"fmt"
	"strings"
	"time"
)

const (
	dodgeSeconds  = 15
	dodgeLanes    = 9
	dodgeRows     = 10
	dodgeFall     = 250 * time.Millisecond
	dodgeSpawnMin = 800 * time.Millisecond
	dodgeSpawnVar = 1000 * time.Millisecond
)

type dodgePhase int

const (
	dodgeIntro dodgePhase = iota
	dodgeRunning
)

type obstacle struct {
	lane, row int
}

// dodge keeps the player's lane clear of falling blocks for fifteen seconds.
type dodge struct {
	session
	phase     dodgePhase
	player    int
	obstacles []obstacle
	timeLeft  int
}

func newDodge(env Env, done Completion) Game {
	g := &dodge{}
	g.init("Dodge!", env, done)
	return g
}

func (g *dodge) Start() {
	g.locked(func() {
		if g.startOnce() {
			g.restart()
		}
	})
}

func (g *dodge) restart() {
	g.resetTimersLocked()
	g.phase = dodgeIntro
	g.player = dodgeLanes / 2
	g.obstacles = nil
	g.timeLeft = dodgeSeconds
}

func (g *dodge) begin() {
	g.phase = dodgeRunning
	g.after(time.Second, g.tick)
	g.after(dodgeFall, g.fall)
	g.spawn()
}

func (g *dodge) tick() {
	g.timeLeft--
	if g.timeLeft <= 0 {
		g.finish(true)
		return
	}
	g.after(time.Second, g.tick)
}

func (g *dodge) spawn() {
	g.obstacles = append(g.obstacles, obstacle{lane: g.env.Rand.Intn(dodgeLanes), row: 0})
	wait := dodgeSpawnMin + time.Duration(g.env.Rand.Int63n(int64(dodgeSpawnVar)))
	g.after(wait, g.spawn)
}

func (g *dodge) fall() {
	kept := g.obstacles[:0]
	for _, o := range g.obstacles {
		o.row++
		if o.row < dodgeRows {
			kept = append(kept, o)
		}
	}
	g.obstacles = kept
	if g.hit() {
		g.finish(false)
		return
	}
	g.after(dodgeFall, g.fall)
}

func (g *dodge) hit() bool {
	for _, o := range g.obstacles {
		if o.row == dodgeRows-1 && o.lane == g.player {
			return true
		}
	}
	return false
}

func (g *dodge) HandleKey(k Key) {
	g.locked(func() {
		if g.resultKey(k, g.restart) || !g.playing() {
			return
		}
		if g.phase == dodgeIntro {
			if k.Code == KeyEnter || k.Code == KeySpace {
				g.begin()
			}
			return
		}
		switch {
		case k.Code == KeyLeft, k.Code == KeyRune && (k.Rune == 'a' || k.Rune == 'A'):
			g.player = max(0, g.player-1)
		case k.Code == KeyRight, k.Code == KeyRune && (k.Rune == 'd' || k.Rune == 'D'):
			g.player = min(dodgeLanes-1, g.player+1)
		default:
			return
		}
		if g.hit() {
			g.finish(false)
		}
	})
}

func (g *dodge) finish(survived bool) {
	r := result{
		success: survived,
		outcome: Outcome{Success: survived},
	}
	if survived {
		r.headline = "You Survived!"
		r.detail = []string{"Amazing dodging skills!"}
	} else {
		r.headline = "Ouch!"
		r.detail = []string{
			fmt.Sprintf("You lasted %d seconds.", dodgeSeconds-g.timeLeft),
			"You got hit! Try to avoid the falling blocks.",
		}
	}
	g.obstacles = nil
	g.showResult(r)
}

func (g *dodge) View() Frame {
	return g.view(func() Frame {
		status := fmt.Sprintf("Time: %ds", g.timeLeft)
		if g.phase == dodgeIntro {
			return Frame{
				Status: status,
				Lines: []string{
					fmt.Sprintf("Dodge the falling blocks for %d seconds!", dodgeSeconds),
					"",
					"Press enter to start.",
				},
				Help: "enter start",
			}
		}
		grid := make([][]byte, dodgeRows)
		for r := range grid {
			grid[r] = []byte(strings.Repeat(" ", dodgeLanes))
		}
		for _, o := range g.obstacles {
			grid[o.row][o.lane] = '#'
		}
		grid[dodgeRows-1][g.player] = 'A'
		lines := make([]string, 0, dodgeRows+1)
		for _, row := range grid {
			lines = append(lines, "|"+string(row)+"|")
		}
		lines = append(lines, "+"+strings.Repeat("-", dodgeLanes)+"+")
		return Frame{Status: status, Lines: lines, Help: "left/right or a/d move"}
	})
}
