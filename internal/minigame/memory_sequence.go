package minigame

import (
	"fmt"
	"strings"
	"time"
)

const (
	memoryRounds        = 5
	memoryPointsOnRound = 20
	memoryLeadIn        = 1000 * time.Millisecond
	memoryStep          = 800 * time.Millisecond
	memoryFlash         = 400 * time.Millisecond
	memoryNextRound     = 1500 * time.Millisecond
)

var memoryColors = []string{"red", "teal", "yellow", "purple"}

type memoryPhase int

const (
	memoryShowing memoryPhase = iota
	memoryInput
	memoryBetween
)

// memorySequence is a Simon-style game: the sequence grows by one pad each
// round and the player repeats it with keys 1-4.
type memorySequence struct {
	session
	phase    memoryPhase
	round    int
	sequence []int
	input    []int
	lit      int
}

func newMemorySequence(env Env, done Completion) Game {
	g := &memorySequence{lit: -1}
	g.init("Memory Sequence", env, done)
	return g
}

func (g *memorySequence) Start() {
	g.locked(func() {
		if g.startOnce() {
			g.restart()
		}
	})
}

func (g *memorySequence) restart() {
	g.resetTimersLocked()
	g.round = 1
	g.sequence = g.sequence[:0]
	g.startRound()
}

func (g *memorySequence) startRound() {
	g.input = g.input[:0]
	g.sequence = append(g.sequence, g.env.Rand.Intn(len(memoryColors)))
	g.phase = memoryShowing
	g.lit = -1
	g.after(memoryLeadIn, func() { g.showStep(0) })
}

func (g *memorySequence) showStep(i int) {
	if i >= len(g.sequence) {
		g.phase = memoryInput
		g.lit = -1
		return
	}
	g.flash(g.sequence[i])
	g.after(memoryStep, func() { g.showStep(i + 1) })
}

func (g *memorySequence) flash(pad int) {
	g.lit = pad
	g.after(memoryFlash, func() {
		if g.lit == pad {
			g.lit = -1
		}
	})
}

func (g *memorySequence) HandleKey(k Key) {
	g.locked(func() {
		if g.resultKey(k, g.restart) || !g.playing() || g.phase != memoryInput {
			return
		}
		d, ok := k.Digit()
		if !ok || d < 1 || d > len(memoryColors) {
			return
		}
		pad := d - 1
		g.input = append(g.input, pad)
		g.flash(pad)

		pos := len(g.input) - 1
		if g.input[pos] != g.sequence[pos] {
			g.fail()
			return
		}
		if len(g.input) < len(g.sequence) {
			return
		}
		g.round++
		if g.round > memoryRounds {
			g.showResult(result{
				success:  true,
				headline: "Memory Master!",
				detail: []string{
					fmt.Sprintf("Amazing! You completed all %d rounds!", memoryRounds),
					"Score: 100/100 points!",
				},
				outcome: Outcome{Success: true, Score: 100, HasScore: true},
			})
			return
		}
		g.phase = memoryBetween
		g.after(memoryNextRound, g.startRound)
	})
}

func (g *memorySequence) fail() {
	cleared := g.round - 1
	score := max(0, cleared*memoryPointsOnRound)
	detail := []string{fmt.Sprintf("You made it to round %d. Try again!", cleared)}
	if cleared > 0 {
		detail = append(detail, fmt.Sprintf("Score: %d/100 points!", score))
	}
	g.showResult(result{
		headline: "Oops!",
		detail:   detail,
		outcome:  Outcome{Score: score, HasScore: true},
	})
}

func (g *memorySequence) View() Frame {
	return g.view(func() Frame {
		pads := make([]string, 0, len(memoryColors))
		for i, name := range memoryColors {
			label := fmt.Sprintf("%d %s", i+1, name)
			if g.lit == i {
				label = "*" + strings.ToUpper(label) + "*"
			} else {
				label = " " + label + " "
			}
			pads = append(pads, "["+label+"]")
		}
		status := "Watch the sequence..."
		switch g.phase {
		case memoryInput:
			status = fmt.Sprintf("Now repeat the sequence! %d/%d", len(g.input), len(g.sequence))
		case memoryBetween:
			status = "Correct! Next round..."
		}
		return Frame{
			Status: fmt.Sprintf("Round %d of %d", min(g.round, memoryRounds), memoryRounds),
			Lines:  []string{strings.Join(pads[:2], "  "), strings.Join(pads[2:], "  "), "", status},
			Help:   "1-4 press a pad",
		}
	})
}
