package minigame

import (
	"fmt"
	"strings"
	"time"
)

const (
	spotDifferences = 3
	spotWinDelay    = 1000 * time.Millisecond
)

var (
	spotScene = [9]string{"star", "tree", "gift", "bell", "moon", "snow", "cake", "sock", "bear"}
	spotSwaps = []string{"ship", "kite", "drum", "frog", "leaf", "lamp"}
)

// spotDifference shows two 3x3 pictures; the right one has three cells
// changed. The player picks cells of the right picture with keys 1-9.
type spotDifference struct {
	session
	right   [9]string
	diffs   map[int]bool
	found   map[int]bool
	winning bool
}

func newSpotDifference(env Env, done Completion) Game {
	g := &spotDifference{}
	g.init("Spot the Difference", env, done)
	return g
}

func (g *spotDifference) Start() {
	g.locked(func() {
		if g.startOnce() {
			g.restart()
		}
	})
}

func (g *spotDifference) restart() {
	g.resetTimersLocked()
	g.right = spotScene
	g.diffs = map[int]bool{}
	g.found = map[int]bool{}
	g.winning = false
	cells := g.env.Rand.Perm(len(spotScene))[:spotDifferences]
	swaps := g.env.Rand.Perm(len(spotSwaps))
	for i, cell := range cells {
		g.right[cell] = spotSwaps[swaps[i]]
		g.diffs[cell] = true
	}
}

func (g *spotDifference) HandleKey(k Key) {
	g.locked(func() {
		if g.resultKey(k, g.restart) || !g.playing() || g.winning {
			return
		}
		cell, ok := cellIndex(k)
		if !ok || !g.diffs[cell] || g.found[cell] {
			return
		}
		g.found[cell] = true
		if len(g.found) < spotDifferences {
			return
		}
		g.winning = true
		g.after(spotWinDelay, func() {
			g.showResult(result{
				success:  true,
				headline: "Eagle Eyes!",
				detail:   []string{"Excellent observation skills!"},
				outcome:  Outcome{Success: true},
			})
		})
	})
}

func (g *spotDifference) View() Frame {
	return g.view(func() Frame {
		left := cellGrid(func(i int) string { return fmt.Sprintf("  %s  ", spotScene[i]) })
		right := cellGrid(func(i int) string {
			if g.found[i] {
				return fmt.Sprintf("%d[%s] ", i+1, strings.ToUpper(g.right[i]))
			}
			return fmt.Sprintf("%d %s  ", i+1, g.right[i])
		})
		lines := []string{"Picture A" + strings.Repeat(" ", len(left[0])-9+4) + "Picture B"}
		for i := range left {
			lines = append(lines, left[i]+"    "+right[i])
		}
		return Frame{
			Status: fmt.Sprintf("Differences found: %d/%d", len(g.found), spotDifferences),
			Lines:  lines,
			Help:   "1-9 pick a cell in picture B",
		}
	})
}
