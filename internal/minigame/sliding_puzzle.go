package minigame

import (
	"fmt"
	"time"
)

const (
	slidingShuffleMoves = 100
	slidingWinDelay     = 300 * time.Millisecond
)

var slidingSolved = [9]int{1, 2, 3, 4, 5, 6, 7, 8, 0}

// slidingPuzzle is the 8-puzzle. Arrow keys slide a tile into the gap; a
// digit slides that tile if it is next to the gap.
type slidingPuzzle struct {
	session
	tiles   [9]int
	moves   int
	solving bool
}

func newSlidingPuzzle(env Env, done Completion) Game {
	g := &slidingPuzzle{}
	g.init("Sliding Puzzle", env, done)
	return g
}

func (g *slidingPuzzle) Start() {
	g.locked(func() {
		if g.startOnce() {
			g.restart()
		}
	})
}

func (g *slidingPuzzle) restart() {
	g.resetTimersLocked()
	g.moves = 0
	g.solving = false
	g.tiles = g.shuffle()
}

// shuffle walks random legal moves from the solved board, so the result is
// always solvable.
func (g *slidingPuzzle) shuffle() [9]int {
	for {
		tiles := slidingSolved
		for i := 0; i < slidingShuffleMoves; i++ {
			gap := indexOf(tiles, 0)
			moves := neighbours(gap)
			next := moves[g.env.Rand.Intn(len(moves))]
			tiles[gap], tiles[next] = tiles[next], tiles[gap]
		}
		if tiles != slidingSolved {
			return tiles
		}
	}
}

func neighbours(pos int) []int {
	row, col := pos/3, pos%3
	out := make([]int, 0, 4)
	if row > 0 {
		out = append(out, pos-3)
	}
	if row < 2 {
		out = append(out, pos+3)
	}
	if col > 0 {
		out = append(out, pos-1)
	}
	if col < 2 {
		out = append(out, pos+1)
	}
	return out
}

func indexOf(tiles [9]int, v int) int {
	for i, t := range tiles {
		if t == v {
			return i
		}
	}
	return -1
}

func (g *slidingPuzzle) HandleKey(k Key) {
	g.locked(func() {
		if g.resultKey(k, g.restart) || !g.playing() || g.solving {
			return
		}
		gap := indexOf(g.tiles, 0)
		from := -1
		switch k.Code {
		case KeyUp:
			if gap/3 < 2 {
				from = gap + 3
			}
		case KeyDown:
			if gap/3 > 0 {
				from = gap - 3
			}
		case KeyLeft:
			if gap%3 < 2 {
				from = gap + 1
			}
		case KeyRight:
			if gap%3 > 0 {
				from = gap - 1
			}
		default:
			if d, ok := k.Digit(); ok && d >= 1 && d <= 8 {
				from = indexOf(g.tiles, d)
			}
		}
		if from < 0 || !containsPos(neighbours(gap), from) {
			return
		}
		g.tiles[gap], g.tiles[from] = g.tiles[from], g.tiles[gap]
		g.moves++
		if g.tiles == slidingSolved {
			g.solving = true
			g.after(slidingWinDelay, func() {
				g.showResult(result{
					success:  true,
					headline: "Puzzle Solved!",
					detail:   []string{fmt.Sprintf("Solved in %d moves.", g.moves), "Great problem-solving skills!"},
					outcome:  Outcome{Success: true},
				})
			})
		}
	})
}

func containsPos(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func (g *slidingPuzzle) View() Frame {
	return g.view(func() Frame {
		lines := cellGrid(func(i int) string {
			if g.tiles[i] == 0 {
				return "[   ]"
			}
			return fmt.Sprintf("[ %d ]", g.tiles[i])
		})
		return Frame{
			Status: fmt.Sprintf("Moves: %d", g.moves),
			Lines:  append(lines, "", "Put the tiles in order 1-8."),
			Help:   "arrows slide into the gap • 1-8 slide a tile",
		}
	})
}
