package minigame

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	traceWidth      = 21
	traceHeight     = 11
	traceSpikes     = 5
	traceInnerRatio = 0.4
	traceFinishWait = 2000 * time.Millisecond
	tracePassAbove  = 30
)

// traceShape asks the player to trace a dotted star with a pen cursor.
// Accuracy is the share of the outline covered, less a penalty for ink off
// the line.
type traceShape struct {
	session
	outline   map[int]bool
	drawn     map[int]bool
	x, y      int
	penDown   bool
	canFinish bool
}

func newTraceShape(env Env, done Completion) Game {
	g := &traceShape{outline: starOutline(traceWidth, traceHeight)}
	g.init("Trace the Star", env, done)
	return g
}

// starOutline rasterises a five-point star centred in a w x h cell grid. The
// horizontal radius is doubled to offset terminal cell aspect.
func starOutline(w, h int) map[int]bool {
	cx, cy := float64(w/2), float64(h/2)
	ry := float64(h / 2)
	rx := float64(w / 2)
	type pt struct{ x, y int }
	points := make([]pt, 0, traceSpikes*2)
	rot := math.Pi / 2 * 3
	step := math.Pi / traceSpikes
	for i := 0; i < traceSpikes*2; i++ {
		scale := 1.0
		if i%2 == 1 {
			scale = traceInnerRatio
		}
		points = append(points, pt{
			x: int(math.Round(cx + math.Cos(rot)*rx*scale)),
			y: int(math.Round(cy + math.Sin(rot)*ry*scale)),
		})
		rot += step
	}
	out := map[int]bool{}
	for i := range points {
		a, b := points[i], points[(i+1)%len(points)]
		for _, c := range lineCells(a.x, a.y, b.x, b.y) {
			if c[0] >= 0 && c[0] < w && c[1] >= 0 && c[1] < h {
				out[c[1]*w+c[0]] = true
			}
		}
	}
	return out
}

// lineCells is Bresenham's line between two cells, inclusive.
func lineCells(x0, y0, x1, y1 int) [][2]int {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	errv := dx + dy
	var out [][2]int
	for {
		out = append(out, [2]int{x0, y0})
		if x0 == x1 && y0 == y1 {
			return out
		}
		e2 := 2 * errv
		if e2 >= dy {
			errv += dy
			x0 += sx
		}
		if e2 <= dx {
			errv += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (g *traceShape) Start() {
	g.locked(func() {
		if g.startOnce() {
			g.restart()
		}
	})
}

func (g *traceShape) restart() {
	g.resetTimersLocked()
	g.drawn = map[int]bool{}
	g.x, g.y = traceWidth/2, 0
	g.penDown = false
	g.canFinish = false
	g.after(traceFinishWait, func() { g.canFinish = true })
}

func (g *traceShape) HandleKey(k Key) {
	g.locked(func() {
		if g.resultKey(k, g.restart) || !g.playing() {
			return
		}
		switch k.Code {
		case KeyUp:
			g.move(0, -1)
		case KeyDown:
			g.move(0, 1)
		case KeyLeft:
			g.move(-1, 0)
		case KeyRight:
			g.move(1, 0)
		case KeySpace:
			g.penDown = !g.penDown
			g.ink()
		case KeyEnter:
			if g.canFinish {
				g.evaluate()
			}
		case KeyRune:
			if k.Rune == 'c' || k.Rune == 'C' {
				g.drawn = map[int]bool{}
			}
		}
	})
}

func (g *traceShape) move(dx, dy int) {
	g.x = max(0, min(traceWidth-1, g.x+dx))
	g.y = max(0, min(traceHeight-1, g.y+dy))
	g.ink()
}

func (g *traceShape) ink() {
	if g.penDown {
		g.drawn[g.y*traceWidth+g.x] = true
	}
}

// accuracy returns the current trace accuracy in [0,100].
func (g *traceShape) accuracy() int {
	if len(g.outline) == 0 {
		return 0
	}
	covered, stray := 0, 0
	for cell := range g.drawn {
		if g.outline[cell] {
			covered++
		} else {
			stray++
		}
	}
	score := covered*100/len(g.outline) - stray*50/len(g.outline)
	return max(0, min(100, score))
}

func (g *traceShape) evaluate() {
	acc := g.accuracy()
	success := acc > tracePassAbove
	r := result{
		success: success,
		detail:  []string{fmt.Sprintf("Accuracy: %d%%", acc)},
		outcome: Outcome{Success: success},
	}
	if success {
		r.headline = "Beautiful Star!"
		r.detail = append(r.detail, "Nice artistic skills!")
	} else {
		r.headline = "Not Quite!"
		r.detail = append(r.detail, "Try to follow the dotted line more closely.")
	}
	g.showResult(r)
}

func (g *traceShape) View() Frame {
	return g.view(func() Frame {
		lines := make([]string, 0, traceHeight+2)
		for y := 0; y < traceHeight; y++ {
			var b strings.Builder
			for x := 0; x < traceWidth; x++ {
				cell := y*traceWidth + x
				switch {
				case x == g.x && y == g.y:
					b.WriteByte('@')
				case g.drawn[cell] && g.outline[cell]:
					b.WriteByte('#')
				case g.drawn[cell]:
					b.WriteByte('+')
				case g.outline[cell]:
					b.WriteByte('.')
				default:
					b.WriteByte(' ')
				}
			}
			lines = append(lines, b.String())
		}
		pen := "up"
		if g.penDown {
			pen = "down"
		}
		help := "arrows move • space pen • c clear"
		if g.canFinish {
			help += " • enter finished drawing"
		}
		return Frame{
			Status: fmt.Sprintf("Pen: %s   Accuracy: %d%%", pen, g.accuracy()),
			Lines:  lines,
			Help:   help,
		}
	})
}
