package minigame

import (
	"fmt"
	"strings"
	"time"
)

const (
	quickMathProblems     = 8
	quickMathPass         = 6
	quickMathTimeLimit    = 4 * time.Second
	quickMathFeedback     = 1000 * time.Millisecond
	quickMathPerfectBonus = 10
)

type mathPhase int

const (
	mathIntro mathPhase = iota
	mathAsking
	mathFeedback
)

type mathProblem struct {
	question string
	answer   int
	options  []int
}

// quickMath is eight timed multiple-choice sums. Six correct answers pass.
type quickMath struct {
	session
	phase    mathPhase
	index    int
	correct  int
	problem  mathProblem
	deadline time.Time
	picked   int
}

func newQuickMath(env Env, done Completion) Game {
	g := &quickMath{}
	g.init("Quick Math", env, done)
	return g
}

func (g *quickMath) Start() {
	g.locked(func() {
		if g.startOnce() {
			g.restart()
		}
	})
}

func (g *quickMath) restart() {
	g.resetTimersLocked()
	g.phase = mathIntro
	g.index = 0
	g.correct = 0
}

func (g *quickMath) next() {
	if g.index >= quickMathProblems {
		g.finish()
		return
	}
	g.problem = g.generate()
	g.picked = mathTimedOut
	g.phase = mathAsking
	g.deadline = g.env.Clock.Now().Add(quickMathTimeLimit)
	index := g.index
	g.after(quickMathTimeLimit, func() {
		if g.phase == mathAsking && g.index == index {
			g.answer(mathTimedOut)
		}
	})
}

func (g *quickMath) generate() mathProblem {
	r := g.env.Rand
	var p mathProblem
	switch r.Intn(3) {
	case 0:
		a, b := r.Intn(20)+1, r.Intn(20)+1
		p.question, p.answer = fmt.Sprintf("%d + %d", a, b), a+b
	case 1:
		a, b := r.Intn(20)+10, r.Intn(10)+1
		p.question, p.answer = fmt.Sprintf("%d - %d", a, b), a-b
	default:
		a, b := r.Intn(9)+2, r.Intn(9)+2
		p.question, p.answer = fmt.Sprintf("%d x %d", a, b), a*b
	}
	p.options = []int{p.answer}
	for len(p.options) < 4 {
		wrong := p.answer + r.Intn(10) - 5
		if wrong > 0 && !containsPos(p.options, wrong) {
			p.options = append(p.options, wrong)
		}
	}
	r.Shuffle(len(p.options), func(i, j int) {
		p.options[i], p.options[j] = p.options[j], p.options[i]
	})
	return p
}

// mathTimedOut is never a valid answer; problems have no negative results.
const mathTimedOut = -1

// answer scores the current problem.
func (g *quickMath) answer(value int) {
	if value == g.problem.answer {
		g.correct++
	}
	g.picked = value
	g.phase = mathFeedback
	g.index++
	g.after(quickMathFeedback, g.next)
}

func (g *quickMath) HandleKey(k Key) {
	g.locked(func() {
		if g.resultKey(k, g.restart) || !g.playing() {
			return
		}
		switch g.phase {
		case mathIntro:
			if k.Code == KeyEnter || k.Code == KeySpace {
				g.next()
			}
		case mathAsking:
			d, ok := k.Digit()
			if !ok || d < 1 || d > len(g.problem.options) {
				return
			}
			g.answer(g.problem.options[d-1])
		}
	})
}

// QuickMathScore is the score for correct answers out of eight: the
// percentage rounded down plus a bonus for a perfect run, capped at 100.
func QuickMathScore(correct int) int {
	base := correct * 100 / quickMathProblems
	if correct == quickMathProblems {
		base += quickMathPerfectBonus
	}
	return min(100, base)
}

func (g *quickMath) finish() {
	success := g.correct >= quickMathPass
	r := result{
		success: success,
		detail:  []string{fmt.Sprintf("You got %d out of %d correct.", g.correct, quickMathProblems)},
	}
	if success {
		score := QuickMathScore(g.correct)
		r.headline = "Math Whiz!"
		r.detail = append(r.detail, fmt.Sprintf("Score: %d/100 points!", score))
		r.outcome = Outcome{Success: true, Score: score, HasScore: true}
	} else {
		r.headline = "Keep Practicing!"
		r.detail = append(r.detail, fmt.Sprintf("You need at least %d correct to pass.", quickMathPass))
		r.outcome = Outcome{Score: 0, HasScore: true}
	}
	g.showResult(r)
}

func (g *quickMath) View() Frame {
	return g.view(func() Frame {
		if g.phase == mathIntro {
			return Frame{
				Status: fmt.Sprintf("%d problems, %d seconds each", quickMathProblems, int(quickMathTimeLimit.Seconds())),
				Lines:  []string{"Solve the problems before time runs out!", "", "Press enter to start."},
				Help:   "enter start",
			}
		}
		opts := make([]string, 0, len(g.problem.options))
		for i, v := range g.problem.options {
			mark := " "
			if g.phase == mathFeedback {
				switch {
				case v == g.problem.answer:
					mark = "+"
				case v == g.picked:
					mark = "x"
				}
			}
			opts = append(opts, fmt.Sprintf("%s%d) %d", mark, i+1, v))
		}
		remaining := g.deadline.Sub(g.env.Clock.Now())
		if g.phase != mathAsking || remaining < 0 {
			remaining = 0
		}
		bar := int(remaining * 20 / quickMathTimeLimit)
		question := min(g.index+1, quickMathProblems)
		if g.phase == mathFeedback {
			question = g.index
		}
		return Frame{
			Status: fmt.Sprintf("Problem %d of %d   Correct: %d", question, quickMathProblems, g.correct),
			Lines: []string{
				g.problem.question + " = ?",
				"",
				strings.Join(opts, "   "),
				"",
				"[" + strings.Repeat("#", bar) + strings.Repeat(".", 20-bar) + "]",
			},
			Help: "1-4 choose an answer",
		}
	})
}
