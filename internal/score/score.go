// Package score rates a transcription against the sent call and adapts the
// sending speed.
package score

import (
	"strings"
	"unicode"
)

// ExactMark is the annotation of a correct transcription.
const ExactMark = "*"

// MissingMark stands in for characters the operator did not enter.
const MissingMark = '_'

// MaxPartialMistakes is the largest mistake count that still earns points.
const MaxPartialMistakes = 3

// Result is the outcome of one transcription.
type Result struct {
	Expected string
	Entered  string
	Speed    int
	Points   int
	Exact    bool
	// Mistakes counts mismatched positions over the longer of the two strings
	Mistakes int
	// Marks is ExactMark for an exact match, otherwise the entered text with
	// wrong characters lower-cased and missing ones shown as MissingMark
	Marks string
}

// Score compares entered with expected at speed (cpm). An exact match earns
// 2·len·speed. With 1 to MaxPartialMistakes mistakes it earns
// 2·n·speed/(5·mistakes), n being the longer length; more earn nothing.
func Score(expected, entered string, speed int) Result {
	r := Result{Expected: expected, Entered: entered, Speed: speed}

	if expected == entered {
		r.Exact = true
		r.Marks = ExactMark
		r.Points = 2 * len(expected) * speed
		return r
	}

	want, got := []rune(expected), []rune(entered)
	n := max(len(want), len(got))

	var marks strings.Builder
	for i := 0; i < n; i++ {
		var w, g rune
		if i < len(want) {
			w = want[i]
		}
		if i < len(got) {
			g = got[i]
		}
		switch {
		case w == g:
			marks.WriteRune(g)
		case g == 0:
			r.Mistakes++
			marks.WriteRune(MissingMark)
		default:
			r.Mistakes++
			marks.WriteRune(unicode.ToLower(g))
		}
	}
	r.Marks = marks.String()

	// Distinct invalid UTF-8 inputs can decode to equal runes
	if r.Mistakes > 0 && r.Mistakes <= MaxPartialMistakes {
		r.Points = 2 * n * speed / (5 * r.Mistakes)
	}
	return r
}

// Adapter defaults
const (
	DefaultStep  = 10
	DefaultFloor = 20
)

// Adapter moves the sending speed after every call.
type Adapter struct {
	// Fixed keeps the speed constant
	Fixed bool
	// Step is added after a correct call and removed after a wrong one
	Step int
	// Floor is the lowest speed a decrease may produce
	Floor int
}

// NewAdapter returns an adapter with the default step and floor.
func NewAdapter(fixed bool) Adapter {
	return Adapter{Fixed: fixed, Step: DefaultStep, Floor: DefaultFloor}
}

// Adapt returns the speed and maximum speed after r. The maximum is taken
// from the speed the call was sent at, before any increase.
func (a Adapter) Adapt(r Result, speed, maxSpeed int) (int, int) {
	if r.Exact {
		if speed > maxSpeed {
			maxSpeed = speed
		}
		if !a.Fixed {
			speed += a.Step
		}
		return speed, maxSpeed
	}
	if !a.Fixed && speed-a.Step >= a.Floor {
		speed -= a.Step
	}
	return speed, maxSpeed
}
