// Package synth generates shaped tone and silence segments as signed 16-bit samples.
package synth

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/constraints"
)

// Amplitude is the peak sample value. It stays below the 16-bit limit so
// shaped tones never clip.
const Amplitude = 32500.0

// Shape selects the waveform of a generated segment.
type Shape int

const (
	Silence Shape = iota
	Sine
	Sawtooth
	Square
)

// ErrInvalidShape indicates a waveform that is not sine, sawtooth or square
var ErrInvalidShape = errors.New("waveform must be 1 (sine), 2 (sawtooth) or 3 (square)")

var shapeNames = map[Shape]string{
	Silence:  "Silence",
	Sine:     "Sine",
	Sawtooth: "Sawtooth",
	Square:   "Square",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// Next cycles through the audible shapes: sine, sawtooth, square.
func (s Shape) Next() Shape {
	switch s {
	case Sine:
		return Sawtooth
	case Sawtooth:
		return Square
	default:
		return Sine
	}
}

// ParseShape accepts the config numbers 1..3 or the shape names.
func ParseShape(v string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "sine":
		return Sine, nil
	case "2", "sawtooth", "saw":
		return Sawtooth, nil
	case "3", "square":
		return Square, nil
	}
	return Silence, fmt.Errorf("%w, got %q", ErrInvalidShape, v)
}

// Tone describes one segment to generate.
type Tone struct {
	Frequency float64
	// Length is the nominal segment length in samples. Generate emits Length-1.
	Length int
	Shape  Shape
	// Edge is the rise and fall time in samples.
	Edge int
}

// EdgeSamples converts a rise/fall time in milliseconds to samples.
func EdgeSamples(ms float64, sampleRate int) int {
	if ms <= 0 || sampleRate <= 0 {
		return 0
	}
	return int(float64(sampleRate) * (ms / 1000.0))
}

// Generate appends the samples of tone t to dst and returns the extended slice.
// Exactly t.Length-1 samples are appended; the edge is clamped to half the
// tone length.
func Generate(dst []int16, t Tone, sampleRate int) []int16 {
	n := t.Length - 1
	if n <= 0 {
		return dst
	}
	if t.Shape == Silence || sampleRate <= 0 {
		for i := 0; i < n; i++ {
			dst = append(dst, 0)
		}
		return dst
	}

	edge := clamp(t.Edge, 0, t.Length/2)
	length := float64(t.Length)
	rate := float64(sampleRate)
	for x := 0; x < n; x++ {
		val := waveValue(t.Shape, t.Frequency, float64(x), rate)
		val *= envelope(x, length, edge)
		dst = append(dst, int16(val*Amplitude))
	}
	return dst
}

func waveValue(shape Shape, freq, x, rate float64) float64 {
	switch shape {
	case Sine:
		return math.Sin(2 * math.Pi * freq * x / rate)
	case Sawtooth:
		phase := freq * x / rate
		return (phase - math.Floor(phase)) - 0.5
	case Square:
		return math.Ceil(math.Sin(2*math.Pi*freq*x/rate)) - 0.5
	}
	return 0
}

// envelope returns the sin² ramp factor for sample x of a tone of the given length.
func envelope(x int, length float64, edge int) float64 {
	if edge <= 0 {
		return 1
	}
	e := float64(edge)
	fx := float64(x)
	factor := 1.0
	if x < edge {
		s := math.Sin(math.Pi * fx / (2 * e))
		factor *= s * s
	}
	if fx > length-e {
		s := math.Sin(2 * math.Pi * (fx - (length - e) + e) / (4 * e))
		factor *= s * s
	}
	return factor
}

func clamp[T constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
