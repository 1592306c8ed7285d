package morse

import (
	"errors"
	"fmt"

	"github.com/ColonelBlimp/qrq/internal/synth"
)

// Timing ratios in dit units (ITU)
const (
	// DahDitRatio is the ratio of dah duration to dit duration
	DahDitRatio = 3
	// InterCharSpaceRatio is the space between characters
	InterCharSpaceRatio = 3
	// WordSpaceRatio is the space between words
	WordSpaceRatio = 7

	// SamplesPerDitFactor turns a speed in characters per minute into a dit
	// length: dit seconds = 6 / cpm (60 s / (cpm/5 words * 50 dits per word)).
	SamplesPerDitFactor = 6

	// LeadInDivisor sets the silence before every utterance to sampleRate/4.
	LeadInDivisor = 4
)

var (
	// ErrInvalidSpeed indicates the sending speed must be positive
	ErrInvalidSpeed = errors.New("speed must be positive")
	// ErrInvalidSampleRate indicates the sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
)

// Timing holds the segment lengths in samples for one speed setting.
type Timing struct {
	// CharSpeed is the speed individual characters are keyed at (cpm)
	CharSpeed int
	// Farnsworth is true when characters are keyed faster than the overall speed
	Farnsworth bool
	// Dot is the dit length at CharSpeed
	Dot int
	// Dash is the dah length at CharSpeed
	Dash int
	// SpacingDot is the dit length of the overall speed; equal to Dot unless Farnsworth
	SpacingDot int
	// CharGap is the silence appended after each character's last element gap
	CharGap int
	// WordGap is the extra silence for a space, on top of CharGap
	WordGap int
}

// NewTiming computes segment lengths for speed (cpm). Characters below
// minCharSpeed are keyed at minCharSpeed with the spacing stretched so the
// overall speed is still speed.
func NewTiming(speed, minCharSpeed, sampleRate int) (Timing, error) {
	if speed <= 0 {
		return Timing{}, fmt.Errorf("%w, got %d", ErrInvalidSpeed, speed)
	}
	if sampleRate <= 0 {
		return Timing{}, fmt.Errorf("%w, got %d", ErrInvalidSampleRate, sampleRate)
	}

	t := Timing{CharSpeed: speed}
	if speed < minCharSpeed {
		t.CharSpeed = minCharSpeed
		t.Farnsworth = true
	}
	t.Dot = sampleRate * SamplesPerDitFactor / t.CharSpeed
	t.Dash = DahDitRatio * t.Dot
	t.SpacingDot = sampleRate * SamplesPerDitFactor / speed

	// Each element is already followed by one dot of silence.
	if t.Farnsworth {
		t.CharGap = InterCharSpaceRatio*t.SpacingDot - t.Dot
	} else {
		t.CharGap = (InterCharSpaceRatio - 1) * t.Dot
	}
	t.WordGap = (WordSpaceRatio - InterCharSpaceRatio) * t.SpacingDot
	return t, nil
}

// Params configures one utterance.
type Params struct {
	// Speed is the overall sending speed in characters per minute
	Speed int
	// MinCharSpeed activates Farnsworth timing below this speed (0 = off)
	MinCharSpeed int
	// Frequency is the tone pitch in Hz
	Frequency float64
	// Shape is the tone waveform
	Shape synth.Shape
	// EdgeMs is the rise/fall time in milliseconds
	EdgeMs float64
}

// Encoder renders text into a synth.Buffer.
type Encoder struct {
	sampleRate int
}

// NewEncoder creates an encoder for the given sample rate.
func NewEncoder(sampleRate int) (*Encoder, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidSampleRate, sampleRate)
	}
	return &Encoder{sampleRate: sampleRate}, nil
}

// SampleRate returns the encoder's sample rate.
func (e *Encoder) SampleRate() int {
	return e.sampleRate
}

// Encode appends the lead-in silence and the keyed text to buf.
// Characters outside the table are sent as Unknown.
func (e *Encoder) Encode(buf *synth.Buffer, text string, p Params) error {
	timing, err := NewTiming(p.Speed, p.MinCharSpeed, e.sampleRate)
	if err != nil {
		return err
	}

	// Tones grow by the edge and the following pause shrinks by it, so the
	// key-down time keeps its nominal length.
	edge := min(synth.EdgeSamples(p.EdgeMs, e.sampleRate), timing.Dot)

	buf.Silence(e.sampleRate / LeadInDivisor)

	for _, r := range text {
		if r == ' ' {
			buf.Silence(timing.WordGap)
			continue
		}
		pattern, _ := Lookup(r)
		for _, el := range pattern {
			length := timing.Dot
			if Element(el) == Dah {
				length = timing.Dash
			}
			buf.Add(synth.Tone{
				Frequency: p.Frequency,
				Length:    length + edge,
				Shape:     p.Shape,
				Edge:      edge,
			})
			buf.Silence(timing.Dot - edge)
		}
		buf.Silence(timing.CharGap)
	}
	return nil
}
