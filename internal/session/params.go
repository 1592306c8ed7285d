package session

import (
	"math"
	"strings"

	"github.com/ColonelBlimp/qrq/internal/morse"
	"github.com/ColonelBlimp/qrq/internal/synth"
)

// Settings screen limits
const (
	SpeedStep       = 10
	MinInitialSpeed = 10
	RiseTimeStep    = 0.1
	MaxRiseTime     = 9.0
	ToneStep        = 10
	MinTone         = 150
	MaxTone         = 1600
)

// Params are the operator settings that survive across attempts.
type Params struct {
	InitialSpeed int
	MinCharSpeed int
	// RiseTime is the element rise/fall time in milliseconds
	RiseTime float64
	Shape    synth.Shape
	// ConstantTone sends every call at ToneFreq instead of a random pitch
	ConstantTone bool
	ToneFreq     int

	UnlimitedRepeat  bool
	FixSpeed         bool
	UnlimitedAttempt bool

	SampleRate int
}

// Training reports whether a training mode is active. Training attempts
// are not entered into the toplist.
func (p *Params) Training() bool {
	return p.UnlimitedRepeat || p.FixSpeed || p.UnlimitedAttempt
}

func (p *Params) keying(speed int, tone float64) morse.Params {
	return morse.Params{
		Speed:        speed,
		MinCharSpeed: p.MinCharSpeed,
		Frequency:    tone,
		Shape:        p.Shape,
		EdgeMs:       p.RiseTime,
	}
}

// SpeedUp raises the initial speed by SpeedStep.
func (p *Params) SpeedUp() {
	p.InitialSpeed += SpeedStep
}

// SpeedDown lowers the initial speed by SpeedStep, not below MinInitialSpeed.
func (p *Params) SpeedDown() {
	if p.InitialSpeed-SpeedStep >= MinInitialSpeed {
		p.InitialSpeed -= SpeedStep
	}
}

// CharSpeedUp raises the Farnsworth character speed by SpeedStep.
func (p *Params) CharSpeedUp() {
	p.MinCharSpeed += SpeedStep
}

// CharSpeedDown lowers the Farnsworth character speed; reaching 0 turns
// Farnsworth timing off.
func (p *Params) CharSpeedDown() {
	p.MinCharSpeed = max(p.MinCharSpeed-SpeedStep, 0)
}

// RiseTimeUp lengthens the element edges by RiseTimeStep up to MaxRiseTime.
func (p *Params) RiseTimeUp() {
	if p.RiseTime <= MaxRiseTime {
		p.RiseTime = roundTenth(p.RiseTime + RiseTimeStep)
	}
}

// RiseTimeDown shortens the element edges, never below RiseTimeStep.
func (p *Params) RiseTimeDown() {
	if p.RiseTime > RiseTimeStep {
		p.RiseTime = roundTenth(p.RiseTime - RiseTimeStep)
	}
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// CycleShape selects the next waveform.
func (p *Params) CycleShape() {
	p.Shape = p.Shape.Next()
}

// ToneDown lowers the constant pitch; below MinTone it returns to random
// pitch instead.
func (p *Params) ToneDown() {
	if p.ToneFreq >= MinTone+ToneStep {
		p.ToneFreq -= ToneStep
		return
	}
	p.ConstantTone = false
}

// ToneUp switches to constant pitch first, then raises it up to MaxTone.
func (p *Params) ToneUp() {
	if !p.ConstantTone {
		p.ConstantTone = true
		return
	}
	if p.ToneFreq < MaxTone {
		p.ToneFreq = min(p.ToneFreq+ToneStep, MaxTone)
	}
}

// ToggleConstantTone switches between constant and random pitch.
func (p *Params) ToggleConstantTone() {
	p.ConstantTone = !p.ConstantTone
}

func (p *Params) ToggleUnlimitedRepeat() {
	p.UnlimitedRepeat = !p.UnlimitedRepeat
}

func (p *Params) ToggleFixSpeed() {
	p.FixSpeed = !p.FixSpeed
}

func (p *Params) ToggleUnlimitedAttempt() {
	p.UnlimitedAttempt = !p.UnlimitedAttempt
}

// TestTone is the pitch of the settings screen test send.
func (p *Params) TestTone() float64 {
	if p.ConstantTone {
		return float64(p.ToneFreq)
	}
	return DefaultTone
}

// NormalizeCall upper-cases an own callsign, replaces an empty one with
// NoCall and cuts it to MaxCallLength.
func NormalizeCall(call string) string {
	call = strings.ToUpper(strings.TrimSpace(call))
	if call == "" {
		return NoCall
	}
	if len(call) > MaxCallLength {
		call = call[:MaxCallLength]
	}
	return call
}
