package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ColonelBlimp/qrq/internal/synth"
)

func TestParams_Speed(t *testing.T) {
	p := Params{InitialSpeed: 20, MinCharSpeed: 10}

	p.SpeedDown()
	assert.Equal(t, 10, p.InitialSpeed)
	p.SpeedDown()
	assert.Equal(t, MinInitialSpeed, p.InitialSpeed, "never below the minimum")
	p.SpeedUp()
	assert.Equal(t, 20, p.InitialSpeed)

	p.CharSpeedDown()
	assert.Zero(t, p.MinCharSpeed)
	p.CharSpeedDown()
	assert.Zero(t, p.MinCharSpeed)
	p.CharSpeedUp()
	assert.Equal(t, 10, p.MinCharSpeed)
}

func TestParams_RiseTime(t *testing.T) {
	p := Params{RiseTime: 0.2}

	p.RiseTimeDown()
	assert.Equal(t, 0.1, p.RiseTime)
	p.RiseTimeDown()
	assert.Equal(t, 0.1, p.RiseTime, "never below one step")

	p.RiseTime = 2.0
	p.RiseTimeUp()
	assert.Equal(t, 2.1, p.RiseTime)

	p.RiseTime = MaxRiseTime
	p.RiseTimeUp()
	p.RiseTimeUp()
	assert.InDelta(t, MaxRiseTime+RiseTimeStep, p.RiseTime, 1e-9)
}

func TestParams_CycleShape(t *testing.T) {
	p := Params{Shape: synth.Sine}
	seen := map[synth.Shape]bool{p.Shape: true}
	for i := 0; i < 2; i++ {
		p.CycleShape()
		seen[p.Shape] = true
	}
	assert.Len(t, seen, 3)
	p.CycleShape()
	assert.Equal(t, synth.Sine, p.Shape)
}

func TestParams_Tone(t *testing.T) {
	tests := []struct {
		name         string
		start        Params
		op           func(*Params)
		wantConstant bool
		wantFreq     int
	}{
		{"up enables constant", Params{ToneFreq: 800}, (*Params).ToneUp, true, 800},
		{"up raises", Params{ConstantTone: true, ToneFreq: 800}, (*Params).ToneUp, true, 810},
		{"up capped", Params{ConstantTone: true, ToneFreq: MaxTone}, (*Params).ToneUp, true, MaxTone},
		{"down lowers", Params{ConstantTone: true, ToneFreq: 800}, (*Params).ToneDown, true, 790},
		{"down at floor disables", Params{ConstantTone: true, ToneFreq: 155}, (*Params).ToneDown, false, 155},
		{"toggle", Params{ToneFreq: 700}, (*Params).ToggleConstantTone, true, 700},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.start
			tt.op(&p)
			assert.Equal(t, tt.wantConstant, p.ConstantTone)
			assert.Equal(t, tt.wantFreq, p.ToneFreq)
		})
	}
}

func TestParams_TrainingModes(t *testing.T) {
	var p Params
	assert.False(t, p.Training())

	for _, toggle := range []func(*Params){
		(*Params).ToggleUnlimitedRepeat,
		(*Params).ToggleFixSpeed,
		(*Params).ToggleUnlimitedAttempt,
	} {
		toggle(&p)
		assert.True(t, p.Training())
		toggle(&p)
		assert.False(t, p.Training())
	}
}

func TestParams_TestTone(t *testing.T) {
	p := Params{ToneFreq: 650}
	assert.Equal(t, DefaultTone, p.TestTone())
	p.ConstantTone = true
	assert.Equal(t, 650.0, p.TestTone())
}

func TestParams_Keying(t *testing.T) {
	p := Params{MinCharSpeed: 100, RiseTime: 3, Shape: synth.Sine}
	k := p.keying(250, 700)
	assert.Equal(t, 250, k.Speed)
	assert.Equal(t, 100, k.MinCharSpeed)
	assert.Equal(t, 700.0, k.Frequency)
	assert.Equal(t, 3.0, k.EdgeMs)
	assert.Equal(t, synth.Sine, k.Shape)
}

func TestNormalizeCall(t *testing.T) {
	tests := map[string]string{
		"":            NoCall,
		"   ":         NoCall,
		"dj1yfk":      "DJ1YFK",
		" w1aw \n":    "W1AW",
		"VK2ABCDEFGH": "VK2ABCD",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeCall(in), "NormalizeCall(%q)", in)
	}
}
