package synth

import "time"

// DefaultMaxDuration bounds a single utterance.
const DefaultMaxDuration = 20 * time.Second

// Buffer accumulates the samples of one utterance before it is handed to the
// audio sink. It grows on demand up to a fixed maximum duration; samples past
// the cap are dropped and the buffer reports itself truncated.
type Buffer struct {
	sampleRate int
	maxSamples int
	samples    []int16
	truncated  bool
}

// NewBuffer returns an empty buffer holding at most maxDuration of audio at sampleRate.
// A non-positive maxDuration selects DefaultMaxDuration.
func NewBuffer(sampleRate int, maxDuration time.Duration) *Buffer {
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}
	maxSamples := int(int64(sampleRate) * int64(maxDuration) / int64(time.Second))
	return &Buffer{
		sampleRate: sampleRate,
		maxSamples: maxSamples,
		samples:    make([]int16, 0, min(maxSamples, sampleRate)),
	}
}

// SampleRate returns the rate the buffer was created for.
func (b *Buffer) SampleRate() int {
	return b.sampleRate
}

// MaxSamples returns the capacity limit in samples.
func (b *Buffer) MaxSamples() int {
	return b.maxSamples
}

// Add generates tone t into the buffer.
func (b *Buffer) Add(t Tone) {
	if b.truncated {
		return
	}
	b.samples = Generate(b.samples, t, b.sampleRate)
	if len(b.samples) > b.maxSamples {
		b.samples = b.samples[:b.maxSamples]
		b.truncated = true
	}
}

// Silence appends n nominal samples of silence.
func (b *Buffer) Silence(n int) {
	b.Add(Tone{Length: n, Shape: Silence})
}

// Samples returns the buffered samples. The slice is only valid until the next Reset.
func (b *Buffer) Samples() []int16 {
	return b.samples
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Duration returns the playing time of the buffered samples.
func (b *Buffer) Duration() time.Duration {
	if b.sampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(len(b.samples)) * int64(time.Second) / int64(b.sampleRate))
}

// Truncated reports whether samples were dropped because of the duration cap.
func (b *Buffer) Truncated() bool {
	return b.truncated
}

// Reset empties the buffer, keeping its storage.
func (b *Buffer) Reset() {
	b.samples = b.samples[:0]
	b.truncated = false
}
