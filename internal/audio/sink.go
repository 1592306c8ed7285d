// Package audio plays buffered signed 16-bit utterances on an output device.
package audio

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotOpen        = errors.New("audio sink not open")
	ErrClosed         = errors.New("audio sink closed")
	ErrUnknownBackend = errors.New("unknown audio backend")
)

// Backend names accepted by New
const (
	BackendMalgo = "malgo"
	BackendPulse = "pulse"
	BackendWAV   = "wav"
)

// Format describes the sample stream handed to a sink.
type Format struct {
	SampleRate int
	Channels   int
}

// Sink accepts one utterance at a time: Write queues the samples and Drain
// blocks until they have been played. Open is idempotent; the device stays
// open until Close.
type Sink interface {
	Open() error
	Write(samples []int16) error
	Drain() error
	Close() error
}

// Config selects and configures a sink.
type Config struct {
	// Backend is one of malgo, pulse or wav
	Backend string
	// Device names the output device; empty or "default" uses the system default.
	// For the wav backend it is the output file path.
	Device string
	Format Format
	// BufferSize is the device period in frames (malgo)
	BufferSize int
}

// New creates the sink named by cfg.Backend. The device is not opened.
func New(cfg Config) (Sink, error) {
	if cfg.Format.Channels < 1 {
		cfg.Format.Channels = 1
	}
	switch strings.ToLower(cfg.Backend) {
	case "", BackendMalgo:
		return NewPlayback(PlaybackConfig{
			DeviceName: deviceName(cfg.Device),
			SampleRate: uint32(cfg.Format.SampleRate),
			Channels:   uint32(cfg.Format.Channels),
			BufferSize: uint32(cfg.BufferSize),
		}), nil
	case BackendPulse:
		return NewPulse(deviceName(cfg.Device), cfg.Format), nil
	case BackendWAV:
		return NewWAV(cfg.Device, cfg.Format), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}

func deviceName(device string) string {
	device = strings.TrimSpace(device)
	if device == "default" || device == "/dev/dsp" {
		return ""
	}
	return device
}

// interleave duplicates mono samples across channels.
func interleave(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	out := make([]int16, 0, len(samples)*channels)
	for _, s := range samples {
		for c := 0; c < channels; c++ {
			out = append(out, s)
		}
	}
	return out
}
