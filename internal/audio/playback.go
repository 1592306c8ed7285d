package audio

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// PlaybackConfig holds malgo output device configuration
type PlaybackConfig struct {
	DeviceName string // substring of the device name, empty for default
	SampleRate uint32 // e.g., 44100
	Channels   uint32 // 1 for mono, 2 for stereo
	BufferSize uint32 // frames per callback
}

// DefaultPlaybackConfig returns sensible defaults for tone playback
func DefaultPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{
		SampleRate: 44100,
		Channels:   1,
		BufferSize: 512,
	}
}

// Playback plays utterances through a malgo output device. The device is
// started on Open and keeps running, emitting silence between utterances.
type Playback struct {
	config PlaybackConfig
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	opened bool
	closed bool
	mu     sync.Mutex

	// teardown stops the device and frees the context. It runs without mu
	// held so an in-flight data callback can finish.
	teardown func() error

	// pending holds little-endian S16 frames not yet consumed by the device
	pending []byte
	drained chan struct{}
	// written is set when samples were queued since the last Drain
	written bool
}

// NewPlayback creates a new playback sink
func NewPlayback(cfg PlaybackConfig) *Playback {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultPlaybackConfig().SampleRate
	}
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = DefaultPlaybackConfig().BufferSize
	}
	return &Playback{config: cfg}
}

// Open initializes the audio backend and starts the device. Calling Open on
// an open sink is a no-op.
func (p *Playback) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.opened {
		return nil
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}

	deviceConfig := malgo.DeviceConfig{
		DeviceType:         malgo.Playback,
		SampleRate:         p.config.SampleRate,
		PeriodSizeInFrames: p.config.BufferSize,
		Playback: malgo.SubConfig{
			Format:   malgo.FormatS16,
			Channels: p.config.Channels,
		},
	}

	if p.config.DeviceName != "" {
		infos, err := ctx.Devices(malgo.Playback)
		if err != nil {
			_ = ctx.Uninit()
			ctx.Free()
			return fmt.Errorf("enumerate devices: %w", err)
		}
		info, ok := findDevice(infos, p.config.DeviceName)
		if !ok {
			_ = ctx.Uninit()
			ctx.Free()
			return fmt.Errorf("playback device %q not found (have %d devices)", p.config.DeviceName, len(infos))
		}
		deviceConfig.Playback.DeviceID = info.ID.Pointer()
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: p.onSendFrames,
	})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("init device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("start device: %w", err)
	}

	p.ctx = ctx
	p.device = device
	p.opened = true
	p.teardown = func() error {
		_ = device.Stop()
		device.Uninit()
		if err := ctx.Uninit(); err != nil {
			return fmt.Errorf("uninit context: %w", err)
		}
		ctx.Free()
		return nil
	}
	return nil
}

func findDevice(infos []malgo.DeviceInfo, name string) (malgo.DeviceInfo, bool) {
	name = strings.ToLower(name)
	for _, info := range infos {
		if strings.Contains(strings.ToLower(info.Name()), name) {
			return info, true
		}
	}
	return malgo.DeviceInfo{}, false
}

// Write queues samples for playback
func (p *Playback) Write(samples []int16) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.opened {
		return ErrNotOpen
	}
	p.pending = appendS16LE(p.pending, interleave(samples, int(p.config.Channels)))
	if len(samples) > 0 {
		p.written = true
	}
	return nil
}

// Drain blocks until every queued sample has been handed to the device and
// one more period has elapsed for the hardware to play it. It returns at
// once when nothing was written since the last Drain.
func (p *Playback) Drain() error {
	p.mu.Lock()
	if !p.opened {
		p.mu.Unlock()
		return ErrNotOpen
	}
	if !p.written {
		p.mu.Unlock()
		return nil
	}
	p.written = false
	var drained chan struct{}
	if len(p.pending) > 0 {
		if p.drained == nil {
			p.drained = make(chan struct{})
		}
		drained = p.drained
	}
	p.mu.Unlock()

	if drained != nil {
		<-drained
	}
	time.Sleep(p.periodDuration())
	return nil
}

func (p *Playback) periodDuration() time.Duration {
	return time.Duration(p.config.BufferSize) * time.Second / time.Duration(p.config.SampleRate)
}

// onSendFrames is the device data callback; it must not block.
func (p *Playback) onSendFrames(output, _ []byte, _ uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := copy(output, p.pending)
	p.pending = p.pending[n:]
	clear(output[n:])

	if len(p.pending) == 0 {
		p.pending = nil
		if p.drained != nil {
			close(p.drained)
			p.drained = nil
		}
	}
}

// ListDevices returns available playback devices. It does not require Open.
func (p *Playback) ListDevices() ([]malgo.DeviceInfo, error) {
	p.mu.Lock()
	ctx := p.ctx
	p.mu.Unlock()

	if ctx == nil {
		tmp, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return nil, fmt.Errorf("init audio context: %w", err)
		}
		defer func() {
			_ = tmp.Uninit()
			tmp.Free()
		}()
		ctx = tmp
	}

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return infos, nil
}

// IsOpen returns true if the device is running
func (p *Playback) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opened
}

// Close releases all audio resources
func (p *Playback) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.opened = false
	teardown := p.teardown
	p.teardown = nil
	p.device = nil
	p.ctx = nil
	if p.drained != nil {
		close(p.drained)
		p.drained = nil
	}
	p.pending = nil
	p.written = false
	p.mu.Unlock()

	// Stop waits for the data callback, which takes mu
	if teardown != nil {
		return teardown()
	}
	return nil
}

// appendS16LE converts samples to little-endian bytes
func appendS16LE(dst []byte, samples []int16) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
	}
	return dst
}
