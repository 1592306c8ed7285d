package audio

import (
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
)

// Pulse plays utterances through a PulseAudio server. The client connection
// is opened once; each drained utterance uses its own playback stream.
type Pulse struct {
	sinkID string
	format Format

	mu      sync.Mutex
	client  *pulse.Client
	sink    *pulse.Sink
	closed  bool
	pending []int16
}

// NewPulse creates a PulseAudio sink. An empty sinkID uses the server default.
func NewPulse(sinkID string, format Format) *Pulse {
	if format.Channels < 1 {
		format.Channels = 1
	}
	return &Pulse{sinkID: sinkID, format: format}
}

// Open connects to the server. Calling Open on an open sink is a no-op.
func (p *Pulse) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.client != nil {
		return nil
	}

	client, err := pulse.NewClient(pulse.ClientApplicationName("qrq"))
	if err != nil {
		return fmt.Errorf("connect pulseaudio: %w", err)
	}
	if p.sinkID != "" {
		sink, err := client.SinkByID(p.sinkID)
		if err != nil {
			client.Close()
			return fmt.Errorf("pulseaudio sink %q: %w", p.sinkID, err)
		}
		p.sink = sink
	}
	p.client = client
	return nil
}

// Write queues samples for the next Drain
func (p *Pulse) Write(samples []int16) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return ErrNotOpen
	}
	p.pending = append(p.pending, interleave(samples, p.format.Channels)...)
	return nil
}

// Drain plays the queued samples and blocks until the server has played them.
func (p *Pulse) Drain() error {
	p.mu.Lock()
	client := p.client
	sink := p.sink
	samples := p.pending
	p.pending = nil
	p.mu.Unlock()

	if client == nil {
		return ErrNotOpen
	}
	if len(samples) == 0 {
		return nil
	}

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})

	opts := []pulse.PlaybackOption{
		pulse.PlaybackSampleRate(p.format.SampleRate),
		pulse.PlaybackLatency(0.1),
	}
	if p.format.Channels == 2 {
		opts = append(opts, pulse.PlaybackStereo)
	} else {
		opts = append(opts, pulse.PlaybackMono)
	}
	if sink != nil {
		opts = append(opts, pulse.PlaybackSink(sink))
	}

	stream, err := client.NewPlayback(reader, opts...)
	if err != nil {
		return fmt.Errorf("pulseaudio playback: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	stream.Stop()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("pulseaudio playback: %w", err)
	}
	return nil
}

// Close disconnects from the server
func (p *Pulse) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
	p.pending = nil
	return nil
}

// ListPulseSinks returns the ID and description of every sink on the server.
func ListPulseSinks() ([][2]string, error) {
	client, err := pulse.NewClient(pulse.ClientApplicationName("qrq"))
	if err != nil {
		return nil, fmt.Errorf("connect pulseaudio: %w", err)
	}
	defer client.Close()

	sinks, err := client.ListSinks()
	if err != nil {
		return nil, fmt.Errorf("list pulseaudio sinks: %w", err)
	}
	out := make([][2]string, len(sinks))
	for i, s := range sinks {
		out[i] = [2]string{s.ID(), s.Name()}
	}
	return out, nil
}
