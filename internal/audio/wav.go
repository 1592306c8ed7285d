package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavBitDepth    = 16
	wavFormatPCM   = 1
	defaultWAVPath = "qrq.wav"
)

// WAV writes every drained utterance to a 16-bit PCM file. The first
// utterance goes to the configured path, later ones get a numeric suffix.
type WAV struct {
	path   string
	format Format

	mu      sync.Mutex
	opened  bool
	pending []int16
	written []string
}

// NewWAV creates a WAV file sink
func NewWAV(path string, format Format) *WAV {
	if path == "" {
		path = defaultWAVPath
	}
	if format.Channels < 1 {
		format.Channels = 1
	}
	return &WAV{path: path, format: format}
}

// Open marks the sink ready; files are created on Drain.
func (w *WAV) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.opened = true
	return nil
}

// Write queues samples for the next file
func (w *WAV) Write(samples []int16) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.opened {
		return ErrNotOpen
	}
	w.pending = append(w.pending, interleave(samples, w.format.Channels)...)
	return nil
}

// Drain encodes the queued samples into the next file
func (w *WAV) Drain() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.opened {
		return ErrNotOpen
	}
	if len(w.pending) == 0 {
		return nil
	}

	path := w.nextPath()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	enc := wav.NewEncoder(f, w.format.SampleRate, wavBitDepth, w.format.Channels, wavFormatPCM)
	data := make([]int, len(w.pending))
	for i, s := range w.pending {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: w.format.SampleRate, NumChannels: w.format.Channels},
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finish wav: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}

	w.pending = w.pending[:0]
	w.written = append(w.written, path)
	return nil
}

func (w *WAV) nextPath() string {
	if len(w.written) == 0 {
		return w.path
	}
	ext := filepath.Ext(w.path)
	base := strings.TrimSuffix(w.path, ext)
	return fmt.Sprintf("%s-%d%s", base, len(w.written)+1, ext)
}

// Files returns the paths written so far
func (w *WAV) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.written...)
}

// Close discards anything not yet drained
func (w *WAV) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.opened = false
	w.pending = nil
	return nil
}
