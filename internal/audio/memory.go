package audio

import (
	"sync"
	"time"
)

// Memory is a sink that records drained utterances instead of playing them.
// Drain can be made to take a fixed time to stand in for a real device.
type Memory struct {
	// DrainDelay is slept on every Drain with pending samples
	DrainDelay time.Duration
	// WriteErr and DrainErr are returned when set
	WriteErr error
	DrainErr error

	mu         sync.Mutex
	opens      int
	opened     bool
	pending    []int16
	utterances [][]int16
}

// NewMemory creates a recording sink
func NewMemory() *Memory {
	return &Memory{}
}

// Open counts calls; it never fails.
func (m *Memory) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens++
	m.opened = true
	return nil
}

func (m *Memory) Write(samples []int16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.opened {
		return ErrNotOpen
	}
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.pending = append(m.pending, samples...)
	return nil
}

func (m *Memory) Drain() error {
	m.mu.Lock()
	if !m.opened {
		m.mu.Unlock()
		return ErrNotOpen
	}
	if m.DrainErr != nil {
		m.mu.Unlock()
		return m.DrainErr
	}
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return nil
	}
	m.utterances = append(m.utterances, m.pending)
	m.pending = nil
	delay := m.DrainDelay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = false
	return nil
}

// Opens returns how many times Open was called
func (m *Memory) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// Utterances returns a copy of everything drained so far
func (m *Memory) Utterances() [][]int16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]int16, len(m.utterances))
	copy(out, m.utterances)
	return out
}
