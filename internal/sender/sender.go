// Package sender plays utterances in the background, one at a time.
package sender

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ColonelBlimp/qrq/internal/audio"
	"github.com/ColonelBlimp/qrq/internal/morse"
	"github.com/ColonelBlimp/qrq/internal/recovery"
	"github.com/ColonelBlimp/qrq/internal/synth"
)

// Request is one utterance. It carries its own tone so replaying an earlier
// call never disturbs the current one.
type Request struct {
	Text   string
	Params morse.Params
}

// Sender owns the playback buffer and at most one running send task.
type Sender struct {
	enc     *morse.Encoder
	sink    audio.Sink
	buf     *synth.Buffer
	onError func(error)

	// mu serializes Send so the join-then-start sequence is atomic
	mu sync.Mutex

	state    sync.Mutex
	done     chan struct{}
	complete bool
	finished time.Time
	err      error
}

// Option customizes a Sender.
type Option func(*Sender)

// WithErrorHandler replaces the default fatal handler (recovery.Fatal).
func WithErrorHandler(fn func(error)) Option {
	return func(s *Sender) {
		s.onError = fn
	}
}

// New creates a sender that renders with enc into buf and plays on sink.
func New(sink audio.Sink, enc *morse.Encoder, buf *synth.Buffer, opts ...Option) *Sender {
	closed := make(chan struct{})
	close(closed)
	s := &Sender{
		enc:      enc,
		sink:     sink,
		buf:      buf,
		onError:  recovery.Fatal,
		done:     closed,
		complete: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send waits for any outstanding task, then starts playing req in the
// background. The returned channel is closed once playback has drained.
func (s *Sender) Send(req Request) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Wait()

	done := make(chan struct{})
	s.state.Lock()
	s.done = done
	s.complete = false
	s.err = nil
	s.state.Unlock()

	recovery.Go(func() { s.run(req, done) }, nil)
	return done
}

func (s *Sender) run(req Request, done chan struct{}) {
	defer close(done)

	err := s.play(req)

	s.state.Lock()
	s.err = err
	if err == nil {
		s.complete = true
		s.finished = time.Now()
	}
	s.state.Unlock()

	if err != nil {
		log.Printf("send %q failed: %v", req.Text, err)
		s.onError(err)
	}
}

func (s *Sender) play(req Request) error {
	s.buf.Reset()
	if err := s.enc.Encode(s.buf, req.Text, req.Params); err != nil {
		return fmt.Errorf("encode %q: %w", req.Text, err)
	}
	if s.buf.Truncated() {
		log.Printf("utterance %q truncated to %v", req.Text, s.buf.Duration())
	}

	if err := s.sink.Open(); err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	if err := s.sink.Write(s.buf.Samples()); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	if err := s.sink.Drain(); err != nil {
		return fmt.Errorf("drain audio: %w", err)
	}
	return nil
}

// Wait blocks until the current task, if any, has finished.
func (s *Sender) Wait() {
	<-s.Done()
}

// Done returns a channel closed when the current task finishes. With no task
// running the channel is already closed.
func (s *Sender) Done() <-chan struct{} {
	s.state.Lock()
	defer s.state.Unlock()
	return s.done
}

// Complete reports whether the last send has fully played.
func (s *Sender) Complete() bool {
	s.state.Lock()
	defer s.state.Unlock()
	return s.complete
}

// Finished returns when the last successful send completed.
func (s *Sender) Finished() time.Time {
	s.state.Lock()
	defer s.state.Unlock()
	return s.finished
}

// Err returns the error of the last finished task.
func (s *Sender) Err() error {
	s.state.Lock()
	defer s.state.Unlock()
	return s.err
}
