// Package session runs training attempts: it draws calls, has them sent,
// scores the transcriptions and adapts the speed.
package session

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ColonelBlimp/qrq/internal/callbase"
	"github.com/ColonelBlimp/qrq/internal/score"
	"github.com/ColonelBlimp/qrq/internal/sender"
	"github.com/ColonelBlimp/qrq/internal/toplist"
)

const (
	// AttemptLength is the number of calls in a regular attempt
	AttemptLength = 50
	// NoCall replaces an empty own callsign
	NoCall = "NOCALL"
	// MaxCallLength is the longest own callsign kept
	MaxCallLength = 7

	// ClosingText is sent after the last call of an attempt
	ClosingText = "+"
	// FarewellText is sent on quit at FarewellSpeed and DefaultTone
	FarewellText  = "73"
	FarewellSpeed = 200
	// TestText is sent from the settings screen
	TestText = "TESTING"
	// DefaultTone is the pitch of farewell and random-tone test sends
	DefaultTone = 800.0

	// Random pitches are sampleRate/(toneDivisor+[0,toneSpread))
	toneDivisor = 50
	toneSpread  = 40
)

var (
	// ErrSending indicates a submit before the call has finished playing
	ErrSending = errors.New("call is still being sent")
	// ErrNoAttempt indicates an operation that needs a running attempt
	ErrNoAttempt = errors.New("no attempt in progress")
	// ErrInAttempt indicates an attempt is already running
	ErrInAttempt = errors.New("attempt already in progress")
	// ErrRepeatUsed indicates the call was already repeated once
	ErrRepeatUsed = errors.New("call already repeated")
	// ErrNoPrevious indicates there is no earlier call to repeat
	ErrNoPrevious = errors.New("no previous call")
)

// State of the session
type State int

const (
	AwaitingCallsignEntry State = iota
	SendingCall
	AwaitingTranscription
	Scoring
	AttemptComplete
)

func (s State) String() string {
	switch s {
	case AwaitingCallsignEntry:
		return "awaiting callsign entry"
	case SendingCall:
		return "sending call"
	case AwaitingTranscription:
		return "awaiting transcription"
	case Scoring:
		return "scoring"
	case AttemptComplete:
		return "attempt complete"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Sender plays one request at a time. *sender.Sender implements it.
type Sender interface {
	Send(req sender.Request) <-chan struct{}
	Wait()
	Complete() bool
	Finished() time.Time
}

// Context is the state of one attempt. It is reset when an attempt starts.
type Context struct {
	Speed    int
	MaxSpeed int
	Score    int
	Errors   int
	// CallNr is the 1-based index of the current call
	CallNr int
	// Calls is the attempt length
	Calls   int
	Current string
	Tone    float64

	Previous     string
	PreviousTone float64

	// Mistakes holds the results of every wrong transcription
	Mistakes []score.Result

	repeated bool
}

// Outcome is what Submit reports.
type Outcome struct {
	Result score.Result
	// Elapsed is the time from the end of playback to the submit
	Elapsed time.Duration
	// Finished is true when the submitted call was the last of the attempt
	Finished bool
	// Position is the toplist index of the finished attempt, -1 if unrecorded
	Position int
}

// Config wires a Session.
type Config struct {
	Params    Params
	Sender    Sender
	Callbases *callbase.List
	// Toplist is the toplist file; empty disables recording
	Toplist string
	// Rand drives call order and random pitch; nil seeds from the clock
	Rand *rand.Rand
	// Now defaults to time.Now
	Now func() time.Time
	// Load defaults to callbase.Load
	Load func(path string) ([]string, error)
}

// Session is safe for use from the UI goroutine and commands it spawns.
type Session struct {
	mu sync.Mutex

	params    Params
	sender    Sender
	callbases *callbase.List
	toplist   string
	rng       *rand.Rand
	now       func() time.Time
	load      func(string) ([]string, error)

	mycall string
	state  State
	ctx    Context
	pool   *callbase.Pool
}

// New creates an idle session.
func New(cfg Config) (*Session, error) {
	if cfg.Sender == nil {
		return nil, errors.New("session needs a sender")
	}
	if cfg.Callbases == nil {
		return nil, callbase.ErrNoCallbase
	}
	if cfg.Params.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", cfg.Params.SampleRate)
	}
	s := &Session{
		params:    cfg.Params,
		sender:    cfg.Sender,
		callbases: cfg.Callbases,
		toplist:   cfg.Toplist,
		rng:       cfg.Rand,
		now:       cfg.Now,
		load:      cfg.Load,
		mycall:    NoCall,
	}
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.load == nil {
		s.load = callbase.Load
	}
	return s, nil
}

// State returns the current state. A call whose playback has completed is
// awaiting transcription.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	if s.state == SendingCall && s.sender.Complete() {
		s.state = AwaitingTranscription
	}
	return s.state
}

func (s *Session) inAttempt() bool {
	st := s.stateLocked()
	return st == SendingCall || st == AwaitingTranscription
}

// Snapshot returns a copy of the attempt context.
func (s *Session) Snapshot() Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.ctx
	c.Mistakes = append([]score.Result(nil), s.ctx.Mistakes...)
	return c
}

// Callsign returns the operator's callsign.
func (s *Session) Callsign() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mycall
}

// Params returns a copy of the operator settings.
func (s *Session) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// Adjust applies a settings change. The current speed restarts at the
// initial speed, as it does for a new attempt.
func (s *Session) Adjust(fn func(*Params)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.params)
	s.ctx.Speed = s.params.InitialSpeed
}

// SetCallsign changes the operator's callsign.
func (s *Session) SetCallsign(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mycall = NormalizeCall(call)
}

// Callbases returns the callbase list.
func (s *Session) Callbases() *callbase.List {
	return s.callbases
}

// SelectCallbase makes callbase i active and returns its size.
func (s *Session) SelectCallbase(i int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.callbases.Select(i); err != nil {
		return 0, err
	}
	path, _ := s.callbases.Current()
	calls, err := s.load(path)
	if err != nil {
		return 0, err
	}
	return len(calls), nil
}

// Start begins an attempt for mycall and sends the first call.
func (s *Session) Start(mycall string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inAttempt() {
		return ErrInAttempt
	}
	s.mycall = NormalizeCall(mycall)

	path, err := s.callbases.Current()
	if err != nil {
		return err
	}
	calls, err := s.load(path)
	if err != nil {
		return err
	}
	s.pool = callbase.NewPool(calls, s.rng)

	n := s.pool.Len()
	if !s.params.UnlimitedAttempt {
		n = min(n, AttemptLength)
	}
	s.ctx = Context{Speed: s.params.InitialSpeed, Calls: n}
	log.Printf("attempt for %s: %d calls from %s", s.mycall, n, path)

	return s.nextLocked()
}

// Next draws the next call and starts sending it.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inAttempt() {
		return ErrNoAttempt
	}
	return s.nextLocked()
}

func (s *Session) nextLocked() error {
	if s.ctx.CallNr >= s.ctx.Calls {
		return s.finishLocked()
	}
	call, ok := s.pool.Draw()
	if !ok {
		return s.finishLocked()
	}
	s.ctx.CallNr++
	s.ctx.Current = call
	s.ctx.Tone = s.pickTone()
	s.ctx.repeated = false
	s.sendLocked(call, s.ctx.Tone)
	return nil
}

func (s *Session) pickTone() float64 {
	if s.params.ConstantTone {
		return float64(s.params.ToneFreq)
	}
	return float64(int(float64(s.params.SampleRate) / (toneDivisor + toneSpread*s.rng.Float64())))
}

func (s *Session) sendLocked(text string, tone float64) <-chan struct{} {
	s.state = SendingCall
	return s.sender.Send(sender.Request{Text: text, Params: s.params.keying(s.ctx.Speed, tone)})
}

// Repeat sends the current call again. Without unlimited repeat each call
// can be repeated once. It blocks while an earlier send is still playing.
func (s *Session) Repeat() error {
	s.mu.Lock()
	if !s.inAttempt() {
		s.mu.Unlock()
		return ErrNoAttempt
	}
	if s.ctx.repeated && !s.params.UnlimitedRepeat {
		s.mu.Unlock()
		return ErrRepeatUsed
	}
	s.ctx.repeated = true
	req := sender.Request{Text: s.ctx.Current, Params: s.params.keying(s.ctx.Speed, s.ctx.Tone)}
	s.state = SendingCall
	s.mu.Unlock()

	s.sender.Send(req)
	return nil
}

// RepeatPrevious sends the previous call on its own pitch and blocks until
// it has played. The current call's pitch is untouched.
func (s *Session) RepeatPrevious() error {
	s.mu.Lock()
	if !s.inAttempt() {
		s.mu.Unlock()
		return ErrNoAttempt
	}
	if s.ctx.Previous == "" {
		s.mu.Unlock()
		return ErrNoPrevious
	}
	req := sender.Request{
		Text:   s.ctx.Previous,
		Params: s.params.keying(s.ctx.Speed, s.ctx.PreviousTone),
	}
	s.state = SendingCall
	s.mu.Unlock()

	<-s.sender.Send(req)
	return nil
}

// Submit scores line against the current call once playback is complete,
// adapts the speed and moves on to the next call or finishes the attempt.
func (s *Session) Submit(line string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.stateLocked() {
	case AwaitingTranscription:
	case SendingCall:
		return Outcome{}, ErrSending
	default:
		return Outcome{}, ErrNoAttempt
	}
	s.state = Scoring

	out := Outcome{Position: -1}
	if finished := s.sender.Finished(); !finished.IsZero() {
		out.Elapsed = s.now().Sub(finished)
	}

	out.Result = score.Score(s.ctx.Current, line, s.ctx.Speed)
	s.ctx.Score += out.Result.Points
	if !out.Result.Exact {
		s.ctx.Errors++
		s.ctx.Mistakes = append(s.ctx.Mistakes, out.Result)
	}
	adapter := score.NewAdapter(s.params.FixSpeed)
	s.ctx.Speed, s.ctx.MaxSpeed = adapter.Adapt(out.Result, s.ctx.Speed, s.ctx.MaxSpeed)

	s.ctx.Previous = s.ctx.Current
	s.ctx.PreviousTone = s.ctx.Tone

	if s.ctx.CallNr < s.ctx.Calls && s.pool.Remaining() > 0 {
		return out, s.nextLocked()
	}

	out.Finished = true
	pos, recordErr := s.recordLocked()
	out.Position = pos
	if err := s.finishLocked(); err != nil {
		return out, err
	}
	return out, recordErr
}

func (s *Session) finishLocked() error {
	s.sendLocked(ClosingText, s.ctx.Tone)
	s.state = AttemptComplete
	log.Printf("attempt finished: score %d, max speed %d, %d errors", s.ctx.Score, s.ctx.MaxSpeed, s.ctx.Errors)
	return nil
}

func (s *Session) recordLocked() (int, error) {
	if s.toplist == "" || s.params.Training() || s.ctx.Score == 0 {
		return -1, nil
	}
	pos, err := toplist.Insert(s.toplist, toplist.Entry{
		Call:     s.mycall,
		Score:    s.ctx.Score,
		MaxSpeed: s.ctx.MaxSpeed,
		Time:     s.now(),
	})
	if err != nil {
		return -1, fmt.Errorf("record score: %w", err)
	}
	return pos, nil
}

// Abort ends the running attempt without recording it.
func (s *Session) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inAttempt() {
		return ErrNoAttempt
	}
	s.state = AwaitingCallsignEntry
	log.Printf("attempt aborted at call %d", s.ctx.CallNr)
	return nil
}

// Reset returns a finished attempt to the callsign entry state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == AttemptComplete {
		s.state = AwaitingCallsignEntry
	}
}

// Test sends TestText at the initial speed.
func (s *Session) Test() <-chan struct{} {
	return s.SendText(TestText)
}

// SendText sends text outside an attempt at the initial speed and the
// test pitch. It blocks while an earlier send is still playing.
func (s *Session) SendText(text string) <-chan struct{} {
	s.mu.Lock()
	req := sender.Request{Text: text, Params: s.params.keying(s.params.InitialSpeed, s.params.TestTone())}
	s.mu.Unlock()
	return s.sender.Send(req)
}

// Quit waits for any playback, sends the farewell and waits for it.
func (s *Session) Quit() {
	s.mu.Lock()
	p := s.params.keying(FarewellSpeed, DefaultTone)
	s.state = AwaitingCallsignEntry
	s.mu.Unlock()

	s.sender.Wait()
	<-s.sender.Send(sender.Request{Text: FarewellText, Params: p})
}
