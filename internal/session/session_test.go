package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ColonelBlimp/qrq/internal/audio"
	"github.com/ColonelBlimp/qrq/internal/callbase"
	"github.com/ColonelBlimp/qrq/internal/morse"
	"github.com/ColonelBlimp/qrq/internal/sender"
	"github.com/ColonelBlimp/qrq/internal/synth"
	"github.com/ColonelBlimp/qrq/internal/toplist"
)

const testRate = 8000

// fakeSender records requests. With hold set, sends stay incomplete until
// release is called.
type fakeSender struct {
	mu       sync.Mutex
	reqs     []sender.Request
	hold     bool
	complete bool
	finished time.Time
	done     chan struct{}
}

func newFakeSender() *fakeSender {
	done := make(chan struct{})
	close(done)
	return &fakeSender{complete: true, done: done}
}

func (f *fakeSender) Send(req sender.Request) <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	f.done = make(chan struct{})
	if f.hold {
		f.complete = false
		return f.done
	}
	f.complete = true
	f.finished = time.Now()
	close(f.done)
	return f.done
}

func (f *fakeSender) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.complete {
		f.complete = true
		f.finished = time.Now()
		close(f.done)
	}
}

func (f *fakeSender) Wait() {
	f.mu.Lock()
	done := f.done
	f.mu.Unlock()
	<-done
}

func (f *fakeSender) Complete() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.complete
}

func (f *fakeSender) Finished() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finished
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.reqs))
	for i, r := range f.reqs {
		out[i] = r.Text
	}
	return out
}

func (f *fakeSender) last() sender.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

func makeCalls(n int) []string {
	calls := make([]string, n)
	for i := range calls {
		calls[i] = fmt.Sprintf("K%dA%c%c", i%10, 'A'+rune(i/26%26), 'A'+rune(i%26))
	}
	return calls
}

func writeCallbase(t *testing.T, calls []string) *callbase.List {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calls.txt")
	var data []byte
	for _, c := range calls {
		data = append(data, c...)
		data = append(data, '\n')
	}
	require.NoError(t, os.WriteFile(path, data, 0644))
	return &callbase.List{Files: []string{path}}
}

func writeToplist(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "toplist")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	return path
}

func defaultParams() Params {
	return Params{
		InitialSpeed: 250,
		RiseTime:     2,
		Shape:        synth.Sine,
		ToneFreq:     800,
		SampleRate:   testRate,
	}
}

func newSession(t *testing.T, p Params, snd Sender, calls []string, top string) *Session {
	t.Helper()
	s, err := New(Config{
		Params:    p,
		Sender:    snd,
		Callbases: writeCallbase(t, calls),
		Toplist:   top,
		Rand:      rand.New(rand.NewPCG(1, 2)),
	})
	require.NoError(t, err)
	return s
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Params: defaultParams(), Callbases: &callbase.List{}})
	assert.Error(t, err)
	_, err = New(Config{Params: defaultParams(), Sender: newFakeSender()})
	assert.ErrorIs(t, err, callbase.ErrNoCallbase)
	_, err = New(Config{Sender: newFakeSender(), Callbases: &callbase.List{}})
	assert.Error(t, err)
}

func TestSession_FullAttemptNoRepeats(t *testing.T) {
	calls := makeCalls(7)
	snd := newFakeSender()
	top := writeToplist(t)
	s := newSession(t, defaultParams(), snd, calls, top)

	require.Equal(t, AwaitingCallsignEntry, s.State())
	require.NoError(t, s.Start("dj1yfk"))
	assert.Equal(t, "DJ1YFK", s.Callsign())
	assert.Equal(t, 7, s.Snapshot().Calls)

	seen := make(map[string]bool)
	for i := 0; i < len(calls); i++ {
		ctx := s.Snapshot()
		assert.Equal(t, i+1, ctx.CallNr)
		assert.False(t, seen[ctx.Current], "call %s sent twice", ctx.Current)
		seen[ctx.Current] = true
		assert.Equal(t, AwaitingTranscription, s.State())

		out, err := s.Submit(ctx.Current)
		require.NoError(t, err)
		assert.True(t, out.Result.Exact)
		assert.Equal(t, i == len(calls)-1, out.Finished)
	}

	assert.Equal(t, AttemptComplete, s.State())
	texts := snd.texts()
	require.Len(t, texts, len(calls)+1)
	assert.Equal(t, ClosingText, texts[len(texts)-1])

	ctx := s.Snapshot()
	assert.Equal(t, 250+7*10, ctx.Speed)
	assert.Equal(t, 250+6*10, ctx.MaxSpeed)
	assert.Zero(t, ctx.Errors)

	entries, err := toplist.Read(top)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "DJ1YFK", entries[0].Call)
	assert.Equal(t, ctx.Score, entries[0].Score)
	assert.Equal(t, ctx.MaxSpeed, entries[0].MaxSpeed)

	s.Reset()
	assert.Equal(t, AwaitingCallsignEntry, s.State())
}

func TestSession_RecordFailureStillFinishes(t *testing.T) {
	snd := newFakeSender()
	top := filepath.Join(t.TempDir(), "missing", "toplist")
	s := newSession(t, defaultParams(), snd, makeCalls(1), top)
	require.NoError(t, s.Start("DJ1YFK"))

	out, err := s.Submit(s.Snapshot().Current)
	assert.Error(t, err)
	assert.True(t, out.Finished)
	assert.Equal(t, -1, out.Position)
	assert.Equal(t, AttemptComplete, s.State())
	assert.Equal(t, ClosingText, snd.last().Text)

	s.Reset()
	assert.Equal(t, AwaitingCallsignEntry, s.State())
}

func TestSession_AttemptLengthClamped(t *testing.T) {
	tests := []struct {
		name      string
		pool      int
		unlimited bool
		want      int
	}{
		{"short pool", 3, false, 3},
		{"long pool", 60, false, AttemptLength},
		{"unlimited", 60, true, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultParams()
			p.UnlimitedAttempt = tt.unlimited
			snd := newFakeSender()
			s := newSession(t, p, snd, makeCalls(tt.pool), "")

			require.NoError(t, s.Start("DJ1YFK"))
			sent := 0
			for s.State() != AttemptComplete {
				sent++
				_, err := s.Submit("")
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, sent)
			assert.Len(t, snd.texts(), tt.want+1)
		})
	}
}

func TestSession_SubmitGatedOnPlayback(t *testing.T) {
	snd := newFakeSender()
	snd.hold = true
	s := newSession(t, defaultParams(), snd, makeCalls(5), "")

	require.NoError(t, s.Start("DJ1YFK"))
	assert.Equal(t, SendingCall, s.State())

	_, err := s.Submit("K0AAA")
	assert.ErrorIs(t, err, ErrSending)
	assert.Equal(t, 1, s.Snapshot().CallNr, "rejected submit must not advance")

	snd.release()
	assert.Equal(t, AwaitingTranscription, s.State())
	_, err = s.Submit(s.Snapshot().Current)
	assert.NoError(t, err)
}

func TestSession_SubmitWithoutAttempt(t *testing.T) {
	s := newSession(t, defaultParams(), newFakeSender(), makeCalls(2), "")
	_, err := s.Submit("X")
	assert.ErrorIs(t, err, ErrNoAttempt)
	assert.ErrorIs(t, s.Repeat(), ErrNoAttempt)
	assert.ErrorIs(t, s.RepeatPrevious(), ErrNoAttempt)
	assert.ErrorIs(t, s.Abort(), ErrNoAttempt)
	assert.ErrorIs(t, s.Next(), ErrNoAttempt)
}

func TestSession_StartTwice(t *testing.T) {
	s := newSession(t, defaultParams(), newFakeSender(), makeCalls(2), "")
	require.NoError(t, s.Start("DJ1YFK"))
	assert.ErrorIs(t, s.Start("DJ1YFK"), ErrInAttempt)
}

func TestSession_RepeatOnce(t *testing.T) {
	snd := newFakeSender()
	s := newSession(t, defaultParams(), snd, makeCalls(3), "")
	require.NoError(t, s.Start("DJ1YFK"))
	current := s.Snapshot().Current

	require.NoError(t, s.Repeat())
	assert.ErrorIs(t, s.Repeat(), ErrRepeatUsed)
	assert.Equal(t, []string{current, current}, snd.texts())

	// The next call can be repeated again
	_, err := s.Submit(current)
	require.NoError(t, err)
	assert.NoError(t, s.Repeat())
}

// gatedSender parks every Send until gate is closed, like a sender joining
// a send that is still playing.
type gatedSender struct {
	*fakeSender
	gate chan struct{}
}

func (g *gatedSender) Send(req sender.Request) <-chan struct{} {
	<-g.gate
	return g.fakeSender.Send(req)
}

func TestSession_SendsDoNotHoldTheSession(t *testing.T) {
	snd := &gatedSender{fakeSender: newFakeSender(), gate: make(chan struct{})}
	close(snd.gate)
	s := newSession(t, defaultParams(), snd, makeCalls(3), "")
	require.NoError(t, s.Start("DJ1YFK"))
	snd.gate = make(chan struct{})

	returned := make(chan struct{}, 2)
	go func() {
		assert.NoError(t, s.Repeat())
		returned <- struct{}{}
	}()
	go func() {
		<-s.Test()
		returned <- struct{}{}
	}()

	read := make(chan *Context, 1)
	go func() {
		time.Sleep(10 * time.Millisecond)
		ctx := s.Snapshot()
		read <- &ctx
	}()
	select {
	case ctx := <-read:
		assert.Equal(t, 1, ctx.CallNr)
	case <-time.After(time.Second):
		t.Fatal("session blocked behind a pending send")
	}

	close(snd.gate)
	for i := 0; i < 2; i++ {
		select {
		case <-returned:
		case <-time.After(time.Second):
			t.Fatal("send did not return")
		}
	}
	assert.Len(t, snd.texts(), 3)
}

func TestSession_UnlimitedRepeat(t *testing.T) {
	p := defaultParams()
	p.UnlimitedRepeat = true
	snd := newFakeSender()
	s := newSession(t, p, snd, makeCalls(3), "")
	require.NoError(t, s.Start("DJ1YFK"))

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Repeat())
	}
	assert.Len(t, snd.texts(), 6)
}

func TestSession_RepeatPrevious(t *testing.T) {
	snd := newFakeSender()
	s := newSession(t, defaultParams(), snd, makeCalls(5), "")
	require.NoError(t, s.Start("DJ1YFK"))

	assert.ErrorIs(t, s.RepeatPrevious(), ErrNoPrevious)

	first := s.Snapshot()
	_, err := s.Submit(first.Current)
	require.NoError(t, err)
	second := s.Snapshot()

	require.NoError(t, s.RepeatPrevious())
	req := snd.last()
	assert.Equal(t, first.Current, req.Text)
	assert.Equal(t, first.Tone, req.Params.Frequency)

	after := s.Snapshot()
	assert.Equal(t, second.Current, after.Current)
	assert.Equal(t, second.Tone, after.Tone, "current pitch must be unchanged")
	assert.Equal(t, AwaitingTranscription, s.State())
}

func TestSession_MismatchLowersSpeedAndRecordsError(t *testing.T) {
	snd := newFakeSender()
	s := newSession(t, defaultParams(), snd, makeCalls(5), "")
	require.NoError(t, s.Start("DJ1YFK"))

	out, err := s.Submit("ZZZZZZ")
	require.NoError(t, err)
	assert.False(t, out.Result.Exact)

	ctx := s.Snapshot()
	assert.Equal(t, 240, ctx.Speed)
	assert.Equal(t, 1, ctx.Errors)
	require.Len(t, ctx.Mistakes, 1)
	assert.Equal(t, out.Result.Marks, ctx.Mistakes[0].Marks)
	assert.Equal(t, 240, snd.last().Params.Speed, "next call is sent at the adapted speed")
}

func TestSession_TrainingModesNotRecorded(t *testing.T) {
	modes := map[string]func(*Params){
		"fixed speed":       func(p *Params) { p.FixSpeed = true },
		"unlimited repeat":  func(p *Params) { p.UnlimitedRepeat = true },
		"unlimited attempt": func(p *Params) { p.UnlimitedAttempt = true },
	}
	for name, mode := range modes {
		t.Run(name, func(t *testing.T) {
			p := defaultParams()
			mode(&p)
			top := writeToplist(t)
			s := newSession(t, p, newFakeSender(), makeCalls(2), top)

			require.NoError(t, s.Start("DJ1YFK"))
			var out Outcome
			for s.State() != AttemptComplete {
				var err error
				out, err = s.Submit(s.Snapshot().Current)
				require.NoError(t, err)
			}
			assert.True(t, out.Finished)
			assert.Equal(t, -1, out.Position)
			assert.Positive(t, s.Snapshot().Score)

			entries, err := toplist.Read(top)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestSession_ZeroScoreNotRecorded(t *testing.T) {
	top := writeToplist(t)
	s := newSession(t, defaultParams(), newFakeSender(), []string{"DJ1YFK"}, top)

	require.NoError(t, s.Start("DJ1YFK"))
	out, err := s.Submit("OK2ABCXYZ")
	require.NoError(t, err)
	assert.True(t, out.Finished)
	assert.Equal(t, -1, out.Position)

	entries, _ := toplist.Read(top)
	assert.Empty(t, entries)
}

func TestSession_Abort(t *testing.T) {
	top := writeToplist(t)
	s := newSession(t, defaultParams(), newFakeSender(), makeCalls(5), top)
	require.NoError(t, s.Start("DJ1YFK"))
	_, err := s.Submit(s.Snapshot().Current)
	require.NoError(t, err)

	require.NoError(t, s.Abort())
	assert.Equal(t, AwaitingCallsignEntry, s.State())
	entries, _ := toplist.Read(top)
	assert.Empty(t, entries)

	// A new attempt starts from scratch
	require.NoError(t, s.Start("DJ1YFK"))
	ctx := s.Snapshot()
	assert.Equal(t, 1, ctx.CallNr)
	assert.Zero(t, ctx.Score)
	assert.Equal(t, 250, ctx.Speed)
}

func TestSession_Tone(t *testing.T) {
	t.Run("constant", func(t *testing.T) {
		p := defaultParams()
		p.ConstantTone = true
		p.ToneFreq = 650
		snd := newFakeSender()
		s := newSession(t, p, snd, makeCalls(3), "")
		require.NoError(t, s.Start("DJ1YFK"))
		assert.Equal(t, 650.0, snd.last().Params.Frequency)
	})

	t.Run("random", func(t *testing.T) {
		snd := newFakeSender()
		s := newSession(t, defaultParams(), snd, makeCalls(40), "")
		require.NoError(t, s.Start("DJ1YFK"))
		for s.State() != AttemptComplete {
			f := s.Snapshot().Tone
			assert.GreaterOrEqual(t, f, float64(testRate/90))
			assert.LessOrEqual(t, f, float64(testRate/50))
			_, err := s.Submit("")
			require.NoError(t, err)
		}
	})
}

func TestSession_Elapsed(t *testing.T) {
	now := time.Now()
	snd := newFakeSender()
	s, err := New(Config{
		Params:    defaultParams(),
		Sender:    snd,
		Callbases: writeCallbase(t, makeCalls(3)),
		Rand:      rand.New(rand.NewPCG(3, 4)),
		Now:       func() time.Time { return now.Add(1500 * time.Millisecond) },
	})
	require.NoError(t, err)
	require.NoError(t, s.Start("DJ1YFK"))

	snd.mu.Lock()
	snd.finished = now
	snd.mu.Unlock()

	out, err := s.Submit("X")
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, out.Elapsed)
}

func TestSession_QuitSendsFarewell(t *testing.T) {
	snd := newFakeSender()
	s := newSession(t, defaultParams(), snd, makeCalls(3), "")
	s.Quit()

	req := snd.last()
	assert.Equal(t, FarewellText, req.Text)
	assert.Equal(t, FarewellSpeed, req.Params.Speed)
	assert.Equal(t, DefaultTone, req.Params.Frequency)
}

func TestSession_TestSend(t *testing.T) {
	snd := newFakeSender()
	p := defaultParams()
	s := newSession(t, p, snd, makeCalls(3), "")

	<-s.Test()
	assert.Equal(t, TestText, snd.last().Text)
	assert.Equal(t, DefaultTone, snd.last().Params.Frequency)

	s.Adjust(func(p *Params) { p.ConstantTone = true; p.ToneFreq = 700 })
	<-s.Test()
	assert.Equal(t, 700.0, snd.last().Params.Frequency)
}

func TestSession_AdjustResetsSpeed(t *testing.T) {
	s := newSession(t, defaultParams(), newFakeSender(), makeCalls(3), "")
	require.NoError(t, s.Start("DJ1YFK"))
	_, err := s.Submit(s.Snapshot().Current)
	require.NoError(t, err)
	require.Equal(t, 260, s.Snapshot().Speed)

	s.Adjust((*Params).SpeedUp)
	assert.Equal(t, 260, s.Params().InitialSpeed)
	assert.Equal(t, 260, s.Snapshot().Speed)
}

func TestSession_SelectCallbase(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("K1AA\n"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("K1AA\nK2BB\nK3CC\n"), 0644))

	s, err := New(Config{
		Params:    defaultParams(),
		Sender:    newFakeSender(),
		Callbases: &callbase.List{Files: []string{a, b}},
	})
	require.NoError(t, err)

	n, err := s.SelectCallbase(1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, s.Callbases().Ptr)

	_, err = s.SelectCallbase(2)
	assert.Error(t, err)
}

func TestSession_WithRealSender(t *testing.T) {
	sink := audio.NewMemory()
	sink.DrainDelay = 20 * time.Millisecond
	enc, err := morse.NewEncoder(testRate)
	require.NoError(t, err)
	snd := sender.New(sink, enc, synth.NewBuffer(testRate, 0),
		sender.WithErrorHandler(func(err error) { t.Errorf("sender: %v", err) }))

	calls := makeCalls(4)
	s := newSession(t, defaultParams(), snd, calls, "")
	require.NoError(t, s.Start("DJ1YFK"))

	for s.State() != AttemptComplete {
		_, err := s.Submit(s.Snapshot().Current)
		if errors.Is(err, ErrSending) {
			snd.Wait()
			continue
		}
		require.NoError(t, err)
	}
	snd.Wait()

	// Every call plus the closing sign
	assert.Len(t, sink.Utterances(), len(calls)+1)
}
