package cmd

import (
	"fmt"
	"log"

	"github.com/ColonelBlimp/qrq/internal/audio"
	"github.com/ColonelBlimp/qrq/internal/callbase"
	"github.com/ColonelBlimp/qrq/internal/config"
	"github.com/ColonelBlimp/qrq/internal/morse"
	"github.com/ColonelBlimp/qrq/internal/sender"
	"github.com/ColonelBlimp/qrq/internal/session"
	"github.com/ColonelBlimp/qrq/internal/synth"
)

// app holds the components shared by the commands
type app struct {
	settings *config.Settings
	sink     audio.Sink
	sender   *sender.Sender
	session  *session.Session
}

func newApp(opts ...sender.Option) (*app, error) {
	settings, err := config.Get()
	if err != nil {
		return nil, err
	}
	return newAppWith(settings, opts...)
}

func newAppWith(settings *config.Settings, opts ...sender.Option) (*app, error) {
	sink, err := audio.New(audio.Config{
		Backend: settings.Backend,
		Device:  settings.DSPDevice,
		Format:  audio.Format{SampleRate: settings.SampleRate, Channels: settings.Channels},
	})
	if err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}

	enc, err := morse.NewEncoder(settings.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}
	buf := synth.NewBuffer(settings.SampleRate, settings.MaxUtterance())
	snd := sender.New(sink, enc, buf, opts...)

	params, err := sessionParams(settings)
	if err != nil {
		return nil, err
	}
	sess, err := session.New(session.Config{
		Params:    params,
		Sender:    snd,
		Callbases: &callbase.List{Files: settings.Callbase, Ptr: settings.CBPtr},
		Toplist:   settings.Toplist,
	})
	if err != nil {
		return nil, err
	}
	sess.SetCallsign(settings.Callsign)

	log.Printf("audio: %s backend, device %q, %d Hz, %d channel(s)",
		settings.Backend, settings.DSPDevice, settings.SampleRate, settings.Channels)
	return &app{settings: settings, sink: sink, sender: snd, session: sess}, nil
}

func sessionParams(s *config.Settings) (session.Params, error) {
	shape, err := synth.ParseShape(fmt.Sprint(s.Waveform))
	if err != nil {
		return session.Params{}, fmt.Errorf("config error: %w", err)
	}
	return session.Params{
		InitialSpeed:     s.InitialSpeed,
		MinCharSpeed:     s.MinCharSpeed,
		RiseTime:         s.RiseTime,
		Shape:            shape,
		ConstantTone:     s.ConstantTone,
		ToneFreq:         s.CToneFreq,
		UnlimitedRepeat:  s.UnlimitedRepeat,
		FixSpeed:         s.FixSpeed,
		UnlimitedAttempt: s.UnlimitedAttempt,
		SampleRate:       s.SampleRate,
	}, nil
}

// Close waits for playback and releases the audio device
func (a *app) Close() error {
	a.sender.Wait()
	return a.sink.Close()
}
