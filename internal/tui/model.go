// Package tui provides the Bubble Tea trainer interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ColonelBlimp/qrq/internal/callbase"
	"github.com/ColonelBlimp/qrq/internal/score"
	"github.com/ColonelBlimp/qrq/internal/session"
	"github.com/ColonelBlimp/qrq/internal/stats"
	"github.com/ColonelBlimp/qrq/internal/toplist"
)

type screen int

const (
	entryScreen screen = iota
	attemptScreen
	finishedScreen
	settingsScreen
	callsignScreen
	callbaseScreen
)

// Config wires a Model.
type Config struct {
	Session *session.Session
	// Done returns the channel of the running send
	Done func() <-chan struct{}
	// Toplist is the toplist file shown on the entry screen
	Toplist string
	Version string
	// PlotDir receives the gnuplot script; empty uses the temp directory
	PlotDir string
}

// sentMsg reports that the running send has finished
type sentMsg struct{}

type repeatedMsg struct{ err error }

type plottedMsg struct{ err error }

// Model implements the Bubble Tea trainer UI.
type Model struct {
	session *session.Session
	done    func() <-chan struct{}
	toplist string
	version string
	plotDir string

	width  int
	height int

	screen screen
	// back is the screen the settings return to
	back screen

	line     LineEditor
	callEdit LineEditor

	top     []toplist.Entry
	elapsed time.Duration
	last    score.Result
	status  string

	cbCursor int
	cbCalls  int

	quitting bool
}

// NewModel constructs the trainer UI.
func NewModel(cfg Config) *Model {
	m := &Model{
		session: cfg.Session,
		done:    cfg.Done,
		toplist: cfg.Toplist,
		version: cfg.Version,
		plotDir: cfg.PlotDir,
	}
	m.line.Set(m.session.Callsign())
	m.loadToplist()
	m.countCallbase()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) loadToplist() {
	if m.toplist == "" {
		return
	}
	entries, err := toplist.Read(m.toplist)
	if err != nil {
		log.Printf("failed to load toplist: %v", err)
		return
	}
	m.top = entries
}

func (m *Model) countCallbase() {
	list := m.session.Callbases()
	if _, err := list.Current(); err != nil {
		m.status = err.Error()
		return
	}
	n, err := m.session.SelectCallbase(list.Ptr)
	if err != nil {
		m.status = err.Error()
		return
	}
	m.cbCalls = n
}

// waitSent delivers sentMsg once the running send finishes
func (m *Model) waitSent() tea.Cmd {
	done := m.done()
	return func() tea.Msg {
		<-done
		return sentMsg{}
	}
}

// repeat sends the current call again off the Update goroutine, since the
// sender joins any send still playing
func (m *Model) repeat() tea.Cmd {
	s, done := m.session, m.done
	return func() tea.Msg {
		if err := s.Repeat(); err != nil {
			return repeatedMsg{err: err}
		}
		<-done()
		return sentMsg{}
	}
}

func (m *Model) test() tea.Cmd {
	s := m.session
	return func() tea.Msg {
		<-s.Test()
		return sentMsg{}
	}
}

func (m *Model) repeatPrevious() tea.Cmd {
	s := m.session
	return func() tea.Msg {
		return repeatedMsg{err: s.RepeatPrevious()}
	}
}

func (m *Model) plot() tea.Cmd {
	path, call, dir := m.toplist, m.session.Callsign(), m.plotDir
	return func() tea.Msg {
		entries, err := toplist.Read(path)
		if err != nil {
			return plottedMsg{err: err}
		}
		script, err := stats.WriteScript(dir, call, entries)
		if err != nil {
			return plottedMsg{err: err}
		}
		return plottedMsg{err: stats.Plot(context.Background(), script)}
	}
}

// quit sends the farewell before the program exits
func (m *Model) quit() tea.Cmd {
	m.quitting = true
	s := m.session
	return func() tea.Msg {
		s.Quit()
		return tea.Quit()
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case sentMsg:
		return m, nil
	case repeatedMsg:
		if msg.err != nil && !errors.Is(msg.err, session.ErrNoPrevious) &&
			!errors.Is(msg.err, session.ErrRepeatUsed) && !errors.Is(msg.err, session.ErrNoAttempt) {
			m.status = msg.err.Error()
		}
		return m, nil
	case plottedMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		return m, nil
	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		if msg.Type == tea.KeyCtrlC {
			return m, m.quit()
		}
		switch m.screen {
		case entryScreen:
			return m.updateEntry(msg)
		case attemptScreen:
			return m.updateAttempt(msg)
		case finishedScreen:
			m.session.Reset()
			m.toEntry()
			return m, nil
		case settingsScreen:
			return m.updateSettings(msg)
		case callsignScreen:
			return m.updateCallsign(msg)
		case callbaseScreen:
			return m.updateCallbase(msg)
		}
	}
	return m, nil
}

func (m *Model) toEntry() {
	m.screen = entryScreen
	m.line.Set(m.session.Callsign())
	m.loadToplist()
}

func (m *Model) openSettings() {
	m.back = m.screen
	m.screen = settingsScreen
	m.status = ""
}

// edit applies an editing key to e. It returns false for keys it does not
// handle and for movement keys that cannot move.
func edit(e *LineEditor, msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			e.Insert(r)
		}
		return true
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyTab:
		e.Backspace()
		return true
	case tea.KeyDelete:
		return e.Delete()
	case tea.KeyLeft:
		return e.Left()
	case tea.KeyRight:
		return e.Right()
	case tea.KeyHome:
		e.Home()
		return true
	case tea.KeyEnd:
		e.End()
		return true
	case tea.KeyInsert:
		e.ToggleMode()
		return true
	}
	return false
}

// repeatKey reports keys that repeat the current call
func repeatKey(t tea.KeyType) bool {
	switch t {
	case tea.KeyF1, tea.KeyF2, tea.KeyF3, tea.KeyF4, tea.KeyF6,
		tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown,
		tea.KeyLeft, tea.KeyRight, tea.KeyDelete:
		return true
	}
	return false
}

func (m *Model) updateEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		if err := m.session.Start(m.line.String()); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.status = ""
		m.elapsed = 0
		m.last = score.Result{}
		m.line.Clear()
		m.screen = attemptScreen
		return m, m.waitSent()
	case tea.KeyF5:
		m.openSettings()
		return m, nil
	case tea.KeyF7:
		return m, m.plot()
	case tea.KeyF10:
		return m, m.quit()
	}
	edit(&m.line, msg)
	return m, nil
}

func (m *Model) updateAttempt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return m.submit()
	case tea.KeyF5:
		m.openSettings()
		return m, nil
	case tea.KeyF7:
		return m, m.repeatPrevious()
	case tea.KeyF10:
		if err := m.session.Abort(); err != nil {
			m.status = err.Error()
		}
		m.toEntry()
		return m, nil
	}
	if edit(&m.line, msg) {
		return m, nil
	}
	if repeatKey(msg.Type) {
		return m, m.repeat()
	}
	return m, nil
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	out, err := m.session.Submit(m.line.String())
	if errors.Is(err, session.ErrSending) {
		return m, nil
	}
	if err != nil && !out.Finished {
		m.status = err.Error()
		return m, nil
	}
	if err != nil {
		m.status = err.Error()
	}
	m.elapsed = out.Elapsed
	m.last = out.Result
	m.line.Clear()
	if out.Finished {
		m.screen = finishedScreen
		m.loadToplist()
	}
	return m, m.waitSent()
}

func (m *Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.session
	switch msg.Type {
	case tea.KeyF1, tea.KeyF2, tea.KeyF3, tea.KeyEsc:
		log.Printf("settings: %s", paramsSummary(s.Params()))
		m.screen = m.back
		return m, nil
	case tea.KeyF6:
		return m, m.test()
	case tea.KeyUp:
		s.Adjust((*session.Params).SpeedUp)
	case tea.KeyDown:
		s.Adjust((*session.Params).SpeedDown)
	case tea.KeyRight:
		s.Adjust((*session.Params).CharSpeedUp)
	case tea.KeyLeft:
		s.Adjust((*session.Params).CharSpeedDown)
	case tea.KeyRunes:
		switch msg.String() {
		case "+":
			s.Adjust((*session.Params).RiseTimeUp)
		case "-":
			s.Adjust((*session.Params).RiseTimeDown)
		case "w":
			s.Adjust((*session.Params).CycleShape)
		case "k":
			s.Adjust((*session.Params).ToneDown)
		case "l":
			s.Adjust((*session.Params).ToneUp)
		case "0":
			s.Adjust((*session.Params).ToggleConstantTone)
		case "f":
			s.Adjust((*session.Params).ToggleUnlimitedRepeat)
		case "s":
			s.Adjust((*session.Params).ToggleFixSpeed)
		case "u":
			s.Adjust((*session.Params).ToggleUnlimitedAttempt)
		case "c":
			m.callEdit.Set(s.Callsign())
			m.screen = callsignScreen
		case "d":
			if len(s.Callbases().Files) == 0 {
				m.status = "No callbase files found!"
				return m, nil
			}
			m.cbCursor = s.Callbases().Ptr
			m.screen = callbaseScreen
		}
	}
	return m, nil
}

func (m *Model) updateCallsign(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.session.SetCallsign(m.callEdit.String())
		if call := m.session.Callsign(); call != session.NoCall && !callbase.IsCallsign(call) {
			m.status = fmt.Sprintf("%s does not look like a callsign", call)
		}
		if m.back == entryScreen {
			m.line.Set(m.session.Callsign())
		}
		m.screen = settingsScreen
	case tea.KeyEsc:
		m.screen = settingsScreen
	default:
		edit(&m.callEdit, msg)
	}
	return m, nil
}

func (m *Model) updateCallbase(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	files := m.session.Callbases().Files
	switch msg.Type {
	case tea.KeyUp:
		m.cbCursor = max(m.cbCursor-1, 0)
	case tea.KeyDown:
		m.cbCursor = min(m.cbCursor+1, len(files)-1)
	case tea.KeyEnter:
		n, err := m.session.SelectCallbase(m.cbCursor)
		if err != nil {
			m.status = err.Error()
		} else {
			m.cbCalls = n
			m.status = ""
		}
		m.screen = settingsScreen
	case tea.KeyEsc:
		m.screen = settingsScreen
	}
	return m, nil
}
