package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/ColonelBlimp/qrq/internal/score"
	"github.com/ColonelBlimp/qrq/internal/session"
	"github.com/ColonelBlimp/qrq/internal/toplist"
)

const (
	toplistRows  = 20
	toplistWidth = 17
	errorRows    = 15
	callbasePage = 10
	mainWidth    = 60
)

var (
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	ownStyle    = lipgloss.NewStyle().Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	cursorStyle = lipgloss.NewStyle().Reverse(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
)

var usage = []string{
	"Usage:",
	"  After entering your callsign, random callsigns",
	"  from a database will be sent. After each callsign,",
	"  enter what you have heard. If you copied correctly,",
	"  full points are credited and the speed increases by",
	"  2 WpM -- otherwise the speed decreases and only a",
	"  fraction of the points, depending on the number of",
	"  errors is credited.",
	"",
	"  F6 repeats a callsign, F7 the previous one",
	"  Settings can be changed with F5 or in qrqrc",
	"  Score statistics (requires gnuplot) with F7",
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return "73\n"
	}

	var top, mid, bottom string
	switch m.screen {
	case entryScreen:
		top = m.renderBanner()
		mid = strings.Join(usage, "\n")
		bottom = m.renderPrompt("Please enter your callsign: ", &m.line)
	case attemptScreen:
		top = m.renderScore()
		mid = m.renderMistakes()
		bottom = m.renderPrompt(m.renderCounter()+"  ", &m.line)
	case finishedScreen:
		top = m.renderScore()
		mid = m.renderMistakes()
		bottom = "Attempt finished. Press any key to continue!"
	case settingsScreen:
		top = m.renderBanner()
		mid = m.renderSettings()
		bottom = "Press F1 to go back, F6 to test"
	case callsignScreen:
		top = m.renderBanner()
		mid = m.renderSettings()
		bottom = m.renderPrompt("Callsign: ", &m.callEdit)
	case callbaseScreen:
		top = m.renderBanner()
		mid = m.renderCallbases()
		bottom = "up/down to select, Enter to load"
	}
	if m.status != "" {
		bottom += "\n" + errorStyle.Render(m.status)
	}

	left := lipgloss.JoinVertical(lipgloss.Left,
		boxStyle.Width(mainWidth).Render(top),
		boxStyle.Width(mainWidth).Height(errorRows).Render(mid),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, boxStyle.Render(m.renderToplist()))
	return lipgloss.JoinVertical(lipgloss.Left, body, boxStyle.Width(lipgloss.Width(body)-2).Render(bottom))
}

func (m *Model) renderBanner() string {
	return fmt.Sprintf("QRQ v%s\n%s", m.version, dimStyle.Render("High speed callsign copying trainer"))
}

func (m *Model) renderScore() string {
	ctx := m.session.Snapshot()
	path, _ := m.session.Callbases().Current()

	line := fmt.Sprintf("%-8s Score: %6d", m.session.Callsign(), ctx.Score)
	if m.elapsed > 0 {
		line += fmt.Sprintf("   %6d ms", m.elapsed.Milliseconds())
	}
	return fmt.Sprintf("%s\n%-8s File:  %s   %d CpM", line, "", filepath.Base(path), ctx.Speed)
}

func (m *Model) renderCounter() string {
	ctx := m.session.Snapshot()
	total := "-"
	if !m.session.Params().UnlimitedAttempt {
		total = fmt.Sprint(ctx.Calls)
	}
	return fmt.Sprintf("%3d/%s", ctx.CallNr, total)
}

// renderMistakes lists wrong transcriptions in two columns. A full page
// starts over with the next mistake.
func (m *Model) renderMistakes() string {
	mistakes := m.session.Snapshot().Mistakes
	if len(mistakes) == 0 {
		if m.last.Exact {
			return okStyle.Render(score.ExactMark)
		}
		return ""
	}
	page := 2 * errorRows
	start := (len(mistakes) - 1) / page * page
	mistakes = mistakes[start:]

	rows := make([]string, min(len(mistakes), errorRows))
	for i, r := range mistakes {
		cell := runewidth.FillRight(r.Expected, 13) + " " + errorStyle.Render(runewidth.FillRight(r.Marks, 13))
		row := i % errorRows
		if i >= errorRows {
			rows[row] += "  " + cell
		} else {
			rows[row] = cell
		}
	}
	return strings.Join(rows, "\n")
}

func (m *Model) renderPrompt(prompt string, e *LineEditor) string {
	line := []rune(e.String())
	var b strings.Builder
	b.WriteString(string(line[:e.Cursor()]))
	if e.Cursor() < len(line) {
		b.WriteString(cursorStyle.Render(string(line[e.Cursor()])))
		b.WriteString(string(line[e.Cursor()+1:]))
	} else {
		b.WriteString(cursorStyle.Render(" "))
	}
	field := prompt + b.String()
	field += strings.Repeat(" ", max(len(prompt)+MaxLineLength+1-lipgloss.Width(field), 0))
	pad := max(mainWidth-lipgloss.Width(field), 1)
	return field + strings.Repeat(" ", pad) + e.Mode()
}

func (m *Model) renderToplist() string {
	call := m.session.Callsign()
	lines := []string{titleStyle.Render(runewidth.FillRight("Toplist", toplistWidth))}
	for _, e := range toplist.Top(m.top, toplistRows) {
		line := runewidth.FillRight(runewidth.Truncate(e.Format(), toplistWidth, ""), toplistWidth)
		if strings.EqualFold(e.Call, call) {
			line = ownStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func (m *Model) renderSettings() string {
	p := m.session.Params()
	path, _ := m.session.Callbases().Current()
	pitch := 0
	if p.ConstantTone {
		pitch = p.ToneFreq
	}

	lines := []string{
		titleStyle.Render("Configuration:          Value                Change"),
		fmt.Sprintf(" Initial Speed:         %3d CpM / %3d WpM    up/down", p.InitialSpeed, p.InitialSpeed/5),
		fmt.Sprintf(" Min. character Speed:  %3d CpM / %3d WpM    left/right", p.MinCharSpeed, p.MinCharSpeed/5),
		fmt.Sprintf(" CW rise/falltime (ms): %-4.1f                 +/-", p.RiseTime),
		fmt.Sprintf(" Callsign:              %-14s       c", m.session.Callsign()),
		fmt.Sprintf(" CW pitch (0 = random): %-4d                 k/l or 0", pitch),
		fmt.Sprintf(" CW waveform:           %-8s             w", p.Shape),
		fmt.Sprintf(" Unlimited repeat:      %-3s                  f", yesNo(p.UnlimitedRepeat)),
		fmt.Sprintf(" Fixed CW speed:        %-3s                  s", yesNo(p.FixSpeed)),
		fmt.Sprintf(" Unlimited attempt:     %-3s                  u", yesNo(p.UnlimitedAttempt)),
		fmt.Sprintf(" callbase:  %-15s          d (%d)", filepath.Base(path), m.cbCalls),
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderCallbases() string {
	names := m.session.Callbases().Names()
	lines := []string{titleStyle.Render("Change Callsign Database"), ""}
	pageStart := m.cbCursor / callbasePage * callbasePage
	for i := pageStart; i < min(pageStart+callbasePage, len(names)); i++ {
		marker := "  "
		if i == m.cbCursor {
			marker = "> "
		}
		lines = append(lines, marker+names[i])
	}
	return strings.Join(lines, "\n")
}

// paramsSummary is a one-line description of the keying used in logs.
func paramsSummary(p session.Params) string {
	pitch := "random"
	if p.ConstantTone {
		pitch = fmt.Sprintf("%d Hz", p.ToneFreq)
	}
	return fmt.Sprintf("%d cpm, min %d cpm, %s, %.1f ms, %s", p.InitialSpeed, p.MinCharSpeed, pitch, p.RiseTime, p.Shape)
}
