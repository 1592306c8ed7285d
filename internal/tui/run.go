package tui

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/ColonelBlimp/qrq/internal/recovery"
)

// ErrNoTerminal indicates stdin or stdout is not a terminal
var ErrNoTerminal = errors.New("qrq needs an interactive terminal")

// Run starts the trainer on the terminal and blocks until the user quits.
// The terminal is restored if a fatal error ends the program.
func Run(m *Model, opts ...tea.ProgramOption) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return ErrNoTerminal
	}

	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)
	recovery.OnFatal(func() { _ = p.ReleaseTerminal() })

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
