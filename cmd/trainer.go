package cmd

import (
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/qrq/internal/recovery"
	"github.com/ColonelBlimp/qrq/internal/tui"
)

const debugLogFile = "qrq-debug.log"

func runTrainer(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	recovery.OnFatal(func() { _ = a.sink.Close() })

	if a.settings.Debug {
		f, err := tea.LogToFile(debugLogFile, "qrq")
		if err != nil {
			return fmt.Errorf("open debug log: %w", err)
		}
		defer f.Close()
	}

	if err := a.sink.Open(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("close audio: %v", err)
		}
	}()

	m := tui.NewModel(tui.Config{
		Session: a.session,
		Done:    a.sender.Done,
		Toplist: a.settings.Toplist,
		Version: version,
	})
	if err := tui.Run(m); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Thanks for using 'qrq'!")
	return nil
}
