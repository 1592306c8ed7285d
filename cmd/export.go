package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/qrq/internal/audio"
	"github.com/ColonelBlimp/qrq/internal/config"
	"github.com/ColonelBlimp/qrq/internal/sender"
	"github.com/ColonelBlimp/qrq/internal/session"
)

var exportFlags = struct {
	output string
	tone   int
}{}

var exportCmd = &cobra.Command{
	Use:   "export text...",
	Short: "Render text as Morse code into a WAV file",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFlags.output, "output", "o", "qrq.wav", "output file")
	exportCmd.Flags().IntVar(&exportFlags.tone, "tone", 0, "pitch in Hz (0 = configured test pitch)")
}

func runExport(cmd *cobra.Command, args []string) error {
	settings, err := config.Get()
	if err != nil {
		return err
	}
	settings.Backend = audio.BackendWAV
	settings.DSPDevice = exportFlags.output

	a, err := newAppWith(settings, sender.WithErrorHandler(func(error) {}))
	if err != nil {
		return err
	}
	defer a.Close()

	if exportFlags.tone > 0 {
		a.session.Adjust(func(p *session.Params) {
			p.ConstantTone = true
			p.ToneFreq = exportFlags.tone
		})
	}

	text := strings.ToUpper(strings.Join(args, " "))
	<-a.session.SendText(text)
	if err := a.sender.Err(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", exportFlags.output)
	return nil
}
