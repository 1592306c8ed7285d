package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/qrq/internal/sender"
)

const defaultTestText = "VVVTEST"

var testCmd = &cobra.Command{
	Use:   "test [text]",
	Short: "Send a test text and exit",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	text := defaultTestText
	if len(args) == 1 {
		text = strings.ToUpper(args[0])
	}

	a, err := newApp(sender.WithErrorHandler(func(error) {}))
	if err != nil {
		return err
	}
	defer a.Close()

	<-a.session.SendText(text)
	if err := a.sender.Err(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sent %q at %d cpm\n", text, a.session.Params().InitialSpeed)
	return nil
}
