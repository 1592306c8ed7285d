package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/qrq/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio output devices",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	switch backend := viper.GetString("backend"); backend {
	case audio.BackendPulse:
		sinks, err := audio.ListPulseSinks()
		if err != nil {
			return err
		}
		for _, s := range sinks {
			fmt.Fprintf(out, "%s\t%s\n", s[0], s[1])
		}
	case audio.BackendWAV:
		fmt.Fprintln(out, "the wav backend writes files; --device is the output path")
	default:
		infos, err := audio.NewPlayback(audio.DefaultPlaybackConfig()).ListDevices()
		if err != nil {
			return err
		}
		for i, info := range infos {
			mark := " "
			if info.IsDefault != 0 {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %2d  %s\n", mark, i, info.Name())
		}
	}
	return nil
}
