package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/qrq/internal/config"
	"github.com/ColonelBlimp/qrq/internal/stats"
	"github.com/ColonelBlimp/qrq/internal/toplist"
)

var statsFlags = struct {
	call   string
	text   bool
	noPlot bool
	rows   int
}{}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show score statistics from the toplist",
	Long: `Print the toplist as a table or plot the score history of a callsign
with gnuplot.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsFlags.call, "call", "", "callsign to report (default: configured callsign)")
	statsCmd.Flags().BoolVar(&statsFlags.text, "text", false, "print the toplist as a table")
	statsCmd.Flags().BoolVar(&statsFlags.noPlot, "no-plot", false, "write the gnuplot script without starting gnuplot")
	statsCmd.Flags().IntVarP(&statsFlags.rows, "rows", "n", 20, "table rows (-1 for all)")
}

func runStats(cmd *cobra.Command, _ []string) error {
	settings, err := config.Get()
	if err != nil {
		return err
	}
	call := settings.Callsign
	if statsFlags.call != "" {
		call = statsFlags.call
	}

	entries, err := toplist.Read(settings.Toplist)
	if err != nil {
		return err
	}

	if statsFlags.text {
		return stats.WriteTable(cmd.OutOrStdout(), call, entries, statsFlags.rows)
	}

	script, err := stats.WriteScript("", call, entries)
	if err != nil {
		return err
	}
	if statsFlags.noPlot {
		fmt.Fprintln(cmd.OutOrStdout(), script)
		return nil
	}
	return stats.Plot(context.Background(), script)
}
