// Package stats exports toplist history for plotting.
package stats

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ColonelBlimp/qrq/internal/toplist"
)

// ErrNoGnuplot indicates gnuplot is not on PATH
var ErrNoGnuplot = errors.New("gnuplot not found")

// ScriptName is the file name of the plot script in the temp directory
const ScriptName = "qrq-plot"

// WriteGnuplot writes a gnuplot script plotting score over time for call.
// Without any entries a single 0 0 point is plotted.
func WriteGnuplot(w io.Writer, call string, entries []toplist.Entry) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "set yrange [0:]\nset xlabel \"Date/Time\"\n"+
		"set title \"QRQ scores for %s. Press 'q' to close this window.\"\n"+
		"set ylabel \"Score\"\nset xdata time\nset timefmt \"%%s\"\n"+
		"plot \"-\" using 1:2 title \"\"\n", call)

	mine := toplist.ForCall(entries, call)
	for _, e := range mine {
		fmt.Fprintf(bw, "%d %d\n", e.Time.Unix(), e.Score)
	}
	if len(mine) == 0 {
		bw.WriteString("0 0\n")
	}
	bw.WriteString("end\npause 10000\n")
	return bw.Flush()
}

// WriteScript writes the plot script to dir and returns its path.
func WriteScript(dir, call string, entries []toplist.Entry) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, ScriptName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create plot script: %w", err)
	}
	if err := WriteGnuplot(f, call, entries); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write plot script: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close plot script: %w", err)
	}
	return path, nil
}

// Plot starts gnuplot on script in the background.
func Plot(ctx context.Context, script string) error {
	bin, err := exec.LookPath("gnuplot")
	if err != nil {
		return ErrNoGnuplot
	}
	cmd := exec.CommandContext(ctx, bin, script)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start gnuplot: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// WriteTable prints entries as aligned columns. Rows belonging to call are
// marked with an asterisk; n limits the number of rows (n < 0 for all).
func WriteTable(w io.Writer, call string, entries []toplist.Entry, n int) error {
	rows := toplist.Top(entries, n)

	callWidth := runewidth.StringWidth("Call")
	for _, e := range rows {
		callWidth = max(callWidth, runewidth.StringWidth(e.Call))
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "  %s  %6s  %5s  %s\n", runewidth.FillRight("Call", callWidth), "Score", "Speed", "Date")
	fmt.Fprintf(bw, "  %s\n", strings.Repeat("-", callWidth+2+6+2+5+2+16))
	for _, e := range rows {
		mark := " "
		if strings.EqualFold(e.Call, call) {
			mark = "*"
		}
		fmt.Fprintf(bw, "%s %s  %6d  %5d  %s\n",
			mark, runewidth.FillRight(e.Call, callWidth), e.Score, e.MaxSpeed,
			e.Time.Local().Format("2006-01-02 15:04"))
	}
	if best := toplist.Best(entries, call); best > 0 {
		fmt.Fprintf(bw, "\nBest score for %s: %d\n", call, best)
	}
	return bw.Flush()
}
