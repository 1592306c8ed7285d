package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/wav"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func resetForTest(t *testing.T) {
	t.Helper()
	viper.Reset()
	cfgFile = ""
	statsFlags.call, statsFlags.text, statsFlags.noPlot, statsFlags.rows = "", false, false, 20
	exportFlags.output, exportFlags.tone = "qrq.wav", 0
	resetFlags(rootCmd)

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, ".config"))
	t.Setenv("TMPDIR", tmpDir)
	t.Chdir(tmpDir)
}

// resetFlags restores every flag of c and its subcommands to its default
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// writeConfig creates a qrqrc with a callbase and a toplist in a temp dir
func writeConfig(t *testing.T, rc, top string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "calls.txt"), []byte("K1ABC\nW2XYZ\n"), 0644); err != nil {
		t.Fatalf("failed to write callbase: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "toplist"), []byte(top), 0644); err != nil {
		t.Fatalf("failed to write toplist: %v", err)
	}
	path := filepath.Join(dir, "qrqrc")
	if err := os.WriteFile(path, []byte("callbase=calls.txt\n"+rc), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCmd_HasExpectedFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	tests := []struct {
		name         string
		shorthand    string
		defaultValue string
	}{
		{"config", "c", ""},
		{"backend", "b", "malgo"},
		{"device", "d", "default"},
		{"speed", "s", "200"},
		{"debug", "D", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := flags.Lookup(tt.name)
			if flag == nil {
				t.Fatalf("flag %q not found", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("flag %q shorthand = %q, want %q", tt.name, flag.Shorthand, tt.shorthand)
			}
			if flag.DefValue != tt.defaultValue {
				t.Errorf("flag %q default = %q, want %q", tt.name, flag.DefValue, tt.defaultValue)
			}
			if flag.Usage == "" {
				t.Errorf("flag %q has no description", tt.name)
			}
		})
	}
}

func TestRootCmd_Properties(t *testing.T) {
	if rootCmd.Use != "qrq" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "qrq")
	}
	if rootCmd.Short == "" {
		t.Error("rootCmd.Short is empty")
	}
	if rootCmd.Long == "" {
		t.Error("rootCmd.Long is empty")
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	want := map[string]bool{"test": false, "stats": false, "devices": false, "export": false, "version": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRootCmd_HelpOutput(t *testing.T) {
	resetForTest(t)

	out, _, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("Execute() with --help error = %v", err)
	}
	for _, want := range []string{"qrq", "--backend", "--device", "stats"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	resetForTest(t)

	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "qrq develop") {
		t.Errorf("version output = %q", out)
	}
}

func TestInitConfig_MissingFile(t *testing.T) {
	resetForTest(t)

	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing"), "stats", "--text")
	if err == nil {
		t.Fatal("expected error for a missing config file, got nil")
	}
	if !strings.Contains(err.Error(), "config") {
		t.Errorf("expected config error, got: %v", err)
	}
}

func TestInitConfig_Diagnostics(t *testing.T) {
	resetForTest(t)
	path := writeConfig(t, "waveform=9\nbogus\n", "")

	_, errOut, err := execute(t, "--config", path, "stats", "--text")
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	if !strings.Contains(errOut, "waveform") || !strings.Contains(errOut, "line  3") {
		t.Errorf("diagnostics = %q, want waveform and line 3", errOut)
	}
}

func TestInitConfig_FlagsOverrideConfig(t *testing.T) {
	resetForTest(t)
	path := writeConfig(t, "initialspeed=150\nbackend=pulse\n", "")

	if _, _, err := execute(t, "--config", path, "--speed", "300", "stats", "--text"); err != nil {
		t.Fatalf("stats error = %v", err)
	}
	if got := viper.GetInt("initialspeed"); got != 300 {
		t.Errorf("initialspeed = %d, want 300 from --speed", got)
	}
	if got := viper.GetString("backend"); got != "pulse" {
		t.Errorf("backend = %q, want pulse from the config file", got)
	}
}

func TestStatsCmd_Text(t *testing.T) {
	resetForTest(t)
	top := "DJ1YFK      5000 260 1700000000\nW1AW        3000 240 1700000100\n"
	path := writeConfig(t, "callsign=dj1yfk\n", top)

	out, _, err := execute(t, "--config", path, "stats", "--text")
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	for _, want := range []string{"* DJ1YFK", "W1AW", "Best score for DJ1YFK: 5000"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestStatsCmd_NoPlot(t *testing.T) {
	resetForTest(t)
	path := writeConfig(t, "callsign=DJ1YFK\n", "DJ1YFK      5000 260 1700000000\n")

	out, _, err := execute(t, "--config", path, "stats", "--no-plot")
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	script := strings.TrimSpace(out)
	data, err := os.ReadFile(script)
	if err != nil {
		t.Fatalf("read script %q: %v", script, err)
	}
	if !strings.Contains(string(data), "1700000000 5000") {
		t.Errorf("script missing data point:\n%s", data)
	}
}

func TestExportCmd_WritesWAV(t *testing.T) {
	resetForTest(t)
	path := writeConfig(t, "samplerate=8000\ninitialspeed=300\n", "")
	output := filepath.Join(t.TempDir(), "cq.wav")

	out, _, err := execute(t, "--config", path, "export", "cq", "test", "-o", output, "--tone", "700")
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	if !strings.Contains(out, output) {
		t.Errorf("export output = %q", out)
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatalf("open wav: %v", err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("export did not write a valid WAV file")
	}
	if dec.SampleRate != 8000 {
		t.Errorf("SampleRate = %d, want 8000", dec.SampleRate)
	}
}

func TestSessionParams(t *testing.T) {
	resetForTest(t)
	path := writeConfig(t, "waveform=3\nconstanttone=1\nctonefreq=650\nfixspeed=1\n", "")
	if _, _, err := execute(t, "--config", path, "stats", "--text"); err != nil {
		t.Fatalf("stats error = %v", err)
	}

	a, err := newApp()
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	p := a.session.Params()
	if p.Shape.String() != "Square" {
		t.Errorf("Shape = %v, want Square", p.Shape)
	}
	if !p.ConstantTone || p.ToneFreq != 650 || !p.FixSpeed {
		t.Errorf("params = %+v", p)
	}
	if got := a.session.Callsign(); got != "NOCALL" {
		t.Errorf("Callsign() = %q, want NOCALL", got)
	}
}
