// cmd/root.go
package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/qrq/internal/config"
)

var (
	version   = "develop"
	gitCommit = "-"
	buildTime = "-"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "qrq",
	Short: "High speed Morse callsign copying trainer",
	Long: `qrq sends random callsigns in Morse code at increasing speed. Type what
you heard; correct copies raise the speed and score, mistakes lower them.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	RunE:              runTrainer,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags (override config file)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "qrqrc file (default ./qrqrc or the user config directory)")
	rootCmd.PersistentFlags().StringP("backend", "b", "malgo", "audio backend: malgo, pulse or wav")
	rootCmd.PersistentFlags().StringP("device", "d", "default", "output device; file path for the wav backend")
	rootCmd.PersistentFlags().IntP("speed", "s", 200, "initial speed in characters per minute")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug output")
}

// bindFlags binds the global flags to their config keys
func bindFlags(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	for key, name := range map[string]string{
		"backend":      "backend",
		"dspdevice":    "device",
		"initialspeed": "speed",
		"debug":        "debug",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func initConfig(cmd *cobra.Command, _ []string) error {
	diagnostics, err := config.Init(cfgFile)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	for _, d := range diagnostics {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", config.ConfigFile(), d)
	}
	if err := bindFlags(cmd); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if !viper.GetBool("debug") {
		log.SetOutput(io.Discard)
	}
	log.Printf("qrq version %s", formatVersion())
	log.Printf("using config %s", config.ConfigFile())
	return nil
}

func formatVersion() string {
	return fmt.Sprintf("%s (%s, built %s)", version, gitCommit, buildTime)
}
