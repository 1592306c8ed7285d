// internal/config/config.go
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	AppName      = "qrq"
	EnvPrefix    = "QRQ"
	RCFile       = "qrqrc"
	ToplistFile  = "toplist"
	CallbaseFile = "callbase.txt"

	// NoCall replaces an empty own callsign
	NoCall = "NOCALL"

	DefaultConfig = `# qrq configuration
# One key=value per line. Lines starting with # are ignored.

# Your callsign, at most 7 characters
callsign=NOCALL

# Speed in characters per minute (cpm), at least 10
initialspeed=200
# Characters are keyed at least this fast; 0 disables Farnsworth timing
mincharspeed=0

# Rise and fall time of each element in milliseconds
risetime=2
# 1 = sine, 2 = sawtooth, 3 = square
waveform=1
# 1 keeps the pitch at ctonefreq, 0 picks a random pitch per call
constanttone=0
ctonefreq=800

# Training modes; results are not entered into the toplist
unlimitedrepeat=0
fixspeed=0
unlimitedattempt=0

# Callsign databases, one per line; cbptr selects the active one.
# Relative paths are resolved against this file's directory.
callbase=callbase.txt
cbptr=0

# Audio output: backend is malgo, pulse or wav
backend=malgo
dspdevice=default
samplerate=44100
channels=1
# Longest utterance in seconds
maxduration=20
`
)

// DefaultCallbase is installed next to a freshly created qrqrc
//
//go:embed callbase.txt
var DefaultCallbase string

var defaults = map[string]any{
	"callsign":         NoCall,
	"initialspeed":     200,
	"mincharspeed":     0,
	"dspdevice":        "default",
	"risetime":         2.0,
	"waveform":         1,
	"constanttone":     false,
	"ctonefreq":        800,
	"unlimitedrepeat":  false,
	"fixspeed":         false,
	"unlimitedattempt": false,
	"callbase":         []string{},
	"cbptr":            0,
	"samplerate":       44100,
	"backend":          "malgo",
	"channels":         1,
	"maxduration":      20.0,
	"toplist":          "",
	"debug":            false,
}

// Settings holds all application configuration
type Settings struct {
	// Operator
	Callsign string `mapstructure:"callsign"`

	// Speed in characters per minute
	InitialSpeed int `mapstructure:"initialspeed"`
	MinCharSpeed int `mapstructure:"mincharspeed"`

	// Tone
	RiseTime     float64 `mapstructure:"risetime"`
	Waveform     int     `mapstructure:"waveform"`
	ConstantTone bool    `mapstructure:"constanttone"`
	CToneFreq    int     `mapstructure:"ctonefreq"`

	// Training modes
	UnlimitedRepeat  bool `mapstructure:"unlimitedrepeat"`
	FixSpeed         bool `mapstructure:"fixspeed"`
	UnlimitedAttempt bool `mapstructure:"unlimitedattempt"`

	// Files
	Callbase []string `mapstructure:"callbase"`
	CBPtr    int      `mapstructure:"cbptr"`
	Toplist  string   `mapstructure:"toplist"`

	// Audio output
	Backend     string  `mapstructure:"backend"`
	DSPDevice   string  `mapstructure:"dspdevice"`
	SampleRate  int     `mapstructure:"samplerate"`
	Channels    int     `mapstructure:"channels"`
	MaxDuration float64 `mapstructure:"maxduration"`

	// Output
	Debug bool `mapstructure:"debug"`
}

// MaxUtterance returns MaxDuration as a time.Duration
func (s *Settings) MaxUtterance() time.Duration {
	return time.Duration(s.MaxDuration * float64(time.Second))
}

// Init initializes Viper with defaults, the rc file and QRQ_* environment
// variables. An empty cfgFile searches ./qrqrc with ./toplist, then the
// user config directory; when neither has a config, defaults are installed
// there. Diagnostics describe rc lines that were ignored.
func Init(cfgFile string) ([]Diagnostic, error) {
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	rcPath, toplistPath, err := locate(cfgFile)
	if err != nil {
		return nil, err
	}

	values, diags, err := ReadRC(rcPath)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(rcPath)
	if list, ok := values["callbase"].([]string); ok {
		for i, p := range list {
			list[i] = resolve(dir, p)
		}
	}
	if p, ok := values["toplist"].(string); ok {
		toplistPath = resolve(dir, p)
		delete(values, "toplist")
	}
	viper.SetDefault("toplist", toplistPath)

	if err := viper.MergeConfigMap(values); err != nil {
		return nil, fmt.Errorf("merge config: %w", err)
	}
	viper.SetConfigFile(rcPath)

	if err := ensureToplist(viper.GetString("toplist")); err != nil {
		return nil, err
	}
	return diags, nil
}

// locate returns the rc and toplist paths to use.
func locate(cfgFile string) (string, string, error) {
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return "", "", fmt.Errorf("read config: %w", err)
		}
		return cfgFile, filepath.Join(filepath.Dir(cfgFile), ToplistFile), nil
	}

	if exists(RCFile) && exists(ToplistFile) {
		rc, err := filepath.Abs(RCFile)
		if err != nil {
			return "", "", fmt.Errorf("resolve config path: %w", err)
		}
		return rc, filepath.Join(filepath.Dir(rc), ToplistFile), nil
	}

	dir, err := UserDir()
	if err != nil {
		return "", "", err
	}
	if err := ensureConfigExists(dir); err != nil {
		return "", "", err
	}
	return filepath.Join(dir, RCFile), filepath.Join(dir, ToplistFile), nil
}

// UserDir returns the per-user data directory, e.g. ~/.config/qrq
func UserDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		home := os.Getenv("HOME")
		if home == "" {
			return "", fmt.Errorf("locate config dir: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, AppName), nil
}

// ensureConfigExists installs qrqrc, an empty toplist and the default
// callbase into configPath unless a qrqrc is already there.
func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, RCFile)

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
		callbase := filepath.Join(configPath, CallbaseFile)
		if !exists(callbase) {
			if err = os.WriteFile(callbase, []byte(DefaultCallbase), 0644); err != nil {
				return fmt.Errorf("write default callbase: %w", err)
			}
		}
	}
	return ensureToplist(filepath.Join(configPath, ToplistFile))
}

// ensureToplist creates an empty toplist if none exists.
func ensureToplist(path string) error {
	if path == "" || exists(path) {
		return nil
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		return fmt.Errorf("create toplist: %w", err)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func resolve(dir, path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// ConfigFile returns the rc file in use
func ConfigFile() string {
	return viper.ConfigFileUsed()
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	s.Callsign = strings.ToUpper(strings.TrimSpace(s.Callsign))
	s.Backend = strings.ToLower(s.Backend)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Speed
	if s.InitialSpeed < 10 {
		errs = append(errs, fmt.Errorf("initialspeed must be at least 10 cpm, got %d", s.InitialSpeed))
	}
	if s.MinCharSpeed < 0 {
		errs = append(errs, fmt.Errorf("mincharspeed must not be negative, got %d", s.MinCharSpeed))
	}

	// Tone
	if s.RiseTime < 0 {
		errs = append(errs, fmt.Errorf("risetime must not be negative, got %v", s.RiseTime))
	}
	if s.Waveform < 1 || s.Waveform > 3 {
		errs = append(errs, fmt.Errorf("waveform must be 1, 2 or 3, got %d", s.Waveform))
	}
	if s.CToneFreq < 100 || s.CToneFreq > 1600 {
		errs = append(errs, fmt.Errorf("ctonefreq must be between 100 and 1600 Hz, got %d", s.CToneFreq))
	}

	// Files
	if len(s.Callbase) == 0 {
		errs = append(errs, errors.New("at least one callbase must be configured"))
	}
	if s.CBPtr < 0 {
		errs = append(errs, fmt.Errorf("cbptr must not be negative, got %d", s.CBPtr))
	}

	// Audio output
	switch s.Backend {
	case "malgo", "pulse", "wav":
	default:
		errs = append(errs, fmt.Errorf("backend must be one of malgo, pulse, wav, got %q", s.Backend))
	}
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("samplerate must be between 8000 and 192000 Hz, got %d", s.SampleRate))
	}
	if s.Channels < 1 || s.Channels > 2 {
		errs = append(errs, fmt.Errorf("channels must be 1 or 2, got %d", s.Channels))
	}
	if s.MaxDuration < 1 {
		errs = append(errs, fmt.Errorf("maxduration must be at least 1 second, got %v", s.MaxDuration))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
