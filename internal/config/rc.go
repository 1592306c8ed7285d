package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/spf13/cast"
)

// MaxCallsignLength is the longest own callsign the rc file accepts
const MaxCallsignLength = 7

// Diagnostic reports an rc line that was ignored or fell back to a default.
type Diagnostic struct {
	Line int
	Key  string
	Msg  string
}

func (d Diagnostic) String() string {
	if d.Key == "" {
		return fmt.Sprintf("line %2d: %s", d.Line, d.Msg)
	}
	return fmt.Sprintf("line %2d: %s: %s", d.Line, d.Key, d.Msg)
}

type rcEntry struct {
	line  int
	key   string
	value string
}

// tokenize splits r into key=value entries in file order. Blank lines and
// lines starting with # are skipped, anything else without = is reported.
func tokenize(r io.Reader) ([]rcEntry, []Diagnostic, error) {
	var (
		entries []rcEntry
		diags   []Diagnostic
	)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, value, ok := strings.Cut(text, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" {
			diags = append(diags, Diagnostic{Line: line, Msg: fmt.Sprintf("malformed line %q ignored", text)})
			continue
		}
		entries = append(entries, rcEntry{line: line, key: key, value: strings.TrimSpace(value)})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read rc: %w", err)
	}
	return entries, diags, nil
}

// rcKey converts and checks one value. A non-nil error keeps the default.
type rcKey func(value string) (any, error)

var rcKeys = map[string]rcKey{
	"callsign":         parseCallsign,
	"initialspeed":     intAtLeast(10),
	"mincharspeed":     intAtLeast(0),
	"dspdevice":        parseDevice,
	"risetime":         floatAtLeast(0),
	"waveform":         intBetween(1, 3),
	"constanttone":     parseFlag,
	"ctonefreq":        intBetween(100, 1600),
	"unlimitedrepeat":  parseFlag,
	"fixspeed":         parseFlag,
	"unlimitedattempt": parseFlag,
	"cbptr":            intAtLeast(0),
	"samplerate":       intBetween(8000, 192000),
	"backend":          oneOf("malgo", "pulse", "wav"),
	"channels":         intBetween(1, 2),
	"maxduration":      floatAtLeast(1),
	"toplist":          parsePath,
	"debug":            parseFlag,
}

// ParseRC reads an rc file into config values. Invalid lines produce a
// diagnostic and leave the key unset; callbase may repeat and is collected
// into a list.
func ParseRC(r io.Reader) (map[string]any, []Diagnostic, error) {
	entries, diags, err := tokenize(r)
	if err != nil {
		return nil, nil, err
	}

	values := make(map[string]any)
	var callbases []string
	for _, e := range entries {
		if e.key == "callbase" {
			path, err := parsePath(e.value)
			if err != nil {
				diags = append(diags, Diagnostic{Line: e.line, Key: e.key, Msg: err.Error()})
				continue
			}
			callbases = append(callbases, path.(string))
			continue
		}
		parse, known := rcKeys[e.key]
		if !known {
			diags = append(diags, Diagnostic{Line: e.line, Key: e.key, Msg: "unknown key ignored"})
			continue
		}
		v, err := parse(e.value)
		if err != nil {
			diags = append(diags, Diagnostic{
				Line: e.line,
				Key:  e.key,
				Msg:  fmt.Sprintf("%v; using default %v", err, defaults[e.key]),
			})
			continue
		}
		values[e.key] = v
	}
	if len(callbases) > 0 {
		values["callbase"] = callbases
	}
	return values, diags, nil
}

// ReadRC parses the rc file at path.
func ReadRC(path string) (map[string]any, []Diagnostic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	return ParseRC(f)
}

func parseCallsign(value string) (any, error) {
	call := strings.ToUpper(value)
	for _, r := range call {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '/' {
			return nil, fmt.Errorf("%q contains invalid characters", value)
		}
	}
	if len(call) > MaxCallsignLength {
		return nil, fmt.Errorf("%q too long", value)
	}
	return call, nil
}

func parseDevice(value string) (any, error) {
	if len(value) < 2 {
		return nil, fmt.Errorf("invalid device %q", value)
	}
	return value, nil
}

func parsePath(value string) (any, error) {
	if len(value) < 2 {
		return nil, fmt.Errorf("invalid path %q", value)
	}
	return value, nil
}

func parseFlag(value string) (any, error) {
	b, err := cast.ToBoolE(value)
	if err != nil {
		return nil, fmt.Errorf("%q is not 0 or 1", value)
	}
	return b, nil
}

// parseInt reads a decimal integer; leading zeros do not switch cast to octal.
func parseInt(value string) (int, error) {
	digits := strings.TrimLeft(value, "0")
	if digits == "" && value != "" {
		digits = "0"
	}
	if digits == "" {
		return 0, fmt.Errorf("%q is not a number", value)
	}
	n, err := cast.ToIntE(digits)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", value)
	}
	return n, nil
}

func intAtLeast(lo int) rcKey {
	return func(value string) (any, error) {
		n, err := parseInt(value)
		if err != nil {
			return nil, err
		}
		if n < lo {
			return nil, fmt.Errorf("%d invalid (range: %d..)", n, lo)
		}
		return n, nil
	}
}

func intBetween(lo, hi int) rcKey {
	return func(value string) (any, error) {
		n, err := parseInt(value)
		if err != nil {
			return nil, err
		}
		if n < lo || n > hi {
			return nil, fmt.Errorf("%d invalid (range: %d..%d)", n, lo, hi)
		}
		return n, nil
	}
}

func floatAtLeast(lo float64) rcKey {
	return func(value string) (any, error) {
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", value)
		}
		if f < lo {
			return nil, fmt.Errorf("%v invalid (minimum %v)", f, lo)
		}
		return f, nil
	}
}

func oneOf(options ...string) rcKey {
	return func(value string) (any, error) {
		v := strings.ToLower(value)
		for _, o := range options {
			if v == o {
				return v, nil
			}
		}
		return nil, fmt.Errorf("%q invalid (one of %s)", value, strings.Join(options, ", "))
	}
}
