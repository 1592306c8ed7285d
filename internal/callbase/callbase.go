// Package callbase loads callsign files and draws calls from them without
// repetition.
package callbase

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/ftl/hamradio/callsign"
)

var (
	// ErrEmpty indicates a callbase without a single entry
	ErrEmpty = errors.New("callbase is empty")
	// ErrNoCallbase indicates the callbase list has no files
	ErrNoCallbase = errors.New("no callbase files configured")
)

// Normalize strips trailing line terminators and whitespace and upper-cases
// the entry. Normalize(Normalize(s)) == Normalize(s).
func Normalize(entry string) string {
	return strings.ToUpper(strings.TrimRight(entry, " \t\r\n"))
}

// Parse reads one entry per line. Empty lines are skipped.
func Parse(r io.Reader) ([]string, error) {
	var calls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		call := Normalize(scanner.Text())
		if call == "" {
			continue
		}
		calls = append(calls, call)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read callbase: %w", err)
	}
	if len(calls) == 0 {
		return nil, ErrEmpty
	}
	return calls, nil
}

// Load reads the callbase file at path.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open callbase: %w", err)
	}
	defer f.Close()

	calls, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Printf("read %d calls from %s", len(calls), path)
	if _, invalid := Validate(calls); len(invalid) > 0 {
		log.Printf("%s: %d entries are not valid callsigns, e.g. %q", path, len(invalid), invalid[0])
	}
	return calls, nil
}

// Validate splits entries into those that parse as amateur radio callsigns
// and those that do not. Invalid entries are still playable.
func Validate(calls []string) (valid, invalid []string) {
	for _, c := range calls {
		if !IsCallsign(c) {
			invalid = append(invalid, c)
			continue
		}
		valid = append(valid, c)
	}
	return valid, invalid
}

// IsCallsign reports whether c parses as an amateur radio callsign
func IsCallsign(c string) bool {
	_, err := callsign.Parse(c)
	return err == nil
}

// Pool hands out the calls of one attempt in random order, each at most once.
type Pool struct {
	calls []string
	next  int
}

// NewPool shuffles a copy of calls with rng. A nil rng uses the global source.
func NewPool(calls []string, rng *rand.Rand) *Pool {
	shuffled := append([]string(nil), calls...)
	swap := func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] }
	if rng != nil {
		rng.Shuffle(len(shuffled), swap)
	} else {
		rand.Shuffle(len(shuffled), swap)
	}
	return &Pool{calls: shuffled}
}

// Draw returns the next unused call. ok is false once the pool is exhausted.
func (p *Pool) Draw() (call string, ok bool) {
	if p.next >= len(p.calls) {
		return "", false
	}
	call = p.calls[p.next]
	p.next++
	return call, true
}

// Len returns the total number of calls.
func (p *Pool) Len() int {
	return len(p.calls)
}

// Remaining returns the number of calls not yet drawn.
func (p *Pool) Remaining() int {
	return len(p.calls) - p.next
}
