// Package toplist reads and updates the flat-file high score list.
//
// Each record is one line: callsign left-aligned in 10 columns, score in 6,
// a space, max speed in 3, a space and a unix timestamp in 10. Records are
// kept in descending score order. LF and CRLF files are both supported; the
// terminator of the first line is used for inserted records.
package toplist

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrMalformed indicates a record that cannot be parsed
var ErrMalformed = errors.New("malformed toplist record")

// Entry is one toplist record.
type Entry struct {
	Call     string
	Score    int
	MaxSpeed int
	Time     time.Time
}

// Format renders e without a line terminator.
func (e Entry) Format() string {
	return fmt.Sprintf("%-10s%6d %3d %10d", e.Call, e.Score, e.MaxSpeed, e.Time.Unix())
}

// ParseEntry parses one record.
func ParseEntry(line string) (Entry, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Entry{}, fmt.Errorf("%w: %q", ErrMalformed, line)
	}
	nums := make([]int64, 3)
	for i, f := range fields[1:] {
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: %q", ErrMalformed, line)
		}
		nums[i] = n
	}
	return Entry{
		Call:     fields[0],
		Score:    int(nums[0]),
		MaxSpeed: int(nums[1]),
		Time:     time.Unix(nums[2], 0),
	}, nil
}

// Read returns all records in file order. Malformed lines are skipped.
func Read(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read toplist: %w", err)
	}
	var entries []Entry
	for _, line := range splitLines(data) {
		e, err := ParseEntry(string(line))
		if err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Insert adds e before the first record whose score is not higher and
// rewrites the file. Entries with a zero score are not recorded. It returns
// the zero-based position of the new record, or -1 when nothing was written.
func Insert(path string, e Entry) (int, error) {
	if e.Score <= 0 {
		return -1, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return -1, fmt.Errorf("read toplist: %w", err)
	}

	eol := lineEnding(data)
	lines := splitLines(data)

	pos := len(lines)
	for i, line := range lines {
		existing, err := ParseEntry(string(line))
		if err != nil {
			continue
		}
		if existing.Score <= e.Score {
			pos = i
			break
		}
	}

	var out bytes.Buffer
	for i, line := range lines {
		if i == pos {
			out.WriteString(e.Format())
			out.WriteString(eol)
		}
		out.Write(line)
		out.WriteString(eol)
	}
	if pos == len(lines) {
		out.WriteString(e.Format())
		out.WriteString(eol)
	}

	if err := writeFile(path, out.Bytes()); err != nil {
		return -1, err
	}
	return pos, nil
}

// writeFile replaces path through a temporary file in the same directory.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".toplist-*")
	if err != nil {
		return fmt.Errorf("write toplist: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write toplist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write toplist: %w", err)
	}
	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmp.Name(), info.Mode().Perm())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write toplist: %w", err)
	}
	return nil
}

// lineEnding returns the terminator of the first line, LF for empty files.
func lineEnding(data []byte) string {
	i := bytes.IndexByte(data, '\n')
	if i > 0 && data[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

// splitLines returns the non-empty lines without terminators.
func splitLines(data []byte) [][]byte {
	var lines [][]byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// Top returns at most n leading entries.
func Top(entries []Entry, n int) []Entry {
	if n < 0 || n > len(entries) {
		n = len(entries)
	}
	return entries[:n]
}

// ForCall returns the entries of call in file order.
func ForCall(entries []Entry, call string) []Entry {
	var out []Entry
	for _, e := range entries {
		if strings.EqualFold(e.Call, call) {
			out = append(out, e)
		}
	}
	return out
}

// Best returns the highest score of call, 0 when it has none.
func Best(entries []Entry, call string) int {
	best := 0
	for _, e := range ForCall(entries, call) {
		best = max(best, e.Score)
	}
	return best
}
