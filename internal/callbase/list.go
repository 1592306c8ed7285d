package callbase

import (
	"fmt"
	"path/filepath"
)

// List is the set of selectable callbase files with the active index.
type List struct {
	Files []string
	Ptr   int
}

// Current returns the active callbase path. An out-of-range pointer falls
// back to the first file.
func (l *List) Current() (string, error) {
	if len(l.Files) == 0 {
		return "", ErrNoCallbase
	}
	if l.Ptr < 0 || l.Ptr >= len(l.Files) {
		l.Ptr = 0
	}
	return l.Files[l.Ptr], nil
}

// Select makes file i active.
func (l *List) Select(i int) error {
	if i < 0 || i >= len(l.Files) {
		return fmt.Errorf("callbase index %d out of range [0,%d)", i, len(l.Files))
	}
	l.Ptr = i
	return nil
}

// Names returns the base names of all files for display.
func (l *List) Names() []string {
	names := make([]string, len(l.Files))
	for i, f := range l.Files {
		names[i] = filepath.Base(f)
	}
	return names
}
