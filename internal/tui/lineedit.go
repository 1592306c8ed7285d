package tui

import "unicode"

// MaxLineLength is the longest transcription the editor accepts
const MaxLineLength = 14

// LineEditor is the single-line input used for callsigns and transcriptions.
// Only letters, digits and '/' are accepted; letters are upper-cased.
type LineEditor struct {
	buf       []rune
	pos       int
	overwrite bool
}

// Accepts reports whether r can be entered
func Accepts(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '/')
}

// Insert enters r at the cursor. It returns false if r is not accepted or
// the line is full.
func (e *LineEditor) Insert(r rune) bool {
	if !Accepts(r) || len(e.buf) >= MaxLineLength {
		return false
	}
	r = unicode.ToUpper(r)
	switch {
	case e.overwrite && e.pos < len(e.buf):
		e.buf[e.pos] = r
	default:
		e.buf = append(e.buf, 0)
		copy(e.buf[e.pos+1:], e.buf[e.pos:])
		e.buf[e.pos] = r
	}
	e.pos++
	return true
}

// Backspace removes the rune before the cursor
func (e *LineEditor) Backspace() bool {
	if e.pos == 0 {
		return false
	}
	e.buf = append(e.buf[:e.pos-1], e.buf[e.pos:]...)
	e.pos--
	return true
}

// Delete removes the rune under the cursor
func (e *LineEditor) Delete() bool {
	if e.pos >= len(e.buf) {
		return false
	}
	e.buf = append(e.buf[:e.pos], e.buf[e.pos+1:]...)
	return true
}

func (e *LineEditor) Left() bool {
	if e.pos == 0 {
		return false
	}
	e.pos--
	return true
}

func (e *LineEditor) Right() bool {
	if e.pos >= len(e.buf) {
		return false
	}
	e.pos++
	return true
}

func (e *LineEditor) Home() {
	e.pos = 0
}

func (e *LineEditor) End() {
	e.pos = len(e.buf)
}

// ToggleMode switches between insert and overwrite
func (e *LineEditor) ToggleMode() {
	e.overwrite = !e.overwrite
}

// Mode returns "INS" or "OVR"
func (e *LineEditor) Mode() string {
	if e.overwrite {
		return "OVR"
	}
	return "INS"
}

// Set replaces the line and moves the cursor to its end. Rejected runes
// are dropped.
func (e *LineEditor) Set(s string) {
	e.buf = e.buf[:0]
	e.pos = 0
	for _, r := range s {
		e.Insert(r)
	}
}

// Clear empties the line; the mode is kept
func (e *LineEditor) Clear() {
	e.buf = e.buf[:0]
	e.pos = 0
}

func (e *LineEditor) String() string {
	return string(e.buf)
}

// Cursor returns the cursor position in runes
func (e *LineEditor) Cursor() int {
	return e.pos
}

func (e *LineEditor) Len() int {
	return len(e.buf)
}
