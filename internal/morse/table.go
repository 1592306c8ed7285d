// Package morse converts text into keyed tone sequences with ITU and Farnsworth timing.
package morse

import "unicode"

// Element is a single Morse code element
type Element byte

const (
	Dit Element = '.'
	Dah Element = '-'
)

// Unknown is sent for characters outside the table (the "?" code).
const Unknown = "..--.."

// Code maps upper-case characters to their dit/dah patterns.
var Code = map[rune]string{
	'A': ".-",
	'B': "-...",
	'C': "-.-.",
	'D': "-..",
	'E': ".",
	'F': "..-.",
	'G': "--.",
	'H': "....",
	'I': "..",
	'J': ".---",
	'K': "-.-",
	'L': ".-..",
	'M': "--",
	'N': "-.",
	'O': "---",
	'P': ".--.",
	'Q': "--.-",
	'R': ".-.",
	'S': "...",
	'T': "-",
	'U': "..-",
	'V': "...-",
	'W': ".--",
	'X': "-..-",
	'Y': "-.--",
	'Z': "--..",

	'0': "-----",
	'1': ".----",
	'2': "..---",
	'3': "...--",
	'4': "....-",
	'5': ".....",
	'6': "-....",
	'7': "--...",
	'8': "---..",
	'9': "----.",

	'/':  "-..-.",
	'+':  ".-.-.", // AR, end of message
	'=':  "-...-", // BT
	'?':  "..--..",
	'.':  ".-.-.-",
	',':  "--..--",
	'-':  "-....-",
	'(':  "-.--.",
	')':  "-.--.-",
	'\'': ".----.",
	':':  "---...",
	';':  "-.-.-.",
	'@':  ".--.-.",
	'"':  ".-..-.",
	'!':  "-.-.--",
	'&':  ".-...",
}

// Lookup returns the pattern for r. Lower-case letters are folded; anything
// not in the table yields Unknown and ok=false.
func Lookup(r rune) (pattern string, ok bool) {
	pattern, ok = Code[unicode.ToUpper(r)]
	if !ok {
		return Unknown, false
	}
	return pattern, true
}
