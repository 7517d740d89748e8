package fontmetrics

import (
	"golang.org/x/text/encoding/charmap"
)

// Replacement is the code drawn for characters outside WinAnsi
const Replacement = '?'

// EncodeRune maps r to its WinAnsi (Windows-1252) code
func EncodeRune(r rune) byte {
	if b, ok := charmap.Windows1252.EncodeRune(r); ok {
		return b
	}
	return Replacement
}

// Encode maps every character of s to WinAnsi, one byte per character
func Encode(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, EncodeRune(r))
	}
	return out
}

// Representable reports whether every character of s exists in WinAnsi
func Representable(s string) bool {
	for _, r := range s {
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return false
		}
	}
	return true
}
