package termengine

import (
	"unicode/utf8"

	"github.com/unilibs/uniwidth"
	"golang.org/x/text/unicode/norm"
)

// runeWidth returns the display width: 2 for wide characters (CJK, emoji), 1 for normal, 0 for zero-width (combining marks, control chars).
func runeWidth(r rune) int {
	return uniwidth.RuneWidth(r)
}

// isWideRune returns true if the rune occupies 2 columns (CJK ideographs, fullwidth forms, emoji).
func isWideRune(r rune) bool {
	return uniwidth.RuneWidth(r) == 2
}

// StringWidth returns the total display width of a string (sum of rune widths).
func StringWidth(s string) int {
	return uniwidth.StringWidth(s)
}

// combineRune folds a zero-width mark into base using NFC composition.
// ok is false when no precomposed code point exists.
func combineRune(base, mark rune) (rune, bool) {
	composed := norm.NFC.String(string(base) + string(mark))
	r, size := utf8.DecodeRuneInString(composed)
	if size != len(composed) || r == utf8.RuneError {
		return base, false
	}
	return r, true
}
