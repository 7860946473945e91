package termengine

// Charset is a national replacement character table.
// A nil Charset passes characters through unchanged (US ASCII).
type Charset map[rune]rune

// CharsetIndex selects one of four character set slots (G0-G3).
type CharsetIndex int

const (
	CharsetIndexG0 CharsetIndex = iota
	CharsetIndexG1
	CharsetIndexG2
	CharsetIndexG3
)

// Translate maps r through the table.
func (c Charset) Translate(r rune) rune {
	if c == nil {
		return r
	}
	if m, ok := c[r]; ok {
		return m
	}
	return r
}

// CharsetLineDrawing is the DEC Special Graphics set.
var CharsetLineDrawing = Charset{
	'`': '◆', 'a': '▒', 'b': '␉', 'c': '␌', 'd': '␍', 'e': '␊', 'f': '°', 'g': '±',
	'h': '␤', 'i': '␋', 'j': '┘', 'k': '┐', 'l': '┌', 'm': '└', 'n': '┼', 'o': '⎺',
	'p': '⎻', 'q': '─', 'r': '⎼', 's': '⎽', 't': '├', 'u': '┤', 'v': '┴', 'w': '┬',
	'x': '│', 'y': '≤', 'z': '≥', '{': 'π', '|': '≠', '}': '£', '~': '·',
}

var charsetUK = Charset{'#': '£'}

var charsetDutch = Charset{
	'#': '£', '@': '¾', '[': 'ĳ', '\\': '½', ']': '|', '{': '¨', '|': 'f', '}': '¼', '~': '´',
}

var charsetFinnish = Charset{
	'[': 'Ä', '\\': 'Ö', ']': 'Å', '^': 'Ü', '`': 'é', '{': 'ä', '|': 'ö', '}': 'å', '~': 'ü',
}

var charsetFrench = Charset{
	'#': '£', '@': 'à', '[': '°', '\\': 'ç', ']': '§', '{': 'é', '|': 'ù', '}': 'è', '~': '¨',
}

var charsetFrenchCanadian = Charset{
	'@': 'à', '[': 'â', '\\': 'ç', ']': 'ê', '^': 'î', '`': 'ô', '{': 'é', '|': 'ù', '}': 'è', '~': 'û',
}

var charsetGerman = Charset{
	'@': '§', '[': 'Ä', '\\': 'Ö', ']': 'Ü', '{': 'ä', '|': 'ö', '}': 'ü', '~': 'ß',
}

var charsetItalian = Charset{
	'#': '£', '@': '§', '[': '°', '\\': 'ç', ']': 'é', '`': 'ù', '{': 'à', '|': 'ò', '}': 'è', '~': 'ì',
}

var charsetNorwegianDanish = Charset{
	'@': 'Ä', '[': 'Æ', '\\': 'Ø', ']': 'Å', '^': 'Ü', '`': 'ä', '{': 'æ', '|': 'ø', '}': 'å', '~': 'ü',
}

var charsetSpanish = Charset{
	'#': '£', '@': '§', '[': '¡', '\\': 'Ñ', ']': '¿', '{': '°', '|': 'ñ', '}': 'ç',
}

var charsetSwedish = Charset{
	'@': 'É', '[': 'Ä', '\\': 'Ö', ']': 'Å', '^': 'Ü', '`': 'é', '{': 'ä', '|': 'ö', '}': 'å', '~': 'ü',
}

var charsetSwiss = Charset{
	'#': 'ù', '@': 'à', '[': 'é', '\\': 'ç', ']': 'ê', '^': 'î', '_': 'è', '`': 'ô', '{': 'ä', '|': 'ö', '}': 'ü', '~': 'û',
}

// charsetDesignators maps the final byte of ESC ( / ) / * / + to its table.
// Designators mapped to nil select US ASCII.
var charsetDesignators = map[byte]Charset{
	'0': CharsetLineDrawing,
	'A': charsetUK,
	'B': nil,
	'4': charsetDutch,
	'C': charsetFinnish,
	'5': charsetFinnish,
	'R': charsetFrench,
	'f': charsetFrench,
	'Q': charsetFrenchCanadian,
	'9': charsetFrenchCanadian,
	'K': charsetGerman,
	'Y': charsetItalian,
	'E': charsetNorwegianDanish,
	'6': charsetNorwegianDanish,
	'`': charsetNorwegianDanish,
	'Z': charsetSpanish,
	'H': charsetSwedish,
	'7': charsetSwedish,
	'=': charsetSwiss,
}

// LookupCharset returns the table for a designator byte.
// ok is false for unknown designators.
func LookupCharset(designator byte) (cs Charset, ok bool) {
	cs, ok = charsetDesignators[designator]
	return cs, ok
}

// charsetSlotForIntermediate maps the ESC intermediate to the slot it designates.
func charsetSlotForIntermediate(b byte) (CharsetIndex, bool) {
	switch b {
	case '(':
		return CharsetIndexG0, true
	case ')', '-':
		return CharsetIndexG1, true
	case '*', '.':
		return CharsetIndexG2, true
	case '+', '/':
		return CharsetIndexG3, true
	}
	return 0, false
}
