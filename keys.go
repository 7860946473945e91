package termengine

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
)

const (
	pasteStart = "\x1b[200~"
	pasteEnd   = "\x1b[201~"
)

// cursorKeyFinals are keys sent as CSI/SS3 with a final letter.
var cursorKeyFinals = map[tcell.Key]byte{
	tcell.KeyUp:    'A',
	tcell.KeyDown:  'B',
	tcell.KeyRight: 'C',
	tcell.KeyLeft:  'D',
	tcell.KeyHome:  'H',
	tcell.KeyEnd:   'F',
}

// tildeKeys are keys sent as CSI n ~.
var tildeKeys = map[tcell.Key]int{
	tcell.KeyInsert: 2,
	tcell.KeyDelete: 3,
	tcell.KeyPgUp:   5,
	tcell.KeyPgDn:   6,
	tcell.KeyF5:     15,
	tcell.KeyF6:     17,
	tcell.KeyF7:     18,
	tcell.KeyF8:     19,
	tcell.KeyF9:     20,
	tcell.KeyF10:    21,
	tcell.KeyF11:    23,
	tcell.KeyF12:    24,
}

// functionKeyFinals are F1-F4, sent as SS3 P..S.
var functionKeyFinals = map[tcell.Key]byte{
	tcell.KeyF1: 'P',
	tcell.KeyF2: 'Q',
	tcell.KeyF3: 'R',
	tcell.KeyF4: 'S',
}

// modifierParam returns the xterm modifier parameter, 1 when no modifier is held.
func modifierParam(mods tcell.ModMask) int {
	m := 1
	if mods&tcell.ModShift != 0 {
		m += 1
	}
	if mods&(tcell.ModAlt|tcell.ModMeta) != 0 {
		m += 2
	}
	if mods&tcell.ModCtrl != 0 {
		m += 4
	}
	return m
}

// encodeKey returns the bytes a key press sends to the application, or nil for
// keys that have no encoding.
func encodeKey(ev *tcell.EventKey, cursorKeys, newline bool) []byte {
	key, mods := ev.Key(), ev.Modifiers()
	alt := mods&(tcell.ModAlt|tcell.ModMeta) != 0
	m := modifierParam(mods)

	if final, ok := cursorKeyFinals[key]; ok {
		switch {
		case m > 1:
			return []byte("\x1b[1;" + strconv.Itoa(m) + string(final))
		case cursorKeys:
			return []byte{0x1b, 'O', final}
		default:
			return []byte{0x1b, '[', final}
		}
	}
	if n, ok := tildeKeys[key]; ok {
		if m > 1 {
			return []byte("\x1b[" + strconv.Itoa(n) + ";" + strconv.Itoa(m) + "~")
		}
		return []byte("\x1b[" + strconv.Itoa(n) + "~")
	}
	if final, ok := functionKeyFinals[key]; ok {
		if m > 1 {
			return []byte("\x1b[1;" + strconv.Itoa(m) + string(final))
		}
		return []byte{0x1b, 'O', final}
	}

	var out []byte
	switch {
	case key == tcell.KeyBacktab:
		return []byte("\x1b[Z")
	case key == tcell.KeyEnter:
		out = []byte{'\r'}
		if newline {
			out = append(out, '\n')
		}
	case key == tcell.KeyBackspace:
		// Ctrl+H and Backspace share a key code; only the former carries ModCtrl.
		if mods&tcell.ModCtrl != 0 {
			out = []byte{0x08}
		} else {
			out = []byte{0x7f}
		}
	case key == tcell.KeyRune:
		out = encodeRune(ev.Rune(), mods&tcell.ModCtrl != 0)
	case key >= tcell.KeyCtrlSpace && key <= tcell.KeyCtrlUnderscore:
		// tcell maps Ctrl with '@'..'_' one slot past the control code, so the
		// rune is authoritative when present.
		if r := ev.Rune(); r != 0 {
			out = encodeRune(r, true)
		} else {
			out = []byte{byte(key - tcell.KeyCtrlSpace)}
		}
	case key < 0x20 || key == tcell.KeyDEL:
		out = []byte{byte(key)}
	default:
		return nil
	}

	if alt {
		out = append([]byte{0x1b}, out...)
	}
	return out
}

// encodeRune encodes a printable key, folding Ctrl combinations to C0 controls.
func encodeRune(r rune, ctrl bool) []byte {
	if ctrl {
		switch {
		case r == ' ' || r == '@':
			return []byte{0}
		case r >= 'a' && r <= 'z':
			return []byte{byte(r - 'a' + 1)}
		case r >= 'A' && r <= '_':
			return []byte{byte(r - '@')}
		}
	}
	return utf8.AppendRune(nil, r)
}

// KeyDown sends the encoding of a key press to the application.
func (t *Terminal) KeyDown(ev *tcell.EventKey) {
	t.mu.RLock()
	seq := encodeKey(ev, t.modes&ModeCursorKeys != 0, t.modes&ModeLineFeedNewLine != 0)
	t.mu.RUnlock()

	if seq == nil {
		t.logDebug("unencodable key", "key", ev.Name())
		return
	}
	t.writeResponse(seq)
}

// Paste sends pasted text. Line feeds become carriage returns and the text is
// wrapped in bracketed paste markers when the application asked for them.
func (t *Terminal) Paste(text string) {
	t.mu.RLock()
	bracketed := t.modes&ModeBracketedPaste != 0
	t.mu.RUnlock()

	text = strings.ReplaceAll(text, "\r\n", "\r")
	text = strings.ReplaceAll(text, "\n", "\r")

	if bracketed {
		text = strings.ReplaceAll(text, pasteEnd, "")
		t.writeResponseString(pasteStart + text + pasteEnd)
		return
	}
	t.writeResponseString(text)
}

// Focus reports focus changes when focus reporting (mode 1004) is enabled.
func (t *Terminal) Focus(focused bool) {
	t.mu.RLock()
	reporting := t.modes&ModeReportFocusInOut != 0
	t.mu.RUnlock()

	if !reporting {
		return
	}
	if focused {
		t.writeResponseString("\x1b[I")
	} else {
		t.writeResponseString("\x1b[O")
	}
}

// Send writes raw bytes to the application.
func (t *Terminal) Send(data []byte) {
	t.writeResponse(data)
}
