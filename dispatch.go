package termengine

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/danielgatis/go-ansicode"
)

// Ensure Terminal receives the parser's primitives
var _ dispatcher = (*Terminal)(nil)

type csiKey struct {
	prefix       byte
	intermediate byte
	final        byte
}

type csiHandler func(t *Terminal, s *csiSequence)

var csiTable map[csiKey]csiHandler

// ansiModes maps ANSI mode numbers (CSI h / CSI l) to mode flags.
var ansiModes = map[int]TerminalMode{
	4:  ModeInsert,
	20: ModeLineFeedNewLine,
}

// privateModes maps DEC private mode numbers (CSI ? h / CSI ? l) to mode flags.
// Screen switching modes are handled separately.
var privateModes = map[int]TerminalMode{
	1:    ModeCursorKeys,
	6:    ModeOrigin,
	7:    ModeLineWrap,
	9:    ModeReportX10Mouse,
	12:   ModeBlinkingCursor,
	25:   ModeShowCursor,
	66:   ModeKeypadApplication,
	1000: ModeReportMouseClicks,
	1002: ModeReportCellMouseMotion,
	1003: ModeReportAllMouseMotion,
	1004: ModeReportFocusInOut,
	1005: ModeUTF8Mouse,
	1006: ModeSGRMouse,
	1007: ModeAlternateScroll,
	2004: ModeBracketedPaste,
}

// count returns parameter i for operations where 0 and missing both mean 1.
func count(s *csiSequence, i int) int {
	return max(s.Param(i, 1), 1)
}

func init() {
	csiTable = map[csiKey]csiHandler{
		{0, 0, '@'}: func(t *Terminal, s *csiSequence) { t.InsertBlank(count(s, 0)) },
		{0, 0, 'A'}: func(t *Terminal, s *csiSequence) { t.MoveUp(count(s, 0)) },
		{0, 0, 'B'}: func(t *Terminal, s *csiSequence) { t.MoveDown(count(s, 0)) },
		{0, 0, 'C'}: func(t *Terminal, s *csiSequence) { t.MoveForward(count(s, 0)) },
		{0, 0, 'D'}: func(t *Terminal, s *csiSequence) { t.MoveBackward(count(s, 0)) },
		{0, 0, 'E'}: func(t *Terminal, s *csiSequence) { t.MoveDownCr(count(s, 0)) },
		{0, 0, 'F'}: func(t *Terminal, s *csiSequence) { t.MoveUpCr(count(s, 0)) },
		{0, 0, 'G'}: func(t *Terminal, s *csiSequence) { t.GotoCol(count(s, 0) - 1) },
		{0, 0, '`'}: func(t *Terminal, s *csiSequence) { t.GotoCol(count(s, 0) - 1) },
		{0, 0, 'a'}: func(t *Terminal, s *csiSequence) { t.MoveForward(count(s, 0)) },
		{0, 0, 'd'}: func(t *Terminal, s *csiSequence) { t.GotoLine(count(s, 0) - 1) },
		{0, 0, 'e'}: func(t *Terminal, s *csiSequence) { t.MoveDown(count(s, 0)) },
		{0, 0, 'H'}: csiCursorPosition,
		{0, 0, 'f'}: csiCursorPosition,
		{0, 0, 'I'}: func(t *Terminal, s *csiSequence) { t.Tab(count(s, 0)) },
		{0, 0, 'Z'}: func(t *Terminal, s *csiSequence) { t.MoveBackwardTabs(count(s, 0)) },
		{0, 0, 'J'}: csiEraseDisplay,
		{'?', 0, 'J'}: csiEraseDisplay,
		{0, 0, 'K'}:   csiEraseLine,
		{'?', 0, 'K'}: csiEraseLine,
		{0, 0, 'L'}:   func(t *Terminal, s *csiSequence) { t.InsertBlankLines(count(s, 0)) },
		{0, 0, 'M'}:   func(t *Terminal, s *csiSequence) { t.DeleteLines(count(s, 0)) },
		{0, 0, 'P'}:   func(t *Terminal, s *csiSequence) { t.DeleteChars(count(s, 0)) },
		{0, 0, 'S'}:   func(t *Terminal, s *csiSequence) { t.ScrollUp(count(s, 0)) },
		{0, 0, 'T'}: func(t *Terminal, s *csiSequence) {
			// Five parameters is the xterm highlight mouse tracking request.
			if len(s.Params) > 1 {
				t.unhandled("unhandled csi", "final", "T", "params", formatParams(s.Params))
				return
			}
			t.ScrollDown(count(s, 0))
		},
		{0, 0, 'X'}: func(t *Terminal, s *csiSequence) { t.EraseChars(count(s, 0)) },
		{0, 0, 'b'}: func(t *Terminal, s *csiSequence) { t.RepeatPreceding(count(s, 0)) },
		{0, 0, 'c'}: func(t *Terminal, s *csiSequence) {
			if s.Param(0, 0) == 0 {
				t.IdentifyTerminal(0)
			}
		},
		{'>', 0, 'c'}: func(t *Terminal, s *csiSequence) {
			if s.Param(0, 0) == 0 {
				t.IdentifyTerminal('>')
			}
		},
		{0, 0, 'g'}: func(t *Terminal, s *csiSequence) {
			switch s.Param(0, 0) {
			case 0:
				t.ClearTabs(ansicode.TabulationClearModeCurrent)
			case 3:
				t.ClearTabs(ansicode.TabulationClearModeAll)
			}
		},
		{0, 0, 'h'}:   func(t *Terminal, s *csiSequence) { csiModes(t, s, false, true) },
		{0, 0, 'l'}:   func(t *Terminal, s *csiSequence) { csiModes(t, s, false, false) },
		{'?', 0, 'h'}: func(t *Terminal, s *csiSequence) { csiModes(t, s, true, true) },
		{'?', 0, 'l'}: func(t *Terminal, s *csiSequence) { csiModes(t, s, true, false) },
		{0, 0, 'm'}:   func(t *Terminal, s *csiSequence) { t.selectGraphicRendition(s.Params) },
		{0, 0, 'n'}:   func(t *Terminal, s *csiSequence) { t.DeviceStatus(s.Param(0, 0)) },
		{'?', 0, 'n'}: func(t *Terminal, s *csiSequence) {
			if s.Param(0, 0) != 6 {
				return
			}
			t.mu.RLock()
			row, col := t.reportPositionLocked()
			t.mu.RUnlock()
			t.writeResponseString(fmt.Sprintf("\x1b[?%d;%dR", row+1, col+1))
		},
		{0, 0, 'r'}: func(t *Terminal, s *csiSequence) {
			rows := t.Rows()
			top := s.Param(0, 1)
			bottom := s.Param(1, rows)
			if top == 0 {
				top = 1
			}
			if bottom == 0 {
				bottom = rows
			}
			t.SetScrollingRegion(top, bottom)
		},
		{0, 0, 's'}: func(t *Terminal, s *csiSequence) { t.SaveCursorPosition() },
		{0, 0, 'u'}: func(t *Terminal, s *csiSequence) { t.RestoreCursorPosition() },
		{0, 0, 't'}: csiWindowOps,
		{0, ' ', 'q'}: func(t *Terminal, s *csiSequence) {
			n := s.Param(0, 0)
			if n > 6 {
				return
			}
			t.SetCursorStyle(CursorStyle(max(n-1, 0)))
		},
		{0, '"', 'q'}: func(t *Terminal, s *csiSequence) {},
		{'!', 0, 'p'}: func(t *Terminal, s *csiSequence) { t.SoftReset() },
		{'?', 0, 's'}: func(t *Terminal, s *csiSequence) {
			t.mu.Lock()
			defer t.mu.Unlock()
			for _, p := range s.Params {
				t.savePrivateModeLocked(p.Value)
			}
		},
		{'?', 0, 'r'}: func(t *Terminal, s *csiSequence) {
			for _, p := range s.Params {
				t.mu.RLock()
				enabled, ok := t.savedPrivate[p.Value]
				t.mu.RUnlock()
				if ok {
					t.setPrivateMode(p.Value, enabled)
				}
			}
		},
	}
}

func csiCursorPosition(t *Terminal, s *csiSequence) {
	t.Goto(count(s, 0)-1, count(s, 1)-1)
}

func csiEraseDisplay(t *Terminal, s *csiSequence) {
	switch s.Param(0, 0) {
	case 0:
		t.ClearScreen(ansicode.ClearModeBelow)
	case 1:
		t.ClearScreen(ansicode.ClearModeAbove)
	case 2:
		t.ClearScreen(ansicode.ClearModeAll)
	case 3:
		t.ClearScreen(ansicode.ClearModeSaved)
	}
}

func csiEraseLine(t *Terminal, s *csiSequence) {
	switch s.Param(0, 0) {
	case 0:
		t.ClearLine(ansicode.LineClearModeRight)
	case 1:
		t.ClearLine(ansicode.LineClearModeLeft)
	case 2:
		t.ClearLine(ansicode.LineClearModeAll)
	}
}

func csiWindowOps(t *Terminal, s *csiSequence) {
	switch s.Param(0, 0) {
	case 14:
		t.TextAreaSizePixels()
	case 16:
		t.CellSizePixels()
	case 18:
		t.TextAreaSizeChars()
	case 22:
		t.PushTitle()
	case 23:
		t.PopTitle()
	default:
		t.unhandled("unhandled window op", "params", formatParams(s.Params))
	}
}

func csiModes(t *Terminal, s *csiSequence, private, enabled bool) {
	for _, p := range s.Params {
		if private {
			t.setPrivateMode(p.Value, enabled)
			continue
		}
		mode, ok := ansiModes[p.Value]
		if !ok {
			t.unhandled("unhandled mode", "mode", p.Value)
			continue
		}
		if enabled {
			t.SetMode(mode)
		} else {
			t.UnsetMode(mode)
		}
	}
}

// setPrivateMode applies one DEC private mode by number.
func (t *Terminal) setPrivateMode(n int, enabled bool) {
	switch n {
	case 47, 1047:
		t.SetAlternateScreen(enabled, false)
	case 1049:
		t.SetAlternateScreen(enabled, true)
	case 1048:
		if enabled {
			t.SaveCursorPosition()
		} else {
			t.RestoreCursorPosition()
		}
	case 3:
		// DECCOLM: the width is owned by the host, only the side effects apply.
		t.SetScrollingRegion(1, t.Rows())
		t.ClearScreen(ansicode.ClearModeAll)
		t.Goto(0, 0)
	default:
		mode, ok := privateModes[n]
		if !ok {
			t.unhandled("unhandled private mode", "mode", n)
			return
		}
		if enabled {
			t.SetMode(mode)
		} else {
			t.UnsetMode(mode)
		}
	}
}

func (t *Terminal) savePrivateModeLocked(n int) {
	switch n {
	case 47, 1047, 1049:
		t.savedPrivate[n] = t.alternate
	default:
		if mode, ok := privateModes[n]; ok {
			t.savedPrivate[n] = t.modes&mode != 0
		}
	}
}

func formatParams(params []csiParam) string {
	var sb strings.Builder
	for i, p := range params {
		if i > 0 {
			sb.WriteByte(';')
		}
		if p.Value >= 0 {
			sb.WriteString(strconv.Itoa(p.Value))
		}
		for _, sub := range p.Subs {
			sb.WriteByte(':')
			if sub >= 0 {
				sb.WriteString(strconv.Itoa(sub))
			}
		}
	}
	return sb.String()
}

func (t *Terminal) print(r rune) {
	t.Input(r)
}

func (t *Terminal) execute(b byte) {
	switch b {
	case 0x07:
		t.Bell()
	case 0x08:
		t.Backspace()
	case 0x09:
		t.Tab(1)
	case 0x0a, 0x0b, 0x0c:
		t.LineFeed()
	case 0x0d:
		t.CarriageReturn()
	case 0x0e:
		t.SetActiveCharset(CharsetIndexG1)
	case 0x0f:
		t.SetActiveCharset(CharsetIndexG0)
	}
}

func (t *Terminal) csiDispatch(s *csiSequence) {
	h, ok := csiTable[csiKey{s.Prefix, s.Intermediate, s.Final}]
	if !ok {
		t.unhandled("unhandled csi",
			"prefix", string(s.Prefix),
			"intermediate", string(s.Intermediate),
			"final", string(s.Final),
			"params", formatParams(s.Params))
		return
	}
	h(t, s)
}

func (t *Terminal) escDispatch(intermediate, final byte) {
	if intermediate != 0 {
		// S7C1T, S8C1T and character set announcements carry no state here.
		t.unhandled("unhandled esc", "intermediate", string(intermediate), "final", string(final))
		return
	}

	switch final {
	case 'D':
		t.Index()
	case 'E':
		t.NextLine()
	case 'M':
		t.ReverseIndex()
	case '7':
		t.SaveCursorPosition()
	case '8':
		t.RestoreCursorPosition()
	case 'H':
		t.HorizontalTabSet()
	case '=':
		t.SetMode(ModeKeypadApplication)
	case '>':
		t.UnsetMode(ModeKeypadApplication)
	case 'c':
		t.ResetState()
	case 'n', '}':
		t.SetActiveCharset(CharsetIndexG2)
	case 'o', '|':
		t.SetActiveCharset(CharsetIndexG3)
	case '~':
		t.SetActiveCharset(CharsetIndexG1)
	case '\\':
	default:
		t.unhandled("unhandled esc", "final", string(final))
	}
}

func (t *Terminal) oscDispatch(code int, data string, terminator string) {
	switch code {
	case 0, 2:
		t.SetTitle(data)
	case 1:
		// Icon name
	case 4:
		t.oscPalette(data, terminator)
	case 104:
		if data == "" {
			t.ResetColor(-1)
			return
		}
		for _, field := range strings.Split(data, ";") {
			if idx, err := strconv.Atoi(field); err == nil && idx >= 0 && idx < 256 {
				t.ResetColor(idx)
			}
		}
	case 7:
		t.SetWorkingDirectory(data)
	case 8:
		t.oscHyperlink(data)
	case 10, 11, 12:
		t.oscDynamicColors(code, data, terminator)
	case 110, 111, 112:
		t.ResetColor(NamedColorForeground + code - 110)
	case 52:
		t.oscClipboard(data, terminator)
	case 133, 633:
		t.handleShellIntegration(data)
	default:
		t.unhandled("unhandled osc", "code", code, "data", data)
	}
}

func (t *Terminal) oscPalette(data, terminator string) {
	fields := strings.Split(data, ";")
	for i := 0; i+1 < len(fields); i += 2 {
		idx, err := strconv.Atoi(fields[i])
		if err != nil || idx < 0 || idx > 255 {
			t.unhandled("invalid palette index", "index", fields[i])
			continue
		}
		if fields[i+1] == "?" {
			t.QueryColor(4, idx, terminator)
			continue
		}
		c, err := ParseColorSpec(fields[i+1])
		if err != nil {
			t.unhandled("invalid color", "error", err)
			continue
		}
		t.SetColor(idx, c)
	}
}

// oscDynamicColors handles OSC 10-12. Extra fields apply to the following codes.
func (t *Terminal) oscDynamicColors(code int, data, terminator string) {
	for i, spec := range strings.Split(data, ";") {
		c := code + i
		if c > 12 {
			return
		}
		index := NamedColorForeground + c - 10
		if spec == "?" {
			t.QueryColor(c, index, terminator)
			continue
		}
		rgba, err := ParseColorSpec(spec)
		if err != nil {
			t.unhandled("invalid color", "error", err)
			continue
		}
		t.SetColor(index, rgba)
	}
}

func (t *Terminal) oscHyperlink(data string) {
	params, uri, ok := strings.Cut(data, ";")
	if !ok || uri == "" {
		t.SetHyperlink(nil)
		return
	}

	var id string
	for _, kv := range strings.Split(params, ":") {
		if v, ok := strings.CutPrefix(kv, "id="); ok {
			id = v
		}
	}
	t.SetHyperlink(&ansicode.Hyperlink{ID: id, URI: uri})
}

func (t *Terminal) oscClipboard(data, terminator string) {
	selection, payload, ok := strings.Cut(data, ";")
	if !ok {
		t.unhandled("invalid clipboard request", "data", data)
		return
	}

	clipboard := byte('c')
	if selection != "" {
		clipboard = selection[0]
	}

	if payload == "?" {
		t.ClipboardLoad(clipboard, terminator)
		return
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.unhandled("invalid clipboard payload", "error", err)
		return
	}
	t.ClipboardStore(clipboard, decoded)
}

func (t *Terminal) dcsDispatch(prefix, data string) {
	switch prefix {
	case "$q":
		t.requestStatusString(data)
	case "+q", "+p":
	default:
		t.unhandled("unhandled dcs", "prefix", prefix, "data", data)
	}
}

// requestStatusString answers DECRQSS.
func (t *Terminal) requestStatusString(query string) {
	t.mu.RLock()
	var reply string
	switch query {
	case "r":
		reply = fmt.Sprintf("\x1bP1$r%d;%dr\x1b\\", t.scrollTop+1, t.scrollBottom)
	case "m":
		reply = "\x1bP1$r" + t.sgrStringLocked() + "m\x1b\\"
	case " q":
		reply = fmt.Sprintf("\x1bP1$r%d q\x1b\\", int(t.cursor.Style)+1)
	default:
		reply = "\x1bP0$r\x1b\\"
	}
	t.mu.RUnlock()

	t.writeResponseString(reply)
}

func (t *Terminal) designateCharset(slot CharsetIndex, designator byte) {
	cs, ok := LookupCharset(designator)
	if !ok {
		t.unhandled("unknown charset", "designator", string(designator))
		return
	}
	t.ConfigureCharset(slot, cs)
}

func (t *Terminal) decHash(final byte) {
	if final == '8' {
		t.Decaln()
	}
}

func (t *Terminal) unhandled(msg string, args ...any) {
	t.logDebug(msg, args...)
}
