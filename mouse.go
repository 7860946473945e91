package termengine

import (
	"strconv"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
)

// MouseButton identifies the button of a mouse event.
type MouseButton int

const (
	MouseButtonNone MouseButton = iota
	MouseButtonLeft
	MouseButtonMiddle
	MouseButtonRight
	MouseButtonWheelUp
	MouseButtonWheelDown
)

// String returns the button name.
func (b MouseButton) String() string {
	switch b {
	case MouseButtonNone:
		return "none"
	case MouseButtonLeft:
		return "left"
	case MouseButtonMiddle:
		return "middle"
	case MouseButtonRight:
		return "right"
	case MouseButtonWheelUp:
		return "wheel_up"
	case MouseButtonWheelDown:
		return "wheel_down"
	default:
		return "unknown"
	}
}

func (b MouseButton) isWheel() bool {
	return b == MouseButtonWheelUp || b == MouseButtonWheelDown
}

// MouseAction is what happened to the button.
type MouseAction int

const (
	MouseActionPress MouseAction = iota
	MouseActionRelease
	MouseActionMove
)

// MouseProtocol selects which events are reported to the application.
type MouseProtocol int

const (
	// MouseProtocolNone reports nothing.
	MouseProtocolNone MouseProtocol = iota
	// MouseProtocolX10 reports button presses only (mode 9).
	MouseProtocolX10
	// MouseProtocolVT200 reports presses, releases and wheel (mode 1000).
	MouseProtocolVT200
	// MouseProtocolDragEvents adds motion while a button is held (mode 1002).
	MouseProtocolDragEvents
	// MouseProtocolAnyEvents adds motion without a button (mode 1003).
	MouseProtocolAnyEvents
)

// MouseEncoding selects the wire format of mouse reports.
type MouseEncoding int

const (
	// MouseEncodingNormal is ESC [ M followed by three bytes offset by 32.
	MouseEncodingNormal MouseEncoding = iota
	// MouseEncodingUTF8 is the normal format with UTF-8 encoded values (mode 1005).
	MouseEncodingUTF8
	// MouseEncodingSGR is ESC [ < b ; x ; y M or m (mode 1006).
	MouseEncodingSGR
)

// MouseEvent is a mouse event in 0-based cell coordinates.
type MouseEvent struct {
	Action MouseAction
	Button MouseButton
	Col    int
	Row    int
	Mods   tcell.ModMask
}

const (
	mouseCodeRelease = 3
	mouseCodeMotion  = 32
	mouseCodeWheel   = 64
	mouseModShift    = 4
	mouseModAlt      = 8
	mouseModCtrl     = 16
	mouseNormalMax   = 255
	mouseUTF8Max     = 2047
	wheelScrollLines = 3
)

// Encoder turns mouse events into the byte sequences an application expects.
// It holds no state; the zero value reports nothing.
type Encoder struct {
	Protocol MouseProtocol
	Encoding MouseEncoding
	// WheelCursorKeys sends cursor up/down for wheel events when no protocol is active.
	WheelCursorKeys bool
	// ApplicationCursorKeys selects SS3 cursor keys for WheelCursorKeys (DECCKM).
	ApplicationCursorKeys bool
}

// Encode returns the report for ev, or nil if ev is not reported.
func (e Encoder) Encode(ev MouseEvent) []byte {
	if e.Protocol == MouseProtocolNone {
		if e.WheelCursorKeys && ev.Action == MouseActionPress && ev.Button.isWheel() {
			return e.wheelKeys(ev.Button)
		}
		return nil
	}

	code, ok := e.buttonCode(ev)
	if !ok {
		return nil
	}
	if e.Protocol != MouseProtocolX10 {
		code |= modifierCode(ev.Mods)
	}

	col, row := max(ev.Col, 0), max(ev.Row, 0)
	switch e.Encoding {
	case MouseEncodingSGR:
		final := byte('M')
		if ev.Action == MouseActionRelease {
			final = 'm'
		}
		buf := []byte("\x1b[<")
		buf = strconv.AppendInt(buf, int64(code), 10)
		buf = append(buf, ';')
		buf = strconv.AppendInt(buf, int64(col+1), 10)
		buf = append(buf, ';')
		buf = strconv.AppendInt(buf, int64(row+1), 10)
		return append(buf, final)
	case MouseEncodingUTF8:
		values := [3]int{32 + code, 33 + col, 33 + row}
		buf := []byte("\x1b[M")
		for _, v := range values {
			if v > mouseUTF8Max {
				return nil
			}
			buf = utf8.AppendRune(buf, rune(v))
		}
		return buf
	default:
		values := [3]int{32 + code, 33 + col, 33 + row}
		for _, v := range values {
			if v > mouseNormalMax {
				return nil
			}
		}
		return []byte{0x1b, '[', 'M', byte(values[0]), byte(values[1]), byte(values[2])}
	}
}

// buttonCode returns the button number of ev under the encoder's protocol.
func (e Encoder) buttonCode(ev MouseEvent) (int, bool) {
	base, hasButton := baseButtonCode(ev.Button)

	switch ev.Action {
	case MouseActionPress:
		if !hasButton || (e.Protocol == MouseProtocolX10 && ev.Button.isWheel()) {
			return 0, false
		}
		return base, true

	case MouseActionRelease:
		if e.Protocol == MouseProtocolX10 || ev.Button.isWheel() {
			return 0, false
		}
		if e.Encoding == MouseEncodingSGR && hasButton {
			return base, true
		}
		return mouseCodeRelease, true

	case MouseActionMove:
		switch e.Protocol {
		case MouseProtocolDragEvents:
			if !hasButton || ev.Button.isWheel() {
				return 0, false
			}
			return mouseCodeMotion + base, true
		case MouseProtocolAnyEvents:
			if !hasButton || ev.Button.isWheel() {
				return mouseCodeMotion + mouseCodeRelease, true
			}
			return mouseCodeMotion + base, true
		}
	}
	return 0, false
}

func baseButtonCode(b MouseButton) (int, bool) {
	switch b {
	case MouseButtonLeft:
		return 0, true
	case MouseButtonMiddle:
		return 1, true
	case MouseButtonRight:
		return 2, true
	case MouseButtonWheelUp:
		return mouseCodeWheel, true
	case MouseButtonWheelDown:
		return mouseCodeWheel + 1, true
	}
	return 0, false
}

func modifierCode(mods tcell.ModMask) int {
	code := 0
	if mods&tcell.ModShift != 0 {
		code |= mouseModShift
	}
	if mods&(tcell.ModAlt|tcell.ModMeta) != 0 {
		code |= mouseModAlt
	}
	if mods&tcell.ModCtrl != 0 {
		code |= mouseModCtrl
	}
	return code
}

func (e Encoder) wheelKeys(b MouseButton) []byte {
	prefix := "\x1b["
	if e.ApplicationCursorKeys {
		prefix = "\x1bO"
	}
	final := "A"
	if b == MouseButtonWheelDown {
		final = "B"
	}

	buf := make([]byte, 0, wheelScrollLines*3)
	for i := 0; i < wheelScrollLines; i++ {
		buf = append(buf, prefix...)
		buf = append(buf, final...)
	}
	return buf
}

// mouseButtonFromMask picks the first pressed button of a tcell button mask.
func mouseButtonFromMask(b tcell.ButtonMask) MouseButton {
	switch {
	case b&tcell.ButtonPrimary != 0:
		return MouseButtonLeft
	case b&tcell.ButtonMiddle != 0:
		return MouseButtonMiddle
	case b&tcell.ButtonSecondary != 0:
		return MouseButtonRight
	case b&tcell.WheelUp != 0:
		return MouseButtonWheelUp
	case b&tcell.WheelDown != 0:
		return MouseButtonWheelDown
	default:
		return MouseButtonNone
	}
}

// mouseEncoderLocked builds the encoder for the current terminal modes.
func (t *Terminal) mouseEncoderLocked() Encoder {
	e := Encoder{
		WheelCursorKeys:       t.alternate && t.modes&ModeAlternateScroll != 0,
		ApplicationCursorKeys: t.modes&ModeCursorKeys != 0,
	}

	switch {
	case t.modes&ModeReportAllMouseMotion != 0:
		e.Protocol = MouseProtocolAnyEvents
	case t.modes&ModeReportCellMouseMotion != 0:
		e.Protocol = MouseProtocolDragEvents
	case t.modes&ModeReportMouseClicks != 0:
		e.Protocol = MouseProtocolVT200
	case t.modes&ModeReportX10Mouse != 0:
		e.Protocol = MouseProtocolX10
	}

	switch {
	case t.modes&ModeSGRMouse != 0:
		e.Encoding = MouseEncodingSGR
	case t.modes&ModeUTF8Mouse != 0:
		e.Encoding = MouseEncodingUTF8
	}
	return e
}

// MouseEncoder returns the encoder matching the current mouse modes.
func (t *Terminal) MouseEncoder() Encoder {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mouseEncoderLocked()
}

// encodeMouseLocked encodes ev for the current modes, clamped to the screen.
func (t *Terminal) encodeMouseLocked(ev MouseEvent) []byte {
	ev.Col = clamp(ev.Col, 0, t.cols-1)
	ev.Row = clamp(ev.Row, 0, t.rows-1)
	return t.mouseEncoderLocked().Encode(ev)
}

// sendMouse writes a mouse report produced under the lock.
func (t *Terminal) sendMouse(seq []byte) {
	if seq != nil {
		t.writeResponse(seq)
	}
}

func newMouseEvent(action MouseAction, button MouseButton, ev *tcell.EventMouse) MouseEvent {
	col, row := ev.Position()
	return MouseEvent{
		Action: action,
		Button: button,
		Col:    col,
		Row:    row,
		Mods:   ev.Modifiers(),
	}
}

// MouseDown reports a button press. The button is remembered for motion and release.
func (t *Terminal) MouseDown(ev *tcell.EventMouse) {
	button := mouseButtonFromMask(ev.Buttons())
	if button == MouseButtonNone {
		return
	}

	t.mu.Lock()
	if !button.isWheel() {
		t.mouseHeld = button
	}
	seq := t.encodeMouseLocked(newMouseEvent(MouseActionPress, button, ev))
	t.mu.Unlock()

	t.sendMouse(seq)
}

// MouseUp reports a button release. When the event carries no button the
// held button is released.
func (t *Terminal) MouseUp(ev *tcell.EventMouse) {
	t.mu.Lock()
	button := mouseButtonFromMask(ev.Buttons())
	if button == MouseButtonNone || button.isWheel() {
		button = t.mouseHeld
	}
	t.mouseHeld = MouseButtonNone
	seq := t.encodeMouseLocked(newMouseEvent(MouseActionRelease, button, ev))
	t.mu.Unlock()

	t.sendMouse(seq)
}

// MouseMove reports pointer motion with the held button, if any.
func (t *Terminal) MouseMove(ev *tcell.EventMouse) {
	t.mu.Lock()
	seq := t.encodeMouseLocked(newMouseEvent(MouseActionMove, t.mouseHeld, ev))
	t.mu.Unlock()

	t.sendMouse(seq)
}

// MouseWheelUp reports one wheel step away from the user.
func (t *Terminal) MouseWheelUp(ev *tcell.EventMouse) {
	t.mu.Lock()
	seq := t.encodeMouseLocked(newMouseEvent(MouseActionPress, MouseButtonWheelUp, ev))
	t.mu.Unlock()

	t.sendMouse(seq)
}

// MouseWheelDown reports one wheel step towards the user.
func (t *Terminal) MouseWheelDown(ev *tcell.EventMouse) {
	t.mu.Lock()
	seq := t.encodeMouseLocked(newMouseEvent(MouseActionPress, MouseButtonWheelDown, ev))
	t.mu.Unlock()

	t.sendMouse(seq)
}
