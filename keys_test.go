package termengine

import (
	"bytes"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
)

func TestEncodeKey(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
		want string
	}{
		{"up", tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), "\x1b[A"},
		{"ctrl left", tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModCtrl), "\x1b[1;5D"},
		{"shift alt right", tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModShift|tcell.ModAlt), "\x1b[1;4C"},
		{"home", tcell.NewEventKey(tcell.KeyHome, 0, tcell.ModNone), "\x1b[H"},
		{"end", tcell.NewEventKey(tcell.KeyEnd, 0, tcell.ModNone), "\x1b[F"},
		{"insert", tcell.NewEventKey(tcell.KeyInsert, 0, tcell.ModNone), "\x1b[2~"},
		{"delete", tcell.NewEventKey(tcell.KeyDelete, 0, tcell.ModNone), "\x1b[3~"},
		{"shift delete", tcell.NewEventKey(tcell.KeyDelete, 0, tcell.ModShift), "\x1b[3;2~"},
		{"page up", tcell.NewEventKey(tcell.KeyPgUp, 0, tcell.ModNone), "\x1b[5~"},
		{"page down", tcell.NewEventKey(tcell.KeyPgDn, 0, tcell.ModNone), "\x1b[6~"},
		{"f1", tcell.NewEventKey(tcell.KeyF1, 0, tcell.ModNone), "\x1bOP"},
		{"ctrl f4", tcell.NewEventKey(tcell.KeyF4, 0, tcell.ModCtrl), "\x1b[1;5S"},
		{"f5", tcell.NewEventKey(tcell.KeyF5, 0, tcell.ModNone), "\x1b[15~"},
		{"f12", tcell.NewEventKey(tcell.KeyF12, 0, tcell.ModNone), "\x1b[24~"},
		{"backtab", tcell.NewEventKey(tcell.KeyBacktab, 0, tcell.ModNone), "\x1b[Z"},
		{"enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), "\r"},
		{"tab", tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone), "\t"},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), "\x1b"},
		{"backspace", tcell.NewEventKey(tcell.KeyBackspace2, 0, tcell.ModNone), "\x7f"},
		{"ctrl backspace", tcell.NewEventKey(tcell.KeyBackspace, 0, tcell.ModCtrl), "\x08"},
		{"rune", tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone), "a"},
		{"multibyte rune", tcell.NewEventKey(tcell.KeyRune, 'é', tcell.ModNone), "é"},
		{"alt rune", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModAlt), "\x1bx"},
		{"ctrl c", tcell.NewEventKey(tcell.KeyRune, 'c', tcell.ModCtrl), "\x03"},
		{"ctrl c control char", tcell.NewEventKey(tcell.KeyRune, 0x03, tcell.ModNone), "\x03"},
		{"ctrl alt c", tcell.NewEventKey(tcell.KeyRune, 'c', tcell.ModCtrl|tcell.ModAlt), "\x1b\x03"},
		{"ctrl space", tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModCtrl), "\x00"},
		{"ctrl bracket", tcell.NewEventKey(tcell.KeyRune, '[', tcell.ModCtrl), "\x1b"},
		{"ctrl at", tcell.NewEventKey(tcell.KeyRune, '@', tcell.ModCtrl), "\x00"},
		{"ctrl backslash", tcell.NewEventKey(tcell.KeyRune, '\\', tcell.ModCtrl), "\x1c"},
		{"ctrl close bracket", tcell.NewEventKey(tcell.KeyRune, ']', tcell.ModCtrl), "\x1d"},
		{"ctrl underscore", tcell.NewEventKey(tcell.KeyRune, '_', tcell.ModCtrl), "\x1f"},
		{"ctrl upper a", tcell.NewEventKey(tcell.KeyRune, 'A', tcell.ModCtrl), "\x01"},
		{"ctrl z", tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModCtrl), "\x1a"},
		{"ctrl key without rune", tcell.NewEventKey(tcell.KeyCtrlA, 0, tcell.ModCtrl), "\x01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encodeKey(tt.ev, false, false)
			if string(got) != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEncodeKeyModes(t *testing.T) {
	up := tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone)
	if got := string(encodeKey(up, true, false)); got != "\x1bOA" {
		t.Errorf("expected application cursor key, got %q", got)
	}

	ctrlUp := tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModCtrl)
	if got := string(encodeKey(ctrlUp, true, false)); got != "\x1b[1;5A" {
		t.Errorf("expected modified key to ignore DECCKM, got %q", got)
	}

	enter := tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)
	if got := string(encodeKey(enter, false, true)); got != "\r\n" {
		t.Errorf("expected CR LF in newline mode, got %q", got)
	}
}

func TestEncodeKeyUnknown(t *testing.T) {
	if got := encodeKey(tcell.NewEventKey(tcell.KeyF20, 0, tcell.ModNone), false, false); got != nil {
		t.Errorf("expected no encoding for F20, got %q", got)
	}
}

func TestTerminalKeyDown(t *testing.T) {
	var out bytes.Buffer
	term := New(WithResponse(&out))

	term.KeyDown(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone))
	term.WriteString("\x1b[?1h")
	term.KeyDown(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone))
	term.KeyDown(tcell.NewEventKey(tcell.KeyF20, 0, tcell.ModNone))

	if got := out.String(); got != "\x1b[A\x1bOA" {
		t.Errorf("expected %q, got %q", "\x1b[A\x1bOA", got)
	}
}

func TestTerminalPaste(t *testing.T) {
	var out bytes.Buffer
	term := New(WithResponse(&out))

	term.Paste("a\r\nb\nc")
	if got := out.String(); got != "a\rb\rc" {
		t.Errorf("expected line feeds converted, got %q", got)
	}

	out.Reset()
	term.WriteString("\x1b[?2004h")
	term.Paste("x\x1b[201~y")
	if got := out.String(); got != "\x1b[200~xy\x1b[201~" {
		t.Errorf("expected bracketed paste, got %q", got)
	}
}

func TestTerminalFocus(t *testing.T) {
	var out bytes.Buffer
	term := New(WithResponse(&out))

	term.Focus(true)
	if out.Len() != 0 {
		t.Errorf("expected no report without mode 1004, got %q", out.String())
	}

	term.WriteString("\x1b[?1004h")
	term.Focus(true)
	term.Focus(false)
	if got := out.String(); got != "\x1b[I\x1b[O" {
		t.Errorf("expected focus reports, got %q", got)
	}
}

func TestTerminalSend(t *testing.T) {
	var out bytes.Buffer
	term := New(WithResponse(&out))

	term.Send([]byte("ls\r"))
	if got := out.String(); got != "ls\r" {
		t.Errorf("expected raw bytes, got %q", got)
	}
}

// reentrantWriter reads terminal state from inside Write, as a host that
// inspects the terminal while forwarding replies would.
type reentrantWriter struct {
	term *Terminal
	out  bytes.Buffer
}

func (w *reentrantWriter) Write(p []byte) (int, error) {
	w.term.CursorPos()
	return w.out.Write(p)
}

func TestTerminalRepliesWithoutLock(t *testing.T) {
	w := &reentrantWriter{}
	term := New(WithSize(10, 20), WithResponse(w))
	w.term = term
	term.WriteString("\x1b[?1000h\x1b[?1004h")

	done := make(chan struct{})
	go func() {
		defer close(done)
		term.KeyDown(tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone))
		term.Paste("b")
		term.Focus(true)
		term.Send([]byte("c"))
		term.MouseDown(tcell.NewEventMouse(0, 0, tcell.ButtonPrimary, tcell.ModNone))
		term.MouseUp(tcell.NewEventMouse(0, 0, tcell.ButtonNone, tcell.ModNone))
		term.WriteString("\x1b[6n")
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out: a reply was written while the terminal was locked")
	}

	want := "ab\x1b[Ic\x1b[M !!\x1b[M#!!\x1b[1;1R"
	if got := w.out.String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
