package termengine

import (
	"reflect"
	"testing"
)

// appRecorder is a test implementation of ApplicationModeHandler
type appRecorder struct {
	params [][]string
	data   []byte
	ends   int

	onStart ApplicationModeResponse
	onData  ApplicationModeResponse
	onEnd   ApplicationModeResponse
}

func (r *appRecorder) Start(params []string) ApplicationModeResponse {
	r.params = append(r.params, params)
	return r.onStart
}

func (r *appRecorder) Data(chunk []byte) ApplicationModeResponse {
	r.data = append(r.data, chunk...)
	return r.onData
}

func (r *appRecorder) End() ApplicationModeResponse {
	r.ends++
	return r.onEnd
}

func TestApplicationMode(t *testing.T) {
	h := &appRecorder{}
	term := New(WithApplicationCookie("secret"))
	term.RegisterApplicationModeHandler(h)

	term.WriteString("\x1b&secret;upload;42\x07payload\x00after")

	if len(h.params) != 1 || !reflect.DeepEqual(h.params[0], []string{"upload", "42"}) {
		t.Errorf("expected params [upload 42], got %v", h.params)
	}
	if string(h.data) != "payload" {
		t.Errorf("expected data 'payload', got '%s'", h.data)
	}
	if h.ends != 1 {
		t.Errorf("expected 1 end, got %d", h.ends)
	}
	if term.LineContent(0) != "after" {
		t.Errorf("expected 'after' printed, got '%s'", term.LineContent(0))
	}
}

func TestApplicationModeSplitWrites(t *testing.T) {
	h := &appRecorder{}
	term := New(WithApplicationCookie("c"))
	term.RegisterApplicationModeHandler(h)

	term.WriteString("\x1b&c")
	term.WriteString("\x07ab")
	if term.ParserState() != "APPLICATION_DATA" {
		t.Errorf("expected APPLICATION_DATA, got %s", term.ParserState())
	}
	term.WriteString("cd\x00")

	if string(h.data) != "abcd" {
		t.Errorf("expected 'abcd', got '%s'", h.data)
	}
	if h.params[0] != nil {
		t.Errorf("expected no params, got %v", h.params[0])
	}
	if term.ParserState() != "NORMAL" {
		t.Errorf("expected NORMAL, got %s", term.ParserState())
	}
}

func TestApplicationModeCookieMismatch(t *testing.T) {
	h := &appRecorder{}
	term := New(WithApplicationCookie("secret"))
	term.RegisterApplicationModeHandler(h)

	term.WriteString("\x1b&wrong\x07text")

	if len(h.params) != 0 {
		t.Error("expected handler not started for a wrong cookie")
	}
	if term.LineContent(0) != "text" {
		t.Errorf("expected 'text' printed, got '%s'", term.LineContent(0))
	}
}

func TestApplicationModeWithoutCookie(t *testing.T) {
	h := &appRecorder{}
	term := New()
	term.RegisterApplicationModeHandler(h)

	term.WriteString("\x1b&\x07text")

	if len(h.params) != 0 {
		t.Error("expected application mode disabled without a cookie")
	}
	if term.LineContent(0) != "text" {
		t.Errorf("expected 'text' printed, got '%s'", term.LineContent(0))
	}
}

func TestApplicationModeWithoutHandler(t *testing.T) {
	term := New(WithApplicationCookie("c"))

	term.WriteString("\x1b&c\x07text")
	if term.LineContent(0) != "text" {
		t.Errorf("expected 'text' printed, got '%s'", term.LineContent(0))
	}
}

func TestApplicationModeAbortRemaining(t *testing.T) {
	h := &appRecorder{onData: ApplicationModeResponse{Action: ApplicationAbort, Remaining: []byte("XY")}}
	term := New(WithApplicationCookie("c"))
	term.RegisterApplicationModeHandler(h)

	term.WriteString("\x1b&c\x07abc")

	if h.ends != 0 {
		t.Error("expected no end after abort")
	}
	if term.LineContent(0) != "XY" {
		t.Errorf("expected remaining bytes parsed as output, got '%s'", term.LineContent(0))
	}
	if term.ParserState() != "NORMAL" {
		t.Errorf("expected NORMAL, got %s", term.ParserState())
	}
}

func TestApplicationModeEndRemaining(t *testing.T) {
	h := &appRecorder{onEnd: ApplicationModeResponse{Remaining: []byte("ok ")}}
	term := New(WithApplicationCookie("c"))
	term.RegisterApplicationModeHandler(h)

	term.WriteString("\x1b&c\x07data\x00done")

	if term.LineContent(0) != "ok done" {
		t.Errorf("expected 'ok done', got '%s'", term.LineContent(0))
	}
}

func TestApplicationModePauseResume(t *testing.T) {
	h := &appRecorder{onStart: ApplicationModeResponse{Action: ApplicationPause}}
	term := New(WithApplicationCookie("c"))
	term.RegisterApplicationModeHandler(h)

	term.WriteString("\x1b&c\x07data\x00ok")

	if !term.Paused() {
		t.Fatal("expected processing paused by the handler")
	}
	if term.Pending() != len("data\x00ok") {
		t.Errorf("expected unprocessed bytes kept, got %d", term.Pending())
	}
	if len(h.data) != 0 {
		t.Errorf("expected no data while paused, got '%s'", h.data)
	}

	term.Resume()

	if string(h.data) != "data" || h.ends != 1 {
		t.Errorf("expected data and end after resume, got '%s' and %d ends", h.data, h.ends)
	}
	if term.LineContent(0) != "ok" {
		t.Errorf("expected 'ok', got '%s'", term.LineContent(0))
	}
}
