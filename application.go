package termengine

import (
	"strings"
)

// ApplicationAction tells the parser how to continue after an application mode callback.
type ApplicationAction int

const (
	// ApplicationContinue keeps feeding data to the handler.
	ApplicationContinue ApplicationAction = iota
	// ApplicationAbort leaves application mode. Remaining bytes are parsed as normal output.
	ApplicationAbort
	// ApplicationPause stops processing until Resume is called.
	ApplicationPause
)

// ApplicationModeResponse is returned by every ApplicationModeHandler callback.
type ApplicationModeResponse struct {
	Action ApplicationAction
	// Remaining holds bytes to push back into the stream (Abort, or End).
	Remaining []byte
}

// ApplicationModeHandler receives the payload of an application mode sequence:
// ESC & cookie ; params BEL, followed by data terminated by NUL.
// Callbacks run on the processing goroutine and must not call Write.
type ApplicationModeHandler interface {
	// Start is called with the ';'-separated parameters following the cookie.
	Start(params []string) ApplicationModeResponse
	// Data is called with consecutive chunks of the payload.
	Data(chunk []byte) ApplicationModeResponse
	// End is called when the terminating NUL is seen.
	End() ApplicationModeResponse
}

// RegisterApplicationModeHandler installs the handler for application mode sequences.
// Passing nil removes it.
func (t *Terminal) RegisterApplicationModeHandler(h ApplicationModeHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.appHandler = h
}

func (t *Terminal) applicationHandler() ApplicationModeHandler {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.appHandler
}

var abortResponse = ApplicationModeResponse{Action: ApplicationAbort}

func (t *Terminal) applicationStart(header string) ApplicationModeResponse {
	cookie, rest, _ := strings.Cut(header, ";")

	t.mu.RLock()
	expected := t.appCookie
	h := t.appHandler
	t.mu.RUnlock()

	if h == nil {
		t.logger.Warn("application mode rejected", "error", ErrNoApplicationHandler)
		return abortResponse
	}
	if expected == "" || cookie != expected {
		t.logger.Warn("application mode rejected", "error", ErrApplicationCookie)
		return abortResponse
	}

	var params []string
	if rest != "" {
		params = strings.Split(rest, ";")
	}
	resp := h.Start(params)
	if resp.Action == ApplicationAbort {
		t.logger.Info("application mode aborted by handler")
	}
	return resp
}

func (t *Terminal) applicationData(chunk []byte) ApplicationModeResponse {
	h := t.applicationHandler()
	if h == nil {
		return abortResponse
	}
	resp := h.Data(chunk)
	if resp.Action == ApplicationAbort {
		t.logger.Info("application mode aborted by handler", "remaining", len(resp.Remaining))
	}
	return resp
}

func (t *Terminal) applicationEnd() ApplicationModeResponse {
	h := t.applicationHandler()
	if h == nil {
		return ApplicationModeResponse{}
	}
	return h.End()
}
