package termengine

import (
	"bytes"
	"unicode/utf8"
)

// parserState is the state of the escape sequence state machine.
type parserState int

const (
	stateNormal parserState = iota
	stateEscape
	stateCSIStart
	stateCSIParams
	stateOSCCode
	stateOSCParams
	stateOSCVendorParams
	stateCharsetSelect
	stateDCSStart
	stateDCSString
	stateApplicationStart
	stateApplicationData
	stateIgnore
	stateDECHash
)

var parserStateNames = [...]string{
	stateNormal:           "NORMAL",
	stateEscape:           "ESCAPE",
	stateCSIStart:         "CSI_START",
	stateCSIParams:        "CSI_PARAMS",
	stateOSCCode:          "OSC_CODE",
	stateOSCParams:        "OSC_PARAMS",
	stateOSCVendorParams:  "OSC_VENDOR_PARAMS",
	stateCharsetSelect:    "CHARSET_SELECT",
	stateDCSStart:         "DCS_START",
	stateDCSString:        "DCS_STRING",
	stateApplicationStart: "APPLICATION_START",
	stateApplicationData:  "APPLICATION_DATA",
	stateIgnore:           "IGNORE",
	stateDECHash:          "DEC_HASH",
}

func (s parserState) String() string {
	if s >= 0 && int(s) < len(parserStateNames) {
		return parserStateNames[s]
	}
	return "UNKNOWN"
}

const (
	maxCSIParams      = 32
	maxParamValue     = 65535
	maxStringLength   = 1 << 20
	maxApplicationHdr = 1024
)

// csiParam is one ';'-separated slot of a control sequence.
// Value and Subs entries are -1 when omitted.
type csiParam struct {
	Value int
	Subs  []int
}

// csiSequence is a completed control sequence handed to the dispatcher.
// It is reused by the parser and must not be retained.
type csiSequence struct {
	Prefix       byte
	Intermediate byte
	Final        byte
	Params       []csiParam
}

// Param returns parameter i, or def when it is missing.
func (s *csiSequence) Param(i, def int) int {
	if i >= len(s.Params) || s.Params[i].Value < 0 {
		return def
	}
	return s.Params[i].Value
}

// dispatcher receives the primitives recognized by the Parser.
type dispatcher interface {
	print(r rune)
	execute(b byte)
	csiDispatch(seq *csiSequence)
	escDispatch(intermediate, final byte)
	oscDispatch(code int, data string, terminator string)
	dcsDispatch(prefix, data string)
	designateCharset(slot CharsetIndex, designator byte)
	decHash(final byte)
	applicationStart(header string) ApplicationModeResponse
	applicationData(chunk []byte) ApplicationModeResponse
	applicationEnd() ApplicationModeResponse
	unhandled(msg string, args ...any)
}

// parseResult reports how far a call to Parse got.
// pushBack holds bytes an application handler returned on abort; they must be
// processed before data[consumed:].
type parseResult struct {
	consumed int
	paused   bool
	pushBack []byte
}

// Parser is the byte-level state machine. It keeps partial sequences across calls,
// so input may be split at any byte boundary.
type Parser struct {
	state parserState
	d     dispatcher

	utf8Buf  [utf8.UTFMax]byte
	utf8Len  int
	utf8Need int

	csi        csiSequence
	inSub      bool
	csiDiscard bool
	csiInvalid bool

	escIntermediate byte
	charsetSlot     CharsetIndex

	oscCode   int
	buf       []byte
	overflow  bool
	dcsPrefix []byte
}

func newParser(d dispatcher) *Parser {
	return &Parser{
		d:   d,
		buf: make([]byte, 0, 256),
		csi: csiSequence{Params: make([]csiParam, 0, maxCSIParams)},
	}
}

// State returns the current parser state.
func (p *Parser) State() parserState {
	return p.state
}

// Reset drops any partial sequence and returns to NORMAL.
func (p *Parser) Reset() {
	p.state = stateNormal
	p.utf8Len, p.utf8Need = 0, 0
	p.buf = p.buf[:0]
	p.overflow = false
}

// Parse consumes data until it is exhausted or an application handler pauses or aborts.
func (p *Parser) Parse(data []byte) parseResult {
	for i := 0; i < len(data); {
		if p.state == stateApplicationData {
			res, n, stop := p.applicationData(data[i:])
			i += n
			if stop {
				res.consumed = i
				return res
			}
			continue
		}

		b := data[i]
		i++

		switch p.state {
		case stateNormal:
			p.normal(b)

		case stateEscape:
			p.escape(b)

		case stateCSIStart:
			p.state = stateCSIParams
			switch b {
			case '?', '>', '!', '<', '=':
				p.csi.Prefix = b
			default:
				p.csiByte(b)
			}

		case stateCSIParams:
			p.csiByte(b)

		case stateOSCCode:
			p.oscCodeByte(b)

		case stateOSCParams:
			p.stringByte(b, func(term string) {
				if p.overflow {
					p.d.unhandled("osc payload too long", "code", p.oscCode)
					return
				}
				p.d.oscDispatch(p.oscCode, string(p.buf), term)
			})

		case stateOSCVendorParams:
			p.stringByte(b, func(string) {
				p.d.unhandled("unhandled osc", "payload", string(p.buf))
			})

		case stateCharsetSelect:
			p.state = stateNormal
			p.d.designateCharset(p.charsetSlot, b)

		case stateDCSStart:
			p.dcsStartByte(b)

		case stateDCSString:
			p.stringByte(b, func(string) {
				if p.overflow {
					p.d.unhandled("dcs payload too long", "prefix", string(p.dcsPrefix))
					return
				}
				p.d.dcsDispatch(string(p.dcsPrefix), string(p.buf))
			})

		case stateApplicationStart:
			if res, stop := p.applicationHeaderByte(b); stop {
				res.consumed = i
				return res
			}

		case stateIgnore:
			switch b {
			case 0x07, 0x18, 0x1a:
				p.state = stateNormal
			case 0x1b:
				p.enterEscape()
			}

		case stateDECHash:
			p.state = stateNormal
			p.d.decHash(b)
		}
	}
	return parseResult{consumed: len(data)}
}

func (p *Parser) normal(b byte) {
	if p.utf8Need > 0 {
		if b&0xc0 == 0x80 {
			p.utf8Buf[p.utf8Len] = b
			p.utf8Len++
			if p.utf8Len == p.utf8Need {
				r, _ := utf8.DecodeRune(p.utf8Buf[:p.utf8Len])
				p.utf8Len, p.utf8Need = 0, 0
				p.printRune(r)
			}
			return
		}
		p.utf8Len, p.utf8Need = 0, 0
		p.d.print(utf8.RuneError)
	}

	switch {
	case b == 0x1b:
		p.enterEscape()
	case b < 0x20:
		p.d.execute(b)
	case b == 0x7f:
	case b < 0x80:
		p.d.print(rune(b))
	case b >= 0xc2 && b <= 0xdf:
		p.startUTF8(b, 2)
	case b >= 0xe0 && b <= 0xef:
		p.startUTF8(b, 3)
	case b >= 0xf0 && b <= 0xf4:
		p.startUTF8(b, 4)
	default:
		p.d.print(utf8.RuneError)
	}
}

func (p *Parser) startUTF8(b byte, need int) {
	p.utf8Buf[0] = b
	p.utf8Len = 1
	p.utf8Need = need
}

// printRune drops C1 controls that arrive UTF-8 encoded.
func (p *Parser) printRune(r rune) {
	if r >= 0x80 && r < 0xa0 {
		return
	}
	p.d.print(r)
}

func (p *Parser) enterEscape() {
	p.state = stateEscape
	p.escIntermediate = 0
}

func (p *Parser) escape(b byte) {
	if p.escIntermediate == 0 {
		if slot, ok := charsetSlotForIntermediate(b); ok {
			p.charsetSlot = slot
			p.state = stateCharsetSelect
			return
		}
	}

	switch {
	case b == 0x18 || b == 0x1a:
		p.state = stateNormal
	case b == 0x1b:
		p.escIntermediate = 0
	case b < 0x20:
		p.d.execute(b)
	case p.escIntermediate != 0:
		p.state = stateNormal
		p.d.escDispatch(p.escIntermediate, b)
	case b == '[':
		p.resetCSI()
		p.state = stateCSIStart
	case b == ']':
		p.resetString()
		p.oscCode = 0
		p.state = stateOSCCode
	case b == 'P':
		p.resetString()
		p.dcsPrefix = p.dcsPrefix[:0]
		p.state = stateDCSStart
	case b == '&':
		p.resetString()
		p.state = stateApplicationStart
	case b == '_' || b == '^' || b == 'X':
		p.state = stateIgnore
	case b == '#':
		p.state = stateDECHash
	case b >= 0x20 && b <= 0x2f:
		p.escIntermediate = b
	default:
		p.state = stateNormal
		p.d.escDispatch(0, b)
	}
}

func (p *Parser) resetCSI() {
	p.csi.Prefix = 0
	p.csi.Intermediate = 0
	p.csi.Final = 0
	p.csi.Params = p.csi.Params[:0]
	p.inSub = false
	p.csiDiscard = false
	p.csiInvalid = false
}

func (p *Parser) currentParam() *csiParam {
	if len(p.csi.Params) == 0 {
		p.csi.Params = append(p.csi.Params, csiParam{Value: -1})
	}
	return &p.csi.Params[len(p.csi.Params)-1]
}

func accumulate(v int, digit byte) int {
	if v < 0 {
		v = 0
	}
	v = v*10 + int(digit-'0')
	if v > maxParamValue {
		v = maxParamValue
	}
	return v
}

func (p *Parser) csiByte(b byte) {
	switch {
	case b >= '0' && b <= '9':
		if p.csiDiscard {
			return
		}
		prm := p.currentParam()
		if p.inSub {
			last := len(prm.Subs) - 1
			prm.Subs[last] = accumulate(prm.Subs[last], b)
		} else {
			prm.Value = accumulate(prm.Value, b)
		}

	case b == ';':
		p.currentParam()
		p.inSub = false
		if len(p.csi.Params) >= maxCSIParams {
			p.csiDiscard = true
			return
		}
		p.csi.Params = append(p.csi.Params, csiParam{Value: -1})

	case b == ':':
		if p.csiDiscard {
			return
		}
		prm := p.currentParam()
		prm.Subs = append(prm.Subs, -1)
		p.inSub = true

	case b >= 0x20 && b <= 0x2f:
		p.csi.Intermediate = b

	case b >= 0x40 && b <= 0x7e:
		p.state = stateNormal
		p.csi.Final = b
		if p.csiInvalid {
			p.d.unhandled("malformed csi", "final", string(b))
			return
		}
		p.d.csiDispatch(&p.csi)

	case b == 0x1b:
		p.enterEscape()

	case b == 0x18 || b == 0x1a:
		p.state = stateNormal

	case b < 0x20:
		p.d.execute(b)

	case b >= 0x3c && b <= 0x3f:
		p.csiInvalid = true

	default:
		p.state = stateNormal
		p.d.unhandled("invalid byte in csi", "byte", b)
	}
}

func (p *Parser) resetString() {
	p.buf = p.buf[:0]
	p.overflow = false
}

func (p *Parser) appendString(b byte) {
	if len(p.buf) >= maxStringLength {
		p.overflow = true
		return
	}
	p.buf = append(p.buf, b)
}

func (p *Parser) oscCodeByte(b byte) {
	switch {
	case b >= '0' && b <= '9':
		p.oscCode = accumulate(p.oscCode, b)
	case b == ';':
		p.state = stateOSCParams
	case b == 0x07:
		p.state = stateNormal
		p.d.oscDispatch(p.oscCode, "", "\x07")
	case b == 0x1b:
		p.enterEscape()
		p.d.oscDispatch(p.oscCode, "", "\x1b\\")
	case b == 0x18 || b == 0x1a:
		p.state = stateNormal
	default:
		p.appendString(b)
		p.state = stateOSCVendorParams
	}
}

// stringByte accumulates an OSC or DCS payload and calls done on BEL or ESC.
func (p *Parser) stringByte(b byte, done func(terminator string)) {
	switch {
	case b == 0x07:
		p.state = stateNormal
		done("\x07")
	case b == 0x1b:
		p.enterEscape()
		done("\x1b\\")
	case b == 0x18 || b == 0x1a:
		p.state = stateNormal
	case b < 0x20 && b != '\t' && b != '\n' && b != '\r':
	default:
		p.appendString(b)
	}
}

func (p *Parser) dcsStartByte(b byte) {
	switch {
	case b == 0x1b:
		p.enterEscape()
		p.d.dcsDispatch(string(p.dcsPrefix), "")
	case b == 0x18 || b == 0x1a:
		p.state = stateNormal
	case (b >= '0' && b <= '9') || b == ';':
	case b >= 0x20 && b <= 0x7e:
		p.dcsPrefix = append(p.dcsPrefix, b)
		if len(p.dcsPrefix) == 2 {
			p.state = stateDCSString
		}
	}
}

func (p *Parser) applicationHeaderByte(b byte) (parseResult, bool) {
	switch {
	case b == 0x07:
		resp := p.d.applicationStart(string(p.buf))
		switch resp.Action {
		case ApplicationContinue:
			p.state = stateApplicationData
		case ApplicationPause:
			p.state = stateApplicationData
			return parseResult{paused: true}, true
		default:
			p.state = stateNormal
			if len(resp.Remaining) > 0 {
				return parseResult{pushBack: resp.Remaining}, true
			}
		}
	case b == 0x1b:
		p.d.unhandled("application mode header interrupted")
		p.enterEscape()
	case b == 0x18 || b == 0x1a:
		p.state = stateNormal
	case len(p.buf) >= maxApplicationHdr:
		p.d.unhandled("application mode header too long")
		p.state = stateNormal
	default:
		p.buf = append(p.buf, b)
	}
	return parseResult{}, false
}

// applicationData hands data up to the next NUL to the handler.
// It returns the number of bytes used and whether parsing must stop.
func (p *Parser) applicationData(data []byte) (parseResult, int, bool) {
	end := bytes.IndexByte(data, 0)
	chunk := data
	if end >= 0 {
		chunk = data[:end]
	}

	n := 0
	if len(chunk) > 0 {
		n = len(chunk)
		resp := p.d.applicationData(chunk)
		switch resp.Action {
		case ApplicationAbort:
			p.state = stateNormal
			return parseResult{pushBack: resp.Remaining}, n, true
		case ApplicationPause:
			return parseResult{paused: true}, n, true
		}
	}

	if end < 0 {
		return parseResult{}, n, false
	}

	n++
	p.state = stateNormal
	resp := p.d.applicationEnd()
	switch {
	case resp.Action == ApplicationPause:
		return parseResult{paused: true, pushBack: resp.Remaining}, n, true
	case len(resp.Remaining) > 0:
		return parseResult{pushBack: resp.Remaining}, n, true
	}
	return parseResult{}, n, false
}
