package termengine

import (
	"image/color"
	"strconv"
	"strings"
)

// selectGraphicRendition applies SGR parameters to the cell template.
func (t *Terminal) selectGraphicRendition(params []csiParam) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tmpl := &t.template.Cell
	if len(params) == 0 {
		t.resetAttributesLocked()
		return
	}

	for i := 0; i < len(params); i++ {
		p := params[i]
		v := max(p.Value, 0)

		switch {
		case v == 0:
			t.resetAttributesLocked()
		case v == 1:
			tmpl.Style |= StyleBold
		case v == 2:
			tmpl.Style |= StyleFaint
		case v == 3:
			tmpl.Style |= StyleItalic
		case v == 4:
			tmpl.SetUnderline(underlineFromSub(p.Subs))
		case v == 5 || v == 6:
			tmpl.Style |= StyleBlink
		case v == 7:
			tmpl.Style |= StyleInverse
		case v == 8:
			tmpl.Style |= StyleInvisible
		case v == 9:
			tmpl.Style |= StyleStrikethrough
		case v == 21:
			tmpl.SetUnderline(UnderlineDouble)
		case v == 22:
			tmpl.Style &^= StyleBold | StyleFaint
		case v == 23:
			tmpl.Style &^= StyleItalic
		case v == 24:
			tmpl.SetUnderline(UnderlineNone)
		case v == 25:
			tmpl.Style &^= StyleBlink
		case v == 27:
			tmpl.Style &^= StyleInverse
		case v == 28:
			tmpl.Style &^= StyleInvisible
		case v == 29:
			tmpl.Style &^= StyleStrikethrough
		case v == 53:
			tmpl.Style |= StyleOverline
		case v == 55:
			tmpl.Style &^= StyleOverline
		case v >= 30 && v <= 37:
			tmpl.SetForegroundIndexed(uint16(v - 30))
		case v >= 90 && v <= 97:
			tmpl.SetForegroundIndexed(uint16(v - 90 + 8))
		case v == 39:
			tmpl.SetForegroundIndexed(NamedColorForeground)
		case v >= 40 && v <= 47:
			tmpl.SetBackgroundIndexed(uint16(v - 40))
		case v >= 100 && v <= 107:
			tmpl.SetBackgroundIndexed(uint16(v - 100 + 8))
		case v == 49:
			tmpl.SetBackgroundIndexed(NamedColorBackground)
		case v == 38 || v == 48 || v == 58:
			spec, consumed := extendedColor(params, i)
			i += consumed
			if v == 58 || spec.kind == colorSpecNone {
				continue
			}
			if v == 38 {
				spec.applyForeground(tmpl)
			} else {
				spec.applyBackground(tmpl)
			}
		case v == 59:
		default:
			t.unhandled("unhandled sgr", "param", v)
		}
	}
}

func (t *Terminal) resetAttributesLocked() {
	t.template = NewCellTemplate()
}

// underlineFromSub maps the 4:n sub-parameter to an underline style.
// Dotted and dashed (4:4, 4:5) render as single.
func underlineFromSub(subs []int) UnderlineStyle {
	if len(subs) == 0 || subs[0] < 0 {
		return UnderlineSingle
	}
	switch subs[0] {
	case 0:
		return UnderlineNone
	case 2:
		return UnderlineDouble
	case 3:
		return UnderlineCurly
	default:
		return UnderlineSingle
	}
}

type colorSpecKind int

const (
	colorSpecNone colorSpecKind = iota
	colorSpecIndexed
	colorSpecRGB
)

type colorSpec struct {
	kind  colorSpecKind
	index uint16
	rgba  color.RGBA
}

func (c colorSpec) applyForeground(cell *Cell) {
	if c.kind == colorSpecIndexed {
		cell.SetForegroundIndexed(c.index)
	} else {
		cell.SetForegroundRGBA(c.rgba)
	}
}

func (c colorSpec) applyBackground(cell *Cell) {
	if c.kind == colorSpecIndexed {
		cell.SetBackgroundIndexed(c.index)
	} else {
		cell.SetBackgroundRGBA(c.rgba)
	}
}

// extendedColor decodes 38/48/58 at params[i]. The colon form (38:2:cs:r:g:b, 38:5:n)
// takes precedence over the semicolon form (38;2;r;g;b, 38;5;n). It returns how many
// following parameters were consumed.
func extendedColor(params []csiParam, i int) (colorSpec, int) {
	if subs := params[i].Subs; len(subs) > 0 {
		switch subs[0] {
		case 5:
			if len(subs) >= 2 {
				return colorSpec{kind: colorSpecIndexed, index: uint16(clamp(subs[1], 0, 255))}, 0
			}
		case 2:
			// With a color space id the components are shifted by one.
			rgb := subs[1:]
			if len(rgb) >= 4 {
				rgb = rgb[1:]
			}
			if len(rgb) >= 3 {
				return colorSpec{kind: colorSpecRGB, rgba: rgbaFromParams(rgb[0], rgb[1], rgb[2])}, 0
			}
		}
		return colorSpec{}, 0
	}

	if i+1 >= len(params) {
		return colorSpec{}, 0
	}
	switch params[i+1].Value {
	case 5:
		if i+2 < len(params) {
			return colorSpec{kind: colorSpecIndexed, index: uint16(clamp(params[i+2].Value, 0, 255))}, 2
		}
		return colorSpec{}, 1
	case 2:
		if i+4 < len(params) {
			return colorSpec{
				kind: colorSpecRGB,
				rgba: rgbaFromParams(params[i+2].Value, params[i+3].Value, params[i+4].Value),
			}, 4
		}
		return colorSpec{}, len(params) - i - 1
	}
	return colorSpec{}, 1
}

func rgbaFromParams(r, g, b int) color.RGBA {
	return color.RGBA{
		R: uint8(clamp(r, 0, 255)),
		G: uint8(clamp(g, 0, 255)),
		B: uint8(clamp(b, 0, 255)),
		A: 255,
	}
}

// sgrStringLocked renders the cell template as SGR parameters, as reported by DECRQSS.
func (t *Terminal) sgrStringLocked() string {
	c := &t.template.Cell
	parts := []string{"0"}

	styles := []struct {
		style Style
		code  string
	}{
		{StyleBold, "1"},
		{StyleFaint, "2"},
		{StyleItalic, "3"},
		{StyleBlink, "5"},
		{StyleInverse, "7"},
		{StyleInvisible, "8"},
		{StyleStrikethrough, "9"},
		{StyleOverline, "53"},
	}
	for _, s := range styles {
		if c.HasStyle(s.style) {
			parts = append(parts, s.code)
		}
	}

	switch c.Underline() {
	case UnderlineSingle:
		parts = append(parts, "4")
	case UnderlineDouble:
		parts = append(parts, "21")
	case UnderlineCurly:
		parts = append(parts, "4:3")
	}

	parts = appendColorParams(parts, c.HasFlag(CellFlagIndexedFg), c.FgIndex, c.Fg, NamedColorForeground, 30, 90, "38")
	parts = appendColorParams(parts, c.HasFlag(CellFlagIndexedBg), c.BgIndex, c.Bg, NamedColorBackground, 40, 100, "48")

	return strings.Join(parts, ";")
}

func appendColorParams(parts []string, indexed bool, index uint16, rgba color.RGBA, def uint16, base, bright int, ext string) []string {
	switch {
	case !indexed:
		return append(parts, ext+":2::"+strconv.Itoa(int(rgba.R))+":"+strconv.Itoa(int(rgba.G))+":"+strconv.Itoa(int(rgba.B)))
	case index == def:
		return parts
	case index < 8:
		return append(parts, strconv.Itoa(base+int(index)))
	case index < 16:
		return append(parts, strconv.Itoa(bright+int(index)-8))
	case index < 256:
		return append(parts, ext+":5:"+strconv.Itoa(int(index)))
	}
	return parts
}
