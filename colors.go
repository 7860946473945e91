package termengine

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultPalette is the standard 256-color palette: 16 named colors (0-15), 216 color cube (16-231), 24 grayscale (232-255).
var DefaultPalette = [256]color.RGBA{
	// Standard colors (0-7)
	{0, 0, 0, 255},       // Black
	{205, 49, 49, 255},   // Red
	{13, 188, 121, 255},  // Green
	{229, 229, 16, 255},  // Yellow
	{36, 114, 200, 255},  // Blue
	{188, 63, 188, 255},  // Magenta
	{17, 168, 205, 255},  // Cyan
	{229, 229, 229, 255}, // White

	// Bright colors (8-15)
	{102, 102, 102, 255}, // Bright Black
	{241, 76, 76, 255},   // Bright Red
	{35, 209, 139, 255},  // Bright Green
	{245, 245, 67, 255},  // Bright Yellow
	{59, 142, 234, 255},  // Bright Blue
	{214, 112, 214, 255}, // Bright Magenta
	{41, 184, 219, 255},  // Bright Cyan
	{255, 255, 255, 255}, // Bright White
}

func init() {
	// Generate 216 color cube (16-231)
	i := 16
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				DefaultPalette[i] = color.RGBA{
					R: uint8(r * 51),
					G: uint8(g * 51),
					B: uint8(b * 51),
					A: 255,
				}
				i++
			}
		}
	}

	// Generate grayscale (232-255)
	for j := 0; j < 24; j++ {
		gray := uint8(8 + j*10)
		DefaultPalette[232+j] = color.RGBA{gray, gray, gray, 255}
	}
}

// DefaultForeground is the default text color (light gray).
var DefaultForeground = color.RGBA{229, 229, 229, 255}

// DefaultBackground is the default background color (black).
var DefaultBackground = color.RGBA{0, 0, 0, 255}

// DefaultCursorColor is the default cursor rendering color (light gray).
var DefaultCursorColor = color.RGBA{229, 229, 229, 255}

// Palette slots above the 256-color table.
const (
	NamedColorForeground = 256 // Default foreground text color
	NamedColorBackground = 257 // Default background color
	NamedColorCursor     = 258 // Cursor color
)

// Palette is a color lookup table shared by the rows of one terminal.
// Rows materialize indexed colors through it when cells are written.
type Palette struct {
	Colors     [256]color.RGBA
	Foreground color.RGBA
	Background color.RGBA
	Cursor     color.RGBA
}

// NewPalette returns a palette initialized with the default colors.
func NewPalette() *Palette {
	return &Palette{
		Colors:     DefaultPalette,
		Foreground: DefaultForeground,
		Background: DefaultBackground,
		Cursor:     DefaultCursorColor,
	}
}

// Resolve maps a palette slot to its literal color.
// A nil palette resolves against the defaults.
func (p *Palette) Resolve(index uint16) color.RGBA {
	if p == nil {
		switch {
		case index < 256:
			return DefaultPalette[index]
		case index == NamedColorBackground:
			return DefaultBackground
		case index == NamedColorCursor:
			return DefaultCursorColor
		default:
			return DefaultForeground
		}
	}

	switch {
	case index < 256:
		return p.Colors[index]
	case index == NamedColorBackground:
		return p.Background
	case index == NamedColorCursor:
		return p.Cursor
	default:
		return p.Foreground
	}
}

// Set replaces one slot. Returns false for an unknown slot.
func (p *Palette) Set(index int, c color.RGBA) bool {
	switch {
	case index >= 0 && index < 256:
		p.Colors[index] = c
	case index == NamedColorForeground:
		p.Foreground = c
	case index == NamedColorBackground:
		p.Background = c
	case index == NamedColorCursor:
		p.Cursor = c
	default:
		return false
	}
	return true
}

// Reset restores one slot from base. A nil base restores the default value.
func (p *Palette) Reset(index int, base *Palette) {
	if index < 0 || index > NamedColorCursor {
		return
	}
	p.Set(index, base.Resolve(uint16(index)))
}

// ResetAll restores every slot from base. A nil base restores the defaults.
func (p *Palette) ResetAll(base *Palette) {
	if base == nil {
		base = NewPalette()
	}
	*p = *base
}

// ParseColorSpec parses an X11 color specification as used by OSC 4 and 10-12:
// "#rgb", "#rrggbb" or "rgb:r/g/b" with 1 to 4 hex digits per component.
func ParseColorSpec(spec string) (color.RGBA, error) {
	spec = strings.TrimSpace(spec)

	if strings.HasPrefix(spec, "#") {
		c, err := colorful.Hex(strings.ToLower(spec))
		if err != nil {
			return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColorSpec, spec)
		}
		r, g, b := c.RGB255()
		return color.RGBA{R: r, G: g, B: b, A: 255}, nil
	}

	body, ok := strings.CutPrefix(spec, "rgb:")
	if !ok {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColorSpec, spec)
	}
	parts := strings.Split(body, "/")
	if len(parts) != 3 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColorSpec, spec)
	}

	var comps [3]float64
	for i, part := range parts {
		if len(part) == 0 || len(part) > 4 {
			return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColorSpec, spec)
		}
		v, err := strconv.ParseUint(part, 16, 16)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColorSpec, spec)
		}
		max := float64(uint64(1)<<(4*len(part)) - 1)
		comps[i] = float64(v) / max
	}

	r, g, b := colorful.Color{R: comps[0], G: comps[1], B: comps[2]}.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// FormatColorSpec formats a color the way xterm reports it in OSC replies.
func FormatColorSpec(c color.RGBA) string {
	return fmt.Sprintf("rgb:%02x%02x/%02x%02x/%02x%02x", c.R, c.R, c.G, c.G, c.B, c.B)
}

// colorToHex formats a color as "#rrggbb".
func colorToHex(c color.RGBA) string {
	cf, _ := colorful.MakeColor(c)
	return cf.Hex()
}
