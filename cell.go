package termengine

import "image/color"

// CellFlags is a bitmask of per-cell layout flags.
// Bits 3-4 hold the display width minus one.
type CellFlags uint8

const (
	// CellFlagIndexedFg means the foreground comes from the palette slot in FgIndex.
	CellFlagIndexedFg CellFlags = 1 << iota
	// CellFlagIndexedBg means the background comes from the palette slot in BgIndex.
	CellFlagIndexedBg
	// CellFlagExtraFont selects the alternate font for the glyph.
	CellFlagExtraFont
	cellFlagWidthLow
	cellFlagWidthHigh
	// CellFlagLigatureStart marks the first cell of a ligature run.
	CellFlagLigatureStart
)

const (
	cellWidthShift = 3
	cellWidthMask  = cellFlagWidthLow | cellFlagWidthHigh
)

// Style is the bit-field of text rendering attributes.
// The two low bits carry the underline style.
type Style uint16

const (
	styleUnderlineMask Style = 0x3

	StyleBold Style = 1 << (iota + 1)
	StyleItalic
	StyleStrikethrough
	StyleBlink
	StyleInverse
	StyleInvisible
	StyleFaint
	StyleCursor
	StyleOverline
	StyleHyperlink
	StyleHyperlinkHighlight
)

// UnderlineStyle is stored in the two low bits of Style.
type UnderlineStyle uint8

const (
	UnderlineNone UnderlineStyle = iota
	UnderlineSingle
	UnderlineDouble
	UnderlineCurly
)

// Cell is the logical view of one packed grid record.
type Cell struct {
	CodePoint rune
	Flags     CellFlags
	LinkID    uint8
	Style     Style
	FgIndex   uint16
	BgIndex   uint16
	Fg        color.RGBA
	Bg        color.RGBA
	ImageID   uint16
	ImageX    uint16
	ImageY    uint16
}

// NewCell creates a blank cell using the default palette colors.
func NewCell() Cell {
	return Cell{
		CodePoint: ' ',
		Flags:     CellFlagIndexedFg | CellFlagIndexedBg,
		FgIndex:   NamedColorForeground,
		BgIndex:   NamedColorBackground,
		Fg:        DefaultForeground,
		Bg:        DefaultBackground,
	}
}

// Width returns the number of columns the cell occupies (1 or 2, up to 4).
func (c *Cell) Width() int {
	return int((c.Flags&cellWidthMask)>>cellWidthShift) + 1
}

// SetWidth stores the display width. Values outside 1..4 are clamped.
func (c *Cell) SetWidth(w int) {
	w = clamp(w, 1, 4)
	c.Flags = c.Flags&^cellWidthMask | CellFlags(w-1)<<cellWidthShift
}

// HasFlag returns true if the specified flag is set.
func (c *Cell) HasFlag(flag CellFlags) bool {
	return c.Flags&flag != 0
}

// SetFlag enables the specified flag without affecting others.
func (c *Cell) SetFlag(flag CellFlags) {
	c.Flags |= flag
}

// ClearFlag disables the specified flag without affecting others.
func (c *Cell) ClearFlag(flag CellFlags) {
	c.Flags &^= flag
}

// HasStyle returns true if all bits of s are set.
func (c *Cell) HasStyle(s Style) bool {
	return c.Style&s == s
}

// Underline returns the underline style.
func (c *Cell) Underline() UnderlineStyle {
	return UnderlineStyle(c.Style & styleUnderlineMask)
}

// SetUnderline replaces the underline style.
func (c *Cell) SetUnderline(u UnderlineStyle) {
	c.Style = c.Style&^styleUnderlineMask | Style(u)&styleUnderlineMask
}

// SetForegroundIndexed selects a palette slot for the foreground.
// The literal color is filled in when the cell is stored in a Row.
func (c *Cell) SetForegroundIndexed(index uint16) {
	c.FgIndex = index
	c.SetFlag(CellFlagIndexedFg)
}

// SetForegroundRGBA sets a literal foreground color.
func (c *Cell) SetForegroundRGBA(rgba color.RGBA) {
	c.Fg = rgba
	c.ClearFlag(CellFlagIndexedFg)
}

// SetBackgroundIndexed selects a palette slot for the background.
func (c *Cell) SetBackgroundIndexed(index uint16) {
	c.BgIndex = index
	c.SetFlag(CellFlagIndexedBg)
}

// SetBackgroundRGBA sets a literal background color.
func (c *Cell) SetBackgroundRGBA(rgba color.RGBA) {
	c.Bg = rgba
	c.ClearFlag(CellFlagIndexedBg)
}

// IsWide returns true if the glyph spans more than one column.
func (c *Cell) IsWide() bool {
	return c.Width() > 1
}

// HasImage returns true if the cell references an image tile.
func (c *Cell) HasImage() bool {
	return c.ImageID != 0
}

// syncHyperlink keeps the hyperlink style bit consistent with the link id.
func (c *Cell) syncHyperlink() {
	if c.LinkID != 0 {
		c.Style |= StyleHyperlink
	} else {
		c.Style &^= StyleHyperlink | StyleHyperlinkHighlight
	}
}

// resolve materializes indexed colors against p.
func (c *Cell) resolve(p *Palette) {
	if c.HasFlag(CellFlagIndexedFg) {
		c.Fg = p.Resolve(c.FgIndex)
	}
	if c.HasFlag(CellFlagIndexedBg) {
		c.Bg = p.Resolve(c.BgIndex)
	}
}

// blank returns a space cell carrying only the colors of c.
// Used for erase operations, which paint with the current background.
func (c Cell) blank() Cell {
	b := NewCell()
	b.Flags = c.Flags & (CellFlagIndexedFg | CellFlagIndexedBg)
	b.FgIndex, b.BgIndex = c.FgIndex, c.BgIndex
	b.Fg, b.Bg = c.Fg, c.Bg
	return b
}
