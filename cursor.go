package termengine

// CursorStyle determines how the cursor is rendered (DECSCUSR).
type CursorStyle int

const (
	CursorStyleBlinkingBlock CursorStyle = iota
	CursorStyleSteadyBlock
	CursorStyleBlinkingUnderline
	CursorStyleSteadyUnderline
	CursorStyleBlinkingBar
	CursorStyleSteadyBar
)

// Cursor tracks the current position and rendering style (0-based coordinates).
// Col may equal the screen width while a wrap is pending.
type Cursor struct {
	Row     int
	Col     int
	Style   CursorStyle
	Visible bool
}

// NewCursor creates a cursor at (0, 0) with blinking block style, visible.
func NewCursor() *Cursor {
	return &Cursor{
		Style:   CursorStyleBlinkingBlock,
		Visible: true,
	}
}

// SavedCursor stores cursor position, the cell template, and charset state for DECSC/DECRC.
type SavedCursor struct {
	Row          int
	Col          int
	Attrs        CellTemplate
	OriginMode   bool
	CharsetIndex CharsetIndex
	Charsets     [4]Charset
}

// CellTemplate defines default attributes applied to newly written characters.
// Modified by SGR (Select Graphic Rendition) escape sequences.
type CellTemplate struct {
	Cell
}

// NewCellTemplate creates a template with default attributes (default colors, no style).
func NewCellTemplate() CellTemplate {
	return CellTemplate{
		Cell: NewCell(),
	}
}
