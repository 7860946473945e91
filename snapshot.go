package termengine

import (
	"encoding/json"
)

// SnapshotDetail specifies the level of detail in a snapshot.
type SnapshotDetail string

const (
	// SnapshotDetailText returns plain text only.
	SnapshotDetailText SnapshotDetail = "text"
	// SnapshotDetailStyled returns text with style segments per line.
	SnapshotDetailStyled SnapshotDetail = "styled"
	// SnapshotDetailFull returns full cell-by-cell data.
	SnapshotDetailFull SnapshotDetail = "full"
)

// Snapshot represents a complete terminal screen capture.
type Snapshot struct {
	Size      SnapshotSize   `json:"size"`
	Cursor    SnapshotCursor `json:"cursor"`
	Alternate bool           `json:"alternate,omitempty"`
	Lines     []SnapshotLine `json:"lines"`
}

// SnapshotSize holds terminal dimensions.
type SnapshotSize struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// SnapshotCursor holds cursor state.
type SnapshotCursor struct {
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	Visible bool   `json:"visible"`
	Style   string `json:"style"`
}

// SnapshotLine represents a single line in the snapshot.
type SnapshotLine struct {
	Text     string            `json:"text"`
	Wrapped  bool              `json:"wrapped,omitempty"`
	Segments []SnapshotSegment `json:"segments,omitempty"`
	Cells    []SnapshotCell    `json:"cells,omitempty"`
}

// SnapshotSegment represents a styled text segment within a line.
type SnapshotSegment struct {
	Text       string        `json:"text"`
	Fg         string        `json:"fg,omitempty"`
	Bg         string        `json:"bg,omitempty"`
	Attributes SnapshotAttrs `json:"attrs,omitempty"`
	Hyperlink  *SnapshotLink `json:"hyperlink,omitempty"`
}

// SnapshotCell represents a single cell with full attributes.
type SnapshotCell struct {
	Char       string        `json:"char"`
	Fg         string        `json:"fg"`
	Bg         string        `json:"bg"`
	Attributes SnapshotAttrs `json:"attrs,omitempty"`
	Hyperlink  *SnapshotLink `json:"hyperlink,omitempty"`
	Wide       bool          `json:"wide,omitempty"`
	WideSpacer bool          `json:"wide_spacer,omitempty"`
	Image      *SnapshotTile `json:"image,omitempty"`
}

// SnapshotAttrs holds text formatting attributes.
type SnapshotAttrs struct {
	Bold          bool   `json:"bold,omitempty"`
	Dim           bool   `json:"dim,omitempty"`
	Italic        bool   `json:"italic,omitempty"`
	Underline     string `json:"underline,omitempty"`
	Blink         bool   `json:"blink,omitempty"`
	Reverse       bool   `json:"reverse,omitempty"`
	Hidden        bool   `json:"hidden,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty"`
	Overline      bool   `json:"overline,omitempty"`
}

// SnapshotLink holds hyperlink information.
type SnapshotLink struct {
	ID  string `json:"id,omitempty"`
	URI string `json:"uri"`
}

// SnapshotTile is the image tile a cell references.
type SnapshotTile struct {
	ID uint16 `json:"id"`
	X  uint16 `json:"x"`
	Y  uint16 `json:"y"`
}

// JSON encodes the snapshot.
func (s *Snapshot) JSON() ([]byte, error) {
	return json.Marshal(s)
}

// Snapshot creates a snapshot of the active screen.
// The detail parameter controls how much information is included.
func (t *Terminal) Snapshot(detail SnapshotDetail) *Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := &Snapshot{
		Size: SnapshotSize{
			Rows: t.rows,
			Cols: t.cols,
		},
		Cursor: SnapshotCursor{
			Row:     t.cursor.Row,
			Col:     min(t.cursor.Col, t.cols-1),
			Visible: t.modes&ModeShowCursor != 0,
			Style:   cursorStyleToString(t.cursor.Style),
		},
		Alternate: t.alternate,
		Lines:     make([]SnapshotLine, t.rows),
	}

	for row := 0; row < t.rows; row++ {
		snap.Lines[row] = t.snapshotLine(row, detail)
	}

	return snap
}

// snapshotLine creates a snapshot of a single line.
func (t *Terminal) snapshotLine(row int, detail SnapshotDetail) SnapshotLine {
	r := t.screen.PeekRow(row)
	if r == nil {
		r = mustRow(t.cols, t.palette)
	}

	line := SnapshotLine{
		Text:    r.TrimmedString(),
		Wrapped: r.Wrapped(),
	}

	switch detail {
	case SnapshotDetailText:
		// Just text, already set

	case SnapshotDetailStyled:
		line.Segments = t.lineToSegments(r)

	case SnapshotDetailFull:
		line.Cells = t.lineToCells(r)
	}

	return line
}

// lineToSegments converts a line to styled segments (runs of same style).
func (t *Terminal) lineToSegments(r *Row) []SnapshotSegment {
	var segments []SnapshotSegment
	var current *SnapshotSegment
	var currentChars []rune

	for col := 0; col < r.Width(); {
		cell := r.Get(col)
		col += cell.Width()

		fg := colorToHex(cell.Fg)
		bg := colorToHex(cell.Bg)
		attrs := cellAttrsToSnapshot(&cell)
		link := t.cellHyperlinkToSnapshot(&cell)

		if current == nil || !segmentMatches(current, fg, bg, attrs, link) {
			if current != nil && len(currentChars) > 0 {
				current.Text = string(currentChars)
				segments = append(segments, *current)
			}

			current = &SnapshotSegment{
				Fg:         fg,
				Bg:         bg,
				Attributes: attrs,
				Hyperlink:  link,
			}
			currentChars = nil
		}

		ch := cell.CodePoint
		if ch == 0 {
			ch = ' '
		}
		currentChars = append(currentChars, ch)
	}

	if current != nil && len(currentChars) > 0 {
		current.Text = string(currentChars)
		segments = append(segments, *current)
	}

	return segments
}

// lineToCells converts a line to full cell data.
func (t *Terminal) lineToCells(r *Row) []SnapshotCell {
	cells := make([]SnapshotCell, 0, r.Width())

	spacers := 0
	for col := 0; col < r.Width(); col++ {
		cell := r.Get(col)

		ch := cell.CodePoint
		if ch == 0 {
			ch = ' '
		}

		sc := SnapshotCell{
			Char:       string(ch),
			Fg:         colorToHex(cell.Fg),
			Bg:         colorToHex(cell.Bg),
			Attributes: cellAttrsToSnapshot(&cell),
			Hyperlink:  t.cellHyperlinkToSnapshot(&cell),
			Wide:       cell.IsWide(),
			WideSpacer: spacers > 0,
		}
		if cell.HasImage() {
			sc.Image = &SnapshotTile{ID: cell.ImageID, X: cell.ImageX, Y: cell.ImageY}
		}

		if spacers > 0 {
			spacers--
		} else if cell.IsWide() {
			spacers = cell.Width() - 1
		}
		cells = append(cells, sc)
	}

	return cells
}

// segmentMatches checks if segment matches the given style.
func segmentMatches(seg *SnapshotSegment, fg, bg string, attrs SnapshotAttrs, link *SnapshotLink) bool {
	if seg.Fg != fg || seg.Bg != bg {
		return false
	}
	if seg.Attributes != attrs {
		return false
	}
	if seg.Hyperlink == nil && link == nil {
		return true
	}
	if seg.Hyperlink == nil || link == nil {
		return false
	}
	return seg.Hyperlink.URI == link.URI && seg.Hyperlink.ID == link.ID
}

// cellAttrsToSnapshot extracts cell attributes.
func cellAttrsToSnapshot(cell *Cell) SnapshotAttrs {
	return SnapshotAttrs{
		Bold:          cell.HasStyle(StyleBold),
		Dim:           cell.HasStyle(StyleFaint),
		Italic:        cell.HasStyle(StyleItalic),
		Underline:     underlineToString(cell.Underline()),
		Blink:         cell.HasStyle(StyleBlink),
		Reverse:       cell.HasStyle(StyleInverse),
		Hidden:        cell.HasStyle(StyleInvisible),
		Strikethrough: cell.HasStyle(StyleStrikethrough),
		Overline:      cell.HasStyle(StyleOverline),
	}
}

func underlineToString(u UnderlineStyle) string {
	switch u {
	case UnderlineSingle:
		return "single"
	case UnderlineDouble:
		return "double"
	case UnderlineCurly:
		return "curly"
	default:
		return ""
	}
}

// cellHyperlinkToSnapshot looks up the cell's hyperlink in the link table.
func (t *Terminal) cellHyperlinkToSnapshot(cell *Cell) *SnapshotLink {
	if cell.LinkID == 0 || int(cell.LinkID) > len(t.links) {
		return nil
	}
	h := t.links[cell.LinkID-1]
	return &SnapshotLink{
		ID:  h.ID,
		URI: h.URI,
	}
}

// cursorStyleToString converts cursor style to string.
func cursorStyleToString(style CursorStyle) string {
	switch style {
	case CursorStyleBlinkingBlock, CursorStyleSteadyBlock:
		return "block"
	case CursorStyleBlinkingUnderline, CursorStyleSteadyUnderline:
		return "underline"
	case CursorStyleBlinkingBar, CursorStyleSteadyBar:
		return "bar"
	default:
		return "block"
	}
}
