package termengine

import (
	"encoding/binary"
	"fmt"
	"image/color"
	"strings"
)

// Byte layout of one packed cell record.
const (
	offCodePoint = 0
	offFlags     = 4
	offLink      = 5
	offStyle     = 6
	offFgIndex   = 8
	offBgIndex   = 10
	offFg        = 12
	offBg        = 16
	offImage     = 20
	offImageX    = 22
	offImageY    = 24

	// CellSize is the size in bytes of one packed cell.
	CellSize = 26
)

// Row is a fixed-width line of cells stored as one contiguous byte slice.
// Indexed colors are resolved to literal RGBA through the row palette at write time.
// Accessors panic on out-of-range columns.
type Row struct {
	data    []byte
	width   int
	fill    rune
	palette *Palette
	dirty   bool
	wrapped bool
}

// NewRow allocates a row of blank space cells.
func NewRow(width int, palette *Palette) (*Row, error) {
	return NewRowFill(width, palette, ' ')
}

// NewRowFill allocates a row with every cell set to fill and default colors.
func NewRowFill(width int, palette *Palette, fill rune) (*Row, error) {
	if width <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}

	r := &Row{
		data:    make([]byte, width*CellSize),
		width:   width,
		fill:    fill,
		palette: palette,
		dirty:   true,
	}
	r.fillBlank(0, width)
	return r, nil
}

// mustRow is used internally where the width has already been validated.
func mustRow(width int, palette *Palette) *Row {
	r, err := NewRow(width, palette)
	if err != nil {
		panic(err)
	}
	return r
}

// Width returns the number of cells in the row.
func (r *Row) Width() int {
	return r.width
}

// Palette returns the palette used to resolve indexed colors.
func (r *Row) Palette() *Palette {
	return r.palette
}

// Dirty returns true if the row changed since the last ClearDirty call.
func (r *Row) Dirty() bool {
	return r.dirty
}

// MarkDirty flags the row as changed.
func (r *Row) MarkDirty() {
	r.dirty = true
}

// ClearDirty is called by the consumer after redrawing the row.
func (r *Row) ClearDirty() {
	r.dirty = false
}

// Wrapped returns true if the line continued on the next row because of autowrap.
func (r *Row) Wrapped() bool {
	return r.wrapped
}

// SetWrapped sets the soft-wrap flag.
func (r *Row) SetWrapped(wrapped bool) {
	r.wrapped = wrapped
}

func (r *Row) check(x int) {
	if x < 0 || x >= r.width {
		panic(fmt.Sprintf("termengine: column %d out of range [0,%d)", x, r.width))
	}
}

func (r *Row) record(x int) []byte {
	return r.data[x*CellSize : (x+1)*CellSize]
}

// Get decodes the cell at column x.
func (r *Row) Get(x int) Cell {
	r.check(x)
	return decodeCell(r.record(x))
}

// Set stores a full cell record. The hyperlink style bit follows the link id
// and indexed colors are resolved through the row palette.
func (r *Row) Set(x int, c Cell) {
	r.check(x)
	c.syncHyperlink()
	c.resolve(r.palette)
	encodeCell(r.record(x), &c)
	r.dirty = true
}

// SetCodePoint replaces the code point of one cell.
func (r *Row) SetCodePoint(x int, cp rune) {
	r.check(x)
	binary.LittleEndian.PutUint32(r.record(x)[offCodePoint:], uint32(cp))
	r.dirty = true
}

// SetStyle replaces the style bits of one cell.
func (r *Row) SetStyle(x int, s Style) {
	r.check(x)
	rec := r.record(x)
	if rec[offLink] != 0 {
		s |= StyleHyperlink
	} else {
		s &^= StyleHyperlink | StyleHyperlinkHighlight
	}
	binary.LittleEndian.PutUint16(rec[offStyle:], uint16(s))
	r.dirty = true
}

// SetFlags replaces the flag byte of one cell.
func (r *Row) SetFlags(x int, f CellFlags) {
	r.check(x)
	rec := r.record(x)
	rec[offFlags] = byte(f)
	if f&CellFlagIndexedFg != 0 {
		putRGBA(rec[offFg:], r.palette.Resolve(binary.LittleEndian.Uint16(rec[offFgIndex:])))
	}
	if f&CellFlagIndexedBg != 0 {
		putRGBA(rec[offBg:], r.palette.Resolve(binary.LittleEndian.Uint16(rec[offBgIndex:])))
	}
	r.dirty = true
}

// SetForegroundIndexed selects a palette slot for the foreground of one cell.
func (r *Row) SetForegroundIndexed(x int, index uint16) {
	r.check(x)
	rec := r.record(x)
	rec[offFlags] |= byte(CellFlagIndexedFg)
	binary.LittleEndian.PutUint16(rec[offFgIndex:], index)
	putRGBA(rec[offFg:], r.palette.Resolve(index))
	r.dirty = true
}

// SetForegroundRGBA sets a literal foreground color on one cell.
func (r *Row) SetForegroundRGBA(x int, c color.RGBA) {
	r.check(x)
	rec := r.record(x)
	rec[offFlags] &^= byte(CellFlagIndexedFg)
	putRGBA(rec[offFg:], c)
	r.dirty = true
}

// SetBackgroundIndexed selects a palette slot for the background of one cell.
func (r *Row) SetBackgroundIndexed(x int, index uint16) {
	r.check(x)
	rec := r.record(x)
	rec[offFlags] |= byte(CellFlagIndexedBg)
	binary.LittleEndian.PutUint16(rec[offBgIndex:], index)
	putRGBA(rec[offBg:], r.palette.Resolve(index))
	r.dirty = true
}

// SetBackgroundRGBA sets a literal background color on one cell.
func (r *Row) SetBackgroundRGBA(x int, c color.RGBA) {
	r.check(x)
	rec := r.record(x)
	rec[offFlags] &^= byte(CellFlagIndexedBg)
	putRGBA(rec[offBg:], c)
	r.dirty = true
}

// SetLinkID attaches a hyperlink id (0 removes it) and updates the hyperlink style bit.
func (r *Row) SetLinkID(x int, id uint8) {
	r.check(x)
	rec := r.record(x)
	rec[offLink] = id
	s := Style(binary.LittleEndian.Uint16(rec[offStyle:]))
	if id != 0 {
		s |= StyleHyperlink
	} else {
		s &^= StyleHyperlink | StyleHyperlinkHighlight
	}
	binary.LittleEndian.PutUint16(rec[offStyle:], uint16(s))
	r.dirty = true
}

// SetImage attaches an image tile reference to one cell. An id of 0 removes it.
func (r *Row) SetImage(x int, id, cellX, cellY uint16) {
	r.check(x)
	rec := r.record(x)
	binary.LittleEndian.PutUint16(rec[offImage:], id)
	binary.LittleEndian.PutUint16(rec[offImageX:], cellX)
	binary.LittleEndian.PutUint16(rec[offImageY:], cellY)
	r.dirty = true
}

// ShiftRight moves [x, width) right by n cells. Cells pushed past the end are lost
// and [x, x+n) is back-filled with blanks.
func (r *Row) ShiftRight(x, n int) {
	if n <= 0 || x < 0 || x >= r.width {
		return
	}
	if n >= r.width-x {
		r.fillBlank(x, r.width)
		return
	}
	copy(r.data[(x+n)*CellSize:], r.data[x*CellSize:(r.width-n)*CellSize])
	r.fillBlank(x, x+n)
}

// ShiftLeft moves [x+n, width) left onto x. Cells in [x, x+n) are lost
// and the last n cells are back-filled with blanks.
func (r *Row) ShiftLeft(x, n int) {
	if n <= 0 || x < 0 || x >= r.width {
		return
	}
	if n >= r.width-x {
		r.fillBlank(x, r.width)
		return
	}
	copy(r.data[x*CellSize:], r.data[(x+n)*CellSize:r.width*CellSize])
	r.fillBlank(r.width-n, r.width)
}

// PasteFrom copies the cells of other into this row starting at offset.
// A negative offset skips the first cells of other; cells past the end are dropped.
// Indexed colors are re-resolved against this row's palette.
func (r *Row) PasteFrom(other *Row, offset int) {
	src := 0
	if offset < 0 {
		src = -offset
		offset = 0
	}
	n := min(other.width-src, r.width-offset)
	if n <= 0 {
		return
	}

	copy(r.data[offset*CellSize:(offset+n)*CellSize], other.data[src*CellSize:(src+n)*CellSize])
	r.reapply(offset, offset+n)
	r.dirty = true
}

// Clone returns an independent deep copy sharing the same palette.
func (r *Row) Clone() *Row {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return &Row{
		data:    data,
		width:   r.width,
		fill:    r.fill,
		palette: r.palette,
		dirty:   r.dirty,
		wrapped: r.wrapped,
	}
}

// SetPalette swaps the palette and re-resolves every indexed color.
func (r *Row) SetPalette(p *Palette) {
	r.palette = p
	r.reapply(0, r.width)
	r.dirty = true
}

// Reapply re-resolves indexed colors after the shared palette was modified in place.
func (r *Row) Reapply() {
	r.reapply(0, r.width)
	r.dirty = true
}

// Resize reallocates the row to width, keeping cells on the left and padding with blanks.
func (r *Row) Resize(width int) error {
	if width <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	if width == r.width {
		return nil
	}

	data := make([]byte, width*CellSize)
	copy(data, r.data)
	old := r.width
	r.data = data
	r.width = width
	if width > old {
		r.fillBlank(old, width)
	}
	r.dirty = true
	return nil
}

// Fill writes c into [x0, x1). The range is clamped to the row.
func (r *Row) Fill(x0, x1 int, c Cell) {
	x0 = max(x0, 0)
	x1 = min(x1, r.width)
	if x0 >= x1 {
		return
	}
	c.syncHyperlink()
	c.resolve(r.palette)
	encodeCell(r.record(x0), &c)
	first := r.record(x0)
	for x := x0 + 1; x < x1; x++ {
		copy(r.record(x), first)
	}
	r.dirty = true
}

// Clear resets the whole row to default blanks and drops the wrap flag.
func (r *Row) Clear() {
	r.fillBlank(0, r.width)
	r.wrapped = false
}

// String returns the text of [x0, x1). Trailing cells of wide glyphs are skipped
// and empty code points read as spaces.
func (r *Row) String(x0, x1 int) string {
	x0 = max(x0, 0)
	x1 = min(x1, r.width)

	var sb strings.Builder
	for x := x0; x < x1; {
		rec := r.record(x)
		cp := rune(binary.LittleEndian.Uint32(rec[offCodePoint:]))
		if cp == 0 {
			cp = ' '
		}
		sb.WriteRune(cp)
		x += int((CellFlags(rec[offFlags])&cellWidthMask)>>cellWidthShift) + 1
	}
	return sb.String()
}

// TrimmedString returns the row text without trailing spaces.
func (r *Row) TrimmedString() string {
	return strings.TrimRight(r.String(0, r.width), " ")
}

func (r *Row) fillBlank(x0, x1 int) {
	if x0 >= x1 {
		return
	}
	c := NewCell()
	c.CodePoint = r.fill
	r.Fill(x0, x1, c)
}

func (r *Row) reapply(x0, x1 int) {
	for x := x0; x < x1; x++ {
		rec := r.record(x)
		flags := CellFlags(rec[offFlags])
		if flags&CellFlagIndexedFg != 0 {
			putRGBA(rec[offFg:], r.palette.Resolve(binary.LittleEndian.Uint16(rec[offFgIndex:])))
		}
		if flags&CellFlagIndexedBg != 0 {
			putRGBA(rec[offBg:], r.palette.Resolve(binary.LittleEndian.Uint16(rec[offBgIndex:])))
		}
	}
}

func encodeCell(rec []byte, c *Cell) {
	binary.LittleEndian.PutUint32(rec[offCodePoint:], uint32(c.CodePoint))
	rec[offFlags] = byte(c.Flags)
	rec[offLink] = c.LinkID
	binary.LittleEndian.PutUint16(rec[offStyle:], uint16(c.Style))
	binary.LittleEndian.PutUint16(rec[offFgIndex:], c.FgIndex)
	binary.LittleEndian.PutUint16(rec[offBgIndex:], c.BgIndex)
	putRGBA(rec[offFg:], c.Fg)
	putRGBA(rec[offBg:], c.Bg)
	binary.LittleEndian.PutUint16(rec[offImage:], c.ImageID)
	binary.LittleEndian.PutUint16(rec[offImageX:], c.ImageX)
	binary.LittleEndian.PutUint16(rec[offImageY:], c.ImageY)
}

func decodeCell(rec []byte) Cell {
	return Cell{
		CodePoint: rune(binary.LittleEndian.Uint32(rec[offCodePoint:])),
		Flags:     CellFlags(rec[offFlags]),
		LinkID:    rec[offLink],
		Style:     Style(binary.LittleEndian.Uint16(rec[offStyle:])),
		FgIndex:   binary.LittleEndian.Uint16(rec[offFgIndex:]),
		BgIndex:   binary.LittleEndian.Uint16(rec[offBgIndex:]),
		Fg:        getRGBA(rec[offFg:]),
		Bg:        getRGBA(rec[offBg:]),
		ImageID:   binary.LittleEndian.Uint16(rec[offImage:]),
		ImageX:    binary.LittleEndian.Uint16(rec[offImageX:]),
		ImageY:    binary.LittleEndian.Uint16(rec[offImageY:]),
	}
}

func putRGBA(b []byte, c color.RGBA) {
	b[0], b[1], b[2], b[3] = c.R, c.G, c.B, c.A
}

func getRGBA(b []byte) color.RGBA {
	return color.RGBA{R: b[0], G: b[1], B: b[2], A: b[3]}
}
