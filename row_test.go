package termengine

import (
	"errors"
	"image/color"
	"testing"
)

func newTestRow(t *testing.T, width int) *Row {
	t.Helper()
	r, err := NewRow(width, NewPalette())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func writeText(r *Row, x int, s string) {
	for _, ch := range s {
		r.SetCodePoint(x, ch)
		x++
	}
}

func TestNewRow(t *testing.T) {
	r := newTestRow(t, 10)

	if r.Width() != 10 {
		t.Errorf("expected width 10, got %d", r.Width())
	}
	if !r.Dirty() {
		t.Error("expected new row to be dirty")
	}

	c := r.Get(0)
	if c.CodePoint != ' ' {
		t.Errorf("expected space, got %q", c.CodePoint)
	}
	if c.Fg != DefaultForeground {
		t.Errorf("expected default foreground, got %v", c.Fg)
	}
	if c.Bg != DefaultBackground {
		t.Errorf("expected default background, got %v", c.Bg)
	}
}

func TestNewRowInvalidWidth(t *testing.T) {
	for _, w := range []int{0, -1} {
		_, err := NewRow(w, NewPalette())
		if !errors.Is(err, ErrInvalidWidth) {
			t.Errorf("width %d: expected ErrInvalidWidth, got %v", w, err)
		}
	}
}

func TestNewRowFill(t *testing.T) {
	r, err := NewRowFill(4, nil, 'x')
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.String(0, 4); got != "xxxx" {
		t.Errorf("expected %q, got %q", "xxxx", got)
	}
}

func TestRowSetGet(t *testing.T) {
	r := newTestRow(t, 10)

	c := NewCell()
	c.CodePoint = 'A'
	c.Style = StyleBold | StyleItalic
	c.SetUnderline(UnderlineCurly)
	c.SetForegroundRGBA(color.RGBA{1, 2, 3, 255})
	c.SetBackgroundIndexed(4)
	c.ImageID, c.ImageX, c.ImageY = 7, 1, 2
	r.Set(3, c)

	got := r.Get(3)
	if got.CodePoint != 'A' {
		t.Errorf("expected 'A', got %q", got.CodePoint)
	}
	if !got.HasStyle(StyleBold) || !got.HasStyle(StyleItalic) {
		t.Errorf("expected bold and italic, got style %b", got.Style)
	}
	if got.Underline() != UnderlineCurly {
		t.Errorf("expected curly underline, got %d", got.Underline())
	}
	if got.Fg != (color.RGBA{1, 2, 3, 255}) {
		t.Errorf("expected literal fg, got %v", got.Fg)
	}
	if got.Bg != DefaultPalette[4] {
		t.Errorf("expected bg resolved from palette, got %v", got.Bg)
	}
	if got.BgIndex != 4 || !got.HasFlag(CellFlagIndexedBg) {
		t.Errorf("expected indexed bg 4, got %d", got.BgIndex)
	}
	if got.ImageID != 7 || got.ImageX != 1 || got.ImageY != 2 {
		t.Errorf("expected image 7 (1,2), got %d (%d,%d)", got.ImageID, got.ImageX, got.ImageY)
	}
}

func TestRowOutOfRangePanics(t *testing.T) {
	r := newTestRow(t, 5)

	defer func() {
		if recover() == nil {
			t.Error("expected panic for out of range column")
		}
	}()
	r.Get(5)
}

func TestRowSetLinkIDUpdatesStyle(t *testing.T) {
	r := newTestRow(t, 5)

	r.SetLinkID(1, 3)
	c := r.Get(1)
	if c.LinkID != 3 || !c.HasStyle(StyleHyperlink) {
		t.Errorf("expected link 3 with hyperlink style, got %d style %b", c.LinkID, c.Style)
	}

	r.SetLinkID(1, 0)
	c = r.Get(1)
	if c.HasStyle(StyleHyperlink) {
		t.Error("expected hyperlink style cleared")
	}
}

func TestRowSetForegroundIndexed(t *testing.T) {
	r := newTestRow(t, 5)

	r.SetForegroundIndexed(0, 1)
	if got := r.Get(0).Fg; got != DefaultPalette[1] {
		t.Errorf("expected %v, got %v", DefaultPalette[1], got)
	}

	r.SetForegroundRGBA(0, color.RGBA{9, 9, 9, 255})
	c := r.Get(0)
	if c.HasFlag(CellFlagIndexedFg) {
		t.Error("expected indexed fg flag cleared")
	}
}

func TestRowShiftRoundTrip(t *testing.T) {
	r := newTestRow(t, 10)
	writeText(r, 0, "abcdefghij")

	r.ShiftRight(2, 3)
	if got := r.String(0, 10); got != "ab   cdefg" {
		t.Errorf("expected %q after shift right, got %q", "ab   cdefg", got)
	}

	r.ShiftLeft(2, 3)
	if got := r.String(0, 10); got != "abcdefg   " {
		t.Errorf("expected %q after shift left, got %q", "abcdefg   ", got)
	}
}

func TestRowShiftBeyondWidth(t *testing.T) {
	r := newTestRow(t, 5)
	writeText(r, 0, "abcde")

	r.ShiftRight(1, 10)
	if got := r.String(0, 5); got != "a    " {
		t.Errorf("expected %q, got %q", "a    ", got)
	}
}

func TestRowPasteFrom(t *testing.T) {
	src := newTestRow(t, 6)
	writeText(src, 0, "abcdef")

	dst := newTestRow(t, 4)
	dst.PasteFrom(src, 0)
	if got := dst.String(0, 4); got != "abcd" {
		t.Errorf("expected %q, got %q", "abcd", got)
	}

	dst = newTestRow(t, 4)
	dst.PasteFrom(src, -4)
	if got := dst.String(0, 4); got != "ef  " {
		t.Errorf("expected %q, got %q", "ef  ", got)
	}

	dst = newTestRow(t, 4)
	dst.PasteFrom(src, 2)
	if got := dst.String(0, 4); got != "  ab" {
		t.Errorf("expected %q, got %q", "  ab", got)
	}
}

func TestRowPasteFromReresolvesColors(t *testing.T) {
	src := newTestRow(t, 2)
	src.SetForegroundIndexed(0, 1)

	p := NewPalette()
	p.Set(1, color.RGBA{10, 20, 30, 255})
	dst, _ := NewRow(2, p)
	dst.PasteFrom(src, 0)

	if got := dst.Get(0).Fg; got != (color.RGBA{10, 20, 30, 255}) {
		t.Errorf("expected color from destination palette, got %v", got)
	}
}

func TestRowClone(t *testing.T) {
	r := newTestRow(t, 3)
	writeText(r, 0, "abc")
	r.SetWrapped(true)

	c := r.Clone()
	r.SetCodePoint(0, 'z')

	if got := c.String(0, 3); got != "abc" {
		t.Errorf("expected clone to be independent, got %q", got)
	}
	if !c.Wrapped() {
		t.Error("expected clone to keep the wrapped flag")
	}
}

func TestRowResize(t *testing.T) {
	r := newTestRow(t, 3)
	writeText(r, 0, "abc")

	if err := r.Resize(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.String(0, 5); got != "abc  " {
		t.Errorf("expected %q, got %q", "abc  ", got)
	}

	if err := r.Resize(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.String(0, 2); got != "ab" {
		t.Errorf("expected %q, got %q", "ab", got)
	}

	if err := r.Resize(0); !errors.Is(err, ErrInvalidWidth) {
		t.Errorf("expected ErrInvalidWidth, got %v", err)
	}
}

func TestRowSetPalette(t *testing.T) {
	r := newTestRow(t, 2)
	r.SetForegroundIndexed(0, 2)
	r.SetForegroundRGBA(1, color.RGBA{1, 1, 1, 255})

	p := NewPalette()
	p.Set(2, color.RGBA{200, 0, 0, 255})
	r.SetPalette(p)

	if got := r.Get(0).Fg; got != (color.RGBA{200, 0, 0, 255}) {
		t.Errorf("expected re-resolved indexed color, got %v", got)
	}
	if got := r.Get(1).Fg; got != (color.RGBA{1, 1, 1, 255}) {
		t.Errorf("expected literal color untouched, got %v", got)
	}
}

func TestRowFillAndClear(t *testing.T) {
	r := newTestRow(t, 5)

	c := NewCell()
	c.CodePoint = '#'
	r.Fill(1, 3, c)
	if got := r.String(0, 5); got != " ##  " {
		t.Errorf("expected %q, got %q", " ##  ", got)
	}

	r.Fill(-5, 100, c)
	if got := r.String(0, 5); got != "#####" {
		t.Errorf("expected clamped fill, got %q", got)
	}

	r.SetWrapped(true)
	r.Clear()
	if got := r.TrimmedString(); got != "" {
		t.Errorf("expected empty row, got %q", got)
	}
	if r.Wrapped() {
		t.Error("expected Clear to drop the wrapped flag")
	}
}

func TestRowStringSkipsWideTrail(t *testing.T) {
	r := newTestRow(t, 4)

	c := NewCell()
	c.CodePoint = '世'
	c.SetWidth(2)
	r.Set(0, c)
	r.SetCodePoint(2, 'a')

	if got := r.String(0, 4); got != "世a " {
		t.Errorf("expected %q, got %q", "世a ", got)
	}
}

func TestRowDirty(t *testing.T) {
	r := newTestRow(t, 2)
	r.ClearDirty()

	r.SetCodePoint(0, 'x')
	if !r.Dirty() {
		t.Error("expected row to be dirty after write")
	}
}
