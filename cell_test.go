package termengine

import (
	"image/color"
	"testing"
)

func TestNewCell(t *testing.T) {
	cell := NewCell()

	if cell.CodePoint != ' ' {
		t.Errorf("expected space, got '%c'", cell.CodePoint)
	}
	if cell.FgIndex != NamedColorForeground || !cell.HasFlag(CellFlagIndexedFg) {
		t.Error("expected indexed default foreground")
	}
	if cell.BgIndex != NamedColorBackground || !cell.HasFlag(CellFlagIndexedBg) {
		t.Error("expected indexed default background")
	}
	if cell.Style != 0 {
		t.Error("expected no style")
	}
	if cell.Width() != 1 {
		t.Errorf("expected width 1, got %d", cell.Width())
	}
}

func TestCellFlags(t *testing.T) {
	cell := NewCell()

	cell.SetFlag(CellFlagExtraFont)
	if !cell.HasFlag(CellFlagExtraFont) {
		t.Error("expected extra font flag")
	}

	cell.SetFlag(CellFlagLigatureStart)
	if !cell.HasFlag(CellFlagExtraFont) || !cell.HasFlag(CellFlagLigatureStart) {
		t.Error("expected both flags")
	}

	cell.ClearFlag(CellFlagExtraFont)
	if cell.HasFlag(CellFlagExtraFont) {
		t.Error("expected extra font flag to be cleared")
	}
	if !cell.HasFlag(CellFlagLigatureStart) {
		t.Error("expected ligature flag to remain")
	}
}

func TestCellWidth(t *testing.T) {
	cell := NewCell()

	cell.SetWidth(2)
	if cell.Width() != 2 || !cell.IsWide() {
		t.Errorf("expected wide cell of width 2, got %d", cell.Width())
	}
	if !cell.HasFlag(CellFlagIndexedFg) {
		t.Error("expected width to leave other flags alone")
	}

	cell.SetWidth(9)
	if cell.Width() != 4 {
		t.Errorf("expected width clamped to 4, got %d", cell.Width())
	}

	cell.SetWidth(0)
	if cell.Width() != 1 {
		t.Errorf("expected width clamped to 1, got %d", cell.Width())
	}
}

func TestCellUnderline(t *testing.T) {
	cell := NewCell()
	cell.Style = StyleBold

	cell.SetUnderline(UnderlineDouble)
	if cell.Underline() != UnderlineDouble {
		t.Errorf("expected double underline, got %d", cell.Underline())
	}
	if !cell.HasStyle(StyleBold) {
		t.Error("expected underline to leave bold alone")
	}

	cell.SetUnderline(UnderlineNone)
	if cell.Underline() != UnderlineNone {
		t.Errorf("expected no underline, got %d", cell.Underline())
	}
}

func TestCellColors(t *testing.T) {
	cell := NewCell()

	cell.SetForegroundRGBA(color.RGBA{1, 2, 3, 255})
	if cell.HasFlag(CellFlagIndexedFg) {
		t.Error("expected literal foreground")
	}

	cell.SetBackgroundIndexed(5)
	cell.resolve(NewPalette())
	if cell.Bg != DefaultPalette[5] {
		t.Errorf("expected %v, got %v", DefaultPalette[5], cell.Bg)
	}
	if cell.Fg != (color.RGBA{1, 2, 3, 255}) {
		t.Errorf("expected literal foreground kept, got %v", cell.Fg)
	}
}

func TestCellBlank(t *testing.T) {
	cell := NewCell()
	cell.CodePoint = 'x'
	cell.Style = StyleBold | StyleInverse
	cell.SetBackgroundIndexed(4)
	cell.LinkID = 2

	b := cell.blank()
	if b.CodePoint != ' ' {
		t.Errorf("expected space, got %q", b.CodePoint)
	}
	if b.Style != 0 {
		t.Errorf("expected no style on blank, got %b", b.Style)
	}
	if b.LinkID != 0 {
		t.Errorf("expected no link on blank, got %d", b.LinkID)
	}
	if b.BgIndex != 4 {
		t.Errorf("expected background 4 kept, got %d", b.BgIndex)
	}
}

func TestCellHasImage(t *testing.T) {
	cell := NewCell()
	if cell.HasImage() {
		t.Error("expected no image")
	}
	cell.ImageID = 1
	if !cell.HasImage() {
		t.Error("expected image")
	}
}
