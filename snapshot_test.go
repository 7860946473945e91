package termengine

import (
	"encoding/json"
	"image/color"
	"testing"
)

func TestSnapshotText(t *testing.T) {
	term := New(WithSize(3, 10))
	term.WriteString("Hello")
	term.WriteString("\x1b[2;1H")
	term.WriteString("World")

	snap := term.Snapshot(SnapshotDetailText)

	if snap.Size.Rows != 3 || snap.Size.Cols != 10 {
		t.Errorf("expected size 3x10, got %dx%d", snap.Size.Rows, snap.Size.Cols)
	}
	if len(snap.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(snap.Lines))
	}
	if snap.Lines[0].Text != "Hello" || snap.Lines[1].Text != "World" || snap.Lines[2].Text != "" {
		t.Errorf("unexpected lines: %+v", snap.Lines)
	}
	if snap.Lines[0].Segments != nil || snap.Lines[0].Cells != nil {
		t.Error("expected text detail to carry no segments or cells")
	}
}

func TestSnapshotDoesNotMaterializeRows(t *testing.T) {
	term := New(WithSize(24, 80))
	term.WriteString("x")

	term.Snapshot(SnapshotDetailFull)
	if term.MaterializedRows() != 1 {
		t.Errorf("expected snapshot to leave rows lazy, got %d", term.MaterializedRows())
	}
}

func TestSnapshotCursor(t *testing.T) {
	term := New(WithSize(5, 10))
	term.WriteString("ABC\x1b[4 q")

	snap := term.Snapshot(SnapshotDetailText)
	if snap.Cursor.Row != 0 || snap.Cursor.Col != 3 {
		t.Errorf("expected cursor at (0,3), got (%d,%d)", snap.Cursor.Row, snap.Cursor.Col)
	}
	if !snap.Cursor.Visible {
		t.Error("expected visible cursor")
	}
	if snap.Cursor.Style != "underline" {
		t.Errorf("expected underline cursor, got %s", snap.Cursor.Style)
	}

	term.WriteString("\x1b[?25l0123456")
	snap = term.Snapshot(SnapshotDetailText)
	if snap.Cursor.Visible {
		t.Error("expected hidden cursor")
	}
	if snap.Cursor.Col != 9 {
		t.Errorf("expected pending wrap reported at the last column, got %d", snap.Cursor.Col)
	}
}

func TestSnapshotStyled(t *testing.T) {
	term := New(WithSize(1, 4))
	term.WriteString("\x1b[1;31mAB\x1b[0mCD")

	snap := term.Snapshot(SnapshotDetailStyled)
	segs := snap.Lines[0].Segments
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}

	if segs[0].Text != "AB" || !segs[0].Attributes.Bold || segs[0].Fg != "#cd3131" {
		t.Errorf("unexpected first segment: %+v", segs[0])
	}
	if segs[1].Text != "CD" || segs[1].Attributes.Bold || segs[1].Fg != "#e5e5e5" {
		t.Errorf("unexpected second segment: %+v", segs[1])
	}
	if segs[1].Bg != "#000000" {
		t.Errorf("expected default background, got %s", segs[1].Bg)
	}
}

func TestSnapshotAttributes(t *testing.T) {
	term := New(WithSize(1, 10))
	term.WriteString("\x1b[2;3;4:3;5;7;8;9;53mX")

	snap := term.Snapshot(SnapshotDetailFull)
	attrs := snap.Lines[0].Cells[0].Attributes

	want := SnapshotAttrs{
		Dim:           true,
		Italic:        true,
		Underline:     "curly",
		Blink:         true,
		Reverse:       true,
		Hidden:        true,
		Strikethrough: true,
		Overline:      true,
	}
	if attrs != want {
		t.Errorf("expected %+v, got %+v", want, attrs)
	}
}

func TestSnapshotFullWideChar(t *testing.T) {
	term := New(WithSize(1, 4))
	term.WriteString("中a")

	cells := term.Snapshot(SnapshotDetailFull).Lines[0].Cells
	if len(cells) != 4 {
		t.Fatalf("expected one entry per column, got %d", len(cells))
	}
	if cells[0].Char != "中" || !cells[0].Wide || cells[0].WideSpacer {
		t.Errorf("unexpected wide cell: %+v", cells[0])
	}
	if !cells[1].WideSpacer {
		t.Errorf("expected spacer after wide cell: %+v", cells[1])
	}
	if cells[2].Char != "a" || cells[2].Wide || cells[2].WideSpacer {
		t.Errorf("unexpected narrow cell: %+v", cells[2])
	}
}

func TestSnapshotHyperlink(t *testing.T) {
	term := New(WithSize(1, 10))
	term.WriteString("\x1b]8;id=doc;http://example.com\x07L\x1b]8;;\x07N")

	snap := term.Snapshot(SnapshotDetailFull)
	link := snap.Lines[0].Cells[0].Hyperlink
	if link == nil || link.URI != "http://example.com" || link.ID != "doc" {
		t.Errorf("expected hyperlink on first cell, got %+v", link)
	}
	if snap.Lines[0].Cells[1].Hyperlink != nil {
		t.Error("expected no hyperlink after the link was closed")
	}

	segs := term.Snapshot(SnapshotDetailStyled).Lines[0].Segments
	if len(segs) < 2 || segs[0].Text != "L" || segs[0].Hyperlink == nil {
		t.Errorf("expected the link to split segments, got %+v", segs)
	}
}

func TestSnapshotImageTile(t *testing.T) {
	term := New(WithSize(1, 4))
	term.WriteString("ab")

	if !term.SetCellImage(0, 1, 7, 2, 3) {
		t.Fatal("expected image reference set")
	}
	if term.SetCellImage(1, 0, 7, 0, 0) {
		t.Error("expected out of bounds row rejected")
	}

	cells := term.Snapshot(SnapshotDetailFull).Lines[0].Cells
	if cells[0].Image != nil {
		t.Error("expected no image on the first cell")
	}
	tile := cells[1].Image
	if tile == nil || tile.ID != 7 || tile.X != 2 || tile.Y != 3 {
		t.Errorf("expected tile 7 at (2,3), got %+v", tile)
	}
}

func TestSnapshotWrappedAndAlternate(t *testing.T) {
	term := New(WithSize(2, 3))
	term.WriteString("abcd")

	snap := term.Snapshot(SnapshotDetailText)
	if !snap.Lines[0].Wrapped || snap.Lines[1].Wrapped {
		t.Error("expected only the first line marked wrapped")
	}
	if snap.Alternate {
		t.Error("expected primary screen")
	}

	term.WriteString("\x1b[?1049h")
	if !term.Snapshot(SnapshotDetailText).Alternate {
		t.Error("expected alternate screen")
	}
}

func TestSnapshotJSON(t *testing.T) {
	term := New(WithSize(1, 5))
	term.WriteString("hi")

	data, err := term.Snapshot(SnapshotDetailText).JSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	lines, ok := decoded["lines"].([]any)
	if !ok || len(lines) != 1 {
		t.Fatalf("expected 1 line, got %v", decoded["lines"])
	}
	if text := lines[0].(map[string]any)["text"]; text != "hi" {
		t.Errorf("expected 'hi', got %v", text)
	}
}

func TestSnapshotColorToHex(t *testing.T) {
	tests := []struct {
		c    color.RGBA
		want string
	}{
		{color.RGBA{0, 0, 0, 255}, "#000000"},
		{color.RGBA{255, 255, 255, 255}, "#ffffff"},
		{color.RGBA{205, 49, 49, 255}, "#cd3131"},
	}
	for _, tt := range tests {
		if got := colorToHex(tt.c); got != tt.want {
			t.Errorf("colorToHex(%v): expected %s, got %s", tt.c, tt.want, got)
		}
	}
}

func TestCursorStyleToString(t *testing.T) {
	tests := []struct {
		style CursorStyle
		want  string
	}{
		{CursorStyleBlinkingBlock, "block"},
		{CursorStyleSteadyBlock, "block"},
		{CursorStyleBlinkingUnderline, "underline"},
		{CursorStyleSteadyBar, "bar"},
	}
	for _, tt := range tests {
		if got := cursorStyleToString(tt.style); got != tt.want {
			t.Errorf("expected %s, got %s", tt.want, got)
		}
	}
}
