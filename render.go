package termengine

// NoRefresh marks an empty refresh range in a RenderEvent.
const NoRefresh = -1

// RenderEvent describes what changed since the previous render notification.
type RenderEvent struct {
	Rows             int
	Columns          int
	MaterializedRows int

	// RefreshStartRow and RefreshEndRow bound the dirty rows, end exclusive.
	// Both are NoRefresh when only the cursor moved or lines were scrolled out.
	RefreshStartRow int
	RefreshEndRow   int

	CursorRow     int
	CursorColumn  int
	CursorVisible bool

	// ScrollbackLines are copies of the rows that left the top of the primary
	// screen, oldest first.
	ScrollbackLines []*Row
}

// HasRefresh returns true if the event carries a dirty row range.
func (e RenderEvent) HasRefresh() bool {
	return e.RefreshStartRow != NoRefresh && e.RefreshEndRow > e.RefreshStartRow
}

// Flush sends pending screen changes to the render provider.
// It is called after every processing slice and does nothing when nothing changed.
func (t *Terminal) Flush() {
	t.mu.Lock()
	ev, ok := t.renderEventLocked()
	provider := t.renderProvider
	t.mu.Unlock()

	if ok {
		provider.Render(ev)
	}
}

func (t *Terminal) renderEventLocked() (RenderEvent, bool) {
	start, end, dirty := t.screen.takeDirty()

	var lines []*Row
	if primary := t.primaryScreenLocked(); primary != nil {
		lines = primary.takeScrollback()
	}
	for i, line := range lines {
		t.scrollbackStorage.Push(line)
		lines[i] = line.Clone()
	}

	row, col := t.cursor.Row, min(t.cursor.Col, t.cols-1)
	moved := t.lastCursor != [2]int{row, col}
	if !dirty && len(lines) == 0 && !moved {
		return RenderEvent{}, false
	}
	t.lastCursor = [2]int{row, col}

	ev := RenderEvent{
		Rows:             t.rows,
		Columns:          t.cols,
		MaterializedRows: t.screen.MaterializedRows(),
		RefreshStartRow:  NoRefresh,
		RefreshEndRow:    NoRefresh,
		CursorRow:        row,
		CursorColumn:     col,
		CursorVisible:    t.modes&ModeShowCursor != 0,
		ScrollbackLines:  lines,
	}
	if dirty {
		ev.RefreshStartRow = start
		ev.RefreshEndRow = end
	}
	return ev, true
}
