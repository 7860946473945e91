package termengine

// Screen is one page of rows (primary or alternate) with its tab stops.
// Rows are materialized lazily from the top and never exceed the screen height.
// Rows scrolled off the top are queued until the next render flush when the
// screen keeps scrollback.
type Screen struct {
	rows       []*Row
	height     int
	width      int
	palette    *Palette
	tabStops   []bool
	scrollback bool

	pending []*Row
	evicted int

	dirtyStart int
	dirtyEnd   int
}

// NewScreen creates an empty screen. Rows are allocated on first access.
func NewScreen(height, width int, palette *Palette, scrollback bool) *Screen {
	s := &Screen{
		rows:       make([]*Row, 0, height),
		height:     height,
		width:      width,
		palette:    palette,
		scrollback: scrollback,
	}
	s.ResetTabStops()
	s.MarkDirty(0, height)
	return s
}

// Height returns the number of rows.
func (s *Screen) Height() int {
	return s.height
}

// Width returns the number of columns.
func (s *Screen) Width() int {
	return s.width
}

// MaterializedRows returns how many rows have been allocated.
func (s *Screen) MaterializedRows() int {
	return len(s.rows)
}

// Evicted returns the total number of rows pushed off the top into scrollback.
func (s *Screen) Evicted() int {
	return s.evicted
}

// Row returns row y, allocating it and every row above it if needed.
// Returns nil if y is out of bounds.
func (s *Screen) Row(y int) *Row {
	if y < 0 || y >= s.height {
		return nil
	}
	s.materialize(y + 1)
	return s.rows[y]
}

// PeekRow returns row y without allocating. Returns nil if the row does not exist yet.
func (s *Screen) PeekRow(y int) *Row {
	if y < 0 || y >= len(s.rows) {
		return nil
	}
	return s.rows[y]
}

func (s *Screen) materialize(n int) {
	n = min(n, s.height)
	for len(s.rows) < n {
		s.rows = append(s.rows, mustRow(s.width, s.palette))
	}
}

func (s *Screen) newRow(blank Cell) *Row {
	r := mustRow(s.width, s.palette)
	if blank != NewCell() {
		r.Fill(0, s.width, blank)
	}
	return r
}

// MarkDirty extends the dirty range to cover rows [y0, y1).
func (s *Screen) MarkDirty(y0, y1 int) {
	y0 = max(y0, 0)
	y1 = min(y1, s.height)
	if y0 >= y1 {
		return
	}
	if s.dirtyEnd <= s.dirtyStart {
		s.dirtyStart, s.dirtyEnd = y0, y1
		return
	}
	s.dirtyStart = min(s.dirtyStart, y0)
	s.dirtyEnd = max(s.dirtyEnd, y1)
}

// takeDirty returns and resets the dirty row range. ok is false when nothing changed.
func (s *Screen) takeDirty() (start, end int, ok bool) {
	for y := 0; y < len(s.rows); y++ {
		if s.rows[y].Dirty() {
			s.MarkDirty(y, y+1)
			s.rows[y].ClearDirty()
		}
	}
	if s.dirtyEnd <= s.dirtyStart {
		return 0, 0, false
	}
	start, end = s.dirtyStart, s.dirtyEnd
	s.dirtyStart, s.dirtyEnd = 0, 0
	return start, end, true
}

// pendingScrollback returns rows evicted but not yet taken, oldest first.
func (s *Screen) pendingScrollback() []*Row {
	return s.pending
}

// takeScrollback returns rows evicted since the last call.
func (s *Screen) takeScrollback() []*Row {
	rows := s.pending
	s.pending = nil
	return rows
}

// ScrollUp moves rows [top, bottom) up by n. Rows leaving the top of the screen go to
// the pending scrollback queue when scrollback is kept. Vacated rows at the bottom are
// filled with blank.
func (s *Screen) ScrollUp(top, bottom, n int, blank Cell) {
	s.scrollUp(top, bottom, n, blank, true)
}

// DeleteLines removes n rows at top, pulling [top+n, bottom) up. Removed rows never
// reach scrollback.
func (s *Screen) DeleteLines(top, bottom, n int, blank Cell) {
	s.scrollUp(top, bottom, n, blank, false)
}

func (s *Screen) scrollUp(top, bottom, n int, blank Cell, keep bool) {
	top = max(top, 0)
	bottom = min(bottom, s.height)
	if n <= 0 || top >= bottom {
		return
	}
	n = min(n, bottom-top)
	s.materialize(bottom)

	if keep && top == 0 && s.scrollback {
		for i := 0; i < n; i++ {
			s.rows[i].ClearDirty()
			s.pending = append(s.pending, s.rows[i])
		}
		s.evicted += n
	}

	copy(s.rows[top:], s.rows[top+n:bottom])
	for y := bottom - n; y < bottom; y++ {
		s.rows[y] = s.newRow(blank)
	}
	s.MarkDirty(top, bottom)
}

// ScrollDown moves rows [top, bottom) down by n. Rows pushed past bottom are lost
// and the vacated rows at the top are filled with blank.
func (s *Screen) ScrollDown(top, bottom, n int, blank Cell) {
	top = max(top, 0)
	bottom = min(bottom, s.height)
	if n <= 0 || top >= bottom {
		return
	}
	n = min(n, bottom-top)
	s.materialize(bottom)

	copy(s.rows[top+n:bottom], s.rows[top:bottom-n])
	for y := top; y < top+n; y++ {
		s.rows[y] = s.newRow(blank)
	}
	s.MarkDirty(top, bottom)
}

// ClearRows fills rows [y0, y1) with blank and drops their wrap flags.
// Rows that were never materialized are left alone when blank is the default cell.
func (s *Screen) ClearRows(y0, y1 int, blank Cell) {
	y0 = max(y0, 0)
	y1 = min(y1, s.height)
	if y0 >= y1 {
		return
	}
	if blank == NewCell() {
		y1 = min(y1, len(s.rows))
	} else {
		s.materialize(y1)
	}
	for y := y0; y < y1; y++ {
		s.rows[y].Fill(0, s.width, blank)
		s.rows[y].SetWrapped(false)
	}
	s.MarkDirty(y0, y1)
}

// ClearRowRange fills columns [x0, x1) of row y with blank.
func (s *Screen) ClearRowRange(y, x0, x1 int, blank Cell) {
	row := s.Row(y)
	if row == nil {
		return
	}
	row.Fill(x0, x1, blank)
}

// FillWithE fills every cell with 'E' (DECALN alignment pattern).
func (s *Screen) FillWithE() {
	s.materialize(s.height)
	c := NewCell()
	c.CodePoint = 'E'
	for _, r := range s.rows {
		r.Fill(0, s.width, c)
		r.SetWrapped(false)
	}
	s.MarkDirty(0, s.height)
}

// SetPalette re-resolves the indexed colors of every row against p.
func (s *Screen) SetPalette(p *Palette) {
	s.palette = p
	for _, r := range s.rows {
		r.SetPalette(p)
	}
	s.MarkDirty(0, s.height)
}

// Resize re-wraps every row into the new width and adjusts the row count.
// Excess rows are dropped from below the cursor first, then from the top, where they
// go to scrollback if it is kept. Returns the adjusted cursor row.
func (s *Screen) Resize(height, width, cursorRow int) int {
	if width != s.width {
		for i, r := range s.rows {
			nr := mustRow(width, s.palette)
			nr.PasteFrom(r, 0)
			clipWideAtEdge(nr)
			nr.SetWrapped(r.Wrapped())
			s.rows[i] = nr
		}
	}

	for len(s.rows) > height && len(s.rows)-1 > cursorRow {
		s.rows = s.rows[:len(s.rows)-1]
	}
	if excess := len(s.rows) - height; excess > 0 {
		if s.scrollback {
			s.pending = append(s.pending, s.rows[:excess]...)
			s.evicted += excess
		}
		s.rows = append([]*Row(nil), s.rows[excess:]...)
		cursorRow -= excess
	}

	stops := make([]bool, width)
	for i := range stops {
		if i < len(s.tabStops) {
			stops[i] = s.tabStops[i]
		} else {
			stops[i] = i%8 == 0 && i > 0
		}
	}
	s.tabStops = stops

	s.height = height
	s.width = width
	s.dirtyStart, s.dirtyEnd = 0, 0
	s.MarkDirty(0, height)
	return clamp(cursorRow, 0, height-1)
}

// clipWideAtEdge blanks a glyph whose trailing columns fall past the end of r.
func clipWideAtEdge(r *Row) {
	for x := max(r.Width()-3, 0); x < r.Width(); x++ {
		if c := r.Get(x); x+c.Width() > r.Width() {
			r.fillBlank(x, r.Width())
			return
		}
	}
}

// ResetTabStops places a tab stop every 8 columns.
func (s *Screen) ResetTabStops() {
	s.tabStops = make([]bool, s.width)
	for i := 8; i < s.width; i += 8 {
		s.tabStops[i] = true
	}
}

// SetTabStop enables a tab stop at the specified column.
func (s *Screen) SetTabStop(col int) {
	if col >= 0 && col < s.width {
		s.tabStops[col] = true
	}
}

// ClearTabStop disables the tab stop at the specified column.
func (s *Screen) ClearTabStop(col int) {
	if col >= 0 && col < s.width {
		s.tabStops[col] = false
	}
}

// ClearAllTabStops disables all tab stops.
func (s *Screen) ClearAllTabStops() {
	for i := range s.tabStops {
		s.tabStops[i] = false
	}
}

// NextTabStop returns the column of the next tab stop after col.
// Returns the last column if there is none.
func (s *Screen) NextTabStop(col int) int {
	for i := col + 1; i < s.width; i++ {
		if s.tabStops[i] {
			return i
		}
	}
	return s.width - 1
}

// PrevTabStop returns the column of the previous tab stop before col.
// Returns 0 if there is none.
func (s *Screen) PrevTabStop(col int) int {
	for i := min(col, s.width) - 1; i > 0; i-- {
		if s.tabStops[i] {
			return i
		}
	}
	return 0
}

// LineContent returns the text of row y without trailing spaces.
func (s *Screen) LineContent(y int) string {
	r := s.PeekRow(y)
	if r == nil {
		return ""
	}
	return r.TrimmedString()
}
