package termengine

import (
	"encoding/base64"
	"fmt"
	"image/color"
	"strings"

	"github.com/danielgatis/go-ansicode"
)

// Input writes a character at the cursor position.
// Handles wide characters, combining marks, line wrapping, insert mode, and charset translation.
func (t *Terminal) Input(r rune) {
	if t.middleware != nil && t.middleware.Input != nil {
		t.middleware.Input(r, t.inputInternal)
		return
	}
	t.inputInternal(r)
}

func (t *Terminal) inputInternal(r rune) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r = t.charsets[t.activeCharset].Translate(r)
	width := runeWidth(r)
	switch {
	case width < 0 || width > t.cols:
		return
	case width == 0:
		t.combineLocked(r)
		return
	}

	if t.cursor.Col+width > t.cols {
		if t.modes&ModeLineWrap != 0 {
			row := t.screen.Row(t.cursor.Row)
			if t.cursor.Col < t.cols {
				t.clearWideLocked(row, t.cursor.Col, t.cols-t.cursor.Col)
				row.Fill(t.cursor.Col, t.cols, t.blankLocked())
			}
			row.SetWrapped(true)
			t.cursor.Col = 0
			t.linefeedLocked()
		} else {
			t.clearPendingWrapLocked()
			if t.cursor.Col+width > t.cols {
				row := t.screen.Row(t.cursor.Row)
				t.clearWideLocked(row, t.cursor.Col, 1)
				row.Set(t.cursor.Col, t.blankLocked())
				return
			}
		}
	}

	row := t.screen.Row(t.cursor.Row)
	col := t.cursor.Col
	if t.modes&ModeInsert != 0 {
		row.ShiftRight(col, width)
	}
	t.clearWideLocked(row, col, width)

	c := t.template.Cell
	c.CodePoint = r
	c.SetWidth(width)
	c.LinkID = t.currentLink
	row.Set(col, c)

	if width > 1 {
		spacer := t.template.Cell
		spacer.CodePoint = ' '
		spacer.SetWidth(1)
		spacer.LinkID = t.currentLink
		for i := 1; i < width; i++ {
			row.Set(col+i, spacer)
		}
	}

	t.lastPrintable = r
	t.cursor.Col += width
	if t.modes&ModeLineWrap == 0 && t.cursor.Col >= t.cols {
		t.cursor.Col = t.cols - 1
	}
}

// combineLocked folds a zero-width mark into the glyph left of the cursor.
func (t *Terminal) combineLocked(mark rune) {
	col := min(t.cursor.Col, t.cols) - 1
	if col < 0 {
		return
	}
	row := t.screen.Row(t.cursor.Row)
	if col > 0 {
		if prev := row.Get(col - 1); prev.IsWide() {
			col--
		}
	}
	c := row.Get(col)
	if r, ok := combineRune(c.CodePoint, mark); ok {
		row.SetCodePoint(col, r)
	}
}

// clearWideLocked blanks the halves of wide glyphs cut by overwriting [col, col+n).
func (t *Terminal) clearWideLocked(row *Row, col, n int) {
	blank := t.blankLocked()
	if col > 0 {
		if prev := row.Get(col - 1); prev.IsWide() {
			row.Set(col-1, blank)
		}
	}
	last := col + n - 1
	if last < t.cols-1 {
		if c := row.Get(last); c.IsWide() {
			row.Set(last+1, blank)
		}
	}
}

// RepeatPreceding writes the last printed character n more times (REP).
func (t *Terminal) RepeatPreceding(n int) {
	t.mu.RLock()
	r := t.lastPrintable
	t.mu.RUnlock()

	if r == 0 {
		return
	}
	for i := 0; i < n; i++ {
		t.Input(r)
	}
}

// Backspace moves the cursor one column left, stopping at column 0.
func (t *Terminal) Backspace() {
	if t.middleware != nil && t.middleware.Backspace != nil {
		t.middleware.Backspace(t.backspaceInternal)
		return
	}
	t.backspaceInternal()
}

func (t *Terminal) backspaceInternal() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearPendingWrapLocked()
	if t.cursor.Col > 0 {
		t.cursor.Col--
	}
}

// Bell triggers the bell provider.
func (t *Terminal) Bell() {
	if t.middleware != nil && t.middleware.Bell != nil {
		t.middleware.Bell(t.bellInternal)
		return
	}
	t.bellInternal()
}

func (t *Terminal) bellInternal() {
	t.bellProvider.Ring()
}

// CarriageReturn moves the cursor to column 0 of the current row.
func (t *Terminal) CarriageReturn() {
	if t.middleware != nil && t.middleware.CarriageReturn != nil {
		t.middleware.CarriageReturn(t.carriageReturnInternal)
		return
	}
	t.carriageReturnInternal()
}

func (t *Terminal) carriageReturnInternal() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cursor.Col = 0
}

// LineFeed moves the cursor down one row, scrolling at the bottom of the scroll region.
// In LNM mode the cursor also returns to column 0.
func (t *Terminal) LineFeed() {
	if t.middleware != nil && t.middleware.LineFeed != nil {
		t.middleware.LineFeed(t.lineFeedInternal)
		return
	}
	t.lineFeedInternal()
}

func (t *Terminal) lineFeedInternal() {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Explicit newline clears the wrapped flag for this line
	if row := t.screen.PeekRow(t.cursor.Row); row != nil {
		row.SetWrapped(false)
	}
	t.clearPendingWrapLocked()
	t.linefeedLocked()
	if t.modes&ModeLineFeedNewLine != 0 {
		t.cursor.Col = 0
	}
}

// Index moves the cursor down one row, scrolling at the bottom of the region (IND).
func (t *Terminal) Index() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearPendingWrapLocked()
	t.linefeedLocked()
}

// NextLine moves to column 0 of the next row, scrolling if needed (NEL).
func (t *Terminal) NextLine() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.linefeedLocked()
	t.cursor.Col = 0
}

// ReverseIndex moves the cursor up one row, scrolling down at the top of the scroll region.
func (t *Terminal) ReverseIndex() {
	if t.middleware != nil && t.middleware.ReverseIndex != nil {
		t.middleware.ReverseIndex(t.reverseIndexInternal)
		return
	}
	t.reverseIndexInternal()
}

func (t *Terminal) reverseIndexInternal() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearPendingWrapLocked()
	switch {
	case t.cursor.Row == t.scrollTop:
		t.screen.ScrollDown(t.scrollTop, t.scrollBottom, 1, t.blankLocked())
	case t.cursor.Row > 0:
		t.cursor.Row--
	}
}

// Tab moves the cursor forward to the nth next tab stop.
func (t *Terminal) Tab(n int) {
	if t.middleware != nil && t.middleware.Tab != nil {
		t.middleware.Tab(n, t.tabInternal)
		return
	}
	t.tabInternal(n)
}

func (t *Terminal) tabInternal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearPendingWrapLocked()
	for i := 0; i < n; i++ {
		t.cursor.Col = t.screen.NextTabStop(t.cursor.Col)
	}
}

// MoveBackwardTabs moves the cursor back to the nth previous tab stop (CBT).
func (t *Terminal) MoveBackwardTabs(n int) {
	if t.middleware != nil && t.middleware.MoveBackwardTabs != nil {
		t.middleware.MoveBackwardTabs(n, t.moveBackwardTabsInternal)
		return
	}
	t.moveBackwardTabsInternal(n)
}

func (t *Terminal) moveBackwardTabsInternal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearPendingWrapLocked()
	for i := 0; i < n; i++ {
		t.cursor.Col = t.screen.PrevTabStop(t.cursor.Col)
	}
}

// HorizontalTabSet enables a tab stop at the current column.
func (t *Terminal) HorizontalTabSet() {
	if t.middleware != nil && t.middleware.HorizontalTabSet != nil {
		t.middleware.HorizontalTabSet(t.horizontalTabSetInternal)
		return
	}
	t.horizontalTabSetInternal()
}

func (t *Terminal) horizontalTabSetInternal() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.screen.SetTabStop(min(t.cursor.Col, t.cols-1))
}

// ClearTabs clears the tab stop at the cursor or all tab stops.
func (t *Terminal) ClearTabs(mode ansicode.TabulationClearMode) {
	if t.middleware != nil && t.middleware.ClearTabs != nil {
		t.middleware.ClearTabs(mode, t.clearTabsInternal)
		return
	}
	t.clearTabsInternal(mode)
}

func (t *Terminal) clearTabsInternal(mode ansicode.TabulationClearMode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch mode {
	case ansicode.TabulationClearModeCurrent:
		t.screen.ClearTabStop(min(t.cursor.Col, t.cols-1))
	case ansicode.TabulationClearModeAll:
		t.screen.ClearAllTabStops()
	}
}

// ClearLine clears portions of the current line based on mode (right of cursor, left of cursor, or entire line).
func (t *Terminal) ClearLine(mode ansicode.LineClearMode) {
	if t.middleware != nil && t.middleware.ClearLine != nil {
		t.middleware.ClearLine(mode, t.clearLineInternal)
		return
	}
	t.clearLineInternal(mode)
}

func (t *Terminal) clearLineInternal(mode ansicode.LineClearMode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	col := min(t.cursor.Col, t.cols-1)
	blank := t.blankLocked()
	switch mode {
	case ansicode.LineClearModeRight:
		t.screen.ClearRowRange(t.cursor.Row, col, t.cols, blank)
	case ansicode.LineClearModeLeft:
		t.screen.ClearRowRange(t.cursor.Row, 0, col+1, blank)
	case ansicode.LineClearModeAll:
		t.screen.ClearRowRange(t.cursor.Row, 0, t.cols, blank)
	}
}

// ClearScreen clears portions of the screen based on mode (below cursor, above cursor, all, or scrollback).
func (t *Terminal) ClearScreen(mode ansicode.ClearMode) {
	if t.middleware != nil && t.middleware.ClearScreen != nil {
		t.middleware.ClearScreen(mode, t.clearScreenInternal)
		return
	}
	t.clearScreenInternal(mode)
}

func (t *Terminal) clearScreenInternal(mode ansicode.ClearMode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	col := min(t.cursor.Col, t.cols-1)
	blank := t.blankLocked()
	switch mode {
	case ansicode.ClearModeBelow:
		t.screen.ClearRowRange(t.cursor.Row, col, t.cols, blank)
		t.screen.ClearRows(t.cursor.Row+1, t.rows, blank)
	case ansicode.ClearModeAbove:
		t.screen.ClearRows(0, t.cursor.Row, blank)
		t.screen.ClearRowRange(t.cursor.Row, 0, col+1, blank)
	case ansicode.ClearModeAll:
		t.screen.ClearRows(0, t.rows, blank)
	case ansicode.ClearModeSaved:
		t.scrollbackStorage.Clear()
	}
}

// Goto moves the cursor to (row, col), 0-based. In origin mode row is relative to the scroll region.
func (t *Terminal) Goto(row, col int) {
	if t.middleware != nil && t.middleware.Goto != nil {
		t.middleware.Goto(row, col, t.gotoInternal)
		return
	}
	t.gotoInternal(row, col)
}

func (t *Terminal) gotoInternal(row, col int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cursor.Row = t.effectiveRow(row)
	t.cursor.Col = clamp(col, 0, t.cols-1)
}

// GotoLine moves the cursor to the specified row, keeping the current column.
func (t *Terminal) GotoLine(row int) {
	if t.middleware != nil && t.middleware.GotoLine != nil {
		t.middleware.GotoLine(row, t.gotoLineInternal)
		return
	}
	t.gotoLineInternal(row)
}

func (t *Terminal) gotoLineInternal(row int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearPendingWrapLocked()
	t.cursor.Row = t.effectiveRow(row)
}

// GotoCol moves the cursor to the specified column, keeping the current row.
func (t *Terminal) GotoCol(col int) {
	if t.middleware != nil && t.middleware.GotoCol != nil {
		t.middleware.GotoCol(col, t.gotoColInternal)
		return
	}
	t.gotoColInternal(col)
}

func (t *Terminal) gotoColInternal(col int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cursor.Col = clamp(col, 0, t.cols-1)
}

// MoveUp moves the cursor up n rows, stopping at the top margin when inside the scroll region.
func (t *Terminal) MoveUp(n int) {
	if t.middleware != nil && t.middleware.MoveUp != nil {
		t.middleware.MoveUp(n, t.moveUpInternal)
		return
	}
	t.moveUpInternal(n)
}

func (t *Terminal) moveUpInternal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.moveUpLocked(n)
}

func (t *Terminal) moveUpLocked(n int) {
	t.clearPendingWrapLocked()
	top := 0
	if t.cursor.Row >= t.scrollTop {
		top = t.scrollTop
	}
	t.cursor.Row = max(t.cursor.Row-n, top)
}

// MoveDown moves the cursor down n rows, stopping at the bottom margin when inside the scroll region.
func (t *Terminal) MoveDown(n int) {
	if t.middleware != nil && t.middleware.MoveDown != nil {
		t.middleware.MoveDown(n, t.moveDownInternal)
		return
	}
	t.moveDownInternal(n)
}

func (t *Terminal) moveDownInternal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.moveDownLocked(n)
}

func (t *Terminal) moveDownLocked(n int) {
	t.clearPendingWrapLocked()
	bottom := t.rows - 1
	if t.cursor.Row < t.scrollBottom {
		bottom = t.scrollBottom - 1
	}
	t.cursor.Row = min(t.cursor.Row+n, bottom)
}

// MoveForward moves the cursor right n columns, stopping at the last column.
func (t *Terminal) MoveForward(n int) {
	if t.middleware != nil && t.middleware.MoveForward != nil {
		t.middleware.MoveForward(n, t.moveForwardInternal)
		return
	}
	t.moveForwardInternal(n)
}

func (t *Terminal) moveForwardInternal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearPendingWrapLocked()
	t.cursor.Col = min(t.cursor.Col+n, t.cols-1)
}

// MoveBackward moves the cursor left n columns, stopping at column 0.
func (t *Terminal) MoveBackward(n int) {
	if t.middleware != nil && t.middleware.MoveBackward != nil {
		t.middleware.MoveBackward(n, t.moveBackwardInternal)
		return
	}
	t.moveBackwardInternal(n)
}

func (t *Terminal) moveBackwardInternal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearPendingWrapLocked()
	t.cursor.Col = max(t.cursor.Col-n, 0)
}

// MoveUpCr moves the cursor up n rows and to column 0 (CPL).
func (t *Terminal) MoveUpCr(n int) {
	if t.middleware != nil && t.middleware.MoveUpCr != nil {
		t.middleware.MoveUpCr(n, t.moveUpCrInternal)
		return
	}
	t.moveUpCrInternal(n)
}

func (t *Terminal) moveUpCrInternal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.moveUpLocked(n)
	t.cursor.Col = 0
}

// MoveDownCr moves the cursor down n rows and to column 0 (CNL).
func (t *Terminal) MoveDownCr(n int) {
	if t.middleware != nil && t.middleware.MoveDownCr != nil {
		t.middleware.MoveDownCr(n, t.moveDownCrInternal)
		return
	}
	t.moveDownCrInternal(n)
}

func (t *Terminal) moveDownCrInternal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.moveDownLocked(n)
	t.cursor.Col = 0
}

// InsertBlank inserts n blank cells at the cursor, shifting the rest of the line right.
func (t *Terminal) InsertBlank(n int) {
	if t.middleware != nil && t.middleware.InsertBlank != nil {
		t.middleware.InsertBlank(n, t.insertBlankInternal)
		return
	}
	t.insertBlankInternal(n)
}

func (t *Terminal) insertBlankInternal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearPendingWrapLocked()
	row := t.screen.Row(t.cursor.Row)
	col := t.cursor.Col
	n = min(n, t.cols-col)
	row.ShiftRight(col, n)
	row.Fill(col, col+n, t.blankLocked())
}

// DeleteChars removes n cells at the cursor, shifting the rest of the line left.
func (t *Terminal) DeleteChars(n int) {
	if t.middleware != nil && t.middleware.DeleteChars != nil {
		t.middleware.DeleteChars(n, t.deleteCharsInternal)
		return
	}
	t.deleteCharsInternal(n)
}

func (t *Terminal) deleteCharsInternal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearPendingWrapLocked()
	row := t.screen.Row(t.cursor.Row)
	n = min(n, t.cols-t.cursor.Col)
	row.ShiftLeft(t.cursor.Col, n)
	row.Fill(t.cols-n, t.cols, t.blankLocked())
}

// EraseChars blanks n cells starting at the cursor without shifting.
func (t *Terminal) EraseChars(n int) {
	if t.middleware != nil && t.middleware.EraseChars != nil {
		t.middleware.EraseChars(n, t.eraseCharsInternal)
		return
	}
	t.eraseCharsInternal(n)
}

func (t *Terminal) eraseCharsInternal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	col := min(t.cursor.Col, t.cols-1)
	t.screen.ClearRowRange(t.cursor.Row, col, col+n, t.blankLocked())
}

// InsertBlankLines inserts n blank lines at the cursor row inside the scroll region.
func (t *Terminal) InsertBlankLines(n int) {
	if t.middleware != nil && t.middleware.InsertBlankLines != nil {
		t.middleware.InsertBlankLines(n, t.insertBlankLinesInternal)
		return
	}
	t.insertBlankLinesInternal(n)
}

func (t *Terminal) insertBlankLinesInternal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cursor.Row < t.scrollTop || t.cursor.Row >= t.scrollBottom {
		return
	}
	t.screen.ScrollDown(t.cursor.Row, t.scrollBottom, n, t.blankLocked())
	t.cursor.Col = 0
}

// DeleteLines removes n lines at the cursor row inside the scroll region.
func (t *Terminal) DeleteLines(n int) {
	if t.middleware != nil && t.middleware.DeleteLines != nil {
		t.middleware.DeleteLines(n, t.deleteLinesInternal)
		return
	}
	t.deleteLinesInternal(n)
}

func (t *Terminal) deleteLinesInternal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cursor.Row < t.scrollTop || t.cursor.Row >= t.scrollBottom {
		return
	}
	t.screen.DeleteLines(t.cursor.Row, t.scrollBottom, n, t.blankLocked())
	t.cursor.Col = 0
}

// ScrollUp scrolls the scroll region up by n lines (SU).
func (t *Terminal) ScrollUp(n int) {
	if t.middleware != nil && t.middleware.ScrollUp != nil {
		t.middleware.ScrollUp(n, t.scrollUpInternal)
		return
	}
	t.scrollUpInternal(n)
}

func (t *Terminal) scrollUpInternal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.screen.ScrollUp(t.scrollTop, t.scrollBottom, n, t.blankLocked())
}

// ScrollDown scrolls the scroll region down by n lines (SD).
func (t *Terminal) ScrollDown(n int) {
	if t.middleware != nil && t.middleware.ScrollDown != nil {
		t.middleware.ScrollDown(n, t.scrollDownInternal)
		return
	}
	t.scrollDownInternal(n)
}

func (t *Terminal) scrollDownInternal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.screen.ScrollDown(t.scrollTop, t.scrollBottom, n, t.blankLocked())
}

// SetScrollingRegion sets the scroll region from 1-based inclusive top and bottom rows
// and homes the cursor. Requests where top is not above bottom are ignored.
func (t *Terminal) SetScrollingRegion(top, bottom int) {
	if t.middleware != nil && t.middleware.SetScrollingRegion != nil {
		t.middleware.SetScrollingRegion(top, bottom, t.setScrollingRegionInternal)
		return
	}
	t.setScrollingRegionInternal(top, bottom)
}

func (t *Terminal) setScrollingRegionInternal(top, bottom int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	top--
	bottom--
	if top < 0 || top >= bottom || bottom >= t.rows {
		t.logDebug("rejected scrolling region", "top", top+1, "bottom", bottom+1)
		return
	}

	t.scrollTop = top
	t.scrollBottom = bottom + 1
	t.cursor.Row = t.effectiveRow(0)
	t.cursor.Col = 0
}

// SetMode enables one or more mode flags.
func (t *Terminal) SetMode(mode TerminalMode) {
	if t.middleware != nil && t.middleware.SetMode != nil {
		t.middleware.SetMode(mode, t.setModeInternal)
		return
	}
	t.setModeInternal(mode)
}

func (t *Terminal) setModeInternal(mode TerminalMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setModeLocked(mode)
}

func (t *Terminal) setModeLocked(mode TerminalMode) {
	if mode&mouseTrackingModes != 0 {
		t.modes &^= mouseTrackingModes
		t.mouseHeld = MouseButtonNone
	}
	t.modes |= mode

	if mode&ModeShowCursor != 0 {
		t.cursor.Visible = true
	}
	if mode&ModeOrigin != 0 {
		t.cursor.Row = t.scrollTop
		t.cursor.Col = 0
	}
}

// UnsetMode disables one or more mode flags.
func (t *Terminal) UnsetMode(mode TerminalMode) {
	if t.middleware != nil && t.middleware.UnsetMode != nil {
		t.middleware.UnsetMode(mode, t.unsetModeInternal)
		return
	}
	t.unsetModeInternal(mode)
}

func (t *Terminal) unsetModeInternal(mode TerminalMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unsetModeLocked(mode)
}

func (t *Terminal) unsetModeLocked(mode TerminalMode) {
	t.modes &^= mode

	if mode&ModeShowCursor != 0 {
		t.cursor.Visible = false
	}
	if mode&ModeOrigin != 0 {
		t.cursor.Row = 0
		t.cursor.Col = 0
	}
	if mode&ModeLineWrap != 0 {
		t.clearPendingWrapLocked()
	}
}

// SetAlternateScreen switches between the primary and alternate screens.
// With saveCursor the cursor is saved on entry and restored on exit (mode 1049).
func (t *Terminal) SetAlternateScreen(enabled, saveCursor bool) {
	if t.middleware != nil && t.middleware.SetAlternateScreen != nil {
		t.middleware.SetAlternateScreen(enabled, saveCursor, t.setAlternateScreenInternal)
		return
	}
	t.setAlternateScreenInternal(enabled, saveCursor)
}

func (t *Terminal) setAlternateScreenInternal(enabled, saveCursor bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if enabled {
		t.enterAlternateScreenLocked(saveCursor)
	} else {
		t.exitAlternateScreenLocked(saveCursor)
	}
}

func (t *Terminal) enterAlternateScreenLocked(saveCursor bool) {
	if t.alternate {
		return
	}
	if saveCursor {
		t.saveCursorLocked()
	}

	prev := t.screen.MaterializedRows()
	t.saved = &savedScreen{
		screen:       t.screen,
		cursor:       *t.cursor,
		savedCursor:  t.savedCursor,
		template:     t.template,
		scrollTop:    t.scrollTop,
		scrollBottom: t.scrollBottom,
	}
	t.alternate = true

	t.screen = NewScreen(t.rows, t.cols, t.palette, false)
	t.screen.materialize(prev)
	t.cursor.Row = 0
	t.cursor.Col = 0
	t.scrollTop = 0
	t.scrollBottom = t.rows
	t.template = NewCellTemplate()
	t.modes &^= ModeInsert | ModeOrigin
	t.mouseHeld = MouseButtonNone
}

func (t *Terminal) exitAlternateScreenLocked(restoreCursor bool) {
	if !t.alternate {
		return
	}
	t.alternate = false

	s := t.saved
	t.saved = nil
	if s == nil {
		// The saved primary screen is dropped by Resize.
		t.screen = NewScreen(t.rows, t.cols, t.palette, true)
		t.cursor.Row = 0
		t.cursor.Col = 0
		t.template = NewCellTemplate()
		return
	}

	t.screen = s.screen
	t.screen.SetPalette(t.palette)
	t.cursor.Row = s.cursor.Row
	t.cursor.Col = s.cursor.Col
	t.savedCursor = s.savedCursor
	t.template = s.template
	t.scrollTop = s.scrollTop
	t.scrollBottom = s.scrollBottom
	if restoreCursor {
		t.restoreCursorLocked()
	}
}

// SaveCursorPosition saves cursor position, attributes, origin mode, and charset state (DECSC).
func (t *Terminal) SaveCursorPosition() {
	if t.middleware != nil && t.middleware.SaveCursorPosition != nil {
		t.middleware.SaveCursorPosition(t.saveCursorPositionInternal)
		return
	}
	t.saveCursorPositionInternal()
}

func (t *Terminal) saveCursorPositionInternal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.saveCursorLocked()
}

func (t *Terminal) saveCursorLocked() {
	t.savedCursor = &SavedCursor{
		Row:          t.cursor.Row,
		Col:          t.cursor.Col,
		Attrs:        t.template,
		OriginMode:   t.modes&ModeOrigin != 0,
		CharsetIndex: t.activeCharset,
		Charsets:     t.charsets,
	}
}

// RestoreCursorPosition restores the state saved by SaveCursorPosition (DECRC).
// Without a saved state the cursor moves home with default attributes.
func (t *Terminal) RestoreCursorPosition() {
	if t.middleware != nil && t.middleware.RestoreCursorPosition != nil {
		t.middleware.RestoreCursorPosition(t.restoreCursorPositionInternal)
		return
	}
	t.restoreCursorPositionInternal()
}

func (t *Terminal) restoreCursorPositionInternal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.restoreCursorLocked()
}

func (t *Terminal) restoreCursorLocked() {
	saved := t.savedCursor
	if saved == nil {
		saved = &SavedCursor{Attrs: NewCellTemplate()}
	}

	t.cursor.Row = clamp(saved.Row, 0, t.rows-1)
	t.cursor.Col = clamp(saved.Col, 0, t.cols)
	t.template = saved.Attrs
	if saved.OriginMode {
		t.modes |= ModeOrigin
	} else {
		t.modes &^= ModeOrigin
	}
	t.activeCharset = saved.CharsetIndex
	t.charsets = saved.Charsets
}

// SetCursorStyle changes the cursor rendering style (DECSCUSR).
func (t *Terminal) SetCursorStyle(style CursorStyle) {
	if t.middleware != nil && t.middleware.SetCursorStyle != nil {
		t.middleware.SetCursorStyle(style, t.setCursorStyleInternal)
		return
	}
	t.setCursorStyleInternal(style)
}

func (t *Terminal) setCursorStyleInternal(style CursorStyle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cursor.Style = style
	switch style {
	case CursorStyleBlinkingBlock, CursorStyleBlinkingUnderline, CursorStyleBlinkingBar:
		t.modes |= ModeBlinkingCursor
	default:
		t.modes &^= ModeBlinkingCursor
	}
}

// SetActiveCharset selects which of G0-G3 is used for printing (SI, SO, LS2, LS3).
func (t *Terminal) SetActiveCharset(index CharsetIndex) {
	if t.middleware != nil && t.middleware.SetActiveCharset != nil {
		t.middleware.SetActiveCharset(index, t.setActiveCharsetInternal)
		return
	}
	t.setActiveCharsetInternal(index)
}

func (t *Terminal) setActiveCharsetInternal(index CharsetIndex) {
	if index < CharsetIndexG0 || index > CharsetIndexG3 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activeCharset = index
}

// ConfigureCharset binds a character set table to one of G0-G3.
func (t *Terminal) ConfigureCharset(index CharsetIndex, charset Charset) {
	if t.middleware != nil && t.middleware.ConfigureCharset != nil {
		t.middleware.ConfigureCharset(index, charset, t.configureCharsetInternal)
		return
	}
	t.configureCharsetInternal(index, charset)
}

func (t *Terminal) configureCharsetInternal(index CharsetIndex, charset Charset) {
	if index < CharsetIndexG0 || index > CharsetIndexG3 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.charsets[index] = charset
}

// Decaln fills the screen with 'E' for alignment testing and resets margins.
func (t *Terminal) Decaln() {
	if t.middleware != nil && t.middleware.Decaln != nil {
		t.middleware.Decaln(t.decalnInternal)
		return
	}
	t.decalnInternal()
}

func (t *Terminal) decalnInternal() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.screen.FillWithE()
	t.scrollTop = 0
	t.scrollBottom = t.rows
	t.cursor.Row = 0
	t.cursor.Col = 0
}

// ResetState performs a full reset (RIS): screen, modes, margins, charsets, palette, and title stack.
func (t *Terminal) ResetState() {
	if t.middleware != nil && t.middleware.ResetState != nil {
		t.middleware.ResetState(t.resetStateInternal)
		return
	}
	t.resetStateInternal()
}

func (t *Terminal) resetStateInternal() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.alternate {
		t.saved = nil
		t.alternate = false
	}
	t.palette.ResetAll(t.basePalette)
	t.screen = NewScreen(t.rows, t.cols, t.palette, true)

	*t.cursor = *NewCursor()
	t.savedCursor = nil
	t.template = NewCellTemplate()
	t.scrollTop = 0
	t.scrollBottom = t.rows
	t.modes = defaultModes
	t.savedPrivate = make(map[int]bool)
	t.mouseHeld = MouseButtonNone

	t.charsets = [4]Charset{}
	t.activeCharset = CharsetIndexG0

	t.titleStack = nil
	t.links = nil
	t.nextLink = 0
	t.currentLink = 0
	t.lastPrintable = 0
}

// SoftReset performs DECSTR: modes, margins, attributes, and charsets return to defaults
// while screen content is kept.
func (t *Terminal) SoftReset() {
	if t.middleware != nil && t.middleware.SoftReset != nil {
		t.middleware.SoftReset(t.softResetInternal)
		return
	}
	t.softResetInternal()
}

func (t *Terminal) softResetInternal() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.modes &^= ModeInsert | ModeOrigin | ModeCursorKeys | ModeKeypadApplication
	t.modes |= ModeLineWrap | ModeShowCursor
	t.cursor.Visible = true
	t.clearPendingWrapLocked()
	t.scrollTop = 0
	t.scrollBottom = t.rows
	t.template = NewCellTemplate()
	t.charsets = [4]Charset{}
	t.activeCharset = CharsetIndexG0
	t.savedCursor = nil
	t.currentLink = 0
}

// DeviceStatus answers DSR 5 (status) and DSR 6 (cursor position report).
func (t *Terminal) DeviceStatus(n int) {
	if t.middleware != nil && t.middleware.DeviceStatus != nil {
		t.middleware.DeviceStatus(n, t.deviceStatusInternal)
		return
	}
	t.deviceStatusInternal(n)
}

func (t *Terminal) deviceStatusInternal(n int) {
	t.mu.RLock()
	row, col := t.reportPositionLocked()
	t.mu.RUnlock()

	var response string
	switch n {
	case 5:
		response = "\x1b[0n"
	case 6:
		// Cursor position report (1-based)
		response = fmt.Sprintf("\x1b[%d;%dR", row+1, col+1)
	}

	if response != "" {
		t.writeResponseString(response)
	}
}

// reportPositionLocked returns the cursor position as reported to the child:
// relative to the scroll region in origin mode, never on the pending-wrap column.
func (t *Terminal) reportPositionLocked() (row, col int) {
	row = t.cursor.Row
	if t.modes&ModeOrigin != 0 {
		row -= t.scrollTop
	}
	return row, min(t.cursor.Col, t.cols-1)
}

// IdentifyTerminal answers primary (DA1) or secondary (DA2, b == '>') device attributes.
func (t *Terminal) IdentifyTerminal(b byte) {
	if t.middleware != nil && t.middleware.IdentifyTerminal != nil {
		t.middleware.IdentifyTerminal(b, t.identifyTerminalInternal)
		return
	}
	t.identifyTerminalInternal(b)
}

func (t *Terminal) identifyTerminalInternal(b byte) {
	if b == '>' {
		t.writeResponseString("\x1b[>0;276;0c")
		return
	}
	// Default: identify as VT220
	t.writeResponseString("\x1b[?62;c")
}

// TextAreaSizeChars reports the text area size in characters (XTWINOPS 18).
func (t *Terminal) TextAreaSizeChars() {
	if t.middleware != nil && t.middleware.TextAreaSizeChars != nil {
		t.middleware.TextAreaSizeChars(t.textAreaSizeCharsInternal)
		return
	}
	t.textAreaSizeCharsInternal()
}

func (t *Terminal) textAreaSizeCharsInternal() {
	t.mu.RLock()
	rows, cols := t.rows, t.cols
	t.mu.RUnlock()

	t.writeResponseString(fmt.Sprintf("\x1b[8;%d;%dt", rows, cols))
}

// TextAreaSizePixels reports the text area size in pixels (XTWINOPS 14).
func (t *Terminal) TextAreaSizePixels() {
	if t.middleware != nil && t.middleware.TextAreaSizePixels != nil {
		t.middleware.TextAreaSizePixels(t.textAreaSizePixelsInternal)
		return
	}
	t.textAreaSizePixelsInternal()
}

func (t *Terminal) textAreaSizePixelsInternal() {
	t.mu.RLock()
	h := t.rows * t.cellHeightPx
	w := t.cols * t.cellWidthPx
	t.mu.RUnlock()

	t.writeResponseString(fmt.Sprintf("\x1b[4;%d;%dt", h, w))
}

// CellSizePixels reports the size of one cell in pixels (XTWINOPS 16).
func (t *Terminal) CellSizePixels() {
	if t.middleware != nil && t.middleware.CellSizePixels != nil {
		t.middleware.CellSizePixels(t.cellSizePixelsInternal)
		return
	}
	t.cellSizePixelsInternal()
}

func (t *Terminal) cellSizePixelsInternal() {
	t.mu.RLock()
	h, w := t.cellHeightPx, t.cellWidthPx
	t.mu.RUnlock()

	t.writeResponseString(fmt.Sprintf("\x1b[6;%d;%dt", h, w))
}

// SetTitle sets the window title and notifies the title provider.
func (t *Terminal) SetTitle(title string) {
	if t.middleware != nil && t.middleware.SetTitle != nil {
		t.middleware.SetTitle(title, t.setTitleInternal)
		return
	}
	t.setTitleInternal(title)
}

func (t *Terminal) setTitleInternal(title string) {
	t.mu.Lock()
	t.title = title
	t.mu.Unlock()

	t.titleProvider.SetTitle(title)
}

// PushTitle saves the current title on the title stack (XTWINOPS 22).
func (t *Terminal) PushTitle() {
	if t.middleware != nil && t.middleware.PushTitle != nil {
		t.middleware.PushTitle(t.pushTitleInternal)
		return
	}
	t.pushTitleInternal()
}

const maxTitleStack = 4096

func (t *Terminal) pushTitleInternal() {
	t.mu.Lock()
	if len(t.titleStack) >= maxTitleStack {
		t.titleStack = t.titleStack[1:]
	}
	t.titleStack = append(t.titleStack, t.title)
	t.mu.Unlock()

	t.titleProvider.PushTitle()
}

// PopTitle restores the title from the title stack (XTWINOPS 23).
func (t *Terminal) PopTitle() {
	if t.middleware != nil && t.middleware.PopTitle != nil {
		t.middleware.PopTitle(t.popTitleInternal)
		return
	}
	t.popTitleInternal()
}

func (t *Terminal) popTitleInternal() {
	t.mu.Lock()
	if len(t.titleStack) == 0 {
		t.mu.Unlock()
		return
	}
	title := t.titleStack[len(t.titleStack)-1]
	t.titleStack = t.titleStack[:len(t.titleStack)-1]
	t.title = title
	t.mu.Unlock()

	t.titleProvider.PopTitle()
	t.titleProvider.SetTitle(title)
}

// ClipboardLoad answers an OSC 52 query with the clipboard content, base64 encoded.
func (t *Terminal) ClipboardLoad(clipboard byte, terminator string) {
	if t.middleware != nil && t.middleware.ClipboardLoad != nil {
		t.middleware.ClipboardLoad(clipboard, terminator, t.clipboardLoadInternal)
		return
	}
	t.clipboardLoadInternal(clipboard, terminator)
}

func (t *Terminal) clipboardLoadInternal(clipboard byte, terminator string) {
	content := t.clipboardProvider.Read(clipboard)
	if content == "" {
		return
	}
	// OSC 52 response: OSC 52 ; clipboard ; base64-data ST
	encoded := base64.StdEncoding.EncodeToString([]byte(content))
	t.writeResponseString("\x1b]52;" + string(clipboard) + ";" + encoded + terminator)
}

// ClipboardStore writes data to the clipboard provider (OSC 52).
func (t *Terminal) ClipboardStore(clipboard byte, data []byte) {
	if t.middleware != nil && t.middleware.ClipboardStore != nil {
		t.middleware.ClipboardStore(clipboard, data, t.clipboardStoreInternal)
		return
	}
	t.clipboardStoreInternal(clipboard, data)
}

func (t *Terminal) clipboardStoreInternal(clipboard byte, data []byte) {
	t.clipboardProvider.Write(clipboard, data)
}

// SetHyperlink starts (non-nil with a URI) or ends (nil) a hyperlink span (OSC 8).
// Cells written while a link is active carry its link id.
func (t *Terminal) SetHyperlink(hyperlink *ansicode.Hyperlink) {
	if t.middleware != nil && t.middleware.SetHyperlink != nil {
		t.middleware.SetHyperlink(hyperlink, t.setHyperlinkInternal)
		return
	}
	t.setHyperlinkInternal(hyperlink)
}

const maxLinks = 255

func (t *Terminal) setHyperlinkInternal(hyperlink *ansicode.Hyperlink) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if hyperlink == nil || hyperlink.URI == "" {
		t.currentLink = 0
		return
	}

	for i, h := range t.links {
		if h.ID == hyperlink.ID && h.URI == hyperlink.URI {
			t.currentLink = uint8(i + 1)
			return
		}
	}

	if len(t.links) < maxLinks {
		t.links = append(t.links, *hyperlink)
		t.currentLink = uint8(len(t.links))
		return
	}
	// Table is full: recycle slots in order.
	t.links[t.nextLink] = *hyperlink
	t.currentLink = uint8(t.nextLink + 1)
	t.nextLink = (t.nextLink + 1) % maxLinks
}

// SetColor replaces a palette slot (OSC 4, 10, 11, 12) and recolors the screen.
func (t *Terminal) SetColor(index int, c color.RGBA) {
	if t.middleware != nil && t.middleware.SetColor != nil {
		t.middleware.SetColor(index, c, t.setColorInternal)
		return
	}
	t.setColorInternal(index, c)
}

func (t *Terminal) setColorInternal(index int, c color.RGBA) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.palette.Set(index, c) {
		t.reapplyPaletteLocked()
	}
}

// ResetColor restores a palette slot to its configured value (OSC 104, 110, 111, 112).
// A negative index restores the whole 256-color table.
func (t *Terminal) ResetColor(index int) {
	if t.middleware != nil && t.middleware.ResetColor != nil {
		t.middleware.ResetColor(index, t.resetColorInternal)
		return
	}
	t.resetColorInternal(index)
}

func (t *Terminal) resetColorInternal(index int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 {
		base := t.basePalette
		if base == nil {
			base = NewPalette()
		}
		t.palette.Colors = base.Colors
	} else {
		t.palette.Reset(index, t.basePalette)
	}
	t.reapplyPaletteLocked()
}

func (t *Terminal) reapplyPaletteLocked() {
	t.screen.SetPalette(t.palette)
	if t.saved != nil {
		t.saved.screen.SetPalette(t.palette)
	}
}

// QueryColor answers a color query. code is the OSC number the reply is sent under
// (4 for palette entries, 10-12 for the dynamic colors).
func (t *Terminal) QueryColor(code, index int, terminator string) {
	t.mu.RLock()
	c := t.palette.Resolve(uint16(index))
	t.mu.RUnlock()

	if code == 4 {
		t.writeResponseString(fmt.Sprintf("\x1b]4;%d;%s%s", index, FormatColorSpec(c), terminator))
		return
	}
	t.writeResponseString(fmt.Sprintf("\x1b]%d;%s%s", code, FormatColorSpec(c), terminator))
}

// SetWorkingDirectory stores the current working directory (OSC 7).
func (t *Terminal) SetWorkingDirectory(uri string) {
	if t.middleware != nil && t.middleware.SetWorkingDirectory != nil {
		t.middleware.SetWorkingDirectory(uri, t.setWorkingDirectoryInternal)
		return
	}
	t.setWorkingDirectoryInternal(uri)
}

func (t *Terminal) setWorkingDirectoryInternal(uri string) {
	t.mu.Lock()
	t.workingDir = uri
	t.mu.Unlock()

	t.workingDirectoryProvider.SetWorkingDirectory(uri)
}

// WorkingDirectory returns the current working directory URI (OSC 7).
func (t *Terminal) WorkingDirectory() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.workingDir
}

// WorkingDirectoryPath extracts the path from the working directory URI.
// Plain paths (as sent by OSC 633 P Cwd=) are returned unchanged.
func (t *Terminal) WorkingDirectoryPath() string {
	t.mu.RLock()
	uri := t.workingDir
	t.mu.RUnlock()

	if strings.HasPrefix(uri, "/") {
		return uri
	}

	// Parse file://hostname/path
	rest, ok := strings.CutPrefix(uri, "file://")
	if !ok || rest == "" {
		return ""
	}
	slashIdx := strings.IndexByte(rest, '/')
	if slashIdx < 0 {
		return ""
	}
	return rest[slashIdx:]
}
