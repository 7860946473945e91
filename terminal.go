package termengine

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/danielgatis/go-ansicode"
)

// TerminalMode is a bitmask of terminal behavior flags.
// Multiple modes can be active simultaneously.
type TerminalMode uint32

const (
	// ModeCursorKeys enables cursor key mode (DECCKM).
	ModeCursorKeys TerminalMode = 1 << iota
	// ModeInsert enables insert mode (characters shift right instead of overwrite).
	ModeInsert
	// ModeOrigin enables origin mode (cursor positioning relative to scroll region).
	ModeOrigin
	// ModeLineWrap enables automatic line wrapping at column boundaries.
	ModeLineWrap
	// ModeBlinkingCursor enables blinking cursor.
	ModeBlinkingCursor
	// ModeLineFeedNewLine makes line feed also move to column 0.
	ModeLineFeedNewLine
	// ModeShowCursor makes the cursor visible.
	ModeShowCursor
	// ModeReportX10Mouse enables X10 compatible press-only reporting.
	ModeReportX10Mouse
	// ModeReportMouseClicks enables mouse click reporting.
	ModeReportMouseClicks
	// ModeReportCellMouseMotion enables mouse motion reporting while a button is held.
	ModeReportCellMouseMotion
	// ModeReportAllMouseMotion enables reporting of all mouse motion events.
	ModeReportAllMouseMotion
	// ModeReportFocusInOut enables focus in/out event reporting.
	ModeReportFocusInOut
	// ModeUTF8Mouse enables UTF-8 mouse encoding.
	ModeUTF8Mouse
	// ModeSGRMouse enables SGR mouse encoding.
	ModeSGRMouse
	// ModeAlternateScroll turns wheel events into cursor keys on the alternate screen.
	ModeAlternateScroll
	// ModeBracketedPaste enables bracketed paste mode.
	ModeBracketedPaste
	// ModeKeypadApplication enables application keypad mode.
	ModeKeypadApplication
)

const mouseTrackingModes = ModeReportX10Mouse | ModeReportMouseClicks |
	ModeReportCellMouseMotion | ModeReportAllMouseMotion

const defaultModes = ModeLineWrap | ModeShowCursor | ModeAlternateScroll

const (
	// DEFAULT_ROWS is the default number of terminal rows.
	DEFAULT_ROWS = 24
	// DEFAULT_COLS is the default number of terminal columns.
	DEFAULT_COLS = 80

	// DefaultSliceBudget is the time one processing slice may spend parsing.
	DefaultSliceBudget = 12 * time.Millisecond
	// DefaultMaxBufferSize is the write queue capacity in bytes.
	DefaultMaxBufferSize = 1 << 20
)

// savedScreen holds the primary screen while the alternate screen is active.
type savedScreen struct {
	screen       *Screen
	cursor       Cursor
	savedCursor  *SavedCursor
	template     CellTemplate
	scrollTop    int
	scrollBottom int
}

// Terminal emulates a VT220-compatible terminal without a display.
// Output from the child is queued by Write and parsed in time-bounded slices
// driven by a Scheduler. Public accessors are safe to call from other goroutines.
type Terminal struct {
	mu sync.RWMutex

	// Dimensions
	rows         int
	cols         int
	cellWidthPx  int
	cellHeightPx int

	// Screens
	screen    *Screen
	saved     *savedScreen
	alternate bool

	palette     *Palette
	basePalette *Palette

	// Cursor
	cursor      *Cursor
	savedCursor *SavedCursor
	lastCursor  [2]int

	// Current cell attributes
	template CellTemplate

	// Charsets
	charsets      [4]Charset
	activeCharset CharsetIndex

	// Scrolling region, bottom exclusive
	scrollTop    int
	scrollBottom int

	// Modes
	modes        TerminalMode
	savedPrivate map[int]bool

	// Mouse
	mouseHeld MouseButton

	// Title
	title      string
	titleStack []string

	// Hyperlinks
	links       []ansicode.Hyperlink
	nextLink    int
	currentLink uint8

	lastPrintable rune

	// Shell integration
	promptMarks []PromptMark
	commandLine string
	workingDir  string

	// Parser and application mode
	parser     *Parser
	appHandler ApplicationModeHandler
	appCookie  string

	logger *slog.Logger
	debug  bool

	// Middleware for handler interception
	middleware *Middleware

	// Providers for external data/actions
	responseProvider         ResponseProvider
	bellProvider             BellProvider
	titleProvider            TitleProvider
	renderProvider           RenderProvider
	writeBufferProvider      WriteBufferProvider
	clipboardProvider        ClipboardProvider
	workingDirectoryProvider WorkingDirectoryProvider
	scrollbackStorage        ScrollbackProvider
	recordingProvider        RecordingProvider
	shellIntegrationProvider ShellIntegrationProvider

	// Write pacing
	scheduler     Scheduler
	sliceBudget   time.Duration
	maxBufferSize int
	queue         [][]byte
	queued        int
	scheduled     bool
	cancelSlice   func()
	sliceGen      int
	processing    sync.Mutex
	paused        bool
	closed        bool
}

// Option configures a Terminal during construction.
type Option func(*Terminal)

// WithSize sets the terminal dimensions.
// Values <= 0 are replaced with defaults (24x80).
func WithSize(rows, cols int) Option {
	if rows <= 0 {
		rows = DEFAULT_ROWS
	}
	if cols <= 0 {
		cols = DEFAULT_COLS
	}

	return func(t *Terminal) {
		t.rows = rows
		t.cols = cols
	}
}

// WithCellSize sets the pixel size of one cell, reported by XTWINOPS 14 and 16.
func WithCellSize(width, height int) Option {
	return func(t *Terminal) {
		t.cellWidthPx = max(width, 0)
		t.cellHeightPx = max(height, 0)
	}
}

// WithResponse sets the writer for terminal responses (e.g., cursor position reports).
// If nil, responses are discarded.
func WithResponse(p ResponseProvider) Option {
	return func(t *Terminal) {
		t.responseProvider = p
	}
}

// WithBell sets the handler for bell/beep events.
func WithBell(p BellProvider) Option {
	return func(t *Terminal) {
		t.bellProvider = p
	}
}

// WithTitle sets the handler for window title changes.
func WithTitle(p TitleProvider) Option {
	return func(t *Terminal) {
		t.titleProvider = p
	}
}

// WithRender sets the receiver of batched screen change notifications.
func WithRender(p RenderProvider) Option {
	return func(t *Terminal) {
		t.renderProvider = p
	}
}

// WithWriteBuffer sets the receiver of write queue capacity updates.
func WithWriteBuffer(p WriteBufferProvider) Option {
	return func(t *Terminal) {
		t.writeBufferProvider = p
	}
}

// WithClipboard sets the handler for clipboard read/write operations (OSC 52).
func WithClipboard(p ClipboardProvider) Option {
	return func(t *Terminal) {
		t.clipboardProvider = p
	}
}

// WithWorkingDirectory sets the receiver of working directory reports.
func WithWorkingDirectory(p WorkingDirectoryProvider) Option {
	return func(t *Terminal) {
		t.workingDirectoryProvider = p
	}
}

// WithScrollback sets the storage for scrollback lines.
// Lines scrolled off the top of the primary screen are pushed here.
func WithScrollback(storage ScrollbackProvider) Option {
	return func(t *Terminal) {
		t.scrollbackStorage = storage
	}
}

// WithRecording sets the handler for capturing raw input bytes before parsing.
func WithRecording(p RecordingProvider) Option {
	return func(t *Terminal) {
		t.recordingProvider = p
	}
}

// WithShellIntegration sets the handler for shell integration events (OSC 133 and 633).
func WithShellIntegration(p ShellIntegrationProvider) Option {
	return func(t *Terminal) {
		t.shellIntegrationProvider = p
	}
}

// WithMiddleware sets functions to intercept handler calls.
// Each middleware receives the original parameters and a next function to call the default implementation.
func WithMiddleware(mw *Middleware) Option {
	return func(t *Terminal) {
		if t.middleware == nil {
			t.middleware = &Middleware{}
		}
		t.middleware.Merge(mw)
	}
}

// WithScheduler sets the scheduler that drives write processing.
// Defaults to a SyncScheduler, which processes writes before Write returns.
func WithScheduler(s Scheduler) Option {
	return func(t *Terminal) {
		t.scheduler = s
	}
}

// WithSliceBudget sets how long one processing slice may run before yielding.
func WithSliceBudget(d time.Duration) Option {
	return func(t *Terminal) {
		if d > 0 {
			t.sliceBudget = d
		}
	}
}

// WithMaxBufferSize sets the write queue capacity used for backpressure reports.
func WithMaxBufferSize(n int) Option {
	return func(t *Terminal) {
		if n > 0 {
			t.maxBufferSize = n
		}
	}
}

// WithPalette sets the initial color palette. The palette is copied; resets
// (RIS, OSC 104, OSC 110-112) restore colors from it.
func WithPalette(p *Palette) Option {
	return func(t *Terminal) {
		if p != nil {
			base := *p
			t.basePalette = &base
		}
	}
}

// WithLogger sets the logger. Defaults to a logger that discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(t *Terminal) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithDebug enables debug logging of unhandled sequences.
func WithDebug(debug bool) Option {
	return func(t *Terminal) {
		t.debug = debug
	}
}

// WithApplicationCookie sets the cookie an application mode request must carry.
func WithApplicationCookie(cookie string) Option {
	return func(t *Terminal) {
		t.appCookie = cookie
	}
}

// New creates a terminal with the given options.
// Defaults to 24x80 with line wrap and cursor visible.
func New(opts ...Option) *Terminal {
	t := &Terminal{
		rows:                     DEFAULT_ROWS,
		cols:                     DEFAULT_COLS,
		palette:                  NewPalette(),
		savedPrivate:             make(map[int]bool),
		logger:                   slog.New(slog.NewTextHandler(io.Discard, nil)),
		responseProvider:         NoopResponse{},
		bellProvider:             NoopBell{},
		titleProvider:            NoopTitle{},
		renderProvider:           NoopRender{},
		writeBufferProvider:      NoopWriteBuffer{},
		clipboardProvider:        NoopClipboard{},
		workingDirectoryProvider: NoopWorkingDirectory{},
		scrollbackStorage:        NoopScrollback{},
		recordingProvider:        NoopRecording{},
		shellIntegrationProvider: NoopShellIntegration{},
		sliceBudget:              DefaultSliceBudget,
		maxBufferSize:            DefaultMaxBufferSize,
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.responseProvider == nil {
		t.responseProvider = NoopResponse{}
	}
	if t.scheduler == nil {
		t.scheduler = NewSyncScheduler()
	}
	if t.basePalette != nil {
		current := *t.basePalette
		t.palette = &current
	}

	t.screen = NewScreen(t.rows, t.cols, t.palette, true)
	t.cursor = NewCursor()
	t.template = NewCellTemplate()
	t.scrollTop = 0
	t.scrollBottom = t.rows
	t.modes = defaultModes
	t.lastCursor = [2]int{-1, -1}
	t.parser = newParser(t)

	return t
}

// Rows returns the terminal height in character rows.
func (t *Terminal) Rows() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rows
}

// Cols returns the terminal width in character columns.
func (t *Terminal) Cols() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cols
}

// Cell returns the cell at (row, col) on the active screen.
// ok is false if the coordinates are out of bounds.
func (t *Terminal) Cell(row, col int) (c Cell, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if row < 0 || row >= t.rows || col < 0 || col >= t.cols {
		return Cell{}, false
	}
	r := t.screen.PeekRow(row)
	if r == nil {
		c = NewCell()
		c.resolve(t.palette)
		return c, true
	}
	return r.Get(col), true
}

// SetCellImage tags a cell of the active screen with a tile of an image the embedder
// decoded and stores itself. An id of 0 removes the reference. Returns false if the
// position is out of bounds.
func (t *Terminal) SetCellImage(row, col int, id, tileX, tileY uint16) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if row < 0 || row >= t.rows || col < 0 || col >= t.cols {
		return false
	}
	t.screen.Row(row).SetImage(col, id, tileX, tileY)
	return true
}

// RowSnapshot returns a copy of a row of the active screen, or nil if out of bounds.
func (t *Terminal) RowSnapshot(row int) *Row {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.screen.Row(row)
	if r == nil {
		return nil
	}
	return r.Clone()
}

// MaterializedRows returns how many rows of the active screen have been allocated.
func (t *Terminal) MaterializedRows() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.screen.MaterializedRows()
}

// CursorPos returns the current cursor position (0-based).
func (t *Terminal) CursorPos() (row, col int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cursor.Row, min(t.cursor.Col, t.cols-1)
}

// CursorVisible returns true if the cursor is currently visible.
func (t *Terminal) CursorVisible() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.modes&ModeShowCursor != 0
}

// CursorStyle returns the current cursor rendering style.
func (t *Terminal) CursorStyle() CursorStyle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cursor.Style
}

// Title returns the current window title string.
func (t *Terminal) Title() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.title
}

// HasMode returns true if the specified mode flag is enabled.
func (t *Terminal) HasMode(mode TerminalMode) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.modes&mode != 0
}

// IsAlternateScreen returns true if the alternate screen is active.
func (t *Terminal) IsAlternateScreen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.alternate
}

// ScrollRegion returns the scrolling region as 0-based rows, bottom exclusive.
func (t *Terminal) ScrollRegion() (top, bottom int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.scrollTop, t.scrollBottom
}

// Palette returns a copy of the current color palette.
func (t *Terminal) Palette() Palette {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return *t.palette
}

// Hyperlink returns the hyperlink for a cell link id, or nil if unknown.
func (t *Terminal) Hyperlink(id uint8) *ansicode.Hyperlink {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if id == 0 || int(id) > len(t.links) {
		return nil
	}
	h := t.links[id-1]
	return &h
}

// LineContent returns the text of a row of the active screen without trailing spaces.
func (t *Terminal) LineContent(row int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.screen.LineContent(row)
}

// String returns the visible screen text, one line per row, trailing blank lines removed.
func (t *Terminal) String() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	lines := make([]string, t.rows)
	for y := 0; y < t.rows; y++ {
		lines[y] = t.screen.LineContent(y)
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// ScrollbackLen returns the number of lines stored in scrollback.
func (t *Terminal) ScrollbackLen() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.scrollbackStorage.Len()
}

// ScrollbackLine returns a scrollback row, where 0 is the oldest.
func (t *Terminal) ScrollbackLine(index int) *Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.scrollbackStorage.Line(index)
}

// ClearScrollback removes all stored scrollback lines.
func (t *Terminal) ClearScrollback() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scrollbackStorage.Clear()
}

// ParserState returns the name of the current parser state.
func (t *Terminal) ParserState() string {
	t.processing.Lock()
	defer t.processing.Unlock()
	return t.parser.State().String()
}

func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// effectiveRow returns the effective row considering origin mode.
func (t *Terminal) effectiveRow(row int) int {
	if t.modes&ModeOrigin != 0 {
		return clamp(row+t.scrollTop, t.scrollTop, t.scrollBottom-1)
	}
	return clamp(row, 0, t.rows-1)
}

// clearPendingWrapLocked pulls the cursor back from the pending-wrap column.
func (t *Terminal) clearPendingWrapLocked() {
	if t.cursor.Col >= t.cols {
		t.cursor.Col = t.cols - 1
	}
}

// blankLocked returns the cell erase operations paint with.
func (t *Terminal) blankLocked() Cell {
	return t.template.blank()
}

// linefeedLocked moves down one row, scrolling the region when at its bottom.
func (t *Terminal) linefeedLocked() {
	switch {
	case t.cursor.Row == t.scrollBottom-1:
		t.screen.ScrollUp(t.scrollTop, t.scrollBottom, 1, t.blankLocked())
	case t.cursor.Row < t.rows-1:
		t.cursor.Row++
	}
}

// writeResponse must be called without t.mu held; the provider may call back
// into the terminal.
func (t *Terminal) writeResponse(data []byte) {
	t.mu.RLock()
	provider := t.responseProvider
	t.mu.RUnlock()

	if _, err := provider.Write(data); err != nil {
		t.logger.Warn("response write failed", "error", err)
	}
}

func (t *Terminal) writeResponseString(s string) {
	t.writeResponse([]byte(s))
}

func (t *Terminal) logDebug(msg string, args ...any) {
	if t.debug {
		t.logger.Debug(msg, args...)
	}
}

// Resize changes the terminal dimensions and the cell pixel size.
// Rows are re-wrapped into the new width, the cursor is clamped and the scroll region
// is reset. A saved primary screen is discarded while the alternate screen is active.
// Non-positive rows or cols are ignored.
func (t *Terminal) Resize(rows, cols, cellWidthPx, cellHeightPx int) {
	if rows <= 0 || cols <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.cellWidthPx = max(cellWidthPx, 0)
	t.cellHeightPx = max(cellHeightPx, 0)

	if t.saved != nil {
		for _, line := range t.saved.screen.takeScrollback() {
			t.scrollbackStorage.Push(line)
		}
		t.saved = nil
	}

	t.clearPendingWrapLocked()
	t.cursor.Row = t.screen.Resize(rows, cols, t.cursor.Row)
	t.cursor.Col = clamp(t.cursor.Col, 0, cols-1)
	if t.savedCursor != nil {
		t.savedCursor.Row = clamp(t.savedCursor.Row, 0, rows-1)
		t.savedCursor.Col = clamp(t.savedCursor.Col, 0, cols-1)
	}

	t.rows = rows
	t.cols = cols
	t.scrollTop = 0
	t.scrollBottom = rows
}
