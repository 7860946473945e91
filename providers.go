package termengine

import (
	"io"
)

// ResponseProvider writes terminal responses (cursor reports, DECRQSS replies,
// encoded keys and mouse events) back to the child process.
// Typically an io.Writer connected to the PTY input.
type ResponseProvider = io.Writer

// NoopResponse discards all response data (useful when responses are not needed).
type NoopResponse struct{}

func (NoopResponse) Write(p []byte) (n int, err error) {
	return len(p), nil
}

// --- Bell Provider ---

// BellProvider handles bell/beep events triggered by BEL (0x07) characters.
type BellProvider interface {
	// Ring is called when a bell character is received.
	Ring()
}

// NoopBell ignores all bell events.
type NoopBell struct{}

func (NoopBell) Ring() {}

// --- Title Provider ---

// TitleProvider handles window title changes (OSC 0, 1, 2 and XTWINOPS 22/23).
type TitleProvider interface {
	// SetTitle is called when the title changes.
	SetTitle(title string)
	// PushTitle saves the current title to the stack.
	PushTitle()
	// PopTitle restores the title from the stack.
	PopTitle()
}

// NoopTitle ignores all title operations.
type NoopTitle struct{}

func (NoopTitle) SetTitle(title string) {}
func (NoopTitle) PushTitle()            {}
func (NoopTitle) PopTitle()             {}

// --- Render Provider ---

// RenderProvider receives batched screen change notifications.
type RenderProvider interface {
	// Render is called once per processed slice, or on Flush, when something changed.
	Render(ev RenderEvent)
}

// NoopRender ignores all render notifications.
type NoopRender struct{}

func (NoopRender) Render(ev RenderEvent) {}

// --- Write Buffer Provider ---

// WriteBufferProvider receives the remaining write queue capacity whenever it changes.
// Producers are expected to stop writing while the capacity is not positive.
type WriteBufferProvider interface {
	BufferSize(status BufferStatus)
}

// NoopWriteBuffer ignores buffer notifications.
type NoopWriteBuffer struct{}

func (NoopWriteBuffer) BufferSize(status BufferStatus) {}

// --- Clipboard Provider ---

// ClipboardProvider handles clipboard read/write operations (OSC 52).
type ClipboardProvider interface {
	// Read returns content from the specified clipboard ('c' for clipboard, 'p' for primary selection).
	Read(clipboard byte) string
	// Write stores content to the specified clipboard.
	Write(clipboard byte, data []byte)
}

// NoopClipboard ignores all clipboard operations.
type NoopClipboard struct{}

func (NoopClipboard) Read(clipboard byte) string        { return "" }
func (NoopClipboard) Write(clipboard byte, data []byte) {}

// --- Working Directory Provider ---

// WorkingDirectoryProvider is notified when the shell reports its directory (OSC 7, OSC 633 P Cwd=).
type WorkingDirectoryProvider interface {
	SetWorkingDirectory(uri string)
}

// NoopWorkingDirectory ignores directory changes.
type NoopWorkingDirectory struct{}

func (NoopWorkingDirectory) SetWorkingDirectory(uri string) {}

// --- Scrollback Provider ---

// ScrollbackProvider stores rows scrolled off the top of the primary screen.
// Implementations can use in-memory storage, disk, database, etc.
type ScrollbackProvider interface {
	// Push appends a row to scrollback. Oldest rows should be removed if MaxLines is exceeded.
	Push(line *Row)
	// Len returns the current number of stored rows.
	Len() int
	// Line returns the row at index, where 0 is the oldest. Returns nil if out of range.
	Line(index int) *Row
	// Clear removes all stored rows.
	Clear()
	// SetMaxLines sets the maximum capacity. Implementations should trim oldest rows if needed.
	SetMaxLines(max int)
	// MaxLines returns the current maximum capacity.
	MaxLines() int
}

// NoopScrollback discards all scrollback rows.
type NoopScrollback struct{}

func (NoopScrollback) Push(line *Row)       {}
func (NoopScrollback) Len() int             { return 0 }
func (NoopScrollback) Line(index int) *Row  { return nil }
func (NoopScrollback) Clear()               {}
func (NoopScrollback) SetMaxLines(max int)  {}
func (NoopScrollback) MaxLines() int        { return 0 }

// MemoryScrollback stores scrollback rows in memory with a configurable limit.
// When the limit is reached, the oldest rows are removed to make room for new ones.
//
// Example:
//
//	storage := termengine.NewMemoryScrollback(10000)
//	term := termengine.New(termengine.WithScrollback(storage))
type MemoryScrollback struct {
	lines    []*Row
	maxLines int
}

// NewMemoryScrollback creates a new in-memory scrollback buffer with the given capacity.
// If maxLines is 0, scrollback is unlimited (be careful with memory usage).
func NewMemoryScrollback(maxLines int) *MemoryScrollback {
	return &MemoryScrollback{
		lines:    make([]*Row, 0),
		maxLines: maxLines,
	}
}

// Push appends a row. If maxLines is exceeded, the oldest row is removed.
// Rows handed in by the terminal are already detached copies.
func (m *MemoryScrollback) Push(line *Row) {
	m.lines = append(m.lines, line)

	if m.maxLines > 0 && len(m.lines) > m.maxLines {
		excess := len(m.lines) - m.maxLines
		m.lines = m.lines[excess:]
	}
}

// Len returns the current number of stored rows.
func (m *MemoryScrollback) Len() int {
	return len(m.lines)
}

// Line returns the row at index, where 0 is the oldest row.
// Returns nil if index is out of range.
func (m *MemoryScrollback) Line(index int) *Row {
	if index < 0 || index >= len(m.lines) {
		return nil
	}
	return m.lines[index]
}

// Clear removes all stored rows.
func (m *MemoryScrollback) Clear() {
	m.lines = make([]*Row, 0)
}

// SetMaxLines sets the maximum capacity. If the current length exceeds the new max,
// the oldest rows are removed.
func (m *MemoryScrollback) SetMaxLines(max int) {
	m.maxLines = max
	if max > 0 && len(m.lines) > max {
		excess := len(m.lines) - max
		m.lines = m.lines[excess:]
	}
}

// MaxLines returns the current maximum capacity.
func (m *MemoryScrollback) MaxLines() int {
	return m.maxLines
}

// --- Recording Provider ---

// RecordingProvider captures raw input bytes before parsing for replay or debugging.
type RecordingProvider interface {
	// Record appends raw bytes to the recording.
	Record(data []byte)
	// Data returns all captured bytes since the last Clear call.
	Data() []byte
	// Clear discards all recorded data.
	Clear()
}

// NoopRecording discards all input recordings.
type NoopRecording struct{}

func (NoopRecording) Record([]byte) {}
func (NoopRecording) Data() []byte  { return nil }
func (NoopRecording) Clear()        {}

// MemoryRecording stores raw input bytes in memory for replay or debugging.
//
// Example:
//
//	recorder := termengine.NewMemoryRecording()
//	term := termengine.New(termengine.WithRecording(recorder))
//	// ... process terminal output ...
//	data := recorder.Data() // Get all recorded bytes
type MemoryRecording struct {
	data []byte
}

// NewMemoryRecording creates a new in-memory recording buffer.
func NewMemoryRecording() *MemoryRecording {
	return &MemoryRecording{
		data: make([]byte, 0),
	}
}

// Record appends raw bytes to the recording.
func (r *MemoryRecording) Record(data []byte) {
	r.data = append(r.data, data...)
}

// Data returns all captured bytes since the last Clear call.
func (r *MemoryRecording) Data() []byte {
	result := make([]byte, len(r.data))
	copy(result, r.data)
	return result
}

// Clear discards all recorded data.
func (r *MemoryRecording) Clear() {
	r.data = make([]byte, 0)
}

// Ensure implementations satisfy their interfaces
var _ ResponseProvider = NoopResponse{}
var _ BellProvider = (*NoopBell)(nil)
var _ TitleProvider = (*NoopTitle)(nil)
var _ RenderProvider = (*NoopRender)(nil)
var _ WriteBufferProvider = (*NoopWriteBuffer)(nil)
var _ ClipboardProvider = (*NoopClipboard)(nil)
var _ WorkingDirectoryProvider = (*NoopWorkingDirectory)(nil)
var _ ScrollbackProvider = (*NoopScrollback)(nil)
var _ ScrollbackProvider = (*MemoryScrollback)(nil)
var _ RecordingProvider = (*NoopRecording)(nil)
var _ RecordingProvider = (*MemoryRecording)(nil)
