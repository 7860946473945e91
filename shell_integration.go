package termengine

import (
	"strconv"
	"strings"

	"github.com/danielgatis/go-ansicode"
)

// PromptMark stores information about a shell integration mark (OSC 133 / OSC 633).
// Used for prompt-based navigation in scrollback.
type PromptMark struct {
	// Type is the mark type (PromptStart, CommandStart, CommandExecuted, CommandFinished).
	Type ansicode.ShellIntegrationMark
	// Row is the absolute row position: rows evicted to scrollback plus the screen row.
	Row int
	// ExitCode is the command exit code (only valid for CommandFinished marks, -1 otherwise).
	ExitCode int
}

// ShellIntegrationProvider handles shell integration events (OSC 133 and OSC 633).
// Pending render state is flushed before each call, so a renderer sees the screen
// as it was when the shell emitted the mark.
type ShellIntegrationProvider interface {
	// PromptStart is called when the shell starts drawing the prompt (A).
	PromptStart()
	// PromptEnd is called when the prompt ends and command input begins (B).
	PromptEnd()
	// PreExecution is called right before the command runs (C).
	PreExecution()
	// EndExecution is called when the command finished (D). status is empty when not reported.
	EndExecution(status string)
	// CommandLine reports the command line text (E).
	CommandLine(text string)
}

// NoopShellIntegration ignores all shell integration events.
type NoopShellIntegration struct{}

func (NoopShellIntegration) PromptStart()               {}
func (NoopShellIntegration) PromptEnd()                 {}
func (NoopShellIntegration) PreExecution()              {}
func (NoopShellIntegration) EndExecution(status string) {}
func (NoopShellIntegration) CommandLine(text string)    {}

// Ensure NoopShellIntegration satisfies the interface
var _ ShellIntegrationProvider = (*NoopShellIntegration)(nil)

// ShellIntegrationMark processes a shell integration mark.
// Records the mark position for prompt-based navigation, flushes pending render
// state and then notifies the provider.
func (t *Terminal) ShellIntegrationMark(mark ansicode.ShellIntegrationMark, status string) {
	if t.middleware != nil && t.middleware.ShellIntegrationMark != nil {
		t.middleware.ShellIntegrationMark(mark, status, t.shellIntegrationMarkInternal)
		return
	}
	t.shellIntegrationMarkInternal(mark, status)
}

func (t *Terminal) shellIntegrationMarkInternal(mark ansicode.ShellIntegrationMark, status string) {
	exitCode := -1
	if mark == ansicode.CommandFinished && status != "" {
		if n, err := strconv.Atoi(status); err == nil {
			exitCode = n
		}
	}

	t.mu.Lock()
	t.promptMarks = append(t.promptMarks, PromptMark{
		Type:     mark,
		Row:      t.cursor.Row + t.primaryScreenLocked().Evicted(),
		ExitCode: exitCode,
	})
	provider := t.shellIntegrationProvider
	t.mu.Unlock()

	t.Flush()

	switch mark {
	case ansicode.PromptStart:
		provider.PromptStart()
	case ansicode.CommandStart:
		provider.PromptEnd()
	case ansicode.CommandExecuted:
		provider.PreExecution()
	case ansicode.CommandFinished:
		provider.EndExecution(status)
	}
}

// CommandLine records the command line reported by the shell (OSC 633 E).
func (t *Terminal) CommandLine(text string) {
	if t.middleware != nil && t.middleware.CommandLine != nil {
		t.middleware.CommandLine(text, t.commandLineInternal)
		return
	}
	t.commandLineInternal(text)
}

func (t *Terminal) commandLineInternal(text string) {
	t.mu.Lock()
	t.commandLine = text
	provider := t.shellIntegrationProvider
	t.mu.Unlock()

	t.Flush()
	provider.CommandLine(text)
}

// LastCommandLine returns the most recent command line reported by the shell.
func (t *Terminal) LastCommandLine() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.commandLine
}

// handleShellIntegration dispatches the payload of OSC 133 and OSC 633.
func (t *Terminal) handleShellIntegration(data string) {
	kind, rest, _ := strings.Cut(data, ";")
	switch kind {
	case "A":
		t.ShellIntegrationMark(ansicode.PromptStart, "")
	case "B":
		t.ShellIntegrationMark(ansicode.CommandStart, "")
	case "C":
		t.ShellIntegrationMark(ansicode.CommandExecuted, "")
	case "D":
		status, _, _ := strings.Cut(rest, ";")
		t.ShellIntegrationMark(ansicode.CommandFinished, status)
	case "E":
		cmd, _, _ := strings.Cut(rest, ";")
		t.CommandLine(unescapeShellValue(cmd))
	case "P":
		if cwd, ok := strings.CutPrefix(rest, "Cwd="); ok {
			t.SetWorkingDirectory(unescapeShellValue(cwd))
		}
	default:
		t.unhandled("unhandled shell integration", "payload", data)
	}
}

// unescapeShellValue decodes the \xHH and \\ escapes used in OSC 633 values.
func unescapeShellValue(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			sb.WriteByte(s[i])
			continue
		}
		switch {
		case s[i+1] == '\\':
			sb.WriteByte('\\')
			i++
		case s[i+1] == 'x' && i+3 < len(s):
			if v, err := strconv.ParseUint(s[i+2:i+4], 16, 8); err == nil {
				sb.WriteByte(byte(v))
				i += 3
				continue
			}
			sb.WriteByte(s[i])
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// primaryScreenLocked returns the primary screen whether or not it is displayed.
func (t *Terminal) primaryScreenLocked() *Screen {
	if t.saved != nil {
		return t.saved.screen
	}
	return t.screen
}

// PromptMarks returns all recorded prompt marks.
func (t *Terminal) PromptMarks() []PromptMark {
	t.mu.RLock()
	defer t.mu.RUnlock()

	// Return a copy to prevent external modification
	marks := make([]PromptMark, len(t.promptMarks))
	copy(marks, t.promptMarks)
	return marks
}

// PromptMarkCount returns the number of recorded prompt marks.
func (t *Terminal) PromptMarkCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.promptMarks)
}

// ClearPromptMarks removes all recorded prompt marks.
func (t *Terminal) ClearPromptMarks() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.promptMarks = nil
}

// NextPromptRow returns the absolute row of the next prompt mark after the given absolute row.
// Returns -1 if no next prompt exists.
// If markType is -1, marks of any type match.
func (t *Terminal) NextPromptRow(currentAbsRow int, markType ansicode.ShellIntegrationMark) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, mark := range t.promptMarks {
		if mark.Row > currentAbsRow && (markType == -1 || mark.Type == markType) {
			return mark.Row
		}
	}
	return -1
}

// PrevPromptRow returns the absolute row of the previous prompt mark before the given absolute row.
// Returns -1 if no previous prompt exists.
func (t *Terminal) PrevPromptRow(currentAbsRow int, markType ansicode.ShellIntegrationMark) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := len(t.promptMarks) - 1; i >= 0; i-- {
		mark := t.promptMarks[i]
		if mark.Row < currentAbsRow && (markType == -1 || mark.Type == markType) {
			return mark.Row
		}
	}
	return -1
}

// GetLastCommandOutput returns the text between the last CommandExecuted (C) mark and
// the CommandFinished (D) mark that follows it.
// Returns empty string if no complete command output is available.
func (t *Terminal) GetLastCommandOutput() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var lastExecuted, lastFinished *PromptMark
	for i := len(t.promptMarks) - 1; i >= 0; i-- {
		mark := &t.promptMarks[i]
		switch {
		case lastFinished == nil && mark.Type == ansicode.CommandFinished:
			lastFinished = mark
		case lastFinished != nil && mark.Type == ansicode.CommandExecuted:
			lastExecuted = mark
		}
		if lastExecuted != nil {
			break
		}
	}

	if lastExecuted == nil || lastFinished == nil || lastExecuted.Row > lastFinished.Row {
		return ""
	}
	return t.extractTextBetweenRows(lastExecuted.Row, lastFinished.Row)
}

// extractTextBetweenRows extracts text from startRow (inclusive) to endRow (exclusive).
// Rows are absolute. Evicted rows are read from the pending queue until the next
// flush hands them to scrollback storage; rows storage no longer holds read as empty.
func (t *Terminal) extractTextBetweenRows(startRow, endRow int) string {
	primary := t.primaryScreenLocked()
	evicted := primary.Evicted()
	pending := primary.pendingScrollback()
	flushed := evicted - len(pending)
	stored := t.scrollbackStorage.Len()

	var lines []string
	for absRow := startRow; absRow < endRow; absRow++ {
		var line string
		switch {
		case absRow < flushed:
			if row := t.scrollbackStorage.Line(absRow - (flushed - stored)); row != nil {
				line = row.TrimmedString()
			}
		case absRow < evicted:
			line = pending[absRow-flushed].TrimmedString()
		default:
			line = primary.LineContent(absRow - evicted)
		}
		lines = append(lines, line)
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
