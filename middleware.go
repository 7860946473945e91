package termengine

import (
	"image/color"

	"github.com/danielgatis/go-ansicode"
)

// Middleware intercepts terminal operations, allowing custom behavior before/after execution.
// Each field wraps one operation: it receives the original parameters and a next function
// that runs the default implementation. Not calling next suppresses the operation.
type Middleware struct {
	// Input wraps the Input handler
	Input func(r rune, next func(rune))

	// Bell wraps the Bell handler
	Bell func(next func())

	// Backspace wraps the Backspace handler
	Backspace func(next func())

	// CarriageReturn wraps the CarriageReturn handler
	CarriageReturn func(next func())

	// LineFeed wraps the LineFeed handler
	LineFeed func(next func())

	// ReverseIndex wraps the ReverseIndex handler
	ReverseIndex func(next func())

	// Tab wraps the Tab handler
	Tab func(n int, next func(int))

	// MoveBackwardTabs wraps the MoveBackwardTabs handler
	MoveBackwardTabs func(n int, next func(int))

	// HorizontalTabSet wraps the HorizontalTabSet handler
	HorizontalTabSet func(next func())

	// ClearTabs wraps the ClearTabs handler
	ClearTabs func(mode ansicode.TabulationClearMode, next func(ansicode.TabulationClearMode))

	// ClearLine wraps the ClearLine handler
	ClearLine func(mode ansicode.LineClearMode, next func(ansicode.LineClearMode))

	// ClearScreen wraps the ClearScreen handler
	ClearScreen func(mode ansicode.ClearMode, next func(ansicode.ClearMode))

	// Goto wraps the Goto handler
	Goto func(row, col int, next func(int, int))

	// GotoLine wraps the GotoLine handler
	GotoLine func(row int, next func(int))

	// GotoCol wraps the GotoCol handler
	GotoCol func(col int, next func(int))

	// MoveUp wraps the MoveUp handler
	MoveUp func(n int, next func(int))

	// MoveDown wraps the MoveDown handler
	MoveDown func(n int, next func(int))

	// MoveForward wraps the MoveForward handler
	MoveForward func(n int, next func(int))

	// MoveBackward wraps the MoveBackward handler
	MoveBackward func(n int, next func(int))

	// MoveUpCr wraps the MoveUpCr handler
	MoveUpCr func(n int, next func(int))

	// MoveDownCr wraps the MoveDownCr handler
	MoveDownCr func(n int, next func(int))

	// InsertBlank wraps the InsertBlank handler
	InsertBlank func(n int, next func(int))

	// DeleteChars wraps the DeleteChars handler
	DeleteChars func(n int, next func(int))

	// EraseChars wraps the EraseChars handler
	EraseChars func(n int, next func(int))

	// InsertBlankLines wraps the InsertBlankLines handler
	InsertBlankLines func(n int, next func(int))

	// DeleteLines wraps the DeleteLines handler
	DeleteLines func(n int, next func(int))

	// ScrollUp wraps the ScrollUp handler
	ScrollUp func(n int, next func(int))

	// ScrollDown wraps the ScrollDown handler
	ScrollDown func(n int, next func(int))

	// SetScrollingRegion wraps the SetScrollingRegion handler
	SetScrollingRegion func(top, bottom int, next func(int, int))

	// SetMode wraps the SetMode handler
	SetMode func(mode TerminalMode, next func(TerminalMode))

	// UnsetMode wraps the UnsetMode handler
	UnsetMode func(mode TerminalMode, next func(TerminalMode))

	// SetAlternateScreen wraps the SetAlternateScreen handler
	SetAlternateScreen func(enabled, saveCursor bool, next func(bool, bool))

	// SaveCursorPosition wraps the SaveCursorPosition handler
	SaveCursorPosition func(next func())

	// RestoreCursorPosition wraps the RestoreCursorPosition handler
	RestoreCursorPosition func(next func())

	// SetCursorStyle wraps the SetCursorStyle handler
	SetCursorStyle func(style CursorStyle, next func(CursorStyle))

	// SetActiveCharset wraps the SetActiveCharset handler
	SetActiveCharset func(index CharsetIndex, next func(CharsetIndex))

	// ConfigureCharset wraps the ConfigureCharset handler
	ConfigureCharset func(index CharsetIndex, charset Charset, next func(CharsetIndex, Charset))

	// Decaln wraps the Decaln handler
	Decaln func(next func())

	// ResetState wraps the ResetState handler
	ResetState func(next func())

	// SoftReset wraps the SoftReset handler
	SoftReset func(next func())

	// DeviceStatus wraps the DeviceStatus handler
	DeviceStatus func(n int, next func(int))

	// IdentifyTerminal wraps the IdentifyTerminal handler
	IdentifyTerminal func(b byte, next func(byte))

	// TextAreaSizeChars wraps the TextAreaSizeChars handler
	TextAreaSizeChars func(next func())

	// TextAreaSizePixels wraps the TextAreaSizePixels handler
	TextAreaSizePixels func(next func())

	// CellSizePixels wraps the CellSizePixels handler
	CellSizePixels func(next func())

	// SetTitle wraps the SetTitle handler
	SetTitle func(title string, next func(string))

	// PushTitle wraps the PushTitle handler
	PushTitle func(next func())

	// PopTitle wraps the PopTitle handler
	PopTitle func(next func())

	// ClipboardLoad wraps the ClipboardLoad handler
	ClipboardLoad func(clipboard byte, terminator string, next func(byte, string))

	// ClipboardStore wraps the ClipboardStore handler
	ClipboardStore func(clipboard byte, data []byte, next func(byte, []byte))

	// SetHyperlink wraps the SetHyperlink handler
	SetHyperlink func(hyperlink *ansicode.Hyperlink, next func(*ansicode.Hyperlink))

	// SetColor wraps the SetColor handler
	SetColor func(index int, c color.RGBA, next func(int, color.RGBA))

	// ResetColor wraps the ResetColor handler
	ResetColor func(index int, next func(int))

	// SetWorkingDirectory wraps the SetWorkingDirectory handler
	SetWorkingDirectory func(uri string, next func(string))

	// ShellIntegrationMark wraps the ShellIntegrationMark handler
	ShellIntegrationMark func(mark ansicode.ShellIntegrationMark, status string, next func(ansicode.ShellIntegrationMark, string))

	// CommandLine wraps the CommandLine handler
	CommandLine func(text string, next func(string))
}

// Merge copies non-nil fields from other into m, overwriting existing values.
func (m *Middleware) Merge(other *Middleware) {
	if other == nil {
		return
	}
	if other.Input != nil {
		m.Input = other.Input
	}
	if other.Bell != nil {
		m.Bell = other.Bell
	}
	if other.Backspace != nil {
		m.Backspace = other.Backspace
	}
	if other.CarriageReturn != nil {
		m.CarriageReturn = other.CarriageReturn
	}
	if other.LineFeed != nil {
		m.LineFeed = other.LineFeed
	}
	if other.ReverseIndex != nil {
		m.ReverseIndex = other.ReverseIndex
	}
	if other.Tab != nil {
		m.Tab = other.Tab
	}
	if other.MoveBackwardTabs != nil {
		m.MoveBackwardTabs = other.MoveBackwardTabs
	}
	if other.HorizontalTabSet != nil {
		m.HorizontalTabSet = other.HorizontalTabSet
	}
	if other.ClearTabs != nil {
		m.ClearTabs = other.ClearTabs
	}
	if other.ClearLine != nil {
		m.ClearLine = other.ClearLine
	}
	if other.ClearScreen != nil {
		m.ClearScreen = other.ClearScreen
	}
	if other.Goto != nil {
		m.Goto = other.Goto
	}
	if other.GotoLine != nil {
		m.GotoLine = other.GotoLine
	}
	if other.GotoCol != nil {
		m.GotoCol = other.GotoCol
	}
	if other.MoveUp != nil {
		m.MoveUp = other.MoveUp
	}
	if other.MoveDown != nil {
		m.MoveDown = other.MoveDown
	}
	if other.MoveForward != nil {
		m.MoveForward = other.MoveForward
	}
	if other.MoveBackward != nil {
		m.MoveBackward = other.MoveBackward
	}
	if other.MoveUpCr != nil {
		m.MoveUpCr = other.MoveUpCr
	}
	if other.MoveDownCr != nil {
		m.MoveDownCr = other.MoveDownCr
	}
	if other.InsertBlank != nil {
		m.InsertBlank = other.InsertBlank
	}
	if other.DeleteChars != nil {
		m.DeleteChars = other.DeleteChars
	}
	if other.EraseChars != nil {
		m.EraseChars = other.EraseChars
	}
	if other.InsertBlankLines != nil {
		m.InsertBlankLines = other.InsertBlankLines
	}
	if other.DeleteLines != nil {
		m.DeleteLines = other.DeleteLines
	}
	if other.ScrollUp != nil {
		m.ScrollUp = other.ScrollUp
	}
	if other.ScrollDown != nil {
		m.ScrollDown = other.ScrollDown
	}
	if other.SetScrollingRegion != nil {
		m.SetScrollingRegion = other.SetScrollingRegion
	}
	if other.SetMode != nil {
		m.SetMode = other.SetMode
	}
	if other.UnsetMode != nil {
		m.UnsetMode = other.UnsetMode
	}
	if other.SetAlternateScreen != nil {
		m.SetAlternateScreen = other.SetAlternateScreen
	}
	if other.SaveCursorPosition != nil {
		m.SaveCursorPosition = other.SaveCursorPosition
	}
	if other.RestoreCursorPosition != nil {
		m.RestoreCursorPosition = other.RestoreCursorPosition
	}
	if other.SetCursorStyle != nil {
		m.SetCursorStyle = other.SetCursorStyle
	}
	if other.SetActiveCharset != nil {
		m.SetActiveCharset = other.SetActiveCharset
	}
	if other.ConfigureCharset != nil {
		m.ConfigureCharset = other.ConfigureCharset
	}
	if other.Decaln != nil {
		m.Decaln = other.Decaln
	}
	if other.ResetState != nil {
		m.ResetState = other.ResetState
	}
	if other.SoftReset != nil {
		m.SoftReset = other.SoftReset
	}
	if other.DeviceStatus != nil {
		m.DeviceStatus = other.DeviceStatus
	}
	if other.IdentifyTerminal != nil {
		m.IdentifyTerminal = other.IdentifyTerminal
	}
	if other.TextAreaSizeChars != nil {
		m.TextAreaSizeChars = other.TextAreaSizeChars
	}
	if other.TextAreaSizePixels != nil {
		m.TextAreaSizePixels = other.TextAreaSizePixels
	}
	if other.CellSizePixels != nil {
		m.CellSizePixels = other.CellSizePixels
	}
	if other.SetTitle != nil {
		m.SetTitle = other.SetTitle
	}
	if other.PushTitle != nil {
		m.PushTitle = other.PushTitle
	}
	if other.PopTitle != nil {
		m.PopTitle = other.PopTitle
	}
	if other.ClipboardLoad != nil {
		m.ClipboardLoad = other.ClipboardLoad
	}
	if other.ClipboardStore != nil {
		m.ClipboardStore = other.ClipboardStore
	}
	if other.SetHyperlink != nil {
		m.SetHyperlink = other.SetHyperlink
	}
	if other.SetColor != nil {
		m.SetColor = other.SetColor
	}
	if other.ResetColor != nil {
		m.ResetColor = other.ResetColor
	}
	if other.SetWorkingDirectory != nil {
		m.SetWorkingDirectory = other.SetWorkingDirectory
	}
	if other.ShellIntegrationMark != nil {
		m.ShellIntegrationMark = other.ShellIntegrationMark
	}
	if other.CommandLine != nil {
		m.CommandLine = other.CommandLine
	}
}
