package termengine

import "errors"

// Sentinel errors for the termengine package.
var (
	// ErrInvalidWidth is returned when a row is created or resized with a width <= 0.
	ErrInvalidWidth = errors.New("invalid row width")

	// ErrInvalidSize is returned when terminal dimensions are invalid.
	ErrInvalidSize = errors.New("invalid terminal size")

	// ErrTerminalClosed is returned when writing to a closed terminal.
	ErrTerminalClosed = errors.New("terminal is closed")

	// ErrApplicationCookie is logged when an application mode request carries the wrong cookie.
	ErrApplicationCookie = errors.New("application mode cookie mismatch")

	// ErrNoApplicationHandler is logged when application mode is requested without a handler.
	ErrNoApplicationHandler = errors.New("no application mode handler registered")

	// ErrInvalidConfig is returned when a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidColorSpec is returned when a color specification cannot be parsed.
	ErrInvalidColorSpec = errors.New("invalid color specification")
)
