package termengine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration decoded from a string such as "12ms".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: slice_budget %q", ErrInvalidConfig, text)
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the file form of the terminal options.
//
// Example:
//
//	rows = 40
//	cols = 120
//	scrollback = 5000
//	slice_budget = "8ms"
//	foreground = "#d0d0d0"
//
//	[palette]
//	1 = "#ff5555"
type Config struct {
	Rows              int               `toml:"rows"`
	Cols              int               `toml:"cols"`
	Scrollback        int               `toml:"scrollback"`
	MaxBufferSize     int               `toml:"max_buffer_size"`
	SliceBudget       Duration          `toml:"slice_budget"`
	Debug             bool              `toml:"debug"`
	ApplicationCookie string            `toml:"application_cookie"`
	Palette           map[string]string `toml:"palette"`
	Foreground        string            `toml:"foreground"`
	Background        string            `toml:"background"`
	CursorColor       string            `toml:"cursor_color"`
}

// DefaultConfig returns the configuration New uses when given no options.
func DefaultConfig() *Config {
	return &Config{
		Rows:          DEFAULT_ROWS,
		Cols:          DEFAULT_COLS,
		MaxBufferSize: DefaultMaxBufferSize,
		SliceBudget:   Duration{DefaultSliceBudget},
	}
}

// LoadConfig reads and validates a TOML configuration file.
// Keys not present in the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseConfig decodes and validates a TOML configuration document.
func ParseConfig(data string) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func checkUndecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	sort.Strings(names)
	return fmt.Errorf("%w: unknown keys %s", ErrInvalidConfig, strings.Join(names, ", "))
}

// Validate checks every value. Zero sizes mean "use the default".
func (c *Config) Validate() error {
	switch {
	case c.Rows < 0:
		return fmt.Errorf("%w: rows %d", ErrInvalidConfig, c.Rows)
	case c.Cols < 0:
		return fmt.Errorf("%w: cols %d", ErrInvalidConfig, c.Cols)
	case c.Scrollback < 0:
		return fmt.Errorf("%w: scrollback %d", ErrInvalidConfig, c.Scrollback)
	case c.MaxBufferSize < 0:
		return fmt.Errorf("%w: max_buffer_size %d", ErrInvalidConfig, c.MaxBufferSize)
	case c.SliceBudget.Duration < 0:
		return fmt.Errorf("%w: slice_budget %s", ErrInvalidConfig, c.SliceBudget)
	}

	if _, err := c.palette(); err != nil {
		return err
	}
	return nil
}

// palette builds the configured palette, or nil if no color is overridden.
func (c *Config) palette() (*Palette, error) {
	if len(c.Palette) == 0 && c.Foreground == "" && c.Background == "" && c.CursorColor == "" {
		return nil, nil
	}

	p := NewPalette()
	for key, spec := range c.Palette {
		index, err := strconv.Atoi(key)
		if err != nil || index < 0 || index > 255 {
			return nil, fmt.Errorf("%w: palette index %q", ErrInvalidConfig, key)
		}
		rgba, err := ParseColorSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("%w: palette %d: %w", ErrInvalidConfig, index, err)
		}
		p.Set(index, rgba)
	}

	named := []struct {
		name  string
		spec  string
		index int
	}{
		{"foreground", c.Foreground, NamedColorForeground},
		{"background", c.Background, NamedColorBackground},
		{"cursor_color", c.CursorColor, NamedColorCursor},
	}
	for _, n := range named {
		if n.spec == "" {
			continue
		}
		rgba, err := ParseColorSpec(n.spec)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, n.name, err)
		}
		p.Set(n.index, rgba)
	}
	return p, nil
}

// Options validates the configuration and converts it to terminal options.
func (c *Config) Options() ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	opts := []Option{
		WithSize(c.Rows, c.Cols),
		WithDebug(c.Debug),
	}
	if c.Scrollback > 0 {
		opts = append(opts, WithScrollback(NewMemoryScrollback(c.Scrollback)))
	}
	if c.MaxBufferSize > 0 {
		opts = append(opts, WithMaxBufferSize(c.MaxBufferSize))
	}
	if c.SliceBudget.Duration > 0 {
		opts = append(opts, WithSliceBudget(c.SliceBudget.Duration))
	}
	if c.ApplicationCookie != "" {
		opts = append(opts, WithApplicationCookie(c.ApplicationCookie))
	}

	p, err := c.palette()
	if err != nil {
		return nil, err
	}
	if p != nil {
		opts = append(opts, WithPalette(p))
	}
	return opts, nil
}
