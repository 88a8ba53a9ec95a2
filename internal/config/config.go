// Package config loads the settings of the portablefs server from a TOML file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kframework/portablefs/internal/transport"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// DefaultListen is the address served when none is configured.
const DefaultListen = "127.0.0.1:7410"

// Config holds the server settings. Field tags name the keys of the file.
type Config struct {
	// Listen is the TCP address to accept connections on.
	Listen string `toml:"listen"`
	// Root confines opened paths to a host directory. Exclusive with WorkDir.
	Root string `toml:"root"`
	// WorkDir resolves relative paths on the host. Empty means the current
	// directory.
	WorkDir string `toml:"work_dir"`
	// LogLevel is "debug", "info", "warn", "error" or a per-module filter
	// such as "transport:debug,*:info".
	LogLevel string `toml:"log_level"`
	// LogFormat is LogFormatText or LogFormatJSON.
	LogFormat string `toml:"log_format"`
	// MaxRead bounds the count of a read request.
	MaxRead int `toml:"max_read"`
	// IdleTimeout drops connections without a request for this long. Zero
	// never drops them.
	IdleTimeout Duration `toml:"idle_timeout"`
}

// Default returns the settings used for keys absent from the file.
func Default() *Config {
	return &Config{
		Listen:    DefaultListen,
		LogLevel:  "info",
		LogFormat: LogFormatText,
		MaxRead:   transport.DefaultMaxRead,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen: must not be empty")
	}
	if c.Root != "" && c.WorkDir != "" {
		return errors.New("root and work_dir are mutually exclusive")
	}
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("log_format: %q is neither %q nor %q", c.LogFormat, LogFormatText, LogFormatJSON)
	}
	if c.MaxRead <= 0 {
		return fmt.Errorf("max_read: %d is not positive", c.MaxRead)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle_timeout: %s is negative", c.IdleTimeout)
	}
	return nil
}

// Duration is a time.Duration written as a string in the file, ex. "30s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// String implements fmt.Stringer
func (d Duration) String() string {
	return time.Duration(d).String()
}
