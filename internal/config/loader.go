package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

// relPath is where the file is searched for under the XDG config directories.
const relPath = "portablefs/config.toml"

// FindFile returns the config file to load: explicit if set, otherwise the
// first portablefs/config.toml in the XDG config directories. An empty result
// without error means there is no file and defaults apply.
func FindFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %w", err)
		}
		return explicit, nil
	}
	path, err := xdg.SearchConfigFile(relPath)
	if err != nil {
		return "", nil // Not found isn't an error.
	}
	return path, nil
}

// Load finds and parses the config file, see FindFile. It returns the merged
// settings and the path they were read from, if any.
func Load(explicit string) (*Config, string, error) {
	path, err := FindFile(explicit)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return Default(), "", nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, path, nil
}

// Decode reads TOML from r over the defaults. Unknown keys are rejected, as
// they are usually misspelled ones.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("unknown keys:\n%s", strict.String())
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
