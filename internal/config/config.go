// Package config loads and saves the daemon's button/status layout:
// a JSON document mapping on-device button paths to the command and
// icon each button triggers.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrConfig is the taxonomy sentinel for configuration failures:
// missing file, malformed JSON, or a button key that isn't a valid
// canonical path.
var ErrConfig = errors.New("config: invalid configuration")

// DefaultPath is used when no --config-path flag is given.
const DefaultPath = "config.json"

// ButtonConfig is the action and/or icon bound to a single button or
// to the status bar. Both fields are optional: a placeholder entry
// may carry neither.
type ButtonConfig struct {
	Command *string  `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
	Icon    *string  `json:"icon,omitempty"` // base64-encoded image bytes
}

// Config is the full on-disk layout: a path-keyed map of button
// bindings plus one optional status-bar binding.
type Config struct {
	Buttons map[string]ButtonConfig `json:"buttons"`
	Status  *ButtonConfig           `json:"status,omitempty"`
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
	}
	if cfg.Buttons == nil {
		cfg.Buttons = make(map[string]ButtonConfig)
	}

	for p := range cfg.Buttons {
		if err := ValidatePath(p); err != nil {
			return nil, fmt.Errorf("%w: button %q: %v", ErrConfig, p, err)
		}
	}

	return &cfg, nil
}

// Save writes cfg as indented JSON to path.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrConfig, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrConfig, path, err)
	}
	return nil
}

// ValidatePath checks that p is a canonical button path: absolute,
// forward-slash, with an integer final segment giving its position
// within the containing directory.
func ValidatePath(p string) error {
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("path %q must be absolute", p)
	}
	leaf := p[strings.LastIndex(p, "/")+1:]
	if leaf == "" {
		return fmt.Errorf("path %q has no index segment", p)
	}
	if _, err := strconv.Atoi(leaf); err != nil {
		return fmt.Errorf("path %q: final segment %q is not an integer", p, leaf)
	}
	return nil
}

// Dir returns the containing directory of a canonical button path,
// e.g. "/a/b/3" -> "/a/b".
func Dir(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		return "/"
	}
	return p[:idx]
}

// Index returns the integer leaf segment of a canonical button path.
func Index(p string) (int, error) {
	leaf := p[strings.LastIndex(p, "/")+1:]
	return strconv.Atoi(leaf)
}
