// Package config loads the optional ~/.config/wtcap/config.yaml
// defaults file (shell and default transport flags), mirroring the
// teacher's Manager-merge pattern but for a single file instead of a
// user/project pair, since there is no per-project concept here.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults is the shape of config.yaml. Every field is optional; a
// missing file or a missing key simply leaves the CLI flag's own
// default in place.
type Defaults struct {
	Shell    string `yaml:"shell"`
	WSListen string `yaml:"ws_listen"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Dir returns ~/.config/wtcap, creating nothing — callers decide
// whether to create it.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "wtcap"), nil
}

// Path returns the full path to config.yaml.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads and parses config.yaml. A missing file is not an error —
// it returns a zero-value Defaults, same as every key being absent.
func Load() (Defaults, error) {
	var d Defaults
	path, err := Path()
	if err != nil {
		return d, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return d, err
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, err
	}
	return d, nil
}
