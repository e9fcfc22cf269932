package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// cliConfig is the optional YAML config file for one-shot analysis runs.
// Flags and environment variables take precedence over the file.
type cliConfig struct {
	ClaudeAPIKey string `yaml:"claude_api_key"`
	ClaudeModel  string `yaml:"claude_model"`
}

// defaultConfigPath is resolved relative to the user's home directory.
const defaultConfigName = ".blackbox.yaml"

// loadConfig reads the config file at path, or the default location when
// path is empty. A missing default file is not an error; a missing explicit
// file is.
func loadConfig(path string) (*cliConfig, error) {
	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return &cliConfig{}, nil
		}
		path = filepath.Join(home, defaultConfigName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &cliConfig{}, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var c cliConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &c, nil
}
