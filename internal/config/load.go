package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// envConfigPath overrides the config file search when set, unless --config
// was given explicitly.
const envConfigPath = "YGGDRASIL_CONFIG"

// Load resolves the effective configuration. Values layer in increasing
// priority: built-in defaults, then the config file, then CLI flags. The file
// comes from --config, the YGGDRASIL_CONFIG environment variable, or the
// standard search locations, in that order; a missing file is not an error.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = os.Getenv(envConfigPath)
	}
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	return cfg, nil
}

// findConfigFile checks the working directory first, then the per-user config
// directory. Returns empty when neither holds a config.yaml.
func findConfigFile() string {
	for _, path := range []string{
		"config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate per-user config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Yggdrasil")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Yggdrasil")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "yggdrasil")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "yggdrasil")
	}
}

// loadFromFile merges one YAML file into cfg, leaving unmentioned fields at
// their current values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
