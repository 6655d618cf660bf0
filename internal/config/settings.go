package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/i474232898/radar-archive/internal/radar"
)

const settingsFilename = ".config_radar_api.yaml"

// ErrNoSettings is returned by ReadConfigs when the settings file is missing.
var ErrNoSettings = errors.New("settings file not found; define it with DefineConfigs")

// Settings are the user preferences persisted in the settings file.
type Settings struct {
	BaseDir string `yaml:"base_dir,omitempty" json:"base_dir,omitempty"`
}

// SettingsPath returns RADAR_API_CONFIG or ~/.config_radar_api.yaml.
func SettingsPath() string {
	if p := strings.TrimSpace(os.Getenv("RADAR_API_CONFIG")); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return settingsFilename
	}
	return filepath.Join(home, settingsFilename)
}

// DefineConfigs writes s to path, keeping keys of an existing file that s
// leaves empty.
func DefineConfigs(path string, s Settings) error {
	existing, err := ReadConfigs(path)
	if err != nil && !errors.Is(err, ErrNoSettings) {
		return err
	}
	if s.BaseDir != "" {
		existing.BaseDir = filepath.Clean(s.BaseDir)
	}

	b, err := yaml.Marshal(existing)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, b, 0o644)
}

// ReadConfigs reads the settings file at path.
func ReadConfigs(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Settings{}, fmt.Errorf("%w: %s", ErrNoSettings, path)
		}
		return Settings{}, err
	}
	var s Settings
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// LoadSettings reads the settings file when present and applies the
// RADAR_BASE_DIR override.
func LoadSettings(path string) (Settings, error) {
	s, err := ReadConfigs(path)
	if err != nil && !errors.Is(err, ErrNoSettings) {
		return Settings{}, err
	}
	if v := strings.TrimSpace(os.Getenv("RADAR_BASE_DIR")); v != "" {
		s.BaseDir = v
	}
	return s, nil
}

// WithBaseDir returns a copy of s using dir as base directory.
func (s Settings) WithBaseDir(dir string) Settings {
	s.BaseDir = dir
	return s
}

// ResolveBaseDir returns dir when given, else the configured base directory.
func (s Settings) ResolveBaseDir(dir string) (string, error) {
	if strings.TrimSpace(dir) != "" {
		return dir, nil
	}
	if s.BaseDir != "" {
		return s.BaseDir, nil
	}
	return "", fmt.Errorf("%w: base_dir is not specified; set it with 'radarctl config define --base-dir' or RADAR_BASE_DIR", radar.ErrInvalidValue)
}
