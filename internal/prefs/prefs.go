package prefs

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preferences are the console's simple user flags, read at startup and
// written on change.
type Preferences struct {
	DarkMode             bool `yaml:"darkMode"`
	SoundNotifications   bool `yaml:"soundNotifications"`
	DesktopNotifications bool `yaml:"desktopNotifications"`
	AutoScroll           bool `yaml:"autoScroll"`
	ShowTimestamps       bool `yaml:"showTimestamps"`
	DraggingEnabled      bool `yaml:"draggingEnabled"`
}

// Defaults mirrors a fresh install: everything on except dark mode.
func Defaults() Preferences {
	return Preferences{
		SoundNotifications:   true,
		DesktopNotifications: true,
		AutoScroll:           true,
		ShowTimestamps:       true,
		DraggingEnabled:      true,
	}
}

// Load reads preferences from path. A missing file yields Defaults.
func Load(path string) (Preferences, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("read preferences: %w", err)
	}

	p := Defaults()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preferences{}, fmt.Errorf("parse preferences: %w", err)
	}
	return p, nil
}

// Save writes preferences to path.
func Save(path string, p Preferences) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}
