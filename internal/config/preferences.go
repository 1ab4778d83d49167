/*-------------------------------------------------------------------------
 *
 * kdb+/q Console
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Preferences holds console state that persists across sessions
type Preferences struct {
	LastServer string `yaml:"last_server"`
	View       string `yaml:"view"`
}

// GetPreferencesPath returns the path to the user preferences file
func GetPreferencesPath() string {
	return filepath.Join(os.Getenv("HOME"), ".kdbq-prefs.yaml")
}

// LoadPreferences loads user preferences from a YAML file
// Returns empty preferences if the file doesn't exist
func LoadPreferences(path string) (*Preferences, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Preferences{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences file: %w", err)
	}

	prefs := &Preferences{}
	if err := yaml.Unmarshal(data, prefs); err != nil {
		return nil, fmt.Errorf("failed to parse preferences file: %w", err)
	}

	return prefs, nil
}

// SavePreferences saves user preferences to a YAML file
func SavePreferences(path string, prefs *Preferences) error {
	data, err := yaml.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first for atomic write
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write preferences file: %w", err)
	}

	// Rename to final location (atomic on Unix)
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save preferences file: %w", err)
	}

	return nil
}
