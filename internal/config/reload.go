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
	"sync"

	"kdb-q-console/internal/logging"
)

// ReloadableConfig wraps a Config with thread-safe access and reload capability
type ReloadableConfig struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	cliFlags CLIFlags
	onReload []func(*Config)
}

// NewReloadableConfig creates a new reloadable configuration
func NewReloadableConfig(config *Config, path string, cliFlags CLIFlags) *ReloadableConfig {
	return &ReloadableConfig{
		config:   config,
		path:     path,
		cliFlags: cliFlags,
		onReload: make([]func(*Config), 0),
	}
}

// Get returns the current configuration (read-only access)
func (rc *ReloadableConfig) Get() *Config {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.config
}

// Reload reloads the configuration from the file
// Returns an error if the reload fails, but keeps the old config
func (rc *ReloadableConfig) Reload() error {
	rc.mu.Lock()

	if rc.path == "" {
		rc.mu.Unlock()
		return fmt.Errorf("no configuration file path set")
	}

	// LoadConfig applies CLI flags and validates
	newConfig, err := LoadConfig(rc.path, rc.cliFlags)
	if err != nil {
		rc.mu.Unlock()
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	rc.logRestartRequiredSettings(newConfig)

	oldConfig := rc.config
	rc.config = newConfig
	callbacks := append([]func(*Config){}, rc.onReload...)
	rc.mu.Unlock()

	logging.Info("config_reloaded",
		"path", rc.path,
		"servers", len(newConfig.Servers),
		"previous_servers", len(oldConfig.Servers),
	)

	// Callbacks run outside the lock so they may call Get
	for _, callback := range callbacks {
		callback(newConfig)
	}

	return nil
}

// logRestartRequiredSettings logs settings that changed but only take
// effect on the next connection or start
func (rc *ReloadableConfig) logRestartRequiredSettings(newConfig *Config) {
	old := rc.config

	if old.Connection != newConfig.Connection {
		logging.Warn("config_change_deferred", "setting", "connection", "applies_to", "next connection")
	}
	if old.HistoryFile != newConfig.HistoryFile {
		logging.Warn("config_change_deferred", "setting", "history_file", "applies_to", "restart")
	}
	if old.SecretFile != newConfig.SecretFile {
		logging.Warn("config_change_deferred", "setting", "secret_file", "applies_to", "restart")
	}
}

// OnReload registers a callback to be called when configuration is reloaded
// The callback receives the new configuration
func (rc *ReloadableConfig) OnReload(fn func(*Config)) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.onReload = append(rc.onReload, fn)
}

// GetPath returns the configuration file path
func (rc *ReloadableConfig) GetPath() string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.path
}
