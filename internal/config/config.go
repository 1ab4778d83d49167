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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"kdb-q-console/internal/servers"
)

// Result views
const (
	ViewConsole  = "console"
	ViewGrid     = "grid"
	ViewDocument = "document"
)

// Config represents the complete console configuration
type Config struct {
	// Connection strings of the form host:port[:user[:password]]
	Servers []string `yaml:"servers"`

	// Server to connect to at startup (index, label or connection string)
	DefaultServer string `yaml:"default_server"`

	// Server tree grouping: none or hostname
	ServerGroupMode string `yaml:"server_group_mode"`

	// Secret file path (for decrypting enc: passwords)
	SecretFile string `yaml:"secret_file"`

	// Readline history file
	HistoryFile string `yaml:"history_file"`

	Connection ConnectionConfig `yaml:"connection"`
	Display    DisplayConfig    `yaml:"display"`
}

// ConnectionConfig holds IPC connection settings
type ConnectionConfig struct {
	Timeout    string `yaml:"timeout"`    // Dial and handshake timeout (default: 10s)
	Capability int    `yaml:"capability"` // IPC capability byte (default: 3)
}

// DisplayConfig holds result rendering settings
type DisplayConfig struct {
	View            string `yaml:"view"`             // console, grid or document
	NoColor         bool   `yaml:"no_color"`         // Disable colored output
	ColumnSeparator string `yaml:"column_separator"` // Between table columns (default: " ")
	MaxRows         int    `yaml:"max_rows"`         // Rows shown per table (0 = all)
	MarkdownStyle   string `yaml:"markdown_style"`   // Glamour style for the document view
}

// CLIFlags represents command line flag values and whether they were explicitly set
type CLIFlags struct {
	ConfigFileSet bool
	ConfigFile    string

	Server    string
	ServerSet bool

	View    string
	ViewSet bool

	NoColor    bool
	NoColorSet bool
}

// LoadConfig loads configuration with proper priority:
// 1. Command line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Hard-coded defaults (lowest priority)
func LoadConfig(configPath string, cliFlags CLIFlags) (*Config, error) {
	cfg := defaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			// A missing file is only an error when it was asked for
			if cliFlags.ConfigFileSet || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	applyEnvironmentVariables(cfg)
	applyCLIFlags(cfg, cliFlags)

	cfg.SecretFile = expandHome(cfg.SecretFile)
	cfg.HistoryFile = expandHome(cfg.HistoryFile)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// FindConfigFile returns the explicit path when set, otherwise the first
// existing default location, or "" when there is none.
func FindConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, path := range DefaultConfigPaths() {
		if ConfigFileExists(path) {
			return path
		}
	}
	return ""
}

// DefaultConfigPaths lists the locations searched when no file is given
func DefaultConfigPaths() []string {
	return []string{
		".kdbq.yaml",
		filepath.Join(os.Getenv("HOME"), ".kdbq.yaml"),
		"/etc/kdbq/config.yaml",
	}
}

// defaultConfig returns configuration with hard-coded defaults
func defaultConfig() *Config {
	home := os.Getenv("HOME")
	return &Config{
		ServerGroupMode: string(servers.GroupNone),
		SecretFile:      filepath.Join(home, ".kdbq-secret"),
		HistoryFile:     filepath.Join(home, ".kdbq-history"),
		Connection: ConnectionConfig{
			Timeout:    "10s",
			Capability: 3,
		},
		Display: DisplayConfig{
			View:            ViewConsole,
			ColumnSeparator: " ",
			MarkdownStyle:   "auto",
		},
	}
}

// loadConfigFile reads a YAML file over the values already in cfg
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// setStringFromEnv sets a string config value from an environment variable if it exists
func setStringFromEnv(dest *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dest = val
	}
}

// applyEnvironmentVariables overrides config with environment variables if they exist
func applyEnvironmentVariables(cfg *Config) {
	setStringFromEnv(&cfg.DefaultServer, "KDBQ_SERVER")
	setStringFromEnv(&cfg.Display.View, "KDBQ_VIEW")
	setStringFromEnv(&cfg.SecretFile, "KDBQ_SECRET_FILE")

	// Any value disables color, per no-color.org
	if os.Getenv("NO_COLOR") != "" {
		cfg.Display.NoColor = true
	}
}

// applyCLIFlags overrides config with CLI flags if they were explicitly set
func applyCLIFlags(cfg *Config, flags CLIFlags) {
	if flags.ServerSet {
		cfg.DefaultServer = flags.Server
	}
	if flags.ViewSet {
		cfg.Display.View = flags.View
	}
	if flags.NoColorSet {
		cfg.Display.NoColor = flags.NoColor
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := servers.ParseGroupMode(c.ServerGroupMode); err != nil {
		return err
	}
	if _, err := servers.ParseAll(c.Servers); err != nil {
		return err
	}

	switch c.Display.View {
	case ViewConsole, ViewGrid, ViewDocument:
	default:
		return fmt.Errorf("invalid view: %s (must be console, grid or document)", c.Display.View)
	}

	if c.Display.MaxRows < 0 {
		return fmt.Errorf("display.max_rows must not be negative")
	}

	if _, err := c.Timeout(); err != nil {
		return err
	}
	if c.Connection.Capability < 0 || c.Connection.Capability > 6 {
		return fmt.Errorf("invalid connection.capability: %d (must be 0-6)", c.Connection.Capability)
	}

	return nil
}

// Timeout parses the connection timeout; an empty value means no limit
// beyond the transport default.
func (c *Config) Timeout() (time.Duration, error) {
	if c.Connection.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Connection.Timeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid connection.timeout: %q", c.Connection.Timeout)
	}
	return d, nil
}

// ServerList parses the configured servers. The list has been validated
// by LoadConfig.
func (c *Config) ServerList() []servers.Server {
	list, err := servers.ParseAll(c.Servers)
	if err != nil {
		return nil
	}
	return list
}

// GroupMode returns the parsed server grouping
func (c *Config) GroupMode() servers.GroupMode {
	mode, err := servers.ParseGroupMode(c.ServerGroupMode)
	if err != nil {
		return servers.GroupNone
	}
	return mode
}

// expandHome replaces a leading ~ with the home directory
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		return filepath.Join(os.Getenv("HOME"), strings.TrimPrefix(path, "~"))
	}
	return path
}

// ConfigFileExists checks if a config file exists at the given path
func ConfigFileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Passwords may be stored in the file
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
