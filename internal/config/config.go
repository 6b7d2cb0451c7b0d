package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete RepoScope configuration (v2 schema)
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	Home    string `json:"home" mapstructure:"home"`

	Scan    ScanConfig    `json:"scan" mapstructure:"scan"`
	Grep    GrepConfig    `json:"grep" mapstructure:"grep"`
	Audit   AuditConfig   `json:"audit" mapstructure:"audit"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ScanConfig bounds directory traversal for listing and tree tools
type ScanConfig struct {
	MaxResults int      `json:"maxResults" mapstructure:"maxResults"`
	PruneDirs  []string `json:"pruneDirs" mapstructure:"pruneDirs"`
}

// GrepConfig holds default search budgets. Tool arguments may lower
// these per call but never raise them above the configured ceiling.
type GrepConfig struct {
	MaxFiles          int `json:"maxFiles" mapstructure:"maxFiles"`
	MaxMatchesPerFile int `json:"maxMatchesPerFile" mapstructure:"maxMatchesPerFile"`
	MaxTotalMatches   int `json:"maxTotalMatches" mapstructure:"maxTotalMatches"`
	TimeoutSeconds    int `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
	SizeLimitBytes    int `json:"sizeLimitBytes" mapstructure:"sizeLimitBytes"`
	ContextLines      int `json:"contextLines" mapstructure:"contextLines"`
	MaxSnippetChars   int `json:"maxSnippetChars" mapstructure:"maxSnippetChars"`
}

// AuditConfig controls the tool-call audit trail
type AuditConfig struct {
	Enabled       bool `json:"enabled" mapstructure:"enabled"`
	MaxValueChars int  `json:"maxValueChars" mapstructure:"maxValueChars"`
	RetentionDays int  `json:"retentionDays" mapstructure:"retentionDays"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 2,
		Scan: ScanConfig{
			MaxResults: 2000,
			PruneDirs: []string{
				".git", "vendor", ".github", "logs",
				"node_modules", ".venv", "__pycache__", ".idea",
			},
		},
		Grep: GrepConfig{
			MaxFiles:          2000,
			MaxMatchesPerFile: 200,
			MaxTotalMatches:   2000,
			TimeoutSeconds:    20,
			SizeLimitBytes:    2_000_000,
			ContextLines:      2,
			MaxSnippetChars:   500,
		},
		Audit: AuditConfig{
			Enabled:       true,
			MaxValueChars: 4000,
			RetentionDays: 30,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// HomeDir returns the RepoScope instance directory. REPOSCOPE_HOME
// overrides the default of ~/.reposcope.
func HomeDir() (string, error) {
	if dir := os.Getenv("REPOSCOPE_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".reposcope"), nil
}

// LoadConfig loads configuration from <home>/config.json.
// A missing config file yields the defaults.
func LoadConfig(home string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 2)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(home)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := DefaultConfig()
			cfg.Home = home
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.Home = home

	return cfg, nil
}

// Save writes the configuration to <home>/config.json
func (c *Config) Save(home string) error {
	if err := os.MkdirAll(home, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(home, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 2 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Grep.MaxTotalMatches <= 0 {
		return &ConfigError{Field: "grep.maxTotalMatches", Message: "must be positive"}
	}
	if c.Scan.MaxResults <= 0 {
		return &ConfigError{Field: "scan.maxResults", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
