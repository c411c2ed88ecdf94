// Package config provides configuration types, defaults, and loading for roster.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/naveenspark/roster/internal/log"
	"github.com/naveenspark/roster/internal/tracing"
)

// Backends.
const (
	BackendFirebase = "firebase"
	BackendMemory   = "memory"
)

// Config holds all configuration options for roster.
type Config struct {
	// Backend selects the remote services: "firebase" or "memory" (in-process demo).
	Backend     string         `mapstructure:"backend" yaml:"backend"`
	Firebase    FirebaseConfig `mapstructure:"firebase" yaml:"firebase"`
	HTTPTimeout time.Duration  `mapstructure:"http_timeout" yaml:"http_timeout"`
	SessionFile string         `mapstructure:"session_file" yaml:"session_file"`
	CacheTTL    time.Duration  `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	LogFile     string         `mapstructure:"log_file" yaml:"log_file"`
	Debug       bool           `mapstructure:"debug" yaml:"debug"`
	Tracing     tracing.Config `mapstructure:"tracing" yaml:"tracing"`
	UI          UIConfig       `mapstructure:"ui" yaml:"ui"`
}

// FirebaseConfig locates the hosted identity service and database.
type FirebaseConfig struct {
	APIKey      string `mapstructure:"api_key" yaml:"api_key"`
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url"`
	// AuthURL and TokenURL override the hosted endpoints, e.g. for an emulator.
	AuthURL  string `mapstructure:"auth_url" yaml:"auth_url,omitempty"`
	TokenURL string `mapstructure:"token_url" yaml:"token_url,omitempty"`
}

// UIConfig holds user interface options.
type UIConfig struct {
	// HighlightColor marks students in the viewer's department (hex, e.g. "#10B981").
	HighlightColor string `mapstructure:"highlight_color" yaml:"highlight_color"`
}

// Dir returns roster's per-user directory (~/.roster).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".roster"
	}
	return filepath.Join(home, ".roster")
}

// UserConfigPath is where the default config file is written on first run.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".roster", "config.yaml")
	}
	return filepath.Join(home, ".config", "roster", "config.yaml")
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	tc := tracing.DefaultConfig()
	tc.FilePath = filepath.Join(Dir(), "traces.jsonl")
	return Config{
		Backend:     BackendFirebase,
		HTTPTimeout: 30 * time.Second,
		SessionFile: filepath.Join(Dir(), "session.yaml"),
		CacheTTL:    5 * time.Minute,
		LogFile:     filepath.Join(Dir(), "debug.log"),
		Tracing:     tc,
		UI:          UIConfig{HighlightColor: "#10B981"},
	}
}

// Validate checks the loaded configuration for values no component can use.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendFirebase:
		if strings.TrimSpace(c.Firebase.APIKey) == "" {
			return fmt.Errorf("firebase.api_key is required for the firebase backend (set ROSTER_FIREBASE_API_KEY)")
		}
		if strings.TrimSpace(c.Firebase.DatabaseURL) == "" {
			return fmt.Errorf("firebase.database_url is required for the firebase backend (set ROSTER_FIREBASE_DATABASE_URL)")
		}
		if u, err := url.Parse(c.Firebase.DatabaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("firebase.database_url must be an absolute URL, got %q", c.Firebase.DatabaseURL)
		}
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", BackendFirebase, BackendMemory, c.Backend)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive, got %v", c.HTTPTimeout)
	}
	if c.SessionFile == "" {
		return fmt.Errorf("session_file is required")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative, got %v", c.CacheTTL)
	}
	return ValidateTracing(c.Tracing)
}

// ValidateTracing checks the tracing section.
func ValidateTracing(tc tracing.Config) error {
	if tc.SampleRate < 0.0 || tc.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tc.SampleRate)
	}
	switch tc.Exporter {
	case "", "none", "file", "stdout", "otlp":
	default:
		return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tc.Exporter)
	}
	if tc.Enabled && tc.Exporter == "file" && tc.FilePath == "" {
		return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
	}
	return nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// DefaultConfigYAML renders Defaults with the secrets left blank for the user to fill in.
func DefaultConfigYAML() ([]byte, error) {
	out, err := yaml.Marshal(Defaults())
	if err != nil {
		return nil, fmt.Errorf("config.DefaultConfigYAML: %w", err)
	}
	header := "# roster configuration\n" +
		"# Environment variables override any key: ROSTER_<SECTION>_<KEY>, e.g. ROSTER_FIREBASE_API_KEY.\n"
	return append([]byte(header), out...), nil
}

// WriteDefaultConfig writes the default config to configPath, creating parent directories.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := DefaultConfigYAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "created default config", "path", configPath)
	return nil
}
