package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/naveenspark/roster/internal/log"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ROSTER"

// ProjectConfigPath is checked before the user config.
const ProjectConfigPath = ".roster/config.yaml"

// Options control Load.
type Options struct {
	// ConfigFile is an explicit config path (the --config flag).
	ConfigFile string
	// EnvFile is loaded into the environment before reading; missing is fine.
	EnvFile string
	// WriteDefault writes UserConfigPath when no config file exists.
	WriteDefault bool
}

// Load reads configuration from defaults, the config file, .env and ROSTER_*
// environment variables, in increasing precedence. It returns the config and
// the path of the file used ("" when none).
func Load(v *viper.Viper, opts Options) (Config, string, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, "", fmt.Errorf("config.Load: reading %s: %w", opts.EnvFile, err)
		}
	}

	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case opts.ConfigFile != "":
		v.SetConfigFile(ExpandHome(opts.ConfigFile))
	case fileExists(ProjectConfigPath):
		v.SetConfigFile(ProjectConfigPath)
	default:
		v.AddConfigPath(filepath.Dir(UserConfigPath()))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, "", fmt.Errorf("config.Load: %w", err)
		}
		log.Debug(log.CatConfig, "no config file found, using defaults")
		if opts.WriteDefault {
			path := UserConfigPath()
			if writeErr := WriteDefaultConfig(path); writeErr == nil {
				v.SetConfigFile(path)
				_ = v.ReadInConfig()
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("config.Load: decode: %w", err)
	}
	cfg.SessionFile = ExpandHome(cfg.SessionFile)
	cfg.LogFile = ExpandHome(cfg.LogFile)
	cfg.Tracing.FilePath = ExpandHome(cfg.Tracing.FilePath)

	used := v.ConfigFileUsed()
	log.Info(log.CatConfig, "config loaded", "file", used, "backend", cfg.Backend)
	return cfg, used, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("backend", d.Backend)
	v.SetDefault("firebase.api_key", d.Firebase.APIKey)
	v.SetDefault("firebase.database_url", d.Firebase.DatabaseURL)
	v.SetDefault("firebase.auth_url", d.Firebase.AuthURL)
	v.SetDefault("firebase.token_url", d.Firebase.TokenURL)
	v.SetDefault("http_timeout", d.HTTPTimeout)
	v.SetDefault("session_file", d.SessionFile)
	v.SetDefault("cache_ttl", d.CacheTTL)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("ui.highlight_color", d.UI.HighlightColor)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
