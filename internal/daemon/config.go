// Package daemon holds farecard's configuration: a TOML file in the home
// directory, overlaid by an optional .env file and FARECARD_* variables.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/farecard/farecard/internal/app/decoder"
	"github.com/farecard/farecard/internal/app/station"
)

// Config is the full configuration.
type Config struct {
	Reader   ReaderConfig   `toml:"reader"`
	Stations StationsConfig `toml:"stations"`
	Decoder  DecoderConfig  `toml:"decoder"`
	API      APIConfig      `toml:"api"`
	Log      LogConfig      `toml:"log"`
}

// ReaderConfig selects where history blocks come from.
type ReaderConfig struct {
	DumpPath string `toml:"dump_path"`
}

// StationsConfig locates the station reference table.
type StationsConfig struct {
	CSVPath  string `toml:"csv_path"`
	UseDB    bool   `toml:"use_db"`
	CacheTTL string `toml:"cache_ttl"`
}

// DecoderConfig tunes station suppression and line naming.
type DecoderConfig struct {
	GatelessConsoles []string `toml:"gateless_consoles"`
	GatelessKeywords []string `toml:"gateless_keywords"`
	ExceptionLines   []string `toml:"exception_lines"`
}

// APIConfig configures `farecard serve`.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns working defaults.
func DefaultConfig() Config {
	return Config{
		Stations: StationsConfig{
			CSVPath:  "StationCode.csv",
			UseDB:    false,
			CacheTTL: "10m",
		},
		Decoder: DecoderConfig{
			GatelessConsoles: append([]string(nil), decoder.DefaultGatelessConsoles...),
			GatelessKeywords: append([]string(nil), decoder.DefaultGatelessKeywords...),
			ExceptionLines:   append([]string(nil), station.DefaultExceptionLines...),
		},
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8417,
			Metrics: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Home returns the farecard home directory ($FARECARD_HOME or ~/.farecard).
func Home() string {
	if env := os.Getenv("FARECARD_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".farecard")
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(Home(), "config.toml")
}

// Load reads the config at path (a missing file yields defaults), then
// applies .env and environment overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env is optional; its variables never override the real environment.
	_ = godotenv.Load()

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("FARECARD_DUMP"); v != "" {
		cfg.Reader.DumpPath = v
	}
	if v := os.Getenv("FARECARD_STATIONS_CSV"); v != "" {
		cfg.Stations.CSVPath = v
	}
	if v := os.Getenv("FARECARD_STATIONS_DB"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FARECARD_STATIONS_DB: %w", err)
		}
		cfg.Stations.UseDB = b
	}
	if v := os.Getenv("FARECARD_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FARECARD_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}
	if v := os.Getenv("FARECARD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

// CacheTTLDuration parses CacheTTL; empty or invalid values give 10m,
// and "0" disables the cache.
func (c StationsConfig) CacheTTLDuration() time.Duration {
	if c.CacheTTL == "0" {
		return 0
	}
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d < 0 {
		return 10 * time.Minute
	}
	return d
}

// Addr returns the API listen address.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GatelessRule builds the decoder rule from the configured lists.
func (c DecoderConfig) GatelessRule() decoder.GatelessRule {
	return decoder.KeywordRule(c.GatelessConsoles, c.GatelessKeywords)
}
