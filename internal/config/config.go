package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultAddress     = "127.0.0.1:5037"
	defaultDialTimeout = 5 * time.Second
	defaultLogLevel    = "info"

	// EnvServerAddress overrides the daemon host, following the daemon's own convention.
	EnvServerAddress = "ANDROID_ADB_SERVER_ADDRESS"
	// EnvServerPort overrides the daemon port.
	EnvServerPort = "ANDROID_ADB_SERVER_PORT"
	// EnvOTELEndpoint enables tracing export when set.
	EnvOTELEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"

	configDirName  = ".pradb"
	configFileName = "config.toml"
)

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Config stores runtime settings loaded from TOML files and the environment.
type Config struct {
	Address     string
	DialTimeout time.Duration
	// IOTimeout of zero leaves daemon reads and writes without a deadline.
	IOTimeout    time.Duration
	LogLevel     string
	LogDir       string
	OTELEndpoint string
}

type fileConfig struct {
	Address     *string     `toml:"address"`
	DialTimeout *string     `toml:"dial_timeout"`
	IOTimeout   *string     `toml:"io_timeout"`
	LogLevel    *string     `toml:"log_level"`
	LogDir      *string     `toml:"log_dir"`
	OTEL        *otelConfig `toml:"otel"`
}

type otelConfig struct {
	Endpoint *string `toml:"endpoint"`
}

// Load reads ~/.pradb/config.toml, overlays a project-local .pradb/config.toml,
// then applies environment overrides.
func Load(ctx context.Context) (*Config, error) {
	cfg := Defaults()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	workingDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	for _, path := range Paths(homeDir, workingDir) {
		if err := overlayFromFile(&cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	_ = ctx
	return &cfg, nil
}

// Paths lists config files in overlay order.
func Paths(homeDir, workingDir string) []string {
	return []string{
		filepath.Join(homeDir, configDirName, configFileName),
		filepath.Join(workingDir, configDirName, configFileName),
	}
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Address:     defaultAddress,
		DialTimeout: defaultDialTimeout,
		LogLevel:    defaultLogLevel,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config must not be nil")
	}
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return fmt.Errorf("address %q: %w", c.Address, err)
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("dial_timeout must be > 0, got %s", c.DialTimeout)
	}
	if c.IOTimeout < 0 {
		return fmt.Errorf("io_timeout must be >= 0, got %s", c.IOTimeout)
	}
	if _, ok := validLogLevels[c.LogLevel]; !ok {
		return fmt.Errorf("log_level %q: must be one of debug, info, warn, error", c.LogLevel)
	}
	return nil
}

func overlayFromFile(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("config must not be nil")
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat config file %q: %w", path, err)
	}

	var decoded fileConfig
	meta, err := toml.DecodeFile(path, &decoded)
	if err != nil {
		return fmt.Errorf("decode config file %q: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("parse %s in %q: unsupported key", undecoded[0].String(), path)
	}

	applyScalarOverrides(cfg, decoded)
	return applyDurationOverrides(cfg, decoded, path)
}

func applyScalarOverrides(cfg *Config, decoded fileConfig) {
	if decoded.Address != nil {
		cfg.Address = strings.TrimSpace(*decoded.Address)
	}
	if decoded.LogLevel != nil {
		cfg.LogLevel = normalizeKey(*decoded.LogLevel)
	}
	if decoded.LogDir != nil {
		cfg.LogDir = strings.TrimSpace(*decoded.LogDir)
	}
	if decoded.OTEL != nil && decoded.OTEL.Endpoint != nil {
		cfg.OTELEndpoint = strings.TrimSpace(*decoded.OTEL.Endpoint)
	}
}

func applyDurationOverrides(cfg *Config, decoded fileConfig, path string) error {
	if decoded.DialTimeout != nil {
		value, err := parseDuration(*decoded.DialTimeout, "dial_timeout", path)
		if err != nil {
			return err
		}
		cfg.DialTimeout = value
	}
	if decoded.IOTimeout != nil {
		value, err := parseDuration(*decoded.IOTimeout, "io_timeout", path)
		if err != nil {
			return err
		}
		cfg.IOTimeout = value
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	host, port, err := net.SplitHostPort(cfg.Address)
	if err != nil {
		return fmt.Errorf("address %q: %w", cfg.Address, err)
	}
	if value := strings.TrimSpace(os.Getenv(EnvServerAddress)); value != "" {
		host = value
	}
	if value := strings.TrimSpace(os.Getenv(EnvServerPort)); value != "" {
		n, err := strconv.ParseUint(value, 10, 16)
		if err != nil || n == 0 {
			return fmt.Errorf("parse %s=%q: must be a port number", EnvServerPort, value)
		}
		port = value
	}
	cfg.Address = net.JoinHostPort(host, port)

	if value := strings.TrimSpace(os.Getenv(EnvOTELEndpoint)); value != "" {
		cfg.OTELEndpoint = value
	}
	return nil
}

func parseDuration(value, key, path string) (time.Duration, error) {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse %s in %q: %w", key, path, err)
	}
	return parsed, nil
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
