package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment variable the client reads
const EnvPrefix = "REQUISITION_"

// ConfigFileEnv names a YAML config file when --config is not given
const ConfigFileEnv = EnvPrefix + "CONFIG"

// Store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config is the complete client configuration
type Config struct {
	Backend BackendConfig `yaml:"backend" envPrefix:"BACKEND_"`
	Store   StoreConfig   `yaml:"store" envPrefix:"STORE_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
}

// BackendConfig configures the REST client
type BackendConfig struct {
	BaseURL    string        `yaml:"base_url" env:"URL"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
	AuthScheme string        `yaml:"auth_scheme" env:"AUTH_SCHEME"`
	RateLimit  float64       `yaml:"rate_limit" env:"RATE_LIMIT"`
	Burst      int           `yaml:"burst" env:"BURST"`
	MaxRetries uint          `yaml:"max_retries" env:"MAX_RETRIES"`
	RetryWait  time.Duration `yaml:"retry_wait" env:"RETRY_WAIT"`
}

// StoreConfig selects where the token and cart are persisted
type StoreConfig struct {
	Driver        string `yaml:"driver" env:"DRIVER"`
	Path          string `yaml:"path" env:"PATH"`
	DSN           string `yaml:"dsn" env:"DSN"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
	Prefix        string `yaml:"prefix" env:"PREFIX"`
}

// LogConfig configures the logrus logger
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL:    "http://127.0.0.1:8000/api/",
			Timeout:    5 * time.Second,
			AuthScheme: "Token",
			Burst:      1,
			MaxRetries: 2,
			RetryWait:  200 * time.Millisecond,
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
			Path:   DefaultStorePath(),
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// DefaultStorePath is the SQLite file under the user's config directory
func DefaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".requisition", "state.db")
	}
	return filepath.Join(dir, "requisition", "state.db")
}

// Sources names where Load reads from. Environ nil means the process
// environment.
type Sources struct {
	File    string
	DotEnv  string
	Environ map[string]string
}

// Load layers defaults, the YAML file, the .env file and the environment, in
// that order, and validates the result. A missing .env file is ignored; a
// missing YAML file is an error only when one was named explicitly.
func Load(src Sources) (Config, error) {
	cfg := Default()

	environ := src.Environ
	if environ == nil {
		environ = processEnviron()
	}

	if src.DotEnv != "" {
		values, err := godotenv.Read(src.DotEnv)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("failed to read %s: %w", src.DotEnv, err)
		default:
			merged := make(map[string]string, len(values)+len(environ))
			for k, v := range values {
				merged[k] = v
			}
			for k, v := range environ {
				merged[k] = v
			}
			environ = merged
		}
	}

	file := src.File
	if file == "" {
		file = environ[ConfigFileEnv]
	}
	if file != "" {
		if err := readYAML(file, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func processEnviron() map[string]string {
	environ := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			environ[k] = v
		}
	}
	return environ
}

// Validate reports the first invalid setting
func (c Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base url cannot be empty")
	}
	parsed, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("backend base url %q must be an absolute http or https url", c.Backend.BaseURL)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive, got %s", c.Backend.Timeout)
	}
	if c.Backend.RateLimit < 0 {
		return fmt.Errorf("backend rate limit cannot be negative, got %v", c.Backend.RateLimit)
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store dsn is required for the postgres driver")
		}
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store redis address is required for the redis driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q: must be sqlite, postgres, redis or memory", c.Store.Driver)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format %q: must be text or json", c.Log.Format)
	}
	return nil
}
