// Package config loads dashsync settings from an optional .env file and the
// process environment. Every variable is prefixed with DASHSYNC_.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

const EnvPrefix = "DASHSYNC_"

const (
	ProviderMemory    = "memory"
	ProviderRistretto = "ristretto"
	ProviderBigcache  = "bigcache"
	ProviderRedis     = "redis"

	LogLogrus = "logrus"
	LogZap    = "zap"
	LogSlog   = "slog"
)

type Config struct {
	APIURL     string        `env:"API_URL" envDefault:"http://localhost:8000/api"`
	APITimeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	APIToken   string        `env:"API_TOKEN"`

	Provider   string        `env:"PROVIDER" envDefault:"memory"`
	Codec      string        `env:"CODEC" envDefault:"json"`
	MaxEntries int64         `env:"MAX_ENTRIES" envDefault:"10000"`
	Retention  time.Duration `env:"RETENTION" envDefault:"1h"`
	Disabled   bool          `env:"CACHE_DISABLED"`
	MaxDecode  int           `env:"MAX_DECODE" envDefault:"4194304"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"dashsync:"`

	LogBackend string `env:"LOG" envDefault:"logrus"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	// LogHooks routes cache events through slog on a background worker.
	LogHooks bool `env:"LOG_HOOKS"`

	// TTLFile optionally overrides per-family read TTLs, see LoadTTLs.
	TTLFile string `env:"TTL_FILE"`
}

// Load reads envFile (if it exists) into the environment without overriding
// variables already set, then parses the environment. An empty envFile skips
// the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.LogBackend = strings.ToLower(strings.TrimSpace(cfg.LogBackend))
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.APIURL == "" {
		errs = append(errs, errors.New("API_URL is empty"))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, errors.New("API_TIMEOUT must be positive"))
	}
	switch c.Provider {
	case ProviderMemory, ProviderRistretto, ProviderBigcache, ProviderRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown PROVIDER %q", c.Provider))
	}
	switch c.LogBackend {
	case LogLogrus, LogZap, LogSlog:
	default:
		errs = append(errs, fmt.Errorf("unknown LOG %q", c.LogBackend))
	}
	if c.Provider == ProviderRistretto && c.MaxEntries <= 0 {
		errs = append(errs, errors.New("MAX_ENTRIES must be positive for ristretto"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// CheckTTLs rejects read TTLs longer than Retention: the provider would drop
// such entries before they go stale. Later tables override earlier ones, as in
// dashboard.Options.TTLs over the defaults.
func (c Config) CheckTTLs(tables ...map[string]time.Duration) error {
	if c.Retention <= 0 {
		return nil
	}
	merged := map[string]time.Duration{}
	for _, t := range tables {
		for family, d := range t {
			merged[family] = d
		}
	}
	families := make([]string, 0, len(merged))
	for family := range merged {
		families = append(families, family)
	}
	sort.Strings(families)

	var errs []error
	for _, family := range families {
		if d := merged[family]; d > c.Retention {
			errs = append(errs, fmt.Errorf("%s: ttl %s exceeds RETENTION %s", family, d, c.Retention))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("ttl table: %w", err)
	}
	return nil
}

// LoadTTLs reads a YAML map of key family to Go duration string:
//
//	dashboard: 30s
//	ohlcv: 5m
//
// A missing path returns an empty map.
func LoadTTLs(path string) (map[string]time.Duration, error) {
	if path == "" {
		return map[string]time.Duration{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]time.Duration{}, nil
		}
		return nil, err
	}
	return ParseTTLs(b)
}

func ParseTTLs(b []byte) (map[string]time.Duration, error) {
	raw := map[string]string{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("ttl table: %w", err)
	}
	out := make(map[string]time.Duration, len(raw))
	for family, s := range raw {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("ttl table: %s: %w", family, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("ttl table: %s: ttl must be positive", family)
		}
		out[family] = d
	}
	return out, nil
}
