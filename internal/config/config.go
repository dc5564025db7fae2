package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Room
	RoomCapacity      = 2
	DefaultRoomTTL    = 10 * time.Minute
	DefaultSweepEvery = 30 * time.Second

	// Input limits
	MaxUsernameRunes = 32
	MaxMessageRunes  = 2000
	MaxFrameBytes    = 64 << 10

	// Ledger backends
	LedgerMemory = "memory"
	LedgerRedis  = "redis"
)

type Config struct {
	Env      string `yaml:"env"`
	HTTPAddr string `yaml:"httpAddr"`

	RoomTTL       time.Duration `yaml:"roomTTL"`
	SweepInterval time.Duration `yaml:"sweepInterval"`

	LedgerBackend   string        `yaml:"ledgerBackend"`   // memory|redis
	LedgerRetention time.Duration `yaml:"ledgerRetention"` // 0 = process lifetime

	RedisAddr string `yaml:"redisAddr"`
	RedisDB   int    `yaml:"redisDB"`

	// PGDSN enables the room archive when set.
	PGDSN string `yaml:"pgDSN"`

	AdminSecret string   `yaml:"adminSecret"`
	CORSAllow   []string `yaml:"corsAllow"`

	LogBackend string `yaml:"logBackend"` // std|zap
	LogDebug   bool   `yaml:"logDebug"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Env:           "dev",
		HTTPAddr:      ":8080",
		RoomTTL:       DefaultRoomTTL,
		SweepInterval: DefaultSweepEvery,
		LedgerBackend: LedgerMemory,
		RedisAddr:     "localhost:6379",
		CORSAllow:     []string{"*"},
		LogBackend:    "std",
	}
}

// Load builds the config from defaults, an optional YAML file at
// CONFIG_PATH, then environment variables, in that order.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.LedgerBackend = getEnv("LEDGER_BACKEND", cfg.LedgerBackend)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.PGDSN = getEnv("PG_DSN", cfg.PGDSN)
	cfg.AdminSecret = getEnv("ADMIN_SECRET", cfg.AdminSecret)
	cfg.LogBackend = getEnv("LOG_BACKEND", cfg.LogBackend)
	if v := os.Getenv("CORS_ALLOW"); v != "" {
		cfg.CORSAllow = splitCSV(v)
	}

	var err error
	if cfg.RoomTTL, err = getEnvDuration("ROOM_TTL", cfg.RoomTTL); err != nil {
		return err
	}
	if cfg.SweepInterval, err = getEnvDuration("SWEEP_INTERVAL", cfg.SweepInterval); err != nil {
		return err
	}
	if cfg.LedgerRetention, err = getEnvDuration("LEDGER_RETENTION", cfg.LedgerRetention); err != nil {
		return err
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if cfg.RedisDB, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
	}
	if v := os.Getenv("LOG_DEBUG"); v != "" {
		if cfg.LogDebug, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("LOG_DEBUG: %w", err)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("httpAddr is required")
	}
	if c.RoomTTL <= 0 {
		return errors.New("roomTTL must be positive")
	}
	if c.SweepInterval <= 0 {
		return errors.New("sweepInterval must be positive")
	}
	if c.LedgerRetention < 0 {
		return errors.New("ledgerRetention must not be negative")
	}
	switch c.LedgerBackend {
	case LedgerMemory:
	case LedgerRedis:
		if c.RedisAddr == "" {
			return errors.New("redisAddr is required for the redis ledger")
		}
	default:
		return fmt.Errorf("unknown ledgerBackend %q", c.LedgerBackend)
	}
	switch c.LogBackend {
	case "std", "zap":
	default:
		return fmt.Errorf("unknown logBackend %q", c.LogBackend)
	}
	return nil
}

// getEnv returns the env var or a default
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

// splitCSV trims and filters a comma-separated list
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
