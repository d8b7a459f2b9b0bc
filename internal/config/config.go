// Package config loads engine configuration from the environment, or from a
// YAML file for deployments that prefer one. Defaults are filled in either
// way.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration.
type Config struct {
	Environment string `env:"APP_ENV,default=development" yaml:"environment"`

	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// HTTPConfig configures the REST listener.
type HTTPConfig struct {
	Addr            string        `env:"HTTP_ADDR,default=:8080" yaml:"addr"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT,default=15s" yaml:"read_timeout"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT,default=30s" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT,default=10s" yaml:"shutdown_timeout"`
	RateLimitRPS    float64       `env:"HTTP_RATE_LIMIT_RPS,default=25" yaml:"rate_limit_rps"`
	RateLimitBurst  int           `env:"HTTP_RATE_LIMIT_BURST,default=50" yaml:"rate_limit_burst"`
	JWTSecret       string        `env:"HTTP_JWT_SECRET" yaml:"jwt_secret"`
}

// DatabaseConfig configures PostgreSQL. An empty URL selects the in-memory
// store.
type DatabaseConfig struct {
	URL          string        `env:"DATABASE_URL" yaml:"url"`
	MaxOpenConns int           `env:"DATABASE_MAX_OPEN_CONNS,default=25" yaml:"max_open_conns"`
	MaxIdleConns int           `env:"DATABASE_MAX_IDLE_CONNS,default=5" yaml:"max_idle_conns"`
	ConnLifetime time.Duration `env:"DATABASE_CONN_LIFETIME,default=30m" yaml:"conn_lifetime"`
}

// RedisConfig configures the optional read-model cache. An empty Addr
// disables it.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR" yaml:"addr"`
	Password string        `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int           `env:"REDIS_DB,default=0" yaml:"db"`
	TTL      time.Duration `env:"REDIS_TTL,default=5m" yaml:"ttl"`
}

// LoggingConfig configures the logrus-backed logger.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL,default=info" yaml:"level"`
	Format string `env:"LOG_FORMAT,default=json" yaml:"format"`
	Output string `env:"LOG_OUTPUT,default=stdout" yaml:"output"`
}

// SchedulerConfig configures the automatic draw cycle. The flag is phrased
// as Disabled so the zero value means "on" under both the env and the YAML
// load paths.
type SchedulerConfig struct {
	Disabled bool   `env:"SCHEDULER_DISABLED,default=false" yaml:"disabled"`
	Timezone string `env:"SCHEDULER_TIMEZONE,default=Asia/Manila" yaml:"timezone"`
}

// Enabled reports whether the draw scheduler should run.
func (c SchedulerConfig) Enabled() bool { return !c.Disabled }

// Load reads configuration from the environment, loading a .env file first
// when one exists.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	return cfg, nil
}

// LoadFile reads a YAML configuration file and fills unset values with the
// same defaults Load uses.
func LoadFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.HTTP.RateLimitRPS == 0 {
		c.HTTP.RateLimitRPS = 25
	}
	if c.HTTP.RateLimitBurst == 0 {
		c.HTTP.RateLimitBurst = 50
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnLifetime == 0 {
		c.Database.ConnLifetime = 30 * time.Minute
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 5 * time.Minute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = "Asia/Manila"
	}
}

// Location resolves the scheduler timezone, falling back to the fixed
// UTC+8 offset the lottery operates in.
func (c SchedulerConfig) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.FixedZone("PHT", 8*3600)
}
