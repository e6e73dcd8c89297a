package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// prometheus metrics server
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// requests per minute allowed on mutation routes
	MutationRateLimitAllowedPerMin int `toml:"mutation_rate_limit_allowed_per_min"`

	// IANA zone name used to interpret session day/time inputs
	SessionTimeZone string `toml:"session_time_zone"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

func Load(env, path string) (*Config, error) {
	tomlBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var tomlConfig Toml
	if err := toml.Unmarshal(tomlBytes, &tomlConfig); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	cfg, err := tomlConfig.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config section for env [%s] is empty", env)
	}

	cfg.Environment = env
	if cfg.SessionTimeZone == "" {
		cfg.SessionTimeZone = "Australia/Sydney"
	}
	if cfg.MutationRateLimitAllowedPerMin <= 0 {
		cfg.MutationRateLimitAllowedPerMin = 120
	}

	return cfg, nil
}
