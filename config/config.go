package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // session-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN string `yaml:"dsn"`
}

type Auth struct {
	// Секрет для проверки JWT экзаменатора (HS256). Токены выпускает auth-подсистема.
	JWTSecret string `yaml:"jwtSecret"`
	Issuer    string `yaml:"issuer"`
}

type Presence struct {
	SweepInterval string `yaml:"sweepInterval"` // период фоновой сверки, default 5m
	GraceWindow   string `yaml:"graceWindow"`   // свежие строки не считаются ghost-ами, default 30s
}

type RateLimit struct {
	Window string `yaml:"window"` // default 60s
	Max    int    `yaml:"max"`    // default 20
}

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	Logging   Logging   `yaml:"logging"`
	Postgres  Postgres  `yaml:"postgres"`
	Auth      Auth      `yaml:"auth"`
	Presence  Presence  `yaml:"presence"`
	RateLimit RateLimit `yaml:"rateLimit"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret is required")
	}
	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "session-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.RateLimit.Max <= 0 {
		c.RateLimit.Max = 20
	}
	return nil
}

func (c *Config) SweepInterval() time.Duration {
	return parseDurationOr(5*time.Minute, c.Presence.SweepInterval)
}

func (c *Config) GraceWindow() time.Duration {
	return parseDurationOr(30*time.Second, c.Presence.GraceWindow)
}

func (c *Config) RateLimitWindow() time.Duration {
	return parseDurationOr(60*time.Second, c.RateLimit.Window)
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
