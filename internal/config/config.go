package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Auth     AuthConfig     `koanf:"auth"`
	Jikan    JikanConfig    `koanf:"jikan"`
	Reminder ReminderConfig `koanf:"reminder"`
	SMTP     SMTPConfig     `koanf:"smtp"`
	Log      LogConfig      `koanf:"log"`
	CORS     CORSConfig     `koanf:"cors"`
}

type ServerConfig struct {
	Port            string        `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL      string `koanf:"url"`
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	SSLMode  string `koanf:"sslmode"`
}

// DSN returns the URL form accepted by both pgx and lib/pq.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
	Issuer    string        `koanf:"issuer"`
}

type JikanConfig struct {
	BaseURL    string        `koanf:"base_url"`
	Timeout    time.Duration `koanf:"timeout"`
	RateLimit  time.Duration `koanf:"rate_limit"`
	MaxRetries int           `koanf:"max_retries"`
	RetryDelay time.Duration `koanf:"retry_delay"`
}

type ReminderConfig struct {
	Interval  time.Duration `koanf:"interval"`
	BatchSize int           `koanf:"batch_size"`
}

type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type CORSConfig struct {
	Origins string `koanf:"origins"`
}

func (c CORSConfig) AllowOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.Origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Load reads an optional YAML file and then overrides it with environment
// variables. SERVER_PORT maps to server.port, AUTH_JWT_SECRET to
// auth.jwt_secret, and so on: the first underscore separates the section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func envKey(s string) string {
	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func applyDefaults(cfg *Config) {
	setDefault(&cfg.Server.Port, GetEnv("PORT", "8080"))
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	setDefault(&cfg.Database.Host, "localhost")
	setDefault(&cfg.Database.Port, "5432")
	setDefault(&cfg.Database.User, "postgres")
	setDefault(&cfg.Database.Name, "anitrack")
	setDefault(&cfg.Database.SSLMode, "disable")

	setDefault(&cfg.Redis.Addr, "localhost:6379")

	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	setDefault(&cfg.Auth.Issuer, "anitrack")

	setDefault(&cfg.Jikan.BaseURL, "https://api.jikan.moe/v4")
	if cfg.Jikan.Timeout <= 0 {
		cfg.Jikan.Timeout = 30 * time.Second
	}
	if cfg.Jikan.RateLimit <= 0 {
		cfg.Jikan.RateLimit = time.Second
	}
	if cfg.Jikan.MaxRetries <= 0 {
		cfg.Jikan.MaxRetries = 3
	}
	if cfg.Jikan.RetryDelay <= 0 {
		cfg.Jikan.RetryDelay = 2 * time.Second
	}

	if cfg.Reminder.Interval <= 0 {
		cfg.Reminder.Interval = time.Minute
	}
	if cfg.Reminder.BatchSize <= 0 {
		cfg.Reminder.BatchSize = 50
	}

	setDefault(&cfg.SMTP.Port, "587")
	setDefault(&cfg.Log.Level, "info")
	setDefault(&cfg.CORS.Origins, "http://localhost:5173")
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (AUTH_JWT_SECRET) is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}
	if c.SMTP.Enabled() && c.SMTP.From == "" {
		return fmt.Errorf("smtp.from is required when smtp.host is set")
	}
	return nil
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// GetEnv retrieves values from environment files based on the key it matches,
// returns a string (value) if not empty
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
