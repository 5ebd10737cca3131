package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shakthivel10/FSND/internal/database"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

type ServerConfig struct {
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig describes where signing keys come from and which claims a
// token must carry. Domain is a shortcut for an Auth0-style tenant: when
// JWKSURL or Issuer are empty they are derived from it.
type AuthConfig struct {
	Domain                 string   `mapstructure:"domain"`
	JWKSURL                string   `mapstructure:"jwks_url"`
	Issuer                 string   `mapstructure:"issuer"`
	Audience               string   `mapstructure:"audience"`
	Algorithms             []string `mapstructure:"algorithms"`
	Leeway                 string   `mapstructure:"leeway"`
	JWKSCacheTTL           string   `mapstructure:"jwks_cache_ttl"`
	JWKSMaxStale           string   `mapstructure:"jwks_max_stale"`
	JWKSMinRefreshInterval string   `mapstructure:"jwks_min_refresh_interval"`
	JWKSFetchTimeout       string   `mapstructure:"jwks_fetch_timeout"`
}

type RateLimitConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BucketSize int  `mapstructure:"bucket_size"`
	RefillRate int  `mapstructure:"refill_rate"`
	Window     int  `mapstructure:"window_seconds"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// AuthDurations holds the parsed duration settings of AuthConfig.
type AuthDurations struct {
	Leeway                 time.Duration
	JWKSCacheTTL           time.Duration
	JWKSMaxStale           time.Duration
	JWKSMinRefreshInterval time.Duration
	JWKSFetchTimeout       time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "coffeeshop")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.domain", "")
	v.SetDefault("auth.jwks_url", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.algorithms", []string{"RS256"})
	v.SetDefault("auth.leeway", "0s")
	v.SetDefault("auth.jwks_cache_ttl", "1h")
	v.SetDefault("auth.jwks_max_stale", "15m")
	v.SetDefault("auth.jwks_min_refresh_interval", "10s")
	v.SetDefault("auth.jwks_fetch_timeout", "5s")
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.bucket_size", 100)
	v.SetDefault("rate_limit.refill_rate", 10)
	v.SetDefault("rate_limit.window_seconds", 1)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file_path", "logs/app.log")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("cors.allow_origins", []string{"*"})
}

func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from path, or from config.yaml in the
// working directory or ./config when path is empty. Environment variables
// (optionally from a .env file) override file values, e.g. AUTH_AUDIENCE.
func LoadWithPath(path string) (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.Auth.applyDomain()

	return config, nil
}

func (a *AuthConfig) applyDomain() {
	domain := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(a.Domain), "https://"), "/")
	if domain == "" {
		return
	}
	if a.JWKSURL == "" {
		a.JWKSURL = "https://" + domain + "/.well-known/jwks.json"
	}
	if a.Issuer == "" {
		a.Issuer = "https://" + domain + "/"
	}
}

// ParseDurations parses the flexible duration strings of the auth section.
func (a AuthConfig) ParseDurations() (*AuthDurations, error) {
	leeway, err := ParseFlexibleDuration(a.Leeway)
	if err != nil {
		return nil, fmt.Errorf("invalid auth.leeway: %w", err)
	}
	ttl, err := ParseFlexibleDuration(a.JWKSCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid auth.jwks_cache_ttl: %w", err)
	}
	maxStale, err := ParseFlexibleDuration(a.JWKSMaxStale)
	if err != nil {
		return nil, fmt.Errorf("invalid auth.jwks_max_stale: %w", err)
	}
	minRefresh, err := ParseFlexibleDuration(a.JWKSMinRefreshInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid auth.jwks_min_refresh_interval: %w", err)
	}
	timeout, err := ParseFlexibleDuration(a.JWKSFetchTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid auth.jwks_fetch_timeout: %w", err)
	}
	return &AuthDurations{
		Leeway:                 leeway,
		JWKSCacheTTL:           ttl,
		JWKSMaxStale:           maxStale,
		JWKSMinRefreshInterval: minRefresh,
		JWKSFetchTimeout:       timeout,
	}, nil
}

// ParseFlexibleDuration parses Go durations plus the "d" (day) and "w"
// (week) suffixes, e.g. "2d" or "1w".
func ParseFlexibleDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	unit := s[len(s)-1]
	switch unit {
	case 'd', 'w':
		n, err := strconv.Atoi(s[:len(s)-1])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		day := 24 * time.Hour
		if unit == 'w' {
			return time.Duration(n) * 7 * day, nil
		}
		return time.Duration(n) * day, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

// RedisAddr returns host:port for the redis client.
func (c RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ToDBConfig converts DatabaseConfig to database.Config
func (c DatabaseConfig) ToDBConfig() database.Config {
	return database.Config{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		DBName:   c.DBName,
		SSLMode:  c.SSLMode,
	}
}
