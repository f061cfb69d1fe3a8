package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Port           string `mapstructure:"PORT"`
	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	DataDir        string `mapstructure:"DATA_DIR"`

	DBDriver   string `mapstructure:"DB_DRIVER"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`

	RedisHost      string `mapstructure:"REDIS_HOST"`
	RedisPort      string `mapstructure:"REDIS_PORT"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int    `mapstructure:"REDIS_DB"`
	RedisNamespace string `mapstructure:"REDIS_NAMESPACE"`

	CacheEnabled bool          `mapstructure:"CACHE_ENABLED"`
	CacheTTL     time.Duration `mapstructure:"CACHE_TTL"`

	RateLimit  int           `mapstructure:"RATE_LIMIT"`
	RateWindow time.Duration `mapstructure:"RATE_WINDOW"`

	RolloverInterval time.Duration `mapstructure:"ROLLOVER_INTERVAL"`

	Timezone       string `mapstructure:"TIMEZONE"`
	CatalogDir     string `mapstructure:"CATALOG_DIR"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
}

var defaults = map[string]any{
	"PORT":              "8080",
	"STORAGE_BACKEND":   BackendFile,
	"DATA_DIR":          "./data",
	"DB_DRIVER":         "pgx",
	"DB_HOST":           "localhost",
	"DB_PORT":           "5432",
	"DB_USER":           "",
	"DB_PASSWORD":       "",
	"DB_NAME":           "",
	"REDIS_HOST":        "localhost",
	"REDIS_PORT":        "6379",
	"REDIS_PASSWORD":    "",
	"REDIS_DB":          0,
	"REDIS_NAMESPACE":   "kanso",
	"CACHE_ENABLED":     false,
	"CACHE_TTL":         "30m",
	"RATE_LIMIT":        0,
	"RATE_WINDOW":       "1m",
	"ROLLOVER_INTERVAL": "15m",
	"TIMEZONE":          "Local",
	"CATALOG_DIR":       "",
	"ALLOWED_ORIGINS":   "*",
}

// LoadConfig reads path/.env and path/app.env when present, then the
// environment, which always wins.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	if err := godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read app.env: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory, BackendFile, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("%w: unknown STORAGE_BACKEND %q", ErrInvalidConfig, c.StorageBackend)
	}

	if c.StorageBackend == BackendFile && c.DataDir == "" {
		return fmt.Errorf("%w: DATA_DIR is required for the file backend", ErrInvalidConfig)
	}
	if c.StorageBackend == BackendPostgres && (c.DBUser == "" || c.DBName == "") {
		return fmt.Errorf("%w: DB_USER and DB_NAME are required for the postgres backend", ErrInvalidConfig)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: RATE_LIMIT must not be negative", ErrInvalidConfig)
	}
	if c.RateLimit > 0 && c.RateWindow <= 0 {
		return fmt.Errorf("%w: RATE_WINDOW must be positive", ErrInvalidConfig)
	}
	if c.RolloverInterval <= 0 {
		return fmt.Errorf("%w: ROLLOVER_INTERVAL must be positive", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// NeedsRedis reports whether any enabled component talks to Redis.
func (c Config) NeedsRedis() bool {
	return c.StorageBackend == BackendRedis || c.CacheEnabled || c.RateLimit > 0
}

// Location is the time zone that decides what "today" is.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
