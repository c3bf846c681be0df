package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Sync modes for outbound spreadsheet writes.
const (
	SyncModeInline = "inline"
	SyncModeAsync  = "async"
)

// Cache drivers backing the on-device collection store.
const (
	CacheDriverSQLite   = "sqlite"
	CacheDriverPostgres = "postgres"
	CacheDriverRedis    = "redis"
	CacheDriverMemory   = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Sheets      SheetsConfig
	Sync        SyncConfig
	Cache       CacheConfig
	Certificate CertificateConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SheetsConfig points at the spreadsheet web app acting as the system of record.
type SheetsConfig struct {
	URL     string
	Timeout time.Duration
}

// SyncConfig tunes how writes are pushed upstream.
type SyncConfig struct {
	Mode       string
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// CacheConfig selects the local collection store.
type CacheConfig struct {
	Driver     string
	SQLitePath string
}

// CertificateConfig customises rendered certificates.
type CertificateConfig struct {
	Locale string
	Title  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Sheets = SheetsConfig{
		URL:     strings.TrimSpace(v.GetString("SHEETS_API_URL")),
		Timeout: parseDuration(v.GetString("SHEETS_TIMEOUT"), 15*time.Second),
	}

	mode := strings.ToLower(strings.TrimSpace(v.GetString("SYNC_MODE")))
	if mode != SyncModeAsync {
		mode = SyncModeInline
	}
	workers := v.GetInt("SYNC_WORKERS")
	if workers <= 0 {
		workers = 1
	}
	buffer := v.GetInt("SYNC_BUFFER")
	if buffer <= 0 {
		buffer = 16
	}
	retries := v.GetInt("SYNC_RETRIES")
	if retries < 0 {
		retries = 0
	}
	cfg.Sync = SyncConfig{
		Mode:       mode,
		Workers:    workers,
		BufferSize: buffer,
		MaxRetries: retries,
		RetryDelay: parseDuration(v.GetString("SYNC_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Cache = CacheConfig{
		Driver:     normaliseDriver(v.GetString("CACHE_DRIVER")),
		SQLitePath: v.GetString("CACHE_SQLITE_PATH"),
	}

	cfg.Certificate = CertificateConfig{
		Locale: v.GetString("CERT_LOCALE"),
		Title:  v.GetString("CERT_TITLE"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "senja_literasi")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "senja-literasi")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SHEETS_API_URL", "")
	v.SetDefault("SHEETS_TIMEOUT", "15s")

	v.SetDefault("SYNC_MODE", SyncModeInline)
	v.SetDefault("SYNC_WORKERS", 1)
	v.SetDefault("SYNC_BUFFER", 16)
	v.SetDefault("SYNC_RETRIES", 0)
	v.SetDefault("SYNC_RETRY_DELAY", "2s")

	v.SetDefault("CACHE_DRIVER", CacheDriverSQLite)
	v.SetDefault("CACHE_SQLITE_PATH", "./data/senja-cache.sqlite")

	v.SetDefault("CERT_LOCALE", "id")
	v.SetDefault("CERT_TITLE", "SERTIFIKAT LITERASI")
}

func normaliseDriver(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case CacheDriverPostgres:
		return CacheDriverPostgres
	case CacheDriverRedis:
		return CacheDriverRedis
	case CacheDriverMemory:
		return CacheDriverMemory
	default:
		return CacheDriverSQLite
	}
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
