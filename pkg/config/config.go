package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Auth      AuthConfig
	Bulletins BulletinsConfig
	Imports   ImportsConfig
	Metrics   MetricsConfig
	Cache     CacheConfig
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
	AutoMigrate  bool
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

// AuthConfig tunes the password reset flow.
type AuthConfig struct {
	ResetCodeTTL         time.Duration
	ResetCodeMaxAttempts int
}

// BulletinsConfig governs report card generation and the optional archive copy.
type BulletinsConfig struct {
	SchoolName     string
	FilterByYear   bool
	ArchiveEnabled bool
	ArchiveDir     string
	ArchiveSecret  string
	ArchiveTTL     time.Duration
}

// ImportsConfig bounds uploaded import files.
type ImportsConfig struct {
	MaxFileSizeBytes int64
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// CacheConfig controls the Redis read cache used by the dashboard.
type CacheConfig struct {
	Enabled      bool
	DashboardTTL time.Duration
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

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
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
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

	cfg.Auth = AuthConfig{
		ResetCodeTTL:         parseDuration(v.GetString("RESET_CODE_TTL"), 5*time.Minute),
		ResetCodeMaxAttempts: v.GetInt("RESET_CODE_MAX_ATTEMPTS"),
	}

	cfg.Bulletins = BulletinsConfig{
		SchoolName:     v.GetString("BULLETIN_SCHOOL_NAME"),
		FilterByYear:   v.GetBool("BULLETIN_FILTER_BY_YEAR"),
		ArchiveEnabled: v.GetBool("BULLETIN_ARCHIVE_ENABLED"),
		ArchiveDir:     v.GetString("BULLETIN_ARCHIVE_DIR"),
		ArchiveSecret:  v.GetString("BULLETIN_ARCHIVE_SECRET"),
		ArchiveTTL:     parseDuration(v.GetString("BULLETIN_ARCHIVE_TTL"), 24*time.Hour),
	}

	maxImportSize := v.GetInt64("IMPORT_MAX_FILE_SIZE")
	if maxImportSize <= 0 {
		maxImportSize = 5 * 1024 * 1024
	}
	cfg.Imports = ImportsConfig{MaxFileSizeBytes: maxImportSize}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	cfg.Cache = CacheConfig{
		Enabled:      v.GetBool("CACHE_ENABLED"),
		DashboardTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "school_bulletins")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "sma-bulletin-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RESET_CODE_TTL", "5m")
	v.SetDefault("RESET_CODE_MAX_ATTEMPTS", 5)

	v.SetDefault("BULLETIN_SCHOOL_NAME", "")
	v.SetDefault("BULLETIN_FILTER_BY_YEAR", false)
	v.SetDefault("BULLETIN_ARCHIVE_ENABLED", false)
	v.SetDefault("BULLETIN_ARCHIVE_DIR", "./bulletins")
	v.SetDefault("BULLETIN_ARCHIVE_SECRET", "dev_bulletins_secret")
	v.SetDefault("BULLETIN_ARCHIVE_TTL", "24h")

	v.SetDefault("IMPORT_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("ENABLE_METRICS", true)
	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("DASHBOARD_CACHE_TTL", "1m")
}

// isMissingFile tolerates a missing .env, which viper reports as a path error when
// SetConfigFile is used instead of a search path.
func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
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
