package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration loaded from environment variables.
// It is built once at startup and passed explicitly; nothing mutates it afterwards.
type Config struct {
	Port           string
	PostgresDSN    string
	MongoURI       string
	MongoDB        string
	RedisAddr      string
	RedisPassword  string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	LogLevel  string
	LogFormat string

	JWTSecretKey        string
	JWTRefreshSecretKey string
	JWTAlgorithm        string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	BcryptCost          int

	RatingCacheTTL time.Duration
	AllowedOrigins []string
}

var defaults = map[string]any{
	"PORT":                         "8000",
	"MONGO_DB":                     "media_reviews",
	"REDIS_ADDR":                   "redis:6379",
	"MINIO_ENDPOINT":               "minio:9000",
	"MINIO_BUCKET":                 "title-posters",
	"MINIO_USE_SSL":                false,
	"LOG_LEVEL":                    "info",
	"LOG_FORMAT":                   "json",
	"JWT_ALGORITHM":                "HS256",
	"ACCESS_TOKEN_EXPIRE_MINUTES":  60 * 24 * 7,
	"REFRESH_TOKEN_EXPIRE_MINUTES": 60 * 24 * 7,
	"BCRYPT_COST":                  10,
	"RATING_CACHE_TTL":             "10m",
	"CORS_ALLOWED_ORIGINS":         "http://localhost:5173 http://localhost:3000",
}

// Load reads configuration from the environment.
func Load() *Config {
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Port:                v.GetString("PORT"),
		PostgresDSN:         v.GetString("POSTGRES_DSN"),
		MongoURI:            v.GetString("MONGO_URI"),
		MongoDB:             v.GetString("MONGO_DB"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		MinioEndpoint:       v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey:      v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey:      v.GetString("MINIO_SECRET_KEY"),
		MinioBucket:         v.GetString("MINIO_BUCKET"),
		MinioUseSSL:         v.GetBool("MINIO_USE_SSL"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogFormat:           v.GetString("LOG_FORMAT"),
		JWTSecretKey:        v.GetString("JWT_SECRET_KEY"),
		JWTRefreshSecretKey: v.GetString("JWT_REFRESH_SECRET_KEY"),
		JWTAlgorithm:        v.GetString("JWT_ALGORITHM"),
		AccessTokenTTL:      time.Duration(v.GetInt("ACCESS_TOKEN_EXPIRE_MINUTES")) * time.Minute,
		RefreshTokenTTL:     time.Duration(v.GetInt("REFRESH_TOKEN_EXPIRE_MINUTES")) * time.Minute,
		BcryptCost:          v.GetInt("BCRYPT_COST"),
		RatingCacheTTL:      v.GetDuration("RATING_CACHE_TTL"),
		AllowedOrigins:      v.GetStringSlice("CORS_ALLOWED_ORIGINS"),
	}
}

// Validate checks the settings the auth core cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecretKey == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY is required"))
	}
	if c.JWTRefreshSecretKey == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET_KEY is required"))
	}
	if c.JWTSecretKey != "" && c.JWTSecretKey == c.JWTRefreshSecretKey {
		errs = append(errs, errors.New("access and refresh secrets must differ"))
	}
	if c.JWTAlgorithm != "HS256" {
		errs = append(errs, fmt.Errorf("unsupported JWT_ALGORITHM %q", c.JWTAlgorithm))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	return errors.Join(errs...)
}
