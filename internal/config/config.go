package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/blake2b"
)

// EnvFile is loaded before reading the environment; a missing file is not an error.
const EnvFile = "configs/.env"

const (
	devJWTSecret     = "default_super_secret_key"
	devWebhookSecret = "default_webhook_secret"
	devNINHashKey    = "default_nin_hash_key"
)

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the postgres connection URL.
func (d DBConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

type Config struct {
	Port          string
	Release       bool
	DB            DBConfig
	JWTSecret     []byte
	WebhookSecret string
	NINHashKey    []byte // keys the NIN fingerprint stored on TIN applications
	CORSOrigins   []string
	TaxTablePath  string // empty means the embedded table
	LogLevel      string
	EnvFileLoaded bool
}

// Load reads configs/.env (if present) and the process environment.
func Load() (Config, error) {
	loaded := godotenv.Load(EnvFile) == nil
	cfg, err := FromEnv()
	cfg.EnvFileLoaded = loaded
	return cfg, err
}

// FromEnv reads the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:    getEnv("PORT", "8080"),
		Release: os.Getenv("GIN_MODE") == "release",
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "postgres"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		TaxTablePath: os.Getenv("TAX_TABLE_PATH"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	var errs []error
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		if cfg.Release {
			errs = append(errs, errors.New("JWT_SECRET is required in release mode"))
		}
		jwtSecret = devJWTSecret
	}
	cfg.JWTSecret = []byte(jwtSecret)

	cfg.WebhookSecret = os.Getenv("WEBHOOK_SECRET")
	if cfg.WebhookSecret == "" {
		if cfg.Release {
			errs = append(errs, errors.New("WEBHOOK_SECRET is required in release mode"))
		}
		cfg.WebhookSecret = devWebhookSecret
	}

	ninKey := os.Getenv("NIN_HASH_KEY")
	if ninKey == "" {
		if cfg.Release {
			errs = append(errs, errors.New("NIN_HASH_KEY is required in release mode"))
		}
		ninKey = devNINHashKey
	}
	if len(ninKey) > blake2b.Size {
		errs = append(errs, fmt.Errorf("NIN_HASH_KEY must be at most %d bytes, got %d", blake2b.Size, len(ninKey)))
	}
	cfg.NINHashKey = []byte(ninKey)

	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
