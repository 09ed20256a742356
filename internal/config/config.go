package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret string
	TokenTTL  time.Duration

	// Location defines the calendar "today" for entry creation and streaks.
	Location *time.Location

	Log    LogConfig
	Worker WorkerConfig

	AuthRateLimitRPS   float64
	AuthRateLimitBurst int
}

type LogConfig struct {
	Level      string
	Format     string // json or text
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type WorkerConfig struct {
	Enabled      bool
	PollInterval time.Duration
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
			File:   getenv("LOG_FILE", ""),
		},
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	var err error
	if cfg.DatabaseURL, err = requireEnv("DATABASE_URL"); err != nil {
		return Config{}, err
	}
	if cfg.JWTSecret, err = requireEnv("JWT_SECRET"); err != nil {
		return Config{}, err
	}

	tz := getenv("JOURNAL_TIMEZONE", "Local")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return Config{}, fmt.Errorf("invalid JOURNAL_TIMEZONE %q: %w", tz, err)
	}

	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}

	if cfg.Log.MaxSizeMB, err = getInt("LOG_MAX_SIZE_MB", 100); err != nil {
		return Config{}, err
	}
	if cfg.Log.MaxBackups, err = getInt("LOG_MAX_BACKUPS", 3); err != nil {
		return Config{}, err
	}
	if cfg.Log.MaxAgeDays, err = getInt("LOG_MAX_AGE_DAYS", 30); err != nil {
		return Config{}, err
	}

	cfg.Worker.Enabled = getenv("WORKER_ENABLED", "true") == "true"
	if cfg.Worker.PollInterval, err = getDuration("WORKER_POLL_INTERVAL", 800*time.Millisecond); err != nil {
		return Config{}, err
	}

	rps := getenv("AUTH_RATE_LIMIT_RPS", "1")
	if cfg.AuthRateLimitRPS, err = strconv.ParseFloat(rps, 64); err != nil || cfg.AuthRateLimitRPS <= 0 {
		return Config{}, fmt.Errorf("invalid AUTH_RATE_LIMIT_RPS %q", rps)
	}
	if cfg.AuthRateLimitBurst, err = getInt("AUTH_RATE_LIMIT_BURST", 5); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func requireEnv(key string) (string, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return "", fmt.Errorf("missing env: %s", key)
	}
	return v, nil
}

func getInt(key string, def int) (int, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
