// Package config loads scanner configuration from environment variables
// and the optional universe seed file.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"groww-scanner/internal/model"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Groww credentials. A static access token wins; otherwise the API
	// key flows are tried in order.
	GrowwAccessToken string
	GrowwAPIKey      string
	GrowwAPISecret   string
	GrowwTOTPSecret  string
	GrowwTOTPToken   string

	// Infrastructure
	DatabaseURL string
	RedisURL    string
	HTTPAddr    string

	// Sweep shape
	IngestBars         int
	ComputeBars        int
	BackfillBars       int
	TimeframesRaw      string
	IngestIntervalSec  int
	ComputeIntervalSec int

	// Market session
	MarketTZ        string
	MarketOpen      string
	MarketClose     string
	MarketDays      string
	AllowAfterHours bool

	// Benchmarks
	NiftySymbol     string
	BankNiftySymbol string

	// Provider limits
	RatePerSec       int
	RatePerMin       int
	RetryMaxAttempts int
	RetryBaseDelayMS int
	RetryMaxDelayMS  int

	// Universe seed file (YAML); empty means the built-in universe.
	UniverseFile string

	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		GrowwAccessToken: getEnv("GROWW_ACCESS_TOKEN", ""),
		GrowwAPIKey:      getEnv("GROWW_API_KEY", ""),
		GrowwAPISecret:   getEnv("GROWW_API_SECRET", ""),
		GrowwTOTPSecret:  getEnv("GROWW_TOTP_SECRET", ""),
		GrowwTOTPToken:   getEnv("GROWW_TOTP_TOKEN", ""),

		DatabaseURL: getEnv("DATABASE_URL", "data/scanner.db"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8000"),

		IngestBars:         getEnvInt("INGEST_BARS", 220),
		ComputeBars:        getEnvInt("COMPUTE_BARS", 200),
		BackfillBars:       getEnvInt("BACKFILL_BARS", 1000),
		TimeframesRaw:      getEnv("SCHEDULER_TIMEFRAMES", "5m,15m,1h,1d"),
		IngestIntervalSec:  getEnvInt("SCHEDULER_INGEST_INTERVAL_SEC", 45),
		ComputeIntervalSec: getEnvInt("SCHEDULER_COMPUTE_INTERVAL_SEC", 60),

		MarketTZ:        getEnv("MARKET_TZ", "Asia/Kolkata"),
		MarketOpen:      getEnv("MARKET_OPEN_TIME", "09:15"),
		MarketClose:     getEnv("MARKET_CLOSE_TIME", "15:30"),
		MarketDays:      getEnv("MARKET_DAYS", "MON,TUE,WED,THU,FRI"),
		AllowAfterHours: getEnvBool("MARKET_ALLOW_AFTER_HOURS", false),

		NiftySymbol:     getEnv("NIFTY_SYMBOL", "NIFTY"),
		BankNiftySymbol: getEnv("BANKNIFTY_SYMBOL", "BANKNIFTY"),

		RatePerSec:       getEnvInt("RATE_LIMIT_PER_SEC", 10),
		RatePerMin:       getEnvInt("RATE_LIMIT_PER_MIN", 300),
		RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 4),
		RetryBaseDelayMS: getEnvInt("RETRY_BASE_DELAY_MS", 500),
		RetryMaxDelayMS:  getEnvInt("RETRY_MAX_DELAY_MS", 6000),

		UniverseFile: getEnv("UNIVERSE_FILE", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Timeframes parses the scheduler timeframe list. Invalid entries are
// skipped with a warning; an all-invalid list falls back to 5m.
func (c *Config) Timeframes() []model.Timeframe {
	tfs := model.ParseTimeframes(c.TimeframesRaw)
	if len(tfs) == 0 {
		log.Printf("[config] no valid timeframes in %q, falling back to 5m", c.TimeframesRaw)
		return []model.Timeframe{model.TF5m}
	}
	return tfs
}

// IngestInterval returns the ingest cadence as a duration.
func (c *Config) IngestInterval() time.Duration {
	return time.Duration(c.IngestIntervalSec) * time.Second
}

// ComputeInterval returns the compute cadence as a duration.
func (c *Config) ComputeInterval() time.Duration {
	return time.Duration(c.ComputeIntervalSec) * time.Second
}

// MarketDayList splits the MARKET_DAYS value into day codes.
func (c *Config) MarketDayList() []string {
	var out []string
	for _, d := range strings.Split(c.MarketDays, ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %t", key, v, fallback)
		return fallback
	}
	return b
}
