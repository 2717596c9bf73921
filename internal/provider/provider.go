// Package provider implements the Groww REST market-data client. It
// authenticates with a static access token or an API-key credential
// chain (TOTP included), fetches historical candles in provider-sized
// chunks, and guards the upstream with a rate limiter, retries, and a
// circuit breaker.
package provider

import (
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"groww-scanner/internal/ratelimit"
	"groww-scanner/internal/retry"

	"github.com/sony/gobreaker"
)

const (
	defaultBaseURL  = "https://api.groww.in"
	defaultExchange = "NSE"
	defaultSegment  = "CASH"
	defaultTimeout  = 10 * time.Second
)

// Config carries credentials and tuning for the Groww client.
//
// Credential precedence mirrors the operator docs: a static AccessToken
// wins; otherwise the key flows are tried in order (api key + secret,
// api key + TOTP of TOTPSecret, api key + TOTP of APISecret, TOTPToken +
// TOTP of TOTPSecret).
type Config struct {
	BaseURL     string
	AccessToken string
	APIKey      string
	APISecret   string
	TOTPSecret  string
	TOTPToken   string

	Exchange string
	Segment  string
	Timeout  time.Duration

	Limiter *ratelimit.Limiter
	Retry   retry.Policy
}

// Client fetches candles from the Groww REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker

	mu    sync.Mutex
	token string
}

// New validates credentials and builds the client. No network calls are
// made until the first fetch.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Exchange == "" {
		cfg.Exchange = defaultExchange
	}
	if cfg.Segment == "" {
		cfg.Segment = defaultSegment
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	if cfg.AccessToken == "" && cfg.APIKey == "" && cfg.TOTPToken == "" {
		return nil, errors.New("missing groww credentials: provide GROWW_ACCESS_TOKEN or an API key flow")
	}

	settings := gobreaker.Settings{
		Name:        "groww",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[provider] breaker %s: %s -> %s", name, from, to)
		},
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}, nil
}
