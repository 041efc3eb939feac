package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Portal    PortalConfig
	Captcha   CaptchaConfig
	Output    OutputConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "127.0.0.1"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Engine picks the launch order: "system" tries an installed
	// Chrome/Chromium first and falls back to a rod-managed download,
	// "managed" only uses the download, "remote" connects to RemoteURL.
	Engine string // default: "system"

	// Headless controls whether the browser runs headless.
	Headless bool // default: false

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// RemoteURL is a DevTools endpoint for the "remote" engine.
	RemoteURL string

	// Proxy is the proxy URL used by the browser.
	Proxy string

	// Stealth injects anti-automation-detection evasions.
	Stealth bool // default: true

	// BlockedResourceTypes lists resource types to block. Images are never
	// blocked because the CAPTCHA is an image.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string
}

// PortalConfig controls navigation against the court portal.
type PortalConfig struct {
	// ProfilePath is the optional json5 portal profile.
	ProfilePath string // default: "portal.json5"

	// DateWindowDays bounds how far from today a requested date may be.
	DateWindowDays int // default: 30

	// NavigationTimeout is the deadline of a single page load.
	NavigationTimeout time.Duration // default: 60s

	// NavigationAttempts and NavigationBackoff bound page-load retries.
	NavigationAttempts int           // default: 3
	NavigationBackoff  time.Duration // default: 5s

	// PollInterval and PollAttempts bound the dependent-dropdown wait.
	PollInterval time.Duration // default: 2s
	PollAttempts int           // default: 10

	// ResultTimeout bounds the wait for a results table after submission.
	ResultTimeout time.Duration // default: 15s

	// RecaptureDelay is the extra wait before re-reading a result page that
	// still looks like the input form.
	RecaptureDelay time.Duration // default: 5s

	// SettleDelay is the pause after each form interaction.
	SettleDelay time.Duration // default: 1s
}

// CaptchaConfig controls CAPTCHA recognition.
type CaptchaConfig struct {
	// BaseURL, APIKey and Model address an OpenAI-compatible vision endpoint.
	// An empty APIKey disables automated recognition.
	BaseURL string // default: Gemini's OpenAI-compatible endpoint
	APIKey  string
	Model   string // default: "gemini-2.5-flash"

	// Attempts is the number of automated recognition attempts.
	Attempts int // default: 3

	// Timeout bounds a single recognition request.
	Timeout time.Duration // default: 30s

	// RetryDelay is the pause after a failed recognition call.
	RetryDelay time.Duration // default: 15s

	// SettleDelay is the pause after each call before its result is read.
	SettleDelay time.Duration // default: 5s

	// Throttle is the minimum spacing between recognition calls.
	Throttle time.Duration // default: 15s

	// Preprocess enables grayscale/upscale/sharpen before recognition.
	Preprocess bool // default: true

	// Manual picks the human fallback: "console", "api" or "none".
	Manual string // default: "console"
}

// OutputConfig controls the persisted artifact layout.
type OutputConfig struct {
	// Root is the downloads directory.
	Root string // default: "downloads"

	// HistoryDB is an optional sqlite file recording every outcome.
	HistoryDB string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// CacheConfig controls the court-list cache.
type CacheConfig struct {
	// CourtsTTL is how long a fetched court list is served from memory.
	CourtsTTL time.Duration // default: 30m
}

// WebhookConfig controls job-completion notifications.
type WebhookConfig struct {
	URL    string
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("CAUSELIST_HOST", "127.0.0.1"),
			Port: envIntOr("CAUSELIST_PORT", 8080),
			Mode: envOr("CAUSELIST_MODE", "release"),
		},
		Browser: BrowserConfig{
			Engine:     envOr("CAUSELIST_BROWSER", "system"),
			Headless:   envBoolOr("CAUSELIST_HEADLESS", false),
			NoSandbox:  envBoolOr("CAUSELIST_NO_SANDBOX", false),
			BrowserBin: os.Getenv("CAUSELIST_BROWSER_BIN"),
			RemoteURL:  os.Getenv("CAUSELIST_BROWSER_REMOTE_URL"),
			Proxy:      os.Getenv("CAUSELIST_PROXY"),
			Stealth:    envBoolOr("CAUSELIST_STEALTH", true),
			BlockedResourceTypes: envSliceOr("CAUSELIST_BLOCKED_RESOURCES", []string{
				"Font", "Media",
			}),
		},
		Portal: PortalConfig{
			ProfilePath:        envOr("CAUSELIST_PROFILE", "portal.json5"),
			DateWindowDays:     envIntOr("CAUSELIST_DATE_WINDOW_DAYS", 30),
			NavigationTimeout:  envDurationOr("CAUSELIST_NAV_TIMEOUT", 60*time.Second),
			NavigationAttempts: envIntOr("CAUSELIST_NAV_ATTEMPTS", 3),
			NavigationBackoff:  envDurationOr("CAUSELIST_NAV_BACKOFF", 5*time.Second),
			PollInterval:       envDurationOr("CAUSELIST_POLL_INTERVAL", 2*time.Second),
			PollAttempts:       envIntOr("CAUSELIST_POLL_ATTEMPTS", 10),
			ResultTimeout:      envDurationOr("CAUSELIST_RESULT_TIMEOUT", 15*time.Second),
			RecaptureDelay:     envDurationOr("CAUSELIST_RECAPTURE_DELAY", 5*time.Second),
			SettleDelay:        envDurationOr("CAUSELIST_SETTLE_DELAY", time.Second),
		},
		Captcha: CaptchaConfig{
			BaseURL:     envOr("CAUSELIST_OCR_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai"),
			APIKey:      os.Getenv("CAUSELIST_OCR_API_KEY"),
			Model:       envOr("CAUSELIST_OCR_MODEL", "gemini-2.5-flash"),
			Attempts:    envIntOr("CAUSELIST_OCR_ATTEMPTS", 3),
			Timeout:     envDurationOr("CAUSELIST_OCR_TIMEOUT", 30*time.Second),
			RetryDelay:  envDurationOr("CAUSELIST_OCR_RETRY_DELAY", 15*time.Second),
			SettleDelay: envDurationOr("CAUSELIST_OCR_SETTLE_DELAY", 5*time.Second),
			Throttle:    envDurationOr("CAUSELIST_OCR_THROTTLE", 15*time.Second),
			Preprocess:  envBoolOr("CAUSELIST_OCR_PREPROCESS", true),
			Manual:      envOr("CAUSELIST_CAPTCHA_MANUAL", "console"),
		},
		Output: OutputConfig{
			Root:      envOr("CAUSELIST_OUTPUT_DIR", "downloads"),
			HistoryDB: os.Getenv("CAUSELIST_HISTORY_DB"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("CAUSELIST_AUTH_ENABLED", false),
			APIKeys: envSliceOr("CAUSELIST_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("CAUSELIST_RATE_RPS", 2.0),
			Burst:             envIntOr("CAUSELIST_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			CourtsTTL: envDurationOr("CAUSELIST_COURTS_TTL", 30*time.Minute),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("CAUSELIST_WEBHOOK_URL"),
			Secret: os.Getenv("CAUSELIST_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("CAUSELIST_LOG_LEVEL", "info"),
			Format: envOr("CAUSELIST_LOG_FORMAT", "text"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
