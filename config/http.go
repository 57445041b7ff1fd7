package config

import "time"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieSecure marks client and CSRF cookies Secure.
	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"false"`

	// CompressionEnabled enables gzip compression for HTML responses.
	CompressionEnabled bool `env:"HTTP_COMPRESSION_ENABLED" envDefault:"false"`

	// CompressionLevel is the gzip compression level (1-9).
	// Default is 6 (standard gzip default).
	CompressionLevel int `env:"HTTP_COMPRESSION_LEVEL" envDefault:"6"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	// Clamp compression level to valid gzip range (1-9)
	if h.CompressionLevel < 1 {
		h.CompressionLevel = 1
	}
	if h.CompressionLevel > 9 {
		h.CompressionLevel = 9
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
}

// UIConfig holds behaviour shared by the web and terminal front ends.
type UIConfig struct {
	// ToastDuration is how long a notification stays visible.
	ToastDuration time.Duration `env:"TOAST_DURATION" envDefault:"5s"`

	// ClientIdleTTL evicts browser clients that have not been seen for this long.
	ClientIdleTTL time.Duration `env:"CLIENT_IDLE_TTL" envDefault:"30m"`

	// SignInRatePerMinute limits sign-in and sign-up attempts per client.
	SignInRatePerMinute int `env:"SIGNIN_RATE_PER_MINUTE" envDefault:"10"`
}

// Sanitize applies guardrails to UI configuration values.
func (u *UIConfig) Sanitize() {
	if u.ToastDuration <= 0 {
		u.ToastDuration = 5 * time.Second
	}
	if u.ClientIdleTTL <= 0 {
		u.ClientIdleTTL = 30 * time.Minute
	}
	if u.SignInRatePerMinute <= 0 {
		u.SignInRatePerMinute = 10
	}
}
