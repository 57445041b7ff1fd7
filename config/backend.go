package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/target/ticketflow/internal/errors"
)

// AuthMode selects the auth provider implementation.
type AuthMode string

const (
	// AuthModeGoTrue talks to the hosted GoTrue auth API.
	AuthModeGoTrue AuthMode = "gotrue"
	// AuthModeMemory keeps accounts in process (development and tests only).
	AuthModeMemory AuthMode = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "gotrue", "memory":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: gotrue, memory)", v)
	}
}

// DataMode selects the data service implementation.
type DataMode string

const (
	// DataModeREST uses the hosted PostgREST endpoint.
	DataModeREST DataMode = "rest"
	// DataModePostgres talks to the tickets table directly through pgx.
	DataModePostgres DataMode = "postgres"
	// DataModeMemory keeps tickets in process (development and tests only).
	DataModeMemory DataMode = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for DataMode.
func (d *DataMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "rest", "postgres", "memory":
		*d = DataMode(v)
		return nil
	default:
		return fmt.Errorf("invalid DataMode: %q (valid options: rest, postgres, memory)", v)
	}
}

// BackendConfig describes the hosted backend-as-a-service.
type BackendConfig struct {
	// URL is the project endpoint, e.g. https://xyzcompany.example.co.
	// Required unless both auth and data run in memory or postgres mode.
	URL string `env:"BACKEND_URL"`

	// AnonKey is the public API key sent with every request.
	AnonKey string `env:"BACKEND_ANON_KEY"`

	AuthMode AuthMode `env:"AUTH_MODE" envDefault:"gotrue"`
	DataMode DataMode `env:"DATA_MODE" envDefault:"rest"`

	// JWKSURL enables signature verification of access tokens when set.
	JWKSURL string `env:"JWKS_URL"`
	// JWTIssuer defaults to <URL>/auth/v1.
	JWTIssuer string `env:"JWT_ISSUER"`

	// RequestTimeout bounds every call to the backend.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	// RefreshMargin is how long before expiry an access token is refreshed.
	RefreshMargin time.Duration `env:"REFRESH_MARGIN" envDefault:"60s"`
}

// Sanitize trims values and fills derived defaults.
func (b *BackendConfig) Sanitize() {
	b.URL = strings.TrimRight(strings.TrimSpace(b.URL), "/")
	b.AnonKey = strings.TrimSpace(b.AnonKey)
	b.JWKSURL = strings.TrimSpace(b.JWKSURL)
	b.JWTIssuer = strings.TrimSpace(b.JWTIssuer)
	if b.AuthMode == "" {
		b.AuthMode = AuthModeGoTrue
	}
	if b.DataMode == "" {
		b.DataMode = DataModeREST
	}
	if b.JWTIssuer == "" && b.URL != "" {
		b.JWTIssuer = b.URL + "/auth/v1"
	}
	if b.RequestTimeout <= 0 {
		b.RequestTimeout = 10 * time.Second
	}
	if b.RefreshMargin < 0 {
		b.RefreshMargin = 0
	}
}

// UsesHostedBackend reports whether any component talks to the hosted service.
func (b *BackendConfig) UsesHostedBackend() bool {
	return b.AuthMode == AuthModeGoTrue || b.DataMode == DataModeREST
}

// Validate returns a configuration error when the endpoint or key is unusable.
func (b *BackendConfig) Validate() error {
	if !b.UsesHostedBackend() {
		return nil
	}
	if b.URL == "" {
		return errors.Configuration("TICKETFLOW_BACKEND_URL is required")
	}
	if b.AnonKey == "" {
		return errors.Configuration("TICKETFLOW_BACKEND_ANON_KEY is required")
	}
	u, err := url.Parse(b.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.ConfigurationWithCause("TICKETFLOW_BACKEND_URL must be an absolute URL", err)
	}
	return nil
}
