package httpx

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
)

const (
	// DefaultCSRFCookieName is the default name for the CSRF cookie and form field.
	DefaultCSRFCookieName = "tf_csrf"
	// DefaultCSRFHeaderName is the header htmx sends the token in (canonical form).
	DefaultCSRFHeaderName = "X-Csrf-Token"

	csrfTokenBytes = 32
)

// CSRFConfig holds configuration for CSRF protection middleware.
type CSRFConfig struct {
	CookieName string // default DefaultCSRFCookieName
	HeaderName string // default DefaultCSRFHeaderName
	// Secure forces the Secure attribute; requests over TLS or a forwarded
	// https proxy get it regardless.
	Secure bool
}

// CSRFProtection implements the double-submit cookie pattern: a random token
// lives in a cookie and every state-changing request must echo it in the
// X-Csrf-Token header or the form field of the same name as the cookie.
func CSRFProtection(cfg CSRFConfig) func(http.Handler) http.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCSRFCookieName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultCSRFHeaderName
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if c, err := r.Cookie(cfg.CookieName); err == nil {
				token = c.Value
			}
			if token == "" {
				b := make([]byte, csrfTokenBytes)
				if _, err := rand.Read(b); err != nil {
					http.Error(w, "unable to generate CSRF token", http.StatusInternalServerError)
					return
				}
				token = base64.RawURLEncoding.EncodeToString(b)
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: false, // htmx reads it to set the header
					Secure:   cfg.Secure || r.TLS != nil || isForwardedHTTPS(r),
					SameSite: http.SameSiteStrictMode,
				})
			}

			r = r.WithContext(context.WithValue(r.Context(), csrfTokenKey{}, token))
			if !isSafeMethod(r.Method) && !validCSRFToken(r, token, cfg) {
				http.Error(w, "CSRF token validation failed", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

func isForwardedHTTPS(r *http.Request) bool {
	for _, proto := range strings.Split(r.Header.Get("X-Forwarded-Proto"), ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}
	return false
}

// validCSRFToken compares in constant time. A token freshly minted on this
// request never validates, since the browser could not have echoed it.
func validCSRFToken(r *http.Request, cookieToken string, cfg CSRFConfig) bool {
	if c, err := r.Cookie(cfg.CookieName); err != nil || c.Value == "" {
		return false
	}
	sent := r.Header.Get(cfg.HeaderName)
	if sent == "" {
		ct := r.Header.Get("Content-Type")
		if strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data") {
			if err := r.ParseForm(); err != nil {
				return false
			}
			sent = r.PostFormValue(cfg.CookieName)
		}
	}
	return sent != "" && subtle.ConstantTimeCompare([]byte(sent), []byte(cookieToken)) == 1
}

type csrfTokenKey struct{}

// GetCSRFToken returns the request's CSRF token for embedding in forms.
func GetCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfTokenKey{}).(string)
	return token
}
