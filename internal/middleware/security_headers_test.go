package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serveWithHeaders(env string, req *http.Request) *httptest.ResponseRecorder {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	SecurityHeaders(SecurityHeadersConfig{Env: env})(ok).ServeHTTP(rec, req)
	return rec
}

func TestSecurityHeaders_Always(t *testing.T) {
	rec := serveWithHeaders("development", httptest.NewRequest(http.MethodGet, "/", nil))

	tests := []struct {
		header   string
		expected string
	}{
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "no-referrer"},
		{"Cache-Control", "no-store"},
		{"Cross-Origin-Opener-Policy", "same-origin"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, rec.Header().Get(tt.header), tt.header)
	}
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	forwarded := httptest.NewRequest(http.MethodGet, "/", nil)
	forwarded.Header.Set("X-Forwarded-Proto", "https")
	assert.NotEmpty(t, serveWithHeaders("production", forwarded).Header().Get("Strict-Transport-Security"))

	direct := httptest.NewRequest(http.MethodGet, "/", nil)
	direct.TLS = &tls.ConnectionState{}
	assert.NotEmpty(t, serveWithHeaders("production", direct).Header().Get("Strict-Transport-Security"))

	plain := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, serveWithHeaders("production", plain).Header().Get("Strict-Transport-Security"))

	devTLS := httptest.NewRequest(http.MethodGet, "/", nil)
	devTLS.TLS = &tls.ConnectionState{}
	assert.Empty(t, serveWithHeaders("development", devTLS).Header().Get("Strict-Transport-Security"))
}
