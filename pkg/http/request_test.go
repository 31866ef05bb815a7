package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/rebelbudget/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP(t *testing.T) {
	trusted := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8", "2001:db8::/32"}}

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xRealIP    string
		config     *pkghttp.IPConfig
		want       string
	}{
		{"direct client ignores spoofed headers", "203.0.113.10:54321", "1.2.3.4", "192.168.1.1", trusted, "203.0.113.10"},
		{"trusted proxy uses first forwarded ip", "10.0.0.5:54321", "203.0.113.42, 10.0.0.5", "", trusted, "203.0.113.42"},
		{"trusted proxy skips invalid entries", "10.0.0.5:1", "garbage, 198.51.100.7", "", trusted, "198.51.100.7"},
		{"trusted proxy falls back to x-real-ip", "10.0.0.5:1", "", "198.51.100.9", trusted, "198.51.100.9"},
		{"ipv6 trusted proxy", "[2001:db8::1]:443", "2001:db8:ffff::5", "", trusted, "2001:db8:ffff::5"},
		{"nil config never trusts headers", "203.0.113.10:1", "1.2.3.4", "", nil, "203.0.113.10"},
		{"empty proxy list never trusts headers", "127.0.0.1:1", "1.2.3.4", "", &pkghttp.IPConfig{}, "127.0.0.1"},
		{"remote addr without port", "203.0.113.10", "", "", nil, "203.0.113.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}

			assert.Equal(t, tt.want, pkghttp.ExtractClientIP(req, tt.config))
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{"valid", "Bearer abc.def.ghi", "abc.def.ghi", true},
		{"lowercase scheme", "bearer abc", "abc", true},
		{"missing header", "", "", false},
		{"basic scheme", "Basic dXNlcjpwYXNz", "", false},
		{"scheme only", "Bearer", "", false},
		{"blank token", "Bearer    ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			token, ok := pkghttp.BearerToken(req)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	got := pkghttp.ParseTrustedProxies(" 10.0.0.0/8, ,not-a-cidr,127.0.0.1/32")
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1/32"}, got)
	assert.Empty(t, pkghttp.ParseTrustedProxies(""))
}
