package util

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func netIP(t *testing.T, s string) net.IP {
	t.Helper()
	ip := net.ParseIP(s)
	require.NotNil(t, ip)
	return ip
}

func TestParseTrustedCIDRs(t *testing.T) {
	t.Run("empty input yields nil", func(t *testing.T) {
		cidrs, err := ParseTrustedCIDRs(nil)
		require.NoError(t, err)
		assert.Nil(t, cidrs)
	})

	t.Run("valid ranges parse", func(t *testing.T) {
		cidrs, err := ParseTrustedCIDRs([]string{"10.0.0.0/8", " 192.168.1.0/24 ", ""})
		require.NoError(t, err)
		require.Len(t, cidrs, 2)
		assert.True(t, cidrs[0].Contains(netIP(t, "10.1.2.3")))
		assert.False(t, cidrs[1].Contains(netIP(t, "192.168.2.1")))
	})

	t.Run("invalid range errors", func(t *testing.T) {
		_, err := ParseTrustedCIDRs([]string{"not-a-cidr"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not-a-cidr")
	})
}

func TestGetClientIP(t *testing.T) {
	trusted, err := ParseTrustedCIDRs([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	newRequest := func(remote, forwardedFor, realIP string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = remote
		if forwardedFor != "" {
			r.Header.Set("X-Forwarded-For", forwardedFor)
		}
		if realIP != "" {
			r.Header.Set("X-Real-IP", realIP)
		}
		return r
	}

	t.Run("proxy headers ignored when not trusting", func(t *testing.T) {
		r := newRequest("10.0.0.5:1234", "203.0.113.9", "")
		assert.Equal(t, "10.0.0.5", GetClientIP(r, false, trusted))
	})

	t.Run("forwarded-for honoured from trusted proxy", func(t *testing.T) {
		r := newRequest("10.0.0.5:1234", "203.0.113.9, 10.0.0.5", "")
		assert.Equal(t, "203.0.113.9", GetClientIP(r, true, trusted))
	})

	t.Run("real-ip used when forwarded-for absent", func(t *testing.T) {
		r := newRequest("10.0.0.5:1234", "", "198.51.100.4")
		assert.Equal(t, "198.51.100.4", GetClientIP(r, true, trusted))
	})

	t.Run("headers from untrusted source ignored", func(t *testing.T) {
		r := newRequest("172.16.0.9:1234", "203.0.113.9", "")
		assert.Equal(t, "172.16.0.9", GetClientIP(r, true, trusted))
	})

	t.Run("remote addr without port passes through", func(t *testing.T) {
		r := newRequest("192.0.2.7", "", "")
		assert.Equal(t, "192.0.2.7", GetClientIP(r, false, nil))
	})
}

func TestGenerateRequestID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := GenerateRequestID()
		assert.Regexp(t, `^[a-z]+_[a-z]+_[0-9a-f]{4}$`, id)
		seen[id] = true
	}
	// Collisions in 50 draws would point at a broken suffix.
	assert.Greater(t, len(seen), 40)
}
