package util

import (
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strings"
)

// GenerateRequestID builds a human-scannable request ID. Word pairs are far
// easier to spot when tailing logs than raw hex.
func GenerateRequestID() string {
	actions := []string{
		"seeking", "digging", "sifting", "scanning", "probing",
		"tracing", "chasing", "mapping", "mining", "fetching",
		"reading", "ranking", "weaving", "charting", "scouting",
	}
	divers := []string{
		"pearl", "coral", "abyss", "trench", "reef",
		"kelp", "drift", "tide", "swell", "depth",
		"sonar", "beacon", "anchor", "compass", "lantern",
	}

	subject := divers[rand.Intn(len(divers))]
	action := actions[rand.Intn(len(actions))]
	suffix := fmt.Sprintf("%04x", rand.Intn(65536))

	return fmt.Sprintf("%s_%s_%s", subject, action, suffix)
}

func GetClientIP(r *http.Request, trustProxyHeaders bool, trustedCIDRs []*net.IPNet) string {
	if !trustProxyHeaders {
		return remoteHost(r)
	}

	sourceIP := getSourceIP(r)
	if sourceIP == nil || !isIPInTrustedCIDRs(sourceIP, trustedCIDRs) {
		return remoteHost(r)
	}

	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

func getSourceIP(r *http.Request) net.IP {
	return net.ParseIP(remoteHost(r))
}
