package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// identifierHeaders are consulted in order; proxies append to the first.
var identifierHeaders = []string{
	"X-Forwarded-For",
	"X-Real-IP",
	"CF-Connecting-IP",
	"True-Client-IP",
}

// ClientIdentifier derives a best-effort caller identifier from proxy headers,
// then the connection address. It returns "" when no signal is present,
// which the limiter treats as always-admit. Headers are caller controlled, so
// this is a courtesy throttle, not a security boundary.
func ClientIdentifier(r *http.Request) string {
	for _, h := range identifierHeaders {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		first, _, _ := strings.Cut(v, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
