package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/lockana"
)

// ClientIP attaches the caller's address to the request context with
// [lockana.WithClientIP]. When trustProxy is set the first X-Forwarded-For entry
// wins; only enable it behind a proxy that overwrites the header.
func ClientIP(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := RemoteIP(r, trustProxy)
			if ip != "" {
				r = r.WithContext(lockana.WithClientIP(r.Context(), ip))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RemoteIP returns the request's origin address without port.
func RemoteIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return ""
}
