// Package requestmeta provides normalized request metadata helpers.
package requestmeta

import (
	"net"
	"net/http"
	"strings"
)

// Policy controls which proxy headers request metadata may trust.
//
// Both switches default to off; forwarded headers are client-controlled
// unless a proxy in front of the service rewrites them.
type Policy struct {
	TrustForwardedProto bool
	TrustForwardedFor   bool
}

// IsHTTPSWithPolicy reports whether a request should be treated as HTTPS using
// the provided policy.
func IsHTTPSWithPolicy(r *http.Request, policy Policy) bool {
	return requestScheme(r, policy) == "https"
}

// ClientIP returns the best-effort client address for r, without port.
func ClientIP(r *http.Request, policy Policy) string {
	if r == nil {
		return ""
	}
	if policy.TrustForwardedFor {
		if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil {
		return host
	}
	return remote
}

func requestScheme(r *http.Request, policy Policy) string {
	if r == nil {
		return ""
	}
	if policy.TrustForwardedProto {
		if forwarded := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); forwarded == "http" || forwarded == "https" {
			return forwarded
		}
	}
	if r.URL != nil {
		if scheme := strings.ToLower(strings.TrimSpace(r.URL.Scheme)); scheme == "http" || scheme == "https" {
			return scheme
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
