package handler

import (
	"net/http"
	"strings"
)

// UnknownIP identifies a client that sent none of the proxy headers.
const UnknownIP = "unknown"

// ClientIP returns the best-effort client identifier: the first hop of
// X-Forwarded-For, then Cloudflare's CF-Connecting-IP, then X-Real-IP.
// The headers are taken as sent; no trusted-proxy list is applied.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return UnknownIP
}
