package proxy

import (
	"net"
	"net/http"
	"strings"
)

const unknownClient = "unknown"

// ClientKey identifies the caller for quota purposes: the host part of the
// connection's remote address. With trustForwardedFor the first X-Forwarded-For
// hop wins, which is only correct behind a proxy that overwrites the header.
func ClientKey(r *http.Request, trustForwardedFor bool) string {
	if trustForwardedFor {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return unknownClient
	}
	return host
}
