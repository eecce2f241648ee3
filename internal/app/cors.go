package app

import (
	"net/url"
	"strings"
)

// originAllowed reports whether an Origin header value matches any of the
// configured origin patterns. Patterns are compared against the host[:port]
// of the origin and may contain a single wildcard: "*.example.com" matches
// any subdomain, "localhost:*" matches any port.
func originAllowed(patterns []string, origin string) bool {
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.ToLower(host)

	for _, pattern := range patterns {
		pattern = strings.ToLower(pattern)
		switch {
		case pattern == host:
			return true
		case strings.HasPrefix(pattern, "*."):
			bare := pattern[2:]
			if host == bare || strings.HasSuffix(host, pattern[1:]) {
				return true
			}
		case strings.HasSuffix(pattern, ":*"):
			if strings.HasPrefix(host, pattern[:len(pattern)-1]) {
				return true
			}
		}
	}
	return false
}
