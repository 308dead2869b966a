package config

import (
	"regexp"
	"strconv"
	"strings"
)

// Validation bounds for pass-through fetcher options
const (
	MaxRetries      = 100
	MaxMaxDownloads = 10000
	MaxHeightCap    = 8640
)

// rateLimitPattern matches fetcher rate strings such as "50K", "4.2M", "100000"
var rateLimitPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?[KkMmGg]?$`)

// proxySchemes are the proxy URL schemes passed through to the fetcher
var proxySchemes = []string{"http://", "https://", "socks4://", "socks5://"}

// ValidRateLimit reports whether s is a well-formed rate limit value
func ValidRateLimit(s string) bool {
	return rateLimitPattern.MatchString(strings.TrimSpace(s))
}

// ValidRetries reports whether n is an acceptable retry count
func ValidRetries(n int) bool {
	return n >= 0 && n <= MaxRetries
}

// ValidMaxDownloads reports whether n is an acceptable download cap
func ValidMaxDownloads(n int) bool {
	return n > 0 && n <= MaxMaxDownloads
}

// ValidProxy reports whether s looks like a proxy URL the fetcher accepts
func ValidProxy(s string) bool {
	s = strings.TrimSpace(s)
	for _, scheme := range proxySchemes {
		if strings.HasPrefix(s, scheme) && len(s) > len(scheme) {
			return true
		}
	}
	return false
}

// HeightCap parses a quality cap into a max pixel height. It returns 0 for
// QualityBest or any value that is not a sane height.
func HeightCap(quality string) int {
	q := strings.ToLower(strings.TrimSpace(quality))
	q = strings.TrimSuffix(q, "p")
	if q == "" || q == QualityBest {
		return 0
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 || n > MaxHeightCap {
		return 0
	}
	return n
}
