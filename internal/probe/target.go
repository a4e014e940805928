package probe

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// Target contains the normalized forms of a user supplied domain.
type Target struct {
	Original string // Original input, untrimmed
	Host     string // ASCII hostname without scheme, port or path
	Port     string // Port if one was given
	URL      string // URL used by the HTTP probe
}

// ParseTarget normalizes a domain for probing. It accepts:
//   - example.com
//   - example.com:8080
//   - http://example.com/path
//   - https://bücher.example
func ParseTarget(domain string) *Target {
	info := &Target{Original: domain}

	trimmed := strings.TrimSpace(domain)
	if trimmed == "" {
		return info
	}

	info.URL = normalizeURL(trimmed)

	parsed, err := url.Parse(info.URL)
	if err == nil && parsed.Hostname() != "" {
		info.Host = parsed.Hostname()
		info.Port = parsed.Port()
	} else {
		// Fallback: extract the host by hand
		host := stripScheme(trimmed)
		host = strings.Split(host, "/")[0]
		if h, p, splitErr := net.SplitHostPort(host); splitErr == nil {
			host, info.Port = h, p
		}
		info.Host = host
	}

	info.Host = toASCII(strings.TrimSuffix(info.Host, "."))
	return info
}

// HasHTTPScheme reports whether the input already names http or https.
func HasHTTPScheme(domain string) bool {
	lower := strings.ToLower(domain)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// normalizeURL prefixes http:// unless the domain already carries an HTTP scheme.
func normalizeURL(domain string) string {
	if HasHTTPScheme(domain) {
		return domain
	}
	return "http://" + domain
}

func stripScheme(domain string) string {
	if !HasHTTPScheme(domain) {
		return domain
	}
	_, rest, _ := strings.Cut(domain, "://")
	return rest
}

// toASCII converts internationalized names to punycode; literal IPs pass through.
func toASCII(host string) string {
	if host == "" || net.ParseIP(host) != nil {
		return host
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return strings.ToLower(host)
	}
	return ascii
}
