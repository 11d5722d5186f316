package purge

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var urlRegex = regexp.MustCompile(`(?i)\bhttps?://[^\s<>]+|\bdiscord\.gg/[^\s<>]+`)

// ExtractURLs returns every link-looking token of content. Discord's
// suppressed-embed form <https://...> is matched too.
func ExtractURLs(content string) []string {
	return urlRegex.FindAllString(content, -1)
}

// Host returns the lower-case ASCII host of raw, without a leading "www.".
func Host(raw string) (string, bool) {
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", false
	}
	if ascii, err := idna.ToASCII(host); err == nil {
		host = ascii
	}
	return strings.TrimPrefix(host, "www."), true
}

// MatchDomain reports whether host is domain or one of its subdomains.
func MatchDomain(host, domain string) bool {
	domain, ok := Host(domain)
	if !ok {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
