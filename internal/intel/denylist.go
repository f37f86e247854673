package intel

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Denylist holds known-malicious domains. A URL matches when a deny entry
// appears as a case-insensitive substring, or when its registered domain
// equals a deny entry (so "evil.phishing-example.com" matches
// "phishing-example.com" even with unusual formatting).
type Denylist struct {
	domains []string
}

func NewDenylist(domains []string) *Denylist {
	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain != "" {
			normalized = append(normalized, domain)
		}
	}
	return &Denylist{domains: normalized}
}

func (d *Denylist) Matches(rawURL string) bool {
	if len(d.domains) == 0 || rawURL == "" {
		return false
	}

	lowered := strings.ToLower(rawURL)
	for _, domain := range d.domains {
		if strings.Contains(lowered, domain) {
			return true
		}
	}

	host := hostOf(lowered)
	if host == "" {
		return false
	}

	registered, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		registered = host
	}

	for _, domain := range d.domains {
		if registered == domain {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if parsed.Host == "" {
		// Bare domains like "evil.example.com/login" parse as paths.
		parsed, err = url.Parse("http://" + rawURL)
		if err != nil {
			return ""
		}
	}
	return parsed.Hostname()
}
