package sanitizer

import (
	"net/url"
	"strings"
)

// NormalizeURL upgrades image links to https, lowercases the host and drops
// fragments and trailing slashes. Unparseable input is returned trimmed so
// the validator can reject it.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")

	return u.String()
}
