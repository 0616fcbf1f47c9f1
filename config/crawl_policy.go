package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CrawlPolicyConfig configures which hosts the extraction tool may fetch.
// Entries match the host itself and any subdomain of it.
type CrawlPolicyConfig struct {
	Allow    []string `mapstructure:"allow" json:"allow"`
	Disallow []string `mapstructure:"disallow" json:"disallow"`
	Paywall  []string `mapstructure:"paywall" json:"paywall"`
}

// Normalize cleans entries and removes duplicates.
func (c CrawlPolicyConfig) Normalize() CrawlPolicyConfig {
	return CrawlPolicyConfig{
		Allow:    sanitizeDomainList(c.Allow),
		Disallow: sanitizeDomainList(c.Disallow),
		Paywall:  sanitizeDomainList(c.Paywall),
	}
}

// Validate ensures configured policy entries do not conflict.
func (c CrawlPolicyConfig) Validate() error {
	norm := c.Normalize()

	allow := make(map[string]struct{}, len(norm.Allow))
	for _, host := range norm.Allow {
		allow[host] = struct{}{}
	}
	disallow := make(map[string]struct{}, len(norm.Disallow))
	for _, host := range norm.Disallow {
		if _, ok := allow[host]; ok {
			return fmt.Errorf("crawl policy conflict: host %q present in both allow and disallow lists", host)
		}
		disallow[host] = struct{}{}
	}
	for _, host := range norm.Paywall {
		if _, ok := disallow[host]; ok {
			return fmt.Errorf("crawl policy conflict: host %q marked disallow and paywall", host)
		}
	}
	return nil
}

// Permits reports whether host may be fetched. Disallowed and paywalled hosts
// are refused; a non-empty allow list refuses everything it does not match.
func (c CrawlPolicyConfig) Permits(host string) bool {
	h := normalizeHost(host)
	if i := strings.LastIndexByte(h, ':'); i >= 0 && !strings.Contains(h[i:], "]") {
		h = h[:i]
	}
	if h == "" {
		return false
	}
	if matchesAny(h, c.Disallow) || matchesAny(h, c.Paywall) {
		return false
	}
	return len(c.Allow) == 0 || matchesAny(h, c.Allow)
}

func matchesAny(host string, entries []string) bool {
	for _, raw := range entries {
		entry := normalizeHost(raw)
		if entry == "" {
			continue
		}
		if host == entry || strings.HasSuffix(host, "."+entry) {
			return true
		}
	}
	return false
}

func sanitizeDomainList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	for _, raw := range values {
		host := normalizeHost(raw)
		if host == "" {
			continue
		}
		seen[host] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for host := range seen {
		out = append(out, host)
	}
	sort.Strings(out)
	return out
}

func normalizeHost(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		if u, err := url.Parse(value); err == nil && u.Host != "" {
			return strings.TrimPrefix(u.Hostname(), "www.")
		}
	}
	return strings.TrimPrefix(value, "www.")
}
