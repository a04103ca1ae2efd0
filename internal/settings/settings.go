package settings

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/GriffinCanCode/zentat/internal/conversion"
)

// Site list modes.
const (
	ModeBlocklist = "blocklist"
	ModeAllowlist = "allowlist"
)

// Settings is the user configuration the engine reads.
type Settings struct {
	Enabled         bool
	Currencies      []string
	Precision       conversion.Precision
	SiteMode        string
	BlockedSites    []string
	AllowedSites    []string
	DisplayCurrency string
}

// Defaults returns the configuration used when nothing is stored.
func Defaults() Settings {
	return Settings{
		Enabled:         true,
		Currencies:      []string{"USD", "EUR", "GBP", "JPY", "CAD", "AUD", "CHF", "CNY"},
		Precision:       conversion.Auto(),
		SiteMode:        ModeBlocklist,
		BlockedSites:    []string{},
		AllowedSites:    []string{},
		DisplayCurrency: "USD",
	}
}

// Normalize fills missing fields with defaults and canonicalizes codes.
func (s Settings) Normalize() Settings {
	d := Defaults()
	if len(s.Currencies) == 0 {
		s.Currencies = d.Currencies
	}
	currencies := make([]string, 0, len(s.Currencies))
	seen := make(map[string]bool, len(s.Currencies))
	for _, c := range s.Currencies {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" && !seen[c] {
			seen[c] = true
			currencies = append(currencies, c)
		}
	}
	s.Currencies = currencies

	mode := strings.ToLower(strings.TrimSpace(s.SiteMode))
	if mode != ModeAllowlist {
		mode = ModeBlocklist
	}
	s.SiteMode = mode

	if s.BlockedSites == nil {
		s.BlockedSites = []string{}
	}
	if s.AllowedSites == nil {
		s.AllowedSites = []string{}
	}
	s.DisplayCurrency = strings.ToUpper(strings.TrimSpace(s.DisplayCurrency))
	if s.DisplayCurrency == "" {
		s.DisplayCurrency = d.DisplayCurrency
	}
	return s
}

// IsSiteAllowed applies the site mode and pattern lists to hostname.
func IsSiteAllowed(hostname string, s Settings) bool {
	if strings.EqualFold(s.SiteMode, ModeAllowlist) {
		for _, p := range s.AllowedSites {
			if MatchesPattern(hostname, p) {
				return true
			}
		}
		return false
	}
	for _, p := range s.BlockedSites {
		if MatchesPattern(hostname, p) {
			return false
		}
	}
	return true
}

// MatchesPattern matches hostname against an exact host, a parent domain
// ("example.com" matches "www.example.com"), a "*." wildcard that also
// matches the bare domain, or any other glob pattern.
func MatchesPattern(hostname, pattern string) bool {
	host := strings.ToLower(strings.TrimSpace(hostname))
	p := strings.ToLower(strings.TrimSpace(pattern))
	if host == "" || p == "" {
		return false
	}

	if suffix, ok := strings.CutPrefix(p, "*."); ok {
		return host == suffix || strings.HasSuffix(host, "."+suffix)
	}
	if host == p || strings.HasSuffix(host, "."+p) {
		return true
	}
	if strings.ContainsAny(p, "*?[{") {
		ok, err := doublestar.Match(p, host)
		return err == nil && ok
	}
	return false
}
