package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/zentat/internal/conversion"
)

// Document is the stored form of Settings. Precision is "auto" or an
// integer; every field may be omitted.
type Document struct {
	Enabled         *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Currencies      []string `json:"currencies,omitempty" yaml:"currencies,omitempty" toml:"currencies,omitempty"`
	Precision       any      `json:"precision,omitempty" yaml:"precision,omitempty" toml:"precision,omitempty"`
	SiteMode        string   `json:"siteMode,omitempty" yaml:"siteMode,omitempty" toml:"siteMode,omitempty"`
	BlockedSites    []string `json:"blockedSites,omitempty" yaml:"blockedSites,omitempty" toml:"blockedSites,omitempty"`
	AllowedSites    []string `json:"allowedSites,omitempty" yaml:"allowedSites,omitempty" toml:"allowedSites,omitempty"`
	DisplayCurrency string   `json:"displayCurrency,omitempty" yaml:"displayCurrency,omitempty" toml:"displayCurrency,omitempty"`
}

// ToDocument converts settings to their stored form.
func (s Settings) ToDocument() Document {
	enabled := s.Enabled
	return Document{
		Enabled:         &enabled,
		Currencies:      s.Currencies,
		Precision:       s.Precision.Value(),
		SiteMode:        s.SiteMode,
		BlockedSites:    s.BlockedSites,
		AllowedSites:    s.AllowedSites,
		DisplayCurrency: s.DisplayCurrency,
	}
}

// Apply overlays the fields present in d onto base and normalizes the result.
func (d Document) Apply(base Settings) (Settings, error) {
	if d.Enabled != nil {
		base.Enabled = *d.Enabled
	}
	if d.Currencies != nil {
		base.Currencies = d.Currencies
	}
	if d.Precision != nil {
		p, err := conversion.ParsePrecision(d.Precision)
		if err != nil {
			return Settings{}, err
		}
		base.Precision = p
	}
	if d.SiteMode != "" {
		base.SiteMode = d.SiteMode
	}
	if d.BlockedSites != nil {
		base.BlockedSites = d.BlockedSites
	}
	if d.AllowedSites != nil {
		base.AllowedSites = d.AllowedSites
	}
	if d.DisplayCurrency != "" {
		base.DisplayCurrency = d.DisplayCurrency
	}
	return base.Normalize(), nil
}

// Decode parses settings in the given format ("json", "yaml" or "toml")
// on top of the defaults.
func Decode(data []byte, format string) (Settings, error) {
	var d Document
	var err error
	switch strings.ToLower(format) {
	case "json":
		err = sonic.Unmarshal(data, &d)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &d)
	case "toml":
		err = toml.Unmarshal(data, &d)
	default:
		return Settings{}, fmt.Errorf("unsupported settings format %q", format)
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to decode %s settings: %w", format, err)
	}
	return d.Apply(Defaults())
}

// LoadFile reads settings from path, choosing the format by extension.
func LoadFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
	}
	return Decode(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

// Encode renders settings in the given format.
func Encode(s Settings, format string) ([]byte, error) {
	d := s.ToDocument()
	switch strings.ToLower(format) {
	case "json":
		return sonic.MarshalIndent(d, "", "  ")
	case "yaml", "yml":
		return yaml.Marshal(d)
	case "toml":
		return toml.Marshal(d)
	default:
		return nil, fmt.Errorf("unsupported settings format %q", format)
	}
}

// SaveFile writes settings to path in the format named by its extension.
func SaveFile(path string, s Settings) error {
	data, err := Encode(s, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}
