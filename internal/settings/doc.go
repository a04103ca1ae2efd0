// Package settings holds the user configuration: enablement, enabled
// currencies, precision, site allow/block lists and display currency.
//
// Settings files may be JSON (sonic), YAML (goccy/go-yaml) or TOML
// (go-toml/v2). Missing fields keep their defaults.
package settings
