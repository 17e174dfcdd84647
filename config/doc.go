// Package config handles daemon configuration loading and validation.
//
// Configuration is loaded from a yaml file and validated using struct
// tags. The package supports multiple realtime feeds with per-feed
// polling settings.
package config
