package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the global daemon configuration
var Config AppConfig

// LoadAppConfig loads and validates the configuration from the given
// path, falling back to config.yml in the working directory.
func LoadAppConfig(path string) error {
	paths := []string{path, "config.yml"}
	var data []byte
	var err error
	for _, p := range paths {
		if p == "" {
			continue
		}
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}
	v := validator.New()
	if err := v.Struct(cfg.Updater); err != nil {
		return err
	}
	for _, f := range cfg.Feeds {
		if err := v.Struct(f); err != nil {
			return err
		}
	}
	Config = cfg
	applyDefaults(&Config)
	return nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Updater.MaxSnapshotFrequencyMS == nil {
		freq := 1000
		cfg.Updater.MaxSnapshotFrequencyMS = &freq
	}
	if cfg.Updater.PurgeExpiredData == nil {
		purge := true
		cfg.Updater.PurgeExpiredData = &purge
	}
	if cfg.Updater.BackwardsDelayPropagation == "" {
		cfg.Updater.BackwardsDelayPropagation = "REQUIRED_NO_DATA"
	}
	if cfg.Updater.Timezone == "" {
		cfg.Updater.Timezone = "UTC"
	}
	for i := range cfg.Feeds {
		if cfg.Feeds[i].ReadIntervalMS == 0 {
			cfg.Feeds[i].ReadIntervalMS = 15000
		}
		if cfg.Feeds[i].TimeoutMS == 0 {
			cfg.Feeds[i].TimeoutMS = 10000
		}
	}
}

// SelectFeed chooses a feed by name, falling back to the first.
func SelectFeed(name string) (Feed, bool) {
	if name != "" {
		for _, f := range Config.Feeds {
			if f.Name == name {
				return f, true
			}
		}
		return Feed{}, false
	}
	if len(Config.Feeds) > 0 {
		return Config.Feeds[0], true
	}
	return Feed{}, false
}
