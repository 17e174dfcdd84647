package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppConfig(t *testing.T) {
	path := writeConfig(t, `
feeds:
  - name: oslo
    feedId: RUT
    tripUpdatesURL: https://example.com/trip-updates
    readIntervalMS: 5000
  - name: bergen
    feedId: SKY
updater:
  maxSnapshotFrequencyMS: 2000
  backwardsDelayPropagation: ALWAYS
  timezone: Europe/Oslo
`)
	if err := LoadAppConfig(path); err != nil {
		t.Fatalf("LoadAppConfig failed: %v", err)
	}
	if len(Config.Feeds) != 2 {
		t.Fatalf("got %d feeds, want 2", len(Config.Feeds))
	}
	if *Config.Updater.MaxSnapshotFrequencyMS != 2000 {
		t.Errorf("maxSnapshotFrequencyMS = %d", *Config.Updater.MaxSnapshotFrequencyMS)
	}
	if Config.Updater.BackwardsDelayPropagation != "ALWAYS" {
		t.Errorf("backwardsDelayPropagation = %q", Config.Updater.BackwardsDelayPropagation)
	}
	if Config.Feeds[0].ReadIntervalMS != 5000 {
		t.Errorf("explicit readIntervalMS overridden: %d", Config.Feeds[0].ReadIntervalMS)
	}
	// Omitted values fall back to defaults.
	if !*Config.Updater.PurgeExpiredData {
		t.Error("purgeExpiredData should default to true")
	}
	if Config.Feeds[1].ReadIntervalMS != 15000 || Config.Feeds[1].TimeoutMS != 10000 {
		t.Errorf("feed defaults not applied: %+v", Config.Feeds[1])
	}
}

func TestLoadAppConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
feeds:
  - name: oslo
    feedId: RUT
`)
	if err := LoadAppConfig(path); err != nil {
		t.Fatalf("LoadAppConfig failed: %v", err)
	}
	if *Config.Updater.MaxSnapshotFrequencyMS != 1000 {
		t.Errorf("maxSnapshotFrequencyMS default = %d, want 1000", *Config.Updater.MaxSnapshotFrequencyMS)
	}
	if Config.Updater.BackwardsDelayPropagation != "REQUIRED_NO_DATA" {
		t.Errorf("backwardsDelayPropagation default = %q", Config.Updater.BackwardsDelayPropagation)
	}
	if Config.Updater.Timezone != "UTC" {
		t.Errorf("timezone default = %q", Config.Updater.Timezone)
	}
}

func TestLoadAppConfigKeepsExplicitZeroFrequency(t *testing.T) {
	path := writeConfig(t, `
feeds:
  - name: oslo
    feedId: RUT
updater:
  maxSnapshotFrequencyMS: 0
`)
	if err := LoadAppConfig(path); err != nil {
		t.Fatalf("LoadAppConfig failed: %v", err)
	}
	if *Config.Updater.MaxSnapshotFrequencyMS != 0 {
		t.Errorf("an explicit zero should survive defaulting, got %d", *Config.Updater.MaxSnapshotFrequencyMS)
	}
}

func TestLoadAppConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{
			name: "feed without feedId",
			content: `
feeds:
  - name: oslo
`,
		},
		{
			name: "bad trip updates url",
			content: `
feeds:
  - name: oslo
    feedId: RUT
    tripUpdatesURL: not-a-url
`,
		},
		{
			name: "bad propagation policy",
			content: `
feeds:
  - name: oslo
    feedId: RUT
updater:
  backwardsDelayPropagation: SOMETIMES
`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := LoadAppConfig(writeConfig(t, tc.content)); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoadAppConfigMissingFile(t *testing.T) {
	if err := LoadAppConfig(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestSelectFeed(t *testing.T) {
	Config = AppConfig{Feeds: []Feed{
		{Name: "oslo", FeedID: "RUT"},
		{Name: "bergen", FeedID: "SKY"},
	}}
	if f, ok := SelectFeed("bergen"); !ok || f.FeedID != "SKY" {
		t.Errorf("SelectFeed(bergen) = %+v, %v", f, ok)
	}
	if f, ok := SelectFeed(""); !ok || f.FeedID != "RUT" {
		t.Errorf("SelectFeed(\"\") should fall back to the first feed, got %+v, %v", f, ok)
	}
	if _, ok := SelectFeed("trondheim"); ok {
		t.Error("SelectFeed of an unknown name should report false")
	}
}
