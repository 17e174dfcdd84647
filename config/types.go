package config

// Feed configures one upstream realtime feed.
type Feed struct {
	Name           string `yaml:"name" validate:"required"`
	FeedID         string `yaml:"feedId" validate:"required"`
	TripUpdatesURL string `yaml:"tripUpdatesURL" validate:"omitempty,url"`
	ReadIntervalMS int    `yaml:"readIntervalMS" validate:"gte=0"`
	TimeoutMS      int    `yaml:"timeoutMS" validate:"gte=0"`
}

// UpdaterConfig tunes how updates turn into published snapshots.
type UpdaterConfig struct {
	// MaxSnapshotFrequencyMS is the minimum interval between automatic
	// commits. Zero commits after every batch; a negative value leaves
	// publication to explicit flushes. Omitted means 1000.
	MaxSnapshotFrequencyMS *int `yaml:"maxSnapshotFrequencyMS"`

	// PurgeExpiredData drops realtime data for past service dates once
	// per day at commit time.
	PurgeExpiredData *bool `yaml:"purgeExpiredData"`

	// BackwardsDelayPropagation selects how delays first observed
	// mid-trip reflect onto earlier stops.
	BackwardsDelayPropagation string `yaml:"backwardsDelayPropagation" validate:"omitempty,oneof=REQUIRED_NO_DATA REQUIRED ALWAYS"`

	// Timezone anchors service-day midnight for absolute stop times.
	Timezone string `yaml:"timezone"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Feeds   []Feed        `yaml:"feeds"`
	Updater UpdaterConfig `yaml:"updater"`
}
