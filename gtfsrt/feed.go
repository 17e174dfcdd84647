package gtfsrt

import (
	"fmt"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// DecodeFeed unmarshals a raw GTFS-RT protobuf payload.
func DecodeFeed(data []byte) (*gtfsrtpb.FeedMessage, error) {
	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(data, &fm); err != nil {
		return nil, fmt.Errorf("failed to decode GTFS-RT feed: %w", err)
	}
	return &fm, nil
}

// IsFullDataset reports whether the feed replaces all previous realtime
// data for its producer. A missing header or incrementality field means
// FULL_DATASET, the protobuf default.
func IsFullDataset(fm *gtfsrtpb.FeedMessage) bool {
	if fm.Header == nil || fm.Header.Incrementality == nil {
		return true
	}
	return *fm.Header.Incrementality == gtfsrtpb.FeedHeader_FULL_DATASET
}

// TripUpdates extracts the trip updates from a feed, skipping entities
// of other kinds.
func TripUpdates(fm *gtfsrtpb.FeedMessage) []*gtfsrtpb.TripUpdate {
	updates := make([]*gtfsrtpb.TripUpdate, 0, len(fm.Entity))
	for _, e := range fm.Entity {
		if e.TripUpdate != nil {
			updates = append(updates, e.TripUpdate)
		}
	}
	return updates
}
