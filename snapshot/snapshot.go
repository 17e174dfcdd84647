package snapshot

import "github.com/theoremus-urban-solutions/timetable-snapshot/transit"

// Snapshot is an immutable view of the realtime timetable state at one
// commit. It is safe for concurrent readers; every realtime timetable it
// holds is frozen. Resolve falls back to the pattern's scheduled
// timetable, which is static model data and is not frozen.
type Snapshot struct {
	timetables            map[*transit.Pattern][]*transit.Timetable
	realtimeAddedPatterns map[transit.TripIDAndServiceDate]*transit.Pattern
	patternsForStop       map[*transit.Stop]map[*transit.Pattern]struct{}
}

// NewEmptySnapshot returns a snapshot with no realtime data; every
// pattern resolves to its scheduled timetable.
func NewEmptySnapshot() *Snapshot {
	return &Snapshot{
		timetables:            map[*transit.Pattern][]*transit.Timetable{},
		realtimeAddedPatterns: map[transit.TripIDAndServiceDate]*transit.Pattern{},
		patternsForStop:       map[*transit.Stop]map[*transit.Pattern]struct{}{},
	}
}

// Resolve returns the timetable for the pattern on the given date,
// falling back to the scheduled timetable when no realtime timetable
// applies.
func (s *Snapshot) Resolve(pattern *transit.Pattern, date transit.ServiceDate) *transit.Timetable {
	return resolveIn(s.timetables, pattern, date)
}

// RealtimeAddedPattern returns the pattern synthesized by realtime
// updates for the trip on the date, or nil.
func (s *Snapshot) RealtimeAddedPattern(tripID transit.FeedScopedID, date transit.ServiceDate) *transit.Pattern {
	return s.realtimeAddedPatterns[transit.TripIDAndServiceDate{TripID: tripID, ServiceDate: date}]
}

// HasRealtimeAddedPatterns reports whether any realtime-added patterns
// are present.
func (s *Snapshot) HasRealtimeAddedPatterns() bool {
	return len(s.realtimeAddedPatterns) > 0
}

// PatternsForStop returns the realtime-added patterns serving the stop.
func (s *Snapshot) PatternsForStop(stop *transit.Stop) []*transit.Pattern {
	set := s.patternsForStop[stop]
	out := make([]*transit.Pattern, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}

// IsEmpty reports whether the snapshot carries no realtime data.
func (s *Snapshot) IsEmpty() bool {
	return len(s.timetables) == 0 && len(s.realtimeAddedPatterns) == 0
}
