package transit

import "strings"

// StopPattern is the ordered sequence of stops a family of trips
// traverses. Two patterns with the same stop sequence are considered
// structurally equal even if they belong to different Pattern handles.
type StopPattern struct {
	stops []*Stop
}

// NewStopPattern creates a stop pattern over the given stops.
func NewStopPattern(stops []*Stop) StopPattern {
	copied := make([]*Stop, len(stops))
	copy(copied, stops)
	return StopPattern{stops: copied}
}

func (sp StopPattern) NumStops() int { return len(sp.stops) }

func (sp StopPattern) Stop(i int) *Stop { return sp.stops[i] }

// Stops returns the stop sequence. The returned slice is a copy.
func (sp StopPattern) Stops() []*Stop {
	copied := make([]*Stop, len(sp.stops))
	copy(copied, sp.stops)
	return copied
}

// IndexOf returns the position of the first stop with the given id,
// or -1 if the stop is not part of the pattern.
func (sp StopPattern) IndexOf(stopID FeedScopedID) int {
	for i, s := range sp.stops {
		if s.ID == stopID {
			return i
		}
	}
	return -1
}

// Equal reports whether both patterns visit the same stops in the same
// order.
func (sp StopPattern) Equal(other StopPattern) bool {
	if len(sp.stops) != len(other.stops) {
		return false
	}
	for i := range sp.stops {
		if sp.stops[i].ID != other.stops[i].ID {
			return false
		}
	}
	return true
}

// Key returns a canonical string form of the stop sequence, used to
// deduplicate realtime-synthesized patterns.
func (sp StopPattern) Key() string {
	parts := make([]string, len(sp.stops))
	for i, s := range sp.stops {
		parts[i] = s.ID.String()
	}
	return strings.Join(parts, "|")
}

// Pattern is the structural key for timetables: a stop sequence served
// by a family of trips on one route. A pattern carries its scheduled
// timetable, the baseline for all dates with no realtime changes.
// Patterns synthesized at runtime for trips whose stop sequence was
// changed by an update are flagged CreatedByRealtimeUpdater.
type Pattern struct {
	id                       FeedScopedID
	route                    *Route
	stopPattern              StopPattern
	scheduledTimetable       *Timetable
	createdByRealtimeUpdater bool
}

// NewPattern creates a statically known pattern with an empty
// scheduled timetable. Trip times are added with AddScheduledTripTimes.
func NewPattern(id FeedScopedID, route *Route, stops []*Stop) *Pattern {
	p := &Pattern{id: id, route: route, stopPattern: NewStopPattern(stops)}
	p.scheduledTimetable = newTimetable(p, ServiceDate{})
	return p
}

// NewRealtimePattern creates a pattern synthesized by the realtime
// updater for a trip whose stop sequence differs from its scheduled
// pattern. Its scheduled timetable stays empty; trip times live in the
// snapshot buffer only.
func NewRealtimePattern(id FeedScopedID, route *Route, stops []*Stop) *Pattern {
	p := NewPattern(id, route, stops)
	p.createdByRealtimeUpdater = true
	return p
}

func (p *Pattern) ID() FeedScopedID { return p.id }

func (p *Pattern) FeedID() string { return p.id.FeedID }

func (p *Pattern) Route() *Route { return p.route }

func (p *Pattern) StopPattern() StopPattern { return p.stopPattern }

// Stops returns the pattern's stop sequence.
func (p *Pattern) Stops() []*Stop { return p.stopPattern.Stops() }

func (p *Pattern) NumStops() int { return p.stopPattern.NumStops() }

// ScheduledTimetable returns the static baseline timetable, valid for
// every date without realtime changes.
func (p *Pattern) ScheduledTimetable() *Timetable { return p.scheduledTimetable }

// CreatedByRealtimeUpdater reports whether this pattern was synthesized
// at runtime rather than loaded from the static schedule.
func (p *Pattern) CreatedByRealtimeUpdater() bool { return p.createdByRealtimeUpdater }

// AddScheduledTripTimes appends trip times to the scheduled timetable.
// Intended for model construction, before any snapshots circulate.
func (p *Pattern) AddScheduledTripTimes(tt *TripTimes) error {
	return p.scheduledTimetable.AddTripTimes(tt)
}
