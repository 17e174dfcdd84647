package snapshot

import (
	"fmt"
	"maps"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/theoremus-urban-solutions/timetable-snapshot/transit"
)

// TransitLayerUpdater is notified on commit with the timetables changed
// since the previous commit, so a routing layer can refresh its own
// derived structures. Implementations run on the writer goroutine.
type TransitLayerUpdater interface {
	Update(dirty []*transit.Timetable, timetables map[*transit.Pattern][]*transit.Timetable)
}

// Buffer collects realtime timetable changes between commits. All
// methods must be called from a single writer goroutine; readers use
// the Snapshot a Commit returns.
//
// Timetable slices are replaced wholesale rather than mutated so that
// snapshots handed out by earlier commits keep seeing their own
// versions.
type Buffer struct {
	// timetables maps each pattern to its realtime timetables, sorted
	// by service date. The scheduled baseline is not stored here.
	timetables map[*transit.Pattern][]*transit.Timetable

	// realtimeAddedPatterns records, per trip and date, the pattern
	// synthesized by updates that the trip was moved to. Reverts and
	// snapshot lookups read it.
	realtimeAddedPatterns map[transit.TripIDAndServiceDate]*transit.Pattern

	// patternsForStop indexes realtime-added patterns by the stops they
	// serve. Scheduled patterns are not indexed here.
	patternsForStop map[*transit.Stop]map[*transit.Pattern]struct{}

	// dirtyTimetables holds the timetables copied since the last
	// commit, so each (pattern, date) pair is copied at most once.
	dirtyTimetables map[*transit.Timetable]struct{}

	dirty bool
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		timetables:            map[*transit.Pattern][]*transit.Timetable{},
		realtimeAddedPatterns: map[transit.TripIDAndServiceDate]*transit.Pattern{},
		patternsForStop:       map[*transit.Stop]map[*transit.Pattern]struct{}{},
		dirtyTimetables:       map[*transit.Timetable]struct{}{},
	}
}

// Resolve returns the timetable for the pattern on the given date,
// falling back to the pattern's scheduled timetable when no realtime
// timetable applies. A zero date always resolves to the scheduled
// timetable.
func (b *Buffer) Resolve(pattern *transit.Pattern, date transit.ServiceDate) *transit.Timetable {
	return resolveIn(b.timetables, pattern, date)
}

func resolveIn(timetables map[*transit.Pattern][]*transit.Timetable, pattern *transit.Pattern, date transit.ServiceDate) *transit.Timetable {
	if !date.IsZero() {
		for _, tt := range timetables[pattern] {
			if tt.IsValidFor(date) {
				return tt
			}
		}
	}
	return pattern.ScheduledTimetable()
}

// Update applies updated trip times to the pattern's timetable for the
// given service date, copying the timetable first if this is its first
// change since the last commit. Patterns synthesized by the realtime
// updater are also registered in the added-pattern indexes.
func (b *Buffer) Update(pattern *transit.Pattern, updated *transit.TripTimes, date transit.ServiceDate) error {
	if pattern == nil || updated == nil {
		return fmt.Errorf("update requires a pattern and trip times")
	}
	if date.IsZero() {
		return fmt.Errorf("update requires a service date")
	}

	tt := b.Resolve(pattern, date)
	if _, isDirty := b.dirtyTimetables[tt]; !isDirty {
		tt = b.copyTimetable(pattern, tt, date)
	}

	if i := tt.TripIndex(updated.TripID()); i >= 0 {
		if err := tt.SetTripTimes(i, updated); err != nil {
			return err
		}
	} else {
		if err := tt.AddTripTimes(updated); err != nil {
			return err
		}
	}
	b.dirty = true

	if pattern.CreatedByRealtimeUpdater() {
		key := transit.TripIDAndServiceDate{TripID: updated.TripID(), ServiceDate: date}
		b.realtimeAddedPatterns[key] = pattern
		b.indexPatternStops(pattern)
	}
	return nil
}

// copyTimetable replaces the pattern's timetable for the date with an
// unfrozen copy and records it as dirty. The sorted slice is rebuilt
// rather than mutated in place.
func (b *Buffer) copyTimetable(pattern *transit.Pattern, tt *transit.Timetable, date transit.ServiceDate) *transit.Timetable {
	cp := tt.CopyForDate(date)

	existing := b.timetables[pattern]
	next := make([]*transit.Timetable, 0, len(existing)+1)
	for _, other := range existing {
		if !tt.ServiceDate().IsZero() && other == tt {
			continue
		}
		next = append(next, other)
	}
	next = append(next, cp)
	sort.SliceStable(next, func(i, j int) bool {
		return next[i].ServiceDate().Before(next[j].ServiceDate())
	})
	b.timetables[pattern] = next
	b.dirtyTimetables[cp] = struct{}{}
	return cp
}

func (b *Buffer) indexPatternStops(pattern *transit.Pattern) {
	for _, stop := range pattern.Stops() {
		set, ok := b.patternsForStop[stop]
		if !ok {
			set = map[*transit.Pattern]struct{}{}
			b.patternsForStop[stop] = set
		}
		set[pattern] = struct{}{}
	}
}

// RevertTripToScheduledPattern removes the realtime-added pattern
// mapping for the trip on the date and drops the trip's times from the
// timetable that holds them. It reports whether anything changed.
//
// If the trip's times turn up in more than one timetable valid for the
// date, the state is ambiguous; the conflict is logged and both
// timetables are left alone.
func (b *Buffer) RevertTripToScheduledPattern(tripID transit.FeedScopedID, date transit.ServiceDate) bool {
	key := transit.TripIDAndServiceDate{TripID: tripID, ServiceDate: date}
	pattern, ok := b.realtimeAddedPatterns[key]
	if !ok {
		return false
	}
	delete(b.realtimeAddedPatterns, key)
	b.dirty = true

	var found []*transit.Timetable
	for _, tt := range b.timetables[pattern] {
		if tt.IsValidFor(date) && tt.TripTimesForTrip(tripID) != nil {
			found = append(found, tt)
		}
	}
	if len(found) > 1 {
		log.Debug().
			Str("trip", tripID.String()).
			Str("date", date.String()).
			Int("timetables", len(found)).
			Msg("trip present in multiple timetables for date, not reverting times")
		return true
	}
	if len(found) == 1 {
		tt := found[0]
		times := tt.TripTimesForTrip(tripID)
		if _, isDirty := b.dirtyTimetables[tt]; !isDirty {
			tt = b.copyTimetable(pattern, tt, date)
		}
		if err := tt.RemoveTripTimes(times); err != nil {
			log.Error().Err(err).Str("trip", tripID.String()).Msg("failed to remove reverted trip times")
		}
	}
	return true
}

// PurgeExpiredData drops realtime timetables for service dates on or
// before the given date, along with added-pattern entries for those
// dates. It reports whether anything was removed. Purging does not mark
// the buffer dirty; callers that want the result published force a
// commit.
func (b *Buffer) PurgeExpiredData(before transit.ServiceDate) bool {
	modified := false
	for pattern, tts := range b.timetables {
		kept := tts[:0:0]
		for _, tt := range tts {
			if tt.ServiceDate().After(before) {
				kept = append(kept, tt)
			} else {
				modified = true
			}
		}
		if len(kept) == 0 {
			delete(b.timetables, pattern)
		} else {
			b.timetables[pattern] = kept
		}
	}
	for key := range b.realtimeAddedPatterns {
		if !key.ServiceDate.After(before) {
			b.removeAddedPattern(key)
			modified = true
		}
	}
	return modified
}

// Clear removes all realtime data for the feed, reverting its patterns
// to their scheduled timetables.
func (b *Buffer) Clear(feedID string) {
	for pattern := range b.timetables {
		if pattern.FeedID() == feedID {
			delete(b.timetables, pattern)
			b.dirty = true
		}
	}
	for key := range b.realtimeAddedPatterns {
		if key.TripID.FeedID == feedID {
			b.removeAddedPattern(key)
			b.dirty = true
		}
	}
}

func (b *Buffer) removeAddedPattern(key transit.TripIDAndServiceDate) {
	pattern := b.realtimeAddedPatterns[key]
	delete(b.realtimeAddedPatterns, key)
	for other, p := range b.realtimeAddedPatterns {
		if other != key && p == pattern {
			return
		}
	}
	for _, stop := range pattern.Stops() {
		if set, ok := b.patternsForStop[stop]; ok {
			delete(set, pattern)
			if len(set) == 0 {
				delete(b.patternsForStop, stop)
			}
		}
	}
}

// Commit publishes the buffered state as an immutable snapshot and
// starts a new dirty window. It returns nil when the buffer has no
// changes and force is false. Timetables changed since the last commit
// are frozen before the snapshot is handed out.
func (b *Buffer) Commit(transitLayer TransitLayerUpdater, force bool) *Snapshot {
	if !force && !b.dirty {
		return nil
	}
	for tt := range b.dirtyTimetables {
		tt.Freeze()
	}
	snap := &Snapshot{
		timetables:            maps.Clone(b.timetables),
		realtimeAddedPatterns: maps.Clone(b.realtimeAddedPatterns),
		patternsForStop:       clonePatternsForStop(b.patternsForStop),
	}
	if transitLayer != nil {
		dirty := make([]*transit.Timetable, 0, len(b.dirtyTimetables))
		for tt := range b.dirtyTimetables {
			dirty = append(dirty, tt)
		}
		transitLayer.Update(dirty, b.timetables)
	}
	b.dirtyTimetables = map[*transit.Timetable]struct{}{}
	b.dirty = false
	return snap
}

func clonePatternsForStop(src map[*transit.Stop]map[*transit.Pattern]struct{}) map[*transit.Stop]map[*transit.Pattern]struct{} {
	out := make(map[*transit.Stop]map[*transit.Pattern]struct{}, len(src))
	for stop, set := range src {
		out[stop] = maps.Clone(set)
	}
	return out
}

// RealtimeAddedPattern returns the pattern synthesized for the trip on
// the date, or nil.
func (b *Buffer) RealtimeAddedPattern(tripID transit.FeedScopedID, date transit.ServiceDate) *transit.Pattern {
	return b.realtimeAddedPatterns[transit.TripIDAndServiceDate{TripID: tripID, ServiceDate: date}]
}

// IsDirty reports whether the buffer holds uncommitted changes.
func (b *Buffer) IsDirty() bool { return b.dirty }

// IsEmpty reports whether the buffer holds no realtime data at all.
func (b *Buffer) IsEmpty() bool {
	return len(b.timetables) == 0 && len(b.realtimeAddedPatterns) == 0
}
