package transit

import (
	"errors"
	"fmt"
)

// ErrFrozenTimetable is returned by mutating operations on a timetable
// that has been published in a snapshot. Hitting it indicates a
// copy-on-write discipline bug in the caller, not bad data.
var ErrFrozenTimetable = errors.New("timetable is frozen and read-only")

// Timetable holds the trip times valid on one service date for one
// pattern. The scheduled baseline timetable has a zero service date and
// is valid for every date. Realtime timetables are created by copying
// another timetable for a specific date; once referenced from a
// published snapshot they are frozen and structurally shared between
// snapshot generations.
type Timetable struct {
	pattern     *Pattern
	serviceDate ServiceDate
	tripTimes   []*TripTimes
	tripIndex   map[FeedScopedID]int
	frozen      bool
}

func newTimetable(pattern *Pattern, serviceDate ServiceDate) *Timetable {
	return &Timetable{
		pattern:     pattern,
		serviceDate: serviceDate,
		tripIndex:   map[FeedScopedID]int{},
	}
}

func (t *Timetable) Pattern() *Pattern { return t.pattern }

func (t *Timetable) ServiceDate() ServiceDate { return t.serviceDate }

// IsValidFor reports whether this timetable applies to the given date.
// The baseline timetable (zero date) applies to every date.
func (t *Timetable) IsValidFor(date ServiceDate) bool {
	return t.serviceDate.IsZero() || t.serviceDate == date
}

// TripIndex returns the position of the trip in the table, or -1.
func (t *Timetable) TripIndex(tripID FeedScopedID) int {
	if i, ok := t.tripIndex[tripID]; ok {
		return i
	}
	return -1
}

// TripTimes returns the trip times in table order. The returned slice
// is a copy; the entries are shared.
func (t *Timetable) TripTimes() []*TripTimes {
	copied := make([]*TripTimes, len(t.tripTimes))
	copy(copied, t.tripTimes)
	return copied
}

// NumTrips returns the number of trips in the table.
func (t *Timetable) NumTrips() int { return len(t.tripTimes) }

// TripTimesForTrip returns the times for the given trip, or nil.
func (t *Timetable) TripTimesForTrip(tripID FeedScopedID) *TripTimes {
	if i, ok := t.tripIndex[tripID]; ok {
		return t.tripTimes[i]
	}
	return nil
}

// HasTripTimes reports whether the table holds exactly this instance.
func (t *Timetable) HasTripTimes(tt *TripTimes) bool {
	if i, ok := t.tripIndex[tt.TripID()]; ok {
		return t.tripTimes[i] == tt
	}
	return false
}

// AddTripTimes appends trip times for a trip not yet in the table.
func (t *Timetable) AddTripTimes(tt *TripTimes) error {
	if t.frozen {
		return ErrFrozenTimetable
	}
	if _, ok := t.tripIndex[tt.TripID()]; ok {
		return fmt.Errorf("trip %s already present in timetable", tt.TripID())
	}
	t.tripIndex[tt.TripID()] = len(t.tripTimes)
	t.tripTimes = append(t.tripTimes, tt)
	return nil
}

// SetTripTimes replaces the entry at position i.
func (t *Timetable) SetTripTimes(i int, tt *TripTimes) error {
	if t.frozen {
		return ErrFrozenTimetable
	}
	delete(t.tripIndex, t.tripTimes[i].TripID())
	t.tripTimes[i] = tt
	t.tripIndex[tt.TripID()] = i
	return nil
}

// RemoveTripTimes removes exactly this instance from the table.
func (t *Timetable) RemoveTripTimes(tt *TripTimes) error {
	if t.frozen {
		return ErrFrozenTimetable
	}
	i, ok := t.tripIndex[tt.TripID()]
	if !ok || t.tripTimes[i] != tt {
		return nil
	}
	t.tripTimes = append(t.tripTimes[:i], t.tripTimes[i+1:]...)
	delete(t.tripIndex, tt.TripID())
	for j := i; j < len(t.tripTimes); j++ {
		t.tripIndex[t.tripTimes[j].TripID()] = j
	}
	return nil
}

// CopyForDate returns an unfrozen copy of this timetable pinned to the
// given service date. The trip times entries are shared; the table
// structure is independent.
func (t *Timetable) CopyForDate(date ServiceDate) *Timetable {
	cp := newTimetable(t.pattern, date)
	cp.tripTimes = make([]*TripTimes, len(t.tripTimes))
	copy(cp.tripTimes, t.tripTimes)
	for id, i := range t.tripIndex {
		cp.tripIndex[id] = i
	}
	return cp
}

// Freeze makes the timetable permanently read-only. Called when the
// timetable is about to be referenced from a published snapshot.
func (t *Timetable) Freeze() { t.frozen = true }

// Frozen reports whether the timetable has been frozen.
func (t *Timetable) Frozen() bool { return t.frozen }
