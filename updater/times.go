package updater

import (
	"time"

	"github.com/theoremus-urban-solutions/timetable-snapshot/transit"
)

// StopTimeUpdate is the dialect-independent form of one per-stop
// update. Either StopSequence (position in the pattern, -1 when
// absent) or StopID identifies the stop. Times are seconds since
// midnight of the service date; delays are seconds relative to the
// scheduled time. Nil means "not given".
type StopTimeUpdate struct {
	StopSequence int
	StopID       string

	ArrivalTime    *int
	ArrivalDelay   *int
	DepartureTime  *int
	DepartureDelay *int

	Skipped  bool
	NoData   bool
	Recorded bool
}

// matchStop returns the pattern index the update addresses, searching
// forward from the given position, or -1.
func (u StopTimeUpdate) matchStop(pattern *transit.Pattern, from int) int {
	if u.StopSequence >= 0 {
		if u.StopSequence < pattern.NumStops() {
			return u.StopSequence
		}
		return -1
	}
	sp := pattern.StopPattern()
	for i := from; i < sp.NumStops(); i++ {
		if sp.Stop(i).ID.ID == u.StopID {
			return i
		}
	}
	return -1
}

// applyStopTimeUpdates builds updated trip times from the scheduled
// baseline. Delays carry forward to later stops the update said
// nothing about; the first observed delay propagates backwards per the
// policy. The returned skipped list holds the pattern indexes of
// SKIPPED stops, in order; a non-empty list means the caller must move
// the trip to a reduced pattern.
func applyStopTimeUpdates(scheduled *transit.TripTimes, pattern *transit.Pattern, updates []StopTimeUpdate, policy BackwardsDelayPropagation) (*transit.TripTimes, []int, *UpdateError) {
	tt := scheduled.Copy()
	tt.SetState(transit.StateUpdated)

	var skipped []int
	arrivalDelay, departureDelay := 0, 0
	firstUpdated, firstDelay := -1, 0
	next := 0

	for _, u := range updates {
		i := u.matchStop(pattern, next)
		if i < 0 || i < next {
			return nil, nil, &UpdateError{
				Kind:        InvalidStopSequence,
				TripID:      scheduled.TripID().String(),
				Description: "update addresses a stop not in the pattern, or out of order",
			}
		}
		// Stops between the previous update and this one inherit the
		// running delay.
		for j := next; j < i; j++ {
			shiftStop(tt, j, arrivalDelay, departureDelay)
		}

		switch {
		case u.Skipped:
			tt.SetStopState(i, transit.StopStateSkipped)
			skipped = append(skipped, i)
		case u.NoData:
			tt.SetStopState(i, transit.StopStateNoData)
			shiftStop(tt, i, arrivalDelay, departureDelay)
		default:
			if u.ArrivalTime != nil {
				arrivalDelay = *u.ArrivalTime - scheduled.ArrivalTime(i)
			} else if u.ArrivalDelay != nil {
				arrivalDelay = *u.ArrivalDelay
			}
			if u.DepartureTime != nil {
				departureDelay = *u.DepartureTime - scheduled.DepartureTime(i)
			} else if u.DepartureDelay != nil {
				departureDelay = *u.DepartureDelay
			} else {
				departureDelay = arrivalDelay
			}
			shiftStop(tt, i, arrivalDelay, departureDelay)
			if u.Recorded {
				tt.SetStopState(i, transit.StopStateRecorded)
			} else {
				tt.SetStopState(i, transit.StopStateUpdated)
			}
			if firstUpdated < 0 {
				firstUpdated, firstDelay = i, arrivalDelay
			}
		}
		next = i + 1
	}
	// Trailing stops inherit the final delay.
	for j := next; j < tt.NumStops(); j++ {
		shiftStop(tt, j, arrivalDelay, departureDelay)
	}

	if firstUpdated > 0 {
		propagateBackwards(tt, firstUpdated, firstDelay, policy)
	}
	if err := tt.Validate(); err != nil {
		return nil, nil, &UpdateError{
			Kind:        NonMonotonicTimes,
			TripID:      scheduled.TripID().String(),
			Description: err.Error(),
		}
	}
	return tt, skipped, nil
}

func shiftStop(tt *transit.TripTimes, i, arrivalDelay, departureDelay int) {
	if arrivalDelay != 0 {
		tt.SetArrivalTime(i, tt.ArrivalTime(i)+arrivalDelay)
	}
	if departureDelay != 0 {
		tt.SetDepartureTime(i, tt.DepartureTime(i)+departureDelay)
	}
}

// secondsSinceMidnight converts an absolute time to seconds since
// midnight of the service date in the given location. Trips spanning
// midnight yield values beyond 24h, as GTFS times do.
func secondsSinceMidnight(t time.Time, date transit.ServiceDate, loc *time.Location) int {
	return int(t.Sub(date.StartOfDay(loc)) / time.Second)
}
