package transit

import "fmt"

// RealTimeState describes how a whole trip relates to the schedule.
type RealTimeState int

const (
	// StateScheduled means the trip runs as published.
	StateScheduled RealTimeState = iota
	// StateUpdated means at least one stop time was changed.
	StateUpdated
	// StateCanceled means the trip does not run on this date.
	StateCanceled
	// StateAdded means the trip has no scheduled counterpart.
	StateAdded
	// StateModified means the trip runs on a changed stop sequence.
	StateModified
)

func (s RealTimeState) String() string {
	switch s {
	case StateScheduled:
		return "SCHEDULED"
	case StateUpdated:
		return "UPDATED"
	case StateCanceled:
		return "CANCELED"
	case StateAdded:
		return "ADDED"
	case StateModified:
		return "MODIFIED"
	default:
		return fmt.Sprintf("RealTimeState(%d)", int(s))
	}
}

// StopRealTimeState describes one stop of a trip.
type StopRealTimeState int

const (
	StopStateScheduled StopRealTimeState = iota
	StopStateUpdated
	StopStateNoData
	StopStateSkipped
	StopStateRecorded
)

// TripTimes holds per-stop arrival and departure seconds for one trip,
// measured from midnight of the service date. The snapshot engine
// compares instances by trip id; the times themselves are produced by
// the update handlers.
type TripTimes struct {
	trip       *Trip
	arrivals   []int
	departures []int
	stopStates []StopRealTimeState
	state      RealTimeState
}

// NewScheduledTripTimes builds the static baseline times for a trip.
// Arrival and departure slices must have equal length, one entry per
// stop of the pattern the times belong to.
func NewScheduledTripTimes(trip *Trip, arrivals, departures []int) (*TripTimes, error) {
	if len(arrivals) != len(departures) {
		return nil, fmt.Errorf("trip %s: %d arrivals but %d departures",
			trip.ID, len(arrivals), len(departures))
	}
	tt := &TripTimes{
		trip:       trip,
		arrivals:   append([]int(nil), arrivals...),
		departures: append([]int(nil), departures...),
		stopStates: make([]StopRealTimeState, len(arrivals)),
		state:      StateScheduled,
	}
	if err := tt.Validate(); err != nil {
		return nil, err
	}
	return tt, nil
}

func (t *TripTimes) Trip() *Trip { return t.trip }

func (t *TripTimes) TripID() FeedScopedID { return t.trip.ID }

func (t *TripTimes) NumStops() int { return len(t.arrivals) }

func (t *TripTimes) ArrivalTime(i int) int { return t.arrivals[i] }

func (t *TripTimes) DepartureTime(i int) int { return t.departures[i] }

func (t *TripTimes) State() RealTimeState { return t.state }

func (t *TripTimes) StopState(i int) StopRealTimeState { return t.stopStates[i] }

// Canceled reports whether the whole trip is canceled.
func (t *TripTimes) Canceled() bool { return t.state == StateCanceled }

// Copy returns an independent copy the caller may mutate.
func (t *TripTimes) Copy() *TripTimes {
	return &TripTimes{
		trip:       t.trip,
		arrivals:   append([]int(nil), t.arrivals...),
		departures: append([]int(nil), t.departures...),
		stopStates: append([]StopRealTimeState(nil), t.stopStates...),
		state:      t.state,
	}
}

// CopyForStops returns a copy restricted to the given stop indexes, in
// order. Used when a trip moves to a pattern with fewer stops.
func (t *TripTimes) CopyForStops(indexes []int) *TripTimes {
	cp := &TripTimes{
		trip:       t.trip,
		arrivals:   make([]int, len(indexes)),
		departures: make([]int, len(indexes)),
		stopStates: make([]StopRealTimeState, len(indexes)),
		state:      t.state,
	}
	for i, idx := range indexes {
		cp.arrivals[i] = t.arrivals[idx]
		cp.departures[i] = t.departures[idx]
		cp.stopStates[i] = t.stopStates[idx]
	}
	return cp
}

func (t *TripTimes) SetArrivalTime(i, seconds int) { t.arrivals[i] = seconds }

func (t *TripTimes) SetDepartureTime(i, seconds int) { t.departures[i] = seconds }

func (t *TripTimes) SetStopState(i int, s StopRealTimeState) { t.stopStates[i] = s }

func (t *TripTimes) SetState(s RealTimeState) { t.state = s }

// Cancel marks the whole trip canceled.
func (t *TripTimes) Cancel() { t.state = StateCanceled }

// Validate checks that times are non-decreasing along the trip:
// each departure no earlier than its arrival, each arrival no earlier
// than the previous departure. Skipped stops are excluded.
func (t *TripTimes) Validate() error {
	prevDeparture := -1
	for i := range t.arrivals {
		if t.stopStates[i] == StopStateSkipped {
			continue
		}
		if t.arrivals[i] < prevDeparture {
			return fmt.Errorf("trip %s: arrival at stop %d before previous departure", t.trip.ID, i)
		}
		if t.departures[i] < t.arrivals[i] {
			return fmt.Errorf("trip %s: departure before arrival at stop %d", t.trip.ID, i)
		}
		prevDeparture = t.departures[i]
	}
	return nil
}
