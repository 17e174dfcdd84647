package updater

import (
	"fmt"

	"github.com/theoremus-urban-solutions/timetable-snapshot/transit"
)

// BackwardsDelayPropagation selects how a delay first observed mid-trip
// is reflected onto the earlier stops the update said nothing about.
type BackwardsDelayPropagation int

const (
	// PropagationRequiredNoData adjusts earlier times only as far as
	// needed to keep them non-decreasing, and marks the touched stops
	// as having no data.
	PropagationRequiredNoData BackwardsDelayPropagation = iota
	// PropagationRequired adjusts earlier times only as far as needed
	// to keep them non-decreasing.
	PropagationRequired
	// PropagationAlways applies the first observed delay to every
	// earlier stop.
	PropagationAlways
)

func (p BackwardsDelayPropagation) String() string {
	switch p {
	case PropagationRequiredNoData:
		return "REQUIRED_NO_DATA"
	case PropagationRequired:
		return "REQUIRED"
	case PropagationAlways:
		return "ALWAYS"
	default:
		return fmt.Sprintf("BackwardsDelayPropagation(%d)", int(p))
	}
}

// ParseBackwardsDelayPropagation parses the configuration form of the
// policy.
func ParseBackwardsDelayPropagation(s string) (BackwardsDelayPropagation, error) {
	switch s {
	case "REQUIRED_NO_DATA":
		return PropagationRequiredNoData, nil
	case "REQUIRED":
		return PropagationRequired, nil
	case "ALWAYS":
		return PropagationAlways, nil
	default:
		return 0, fmt.Errorf("unknown backwards delay propagation %q", s)
	}
}

// propagateBackwards adjusts the stops before the first updated stop so
// the whole trip stays monotonic. firstUpdated is the index of the
// first stop the update carried data for; delay is the arrival delay
// observed there, in seconds.
func propagateBackwards(tt *transit.TripTimes, firstUpdated, delay int, policy BackwardsDelayPropagation) {
	if firstUpdated <= 0 {
		return
	}
	if policy == PropagationAlways {
		for i := 0; i < firstUpdated; i++ {
			tt.SetArrivalTime(i, tt.ArrivalTime(i)+delay)
			tt.SetDepartureTime(i, tt.DepartureTime(i)+delay)
			tt.SetStopState(i, transit.StopStateUpdated)
		}
		return
	}
	// Walk backwards, pulling each time down just enough to stay no
	// later than its successor.
	for i := firstUpdated - 1; i >= 0; i-- {
		bound := tt.ArrivalTime(i + 1)
		adjusted := false
		if tt.DepartureTime(i) > bound {
			tt.SetDepartureTime(i, bound)
			adjusted = true
		}
		if tt.ArrivalTime(i) > tt.DepartureTime(i) {
			tt.SetArrivalTime(i, tt.DepartureTime(i))
			adjusted = true
		}
		if adjusted && policy == PropagationRequiredNoData {
			tt.SetStopState(i, transit.StopStateNoData)
		}
		if !adjusted {
			break
		}
	}
}
