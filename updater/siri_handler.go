package updater

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/theoremus-urban-solutions/timetable-snapshot/siri"
	"github.com/theoremus-urban-solutions/timetable-snapshot/snapshot"
	"github.com/theoremus-urban-solutions/timetable-snapshot/transit"
)

// FuzzyTripMatcher is an optional heuristic fallback consulted when a
// journey's explicit references fail to resolve.
type FuzzyTripMatcher interface {
	Match(j *siri.EstimatedVehicleJourney) (*transit.Trip, transit.ServiceDate, bool)
}

// EstimatedTimetableHandler applies SIRI ET deliveries to a timetable
// buffer.
type EstimatedTimetableHandler struct {
	model       transit.Model
	resolver    *EntityResolver
	fuzzy       FuzzyTripMatcher
	propagation BackwardsDelayPropagation
	cache       *patternCache
	loc         *time.Location
}

// NewEstimatedTimetableHandler creates a handler for one feed. The
// fuzzy matcher may be nil.
func NewEstimatedTimetableHandler(model transit.Model, feedID string, propagation BackwardsDelayPropagation, loc *time.Location, fuzzy FuzzyTripMatcher) *EstimatedTimetableHandler {
	return &EstimatedTimetableHandler{
		model:       model,
		resolver:    NewEntityResolver(model, feedID),
		fuzzy:       fuzzy,
		propagation: propagation,
		cache:       newPatternCache(),
		loc:         loc,
	}
}

// Apply translates the deliveries into buffer operations and reports
// the per-journey outcome.
func (h *EstimatedTimetableHandler) Apply(buf *snapshot.Buffer, deliveries []siri.EstimatedTimetableDelivery) UpdateResult {
	var result UpdateResult
	for _, d := range deliveries {
		for _, frame := range d.EstimatedJourneyVersionFrame {
			for i := range frame.EstimatedVehicleJourney {
				j := &frame.EstimatedVehicleJourney[i]
				if err := h.applyJourney(buf, j); err != nil {
					result.Errors = append(result.Errors, *err)
					log.Debug().Str("trip", err.TripID).Str("kind", err.Kind.String()).Msg("dropped estimated journey")
				} else {
					result.success()
				}
			}
		}
	}
	return result
}

func (h *EstimatedTimetableHandler) applyJourney(buf *snapshot.Buffer, j *siri.EstimatedVehicleJourney) *UpdateError {
	trip, date := h.resolver.ResolveJourney(j)
	if trip == nil && h.fuzzy != nil {
		if t, d, ok := h.fuzzy.Match(j); ok {
			trip, date = t, d
		}
	}
	if trip == nil {
		return &UpdateError{Kind: UnknownTrip, Description: "journey references did not resolve: " + journeyRef(j)}
	}
	pattern := h.model.PatternForTrip(trip.ID)
	if pattern == nil {
		return &UpdateError{Kind: UnknownTrip, TripID: trip.ID.String(), Description: "trip has no scheduled pattern"}
	}
	scheduled := pattern.ScheduledTimetable().TripTimesForTrip(trip.ID)
	if scheduled == nil {
		return &UpdateError{Kind: UnknownTrip, TripID: trip.ID.String(), Description: "trip has no scheduled times"}
	}

	if j.Cancellation {
		tt := scheduled.Copy()
		tt.Cancel()
		if err := buf.Update(pattern, tt, date); err != nil {
			return &UpdateError{Kind: ReadOnly, TripID: trip.ID.String(), Description: err.Error()}
		}
		return nil
	}

	calls, uerr := h.journeyCalls(j, trip, date)
	if uerr != nil {
		return uerr
	}

	if diverged, stops, err := h.divergentStops(calls, pattern, trip); err != nil {
		return err
	} else if diverged {
		return h.applyDivergentJourney(buf, calls, trip, pattern, stops, date)
	}

	updates := make([]StopTimeUpdate, len(calls))
	for i, c := range calls {
		updates[i] = c.update
	}
	tt, skipped, uerr := applyStopTimeUpdates(scheduled, pattern, updates, h.propagation)
	if uerr != nil {
		return uerr
	}
	if len(skipped) > 0 {
		kept := make([]int, 0, pattern.NumStops()-len(skipped))
		skip := map[int]struct{}{}
		for _, i := range skipped {
			skip[i] = struct{}{}
		}
		stops := make([]*transit.Stop, 0, pattern.NumStops()-len(skipped))
		for i := 0; i < pattern.NumStops(); i++ {
			if _, ok := skip[i]; ok {
				continue
			}
			kept = append(kept, i)
			stops = append(stops, pattern.StopPattern().Stop(i))
		}
		reduced := tt.CopyForStops(kept)
		reduced.SetState(transit.StateModified)
		rtPattern := h.cache.patternFor(pattern, stops)
		if err := buf.Update(rtPattern, reduced, date); err != nil {
			return &UpdateError{Kind: ReadOnly, TripID: trip.ID.String(), Description: err.Error()}
		}
		return nil
	}
	if err := buf.Update(pattern, tt, date); err != nil {
		return &UpdateError{Kind: ReadOnly, TripID: trip.ID.String(), Description: err.Error()}
	}
	return nil
}

// journeyCall pairs a resolved quay with the per-stop update derived
// from its call times.
type journeyCall struct {
	stop   *transit.Stop
	update StopTimeUpdate
}

func (h *EstimatedTimetableHandler) journeyCalls(j *siri.EstimatedVehicleJourney, trip *transit.Trip, date transit.ServiceDate) ([]journeyCall, *UpdateError) {
	calls := make([]journeyCall, 0, len(j.RecordedCalls)+len(j.EstimatedCalls))
	for _, rc := range j.RecordedCalls {
		stop := h.resolver.ResolveQuay(rc.StopPointRef)
		if stop == nil {
			return nil, &UpdateError{Kind: UnknownStop, TripID: trip.ID.String(), Description: "unknown quay " + rc.StopPointRef}
		}
		u := StopTimeUpdate{StopSequence: -1, StopID: stop.ID.ID, Recorded: true, Skipped: rc.Cancellation}
		if uerr := h.fillCallTimes(&u, rc.ActualArrivalTime, rc.AimedArrivalTime, rc.ActualDepartureTime, rc.AimedDepartureTime, trip, date); uerr != nil {
			return nil, uerr
		}
		calls = append(calls, journeyCall{stop: stop, update: u})
	}
	for _, ec := range j.EstimatedCalls {
		stop := h.resolver.ResolveQuay(ec.StopPointRef)
		if stop == nil {
			return nil, &UpdateError{Kind: UnknownStop, TripID: trip.ID.String(), Description: "unknown quay " + ec.StopPointRef}
		}
		u := StopTimeUpdate{StopSequence: -1, StopID: stop.ID.ID, Skipped: ec.Cancellation}
		if uerr := h.fillCallTimes(&u, ec.ExpectedArrivalTime, ec.AimedArrivalTime, ec.ExpectedDepartureTime, ec.AimedDepartureTime, trip, date); uerr != nil {
			return nil, uerr
		}
		calls = append(calls, journeyCall{stop: stop, update: u})
	}
	return calls, nil
}

// fillCallTimes sets the update's absolute times from the best
// available call time, preferring observed or expected over aimed.
func (h *EstimatedTimetableHandler) fillCallTimes(u *StopTimeUpdate, bestArrival, aimedArrival, bestDeparture, aimedDeparture string, trip *transit.Trip, date transit.ServiceDate) *UpdateError {
	set := func(dst **int, raw string) *UpdateError {
		if raw == "" {
			return nil
		}
		t, err := siri.ParseTime(raw)
		if err != nil {
			return &UpdateError{Kind: DateUnparseable, TripID: trip.ID.String(), Description: "bad call time " + raw}
		}
		sec := secondsSinceMidnight(t.In(h.loc), date, h.loc)
		*dst = &sec
		return nil
	}
	if err := set(&u.ArrivalTime, firstNonEmpty(bestArrival, aimedArrival)); err != nil {
		return err
	}
	return set(&u.DepartureTime, firstNonEmpty(bestDeparture, aimedDeparture))
}

// divergentStops reports whether the call sequence departs from the
// scheduled pattern and, if so, the full replacement stop sequence.
func (h *EstimatedTimetableHandler) divergentStops(calls []journeyCall, pattern *transit.Pattern, trip *transit.Trip) (bool, []*transit.Stop, *UpdateError) {
	next := 0
	diverged := false
	sp := pattern.StopPattern()
	for _, c := range calls {
		i := -1
		for k := next; k < sp.NumStops(); k++ {
			if sp.Stop(k) == c.stop {
				i = k
				break
			}
		}
		if i < 0 {
			diverged = true
			break
		}
		next = i + 1
	}
	if !diverged {
		return false, nil, nil
	}
	stops := make([]*transit.Stop, len(calls))
	for i, c := range calls {
		stops[i] = c.stop
	}
	if len(stops) < 2 {
		return true, nil, &UpdateError{Kind: PatternChangedTooFar, TripID: trip.ID.String(), Description: "changed journey with fewer than two calls"}
	}
	return true, stops, nil
}

// applyDivergentJourney moves the trip onto a pattern synthesized from
// the call sequence, with times taken directly from the calls.
func (h *EstimatedTimetableHandler) applyDivergentJourney(buf *snapshot.Buffer, calls []journeyCall, trip *transit.Trip, pattern *transit.Pattern, stops []*transit.Stop, date transit.ServiceDate) *UpdateError {
	arrivals := make([]int, len(calls))
	departures := make([]int, len(calls))
	for i, c := range calls {
		switch {
		case c.update.ArrivalTime != nil && c.update.DepartureTime != nil:
			arrivals[i] = *c.update.ArrivalTime
			departures[i] = *c.update.DepartureTime
		case c.update.ArrivalTime != nil:
			arrivals[i] = *c.update.ArrivalTime
			departures[i] = arrivals[i]
		case c.update.DepartureTime != nil:
			departures[i] = *c.update.DepartureTime
			arrivals[i] = departures[i]
		default:
			return &UpdateError{Kind: NonMonotonicTimes, TripID: trip.ID.String(), Description: "changed journey call without times"}
		}
	}
	tt, err := transit.NewScheduledTripTimes(trip, arrivals, departures)
	if err != nil {
		return &UpdateError{Kind: NonMonotonicTimes, TripID: trip.ID.String(), Description: err.Error()}
	}
	tt.SetState(transit.StateModified)
	for i, c := range calls {
		if c.update.Recorded {
			tt.SetStopState(i, transit.StopStateRecorded)
		} else {
			tt.SetStopState(i, transit.StopStateUpdated)
		}
	}
	rtPattern := h.cache.patternFor(pattern, stops)
	if uerr := buf.Update(rtPattern, tt, date); uerr != nil {
		return &UpdateError{Kind: ReadOnly, TripID: trip.ID.String(), Description: uerr.Error()}
	}
	return nil
}

func journeyRef(j *siri.EstimatedVehicleJourney) string {
	if j.FramedVehicleJourneyRef != nil && j.FramedVehicleJourneyRef.DatedVehicleJourneyRef != "" {
		return j.FramedVehicleJourneyRef.DatedVehicleJourneyRef
	}
	if j.DatedVehicleJourneyRef != "" {
		return j.DatedVehicleJourneyRef
	}
	return j.EstimatedVehicleJourneyCode
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
