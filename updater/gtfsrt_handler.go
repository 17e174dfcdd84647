package updater

import (
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/rs/zerolog/log"

	"github.com/theoremus-urban-solutions/timetable-snapshot/gtfsrt"
	"github.com/theoremus-urban-solutions/timetable-snapshot/snapshot"
	"github.com/theoremus-urban-solutions/timetable-snapshot/transit"
)

// TripUpdateHandler applies GTFS-RT trip updates to a timetable
// buffer. A FULL_DATASET feed clears the feed's previous realtime
// state before the updates apply; a DIFFERENTIAL feed leaves it in
// place.
type TripUpdateHandler struct {
	model       transit.Model
	resolver    *EntityResolver
	feedID      string
	propagation BackwardsDelayPropagation
	cache       *patternCache
	loc         *time.Location
	today       func() transit.ServiceDate
}

// NewTripUpdateHandler creates a handler for one feed. The location
// anchors service-day midnight when converting absolute stop times.
func NewTripUpdateHandler(model transit.Model, feedID string, propagation BackwardsDelayPropagation, loc *time.Location) *TripUpdateHandler {
	return &TripUpdateHandler{
		model:       model,
		resolver:    NewEntityResolver(model, feedID),
		feedID:      feedID,
		propagation: propagation,
		cache:       newPatternCache(),
		loc:         loc,
		today:       func() transit.ServiceDate { return transit.ServiceDateOf(time.Now().In(loc)) },
	}
}

// Apply translates the feed into buffer operations and reports the
// per-update outcome.
func (h *TripUpdateHandler) Apply(buf *snapshot.Buffer, fm *gtfsrtpb.FeedMessage) UpdateResult {
	var result UpdateResult
	if gtfsrt.IsFullDataset(fm) {
		buf.Clear(h.feedID)
	}
	for _, tu := range gtfsrt.TripUpdates(fm) {
		rel := tu.GetTrip().GetScheduleRelationship()
		if rel == gtfsrtpb.TripDescriptor_UNSCHEDULED || rel == gtfsrtpb.TripDescriptor_DUPLICATED {
			result.warn("ignoring trip %s with schedule relationship %s", tu.GetTrip().GetTripId(), rel.String())
			continue
		}
		if err := h.applyTripUpdate(buf, tu); err != nil {
			result.Errors = append(result.Errors, *err)
			log.Debug().Str("trip", err.TripID).Str("kind", err.Kind.String()).Msg("dropped trip update")
		} else {
			result.success()
		}
	}
	return result
}

func (h *TripUpdateHandler) applyTripUpdate(buf *snapshot.Buffer, tu *gtfsrtpb.TripUpdate) *UpdateError {
	desc := tu.GetTrip()
	tripID := desc.GetTripId()
	if tripID == "" {
		return &UpdateError{Kind: UnknownTrip, Description: "trip update without trip id"}
	}

	date := h.today()
	if sd := desc.GetStartDate(); sd != "" {
		parsed, err := transit.ParseCompactServiceDate(sd)
		if err != nil {
			return &UpdateError{Kind: DateUnparseable, TripID: tripID, Description: err.Error()}
		}
		date = parsed
	}

	trip := h.resolver.ResolveTrip(tripID)
	if trip == nil {
		return &UpdateError{Kind: UnknownTrip, TripID: tripID, Description: "trip not in static model"}
	}
	pattern := h.model.PatternForTrip(trip.ID)
	if pattern == nil {
		return &UpdateError{Kind: UnknownTrip, TripID: tripID, Description: "trip has no scheduled pattern"}
	}
	scheduled := pattern.ScheduledTimetable().TripTimesForTrip(trip.ID)
	if scheduled == nil {
		return &UpdateError{Kind: UnknownTrip, TripID: tripID, Description: "trip has no scheduled times"}
	}

	switch desc.GetScheduleRelationship() {
	case gtfsrtpb.TripDescriptor_CANCELED:
		tt := scheduled.Copy()
		tt.Cancel()
		return h.update(buf, pattern, tt, date, tripID)
	case gtfsrtpb.TripDescriptor_ADDED:
		return h.applyAddedTrip(buf, tu, trip, pattern, date)
	default:
		return h.applyScheduledTrip(buf, tu, pattern, scheduled, date)
	}
}

func (h *TripUpdateHandler) applyScheduledTrip(buf *snapshot.Buffer, tu *gtfsrtpb.TripUpdate, pattern *transit.Pattern, scheduled *transit.TripTimes, date transit.ServiceDate) *UpdateError {
	updates := make([]StopTimeUpdate, 0, len(tu.StopTimeUpdate))
	for _, stu := range tu.StopTimeUpdate {
		updates = append(updates, h.stopTimeUpdate(stu, date))
	}

	tt, skipped, uerr := applyStopTimeUpdates(scheduled, pattern, updates, h.propagation)
	if uerr != nil {
		return uerr
	}
	if len(skipped) == 0 {
		return h.update(buf, pattern, tt, date, scheduled.TripID().String())
	}

	// Skipped stops change the stop sequence: move the trip onto a
	// reduced pattern synthesized for this sequence.
	kept := make([]int, 0, pattern.NumStops()-len(skipped))
	skip := map[int]struct{}{}
	for _, i := range skipped {
		skip[i] = struct{}{}
	}
	for i := 0; i < pattern.NumStops(); i++ {
		if _, ok := skip[i]; !ok {
			kept = append(kept, i)
		}
	}
	stops := make([]*transit.Stop, len(kept))
	for i, idx := range kept {
		stops[i] = pattern.StopPattern().Stop(idx)
	}
	reduced := tt.CopyForStops(kept)
	reduced.SetState(transit.StateModified)
	rtPattern := h.cache.patternFor(pattern, stops)
	return h.update(buf, rtPattern, reduced, date, scheduled.TripID().String())
}

// applyAddedTrip handles a trip running on a stop sequence with no
// scheduled counterpart. Times must be absolute; there is no baseline
// to apply delays to.
func (h *TripUpdateHandler) applyAddedTrip(buf *snapshot.Buffer, tu *gtfsrtpb.TripUpdate, trip *transit.Trip, pattern *transit.Pattern, date transit.ServiceDate) *UpdateError {
	tripID := trip.ID.ID
	stops := make([]*transit.Stop, 0, len(tu.StopTimeUpdate))
	arrivals := make([]int, 0, len(tu.StopTimeUpdate))
	departures := make([]int, 0, len(tu.StopTimeUpdate))
	for _, stu := range tu.StopTimeUpdate {
		stop := h.resolver.ResolveQuay(stu.GetStopId())
		if stop == nil {
			return &UpdateError{Kind: UnknownStop, TripID: tripID, Description: "unknown stop " + stu.GetStopId()}
		}
		arr, dep, ok := h.absoluteTimes(stu, date)
		if !ok {
			return &UpdateError{Kind: NonMonotonicTimes, TripID: tripID, Description: "added trip without absolute stop times"}
		}
		stops = append(stops, stop)
		arrivals = append(arrivals, arr)
		departures = append(departures, dep)
	}
	if len(stops) < 2 {
		return &UpdateError{Kind: InvalidStopSequence, TripID: tripID, Description: "added trip with fewer than two stops"}
	}
	tt, err := transit.NewScheduledTripTimes(trip, arrivals, departures)
	if err != nil {
		return &UpdateError{Kind: NonMonotonicTimes, TripID: tripID, Description: err.Error()}
	}
	tt.SetState(transit.StateAdded)
	rtPattern := h.cache.patternFor(pattern, stops)
	return h.update(buf, rtPattern, tt, date, tripID)
}

func (h *TripUpdateHandler) update(buf *snapshot.Buffer, pattern *transit.Pattern, tt *transit.TripTimes, date transit.ServiceDate, tripID string) *UpdateError {
	if err := buf.Update(pattern, tt, date); err != nil {
		return &UpdateError{Kind: ReadOnly, TripID: tripID, Description: err.Error()}
	}
	return nil
}

func (h *TripUpdateHandler) stopTimeUpdate(stu *gtfsrtpb.TripUpdate_StopTimeUpdate, date transit.ServiceDate) StopTimeUpdate {
	u := StopTimeUpdate{StopSequence: -1, StopID: stu.GetStopId()}
	if stu.StopSequence != nil {
		u.StopSequence = int(stu.GetStopSequence())
	}
	switch stu.GetScheduleRelationship() {
	case gtfsrtpb.TripUpdate_StopTimeUpdate_SKIPPED:
		u.Skipped = true
		return u
	case gtfsrtpb.TripUpdate_StopTimeUpdate_NO_DATA:
		u.NoData = true
		return u
	}
	if ev := stu.GetArrival(); ev != nil {
		if ev.Time != nil {
			sec := secondsSinceMidnight(time.Unix(ev.GetTime(), 0).In(h.loc), date, h.loc)
			u.ArrivalTime = &sec
		} else if ev.Delay != nil {
			d := int(ev.GetDelay())
			u.ArrivalDelay = &d
		}
	}
	if ev := stu.GetDeparture(); ev != nil {
		if ev.Time != nil {
			sec := secondsSinceMidnight(time.Unix(ev.GetTime(), 0).In(h.loc), date, h.loc)
			u.DepartureTime = &sec
		} else if ev.Delay != nil {
			d := int(ev.GetDelay())
			u.DepartureDelay = &d
		}
	}
	return u
}

func (h *TripUpdateHandler) absoluteTimes(stu *gtfsrtpb.TripUpdate_StopTimeUpdate, date transit.ServiceDate) (arrival, departure int, ok bool) {
	arrEv, depEv := stu.GetArrival(), stu.GetDeparture()
	switch {
	case arrEv.GetTime() != 0 && depEv.GetTime() != 0:
		arrival = secondsSinceMidnight(time.Unix(arrEv.GetTime(), 0).In(h.loc), date, h.loc)
		departure = secondsSinceMidnight(time.Unix(depEv.GetTime(), 0).In(h.loc), date, h.loc)
	case arrEv.GetTime() != 0:
		arrival = secondsSinceMidnight(time.Unix(arrEv.GetTime(), 0).In(h.loc), date, h.loc)
		departure = arrival
	case depEv.GetTime() != 0:
		departure = secondsSinceMidnight(time.Unix(depEv.GetTime(), 0).In(h.loc), date, h.loc)
		arrival = departure
	default:
		return 0, 0, false
	}
	return arrival, departure, true
}
