package updater

import (
	"github.com/rs/zerolog/log"

	"github.com/theoremus-urban-solutions/timetable-snapshot/siri"
	"github.com/theoremus-urban-solutions/timetable-snapshot/transit"
)

// EntityResolver resolves the external references carried by realtime
// messages against the static transit model, scoped to one feed.
type EntityResolver struct {
	model  transit.Model
	feedID string
}

// NewEntityResolver creates a resolver for the given feed.
func NewEntityResolver(model transit.Model, feedID string) *EntityResolver {
	return &EntityResolver{model: model, feedID: feedID}
}

// FeedID returns the feed this resolver is scoped to.
func (r *EntityResolver) FeedID() string { return r.feedID }

// ResolveTrip looks up a trip by its local id.
func (r *EntityResolver) ResolveTrip(tripID string) *transit.Trip {
	return r.model.TripForID(transit.NewFeedScopedID(r.feedID, tripID))
}

// ResolveQuay looks up a stop by its local quay id.
func (r *EntityResolver) ResolveQuay(quayRef string) *transit.Stop {
	return r.model.StopForID(transit.NewFeedScopedID(r.feedID, quayRef))
}

// ResolveJourney resolves an estimated vehicle journey to a trip and
// service date, trying the framed vehicle journey ref first, then the
// dated vehicle journey ref, then the estimated vehicle journey code.
// It returns a nil trip when nothing resolves.
func (r *EntityResolver) ResolveJourney(j *siri.EstimatedVehicleJourney) (*transit.Trip, transit.ServiceDate) {
	if ref := j.FramedVehicleJourneyRef; ref != nil && ref.DatedVehicleJourneyRef != "" {
		date := r.resolveServiceDate(ref.DataFrameRef)
		if !date.IsZero() {
			if trip := r.ResolveTrip(ref.DatedVehicleJourneyRef); trip != nil {
				return trip, date
			}
			if tsd := r.resolveTripOnServiceDate(ref.DatedVehicleJourneyRef); tsd != nil {
				return tsd.Trip, tsd.ServiceDate
			}
		}
	}
	if j.DatedVehicleJourneyRef != "" {
		if tsd := r.resolveTripOnServiceDate(j.DatedVehicleJourneyRef); tsd != nil {
			return tsd.Trip, tsd.ServiceDate
		}
	}
	if j.EstimatedVehicleJourneyCode != "" {
		if tsd := r.resolveTripOnServiceDate(j.EstimatedVehicleJourneyCode); tsd != nil {
			return tsd.Trip, tsd.ServiceDate
		}
	}
	return nil, transit.ServiceDate{}
}

func (r *EntityResolver) resolveTripOnServiceDate(ref string) *transit.TripOnServiceDate {
	return r.model.TripOnServiceDateByID(transit.NewFeedScopedID(r.feedID, ref))
}

// resolveServiceDate parses a DataFrameRef as a service date. An
// unparseable ref is logged and yields the zero date so the caller
// falls through to the next resolution rule.
func (r *EntityResolver) resolveServiceDate(dataFrameRef string) transit.ServiceDate {
	if dataFrameRef == "" {
		return transit.ServiceDate{}
	}
	date, err := transit.ParseServiceDate(dataFrameRef)
	if err != nil {
		log.Warn().Str("dataFrameRef", dataFrameRef).Msg("unable to parse data frame ref as service date")
		return transit.ServiceDate{}
	}
	return date
}
