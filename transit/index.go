package transit

// Model is the read-only view of the static transit data the snapshot
// engine resolves realtime references against. The schedule loader
// provides the implementation; Index below is the in-memory one used
// by the daemon and tests.
type Model interface {
	// TripForID returns the trip with the given feed-scoped id, or nil.
	TripForID(id FeedScopedID) *Trip
	// TripOnServiceDateByID returns the dated service journey with the
	// given id, or nil.
	TripOnServiceDateByID(id FeedScopedID) *TripOnServiceDate
	// TripOnServiceDateForTripAndDate returns the dated service journey
	// for the given trip and date, or nil.
	TripOnServiceDateForTripAndDate(key TripIDAndServiceDate) *TripOnServiceDate
	// StopForID returns the stop (quay) with the given id, or nil.
	StopForID(id FeedScopedID) *Stop
	// PatternForTrip returns the scheduled pattern serving the trip,
	// or nil.
	PatternForTrip(tripID FeedScopedID) *Pattern
	// FeedIDs lists the feeds present in the model.
	FeedIDs() []string
}

// Index stores the static transit model in memory for fast lookups.
type Index struct {
	feedIDs          []string
	feedSeen         map[string]struct{}
	stops            map[FeedScopedID]*Stop
	trips            map[FeedScopedID]*Trip
	patternsByTrip   map[FeedScopedID]*Pattern
	tripsOnDate      map[FeedScopedID]*TripOnServiceDate
	tripsOnDateByKey map[TripIDAndServiceDate]*TripOnServiceDate
}

// NewIndex creates a new empty static index.
func NewIndex() *Index {
	return &Index{
		feedSeen:         map[string]struct{}{},
		stops:            map[FeedScopedID]*Stop{},
		trips:            map[FeedScopedID]*Trip{},
		patternsByTrip:   map[FeedScopedID]*Pattern{},
		tripsOnDate:      map[FeedScopedID]*TripOnServiceDate{},
		tripsOnDateByKey: map[TripIDAndServiceDate]*TripOnServiceDate{},
	}
}

// AddStop registers a stop.
func (x *Index) AddStop(s *Stop) {
	x.noteFeed(s.ID.FeedID)
	x.stops[s.ID] = s
}

// AddPattern registers a pattern and maps every trip in its scheduled
// timetable to it.
func (x *Index) AddPattern(p *Pattern) {
	x.noteFeed(p.FeedID())
	for _, tt := range p.ScheduledTimetable().TripTimes() {
		x.trips[tt.TripID()] = tt.Trip()
		x.patternsByTrip[tt.TripID()] = p
	}
}

// AddTripOnServiceDate registers a dated service journey under both its
// own id and its (trip, date) key.
func (x *Index) AddTripOnServiceDate(t *TripOnServiceDate) {
	x.noteFeed(t.ID.FeedID)
	x.tripsOnDate[t.ID] = t
	x.tripsOnDateByKey[TripIDAndServiceDate{TripID: t.Trip.ID, ServiceDate: t.ServiceDate}] = t
}

func (x *Index) noteFeed(feedID string) {
	if _, ok := x.feedSeen[feedID]; !ok {
		x.feedSeen[feedID] = struct{}{}
		x.feedIDs = append(x.feedIDs, feedID)
	}
}

func (x *Index) TripForID(id FeedScopedID) *Trip { return x.trips[id] }

func (x *Index) TripOnServiceDateByID(id FeedScopedID) *TripOnServiceDate {
	return x.tripsOnDate[id]
}

func (x *Index) TripOnServiceDateForTripAndDate(key TripIDAndServiceDate) *TripOnServiceDate {
	return x.tripsOnDateByKey[key]
}

func (x *Index) StopForID(id FeedScopedID) *Stop { return x.stops[id] }

func (x *Index) PatternForTrip(tripID FeedScopedID) *Pattern {
	return x.patternsByTrip[tripID]
}

func (x *Index) FeedIDs() []string {
	copied := make([]string, len(x.feedIDs))
	copy(copied, x.feedIDs)
	return copied
}
