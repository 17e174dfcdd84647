package updater

import (
	"testing"
	"time"

	"github.com/theoremus-urban-solutions/timetable-snapshot/transit"
)

var (
	june1 = transit.ServiceDate{Year: 2024, Month: time.June, Day: 1}
	june2 = transit.ServiceDate{Year: 2024, Month: time.June, Day: 2}
)

// testModel builds a four-stop pattern A-B-C-D on route R1 with one
// scheduled trip T1 calling at its stops ten minutes apart from 10:00.
func testModel(t *testing.T) (*transit.Index, *transit.Pattern) {
	t.Helper()
	route := &transit.Route{ID: transit.NewFeedScopedID("F", "R1"), Mode: "bus"}
	var stops []*transit.Stop
	for _, id := range []string{"A", "B", "C", "D"} {
		stops = append(stops, &transit.Stop{ID: transit.NewFeedScopedID("F", id), Name: id})
	}
	pattern := transit.NewPattern(transit.NewFeedScopedID("F", "R1:1"), route, stops)
	trip := &transit.Trip{ID: transit.NewFeedScopedID("F", "T1"), Route: route}
	tt, err := transit.NewScheduledTripTimes(trip,
		[]int{36000, 36600, 37200, 37800},
		[]int{36000, 36600, 37200, 37800})
	if err != nil {
		t.Fatal(err)
	}
	if err := pattern.AddScheduledTripTimes(tt); err != nil {
		t.Fatal(err)
	}

	index := transit.NewIndex()
	for _, s := range stops {
		index.AddStop(s)
	}
	index.AddPattern(pattern)
	index.AddTripOnServiceDate(&transit.TripOnServiceDate{
		ID:          transit.NewFeedScopedID("F", "T1:2024-06-01"),
		Trip:        trip,
		ServiceDate: june1,
	})
	return index, pattern
}

func scheduledTimes(t *testing.T, pattern *transit.Pattern) *transit.TripTimes {
	t.Helper()
	tt := pattern.ScheduledTimetable().TripTimesForTrip(transit.NewFeedScopedID("F", "T1"))
	if tt == nil {
		t.Fatal("fixture trip missing")
	}
	return tt
}

func intPtr(v int) *int { return &v }

func TestApplyStopTimeUpdatesDelayCarriesForward(t *testing.T) {
	_, pattern := testModel(t)
	scheduled := scheduledTimes(t, pattern)

	updates := []StopTimeUpdate{
		{StopSequence: -1, StopID: "B", ArrivalDelay: intPtr(120)},
	}
	tt, skipped, uerr := applyStopTimeUpdates(scheduled, pattern, updates, PropagationRequiredNoData)
	if uerr != nil {
		t.Fatalf("applyStopTimeUpdates failed: %v", uerr)
	}
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped stops: %v", skipped)
	}
	if tt.State() != transit.StateUpdated {
		t.Errorf("State = %v, want UPDATED", tt.State())
	}
	want := []int{36000, 36720, 37320, 37920}
	for i, w := range want {
		if tt.ArrivalTime(i) != w {
			t.Errorf("arrival[%d] = %d, want %d", i, tt.ArrivalTime(i), w)
		}
	}
	if tt.StopState(1) != transit.StopStateUpdated {
		t.Error("the updated stop should be marked updated")
	}
	if tt.StopState(0) != transit.StopStateScheduled {
		t.Error("an on-time earlier stop should stay scheduled")
	}
}

func TestApplyStopTimeUpdatesAbsoluteTimes(t *testing.T) {
	_, pattern := testModel(t)
	scheduled := scheduledTimes(t, pattern)

	updates := []StopTimeUpdate{
		{StopSequence: 0, ArrivalTime: intPtr(36060), DepartureTime: intPtr(36090)},
	}
	tt, _, uerr := applyStopTimeUpdates(scheduled, pattern, updates, PropagationRequiredNoData)
	if uerr != nil {
		t.Fatalf("applyStopTimeUpdates failed: %v", uerr)
	}
	if tt.ArrivalTime(0) != 36060 || tt.DepartureTime(0) != 36090 {
		t.Errorf("stop 0 times = %d/%d", tt.ArrivalTime(0), tt.DepartureTime(0))
	}
	// Later stops inherit the arrival delay of 60 seconds on their
	// arrivals (and the departure delay of 90 seconds on their departures).
	if tt.ArrivalTime(1) != 36660 {
		t.Errorf("arrival[1] = %d, want 36660", tt.ArrivalTime(1))
	}
}

func TestApplyStopTimeUpdatesBackwardsPropagation(t *testing.T) {
	cases := []struct {
		name       string
		policy     BackwardsDelayPropagation
		wantArrB   int
		wantStateA transit.StopRealTimeState
		wantStateB transit.StopRealTimeState
	}{
		{"required no data", PropagationRequiredNoData, 36300, transit.StopStateScheduled, transit.StopStateNoData},
		{"required", PropagationRequired, 36300, transit.StopStateScheduled, transit.StopStateScheduled},
		{"always", PropagationAlways, 35700, transit.StopStateUpdated, transit.StopStateUpdated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, pattern := testModel(t)
			scheduled := scheduledTimes(t, pattern)

			// The vehicle reaches C fifteen minutes early.
			updates := []StopTimeUpdate{
				{StopSequence: -1, StopID: "C", ArrivalDelay: intPtr(-900)},
			}
			tt, _, uerr := applyStopTimeUpdates(scheduled, pattern, updates, tc.policy)
			if uerr != nil {
				t.Fatalf("applyStopTimeUpdates failed: %v", uerr)
			}
			if tt.ArrivalTime(2) != 36300 {
				t.Errorf("arrival[2] = %d, want 36300", tt.ArrivalTime(2))
			}
			if tt.ArrivalTime(1) != tc.wantArrB {
				t.Errorf("arrival[1] = %d, want %d", tt.ArrivalTime(1), tc.wantArrB)
			}
			if tt.StopState(0) != tc.wantStateA {
				t.Errorf("stop state A = %v, want %v", tt.StopState(0), tc.wantStateA)
			}
			if tt.StopState(1) != tc.wantStateB {
				t.Errorf("stop state B = %v, want %v", tt.StopState(1), tc.wantStateB)
			}
			if err := tt.Validate(); err != nil {
				t.Errorf("result should be monotonic: %v", err)
			}
		})
	}
}

func TestApplyStopTimeUpdatesSkippedStops(t *testing.T) {
	_, pattern := testModel(t)
	scheduled := scheduledTimes(t, pattern)

	updates := []StopTimeUpdate{
		{StopSequence: -1, StopID: "B", Skipped: true},
		{StopSequence: -1, StopID: "C", ArrivalDelay: intPtr(60)},
	}
	tt, skipped, uerr := applyStopTimeUpdates(scheduled, pattern, updates, PropagationRequiredNoData)
	if uerr != nil {
		t.Fatalf("applyStopTimeUpdates failed: %v", uerr)
	}
	if len(skipped) != 1 || skipped[0] != 1 {
		t.Fatalf("skipped = %v, want [1]", skipped)
	}
	if tt.StopState(1) != transit.StopStateSkipped {
		t.Error("skipped stop should carry the skipped state")
	}
	if tt.ArrivalTime(2) != 37260 {
		t.Errorf("arrival[2] = %d, want 37260", tt.ArrivalTime(2))
	}
}

func TestApplyStopTimeUpdatesNoData(t *testing.T) {
	_, pattern := testModel(t)
	scheduled := scheduledTimes(t, pattern)

	updates := []StopTimeUpdate{
		{StopSequence: -1, StopID: "A", ArrivalDelay: intPtr(300)},
		{StopSequence: -1, StopID: "B", NoData: true},
	}
	tt, _, uerr := applyStopTimeUpdates(scheduled, pattern, updates, PropagationRequiredNoData)
	if uerr != nil {
		t.Fatalf("applyStopTimeUpdates failed: %v", uerr)
	}
	if tt.StopState(1) != transit.StopStateNoData {
		t.Error("no-data stop should carry the no-data state")
	}
	if tt.ArrivalTime(1) != 36900 {
		t.Errorf("no-data stop should still inherit the delay: arrival[1] = %d", tt.ArrivalTime(1))
	}
}

func TestApplyStopTimeUpdatesRecorded(t *testing.T) {
	_, pattern := testModel(t)
	scheduled := scheduledTimes(t, pattern)

	updates := []StopTimeUpdate{
		{StopSequence: -1, StopID: "A", ArrivalDelay: intPtr(0), Recorded: true},
	}
	tt, _, uerr := applyStopTimeUpdates(scheduled, pattern, updates, PropagationRequiredNoData)
	if uerr != nil {
		t.Fatalf("applyStopTimeUpdates failed: %v", uerr)
	}
	if tt.StopState(0) != transit.StopStateRecorded {
		t.Error("recorded stop should carry the recorded state")
	}
}

func TestApplyStopTimeUpdatesRejectsBadReferences(t *testing.T) {
	_, pattern := testModel(t)
	scheduled := scheduledTimes(t, pattern)

	_, _, uerr := applyStopTimeUpdates(scheduled, pattern, []StopTimeUpdate{
		{StopSequence: -1, StopID: "Z", ArrivalDelay: intPtr(60)},
	}, PropagationRequiredNoData)
	if uerr == nil || uerr.Kind != InvalidStopSequence {
		t.Errorf("unknown stop: got %v, want INVALID_STOP_SEQUENCE", uerr)
	}

	_, _, uerr = applyStopTimeUpdates(scheduled, pattern, []StopTimeUpdate{
		{StopSequence: -1, StopID: "C", ArrivalDelay: intPtr(60)},
		{StopSequence: -1, StopID: "B", ArrivalDelay: intPtr(60)},
	}, PropagationRequiredNoData)
	if uerr == nil || uerr.Kind != InvalidStopSequence {
		t.Errorf("out-of-order updates: got %v, want INVALID_STOP_SEQUENCE", uerr)
	}

	_, _, uerr = applyStopTimeUpdates(scheduled, pattern, []StopTimeUpdate{
		{StopSequence: 9, ArrivalDelay: intPtr(60)},
	}, PropagationRequiredNoData)
	if uerr == nil || uerr.Kind != InvalidStopSequence {
		t.Errorf("sequence beyond pattern: got %v, want INVALID_STOP_SEQUENCE", uerr)
	}
}

func TestApplyStopTimeUpdatesRejectsNonMonotonicResult(t *testing.T) {
	_, pattern := testModel(t)
	scheduled := scheduledTimes(t, pattern)

	_, _, uerr := applyStopTimeUpdates(scheduled, pattern, []StopTimeUpdate{
		{StopSequence: -1, StopID: "B", ArrivalDelay: intPtr(600), DepartureDelay: intPtr(-600)},
	}, PropagationRequiredNoData)
	if uerr == nil || uerr.Kind != NonMonotonicTimes {
		t.Errorf("got %v, want NON_MONOTONIC_TIMES", uerr)
	}
}

func TestSecondsSinceMidnight(t *testing.T) {
	instant := time.Date(2024, time.June, 1, 10, 1, 0, 0, time.UTC)
	if got := secondsSinceMidnight(instant, june1, time.UTC); got != 36060 {
		t.Errorf("secondsSinceMidnight = %d, want 36060", got)
	}
	// A trip running past midnight keeps counting into the next day.
	after := time.Date(2024, time.June, 2, 0, 30, 0, 0, time.UTC)
	if got := secondsSinceMidnight(after, june1, time.UTC); got != 88200 {
		t.Errorf("secondsSinceMidnight past midnight = %d, want 88200", got)
	}
}
