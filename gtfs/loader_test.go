package gtfs

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/theoremus-urban-solutions/timetable-snapshot/transit"
)

func writeGTFSZip(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gtfs.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func minimalGTFS(t *testing.T) string {
	t.Helper()
	return writeGTFSZip(t, map[string]string{
		"routes.txt": "route_id,route_type\nR1,3\n",
		"trips.txt":  "route_id,trip_id,service_id\nR1,T1,WEEKDAY\nR1,T2,WEEKDAY\n",
		"stops.txt":  "stop_id,stop_name\nA,Alpha\nB,Bravo\nC,Charlie\n",
		"stop_times.txt": "trip_id,stop_id,stop_sequence,arrival_time,departure_time\n" +
			"T1,A,1,10:00:00,10:00:00\n" +
			"T1,B,2,10:10:00,10:11:00\n" +
			"T1,C,3,10:20:00,10:20:00\n" +
			"T2,A,1,11:00:00,11:00:00\n" +
			"T2,B,2,11:10:00,11:10:00\n" +
			"T2,C,3,11:20:00,11:20:00\n",
		"calendar_dates.txt": "service_id,date,exception_type\n" +
			"WEEKDAY,20240601,1\n" +
			"WEEKDAY,20240602,1\n" +
			"WEEKDAY,20240603,2\n",
	})
}

func TestLoadBuildsModel(t *testing.T) {
	index, err := Load(minimalGTFS(t), "F")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	stop := index.StopForID(transit.NewFeedScopedID("F", "B"))
	if stop == nil || stop.Name != "Bravo" {
		t.Errorf("StopForID(B) = %v", stop)
	}

	tripID := transit.NewFeedScopedID("F", "T1")
	trip := index.TripForID(tripID)
	if trip == nil {
		t.Fatal("TripForID(T1) returned nil")
	}
	if trip.Route == nil || trip.Route.Mode != "bus" {
		t.Errorf("route mode = %v, want bus", trip.Route)
	}

	pattern := index.PatternForTrip(tripID)
	if pattern == nil {
		t.Fatal("PatternForTrip(T1) returned nil")
	}
	if pattern.NumStops() != 3 {
		t.Errorf("pattern has %d stops, want 3", pattern.NumStops())
	}
	// T1 and T2 share the stop sequence and therefore the pattern.
	if index.PatternForTrip(transit.NewFeedScopedID("F", "T2")) != pattern {
		t.Error("trips with the same stop sequence should share a pattern")
	}
	if pattern.ScheduledTimetable().NumTrips() != 2 {
		t.Errorf("scheduled timetable has %d trips, want 2", pattern.ScheduledTimetable().NumTrips())
	}

	tt := pattern.ScheduledTimetable().TripTimesForTrip(tripID)
	if tt == nil {
		t.Fatal("no scheduled times for T1")
	}
	if tt.ArrivalTime(1) != 36600 || tt.DepartureTime(1) != 36660 {
		t.Errorf("stop B times = %d/%d", tt.ArrivalTime(1), tt.DepartureTime(1))
	}
}

func TestLoadBuildsDatedJourneys(t *testing.T) {
	index, err := Load(minimalGTFS(t), "F")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	june1 := transit.ServiceDate{Year: 2024, Month: time.June, Day: 1}
	tripID := transit.NewFeedScopedID("F", "T1")

	byKey := index.TripOnServiceDateForTripAndDate(transit.TripIDAndServiceDate{
		TripID:      tripID,
		ServiceDate: june1,
	})
	if byKey == nil {
		t.Fatal("no dated journey for T1 on 2024-06-01")
	}
	byID := index.TripOnServiceDateByID(transit.NewFeedScopedID("F", "T1:2024-06-01"))
	if byID != byKey {
		t.Error("dated journey lookups disagree")
	}

	// An exception_type 2 row removes rather than adds service.
	june3 := transit.ServiceDate{Year: 2024, Month: time.June, Day: 3}
	if index.TripOnServiceDateForTripAndDate(transit.TripIDAndServiceDate{
		TripID:      tripID,
		ServiceDate: june3,
	}) != nil {
		t.Error("removed service dates should not produce dated journeys")
	}
}

func TestLoadSkipsBrokenTrips(t *testing.T) {
	path := writeGTFSZip(t, map[string]string{
		"routes.txt": "route_id,route_type\nR1,0\n",
		"trips.txt":  "route_id,trip_id,service_id\nR1,OK,S\nR1,SHORT,S\nR1,GHOST,S\n",
		"stops.txt":  "stop_id,stop_name\nA,Alpha\nB,Bravo\n",
		"stop_times.txt": "trip_id,stop_id,stop_sequence,arrival_time,departure_time\n" +
			"OK,A,1,08:00:00,08:00:00\n" +
			"OK,B,2,08:05:00,08:05:00\n" +
			"SHORT,A,1,09:00:00,09:00:00\n" +
			"GHOST,A,1,10:00:00,10:00:00\n" +
			"GHOST,X,2,10:05:00,10:05:00\n",
		"calendar_dates.txt": "service_id,date,exception_type\nS,20240601,1\n",
	})
	index, err := Load(path, "F")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if index.TripForID(transit.NewFeedScopedID("F", "OK")) == nil {
		t.Error("the well-formed trip should load")
	}
	if index.TripForID(transit.NewFeedScopedID("F", "SHORT")) != nil {
		t.Error("a single-stop trip should be skipped")
	}
	if index.TripForID(transit.NewFeedScopedID("F", "GHOST")) != nil {
		t.Error("a trip referencing an unknown stop should be skipped")
	}
	pattern := index.PatternForTrip(transit.NewFeedScopedID("F", "OK"))
	if pattern == nil || pattern.Route().Mode != "tram" {
		t.Errorf("pattern = %v", pattern)
	}
}

func TestLoadOvernightTimes(t *testing.T) {
	path := writeGTFSZip(t, map[string]string{
		"routes.txt": "route_id,route_type\nR1,3\n",
		"trips.txt":  "route_id,trip_id,service_id\nR1,NIGHT,S\n",
		"stops.txt":  "stop_id,stop_name\nA,Alpha\nB,Bravo\n",
		"stop_times.txt": "trip_id,stop_id,stop_sequence,arrival_time,departure_time\n" +
			"NIGHT,A,1,23:50:00,23:50:00\n" +
			"NIGHT,B,2,24:10:00,24:10:00\n",
		"calendar_dates.txt": "service_id,date,exception_type\nS,20240601,1\n",
	})
	index, err := Load(path, "F")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	tt := index.PatternForTrip(transit.NewFeedScopedID("F", "NIGHT")).
		ScheduledTimetable().
		TripTimesForTrip(transit.NewFeedScopedID("F", "NIGHT"))
	if tt.ArrivalTime(1) != 24*3600+600 {
		t.Errorf("overnight arrival = %d, want %d", tt.ArrivalTime(1), 24*3600+600)
	}
}

func TestParseGTFSTime(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"10:00:00", 36000},
		{"24:10:00", 87000},
		{" 08:05:30", 29130},
		{"", -1},
		{"10:00", -1},
		{"aa:bb:cc", -1},
	}
	for _, tc := range cases {
		if got := parseGTFSTime(tc.in); got != tc.want {
			t.Errorf("parseGTFSTime(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
