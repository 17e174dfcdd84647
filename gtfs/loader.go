package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/theoremus-urban-solutions/timetable-snapshot/transit"
)

// Load reads a static GTFS zip from a local path or an http(s) URL and
// builds the transit model for the given feed.
func Load(source, feedID string) (*transit.Index, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return loadFromURL(source, feedID)
	}
	return loadFromLocalZip(source, feedID)
}

func loadFromURL(url, feedID string) (*transit.Index, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	tmp, err := os.CreateTemp("", "gtfs-*.zip")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	return loadFromLocalZip(tmp.Name(), feedID)
}

func loadFromLocalZip(path, feedID string) (*transit.Index, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	ld := newLoader(feedID)
	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		switch name {
		case "routes.txt", "trips.txt", "stops.txt", "stop_times.txt", "calendar_dates.txt":
			if err := ld.consumeCSV(f); err != nil {
				return nil, fmt.Errorf("%s: %w", f.Name, err)
			}
		}
	}
	return ld.build()
}

type stopTimeRow struct {
	stop      string
	seq       int
	arrival   int
	departure int
}

// loader accumulates the raw GTFS rows until build assembles patterns
// and timetables from them.
type loader struct {
	feedID string

	routeModes   map[string]string
	tripRoute    map[string]string
	tripService  map[string]string
	stopNames    map[string]string
	stopTimes    map[string][]stopTimeRow
	serviceDates map[string][]transit.ServiceDate
}

func newLoader(feedID string) *loader {
	return &loader{
		feedID:       feedID,
		routeModes:   map[string]string{},
		tripRoute:    map[string]string{},
		tripService:  map[string]string{},
		stopNames:    map[string]string{},
		stopTimes:    map[string][]stopTimeRow{},
		serviceDates: map[string][]transit.ServiceDate{},
	}
}

func (ld *loader) consumeCSV(f *zip.File) error {
	r, err := f.Open()
	if err != nil {
		return err
	}
	defer r.Close()
	csvr := csv.NewReader(r)
	rec, err := csvr.ReadAll()
	if err != nil {
		return err
	}
	if len(rec) == 0 {
		return nil
	}
	head := rec[0]
	idx := func(col string) int {
		for i, h := range head {
			if strings.EqualFold(strings.TrimSpace(h), col) {
				return i
			}
		}
		return -1
	}
	switch strings.ToLower(f.Name) {
	case "routes.txt":
		rID := idx("route_id")
		rType := idx("route_type")
		for _, row := range rec[1:] {
			if rID < 0 {
				continue
			}
			mode := ""
			if rType >= 0 && rType < len(row) {
				mode = modeForRouteType(row[rType])
			}
			ld.routeModes[row[rID]] = mode
		}
	case "trips.txt":
		rID := idx("route_id")
		tID := idx("trip_id")
		svc := idx("service_id")
		for _, row := range rec[1:] {
			if tID < 0 || rID < 0 {
				continue
			}
			ld.tripRoute[row[tID]] = row[rID]
			if svc >= 0 && svc < len(row) {
				ld.tripService[row[tID]] = row[svc]
			}
		}
	case "stops.txt":
		sID := idx("stop_id")
		sN := idx("stop_name")
		for _, row := range rec[1:] {
			if sID < 0 {
				continue
			}
			name := ""
			if sN >= 0 && sN < len(row) {
				name = row[sN]
			}
			ld.stopNames[row[sID]] = name
		}
	case "stop_times.txt":
		tID := idx("trip_id")
		sID := idx("stop_id")
		sq := idx("stop_sequence")
		arrTime := idx("arrival_time")
		depTime := idx("departure_time")
		if tID < 0 || sID < 0 || sq < 0 {
			return nil
		}
		for _, row := range rec[1:] {
			seq, _ := strconv.Atoi(row[sq])
			arr, dep := -1, -1
			if arrTime >= 0 && arrTime < len(row) {
				arr = parseGTFSTime(row[arrTime])
			}
			if depTime >= 0 && depTime < len(row) {
				dep = parseGTFSTime(row[depTime])
			}
			if arr < 0 {
				arr = dep
			}
			if dep < 0 {
				dep = arr
			}
			if arr < 0 {
				continue
			}
			ld.stopTimes[row[tID]] = append(ld.stopTimes[row[tID]], stopTimeRow{
				stop:      row[sID],
				seq:       seq,
				arrival:   arr,
				departure: dep,
			})
		}
	case "calendar_dates.txt":
		svc := idx("service_id")
		dt := idx("date")
		ex := idx("exception_type")
		if svc < 0 || dt < 0 {
			return nil
		}
		for _, row := range rec[1:] {
			if ex >= 0 && ex < len(row) && row[ex] != "1" {
				continue
			}
			date, err := transit.ParseCompactServiceDate(row[dt])
			if err != nil {
				log.Warn().Str("date", row[dt]).Msg("skipping unparseable calendar date")
				continue
			}
			ld.serviceDates[row[svc]] = append(ld.serviceDates[row[svc]], date)
		}
	}
	return nil
}

// build assembles the transit model: one pattern per distinct (route,
// stop sequence), scheduled trip times per trip, and a dated journey
// per trip and running date.
func (ld *loader) build() (*transit.Index, error) {
	index := transit.NewIndex()

	stops := map[string]*transit.Stop{}
	for id, name := range ld.stopNames {
		s := &transit.Stop{ID: transit.NewFeedScopedID(ld.feedID, id), Name: name}
		stops[id] = s
		index.AddStop(s)
	}
	routes := map[string]*transit.Route{}
	for id, mode := range ld.routeModes {
		routes[id] = &transit.Route{ID: transit.NewFeedScopedID(ld.feedID, id), Mode: mode}
	}

	type patternKey struct {
		route string
		stops string
	}
	patterns := map[patternKey]*transit.Pattern{}
	patternCount := map[string]int{}

	tripIDs := make([]string, 0, len(ld.stopTimes))
	for tripID := range ld.stopTimes {
		tripIDs = append(tripIDs, tripID)
	}
	sort.Strings(tripIDs)

	for _, tripID := range tripIDs {
		rows := ld.stopTimes[tripID]
		sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

		routeID := ld.tripRoute[tripID]
		route := routes[routeID]
		if route == nil {
			log.Warn().Str("trip", tripID).Msg("skipping trip without route")
			continue
		}

		seq := make([]*transit.Stop, 0, len(rows))
		arrivals := make([]int, 0, len(rows))
		departures := make([]int, 0, len(rows))
		ok := true
		keyParts := make([]string, 0, len(rows))
		for _, row := range rows {
			stop := stops[row.stop]
			if stop == nil {
				log.Warn().Str("trip", tripID).Str("stop", row.stop).Msg("skipping trip with unknown stop")
				ok = false
				break
			}
			seq = append(seq, stop)
			arrivals = append(arrivals, row.arrival)
			departures = append(departures, row.departure)
			keyParts = append(keyParts, row.stop)
		}
		if !ok || len(seq) < 2 {
			continue
		}

		key := patternKey{route: routeID, stops: strings.Join(keyParts, "|")}
		pattern := patterns[key]
		if pattern == nil {
			patternCount[routeID]++
			id := transit.NewFeedScopedID(ld.feedID,
				fmt.Sprintf("%s:%d", routeID, patternCount[routeID]))
			pattern = transit.NewPattern(id, route, seq)
			patterns[key] = pattern
		}

		trip := &transit.Trip{ID: transit.NewFeedScopedID(ld.feedID, tripID), Route: route}
		tt, err := transit.NewScheduledTripTimes(trip, arrivals, departures)
		if err != nil {
			log.Warn().Err(err).Str("trip", tripID).Msg("skipping trip with invalid stop times")
			continue
		}
		if err := pattern.AddScheduledTripTimes(tt); err != nil {
			return nil, err
		}

		for _, date := range ld.serviceDates[ld.tripService[tripID]] {
			index.AddTripOnServiceDate(&transit.TripOnServiceDate{
				ID:          transit.NewFeedScopedID(ld.feedID, tripID+":"+date.String()),
				Trip:        trip,
				ServiceDate: date,
			})
		}
	}

	for _, pattern := range patterns {
		index.AddPattern(pattern)
	}
	return index, nil
}

// parseGTFSTime parses a GTFS HH:MM:SS time as seconds since midnight.
// Hours past 24 are legal for trips running over midnight. Returns -1
// for an empty or malformed value.
func parseGTFSTime(s string) int {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return -1
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return -1
	}
	return h*3600 + m*60 + sec
}

func modeForRouteType(s string) string {
	t, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	switch t {
	case 0:
		return "tram"
	case 1:
		return "metro"
	case 2:
		return "rail"
	case 3:
		return "bus"
	case 4:
		return "ferry"
	case 5, 6, 7:
		return "cableway"
	default:
		return ""
	}
}
