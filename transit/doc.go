// Package transit holds the static transit model the snapshot engine
// reads from: stops, routes, trips, stop patterns and their scheduled
// timetables, plus the realtime Timetable variant that accumulates
// per-date updates. The static entities are immutable inputs; only
// Timetables created through copy-on-write are ever mutated, and only
// until they are frozen for publication.
package transit
