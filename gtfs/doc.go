/*
Package gtfs loads a static GTFS zip into the in-memory transit model
the snapshot engine resolves realtime references against.

The loader is data-source agnostic: it accepts a local path or an HTTP
URL and builds a transit.Index. Trips sharing a route and stop sequence
are grouped into one pattern; stop times become the pattern's scheduled
timetable. Calendar-date entries become TripOnServiceDate records so
dated journey references resolve.

Parse GTFS once at startup and keep the index in memory; it is static
data.
*/
package gtfs
