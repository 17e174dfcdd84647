// Package updater translates realtime feed messages into timetable
// buffer operations. Two dialects are supported: GTFS-RT trip updates
// and SIRI estimated timetables. Both resolve references against the
// static transit model, build updated trip times from the scheduled
// baseline, and report per-update failures without aborting a batch.
package updater
