// Package snapshot maintains copy-on-write timetable snapshots over the
// static transit model. A single writer applies realtime updates to a
// Buffer; Commit publishes an immutable Snapshot that any number of
// readers query without locks.
package snapshot
