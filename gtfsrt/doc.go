// Package gtfsrt handles fetching and decoding GTFS-Realtime protobuf
// feeds. The realtime updater consumes the decoded trip updates; the
// daemon uses Client to poll upstream producers.
package gtfsrt
