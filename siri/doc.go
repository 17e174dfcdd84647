// Package siri defines SIRI (Service Interface for Real-time Information)
// input types.
//
// SIRI is a European standard (CEN/TS 15531) for real-time public
// transport information. This package contains the Estimated Timetable
// (ET) subset the realtime updater consumes, plus the ISO-8601 time
// parsing helpers the call times need.
package siri
