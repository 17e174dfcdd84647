package snapshot

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/theoremus-urban-solutions/timetable-snapshot/transit"
)

// Source owns the buffer and the currently published snapshot. Updates
// go through ApplyBatch on the writer goroutine; CurrentSnapshot is
// wait-free and may be called from any goroutine.
type Source struct {
	buffer       *Buffer
	current      atomic.Pointer[Snapshot]
	transitLayer TransitLayerUpdater

	// maxSnapshotFrequency throttles automatic commits. Zero commits
	// after every batch; a negative value disables automatic commits so
	// only FlushBuffer publishes.
	maxSnapshotFrequency time.Duration
	purgeExpiredData     bool

	lastCommit    time.Time
	lastPurgeDate transit.ServiceDate

	now       func() time.Time
	localDate func() transit.ServiceDate
}

// Option configures a Source.
type Option func(*Source)

// WithTransitLayerUpdater registers a routing-layer hook invoked on
// every commit.
func WithTransitLayerUpdater(u TransitLayerUpdater) Option {
	return func(s *Source) { s.transitLayer = u }
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		s.now = now
		s.localDate = func() transit.ServiceDate { return transit.ServiceDateOf(now()) }
	}
}

// NewSource creates a source with an empty buffer and publishes an
// empty snapshot so readers never observe nil.
func NewSource(maxSnapshotFrequency time.Duration, purgeExpiredData bool, opts ...Option) *Source {
	s := &Source{
		buffer:               NewBuffer(),
		maxSnapshotFrequency: maxSnapshotFrequency,
		purgeExpiredData:     purgeExpiredData,
		now:                  time.Now,
	}
	s.localDate = func() transit.ServiceDate { return transit.ServiceDateOf(s.now()) }
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(NewEmptySnapshot())
	return s
}

// CurrentSnapshot returns the latest published snapshot. Never nil.
func (s *Source) CurrentSnapshot() *Snapshot {
	return s.current.Load()
}

// ApplyBatch runs fn against the buffer on the caller's goroutine and
// then commits if the snapshot frequency allows. All realtime writes
// must go through here or FlushBuffer, from a single goroutine.
func (s *Source) ApplyBatch(fn func(*Buffer)) {
	fn(s.buffer)
	s.commitIfReady(false)
}

// FlushBuffer commits pending changes immediately, bypassing the
// frequency gate.
func (s *Source) FlushBuffer() {
	s.commitIfReady(true)
}

func (s *Source) commitIfReady(force bool) {
	now := s.now()
	if !force {
		if s.maxSnapshotFrequency < 0 {
			return
		}
		if now.Sub(s.lastCommit) < s.maxSnapshotFrequency {
			return
		}
	}

	if s.purgeExpiredData {
		today := s.localDate()
		if s.lastPurgeDate != today {
			s.lastPurgeDate = today
			if s.buffer.PurgeExpiredData(today.AddDays(-1)) {
				log.Info().Str("before", today.AddDays(-1).String()).Msg("purged expired realtime data")
				force = true
			}
		}
	}

	snap := s.buffer.Commit(s.transitLayer, force)
	if snap == nil {
		return
	}
	s.current.Store(snap)
	s.lastCommit = now
	log.Debug().Msg("published new timetable snapshot")
}
