package updater

import (
	"fmt"

	"github.com/theoremus-urban-solutions/timetable-snapshot/transit"
)

type patternCacheKey struct {
	originalPattern *transit.Pattern
	stopSequence    string
}

// patternCache deduplicates patterns synthesized for trips whose stop
// sequence was changed by realtime updates. Repeated updates with the
// same changed sequence reuse one synthesized pattern, so the buffer's
// copy-on-write sees a stable pattern handle.
type patternCache struct {
	patterns map[patternCacheKey]*transit.Pattern
	counter  int
}

func newPatternCache() *patternCache {
	return &patternCache{patterns: map[patternCacheKey]*transit.Pattern{}}
}

// patternFor returns the realtime pattern for the given stop sequence
// derived from the original pattern, synthesizing one on first use.
func (c *patternCache) patternFor(original *transit.Pattern, stops []*transit.Stop) *transit.Pattern {
	sp := transit.NewStopPattern(stops)
	key := patternCacheKey{originalPattern: original, stopSequence: sp.Key()}
	if p, ok := c.patterns[key]; ok {
		return p
	}
	c.counter++
	id := transit.NewFeedScopedID(original.FeedID(),
		fmt.Sprintf("%s:rt:%d", original.ID().ID, c.counter))
	p := transit.NewRealtimePattern(id, original.Route(), stops)
	c.patterns[key] = p
	return p
}
