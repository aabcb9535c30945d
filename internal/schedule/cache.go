// Region-scoped candidate cache — the last computed eligible-target list
// per (region, category), with configurable staleness and a hard size cap.
package schedule

// DefaultMaxCacheEntries caps how many candidates one cache entry retains.
const DefaultMaxCacheEntries = 300

type regionCacheEntry struct {
	candidates      []Candidate
	lastRefreshTick uint64
}

// CandidateCache stores candidate lists per (region, category). Refreshing
// an entry always clears the paired reachability memo for the same key;
// the two are never updated independently.
type CandidateCache struct {
	maxEntries int
	memo       *ReachMemo
	entries    map[regionKey]*regionCacheEntry
}

// NewCandidateCache creates a cache paired with the given memo.
// maxEntries <= 0 falls back to DefaultMaxCacheEntries.
func NewCandidateCache(maxEntries int, memo *ReachMemo) *CandidateCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxCacheEntries
	}
	return &CandidateCache{
		maxEntries: maxEntries,
		memo:       memo,
		entries:    make(map[regionKey]*regionCacheEntry),
	}
}

// IsStale reports whether the entry needs a refresh: the interval has
// elapsed since the last refresh, or no entry exists yet. Callers decide
// what to do about staleness; the cache only reports it.
func (c *CandidateCache) IsStale(now uint64, region RegionID, cat Category, interval uint64) bool {
	e, ok := c.entries[regionKey{region, cat}]
	if !ok {
		return true
	}
	return now-e.lastRefreshTick >= interval
}

// Refresh replaces the candidate list wholesale, trims to the size cap
// (oldest-discovered first), stamps the refresh tick, and clears the
// paired reachability memo. An empty fresh list is a legitimate result:
// it is cached and marks the category as having no current targets.
func (c *CandidateCache) Refresh(now uint64, region RegionID, cat Category, fresh []Candidate) {
	if len(fresh) > c.maxEntries {
		// Overflow is not an error; dropping the earliest-discovered
		// candidates bounds memory.
		fresh = fresh[len(fresh)-c.maxEntries:]
	}
	kept := make([]Candidate, len(fresh))
	copy(kept, fresh)

	k := regionKey{region, cat}
	e, ok := c.entries[k]
	if !ok {
		e = &regionCacheEntry{}
		c.entries[k] = e
	}
	e.candidates = kept
	e.lastRefreshTick = now

	if c.memo != nil {
		c.memo.Clear(region, cat)
	}
}

// Get returns the current candidate list, possibly stale. Nil when no
// entry exists. Callers must not mutate the returned slice.
func (c *CandidateCache) Get(region RegionID, cat Category) []Candidate {
	e, ok := c.entries[regionKey{region, cat}]
	if !ok {
		return nil
	}
	return e.candidates
}

// HasTargets is the fast-exit check: true only when an entry exists and
// holds at least one candidate.
func (c *CandidateCache) HasTargets(region RegionID, cat Category) bool {
	e, ok := c.entries[regionKey{region, cat}]
	return ok && len(e.candidates) > 0
}

// LastRefreshTick returns when the entry was last refreshed.
func (c *CandidateCache) LastRefreshTick(region RegionID, cat Category) (uint64, bool) {
	e, ok := c.entries[regionKey{region, cat}]
	if !ok {
		return 0, false
	}
	return e.lastRefreshTick, true
}

// Len returns the number of cached candidates for one (region, category).
func (c *CandidateCache) Len(region RegionID, cat Category) int {
	e, ok := c.entries[regionKey{region, cat}]
	if !ok {
		return 0
	}
	return len(e.candidates)
}

// DropRegion removes every entry for a region, along with its memo rows.
func (c *CandidateCache) DropRegion(region RegionID) {
	for k := range c.entries {
		if k.Region == region {
			delete(c.entries, k)
		}
	}
	if c.memo != nil {
		c.memo.DropRegion(region)
	}
}

// DropAll removes every entry and every memo row.
func (c *CandidateCache) DropAll() {
	c.entries = make(map[regionKey]*regionCacheEntry)
	if c.memo != nil {
		c.memo.DropAll()
	}
}

// EntryCount returns the number of (region, category) entries held.
func (c *CandidateCache) EntryCount() int {
	return len(c.entries)
}
