// Reachability memo — last-known pass/fail verdicts per candidate, scoped
// to one refresh window. Path and line-of-sight checks dominate selection
// cost; memoizing them makes repeat probes of the same candidate O(1)
// until the owning cache entry refreshes.
package schedule

// ReachMemo stores validator verdicts keyed by (region, category, candidate).
type ReachMemo struct {
	verdicts map[regionKey]map[Candidate]bool
}

// NewReachMemo creates an empty memo.
func NewReachMemo() *ReachMemo {
	return &ReachMemo{verdicts: make(map[regionKey]map[Candidate]bool)}
}

// Get returns the memoized verdict for a candidate. The second result is
// false when no verdict is known.
func (m *ReachMemo) Get(region RegionID, cat Category, c Candidate) (bool, bool) {
	set, ok := m.verdicts[regionKey{region, cat}]
	if !ok {
		return false, false
	}
	v, ok := set[c]
	return v, ok
}

// Set records a validator verdict.
func (m *ReachMemo) Set(region RegionID, cat Category, c Candidate, v bool) {
	k := regionKey{region, cat}
	set, ok := m.verdicts[k]
	if !ok {
		set = make(map[Candidate]bool)
		m.verdicts[k] = set
	}
	set[c] = v
}

// Clear drops all verdicts for one (region, category). Invoked by the
// candidate cache on refresh and by the lifecycle manager — a stale
// "not reachable" verdict must not outlive the refresh that might have
// changed the world.
func (m *ReachMemo) Clear(region RegionID, cat Category) {
	delete(m.verdicts, regionKey{region, cat})
}

// DropRegion drops all verdicts for every category in a region.
func (m *ReachMemo) DropRegion(region RegionID) {
	for k := range m.verdicts {
		if k.Region == region {
			delete(m.verdicts, k)
		}
	}
}

// DropAll drops every verdict.
func (m *ReachMemo) DropAll() {
	m.verdicts = make(map[regionKey]map[Candidate]bool)
}

// Size returns the total number of stored verdicts.
func (m *ReachMemo) Size() int {
	n := 0
	for _, set := range m.verdicts {
		n += len(set)
	}
	return n
}
