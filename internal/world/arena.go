// Target arena — generation-checked slot storage for task targets.
// Caches hold handles, not pointers, so a target destroyed while a cache
// still references it resolves to "gone" instead of a dangling object.
package world

import (
	"github.com/talgya/taskpulse/internal/grid"
	"github.com/talgya/taskpulse/internal/schedule"
)

// TargetKind classifies what kind of work a target represents.
type TargetKind uint8

const (
	TargetHaulPile TargetKind = iota
	TargetRepairSite
	TargetForageSpot
	TargetPatrolPost
)

// TargetKindName returns a display name for a target kind.
func TargetKindName(k TargetKind) string {
	switch k {
	case TargetHaulPile:
		return "HaulPile"
	case TargetRepairSite:
		return "RepairSite"
	case TargetForageSpot:
		return "ForageSpot"
	case TargetPatrolPost:
		return "PatrolPost"
	default:
		return "Unknown"
	}
}

// Target is a potential task destination in a region.
type Target struct {
	Region  schedule.RegionID `json:"region"`
	Kind    TargetKind        `json:"kind"`
	Pos     grid.HexCoord     `json:"pos"`
	Amount  int               `json:"amount"`  // remaining work units
	Blocked bool              `json:"blocked"` // temporarily unreachable
}

type arenaSlot struct {
	target Target
	gen    uint32
	live   bool
}

// Arena stores all live targets and mints candidate handles for them.
// Freeing a slot bumps its generation, invalidating every outstanding
// handle to the old occupant.
type Arena struct {
	slots []arenaSlot
	free  []uint32
	live  int
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Spawn stores a target and returns its handle.
func (a *Arena) Spawn(t Target) schedule.Candidate {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.target = t
		s.live = true
		a.live++
		return schedule.Candidate{Slot: idx, Gen: s.gen}
	}

	a.slots = append(a.slots, arenaSlot{target: t, gen: 1, live: true})
	a.live++
	return schedule.Candidate{Slot: uint32(len(a.slots) - 1), Gen: 1}
}

// Resolve returns the target behind a handle, or false when the handle is
// stale (slot freed or reused since the handle was minted).
func (a *Arena) Resolve(c schedule.Candidate) (*Target, bool) {
	if int(c.Slot) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[c.Slot]
	if !s.live || s.gen != c.Gen {
		return nil, false
	}
	return &s.target, true
}

// Free destroys the target behind a handle. Returns false when the handle
// was already stale.
func (a *Arena) Free(c schedule.Candidate) bool {
	if int(c.Slot) >= len(a.slots) {
		return false
	}
	s := &a.slots[c.Slot]
	if !s.live || s.gen != c.Gen {
		return false
	}
	s.live = false
	s.gen++
	a.live--
	a.free = append(a.free, c.Slot)
	return true
}

// Live returns the number of live targets.
func (a *Arena) Live() int {
	return a.live
}

// Collect returns handles for every live target in one region matching the
// kind. Used by the per-category fetch callbacks.
func (a *Arena) Collect(region schedule.RegionID, kind TargetKind) []schedule.Candidate {
	var out []schedule.Candidate
	for i := range a.slots {
		s := &a.slots[i]
		if s.live && s.target.Region == region && s.target.Kind == kind {
			out = append(out, schedule.Candidate{Slot: uint32(i), Gen: s.gen})
		}
	}
	return out
}

// CollectRegion returns handles for every live target in a region,
// regardless of kind.
func (a *Arena) CollectRegion(region schedule.RegionID) []schedule.Candidate {
	var out []schedule.Candidate
	for i := range a.slots {
		s := &a.slots[i]
		if s.live && s.target.Region == region {
			out = append(out, schedule.Candidate{Slot: uint32(i), Gen: s.gen})
		}
	}
	return out
}

// FreeRegion destroys every live target belonging to a region. Used on
// region unload.
func (a *Arena) FreeRegion(region schedule.RegionID) int {
	n := 0
	for i := range a.slots {
		s := &a.slots[i]
		if s.live && s.target.Region == region {
			s.live = false
			s.gen++
			a.live--
			a.free = append(a.free, uint32(i))
			n++
		}
	}
	return n
}
