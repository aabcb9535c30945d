// Package world provides regions, the target arena, and the noise-driven
// region generator that seeds targets for the demo simulation host.
package world

import (
	"log/slog"
	"sort"

	"github.com/talgya/taskpulse/internal/grid"
	"github.com/talgya/taskpulse/internal/schedule"
)

// Region describes one loaded simulation area.
type Region struct {
	ID     schedule.RegionID `json:"id"`
	Name   string            `json:"name"`
	Radius int               `json:"radius"`
}

// World holds every loaded region and the shared target arena.
type World struct {
	arena   *Arena
	regions map[schedule.RegionID]*Region
}

// New creates an empty world.
func New() *World {
	return &World{
		arena:   NewArena(),
		regions: make(map[schedule.RegionID]*Region),
	}
}

// Arena exposes the target arena.
func (w *World) Arena() *Arena {
	return w.arena
}

// AddRegion registers a loaded region.
func (w *World) AddRegion(r *Region) {
	w.regions[r.ID] = r
}

// Region returns a region by id.
func (w *World) Region(id schedule.RegionID) (*Region, bool) {
	r, ok := w.regions[id]
	return r, ok
}

// Regions returns all loaded regions sorted by id.
func (w *World) Regions() []*Region {
	out := make([]*Region, 0, len(w.regions))
	for _, r := range w.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UnloadRegion removes a region and frees all of its targets. The caller
// is responsible for resetting the dispatcher's state for the region.
func (w *World) UnloadRegion(id schedule.RegionID) {
	freed := w.arena.FreeRegion(id)
	delete(w.regions, id)
	slog.Info("region unloaded", "region", id, "targets_freed", freed)
}

// Locate resolves a candidate handle to a position. Implements
// schedule.Locator.
func (w *World) Locate(c schedule.Candidate) (grid.HexCoord, bool) {
	t, ok := w.arena.Resolve(c)
	if !ok {
		return grid.HexCoord{}, false
	}
	return t.Pos, true
}

// Fetcher returns a schedule.FetchFunc producing the live targets of one
// kind in a region. Bound to a category on the dispatcher.
func (w *World) Fetcher(kind TargetKind) schedule.FetchFunc {
	return func(region schedule.RegionID) ([]schedule.Candidate, error) {
		return w.arena.Collect(region, kind), nil
	}
}

// TargetCount returns live target counts by kind for one region.
func (w *World) TargetCount(region schedule.RegionID) map[string]int {
	counts := make(map[string]int)
	for i := range w.arena.slots {
		s := &w.arena.slots[i]
		if s.live && s.target.Region == region {
			counts[TargetKindName(s.target.Kind)]++
		}
	}
	return counts
}
