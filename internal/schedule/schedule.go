// Package schedule assigns work to large agent populations without scanning
// the whole world per agent per tick. It combines a staggered interval
// scheduler, a region-scoped candidate cache, a reachability memo, and a
// distance-bucketing selector behind a single Dispatcher facade.
//
// All state is confined to the simulation goroutine; nothing here locks.
package schedule

import (
	"github.com/talgya/taskpulse/internal/grid"
)

// RegionID identifies a simulation region (a loaded map/level).
type RegionID uint32

// Category is the key for one class of work (e.g. "hauling", "repair").
type Category string

// Candidate is an opaque generation-checked handle to a potential task
// target. The scheduling core never dereferences it; the owning arena does.
type Candidate struct {
	Slot uint32 `json:"slot"`
	Gen  uint32 `json:"gen"`
}

// None is the zero candidate, returned when selection finds nothing.
var None = Candidate{}

// IsNone reports whether c is the zero candidate.
func (c Candidate) IsNone() bool {
	return c == None
}

// Agent is the minimal view the scheduler needs of a simulated agent.
// StableID must not be recycled within a session: the per-agent tick
// rotation hashes it directly.
type Agent interface {
	StableID() uint64
	Position() grid.HexCoord
}

// Validator decides whether a candidate is acceptable for an agent.
// Validators must be read-only; result caching is the core's job.
type Validator func(c Candidate, ag Agent) bool

// FetchFunc produces the current eligible candidates for a region.
// Supplied per category by task providers; invoked only when the cached
// list has gone stale.
type FetchFunc func(region RegionID) ([]Candidate, error)

// Locator resolves a candidate handle to a position. Returns false when
// the underlying target no longer exists.
type Locator func(c Candidate) (grid.HexCoord, bool)

// regionKey scopes per-region, per-category state.
type regionKey struct {
	Region RegionID
	Cat    Category
}
