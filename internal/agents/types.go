// Package agents provides the agent data model and spawner for the demo
// simulation host. Agents are deliberately thin: the scheduling core only
// needs a stable id and a position.
package agents

import (
	"github.com/talgya/taskpulse/internal/grid"
	"github.com/talgya/taskpulse/internal/schedule"
)

// AgentID is a unique identifier for an agent. Ids are minted once per
// session and never recycled, which keeps the tick-group rotation stable.
type AgentID uint64

// Archetype determines which task categories an agent works.
type Archetype uint8

const (
	ArchetypeHauler Archetype = iota
	ArchetypeForager
	ArchetypeMechanic
	ArchetypeSentry
)

// ArchetypeName returns a display name for an archetype.
func ArchetypeName(a Archetype) string {
	switch a {
	case ArchetypeHauler:
		return "Hauler"
	case ArchetypeForager:
		return "Forager"
	case ArchetypeMechanic:
		return "Mechanic"
	case ArchetypeSentry:
		return "Sentry"
	default:
		return "Unknown"
	}
}

// Agent is one autonomous worker in the simulation.
type Agent struct {
	ID        AgentID           `json:"id"`
	Name      string            `json:"name"`
	Region    schedule.RegionID `json:"region"`
	Pos       grid.HexCoord     `json:"pos"`
	Archetype Archetype         `json:"archetype"`
	Alive     bool              `json:"alive"`
	BornTick  uint64            `json:"born_tick"`

	// Current assignment, if any. BusyUntil is the tick the work ends.
	Task      schedule.Candidate `json:"task,omitempty"`
	BusyUntil uint64             `json:"busy_until,omitempty"`

	// Lifetime counters.
	TasksDone uint64 `json:"tasks_done"`
}

// StableID implements schedule.Agent.
func (a *Agent) StableID() uint64 {
	return uint64(a.ID)
}

// Position implements schedule.Agent.
func (a *Agent) Position() grid.HexCoord {
	return a.Pos
}

// Busy reports whether the agent is still working an assignment at tick now.
func (a *Agent) Busy(now uint64) bool {
	return !a.Task.IsNone() && now < a.BusyUntil
}

// Categories returns the task categories this archetype works, in the
// order it prefers them.
func (a *Agent) Categories() []schedule.Category {
	switch a.Archetype {
	case ArchetypeHauler:
		return []schedule.Category{"hauling"}
	case ArchetypeForager:
		return []schedule.Category{"foraging", "hauling"}
	case ArchetypeMechanic:
		return []schedule.Category{"repair", "hauling"}
	case ArchetypeSentry:
		return []schedule.Category{"patrol"}
	default:
		return nil
	}
}
