// Simulation ties the world, the agent population, and the dispatcher
// together and runs the per-tick assignment sweep.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/taskpulse/internal/agents"
	"github.com/talgya/taskpulse/internal/grid"
	"github.com/talgya/taskpulse/internal/schedule"
	"github.com/talgya/taskpulse/internal/world"
)

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// workTicksPerUnit is how long one unit of target work takes.
const workTicksPerUnit = 8

// Event is a notable occurrence in the simulation.
type Event struct {
	Tick        uint64 `json:"tick" db:"tick"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"`
}

// SimStats tracks aggregate simulation statistics.
type SimStats struct {
	Population     int    `json:"population"`
	BusyAgents     int    `json:"busy_agents"`
	LiveTargets    int    `json:"live_targets"`
	TasksCompleted uint64 `json:"tasks_completed"`
}

// Simulation holds the complete demo state and wires systems together.
type Simulation struct {
	World        *world.World
	Agents       []*agents.Agent
	AgentIndex   map[agents.AgentID]*agents.Agent
	RegionAgents map[schedule.RegionID][]*agents.Agent
	Dispatcher   *schedule.Dispatcher

	Events   []Event
	LastTick uint64
	Stats    SimStats

	// claims prevents two agents working the same target; claimed on
	// assignment, released on completion or target loss.
	claims map[schedule.Candidate]agents.AgentID

	rng *rand.Rand
}

// NewSimulation creates a Simulation from generated components.
func NewSimulation(w *world.World, ag []*agents.Agent, d *schedule.Dispatcher, seed int64) *Simulation {
	index := make(map[agents.AgentID]*agents.Agent, len(ag))
	byRegion := make(map[schedule.RegionID][]*agents.Agent)
	for _, a := range ag {
		index[a.ID] = a
		byRegion[a.Region] = append(byRegion[a.Region], a)
	}

	sim := &Simulation{
		World:        w,
		Agents:       ag,
		AgentIndex:   index,
		RegionAgents: byRegion,
		Dispatcher:   d,
		claims:       make(map[schedule.Candidate]agents.AgentID),
		rng:          rand.New(rand.NewSource(seed + 500)),
	}
	sim.updateStats()
	return sim
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	return s.LastTick
}

// TickAssign runs every tick: finishes due work, then asks the dispatcher
// for new assignments for every idle agent whose turn it is.
func (s *Simulation) TickAssign(tick uint64) {
	s.LastTick = tick

	for _, a := range s.Agents {
		if !a.Alive {
			continue
		}
		if a.Busy(tick) {
			continue
		}
		if !a.Task.IsNone() {
			s.completeTask(tick, a)
		}
		s.tryAssign(tick, a)
	}
}

// completeTask applies the finished work: moves the agent to the target,
// consumes one work unit, and frees the target when exhausted.
func (s *Simulation) completeTask(tick uint64, a *agents.Agent) {
	c := a.Task
	a.Task = schedule.None
	delete(s.claims, c)

	t, ok := s.World.Arena().Resolve(c)
	if !ok {
		// Target vanished mid-assignment; nothing to apply.
		return
	}

	a.Pos = t.Pos
	a.TasksDone++
	s.Stats.TasksCompleted++
	t.Amount--

	if t.Amount <= 0 {
		kind := world.TargetKindName(t.Kind)
		s.World.Arena().Free(c)
		s.record(tick, fmt.Sprintf("%s exhausted %s", a.Name, kind), "work")
	}
}

// tryAssign walks the agent's archetype categories in preference order and
// takes the first assignment the dispatcher produces.
func (s *Simulation) tryAssign(tick uint64, a *agents.Agent) {
	for _, cat := range a.Categories() {
		c, ok := s.Dispatcher.Assign(tick, a.Region, cat, a, s.validator())
		if !ok {
			continue
		}

		t, live := s.World.Arena().Resolve(c)
		if !live {
			continue
		}

		s.claims[c] = a.ID
		a.Task = c
		travel := uint64(grid.Distance(a.Pos, t.Pos))
		a.BusyUntil = tick + travel + workTicksPerUnit
		s.record(tick, fmt.Sprintf("%s took %s work at (%d,%d)",
			a.Name, cat, t.Pos.Q, t.Pos.R), string(cat))
		return
	}
}

// validator accepts targets that still exist, are not blocked, have work
// remaining, and are unclaimed. Read-only by contract.
func (s *Simulation) validator() schedule.Validator {
	return func(c schedule.Candidate, ag schedule.Agent) bool {
		t, ok := s.World.Arena().Resolve(c)
		if !ok || t.Blocked || t.Amount <= 0 {
			return false
		}
		_, claimed := s.claims[c]
		return !claimed
	}
}

// Maintenance runs periodically: rescales intervals for the current
// population, replenishes targets, and trims the event log.
func (s *Simulation) Maintenance(tick uint64) {
	alive := 0
	for _, a := range s.Agents {
		if a.Alive {
			alive++
		}
	}
	s.Dispatcher.Scheduler().RescaleForLoad(alive)

	s.replenishTargets(tick)
	s.updateStats()

	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}

	slog.Info("maintenance pass",
		"tick", tick,
		"population", s.Stats.Population,
		"busy", s.Stats.BusyAgents,
		"live_targets", s.Stats.LiveTargets,
		"tasks_completed", s.Stats.TasksCompleted,
	)
}

// replenishTargets spawns a few new work sites per region so the demo
// never runs dry.
func (s *Simulation) replenishTargets(tick uint64) {
	kinds := []world.TargetKind{world.TargetHaulPile, world.TargetForageSpot, world.TargetRepairSite}

	for _, r := range s.World.Regions() {
		n := 1 + s.rng.Intn(3)
		for i := 0; i < n; i++ {
			kind := kinds[s.rng.Intn(len(kinds))]
			s.World.Arena().Spawn(world.Target{
				Region: r.ID,
				Kind:   kind,
				Pos:    s.randomPos(r.Radius),
				Amount: 1 + s.rng.Intn(5),
			})
		}
	}
}

func (s *Simulation) randomPos(radius int) grid.HexCoord {
	return grid.HexCoord{
		Q: s.rng.Intn(2*radius+1) - radius,
		R: s.rng.Intn(2*radius+1) - radius,
	}
}

// UnloadRegion tears down a region: its targets, its agents' claims, and
// the dispatcher state keyed by it.
func (s *Simulation) UnloadRegion(id schedule.RegionID) {
	for _, a := range s.RegionAgents[id] {
		if !a.Task.IsNone() {
			delete(s.claims, a.Task)
			a.Task = schedule.None
			a.BusyUntil = 0
		}
	}
	s.World.UnloadRegion(id)
	s.Dispatcher.Lifecycle().ResetRegion(id)
	s.updateStats()
}

// ResetSession flushes every cache and claim for a fresh session.
func (s *Simulation) ResetSession() {
	for _, a := range s.Agents {
		a.Task = schedule.None
		a.BusyUntil = 0
	}
	s.claims = make(map[schedule.Candidate]agents.AgentID)
	s.Dispatcher.Lifecycle().ResetAll()
	s.updateStats()
}

func (s *Simulation) record(tick uint64, desc, category string) {
	s.Events = append(s.Events, Event{Tick: tick, Description: desc, Category: category})
}

func (s *Simulation) updateStats() {
	alive := 0
	busy := 0
	for _, a := range s.Agents {
		if !a.Alive {
			continue
		}
		alive++
		if a.Busy(s.LastTick) {
			busy++
		}
	}
	s.Stats.Population = alive
	s.Stats.BusyAgents = busy
	s.Stats.LiveTargets = s.World.Arena().Live()
}
