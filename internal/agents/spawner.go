// Agent spawning — creates the worker population for a region with ids
// minted once per session.
package agents

import (
	"math/rand"

	"github.com/talgya/taskpulse/internal/grid"
	"github.com/talgya/taskpulse/internal/schedule"
)

// Spawner creates agents for the simulation.
type Spawner struct {
	rng    *rand.Rand
	nextID AgentID
}

// NewSpawner creates an agent spawner with the given seed.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{
		rng:    rand.New(rand.NewSource(seed + 300)),
		nextID: 1,
	}
}

// SetNextID sets the next agent id to be issued (used when restoring a
// population). Ids must stay monotonic within a session.
func (s *Spawner) SetNextID(id AgentID) {
	s.nextID = id
}

// SpawnPopulation creates a batch of agents for a region, scattered around
// the region center with a mix of archetypes.
func (s *Spawner) SpawnPopulation(count int, region schedule.RegionID, radius int, bornTick uint64) []*Agent {
	out := make([]*Agent, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, s.spawnOne(region, radius, bornTick))
	}
	return out
}

func (s *Spawner) spawnOne(region schedule.RegionID, radius int, bornTick uint64) *Agent {
	id := s.nextID
	s.nextID++

	// Scatter within half the region radius of the center.
	half := radius / 2
	if half < 1 {
		half = 1
	}
	pos := grid.HexCoord{
		Q: s.rng.Intn(2*half+1) - half,
		R: s.rng.Intn(2*half+1) - half,
	}

	// Mostly haulers and foragers; mechanics and sentries are rarer.
	var arch Archetype
	switch roll := s.rng.Float64(); {
	case roll < 0.40:
		arch = ArchetypeHauler
	case roll < 0.75:
		arch = ArchetypeForager
	case roll < 0.90:
		arch = ArchetypeMechanic
	default:
		arch = ArchetypeSentry
	}

	return &Agent{
		ID:        id,
		Name:      s.generateName(),
		Region:    region,
		Pos:       pos,
		Archetype: arch,
		Alive:     true,
		BornTick:  bornTick,
	}
}

var nameStarts = []string{
	"Bar", "Cal", "Dor", "Eli", "Fen", "Gar", "Hal", "Ira", "Jor", "Kel",
	"Lun", "Mar", "Ned", "Ori", "Pax", "Quin", "Ren", "Sol", "Tam", "Ula",
}

var nameEnds = []string{
	"an", "dric", "eth", "field", "gan", "is", "lin", "mund", "ric", "son",
	"ter", "vale", "wick", "wyn",
}

func (s *Spawner) generateName() string {
	return nameStarts[s.rng.Intn(len(nameStarts))] + nameEnds[s.rng.Intn(len(nameEnds))]
}
