// Region generation using layered simplex noise. Noise decides where task
// targets cluster: haul piles in dense spots, forage in mid-density, with
// independent rolls for repair sites and a fixed ring of patrol posts.
package world

import (
	"fmt"
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/taskpulse/internal/grid"
	"github.com/talgya/taskpulse/internal/schedule"
)

// GenConfig holds region generation parameters.
type GenConfig struct {
	Radius       int     // hex grid radius of the region
	Seed         int64   // random seed (0 = random)
	Density      float64 // base chance a hex spawns a target (0.0-1.0)
	HaulLevel    float64 // noise threshold above which haul piles appear
	ForageLevel  float64 // noise threshold above which forage spots appear
	RepairChance float64 // independent chance of a repair site per hex
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Radius:       16,
		Seed:         0,
		Density:      0.15,
		HaulLevel:    0.65,
		ForageLevel:  0.45,
		RepairChance: 0.02,
	}
}

// SmallTestConfig returns a tiny region for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Radius:       5,
		Seed:         42,
		Density:      0.5,
		HaulLevel:    0.5,
		ForageLevel:  0.3,
		RepairChance: 0.1,
	}
}

// GenerateRegion creates a region and populates the world's arena with its
// targets. Deterministic for a fixed seed.
func GenerateRegion(w *World, id schedule.RegionID, cfg GenConfig) *Region {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	// Offset by region id so regions sharing a config differ.
	seed += int64(id) * 7919

	noise := opensimplex.NewNormalized(seed)
	rng := rand.New(rand.NewSource(seed + 1))

	region := &Region{
		ID:     id,
		Name:   fmt.Sprintf("region-%d", id),
		Radius: cfg.Radius,
	}
	w.AddRegion(region)

	for q := -cfg.Radius; q <= cfg.Radius; q++ {
		for r := -cfg.Radius; r <= cfg.Radius; r++ {
			coord := grid.HexCoord{Q: q, R: r}
			if grid.Distance(grid.HexCoord{}, coord) > cfg.Radius {
				continue
			}

			// Hex axial → cartesian for noise sampling.
			x := float64(q) + float64(r)*0.5
			y := float64(r) * math.Sqrt(3.0) / 2.0
			n := octaveNoise(noise, x, y, 3, 0.12, 0.5)

			if rng.Float64() < cfg.Density {
				switch {
				case n > cfg.HaulLevel:
					w.arena.Spawn(Target{
						Region: id,
						Kind:   TargetHaulPile,
						Pos:    coord,
						Amount: 2 + rng.Intn(6),
					})
				case n > cfg.ForageLevel:
					w.arena.Spawn(Target{
						Region: id,
						Kind:   TargetForageSpot,
						Pos:    coord,
						Amount: 1 + rng.Intn(4),
					})
				}
			}

			if rng.Float64() < cfg.RepairChance {
				w.arena.Spawn(Target{
					Region: id,
					Kind:   TargetRepairSite,
					Pos:    coord,
					Amount: 3 + rng.Intn(5),
				})
			}
		}
	}

	// Patrol posts on a ring at two thirds of the radius, six of them.
	ringDist := cfg.Radius * 2 / 3
	if ringDist > 0 {
		for _, dir := range grid.HexNeighborDirections {
			w.arena.Spawn(Target{
				Region: id,
				Kind:   TargetPatrolPost,
				Pos:    grid.HexCoord{Q: dir.Q * ringDist, R: dir.R * ringDist},
				Amount: 1,
			})
		}
	}

	return region
}

// octaveNoise samples multiple noise octaves for less uniform clustering.
func octaveNoise(n opensimplex.Noise, x, y float64, octaves int, freq, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxValue := 0.0
	f := freq

	for i := 0; i < octaves; i++ {
		total += n.Eval2(x*f, y*f) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		f *= 2
	}

	return total / maxValue
}
