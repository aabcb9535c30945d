// Staggered interval scheduling — per-category due checks phased by a
// hash-derived offset, a per-agent tick-group rotation, and a load-based
// interval rescaling pass.
package schedule

import (
	"log/slog"
	"sort"
)

// LoadStep is one rung of the load-scaling step function: populations of
// at least MinAgents stretch every base interval by Factor.
type LoadStep struct {
	MinAgents int    `yaml:"min_agents"`
	Factor    uint64 `yaml:"factor"`
}

// DefaultLoadSteps keeps wall-clock scheduling cost roughly bounded as the
// population grows, trading responsiveness for throughput.
var DefaultLoadSteps = []LoadStep{
	{MinAgents: 0, Factor: 1},
	{MinAgents: 50, Factor: 2},
	{MinAgents: 200, Factor: 3},
	{MinAgents: 1000, Factor: 4},
}

// Scheduler decides, per category and per agent, whether work should be
// attempted this tick. Decisions never error: unknown categories are
// treated as always due, the conservative default that favors availability
// over starvation.
type Scheduler struct {
	reg       *Registry
	loadSteps []LoadStep

	lastExec map[regionKey]uint64
	hasExec  map[regionKey]bool
	inactive map[regionKey]bool
}

// NewScheduler creates a scheduler over the given registry. Nil or empty
// loadSteps fall back to DefaultLoadSteps.
func NewScheduler(reg *Registry, loadSteps []LoadStep) *Scheduler {
	if len(loadSteps) == 0 {
		loadSteps = DefaultLoadSteps
	}
	steps := make([]LoadStep, len(loadSteps))
	copy(steps, loadSteps)
	sort.Slice(steps, func(i, j int) bool { return steps[i].MinAgents < steps[j].MinAgents })

	return &Scheduler{
		reg:       reg,
		loadSteps: steps,
		lastExec:  make(map[regionKey]uint64),
		hasExec:   make(map[regionKey]bool),
		inactive:  make(map[regionKey]bool),
	}
}

// CategoryDue reports whether a category should attempt a refresh/query on
// this tick in this region. force short-circuits to true and stamps the
// execution tick. Repeat calls within the same tick stay true so every
// agent processed that tick sees the same answer.
func (s *Scheduler) CategoryDue(now uint64, cat Category, region RegionID, force bool) bool {
	k := regionKey{region, cat}

	if force {
		s.lastExec[k] = now
		s.hasExec[k] = true
		return true
	}

	if !s.reg.Known(cat) {
		// Unregistered categories are always due but never stamped:
		// availability over starvation.
		return true
	}

	if s.inactive[k] {
		return false
	}

	if s.hasExec[k] && s.lastExec[k] == now {
		return true
	}

	interval := s.reg.Interval(cat)
	if interval == 0 {
		return false
	}

	elapsed := !s.hasExec[k] || now-s.lastExec[k] >= interval
	offsetMatches := (now+s.reg.StaggerOffset(cat))%interval == 0

	if !elapsed || !offsetMatches {
		return false
	}

	s.lastExec[k] = now
	s.hasExec[k] = true
	return true
}

// AgentTurn combines the category-level due check with the per-agent
// rotation: even on a due tick, only agents whose stable id hashes to the
// current tick-group slot attempt expensive work. force bypasses both gates.
func (s *Scheduler) AgentTurn(now uint64, cat Category, ag Agent, region RegionID, force bool) bool {
	if force {
		return true
	}

	groups := s.reg.TickGroups(cat)
	if groups == 0 {
		groups = DefaultTickGroups
	}
	isAgentsTick := now%groups == ag.StableID()%groups

	return isAgentsTick && s.CategoryDue(now, cat, region, false)
}

// SetCategoryActive toggles a category for one region. Deactivation makes
// CategoryDue return false there without touching any other region.
func (s *Scheduler) SetCategoryActive(region RegionID, cat Category, active bool) {
	k := regionKey{region, cat}
	if active {
		delete(s.inactive, k)
		return
	}
	s.inactive[k] = true
}

// CategoryActive reports the per-region toggle state.
func (s *Scheduler) CategoryActive(region RegionID, cat Category) bool {
	return !s.inactive[regionKey{region, cat}]
}

// RescaleForLoad writes each category's dynamic interval as its base
// interval stretched by the step function of total agent count. Runs as a
// periodic maintenance pass, not per tick.
func (s *Scheduler) RescaleForLoad(totalAgents int) {
	factor := uint64(1)
	for _, step := range s.loadSteps {
		if totalAgents >= step.MinAgents {
			factor = step.Factor
		}
	}

	for _, key := range s.reg.Categories() {
		d, ok := s.reg.Get(key)
		if !ok {
			continue
		}
		s.reg.SetDynamicInterval(key, d.BaseInterval*factor)
	}

	slog.Debug("rescaled category intervals", "total_agents", totalAgents, "factor", factor)
}

// ResetRegion forgets all execution bookkeeping and toggles for one region,
// forcing a fresh due evaluation on next access.
func (s *Scheduler) ResetRegion(region RegionID) {
	for k := range s.lastExec {
		if k.Region == region {
			delete(s.lastExec, k)
			delete(s.hasExec, k)
		}
	}
	for k := range s.inactive {
		if k.Region == region {
			delete(s.inactive, k)
		}
	}
}

// ResetAll forgets execution bookkeeping and toggles everywhere.
func (s *Scheduler) ResetAll() {
	s.lastExec = make(map[regionKey]uint64)
	s.hasExec = make(map[regionKey]bool)
	s.inactive = make(map[regionKey]bool)
}
