// Dispatcher — the composition root of the scheduling core. Task providers
// hold a reference to one Dispatcher and call into it; nothing inherits
// scheduling or caching behavior.
package schedule

import (
	"fmt"
	"log/slog"
	"math/rand"
)

// Config wires a Dispatcher together.
type Config struct {
	Tiers           IntervalTiers
	MaxCacheEntries int
	LoadSteps       []LoadStep
	Locate          Locator
	Rand            *rand.Rand // shuffle source; required
}

// categoryCounters tracks per-category scheduling activity for
// observability. Maintained only on the simulation goroutine.
type categoryCounters struct {
	DueCount      uint64
	RefreshCount  uint64
	FetchFailures uint64
	Assignments   uint64
	Misses        uint64
}

// CategoryStats is a diagnostic snapshot of one category.
type CategoryStats struct {
	Category      Category `json:"category"`
	Priority      int      `json:"priority"`
	Interval      uint64   `json:"interval"`
	TickGroups    uint64   `json:"tick_groups"`
	StaggerOffset uint64   `json:"stagger_offset"`
	Providers     []string `json:"providers,omitempty"`
	DueCount      uint64   `json:"due_count"`
	RefreshCount  uint64   `json:"refresh_count"`
	FetchFailures uint64   `json:"fetch_failures"`
	Assignments   uint64   `json:"assignments"`
	Misses        uint64   `json:"misses"`
}

// Dispatcher composes the registry, cache, memo, bucketer, scheduler, and
// lifecycle manager behind the per-agent assignment entry point.
type Dispatcher struct {
	reg      *Registry
	memo     *ReachMemo
	cache    *CandidateCache
	sched    *Scheduler
	life     *Lifecycle
	bucketer *Bucketer

	locate     Locator
	fetchers   map[Category]FetchFunc
	thresholds map[Category][]int
	counters   map[Category]*categoryCounters
}

// New creates a Dispatcher from the given configuration.
func New(cfg Config) *Dispatcher {
	if cfg.Tiers == (IntervalTiers{}) {
		cfg.Tiers = DefaultTiers()
	}

	reg := NewRegistry(cfg.Tiers)
	memo := NewReachMemo()
	cache := NewCandidateCache(cfg.MaxCacheEntries, memo)
	sched := NewScheduler(reg, cfg.LoadSteps)

	return &Dispatcher{
		reg:        reg,
		memo:       memo,
		cache:      cache,
		sched:      sched,
		life:       NewLifecycle(cache, memo, sched),
		bucketer:   NewBucketer(cfg.Rand),
		locate:     cfg.Locate,
		fetchers:   make(map[Category]FetchFunc),
		thresholds: make(map[Category][]int),
		counters:   make(map[Category]*categoryCounters),
	}
}

// Registry exposes the category registry.
func (d *Dispatcher) Registry() *Registry { return d.reg }

// Cache exposes the candidate cache.
func (d *Dispatcher) Cache() *CandidateCache { return d.cache }

// Memo exposes the reachability memo.
func (d *Dispatcher) Memo() *ReachMemo { return d.memo }

// Scheduler exposes the interval scheduler.
func (d *Dispatcher) Scheduler() *Scheduler { return d.sched }

// Lifecycle exposes the reset manager.
func (d *Dispatcher) Lifecycle() *Lifecycle { return d.life }

// RegisterCategory registers or reconfigures a category.
// customInterval 0 derives from the priority tier; tickGroups <= 0 uses
// the default rotation width.
func (d *Dispatcher) RegisterCategory(key Category, priority int, customInterval uint64, tickGroups int) {
	d.reg.Register(key, priority, customInterval, tickGroups)
}

// BindFetch attaches a provider's candidate-fetch callback to a category
// and records the association for discovery.
func (d *Dispatcher) BindFetch(key Category, providerID string, fn FetchFunc) {
	if key == "" || fn == nil {
		slog.Debug("ignoring fetch binding", "category", key, "provider", providerID)
		return
	}
	d.fetchers[key] = fn
	d.reg.AssociateProvider(key, providerID)
}

// SetThresholds overrides the distance bands (squared units, ascending)
// used when bucketing candidates for a category.
func (d *Dispatcher) SetThresholds(key Category, bands []int) {
	if len(bands) == 0 {
		return
	}
	kept := make([]int, len(bands))
	copy(kept, bands)
	d.thresholds[key] = kept
}

// Assign is the per-agent, per-tick entry point. It gates on the staggered
// scheduler and the agent's tick-group rotation, refreshes the candidate
// cache if stale, then walks distance buckets nearest-first for the first
// candidate the validator accepts.
func (d *Dispatcher) Assign(now uint64, region RegionID, cat Category, ag Agent, validate Validator) (Candidate, bool) {
	return d.assign(now, region, cat, ag, validate, false)
}

// ForceAssign bypasses the due/rotation gates, for callers that must
// resolve a target immediately (e.g. a player-issued order).
func (d *Dispatcher) ForceAssign(now uint64, region RegionID, cat Category, ag Agent, validate Validator) (Candidate, bool) {
	return d.assign(now, region, cat, ag, validate, true)
}

func (d *Dispatcher) assign(now uint64, region RegionID, cat Category, ag Agent, validate Validator, force bool) (Candidate, bool) {
	if !d.sched.AgentTurn(now, cat, ag, region, force) {
		return None, false
	}

	ctr := d.countersFor(cat)
	ctr.DueCount++

	if d.cache.IsStale(now, region, cat, d.reg.Interval(cat)) {
		d.refresh(now, region, cat, ctr)
	}

	if !d.cache.HasTargets(region, cat) {
		return None, false
	}

	buckets := Bucket(ag.Position(), d.cache.Get(region, cat), d.thresholdsFor(cat), d.locate)
	c, ok := d.bucketer.SelectFirstValid(region, cat, buckets, ag, validate, d.memo)
	if ok {
		ctr.Assignments++
	} else {
		ctr.Misses++
	}
	return c, ok
}

// refresh invokes the bound fetch callback and replaces the cache entry.
// A failed or panicking fetch leaves the previous (possibly stale) entry
// untouched rather than corrupting it with a partial result.
func (d *Dispatcher) refresh(now uint64, region RegionID, cat Category, ctr *categoryCounters) {
	fn, ok := d.fetchers[cat]
	if !ok {
		return
	}

	fresh, err := safeFetch(fn, region)
	if err != nil {
		ctr.FetchFailures++
		slog.Warn("candidate fetch failed, keeping previous cache entry",
			"category", cat, "region", region, "error", err)
		return
	}

	d.cache.Refresh(now, region, cat, fresh)
	ctr.RefreshCount++
}

// safeFetch shields the cache from provider callbacks that panic.
func safeFetch(fn FetchFunc, region RegionID) (fresh []Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			fresh = nil
			err = fmt.Errorf("fetch callback panicked: %v", r)
		}
	}()
	return fn(region)
}

func (d *Dispatcher) countersFor(cat Category) *categoryCounters {
	ctr, ok := d.counters[cat]
	if !ok {
		ctr = &categoryCounters{}
		d.counters[cat] = ctr
	}
	return ctr
}

func (d *Dispatcher) thresholdsFor(cat Category) []int {
	if bands, ok := d.thresholds[cat]; ok {
		return bands
	}
	return DefaultThresholds
}

// Stats returns a diagnostic snapshot for every registered category.
func (d *Dispatcher) Stats() []CategoryStats {
	keys := d.reg.Categories()
	out := make([]CategoryStats, 0, len(keys))
	for _, key := range keys {
		desc, ok := d.reg.Get(key)
		if !ok {
			continue
		}
		st := CategoryStats{
			Category:      key,
			Priority:      desc.Priority,
			Interval:      d.reg.Interval(key),
			TickGroups:    desc.TickGroups,
			StaggerOffset: desc.StaggerOffset,
			Providers:     desc.Providers,
		}
		if ctr, ok := d.counters[key]; ok {
			st.DueCount = ctr.DueCount
			st.RefreshCount = ctr.RefreshCount
			st.FetchFailures = ctr.FetchFailures
			st.Assignments = ctr.Assignments
			st.Misses = ctr.Misses
		}
		out = append(out, st)
	}
	return out
}
