// Task category registry — priorities, refresh intervals, stagger offsets,
// and tick-group counts, fixed at registration and reconfigured only by
// explicit overrides.
package schedule

import (
	"hash/fnv"
	"log/slog"
	"sort"
)

// Default interval tiers in simulated ticks. Higher priority means a
// shorter refresh interval.
const (
	IntervalHigh       uint64 = 30
	IntervalMedium     uint64 = 60
	IntervalLow        uint64 = 120
	IntervalBackground uint64 = 250
)

// DefaultTickGroups is the number of rotation slots used to spread
// per-agent queries for one category across consecutive ticks.
const DefaultTickGroups = 4

// IntervalTiers maps priority bands to refresh intervals.
type IntervalTiers struct {
	High       uint64
	Medium     uint64
	Low        uint64
	Background uint64
}

// DefaultTiers returns the stock interval tiers.
func DefaultTiers() IntervalTiers {
	return IntervalTiers{
		High:       IntervalHigh,
		Medium:     IntervalMedium,
		Low:        IntervalLow,
		Background: IntervalBackground,
	}
}

// intervalFor maps a priority to a tier interval: >=8 high, 5-7 medium,
// 2-4 low, everything else background.
func (t IntervalTiers) intervalFor(priority int) uint64 {
	switch {
	case priority >= 8:
		return t.High
	case priority >= 5:
		return t.Medium
	case priority >= 2:
		return t.Low
	default:
		return t.Background
	}
}

// CategoryDescriptor holds the scheduling parameters of one task category.
type CategoryDescriptor struct {
	Key             Category
	Priority        int
	BaseInterval    uint64
	DynamicInterval uint64 // 0 = no override; takes precedence when set
	StaggerOffset   uint64
	TickGroups      uint64
	Providers       []string
}

// Registry holds every registered task category. Registration happens
// process-wide before the simulation starts; descriptors live for the
// process lifetime.
type Registry struct {
	tiers IntervalTiers
	cats  map[Category]*CategoryDescriptor
}

// NewRegistry creates an empty registry using the given interval tiers.
func NewRegistry(tiers IntervalTiers) *Registry {
	return &Registry{
		tiers: tiers,
		cats:  make(map[Category]*CategoryDescriptor),
	}
}

// Register upserts a category. customInterval 0 derives the interval from
// the priority tier; tickGroups <= 0 falls back to DefaultTickGroups.
// An empty key is a no-op: scheduling must never block the simulation
// over a misconfigured provider.
func (r *Registry) Register(key Category, priority int, customInterval uint64, tickGroups int) {
	if key == "" {
		slog.Debug("ignoring category registration with empty key")
		return
	}

	interval := customInterval
	if interval == 0 {
		interval = r.tiers.intervalFor(priority)
	}

	groups := uint64(DefaultTickGroups)
	if tickGroups > 0 {
		groups = uint64(tickGroups)
	}

	if d, ok := r.cats[key]; ok {
		// Upsert: recompute derived fields, keep provider bookkeeping
		// and any dynamic override from the load-scaling pass.
		d.Priority = priority
		d.BaseInterval = interval
		d.StaggerOffset = staggerFor(key, interval)
		d.TickGroups = groups
		return
	}

	r.cats[key] = &CategoryDescriptor{
		Key:           key,
		Priority:      priority,
		BaseInterval:  interval,
		StaggerOffset: staggerFor(key, interval),
		TickGroups:    groups,
	}
}

// AssociateProvider records that a concrete task provider participates in
// this category. Purely informational; no effect on scheduling.
func (r *Registry) AssociateProvider(key Category, providerID string) {
	d, ok := r.cats[key]
	if !ok || providerID == "" {
		return
	}
	for _, p := range d.Providers {
		if p == providerID {
			return
		}
	}
	d.Providers = append(d.Providers, providerID)
}

// SetTickGroups overrides the rotation slot count. Non-positive n is a no-op.
func (r *Registry) SetTickGroups(key Category, n int) {
	d, ok := r.cats[key]
	if !ok || n <= 0 {
		if n <= 0 {
			slog.Debug("ignoring non-positive tick group override", "category", key, "n", n)
		}
		return
	}
	d.TickGroups = uint64(n)
}

// SetBaseInterval overrides the base refresh interval. Non-positive is a no-op.
func (r *Registry) SetBaseInterval(key Category, interval uint64) {
	d, ok := r.cats[key]
	if !ok || interval == 0 {
		if interval == 0 {
			slog.Debug("ignoring zero base interval override", "category", key)
		}
		return
	}
	d.BaseInterval = interval
	d.StaggerOffset = staggerFor(key, interval)
}

// SetDynamicInterval writes the load-scaling override. It takes precedence
// over the base interval until cleared.
func (r *Registry) SetDynamicInterval(key Category, interval uint64) {
	d, ok := r.cats[key]
	if !ok {
		return
	}
	d.DynamicInterval = interval
}

// ClearDynamicInterval removes the load-scaling override.
func (r *Registry) ClearDynamicInterval(key Category) {
	d, ok := r.cats[key]
	if !ok {
		return
	}
	d.DynamicInterval = 0
}

// Interval returns the effective refresh interval: the dynamic override
// when present, else the base. Unknown categories default to the medium
// tier rather than erroring.
func (r *Registry) Interval(key Category) uint64 {
	d, ok := r.cats[key]
	if !ok {
		return r.tiers.Medium
	}
	if d.DynamicInterval > 0 {
		return d.DynamicInterval
	}
	return d.BaseInterval
}

// TickGroups returns the rotation slot count for a category.
func (r *Registry) TickGroups(key Category) uint64 {
	d, ok := r.cats[key]
	if !ok {
		return DefaultTickGroups
	}
	return d.TickGroups
}

// StaggerOffset returns the deterministic refresh phase for a category.
func (r *Registry) StaggerOffset(key Category) uint64 {
	d, ok := r.cats[key]
	if !ok {
		return staggerFor(key, r.tiers.Medium)
	}
	return d.StaggerOffset
}

// Get returns the descriptor for a category.
func (r *Registry) Get(key Category) (*CategoryDescriptor, bool) {
	d, ok := r.cats[key]
	return d, ok
}

// Known reports whether the category has been registered.
func (r *Registry) Known(key Category) bool {
	_, ok := r.cats[key]
	return ok
}

// Categories returns all registered category keys in sorted order.
func (r *Registry) Categories() []Category {
	keys := make([]Category, 0, len(r.cats))
	for k := range r.cats {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// staggerFor derives a stable refresh phase in [0, interval) from the
// category key, so categories sharing an interval do not all refresh on
// the same tick.
func staggerFor(key Category, interval uint64) uint64 {
	if interval == 0 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return uint64(h.Sum32()) % interval
}
