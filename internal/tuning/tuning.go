// Package tuning holds the tunable scheduling constants, with optional
// YAML overrides for deployments that need different cadences.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/taskpulse/internal/schedule"
)

// Tuning collects every knob the demo host exposes.
type Tuning struct {
	IntervalHigh       uint64 `yaml:"interval_high"`
	IntervalMedium     uint64 `yaml:"interval_medium"`
	IntervalLow        uint64 `yaml:"interval_low"`
	IntervalBackground uint64 `yaml:"interval_background"`

	DefaultTickGroups int `yaml:"default_tick_groups"`
	MaxCacheEntries   int `yaml:"max_cache_entries"`

	// Squared hex-distance bands per category. Categories without an
	// entry use the built-in defaults.
	BucketThresholds map[string][]int `yaml:"bucket_thresholds"`

	LoadSteps []schedule.LoadStep `yaml:"load_steps"`

	MaintenanceEveryTicks uint64 `yaml:"maintenance_every_ticks"`
	TickMs                int    `yaml:"tick_ms"`
}

// Default returns the stock tuning.
func Default() Tuning {
	return Tuning{
		IntervalHigh:       schedule.IntervalHigh,
		IntervalMedium:     schedule.IntervalMedium,
		IntervalLow:        schedule.IntervalLow,
		IntervalBackground: schedule.IntervalBackground,

		DefaultTickGroups: schedule.DefaultTickGroups,
		MaxCacheEntries:   schedule.DefaultMaxCacheEntries,

		BucketThresholds: map[string][]int{
			"hauling":  {100, 400, 1600}, // 10/20/40 units, squared
			"foraging": {100, 400, 1600},
			"repair":   {25, 100, 400}, // emergencies want tighter bands
			"patrol":   {400, 1600},    // wide bands, low urgency
		},

		LoadSteps: schedule.DefaultLoadSteps,

		MaintenanceEveryTicks: 600,
		TickMs:                100,
	}
}

// Load reads a tuning file, filling any zero-valued field from Default.
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning %s: %w", path, err)
	}
	t.fillDefaults()
	return t, nil
}

func (t *Tuning) fillDefaults() {
	d := Default()
	if t.IntervalHigh == 0 {
		t.IntervalHigh = d.IntervalHigh
	}
	if t.IntervalMedium == 0 {
		t.IntervalMedium = d.IntervalMedium
	}
	if t.IntervalLow == 0 {
		t.IntervalLow = d.IntervalLow
	}
	if t.IntervalBackground == 0 {
		t.IntervalBackground = d.IntervalBackground
	}
	if t.DefaultTickGroups <= 0 {
		t.DefaultTickGroups = d.DefaultTickGroups
	}
	if t.MaxCacheEntries <= 0 {
		t.MaxCacheEntries = d.MaxCacheEntries
	}
	if len(t.BucketThresholds) == 0 {
		t.BucketThresholds = d.BucketThresholds
	}
	if len(t.LoadSteps) == 0 {
		t.LoadSteps = d.LoadSteps
	}
	if t.MaintenanceEveryTicks == 0 {
		t.MaintenanceEveryTicks = d.MaintenanceEveryTicks
	}
	if t.TickMs <= 0 {
		t.TickMs = d.TickMs
	}
}

// Tiers converts the interval knobs into the scheduler's tier struct.
func (t Tuning) Tiers() schedule.IntervalTiers {
	return schedule.IntervalTiers{
		High:       t.IntervalHigh,
		Medium:     t.IntervalMedium,
		Low:        t.IntervalLow,
		Background: t.IntervalBackground,
	}
}
