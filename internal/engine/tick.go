// Package engine provides the tick-based simulation loop driving the
// scheduling core.
package engine

import (
	"log/slog"
	"time"
)

// Engine drives the simulation forward.
type Engine struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Speed    float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval time.Duration // Base tick interval
	Running  bool

	// MaintenanceEvery controls how often OnMaintenance fires, in ticks.
	MaintenanceEvery uint64

	// Callbacks — populated during setup.
	OnTick        func(tick uint64) // Every tick: agent assignment sweep
	OnMaintenance func(tick uint64) // Periodic: load rescaling, persistence
}

// NewEngine creates a simulation engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		Tick:             0,
		Speed:            1.0,
		Interval:         100 * time.Millisecond,
		MaintenanceEvery: 600,
		Running:          false,
	}
}

// Run starts the simulation loop. Blocks until Stop() is called.
func (e *Engine) Run() {
	e.Running = true
	slog.Info("simulation engine started", "tick", e.Tick, "speed", e.Speed)

	for e.Running {
		if e.Speed <= 0 {
			// Paused — sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		e.step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / e.Speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("simulation engine stopped", "tick", e.Tick)
}

// Stop halts the simulation loop.
func (e *Engine) Stop() {
	e.Running = false
}

// step advances the simulation by one tick.
func (e *Engine) step() {
	e.Tick++

	if e.OnTick != nil {
		e.OnTick(e.Tick)
	}

	if e.MaintenanceEvery > 0 && e.Tick%e.MaintenanceEvery == 0 && e.OnMaintenance != nil {
		e.OnMaintenance(e.Tick)
	}
}
