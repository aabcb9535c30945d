// Command taskpulse runs the staggered task-scheduling demo host.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talgya/taskpulse/internal/agents"
	"github.com/talgya/taskpulse/internal/api"
	"github.com/talgya/taskpulse/internal/engine"
	"github.com/talgya/taskpulse/internal/entropy"
	"github.com/talgya/taskpulse/internal/persistence"
	"github.com/talgya/taskpulse/internal/schedule"
	"github.com/talgya/taskpulse/internal/tuning"
	"github.com/talgya/taskpulse/internal/world"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	seed := flag.Int64("seed", 42, "world seed (0 = random)")
	dbPath := flag.String("db", "data/taskpulse.db", "diagnostics database path")
	apiPort := flag.Int("port", 8080, "HTTP API port")
	tuningPath := flag.String("tuning", "", "optional tuning YAML file")
	regionCount := flag.Int("regions", 3, "number of regions to generate")
	agentsPerRegion := flag.Int("agents", 400, "agents spawned per region")
	flag.Parse()

	slog.Info("Taskpulse — staggered task scheduling demo")

	// ── Tuning ────────────────────────────────────────────────────────
	tun := tuning.Default()
	if *tuningPath != "" {
		var err error
		tun, err = tuning.Load(*tuningPath)
		if err != nil {
			slog.Warn("tuning load failed, using defaults", "path", *tuningPath, "error", err)
		} else {
			slog.Info("tuning loaded", "path", *tuningPath)
		}
	}

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll("data", 0755)
	db, err := persistence.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", *dbPath)

	// ── World generation ──────────────────────────────────────────────
	w := world.New()
	genCfg := world.DefaultGenConfig()
	genCfg.Seed = *seed
	for i := 1; i <= *regionCount; i++ {
		region := world.GenerateRegion(w, schedule.RegionID(i), genCfg)
		slog.Info("region generated", "region", region.ID, "name", region.Name,
			"targets", w.Arena().Live())
	}

	// ── Agent population ──────────────────────────────────────────────
	spawner := agents.NewSpawner(*seed)
	var allAgents []*agents.Agent
	for i := 1; i <= *regionCount; i++ {
		pop := spawner.SpawnPopulation(*agentsPerRegion, schedule.RegionID(i), genCfg.Radius, 0)
		allAgents = append(allAgents, pop...)
	}
	slog.Info("population spawned", "agents", len(allAgents), "regions", *regionCount)

	// ── Scheduling core ───────────────────────────────────────────────
	dispatcher := schedule.New(schedule.Config{
		Tiers:           tun.Tiers(),
		MaxCacheEntries: tun.MaxCacheEntries,
		LoadSteps:       tun.LoadSteps,
		Locate:          w.Locate,
		Rand:            entropy.NewSource(*seed),
	})

	// Category registration: priority decides the refresh tier unless a
	// custom interval is given.
	dispatcher.RegisterCategory("hauling", 5, 0, tun.DefaultTickGroups)
	dispatcher.RegisterCategory("foraging", 3, 0, tun.DefaultTickGroups)
	dispatcher.RegisterCategory("repair", 8, 0, tun.DefaultTickGroups)
	dispatcher.RegisterCategory("patrol", 1, 0, tun.DefaultTickGroups)

	dispatcher.BindFetch("hauling", "haul-piles", w.Fetcher(world.TargetHaulPile))
	dispatcher.BindFetch("foraging", "forage-spots", w.Fetcher(world.TargetForageSpot))
	dispatcher.BindFetch("repair", "repair-sites", w.Fetcher(world.TargetRepairSite))
	dispatcher.BindFetch("patrol", "patrol-posts", w.Fetcher(world.TargetPatrolPost))

	for cat, bands := range tun.BucketThresholds {
		dispatcher.SetThresholds(schedule.Category(cat), bands)
	}

	// ── Simulation ────────────────────────────────────────────────────
	sim := engine.NewSimulation(w, allAgents, dispatcher, *seed)

	eng := engine.NewEngine()
	eng.Interval = time.Duration(tun.TickMs) * time.Millisecond
	eng.MaintenanceEvery = tun.MaintenanceEveryTicks
	eng.OnTick = sim.TickAssign
	eng.OnMaintenance = func(tick uint64) {
		sim.Maintenance(tick)
		session := dispatcher.Lifecycle().SessionID().String()
		if err := db.SaveDiagnostics(session, tick, dispatcher.Stats(), sim.Events); err != nil {
			slog.Error("diagnostics save failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("TASKPULSE_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("TASKPULSE_ADMIN_KEY not set — admin POST endpoints will be disabled")
	}

	apiServer := &api.Server{
		Sim:      sim,
		Eng:      eng,
		DB:       db,
		Port:     *apiPort,
		AdminKey: adminKey,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	fmt.Printf("\nTaskpulse is live: %d agents across %d regions, %d targets.\n",
		len(allAgents), *regionCount, w.Arena().Live())
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", *apiPort)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run()

	// Final diagnostics save on shutdown.
	slog.Info("final save...")
	session := dispatcher.Lifecycle().SessionID().String()
	if err := db.SaveDiagnostics(session, eng.Tick, dispatcher.Stats(), sim.Events); err != nil {
		slog.Error("final save failed", "error", err)
	}

	fmt.Println("Simulation stopped.")
}
