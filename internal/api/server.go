// Package api provides the HTTP API for observing the scheduling demo.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/talgya/taskpulse/internal/agents"
	"github.com/talgya/taskpulse/internal/engine"
	"github.com/talgya/taskpulse/internal/persistence"
	"github.com/talgya/taskpulse/internal/schedule"
	"github.com/talgya/taskpulse/internal/world"
)

// Server serves simulation and scheduler state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/categories", s.handleCategories)
	mux.HandleFunc("/api/v1/regions", s.handleRegions)
	mux.HandleFunc("/api/v1/region/", s.handleRegionDetail)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/stats/history", s.handleStatsHistory)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/reset", s.adminOnly(s.handleReset))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins. Set
// CORS_ORIGINS to a comma-separated allowlist; localhost dev servers are
// always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no TASKPULSE_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"name":            "Taskpulse",
		"tick":            s.Sim.CurrentTick(),
		"speed":           s.Eng.Speed,
		"running":         s.Eng.Running,
		"population":      s.Sim.Stats.Population,
		"busy_agents":     s.Sim.Stats.BusyAgents,
		"live_targets":    s.Sim.Stats.LiveTargets,
		"tasks_completed": s.Sim.Stats.TasksCompleted,
		"regions":         len(s.Sim.World.Regions()),
		"cache_entries":   s.Sim.Dispatcher.Cache().EntryCount(),
		"memo_size":       s.Sim.Dispatcher.Memo().Size(),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Dispatcher.Stats())
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	type regionSummary struct {
		ID      schedule.RegionID `json:"id"`
		Name    string            `json:"name"`
		Radius  int               `json:"radius"`
		Agents  int               `json:"agents"`
		Targets map[string]int    `json:"targets"`
	}

	var result []regionSummary
	for _, reg := range s.Sim.World.Regions() {
		result = append(result, regionSummary{
			ID:      reg.ID,
			Name:    reg.Name,
			Radius:  reg.Radius,
			Agents:  len(s.Sim.RegionAgents[reg.ID]),
			Targets: s.Sim.World.TargetCount(reg.ID),
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleRegionDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 5 {
		http.Error(w, "missing region id", http.StatusBadRequest)
		return
	}
	id64, err := strconv.ParseUint(parts[4], 10, 32)
	if err != nil {
		http.Error(w, "invalid region id", http.StatusBadRequest)
		return
	}
	id := schedule.RegionID(id64)

	reg, ok := s.Sim.World.Region(id)
	if !ok {
		http.Error(w, "region not found", http.StatusNotFound)
		return
	}

	type targetEntry struct {
		Kind    string `json:"kind"`
		Q       int    `json:"q"`
		R       int    `json:"r"`
		Amount  int    `json:"amount"`
		Blocked bool   `json:"blocked"`
	}

	var targets []targetEntry
	for _, c := range s.Sim.World.Arena().CollectRegion(id) {
		t, live := s.Sim.World.Arena().Resolve(c)
		if !live {
			continue
		}
		targets = append(targets, targetEntry{
			Kind:    world.TargetKindName(t.Kind),
			Q:       t.Pos.Q,
			R:       t.Pos.R,
			Amount:  t.Amount,
			Blocked: t.Blocked,
		})
	}

	writeJSON(w, map[string]any{
		"id":      reg.ID,
		"name":    reg.Name,
		"radius":  reg.Radius,
		"agents":  len(s.Sim.RegionAgents[id]),
		"targets": targets,
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	type agentSummary struct {
		ID        agents.AgentID    `json:"id"`
		Name      string            `json:"name"`
		Region    schedule.RegionID `json:"region"`
		Archetype string            `json:"archetype"`
		Q         int               `json:"q"`
		R         int               `json:"r"`
		Busy      bool              `json:"busy"`
		TasksDone uint64            `json:"tasks_done"`
	}

	regionFilter := r.URL.Query().Get("region")

	var result []agentSummary
	for _, a := range s.Sim.Agents {
		if !a.Alive {
			continue
		}
		if regionFilter != "" {
			rid, err := strconv.ParseUint(regionFilter, 10, 32)
			if err != nil || schedule.RegionID(rid) != a.Region {
				continue
			}
		}
		result = append(result, agentSummary{
			ID:        a.ID,
			Name:      a.Name,
			Region:    a.Region,
			Archetype: agents.ArchetypeName(a.Archetype),
			Q:         a.Pos.Q,
			R:         a.Pos.R,
			Busy:      a.Busy(s.Sim.CurrentTick()),
			TasksDone: a.TasksDone,
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events := s.Sim.Events

	if cat := r.URL.Query().Get("category"); cat != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == cat {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}

	writeJSON(w, events[start:])
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	category := r.URL.Query().Get("category")
	if category == "" {
		http.Error(w, "missing category parameter", http.StatusBadRequest)
		return
	}

	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}

	rows, err := s.DB.StatsHistory(category, limit)
	if err != nil {
		slog.Error("stats history query failed", "error", err)
		// Return empty array instead of error — table may not have data yet.
		writeJSON(w, []persistence.StatsRow{})
		return
	}
	if rows == nil {
		rows = []persistence.StatsRow{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.Speed = req.Speed
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed})
}

// handleReset flushes scheduler state: POST {"region": N} tears down one
// region, POST {} resets the whole session.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Region *uint32 `json:"region"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if req.Region != nil {
		id := schedule.RegionID(*req.Region)
		if _, ok := s.Sim.World.Region(id); !ok {
			http.Error(w, "region not found", http.StatusNotFound)
			return
		}
		s.Sim.UnloadRegion(id)
		writeJSON(w, map[string]any{"reset": "region", "region": id})
		return
	}

	s.Sim.ResetSession()
	writeJSON(w, map[string]any{"reset": "all"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}
