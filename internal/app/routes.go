package app

import (
	"github.com/abts/buildmonitor/internal/config"
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Plans
	r.HandleFunc("/api/plans", deps.MonitorHandler.ListPlans).Methods("GET")
	r.HandleFunc("/api/plans/discover", deps.MonitorHandler.Rediscover).Methods("POST")
	r.HandleFunc("/api/plans/{planId}", deps.MonitorHandler.GetPlan).Methods("GET")
	r.HandleFunc("/api/plans/{planId}/progress", deps.MonitorHandler.GetPlanProgress).Methods("GET")

	// Benchmarks
	r.HandleFunc("/api/benchmarks", deps.MonitorHandler.GetBenchmarks).Methods("GET")
	if deps.HistoryHandler != nil {
		r.HandleFunc("/api/benchmarks/history", deps.HistoryHandler.ListSnapshots).Methods("GET")
	}

	// Refresh cycle
	r.HandleFunc("/api/refresh", deps.MonitorHandler.TriggerRefresh).Methods("POST")
	r.HandleFunc("/api/status", deps.MonitorHandler.GetStatus).Methods("GET")
}
