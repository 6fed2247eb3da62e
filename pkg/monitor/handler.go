package monitor

import (
	"errors"
	"net/http"
	"strings"

	"github.com/abts/buildmonitor/internal/rest"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	refresher   *Refresher
	csvRenderer BenchmarkRenderer
}

func NewHandler(refresher *Refresher, csvRenderer BenchmarkRenderer) *Handler {
	return &Handler{refresher, csvRenderer}
}

func (h *Handler) latestReport(w http.ResponseWriter) (*Report, bool) {
	report, err := h.refresher.Latest()
	if err != nil {
		rest.WriteError(w, http.StatusServiceUnavailable, rest.ErrorResponse{
			Error:   "No data yet",
			Details: "the first refresh has not completed",
		})
		return nil, false
	}
	return report, true
}

// ListPlans returns every tracked plan with its overall progress.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	report, ok := h.latestReport(w)
	if !ok {
		return
	}
	plans := make([]PlanSummaryDTO, 0, len(report.Plans))
	for _, p := range report.Plans {
		plans = append(plans, planSummaryToDTO(p))
	}
	rest.WriteJSON(w, http.StatusOK, plans)
}

// GetPlan returns the current raw document of a plan.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	planId := mux.Vars(r)["planId"]
	if _, ok := h.latestReport(w); !ok {
		return
	}
	doc, err := h.refresher.Document(planId)
	if err != nil {
		rest.WriteError(w, http.StatusNotFound, rest.ErrorResponse{
			Error:   "Plan not found",
			Details: err.Error(),
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Raw); err != nil {
		log.Errorf("failed to write plan %s: %v", planId, err)
	}
}

// GetPlanProgress returns the overall and per-section progress of a plan.
func (h *Handler) GetPlanProgress(w http.ResponseWriter, r *http.Request) {
	planId := mux.Vars(r)["planId"]
	report, ok := h.latestReport(w)
	if !ok {
		return
	}
	p, found := report.Plan(planId)
	if !found {
		rest.WriteError(w, http.StatusNotFound, rest.ErrorResponse{
			Error:   "Plan not found",
			Details: "plan " + planId + " is not tracked",
		})
		return
	}
	rest.WriteJSON(w, http.StatusOK, planProgressToDTO(p))
}

// GetBenchmarks returns the benchmark summary as JSON, or as CSV when the
// client accepts text/csv.
func (h *Handler) GetBenchmarks(w http.ResponseWriter, r *http.Request) {
	report, ok := h.latestReport(w)
	if !ok {
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/csv") {
		csv, err := h.csvRenderer.RenderBenchmark(report.Benchmark)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(csv)); err != nil {
			log.Errorf("failed to write csv: %v", err)
		}
		return
	}

	withPlans := r.URL.Query().Get("details") == "true"
	rest.WriteJSON(w, http.StatusOK, benchmarkToDTO(report, withPlans))
}

// TriggerRefresh runs a refresh immediately and returns its status.
func (h *Handler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	report, err := h.refresher.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, ErrRefreshInProgress) {
			rest.WriteError(w, http.StatusConflict, rest.ErrorResponse{
				Error:   "Refresh in progress",
				Details: "a refresh is already running, try again later",
			})
			return
		}
		rest.WriteError(w, http.StatusBadGateway, rest.ErrorResponse{
			Error:   "Refresh failed",
			Details: err.Error(),
		})
		return
	}
	rest.WriteJSON(w, http.StatusOK, statusToDTO(report))
}

// Rediscover replaces the tracked plan list with what the source offers now.
func (h *Handler) Rediscover(w http.ResponseWriter, r *http.Request) {
	refs, err := h.refresher.Discover(r.Context())
	if err != nil {
		rest.WriteError(w, http.StatusBadGateway, rest.ErrorResponse{
			Error:   "Discovery failed",
			Details: err.Error(),
		})
		return
	}
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.Id)
	}
	rest.WriteJSON(w, http.StatusOK, map[string][]string{"plans": ids})
}

// GetStatus describes the last refresh cycle.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	report, ok := h.latestReport(w)
	if !ok {
		return
	}
	rest.WriteJSON(w, http.StatusOK, statusToDTO(report))
}
