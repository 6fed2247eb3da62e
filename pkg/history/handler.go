package history

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/abts/buildmonitor/internal/rest"
	log "github.com/sirupsen/logrus"
)

const (
	defaultLimit = 20
	maxLimit     = 500
)

type SnapshotDTO struct {
	Id                     int            `json:"id"`
	CycleId                string         `json:"cycleId"`
	RecordedAt             time.Time      `json:"recordedAt"`
	LoadedPlans            int            `json:"loadedPlans"`
	PlannedHours           float64        `json:"plannedHours"`
	ActualHours            float64        `json:"actualHours"`
	CompletedTasks         int            `json:"completedTasks"`
	TasksAheadOfSchedule   int            `json:"tasksAheadOfSchedule"`
	EfficiencyRatio        *int           `json:"efficiencyRatio"`
	AheadOfSchedulePercent *int           `json:"aheadOfSchedulePercent"`
	AverageTimeSaved       float64        `json:"averageTimeSaved"`
	Simulated              bool           `json:"simulated"`
	PlanCompletion         map[string]int `json:"planCompletion"`
}

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// ListSnapshots returns the most recent benchmark snapshots, newest first.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 1 || parsed > maxLimit {
			rest.WriteError(w, http.StatusBadRequest, rest.ErrorResponse{
				Error:   "Invalid limit",
				Details: "limit must be a number between 1 and " + strconv.Itoa(maxLimit),
			})
			return
		}
		limit = parsed
	}

	snapshots, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		log.Errorf("failed to list benchmark history: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]SnapshotDTO, 0, len(snapshots))
	for _, s := range snapshots {
		dtos = append(dtos, snapshotToDTO(s))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func snapshotToDTO(s Snapshot) SnapshotDTO {
	completion := s.PlanCompletion
	if completion == nil {
		completion = map[string]int{}
	}
	return SnapshotDTO{
		Id:                     s.Id,
		CycleId:                s.CycleId.String(),
		RecordedAt:             s.RecordedAt,
		LoadedPlans:            s.LoadedPlans,
		PlannedHours:           roundHours(s.PlannedHours),
		ActualHours:            roundHours(s.ActualHours),
		CompletedTasks:         s.CompletedTasks,
		TasksAheadOfSchedule:   s.TasksAheadOfSchedule,
		EfficiencyRatio:        s.EfficiencyRatio,
		AheadOfSchedulePercent: s.AheadOfSchedulePercent,
		AverageTimeSaved:       roundHours(s.AverageTimeSaved),
		Simulated:              s.Simulated,
		PlanCompletion:         completion,
	}
}

func roundHours(hours float64) float64 {
	return math.Round(hours*10) / 10
}
