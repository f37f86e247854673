package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"shrike/internal/api/dto"
	"shrike/internal/domain"
	jobruntime "shrike/internal/jobs/runtime"
	"shrike/internal/support"

	"github.com/charmbracelet/log"
)

func parsePriority(raw string) (domain.Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return domain.PriorityHigh, true
	case "medium":
		return domain.PriorityMedium, true
	case "low":
		return domain.PriorityLow, true
	default:
		return "", false
	}
}

func getAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		alerts []domain.Alert
		err    error
	)

	if raw := r.URL.Query().Get("priority"); raw != "" {
		priority, ok := parsePriority(raw)
		if !ok {
			writeError(w, "Unknown priority", http.StatusBadRequest)
			return
		}
		alerts, err = alertStore.GetAlertsByPriority(ctx, priority)
	} else {
		alerts, err = alertStore.GetAllAlerts(ctx)
	}

	if err != nil {
		log.Error("Error loading alerts", "error", err)
		writeError(w, "Failed to load alerts", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(alerts)
}

func clearAlerts(w http.ResponseWriter, r *http.Request) {
	deleted, err := alertStore.ClearAlerts(r.Context())
	if err != nil {
		log.Error("Error clearing alerts", "error", err)
		writeError(w, "Failed to clear alerts", http.StatusInternalServerError)
		return
	}

	log.Info("Cleared alert store", "deleted", deleted)
	json.NewEncoder(w).Encode(map[string]int64{"deleted": deleted})
}

func getDashboardStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := alertStore.CountAlertsByPriority(ctx)
	if err != nil {
		log.Error("Error counting alerts", "error", err)
		writeError(w, "Failed to load stats", http.StatusInternalServerError)
		return
	}

	average, err := alertStore.AverageRiskScore(ctx)
	if err != nil {
		log.Error("Error averaging risk scores", "error", err)
		writeError(w, "Failed to load stats", http.StatusInternalServerError)
		return
	}

	stats := dto.DashboardStats{
		HighPriority:    counts[domain.PriorityHigh],
		MediumPriority:  counts[domain.PriorityMedium],
		LowPriority:     counts[domain.PriorityLow],
		AverageRisk:     average,
		ActiveInstances: countInstances(ctx),
	}
	for _, count := range counts {
		stats.TotalAlerts += count
	}

	json.NewEncoder(w).Encode(stats)
}

func countInstances(ctx context.Context) int {
	client, err := support.GetRedisClient()
	if err != nil {
		return 0
	}
	count, err := jobruntime.CountActiveInstances(ctx, client)
	if err != nil {
		return 0
	}
	return count
}
