package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"shrike/internal/api/dto"
	"shrike/internal/config"
	"shrike/internal/domain"
	"shrike/internal/enrich"
	"shrike/internal/export"
	"shrike/internal/ingest"
	"shrike/internal/jobs/batch"
	"shrike/internal/scoring"
	"shrike/internal/severity"

	"github.com/charmbracelet/log"
)

const maxUploadBytes = 32 << 20

// buildEngine snapshots the active configuration into a fresh engine so a
// settings update between requests takes effect on the next batch.
func buildEngine() *batch.Engine {
	cfg := config.GetConfig()
	assembler := enrich.NewAssembler(intelProvider, severity.FromConfig(cfg.Severity))
	model := scoring.NewModel(cfg.Scoring)
	return batch.NewEngine(alertStore, assembler, model, int(cfg.Batch.Workers))
}

func ingestAlerts(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, "Invalid upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	format := strings.ToLower(r.FormValue("format"))
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	}

	alerts, err := ingest.FromReader(r.Context(), alertStore, file, format)
	if err != nil {
		log.Error("Error ingesting upload", "file", header.Filename, "error", err)
		writeError(w, "Failed to ingest file", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int{"ingested": len(alerts)})
}

func scoreAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	alerts, err := alertStore.GetAllAlerts(ctx)
	if err != nil {
		log.Error("Error loading alerts for scoring", "error", err)
		writeError(w, "Failed to load alerts", http.StatusInternalServerError)
		return
	}

	results, summary := buildEngine().ScoreBatch(ctx, alerts)

	json.NewEncoder(w).Encode(map[string]any{
		"summary": summary,
		"results": results,
	})
}

func exportAlerts(w http.ResponseWriter, r *http.Request) {
	var settings dto.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	var (
		alerts []domain.Alert
		err    error
	)
	if settings.Priority != "" {
		priority, ok := parsePriority(settings.Priority)
		if !ok {
			writeError(w, "Unknown priority", http.StatusBadRequest)
			return
		}
		alerts, err = alertStore.GetAlertsByPriority(ctx, priority)
	} else {
		alerts, err = alertStore.GetAllAlerts(ctx)
	}
	if err != nil {
		log.Error("Error loading alerts for export", "error", err)
		writeError(w, "Failed to load alerts", http.StatusInternalServerError)
		return
	}

	format := strings.ToLower(settings.OutputFormat)
	switch format {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="enriched_alerts.csv"`)
		err = export.WriteCSV(w, alerts)
	case "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="enriched_alerts.json"`)
		err = export.WriteJSON(w, alerts)
	default:
		writeError(w, fmt.Sprintf("Unknown output format %q", settings.OutputFormat), http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Error("Error writing export", "format", format, "error", err)
	}
}
