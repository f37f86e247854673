// Package export writes enriched alerts to report files. Pure I/O.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"shrike/internal/domain"
	"shrike/internal/scoring"

	"github.com/charmbracelet/log"
)

var csvHeader = []string{
	"id", "timestamp", "source_ip", "destination_ip", "alert_type",
	"risk_score", "priority", "message",
}

type exportedAlert struct {
	ID             uint64                   `json:"id"`
	Timestamp      string                   `json:"timestamp"`
	SourceIP       string                   `json:"source_ip"`
	DestinationIP  string                   `json:"destination_ip"`
	AlertType      string                   `json:"alert_type"`
	Message        string                   `json:"message"`
	RiskScore      float64                  `json:"risk_score"`
	Priority       domain.Priority          `json:"priority"`
	EnrichmentData *domain.EnrichmentRecord `json:"enrichment_data,omitempty"`
}

// WriteCSV renders alerts as the flat triage report.
func WriteCSV(w io.Writer, alerts []domain.Alert) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}

	for _, alert := range alerts {
		row := []string{
			strconv.FormatUint(alert.ID, 10),
			alert.Timestamp,
			alert.SourceIP,
			alert.DestinationIP,
			alert.AlertType,
			strconv.FormatFloat(scoring.Round2(alert.RiskScore), 'f', 2, 64),
			string(alert.Priority),
			alert.Message,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("export: write alert %d: %w", alert.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteJSON renders alerts including their enrichment records.
func WriteJSON(w io.Writer, alerts []domain.Alert) error {
	exported := make([]exportedAlert, 0, len(alerts))
	for _, alert := range alerts {
		exported = append(exported, exportedAlert{
			ID:             alert.ID,
			Timestamp:      alert.Timestamp,
			SourceIP:       alert.SourceIP,
			DestinationIP:  alert.DestinationIP,
			AlertType:      alert.AlertType,
			Message:        alert.Message,
			RiskScore:      scoring.Round2(alert.RiskScore),
			Priority:       alert.Priority,
			EnrichmentData: alert.EnrichmentData,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(exported); err != nil {
		return fmt.Errorf("export: encode alerts: %w", err)
	}
	return nil
}

func ToCSVFile(path string, alerts []domain.Alert) error {
	return toFile(path, alerts, WriteCSV)
}

func ToJSONFile(path string, alerts []domain.Alert) error {
	return toFile(path, alerts, WriteJSON)
}

func toFile(path string, alerts []domain.Alert, write func(io.Writer, []domain.Alert) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("export: create directory %q: %w", dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %q: %w", path, err)
	}
	defer file.Close()

	if err := write(file, alerts); err != nil {
		return err
	}

	log.Info("Exported alerts", "count", len(alerts), "file", path)
	return nil
}
