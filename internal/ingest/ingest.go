// Package ingest reads raw alerts from batch files. Pure I/O: no
// validation beyond file structure, no scoring decisions. Rows keep
// whatever text the file carried; missing fields become empty strings.
package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"shrike/internal/domain"
	"shrike/internal/metrics"

	"github.com/charmbracelet/log"
)

// Store is the slice of the record store ingestion needs.
type Store interface {
	InsertAlerts(ctx context.Context, alerts []domain.Alert) ([]domain.Alert, error)
}

type rawAlert struct {
	Timestamp     string `json:"timestamp"`
	SourceIP      string `json:"source_ip"`
	DestinationIP string `json:"destination_ip"`
	AlertType     string `json:"alert_type"`
	Message       string `json:"message"`
}

func (r rawAlert) toDomain() domain.Alert {
	return domain.Alert{
		Timestamp:     r.Timestamp,
		SourceIP:      r.SourceIP,
		DestinationIP: r.DestinationIP,
		AlertType:     r.AlertType,
		Message:       r.Message,
	}
}

// FromCSV ingests a CSV file with a header row naming the expected columns
// and persists the parsed alerts.
func FromCSV(ctx context.Context, store Store, path string) ([]domain.Alert, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %q: %w", path, err)
	}
	defer file.Close()

	alerts, err := ParseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("ingest: parse %q: %w", path, err)
	}

	return insert(ctx, store, alerts, path, "csv")
}

// FromJSON ingests a JSON file containing an array of alert objects.
func FromJSON(ctx context.Context, store Store, path string) ([]domain.Alert, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %q: %w", path, err)
	}
	defer file.Close()

	alerts, err := ParseJSON(file)
	if err != nil {
		return nil, fmt.Errorf("ingest: parse %q: %w", path, err)
	}

	return insert(ctx, store, alerts, path, "json")
}

// FromReader ingests alerts from an already-open stream, e.g. an HTTP
// upload. Format is "csv" or "json".
func FromReader(ctx context.Context, store Store, r io.Reader, format string) ([]domain.Alert, error) {
	var (
		alerts []domain.Alert
		err    error
	)

	switch format {
	case "csv":
		alerts, err = ParseCSV(r)
	case "json":
		alerts, err = ParseJSON(r)
	default:
		return nil, fmt.Errorf("ingest: unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: parse upload: %w", err)
	}

	return insert(ctx, store, alerts, "upload", format)
}

func insert(ctx context.Context, store Store, alerts []domain.Alert, path, format string) ([]domain.Alert, error) {
	inserted, err := store.InsertAlerts(ctx, alerts)
	if err != nil {
		return nil, fmt.Errorf("ingest: persist alerts from %q: %w", path, err)
	}

	metrics.AlertsIngested.Add(float64(len(inserted)))
	log.Info("Ingested alerts", "count", len(inserted), "format", format, "file", path)
	return inserted, nil
}

// ParseCSV reads alerts from CSV content. Columns are resolved by header
// name, so column order does not matter; absent columns yield empty fields.
func ParseCSV(r io.Reader) ([]domain.Alert, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}

	field := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var alerts []domain.Alert
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		alerts = append(alerts, rawAlert{
			Timestamp:     field(row, "timestamp"),
			SourceIP:      field(row, "source_ip"),
			DestinationIP: field(row, "destination_ip"),
			AlertType:     field(row, "alert_type"),
			Message:       field(row, "message"),
		}.toDomain())
	}

	return alerts, nil
}

// ParseJSON reads alerts from a JSON array of alert objects.
func ParseJSON(r io.Reader) ([]domain.Alert, error) {
	var rows []rawAlert
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode alert list: %w", err)
	}

	alerts := make([]domain.Alert, 0, len(rows))
	for _, row := range rows {
		alerts = append(alerts, row.toDomain())
	}
	return alerts, nil
}
