package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shrike/internal/domain"
)

type captureStore struct {
	inserted []domain.Alert
}

func (s *captureStore) InsertAlerts(_ context.Context, alerts []domain.Alert) ([]domain.Alert, error) {
	for i := range alerts {
		alerts[i].ID = uint64(i + 1)
	}
	s.inserted = alerts
	return alerts, nil
}

func TestParseCSV(t *testing.T) {
	content := strings.Join([]string{
		"timestamp,source_ip,destination_ip,alert_type,message",
		`2026-08-01T10:00:00Z,198.51.100.89,10.0.0.5,data_exfiltration,"Detected credential theft, breach attempt"`,
		"2026-08-01T11:00:00Z,203.0.113.78,10.0.0.9,port_scan,",
	}, "\n")

	alerts, err := ParseCSV(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseCSV returned error: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("ParseCSV returned %d alerts, want 2", len(alerts))
	}

	first := alerts[0]
	if first.SourceIP != "198.51.100.89" || first.AlertType != "data_exfiltration" {
		t.Fatalf("unexpected first alert: %+v", first)
	}
	if first.Message != "Detected credential theft, breach attempt" {
		t.Fatalf("quoted message not preserved: %q", first.Message)
	}
	if alerts[1].Message != "" {
		t.Fatalf("empty message column should stay empty, got %q", alerts[1].Message)
	}
}

func TestParseCSVColumnOrderIndependent(t *testing.T) {
	content := strings.Join([]string{
		"message,alert_type,source_ip,destination_ip,timestamp",
		"probe,port_scan,1.2.3.4,5.6.7.8,2026-08-01T12:00:00Z",
	}, "\n")

	alerts, err := ParseCSV(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseCSV returned error: %v", err)
	}
	if alerts[0].SourceIP != "1.2.3.4" || alerts[0].Timestamp != "2026-08-01T12:00:00Z" {
		t.Fatalf("columns resolved by position instead of header: %+v", alerts[0])
	}
}

func TestParseCSVMissingColumns(t *testing.T) {
	content := strings.Join([]string{
		"timestamp,source_ip",
		"2026-08-01T10:00:00Z,9.9.9.9",
	}, "\n")

	alerts, err := ParseCSV(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseCSV returned error: %v", err)
	}
	if alerts[0].AlertType != "" || alerts[0].Message != "" {
		t.Fatalf("missing columns should default to empty: %+v", alerts[0])
	}
}

func TestParseCSVEmpty(t *testing.T) {
	alerts, err := ParseCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ParseCSV on empty input returned error: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("empty input yielded %d alerts", len(alerts))
	}
}

func TestParseJSON(t *testing.T) {
	content := `[
		{"timestamp":"2026-08-01T10:00:00Z","source_ip":"192.0.2.15","destination_ip":"10.0.0.2","alert_type":"malware_detected","message":"trojan payload"},
		{"timestamp":"2026-08-01T11:00:00Z","source_ip":"203.0.113.99"}
	]`

	alerts, err := ParseJSON(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseJSON returned error: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("ParseJSON returned %d alerts, want 2", len(alerts))
	}
	if alerts[0].AlertType != "malware_detected" {
		t.Fatalf("unexpected first alert: %+v", alerts[0])
	}
	if alerts[1].DestinationIP != "" || alerts[1].Message != "" {
		t.Fatalf("absent JSON fields should default to empty: %+v", alerts[1])
	}
}

func TestParseJSONRejectsNonArray(t *testing.T) {
	if _, err := ParseJSON(strings.NewReader(`{"timestamp":"x"}`)); err == nil {
		t.Fatal("expected error for non-array JSON, got nil")
	}
}

func TestFromCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.csv")
	content := "timestamp,source_ip,destination_ip,alert_type,message\n2026-08-01T10:00:00Z,1.1.1.1,2.2.2.2,failed_login,bad password\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store := &captureStore{}
	alerts, err := FromCSV(context.Background(), store, path)
	if err != nil {
		t.Fatalf("FromCSV returned error: %v", err)
	}
	if len(alerts) != 1 || alerts[0].ID == 0 {
		t.Fatalf("FromCSV did not persist alerts: %+v", alerts)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("store received %d alerts, want 1", len(store.inserted))
	}
}

func TestFromCSVMissingFile(t *testing.T) {
	if _, err := FromCSV(context.Background(), &captureStore{}, "does/not/exist.csv"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
