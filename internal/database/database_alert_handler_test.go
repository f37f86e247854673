package database

import (
	"context"
	"fmt"
	"testing"

	"shrike/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAlertTestStore(t *testing.T) *AlertStore {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}

	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		t.Fatalf("set busy timeout: %v", err)
	}

	if err := db.AutoMigrate(&domain.Alert{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	DB = db
	t.Cleanup(func() {
		DB = nil
	})

	return NewAlertStore(db)
}

func sampleAlerts() []domain.Alert {
	return []domain.Alert{
		{
			Timestamp:     "2026-08-01T10:00:00Z",
			SourceIP:      "198.51.100.89",
			DestinationIP: "10.0.0.5",
			AlertType:     "data_exfiltration",
			Message:       "Detected credential theft and breach attempt",
		},
		{
			Timestamp:     "2026-08-01T11:00:00Z",
			SourceIP:      "203.0.113.78",
			DestinationIP: "10.0.0.9",
			AlertType:     "port_scan",
			Message:       "Sequential SYN probes",
		},
	}
}

func TestInsertAndListAlerts(t *testing.T) {
	store := setupAlertTestStore(t)
	ctx := context.Background()

	inserted, err := store.InsertAlerts(ctx, sampleAlerts())
	if err != nil {
		t.Fatalf("InsertAlerts returned error: %v", err)
	}
	for _, alert := range inserted {
		if alert.ID == 0 {
			t.Fatal("InsertAlerts did not assign an ID")
		}
	}

	alerts, err := store.GetAllAlerts(ctx)
	if err != nil {
		t.Fatalf("GetAllAlerts returned error: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("GetAllAlerts returned %d alerts, want 2", len(alerts))
	}
	if alerts[0].Timestamp != "2026-08-01T11:00:00Z" {
		t.Fatalf("alerts not ordered by timestamp desc, first = %s", alerts[0].Timestamp)
	}
}

func TestUpdateAlertScoring(t *testing.T) {
	store := setupAlertTestStore(t)
	ctx := context.Background()

	inserted, err := store.InsertAlerts(ctx, sampleAlerts()[:1])
	if err != nil {
		t.Fatalf("InsertAlerts returned error: %v", err)
	}
	id := inserted[0].ID

	enrichment := domain.EnrichmentRecord{
		SourceReputation:  domain.ReputationInfo{Reputation: 92, IsVPN: true, ThreatTypes: []string{"phishing"}},
		SourceGeo:         domain.GeoInfo{Country: "US", City: "New York", ASN: "AS8452"},
		DestinationGeo:    domain.UnknownGeoInfo(),
		AlertTypeSeverity: 90,
	}

	if err := store.UpdateAlertScoring(ctx, id, 72.1, domain.PriorityMedium, enrichment); err != nil {
		t.Fatalf("UpdateAlertScoring returned error: %v", err)
	}

	alerts, err := store.GetAlertsByPriority(ctx, domain.PriorityMedium)
	if err != nil {
		t.Fatalf("GetAlertsByPriority returned error: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 medium alert, got %d", len(alerts))
	}

	got := alerts[0]
	if got.RiskScore != 72.1 {
		t.Fatalf("risk score = %v, want 72.1", got.RiskScore)
	}
	if got.EnrichmentData == nil || got.EnrichmentData.AlertTypeSeverity != 90 {
		t.Fatalf("enrichment not persisted: %+v", got.EnrichmentData)
	}
	if got.SourceIP != "198.51.100.89" {
		t.Fatalf("raw fields must not change on scoring update, source ip = %s", got.SourceIP)
	}

	// Re-scoring overwrites the previous result instead of creating a row.
	if err := store.UpdateAlertScoring(ctx, id, 80, domain.PriorityHigh, enrichment); err != nil {
		t.Fatalf("second UpdateAlertScoring returned error: %v", err)
	}
	all, err := store.GetAllAlerts(ctx)
	if err != nil {
		t.Fatalf("GetAllAlerts returned error: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("re-scoring created extra rows: %d", len(all))
	}
	if all[0].Priority != domain.PriorityHigh {
		t.Fatalf("priority after re-score = %s, want High", all[0].Priority)
	}
}

func TestUpdateAlertScoringMissingID(t *testing.T) {
	store := setupAlertTestStore(t)

	err := store.UpdateAlertScoring(context.Background(), 4242, 10, domain.PriorityLow, domain.EnrichmentRecord{})
	if err == nil {
		t.Fatal("expected error updating a missing alert, got nil")
	}
}

func TestClearAlertsAndStats(t *testing.T) {
	store := setupAlertTestStore(t)
	ctx := context.Background()

	inserted, err := store.InsertAlerts(ctx, sampleAlerts())
	if err != nil {
		t.Fatalf("InsertAlerts returned error: %v", err)
	}

	if err := store.UpdateAlertScoring(ctx, inserted[0].ID, 80, domain.PriorityHigh, domain.EnrichmentRecord{}); err != nil {
		t.Fatalf("UpdateAlertScoring returned error: %v", err)
	}
	if err := store.UpdateAlertScoring(ctx, inserted[1].ID, 40, domain.PriorityLow, domain.EnrichmentRecord{}); err != nil {
		t.Fatalf("UpdateAlertScoring returned error: %v", err)
	}

	counts, err := store.CountAlertsByPriority(ctx)
	if err != nil {
		t.Fatalf("CountAlertsByPriority returned error: %v", err)
	}
	if counts[domain.PriorityHigh] != 1 || counts[domain.PriorityLow] != 1 {
		t.Fatalf("unexpected priority counts: %+v", counts)
	}

	avg, err := store.AverageRiskScore(ctx)
	if err != nil {
		t.Fatalf("AverageRiskScore returned error: %v", err)
	}
	if avg != 60 {
		t.Fatalf("average risk score = %v, want 60", avg)
	}

	removed, err := store.ClearAlerts(ctx)
	if err != nil {
		t.Fatalf("ClearAlerts returned error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("ClearAlerts removed %d rows, want 2", removed)
	}

	avg, err = store.AverageRiskScore(ctx)
	if err != nil {
		t.Fatalf("AverageRiskScore on empty store returned error: %v", err)
	}
	if avg != 0 {
		t.Fatalf("average on empty store = %v, want 0", avg)
	}
}
