package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shrike/internal/auth"
	"shrike/internal/database"
	"shrike/internal/domain"
	"shrike/internal/intel"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const sampleCSV = `timestamp,source_ip,destination_ip,alert_type,message
2024-05-01T10:00:00Z,203.0.113.45,10.0.0.5,malware_detected,Credential theft attempt with possible breach
2024-05-01T10:05:00Z,10.0.0.9,10.0.0.5,failed_login,User typo
`

func setupServer(t *testing.T) *http.ServeMux {
	t.Helper()
	t.Setenv("JWT_SECRET", "route-test-secret")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	if err := db.AutoMigrate(&domain.Alert{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	provider, err := intel.DefaultStaticProvider("", intel.NewDenylist(nil))
	if err != nil {
		t.Fatalf("build static provider: %v", err)
	}

	Configure(database.NewAlertStore(db), provider)
	t.Cleanup(func() { Configure(nil, nil) })

	return newRouter()
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	return token
}

func doRequest(t *testing.T, router *http.ServeMux, req *http.Request, token string) *httptest.ResponseRecorder {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func uploadCSV(t *testing.T, router *http.ServeMux, token string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "alerts.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(sampleCSV)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := doRequest(t, router, req, token)

	if rec.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode ingest response: %v", err)
	}
	if resp["ingested"] != 2 {
		t.Fatalf("ingested = %d, want 2", resp["ingested"])
	}
}

func TestRoutesRequireAuth(t *testing.T) {
	router := setupServer(t)

	for _, path := range []string{"/api/alerts", "/api/stats"} {
		rec := doRequest(t, router, httptest.NewRequest(http.MethodGet, path, nil), "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: status = %d, want 401", path, rec.Code)
		}
	}

	rec := doRequest(t, router, httptest.NewRequest(http.MethodDelete, "/api/alerts", nil), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("DELETE /api/alerts without token: status = %d, want 401", rec.Code)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	router := setupServer(t)

	body := strings.NewReader(`{"password":"wrong"}`)
	rec := doRequest(t, router, httptest.NewRequest(http.MethodPost, "/login", body), "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("login status = %d, want 401", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	router := setupServer(t)

	rec := doRequest(t, router, httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}
}

func TestIngestScoreListExport(t *testing.T) {
	router := setupServer(t)
	token := adminToken(t)

	uploadCSV(t, router, token)

	rec := doRequest(t, router, httptest.NewRequest(http.MethodPost, "/api/score", nil), token)
	if rec.Code != http.StatusOK {
		t.Fatalf("score status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var scoreResp struct {
		Summary struct {
			Total  int `json:"total"`
			Scored int `json:"scored"`
			Failed int `json:"failed"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &scoreResp); err != nil {
		t.Fatalf("decode score response: %v", err)
	}
	if scoreResp.Summary.Total != 2 || scoreResp.Summary.Scored != 2 || scoreResp.Summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 2 scored of 2", scoreResp.Summary)
	}

	rec = doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/alerts", nil), token)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var alerts []domain.Alert
	if err := json.Unmarshal(rec.Body.Bytes(), &alerts); err != nil {
		t.Fatalf("decode alerts: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("listed %d alerts, want 2", len(alerts))
	}
	for _, alert := range alerts {
		if alert.RiskScore <= 0 {
			t.Errorf("alert %d has risk score %.2f after scoring", alert.ID, alert.RiskScore)
		}
	}

	rec = doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/alerts?priority=low", nil), token)
	if rec.Code != http.StatusOK {
		t.Fatalf("priority list status = %d", rec.Code)
	}
	var lowAlerts []domain.Alert
	if err := json.Unmarshal(rec.Body.Bytes(), &lowAlerts); err != nil {
		t.Fatalf("decode low alerts: %v", err)
	}
	for _, alert := range lowAlerts {
		if alert.Priority != domain.PriorityLow {
			t.Errorf("priority filter returned %s alert %d", alert.Priority, alert.ID)
		}
	}

	rec = doRequest(t, router, httptest.NewRequest(http.MethodGet, "/api/alerts?priority=urgent", nil), token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown priority status = %d, want 400", rec.Code)
	}

	body := strings.NewReader(`{"outputFormat":"json"}`)
	rec = doRequest(t, router, httptest.NewRequest(http.MethodPost, "/api/export", body), token)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	var exported []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &exported); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(exported) != 2 {
		t.Fatalf("exported %d rows, want 2", len(exported))
	}

	body = strings.NewReader(`{"outputFormat":"csv"}`)
	rec = doRequest(t, router, httptest.NewRequest(http.MethodPost, "/api/export", body), token)
	if rec.Code != http.StatusOK {
		t.Fatalf("csv export status = %d", rec.Code)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv export has %d lines, want header plus 2 rows", len(lines))
	}

	rec = doRequest(t, router, httptest.NewRequest(http.MethodDelete, "/api/alerts", nil), token)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	var cleared map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &cleared); err != nil {
		t.Fatalf("decode clear response: %v", err)
	}
	if cleared["deleted"] != 2 {
		t.Fatalf("deleted = %d, want 2", cleared["deleted"])
	}
}
