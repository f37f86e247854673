package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"shrike/internal/auth"
	"shrike/internal/database"
	"shrike/internal/intel"
	"shrike/internal/metrics"

	"github.com/charmbracelet/log"
)

var (
	alertStore    *database.AlertStore
	intelProvider intel.Provider
)

// Configure wires the handlers to their dependencies. Must run before
// OpenRoutes; split out so tests can install an in-memory store.
func Configure(store *database.AlertStore, provider intel.Provider) {
	alertStore = store
	intelProvider = provider
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func newRouter() *http.ServeMux {
	router := http.NewServeMux()
	router.HandleFunc("POST /login", loginUser)
	router.HandleFunc("GET /healthz", healthCheck)
	router.Handle("GET /metrics", metrics.Handler())

	router.Handle("GET /api/alerts", auth.RequireAuth(http.HandlerFunc(getAlerts)))
	router.Handle("DELETE /api/alerts", auth.IsAdmin(http.HandlerFunc(clearAlerts)))
	router.Handle("GET /api/stats", auth.RequireAuth(http.HandlerFunc(getDashboardStats)))

	router.Handle("POST /api/ingest", auth.RequireAuth(http.HandlerFunc(ingestAlerts)))
	router.Handle("POST /api/score", auth.RequireAuth(http.HandlerFunc(scoreAlerts)))
	router.Handle("POST /api/export", auth.RequireAuth(http.HandlerFunc(exportAlerts)))

	router.Handle("GET /global/settings", auth.IsAdmin(http.HandlerFunc(getGlobalSettings)))
	router.Handle("POST /global/settings", auth.IsAdmin(http.HandlerFunc(saveSettings)))

	return router
}

func OpenRoutes(port int) error {
	router := newRouter()

	log.Debug("Routes opened")

	server := http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: enableCORS(router),
	}

	log.Infof("Starting shrike backend on port :%d", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}
