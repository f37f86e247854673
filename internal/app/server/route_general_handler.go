package server

import (
	"encoding/json"
	"net/http"

	"shrike/internal/config"

	"github.com/charmbracelet/log"
)

func healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func getGlobalSettings(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(config.GetConfig())
}

func saveSettings(w http.ResponseWriter, r *http.Request) {
	var newConfig config.Config
	if err := json.NewDecoder(r.Body).Decode(&newConfig); err != nil {
		log.Error("Error decoding request body:", err)
		writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := config.SetConfig(newConfig); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "Configuration updated successfully"})
}
