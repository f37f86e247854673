package server

import (
	"encoding/json"
	"net/http"

	"shrike/internal/api/dto"
	"shrike/internal/auth"
)

func loginUser(w http.ResponseWriter, r *http.Request) {
	var credentials dto.Credentials
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if !auth.VerifyAdminPassword(credentials.Password) {
		writeError(w, "Invalid password", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateToken("admin")
	if err != nil {
		writeError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token, "role": "admin"})
}
