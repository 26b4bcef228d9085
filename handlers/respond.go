// handlers/respond.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gewnthar/countries/backend/models"
)

const msgInternalError = "Internal server error"

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"Failed to marshal JSON response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, models.ErrorResponse{Error: message})
}

func respondWithErrorDetails(w http.ResponseWriter, code int, message, details string) {
	respondWithJSON(w, code, models.ErrorResponse{Error: message, Details: details})
}
