package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apperrors "github.com/Sosajunior/crm-sub000/pkg/errors"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps an engine error onto its HTTP status. Client errors
// carry only their message; server errors add the cause under details.
func respondWithAppError(w http.ResponseWriter, err error, serverMessage string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.IsClientError() {
		status := http.StatusBadRequest
		if appErr.Type == apperrors.ErrorTypeUnauthorized {
			status = http.StatusUnauthorized
		}
		respondWithError(w, status, appErr.Message)
		return
	}

	status := http.StatusInternalServerError
	if apperrors.IsType(err, apperrors.ErrorTypeTimeout) {
		status = http.StatusGatewayTimeout
	}
	respondWithJSON(w, status, map[string]string{
		"error":   serverMessage,
		"details": err.Error(),
	})
}

func timestamp(now func() time.Time) string {
	return now().UTC().Format(time.RFC3339Nano)
}
