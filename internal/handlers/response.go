package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/HammerMeetNail/ecobuddy/internal/logging"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes data before writing the status, so an unencodable
// value becomes a 500 instead of a success status with an empty body.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		logging.Error("Failed to encode JSON response", map[string]interface{}{
			"error": err.Error(),
		})
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{Error: "An unexpected error occurred."})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
