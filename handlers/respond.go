package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"chopfinder/restaurants"
)

// User-facing failure texts. Backend causes are logged, never returned.
const (
	LoadFailedMessage   = "Couldn't load restaurants. Please try again."
	SearchFailedMessage = "Search failed. Please try again."
)

const DeviceHeader = "X-Device-ID"

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// userMessage maps a pipeline error to the text shown to users.
func userMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, restaurants.ErrSearchFailed):
		return SearchFailedMessage
	default:
		return LoadFailedMessage
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any, logger *log.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Debug("invalid request body", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
