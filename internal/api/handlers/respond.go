package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/isdelr/todo-be/internal/services"
	"github.com/rs/zerolog/log"
)

// MessageResponse is the body of every error and of plain acknowledgements.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

// writeServerError logs the cause and answers with a generic 500.
func writeServerError(w http.ResponseWriter, err error, msg string) {
	log.Error().Err(err).Msg(msg)
	writeMessage(w, http.StatusInternalServerError, "Server error")
}

// writeValidationError answers 400 when err is a *services.ValidationError.
func writeValidationError(w http.ResponseWriter, err error) bool {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		writeMessage(w, http.StatusBadRequest, verr.Message)
		return true
	}
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
