package proxy

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Request validation errors.
var (
	ErrPromptRequired = errors.New("proxy: prompt is required")
	ErrBodyTooLarge   = errors.New("proxy: request body too large")
)

// Client-facing messages.
const (
	MsgPromptRequired = "Prompt is required"
	MsgBodyTooLarge   = "Request body too large"
	MsgServerBusy     = "Server is at maximum capacity, please retry later"
)

// clientMessage maps a validation error to the text returned in the 400 body.
func clientMessage(err error) string {
	if errors.Is(err, ErrBodyTooLarge) {
		return MsgBodyTooLarge
	}
	return MsgPromptRequired
}

// ErrorResponse is the body of every non-2xx reply except quota exhaustion.
type ErrorResponse struct {
	Error string `json:"error"`
}

// IsBodyTooLargeError checks if an error is from http.MaxBytesReader.
func IsBodyTooLargeError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

// WriteError writes {"error": message}.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
