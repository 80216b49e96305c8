package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"pdfqa/internal/services"
)

// Response types

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func sendJSON(logger *log.Logger, w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Printf("Failed to encode JSON: %v", err)
	}
}

func sendError(logger *log.Logger, w http.ResponseWriter, status int, message string) {
	sendJSON(logger, w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	})
}

// sendServiceError maps a service error kind to its HTTP status.
// Client errors carry the underlying cause as the message; server errors carry the whole chain.
func sendServiceError(logger *log.Logger, w http.ResponseWriter, err error) {
	status := statusForError(err)
	message := err.Error()
	if status < http.StatusInternalServerError {
		var svcErr *services.ServiceError
		if errors.As(err, &svcErr) && svcErr.Err != nil {
			message = svcErr.Err.Error()
		}
	}
	sendError(logger, w, status, message)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrExtraction),
		errors.Is(err, services.ErrEmptyDocument):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrCollectionNotFound),
		errors.Is(err, services.ErrChunkNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
