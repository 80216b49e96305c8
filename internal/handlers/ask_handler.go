package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"pdfqa/internal/models"
)

// Asker starts an answer stream for a question
type Asker interface {
	Ask(ctx context.Context, req models.AskRequest) (<-chan models.Event, error)
}

// AskHandler streams answers as newline-delimited JSON events
type AskHandler struct {
	asker  Asker
	logger *log.Logger
}

// NewAskHandler creates a new ask handler
func NewAskHandler(asker Asker, logger *log.Logger) *AskHandler {
	return &AskHandler{
		asker:  asker,
		logger: logger,
	}
}

// Ask handles question requests
// @Summary Ask a question
// @Description Stream an answer, optionally grounded in one PDF, as application/x-ndjson events (metadata, chunk, error)
// @Tags ask
// @Accept json
// @Produce application/x-ndjson
// @Param request body models.AskRequest true "Question"
// @Success 200 {object} models.Event
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /ask [post]
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Printf("Failed to decode request: %v", err)
		sendError(h.logger, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, err := h.asker.Ask(ctx, req)
	if err != nil {
		h.logger.Printf("Ask failed before streaming: %v", err)
		sendServiceError(h.logger, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	sent := 0
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			h.logger.Printf("Client went away after %d events: %v", sent, err)
			cancel()
			for range events {
			}
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		sent++
	}
	h.logger.Printf("Answer stream finished: events=%d", sent)
}
