package routes

import (
	"net/http"

	"pdfqa/internal/handlers"

	"github.com/gorilla/mux"
)

// Handlers groups everything the router serves
type Handlers struct {
	Health http.HandlerFunc
	PDF    *handlers.PDFHandler
	Ask    *handlers.AskHandler

	// Limit wraps the expensive endpoints; nil disables limiting
	Limit func(http.Handler) http.Handler
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(r *mux.Router, h *Handlers) {
	limit := h.Limit
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}

	// Health endpoints
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	// Ingestion and question answering
	r.Handle("/upload", limit(http.HandlerFunc(h.PDF.Upload))).Methods(http.MethodPost)
	r.Handle("/ask", limit(http.HandlerFunc(h.Ask.Ask))).Methods(http.MethodPost)

	// Read access to ingested PDFs
	r.HandleFunc("/pdfs", h.PDF.ListPDFs).Methods(http.MethodGet)
	r.HandleFunc("/pdfs/{pdf_id}/chunks/{chunk_id}", h.PDF.GetChunk).Methods(http.MethodGet)
}
