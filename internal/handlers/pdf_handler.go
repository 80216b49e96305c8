package handlers

import (
	"context"
	"io"
	"log"
	"net/http"
	"strconv"

	"pdfqa/internal/models"
	"pdfqa/internal/services"

	"github.com/gorilla/mux"
)

const (
	DefaultMaxUploadBytes = 50 << 20
	multipartMemory       = 32 << 20
)

// Ingester is the upload side of the ingestion pipeline
type Ingester interface {
	Ingest(ctx context.Context, filename string, data []byte) (*services.IngestResult, error)
}

// PDFCatalog serves listing and chunk lookup
type PDFCatalog interface {
	ListPDFs(ctx context.Context) ([]models.PDFSummary, error)
	GetChunk(ctx context.Context, collectionID string, chunkID int) (*models.ChunkResponse, error)
}

// PDFHandler handles uploads and read access to ingested PDFs
type PDFHandler struct {
	ingester       Ingester
	catalog        PDFCatalog
	maxUploadBytes int64
	logger         *log.Logger
}

// NewPDFHandler creates a new PDF handler
func NewPDFHandler(ingester Ingester, catalog PDFCatalog, maxUploadBytes int64, logger *log.Logger) *PDFHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &PDFHandler{
		ingester:       ingester,
		catalog:        catalog,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Upload handles PDF uploads
// @Summary Upload a PDF
// @Description Extract, chunk and embed a PDF into a new collection
// @Tags pdfs
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF file"
// @Success 200 {object} models.UploadResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /upload [post]
func (h *PDFHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.logger.Printf("Failed to parse form: %v", err)
		sendError(h.logger, w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.logger.Printf("No file uploaded: %v", err)
		sendError(h.logger, w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	h.logger.Printf("Upload request: filename=%s, size=%d", header.Filename, header.Size)

	if err := services.ValidateFilename(header.Filename); err != nil {
		sendServiceError(h.logger, w, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Printf("Failed to read upload: %v", err)
		sendError(h.logger, w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	result, err := h.ingester.Ingest(r.Context(), header.Filename, data)
	if err != nil {
		h.logger.Printf("Ingestion failed for %s: %v", header.Filename, err)
		sendServiceError(h.logger, w, err)
		return
	}

	sendJSON(h.logger, w, http.StatusOK, models.UploadResponse{
		PDFID:   result.CollectionID,
		Message: "PDF processed successfully",
		Stats:   models.UploadStats{Chunks: result.ChunkCount},
	})
}

// ListPDFs handles requests to list ingested PDFs
// @Summary List PDFs
// @Description List every ingested PDF with its display name and chunk count
// @Tags pdfs
// @Produce json
// @Success 200 {object} models.PDFListResponse
// @Failure 500 {object} ErrorResponse
// @Router /pdfs [get]
func (h *PDFHandler) ListPDFs(w http.ResponseWriter, r *http.Request) {
	pdfs, err := h.catalog.ListPDFs(r.Context())
	if err != nil {
		h.logger.Printf("Failed to list PDFs: %v", err)
		sendServiceError(h.logger, w, err)
		return
	}

	sendJSON(h.logger, w, http.StatusOK, models.PDFListResponse{PDFs: pdfs})
}

// GetChunk handles requests for one stored chunk
// @Summary Get chunk
// @Description Get the text and metadata of one chunk of a PDF
// @Tags pdfs
// @Produce json
// @Param pdf_id path string true "PDF id"
// @Param chunk_id path int true "Chunk id"
// @Success 200 {object} models.ChunkResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /pdfs/{pdf_id}/chunks/{chunk_id} [get]
func (h *PDFHandler) GetChunk(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	pdfID := vars["pdf_id"]

	chunkID, err := strconv.Atoi(vars["chunk_id"])
	if err != nil {
		sendError(h.logger, w, http.StatusBadRequest, "chunk_id must be an integer")
		return
	}

	chunk, err := h.catalog.GetChunk(r.Context(), pdfID, chunkID)
	if err != nil {
		h.logger.Printf("[%s] Failed to get chunk %d: %v", pdfID, chunkID, err)
		sendServiceError(h.logger, w, err)
		return
	}

	sendJSON(h.logger, w, http.StatusOK, chunk)
}
