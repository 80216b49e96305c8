package repositories

import (
	"context"
	"strings"
	"time"
)

// PDFRepository defines the registry of ingested PDFs.
// The vector index stays authoritative; the registry only carries display metadata.
type PDFRepository interface {
	Register(ctx context.Context, record *PDFRecord) error
	GetBatch(ctx context.Context, pdfIDs []string) (map[string]*PDFRecord, error)
	List(ctx context.Context) ([]*PDFRecord, error)
	Ping(ctx context.Context) error
	Close() error
}

// PDFRecord represents one ingested PDF in the registry
type PDFRecord struct {
	ID         string    `json:"pdf_id"`
	Filename   string    `json:"filename"`
	ChunkCount int       `json:"chunk_count"`
	Keywords   []string  `json:"keywords,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PDFRepositoryError represents errors from the PDF registry
type PDFRepositoryError struct {
	Operation string
	PDFID     string
	Err       error
	Message   string
}

func (e *PDFRepositoryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	prefix := e.Operation
	if e.PDFID != "" {
		prefix += " (pdf: " + e.PDFID + ")"
	}
	if e.Err != nil {
		return prefix + ": " + e.Err.Error()
	}
	return prefix + ": unknown error"
}

func (e *PDFRepositoryError) Unwrap() error {
	return e.Err
}

// NewPDFRepositoryError creates a new registry error
func NewPDFRepositoryError(operation string, pdfID string, err error, message string) *PDFRepositoryError {
	return &PDFRepositoryError{
		Operation: operation,
		PDFID:     pdfID,
		Err:       err,
		Message:   message,
	}
}

func InvalidPDFRecordError(pdfID string, reason string) error {
	return NewPDFRepositoryError("validate_pdf", pdfID, nil, "invalid pdf record: "+reason)
}

// Validate checks the record before it is stored
func (p *PDFRecord) Validate() error {
	if p.ID == "" {
		return InvalidPDFRecordError("", "pdf ID is required")
	}
	if !strings.HasPrefix(p.ID, "pdf_") {
		return InvalidPDFRecordError(p.ID, "pdf ID must start with pdf_")
	}
	if p.Filename == "" {
		return InvalidPDFRecordError(p.ID, "filename is required")
	}
	if p.ChunkCount < 0 {
		return InvalidPDFRecordError(p.ID, "chunk count cannot be negative")
	}
	return nil
}
