package models

// UploadStats reports what ingestion produced
type UploadStats struct {
	Chunks int `json:"chunks"`
}

// UploadResponse is returned by POST /upload
type UploadResponse struct {
	PDFID   string      `json:"pdf_id"`
	Message string      `json:"message"`
	Stats   UploadStats `json:"stats"`
}

// PDFSummary is one entry of GET /pdfs
type PDFSummary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Chunks   int      `json:"chunks"`
	Keywords []string `json:"keywords,omitempty"`
}

// PDFListResponse is returned by GET /pdfs
type PDFListResponse struct {
	PDFs []PDFSummary `json:"pdfs"`
}

// ChunkResponse is returned by GET /pdfs/{pdf_id}/chunks/{chunk_id}
type ChunkResponse struct {
	ChunkID  int                    `json:"chunk_id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status string `json:"status"`
}
