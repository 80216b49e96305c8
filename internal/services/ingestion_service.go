package services

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"pdfqa/internal/repositories"

	"github.com/google/uuid"
)

const (
	DefaultEmbedBatchSize = 100
	CollectionPrefix      = "pdf_"

	registryKeywords = 10
)

// IngestResult is what a successful ingestion reports
type IngestResult struct {
	CollectionID string `json:"collection_id"`
	ChunkCount   int    `json:"chunk_count"`
}

// IngestionService turns an uploaded PDF into a searchable collection
type IngestionService struct {
	extractor  TextExtractor
	chunker    Chunker
	embedder   Embedder
	vectorRepo repositories.VectorIndex
	pdfRepo    repositories.PDFRepository
	keywords   *KeywordExtractor
	batchSize  int
	logger     *log.Logger
}

// NewIngestionService creates a new ingestion service. pdfRepo may be nil when no registry is configured.
func NewIngestionService(
	extractor TextExtractor,
	chunker Chunker,
	embedder Embedder,
	vectorRepo repositories.VectorIndex,
	pdfRepo repositories.PDFRepository,
	logger *log.Logger,
) *IngestionService {
	return &IngestionService{
		extractor:  extractor,
		chunker:    chunker,
		embedder:   embedder,
		vectorRepo: vectorRepo,
		pdfRepo:    pdfRepo,
		keywords:   NewKeywordExtractor(),
		batchSize:  DefaultEmbedBatchSize,
		logger:     logger,
	}
}

// SetBatchSize changes how many chunks are embedded per request; non-positive values are ignored
func (s *IngestionService) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// ValidateFilename accepts only names ending in .pdf, case-insensitively
func ValidateFilename(filename string) error {
	if filename == "" {
		return NewServiceError("validate", ErrValidation, fmt.Errorf("filename is required"))
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return NewServiceError("validate", ErrValidation, fmt.Errorf("Invalid file, only PDF file is supported!"))
	}
	return nil
}

// NewCollectionID returns pdf_ followed by 32 lowercase hex characters
func NewCollectionID() string {
	return CollectionPrefix + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Ingest extracts, chunks, embeds and indexes one PDF
func (s *IngestionService) Ingest(ctx context.Context, filename string, data []byte) (*IngestResult, error) {
	startTime := time.Now()

	if err := ValidateFilename(filename); err != nil {
		s.logger.Printf("Rejected upload %q: %v", filename, err)
		return nil, err
	}

	collectionID := NewCollectionID()
	s.logger.Printf("Ingesting document: %s (file: %s, bytes: %d)", collectionID, filename, len(data))

	// Step 1: Extract text
	s.logger.Printf("[%s] Step 1/5: Extracting text", collectionID)
	pages, err := s.extractor.ExtractPages(ctx, data)
	if err != nil {
		return nil, err
	}
	text := strings.Join(pages, "\n")
	s.logger.Printf("[%s] Extracted %d pages, %d chars", collectionID, len(pages), len(text))

	// Step 2: Chunk text
	s.logger.Printf("[%s] Step 2/5: Chunking text", collectionID)
	chunks := s.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, NewServiceError("ingest", ErrEmptyDocument, fmt.Errorf("%s has no extractable text", filename))
	}
	s.logger.Printf("[%s] Created %d chunks", collectionID, len(chunks))

	// Step 3: Probe the vector size with the first chunk
	s.logger.Printf("[%s] Step 3/5: Embedding first chunk", collectionID)
	firstVector, err := s.embedder.Embed(ctx, chunks[0])
	if err != nil {
		return nil, err
	}
	vectorSize := len(firstVector)

	// Step 4: Create collection
	s.logger.Printf("[%s] Step 4/5: Creating collection (vector_size=%d)", collectionID, vectorSize)
	if err := s.vectorRepo.CreateCollection(ctx, collectionID, vectorSize); err != nil {
		return nil, NewServiceError("create_collection", ErrVectorIndex, err)
	}

	// Step 5: Store chunks
	s.logger.Printf("[%s] Step 5/5: Storing chunks in vector DB", collectionID)
	if err := s.storeChunks(ctx, collectionID, chunks, firstVector); err != nil {
		return nil, err
	}

	s.registerPDF(ctx, collectionID, filename, text, len(chunks))

	s.logger.Printf("Document ingested successfully: pdf_id=%s, chunks=%d, time_ms=%d",
		collectionID, len(chunks), time.Since(startTime).Milliseconds())

	return &IngestResult{
		CollectionID: collectionID,
		ChunkCount:   len(chunks),
	}, nil
}

// storeChunks upserts point 0 with the probed vector, then the rest in sequential batches
func (s *IngestionService) storeChunks(ctx context.Context, collectionID string, chunks []string, firstVector []float32) error {
	first := []repositories.Point{chunkPoint(collectionID, 0, chunks[0], firstVector)}
	if err := s.vectorRepo.Upsert(ctx, collectionID, first); err != nil {
		return NewServiceError("upsert", ErrVectorIndex, err)
	}

	for start := 1; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		vectors, err := s.embedder.EmbedBatch(ctx, batch)
		if err != nil {
			return err
		}
		if len(vectors) != len(batch) {
			return NewServiceError("embed_batch", ErrEmbeddingService,
				fmt.Errorf("expected %d embeddings, got %d", len(batch), len(vectors)))
		}

		points := make([]repositories.Point, len(batch))
		for i, text := range batch {
			points[i] = chunkPoint(collectionID, start+i, text, vectors[i])
		}

		if err := s.vectorRepo.Upsert(ctx, collectionID, points); err != nil {
			return NewServiceError("upsert", ErrVectorIndex, err)
		}
		s.logger.Printf("[%s] Stored chunks %d-%d", collectionID, start, end-1)
	}

	return nil
}

// registerPDF marks the upload complete and records its display metadata.
// A failed write leaves the collection out of registry-backed listings.
func (s *IngestionService) registerPDF(ctx context.Context, collectionID, filename, text string, chunkCount int) {
	if s.pdfRepo == nil {
		return
	}

	keywords, err := s.keywords.ExtractKeywordStrings(text, registryKeywords)
	if err != nil {
		s.logger.Printf("[%s] Keyword extraction failed (non-critical): %v", collectionID, err)
	}

	record := &repositories.PDFRecord{
		ID:         collectionID,
		Filename:   filepath.Base(filename),
		ChunkCount: chunkCount,
		Keywords:   keywords,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.pdfRepo.Register(ctx, record); err != nil {
		s.logger.Printf("[%s] ⚠️  Failed to register PDF (non-critical): %v", collectionID, err)
	}
}

func chunkPoint(collectionID string, chunkID int, text string, vector []float32) repositories.Point {
	return repositories.Point{
		ID:     chunkID,
		Vector: vector,
		Payload: map[string]interface{}{
			"text": text,
			"metadata": map[string]interface{}{
				"pdf_id":   collectionID,
				"chunk_id": chunkID,
			},
		},
	}
}
