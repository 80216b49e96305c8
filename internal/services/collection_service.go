package services

import (
	"context"
	"log"
	"sort"
	"strings"

	"pdfqa/internal/models"
	"pdfqa/internal/repositories"
)

// CollectionService serves read access to ingested PDFs: listing and chunk lookup
type CollectionService struct {
	vectorRepo repositories.VectorIndex
	pdfRepo    repositories.PDFRepository
	logger     *log.Logger
}

// NewCollectionService creates a new collection service. pdfRepo may be nil.
func NewCollectionService(
	vectorRepo repositories.VectorIndex,
	pdfRepo repositories.PDFRepository,
	logger *log.Logger,
) *CollectionService {
	return &CollectionService{
		vectorRepo: vectorRepo,
		pdfRepo:    pdfRepo,
		logger:     logger,
	}
}

// GetChunk returns the stored text and metadata of one chunk
func (s *CollectionService) GetChunk(ctx context.Context, collectionID string, chunkID int) (*models.ChunkResponse, error) {
	exists, err := s.vectorRepo.CollectionExists(ctx, collectionID)
	if err != nil {
		return nil, NewServiceError("get_chunk", ErrVectorIndex, err)
	}
	if !exists {
		return nil, NewServiceError("get_chunk", ErrCollectionNotFound, repositories.CollectionNotFoundError(collectionID))
	}
	if chunkID < 0 {
		return nil, NewServiceError("get_chunk", ErrChunkNotFound, repositories.ChunkNotFoundError(collectionID, chunkID))
	}

	points, err := s.vectorRepo.Retrieve(ctx, collectionID, []int{chunkID})
	if err != nil {
		return nil, NewServiceError("get_chunk", ErrVectorIndex, err)
	}
	if len(points) == 0 {
		return nil, NewServiceError("get_chunk", ErrChunkNotFound, repositories.ChunkNotFoundError(collectionID, chunkID))
	}

	return &models.ChunkResponse{
		ChunkID:  points[0].ID,
		Text:     points[0].Text(),
		Metadata: points[0].Metadata(),
	}, nil
}

// ListPDFs returns the ingested PDFs. With a registry only collections whose upload
// completed are listed, newest first; without one every pdf_ collection is listed by id.
func (s *CollectionService) ListPDFs(ctx context.Context) ([]models.PDFSummary, error) {
	names, err := s.vectorRepo.ListCollections(ctx)
	if err != nil {
		return nil, NewServiceError("list_pdfs", ErrVectorIndex, err)
	}

	ids := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, CollectionPrefix) {
			ids = append(ids, name)
		}
	}
	if len(ids) == 0 {
		return []models.PDFSummary{}, nil
	}

	if s.pdfRepo != nil {
		records, err := s.pdfRepo.List(ctx)
		if err == nil {
			return registeredPDFs(ids, records), nil
		}
		s.logger.Printf("⚠️  Registry lookup failed, listing collection ids: %v", err)
	}

	sort.Strings(ids)
	pdfs := make([]models.PDFSummary, 0, len(ids))
	for _, id := range ids {
		summary := models.PDFSummary{ID: id, Name: id}
		if count, err := s.vectorRepo.Count(ctx, id); err == nil {
			summary.Chunks = count
		} else {
			s.logger.Printf("[%s] Failed to count chunks: %v", id, err)
		}
		pdfs = append(pdfs, summary)
	}
	return pdfs, nil
}

// registeredPDFs keeps the records that still have a collection. A collection
// without a record is an upload that failed part way.
func registeredPDFs(ids []string, records []*repositories.PDFRecord) []models.PDFSummary {
	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}

	kept := make([]*repositories.PDFRecord, 0, len(records))
	for _, record := range records {
		if record != nil && present[record.ID] {
			kept = append(kept, record)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if !kept[i].CreatedAt.Equal(kept[j].CreatedAt) {
			return kept[i].CreatedAt.After(kept[j].CreatedAt)
		}
		return kept[i].ID < kept[j].ID
	})

	pdfs := make([]models.PDFSummary, len(kept))
	for i, record := range kept {
		pdfs[i] = models.PDFSummary{
			ID:       record.ID,
			Name:     record.Filename,
			Chunks:   record.ChunkCount,
			Keywords: record.Keywords,
		}
	}
	return pdfs
}
