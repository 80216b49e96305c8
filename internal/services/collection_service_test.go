package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"pdfqa/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Setup
// ============================================================================

func setupTestCollectionService(t *testing.T) (*CollectionService, *memoryIndex, *MockPDFRepository) {
	index := newMemoryIndex()
	pdfRepo := new(MockPDFRepository)
	return NewCollectionService(index, pdfRepo, testLogger()), index, pdfRepo
}

// ============================================================================
// GetChunk Tests
// ============================================================================

func TestGetChunk_Found(t *testing.T) {
	service, index, _ := setupTestCollectionService(t)
	seedCollection(t, index, "pdf_abc", "zero", "one", "two")

	chunk, err := service.GetChunk(context.Background(), "pdf_abc", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, chunk.ChunkID)
	assert.Equal(t, "one", chunk.Text)
	assert.Equal(t, "pdf_abc", chunk.Metadata["pdf_id"])
	assert.Equal(t, 1, chunk.Metadata["chunk_id"])
}

func TestGetChunk_CollectionNotFound(t *testing.T) {
	service, _, _ := setupTestCollectionService(t)

	_, err := service.GetChunk(context.Background(), "pdf_missing", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCollectionNotFound))
	assert.False(t, errors.Is(err, ErrChunkNotFound))
}

func TestGetChunk_ChunkNotFound(t *testing.T) {
	service, index, _ := setupTestCollectionService(t)
	seedCollection(t, index, "pdf_abc", "zero", "one")

	for _, id := range []int{2, 999, -1} {
		_, err := service.GetChunk(context.Background(), "pdf_abc", id)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrChunkNotFound), "chunk %d", id)
	}
}

// ============================================================================
// ListPDFs Tests
// ============================================================================

func TestListPDFs_Empty(t *testing.T) {
	service, _, pdfRepo := setupTestCollectionService(t)

	pdfs, err := service.ListPDFs(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, pdfs)
	assert.Empty(t, pdfs)
	pdfRepo.AssertNotCalled(t, "List", mock.Anything)
}

func TestListPDFs_OnlyRegisteredCollections(t *testing.T) {
	service, index, pdfRepo := setupTestCollectionService(t)
	seedCollection(t, index, "pdf_old", "a")
	seedCollection(t, index, "pdf_new", "a", "b")
	seedCollection(t, index, "pdf_partial", "a", "b", "c")
	seedCollection(t, index, "scratch", "a")

	now := time.Now()
	pdfRepo.On("List", mock.Anything).Return([]*repositories.PDFRecord{
		{ID: "pdf_old", Filename: "old.pdf", ChunkCount: 1, CreatedAt: now.Add(-time.Hour)},
		{ID: "pdf_new", Filename: "new.pdf", ChunkCount: 2, Keywords: []string{"revenue", "forecast"}, CreatedAt: now},
		// registered but its collection is gone
		{ID: "pdf_gone", Filename: "gone.pdf", ChunkCount: 4, CreatedAt: now.Add(time.Minute)},
	}, nil)

	pdfs, err := service.ListPDFs(context.Background())
	require.NoError(t, err)
	require.Len(t, pdfs, 2)

	assert.Equal(t, "pdf_new", pdfs[0].ID)
	assert.Equal(t, "new.pdf", pdfs[0].Name)
	assert.Equal(t, 2, pdfs[0].Chunks)
	assert.Equal(t, []string{"revenue", "forecast"}, pdfs[0].Keywords)

	assert.Equal(t, "pdf_old", pdfs[1].ID)
	assert.Equal(t, "old.pdf", pdfs[1].Name)
	assert.Empty(t, pdfs[1].Keywords)

	pdfRepo.AssertExpectations(t)
}

func TestListPDFs_FailedUploadNotListed(t *testing.T) {
	extractor := new(MockExtractor)
	extractor.On("ExtractPages", mock.Anything, mock.Anything).Return([]string{tokenText(40)}, nil)
	embedder := &lengthEmbedder{
		failOn: 2,
		err:    NewServiceError("embed_batch", ErrEmbeddingService, errors.New("HTTP 503")),
	}
	index := newMemoryIndex()
	pdfRepo := new(MockPDFRepository)

	ingestion := newTestIngestion(t, extractor, embedder, index, pdfRepo, 10, 0)
	ingestion.SetBatchSize(1)

	_, err := ingestion.Ingest(context.Background(), "broken.pdf", []byte("%PDF"))
	require.True(t, errors.Is(err, ErrEmbeddingService))
	pdfRepo.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)

	// the partial collection exists in the index
	names, _ := index.ListCollections(context.Background())
	require.Len(t, names, 1)

	pdfRepo.On("List", mock.Anything).Return([]*repositories.PDFRecord{}, nil)
	service := NewCollectionService(index, pdfRepo, testLogger())

	pdfs, err := service.ListPDFs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pdfs)
}

func TestListPDFs_RegistryFailureFallsBack(t *testing.T) {
	service, index, pdfRepo := setupTestCollectionService(t)
	seedCollection(t, index, "pdf_b", "x")
	seedCollection(t, index, "pdf_a", "x", "y")
	pdfRepo.On("List", mock.Anything).Return(nil, errors.New("redis down"))

	pdfs, err := service.ListPDFs(context.Background())
	require.NoError(t, err)
	require.Len(t, pdfs, 2)
	assert.Equal(t, "pdf_a", pdfs[0].ID)
	assert.Equal(t, "pdf_a", pdfs[0].Name)
	assert.Equal(t, 2, pdfs[0].Chunks)
	assert.Equal(t, "pdf_b", pdfs[1].ID)
}

func TestListPDFs_NoRegistry(t *testing.T) {
	index := newMemoryIndex()
	seedCollection(t, index, "pdf_b", "x")
	seedCollection(t, index, "pdf_a", "x")
	service := NewCollectionService(index, nil, testLogger())

	pdfs, err := service.ListPDFs(context.Background())
	require.NoError(t, err)
	require.Len(t, pdfs, 2)
	assert.Equal(t, "pdf_a", pdfs[0].ID)
	assert.Equal(t, "pdf_b", pdfs[1].ID)
}
