package services

import (
	"context"
	"sort"
	"sync"

	"pdfqa/internal/models"
	"pdfqa/internal/repositories"

	"github.com/stretchr/testify/mock"
)

// ============================================================================
// Mocks
// ============================================================================

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ExtractPages(ctx context.Context, data []byte) ([]string, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

type MockPDFRepository struct {
	mock.Mock
}

func (m *MockPDFRepository) Register(ctx context.Context, record *repositories.PDFRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockPDFRepository) GetBatch(ctx context.Context, pdfIDs []string) (map[string]*repositories.PDFRecord, error) {
	args := m.Called(ctx, pdfIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*repositories.PDFRecord), args.Error(1)
}

func (m *MockPDFRepository) List(ctx context.Context) ([]*repositories.PDFRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repositories.PDFRecord), args.Error(1)
}

func (m *MockPDFRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPDFRepository) Close() error {
	return m.Called().Error(0)
}

// ============================================================================
// Fakes
// ============================================================================

// lengthEmbedder embeds a text as [rune count, 1] and records every batch it sees
type lengthEmbedder struct {
	mu      sync.Mutex
	singles []string
	batches [][]string
	failOn  int // 1-based batch number that fails, 0 = never
	err     error
}

func embedLength(text string) []float32 {
	return []float32{float32(len([]rune(text))), 1}
}

func (e *lengthEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.singles = append(e.singles, text)
	return embedLength(text), nil
}

func (e *lengthEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batches = append(e.batches, append([]string(nil), texts...))
	if e.failOn > 0 && len(e.batches) == e.failOn {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = embedLength(text)
	}
	return out, nil
}

// memoryIndex is an in-memory VectorIndex ranking by dot product
type memoryIndex struct {
	mu          sync.Mutex
	collections map[string]map[int]repositories.Point
	sizes       map[string]int
	upserts     [][]int
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{
		collections: map[string]map[int]repositories.Point{},
		sizes:       map[string]int{},
	}
}

func (m *memoryIndex) CreateCollection(ctx context.Context, name string, vectorSize int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		m.collections[name] = map[int]repositories.Point{}
		m.sizes[name] = vectorSize
	}
	return nil
}

func (m *memoryIndex) CollectionExists(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.collections[name]
	return ok, nil
}

func (m *memoryIndex) ListCollections(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *memoryIndex) Upsert(ctx context.Context, collection string, points []repositories.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[collection]
	if !ok {
		return repositories.CollectionNotFoundError(collection)
	}
	ids := make([]int, len(points))
	for i, p := range points {
		col[p.ID] = p
		ids[i] = p.ID
	}
	m.upserts = append(m.upserts, ids)
	return nil
}

func (m *memoryIndex) Query(ctx context.Context, collection string, vector []float32, k int) ([]repositories.ScoredPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[collection]
	if !ok {
		return nil, repositories.CollectionNotFoundError(collection)
	}

	hits := make([]repositories.ScoredPoint, 0, len(col))
	for _, p := range col {
		var score float32
		for i := range vector {
			if i < len(p.Vector) {
				score += vector[i] * p.Vector[i]
			}
		}
		hits = append(hits, repositories.ScoredPoint{Point: p, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *memoryIndex) Retrieve(ctx context.Context, collection string, ids []int) ([]repositories.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[collection]
	if !ok {
		return nil, repositories.CollectionNotFoundError(collection)
	}
	var out []repositories.Point
	for _, id := range ids {
		if p, ok := col[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryIndex) Count(ctx context.Context, collection string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[collection]
	if !ok {
		return 0, repositories.CollectionNotFoundError(collection)
	}
	return len(col), nil
}

func (m *memoryIndex) Ping(ctx context.Context) error { return nil }
func (m *memoryIndex) Close() error                   { return nil }

func (m *memoryIndex) pointIDs(collection string) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.collections[collection]))
	for id := range m.collections[collection] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// scriptedStreamer replays fixed deltas and records what it was asked
type scriptedStreamer struct {
	mu          sync.Mutex
	deltas      []Delta
	startErr    error
	gotQuestion string
	gotContext  string
	gotHistory  []models.ChatMessage
	calls       int
}

func (s *scriptedStreamer) Stream(ctx context.Context, question, contextText string, history []models.ChatMessage) (<-chan Delta, error) {
	s.mu.Lock()
	s.calls++
	s.gotQuestion = question
	s.gotContext = contextText
	s.gotHistory = history
	s.mu.Unlock()

	if s.startErr != nil {
		return nil, s.startErr
	}

	out := make(chan Delta)
	go func() {
		defer close(out)
		for _, d := range s.deltas {
			select {
			case out <- d:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func collectEvents(events <-chan models.Event) []models.Event {
	var out []models.Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}
