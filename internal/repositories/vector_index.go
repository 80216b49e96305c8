package repositories

import (
	"context"
	"errors"
	"fmt"
)

// VectorIndex defines the operations the pipelines need from the vector database.
// One collection holds the chunks of exactly one PDF.
type VectorIndex interface {
	// Collection Management
	CreateCollection(ctx context.Context, name string, vectorSize int) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)

	// Point Operations
	Upsert(ctx context.Context, collection string, points []Point) error
	Query(ctx context.Context, collection string, vector []float32, k int) ([]ScoredPoint, error)
	Retrieve(ctx context.Context, collection string, ids []int) ([]Point, error)
	Count(ctx context.Context, collection string) (int, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// Point is a stored chunk: integer id, embedding and payload
type Point struct {
	ID      int                    `json:"id"`
	Vector  []float32              `json:"vector,omitempty"`
	Payload map[string]interface{} `json:"payload"`
}

// ScoredPoint is a query hit, most similar first
type ScoredPoint struct {
	Point
	Score float32 `json:"score"`
}

// Text returns the "text" payload field, or "" when absent
func (p Point) Text() string {
	text, _ := p.Payload["text"].(string)
	return text
}

// Metadata returns the "metadata" payload field as a map
func (p Point) Metadata() map[string]interface{} {
	meta, _ := p.Payload["metadata"].(map[string]interface{})
	if meta == nil {
		return map[string]interface{}{}
	}
	return meta
}

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrChunkNotFound      = errors.New("chunk not found")
)

// VectorRepositoryError represents errors from the vector index
type VectorRepositoryError struct {
	Operation string
	Err       error
	Message   string
}

func (e *VectorRepositoryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Operation + ": " + e.Err.Error()
	}
	return e.Operation + ": unknown error"
}

func (e *VectorRepositoryError) Unwrap() error {
	return e.Err
}

// NewVectorRepositoryError creates a new vector repository error
func NewVectorRepositoryError(operation string, err error, message string) *VectorRepositoryError {
	return &VectorRepositoryError{
		Operation: operation,
		Err:       err,
		Message:   message,
	}
}

// Common error constructors
func CollectionNotFoundError(name string) error {
	return NewVectorRepositoryError(
		"get_collection",
		ErrCollectionNotFound,
		"collection not found: "+name,
	)
}

func ChunkNotFoundError(collection string, chunkID int) error {
	return NewVectorRepositoryError(
		"get_chunk",
		ErrChunkNotFound,
		fmt.Sprintf("chunk %d not found in %s", chunkID, collection),
	)
}
