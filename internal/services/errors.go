package services

import (
	"errors"

	"pdfqa/internal/repositories"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrExtraction        = errors.New("pdf text extraction failed")
	ErrEmptyDocument     = errors.New("document contains no extractable text")
	ErrEmbeddingService  = errors.New("embedding service failed")
	ErrCompletionService = errors.New("completion service failed")
	ErrVectorIndex       = errors.New("vector index failed")

	ErrCollectionNotFound = repositories.ErrCollectionNotFound
	ErrChunkNotFound      = repositories.ErrChunkNotFound
)

// ServiceError wraps a cause with the operation that failed and its error kind.
// errors.Is matches both the Kind sentinel and anything in the wrapped chain.
type ServiceError struct {
	Op   string
	Kind error
	Err  error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return e.Kind == target
}

// NewServiceError creates a new service error
func NewServiceError(op string, kind error, err error) *ServiceError {
	return &ServiceError{Op: op, Kind: kind, Err: err}
}
