package repositories

import (
	"context"
	"errors"

	"pdfqa/internal/db"
)

// QdrantVectorIndex implements VectorIndex using Qdrant
type QdrantVectorIndex struct {
	client *db.QdrantClient
}

// NewQdrantVectorIndex creates a new Qdrant-backed vector index
func NewQdrantVectorIndex(client *db.QdrantClient) *QdrantVectorIndex {
	return &QdrantVectorIndex{
		client: client,
	}
}

// CreateCollection creates the collection if it does not exist yet
func (r *QdrantVectorIndex) CreateCollection(ctx context.Context, name string, vectorSize int) error {
	exists, err := r.client.CollectionExists(ctx, name)
	if err != nil {
		return NewVectorRepositoryError("create_collection", err, "")
	}
	if exists {
		return nil
	}

	if err := r.client.CreateCollection(ctx, name, vectorSize, "Cosine"); err != nil {
		return NewVectorRepositoryError("create_collection", err, "failed to create collection "+name+": "+err.Error())
	}
	return nil
}

// CollectionExists reports whether the collection exists
func (r *QdrantVectorIndex) CollectionExists(ctx context.Context, name string) (bool, error) {
	exists, err := r.client.CollectionExists(ctx, name)
	if err != nil {
		return false, NewVectorRepositoryError("collection_exists", err, "")
	}
	return exists, nil
}

// ListCollections returns all collection names
func (r *QdrantVectorIndex) ListCollections(ctx context.Context) ([]string, error) {
	names, err := r.client.ListCollections(ctx)
	if err != nil {
		return nil, NewVectorRepositoryError("list_collections", err, "")
	}
	return names, nil
}

// Upsert writes points into a collection
func (r *QdrantVectorIndex) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qpoints := make([]db.QdrantPoint, len(points))
	for i, p := range points {
		qpoints[i] = db.QdrantPoint{
			ID:      uint64(p.ID),
			Vector:  p.Vector,
			Payload: p.Payload,
		}
	}

	if err := r.client.UpsertPoints(ctx, collection, qpoints); err != nil {
		if errors.Is(err, db.ErrQdrantCollectionNotFound) {
			return CollectionNotFoundError(collection)
		}
		return NewVectorRepositoryError("upsert", err, "")
	}
	return nil
}

// Query returns the k nearest points, most similar first
func (r *QdrantVectorIndex) Query(ctx context.Context, collection string, vector []float32, k int) ([]ScoredPoint, error) {
	hits, err := r.client.Search(ctx, collection, vector, k)
	if err != nil {
		if errors.Is(err, db.ErrQdrantCollectionNotFound) {
			return nil, CollectionNotFoundError(collection)
		}
		return nil, NewVectorRepositoryError("query", err, "")
	}

	results := make([]ScoredPoint, len(hits))
	for i, hit := range hits {
		results[i] = ScoredPoint{
			Point: Point{ID: int(hit.ID), Payload: hit.Payload},
			Score: hit.Score,
		}
	}
	return results, nil
}

// Retrieve fetches points by id; missing ids are absent from the result
func (r *QdrantVectorIndex) Retrieve(ctx context.Context, collection string, ids []int) ([]Point, error) {
	qids := make([]uint64, len(ids))
	for i, id := range ids {
		qids[i] = uint64(id)
	}

	found, err := r.client.RetrievePoints(ctx, collection, qids)
	if err != nil {
		if errors.Is(err, db.ErrQdrantCollectionNotFound) {
			return nil, CollectionNotFoundError(collection)
		}
		return nil, NewVectorRepositoryError("retrieve", err, "")
	}

	points := make([]Point, len(found))
	for i, p := range found {
		points[i] = Point{ID: int(p.ID), Payload: p.Payload}
	}
	return points, nil
}

// Count returns the number of points in a collection
func (r *QdrantVectorIndex) Count(ctx context.Context, collection string) (int, error) {
	n, err := r.client.CountPoints(ctx, collection)
	if err != nil {
		if errors.Is(err, db.ErrQdrantCollectionNotFound) {
			return 0, CollectionNotFoundError(collection)
		}
		return 0, NewVectorRepositoryError("count", err, "")
	}
	return n, nil
}

// Ping checks that Qdrant is reachable
func (r *QdrantVectorIndex) Ping(ctx context.Context) error {
	return r.client.Heartbeat(ctx)
}

// Close releases idle connections
func (r *QdrantVectorIndex) Close() error {
	r.client.Close()
	return nil
}
