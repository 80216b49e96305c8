package repositories

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis keys
	pdfKeyPrefix = "pdf:"
	pdfIndexKey  = "pdfs:index"
)

// RedisPDFRepository implements PDFRepository using Redis
type RedisPDFRepository struct {
	client *redis.Client
}

// NewRedisPDFRepository creates a new Redis-based PDF registry
func NewRedisPDFRepository(client *redis.Client) *RedisPDFRepository {
	return &RedisPDFRepository{
		client: client,
	}
}

// Register stores or replaces a PDF record
func (r *RedisPDFRepository) Register(ctx context.Context, record *PDFRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return NewPDFRepositoryError("register", record.ID, err, "failed to marshal record")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, pdfKeyPrefix+record.ID, recordJSON, 0)
	pipe.SAdd(ctx, pdfIndexKey, record.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return NewPDFRepositoryError("register", record.ID, err, "failed to execute transaction")
	}
	return nil
}

// GetBatch retrieves the records that exist for the given ids, keyed by id
func (r *RedisPDFRepository) GetBatch(ctx context.Context, pdfIDs []string) (map[string]*PDFRecord, error) {
	records := make(map[string]*PDFRecord, len(pdfIDs))
	if len(pdfIDs) == 0 {
		return records, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(pdfIDs))
	for i, id := range pdfIDs {
		cmds[i] = pipe.Get(ctx, pdfKeyPrefix+id)
	}

	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, NewPDFRepositoryError("get_batch", "", err, "failed to execute batch get")
	}

	for i, cmd := range cmds {
		recordJSON, err := cmd.Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, NewPDFRepositoryError("get_batch", pdfIDs[i], err, "")
		}

		var record PDFRecord
		if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
			return nil, NewPDFRepositoryError("get_batch", pdfIDs[i], err, "failed to unmarshal record")
		}
		records[pdfIDs[i]] = &record
	}
	return records, nil
}

// List returns all registered PDFs, newest first
func (r *RedisPDFRepository) List(ctx context.Context) ([]*PDFRecord, error) {
	ids, err := r.client.SMembers(ctx, pdfIndexKey).Result()
	if err != nil {
		return nil, NewPDFRepositoryError("list", "", err, "")
	}

	byID, err := r.GetBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	records := make([]*PDFRecord, 0, len(byID))
	for _, record := range byID {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Ping checks Redis connectivity
func (r *RedisPDFRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisPDFRepository) Close() error {
	return r.client.Close()
}
