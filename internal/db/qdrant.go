package db

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrQdrantCollectionNotFound is returned when Qdrant answers 404 for a collection path
var ErrQdrantCollectionNotFound = errors.New("qdrant collection not found")

// QdrantClient wraps HTTP calls to the Qdrant REST API
type QdrantClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// QdrantConfig holds configuration for the Qdrant connection
type QdrantConfig struct {
	Host    string
	Port    int
	APIKey  string
	Timeout time.Duration
}

// QdrantPoint is a single point as sent to and returned by Qdrant
type QdrantPoint struct {
	ID      uint64                 `json:"id"`
	Vector  []float32              `json:"vector,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// QdrantScoredPoint is a search hit
type QdrantScoredPoint struct {
	ID      uint64                 `json:"id"`
	Score   float32                `json:"score"`
	Payload map[string]interface{} `json:"payload"`
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status interface{}     `json:"status"`
	Time   float64         `json:"time"`
}

// NewQdrantClient creates a new Qdrant REST client
func NewQdrantClient(config QdrantConfig) *QdrantClient {
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = 6333
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &QdrantClient{
		baseURL: fmt.Sprintf("http://%s:%d", config.Host, config.Port),
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// NewQdrantClientWithURL creates a client against an explicit base URL
func NewQdrantClientWithURL(baseURL string, apiKey string, timeout time.Duration) *QdrantClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &QdrantClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Heartbeat checks if Qdrant is alive
func (c *QdrantClient) Heartbeat(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("heartbeat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("heartbeat failed with status: %d", resp.StatusCode)
	}
	return nil
}

// CollectionExists reports whether a collection with the given name exists
func (c *QdrantClient) CollectionExists(ctx context.Context, name string) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/collections/"+url.PathEscape(name), nil)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("get collection failed (status %d): %s", resp.StatusCode, string(body))
	}
}

// CreateCollection creates a collection with a single unnamed vector of the given size
func (c *QdrantClient) CreateCollection(ctx context.Context, name string, vectorSize int, distance string) error {
	if distance == "" {
		distance = "Cosine"
	}
	payload := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     vectorSize,
			"distance": distance,
		},
	}
	return c.call(ctx, http.MethodPut, "/collections/"+url.PathEscape(name), payload, nil)
}

// ListCollections returns the names of all collections
func (c *QdrantClient) ListCollections(ctx context.Context) ([]string, error) {
	var result struct {
		Collections []struct {
			Name string `json:"name"`
		} `json:"collections"`
	}
	if err := c.call(ctx, http.MethodGet, "/collections", nil, &result); err != nil {
		return nil, err
	}

	names := make([]string, len(result.Collections))
	for i, col := range result.Collections {
		names[i] = col.Name
	}
	return names, nil
}

// UpsertPoints writes points into a collection and waits for them to be indexed
func (c *QdrantClient) UpsertPoints(ctx context.Context, collection string, points []QdrantPoint) error {
	payload := map[string]interface{}{
		"points": points,
	}
	path := "/collections/" + url.PathEscape(collection) + "/points?wait=true"
	return c.call(ctx, http.MethodPut, path, payload, nil)
}

// Search returns the limit nearest points to vector, most similar first
func (c *QdrantClient) Search(ctx context.Context, collection string, vector []float32, limit int) ([]QdrantScoredPoint, error) {
	payload := map[string]interface{}{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}

	var hits []QdrantScoredPoint
	path := "/collections/" + url.PathEscape(collection) + "/points/search"
	if err := c.call(ctx, http.MethodPost, path, payload, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// RetrievePoints fetches points by id; ids that do not exist are simply absent from the result
func (c *QdrantClient) RetrievePoints(ctx context.Context, collection string, ids []uint64) ([]QdrantPoint, error) {
	payload := map[string]interface{}{
		"ids":          ids,
		"with_payload": true,
		"with_vector":  false,
	}

	var points []QdrantPoint
	path := "/collections/" + url.PathEscape(collection) + "/points"
	if err := c.call(ctx, http.MethodPost, path, payload, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// CountPoints returns the exact number of points in a collection
func (c *QdrantClient) CountPoints(ctx context.Context, collection string) (int, error) {
	var result struct {
		Count int `json:"count"`
	}
	path := "/collections/" + url.PathEscape(collection) + "/points/count"
	if err := c.call(ctx, http.MethodPost, path, map[string]interface{}{"exact": true}, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

// Close closes the HTTP client connections
func (c *QdrantClient) Close() {
	c.httpClient.CloseIdleConnections()
}

// call sends a JSON request and decodes the "result" field of the Qdrant envelope into out
func (c *QdrantClient) call(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrQdrantCollectionNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s failed (status %d): %s", method, path, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}

	var envelope qdrantEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}

func (c *QdrantClient) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	return c.httpClient.Do(req)
}
