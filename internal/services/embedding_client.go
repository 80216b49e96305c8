package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/sony/gobreaker"
)

// Embedder turns text into vectors. Implemented by EmbeddingClient; mocked in tests.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingClient handles communication with the remote embedding service
type EmbeddingClient struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	breaker    *gobreaker.CircuitBreaker
	logger     *log.Logger
}

// EmbeddingClientOptions configures an EmbeddingClient
type EmbeddingClientOptions struct {
	Timeout time.Duration
	Retries int
	Logger  *log.Logger
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type embedBatchRequest struct {
	Texts []string `json:"texts"`
}

type embedBatchResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewEmbeddingClient creates a client with default settings
func NewEmbeddingClient(baseURL string) *EmbeddingClient {
	return NewEmbeddingClientWithOptions(baseURL, EmbeddingClientOptions{Retries: 3})
}

// NewEmbeddingClientWithOptions creates a client with custom settings
func NewEmbeddingClientWithOptions(baseURL string, opts EmbeddingClientOptions) *EmbeddingClient {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "[EMBED] ", log.LstdFlags)
	}

	return &EmbeddingClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retries: opts.Retries,
		breaker: newBreaker("EmbeddingService", opts.Logger),
		logger:  opts.Logger,
	}
}

// Embed returns the embedding of a single text
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var result embedResponse
	if err := c.post(ctx, "/embed", embedRequest{Text: text}, &result); err != nil {
		return nil, NewServiceError("embed", ErrEmbeddingService, err)
	}
	if len(result.Embedding) == 0 {
		return nil, NewServiceError("embed", ErrEmbeddingService, fmt.Errorf("empty embedding in response"))
	}
	return result.Embedding, nil
}

// EmbedBatch returns one embedding per input text, in input order
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var result embedBatchResponse
	if err := c.post(ctx, "/embed/batch", embedBatchRequest{Texts: texts}, &result); err != nil {
		return nil, NewServiceError("embed_batch", ErrEmbeddingService, err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, NewServiceError("embed_batch", ErrEmbeddingService,
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings)))
	}
	return result.Embeddings, nil
}

// post runs one request through the circuit breaker and decodes a 2xx JSON body into result
func (c *EmbeddingClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, http.MethodPost, endpoint, body)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return fmt.Errorf("embedding service unavailable: %w", err)
		}
		return err
	}

	return parseResponse(out.(*http.Response), result)
}

// doRequest performs an HTTP request with retry logic.
// 5xx and transport errors are retried with quadratic backoff; 4xx is returned as is.
func (c *EmbeddingClient) doRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := c.makeRequest(ctx, method, endpoint, body)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		lastErr = err
		if resp != nil {
			bodyBytes, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(bodyBytes))
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Printf("%s %s attempt %d/%d failed: %v", method, endpoint, attempt+1, c.retries+1, lastErr)
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.retries, lastErr)
}

// makeRequest creates and executes an HTTP request
func (c *EmbeddingClient) makeRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

// parseResponse reads and parses JSON response
func parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
