package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"pdfqa/internal/models"

	"github.com/sony/gobreaker"
)

const (
	DefaultLLMBaseURL = "http://localhost:1234"
	DefaultModel      = "llama-3.2-3b-instruct"

	maxHistoryTurns = 10
)

const (
	groundedInstructions = "You are a helpful assistant that answers questions about a PDF document. " +
		"Answer using only the provided context. If the context does not contain the answer, say that you " +
		"could not find it in the document instead of guessing. Keep answers concise and quote the document " +
		"where it helps."

	ungroundedInstructions = "You are a helpful assistant. Answer the question from your general knowledge. " +
		"Keep answers concise and say so when you are not sure."
)

var stopMarkers = []string{"<|eot_id|>", "<|im_end|>", "<|end_of_turn|>"}

// Delta is one piece of streamed answer text. A Delta with Err set is always the last one.
type Delta struct {
	Text string
	Err  error
}

// Streamer produces answer deltas for a question. Implemented by CompletionStreamer; mocked in tests.
type Streamer interface {
	Stream(ctx context.Context, question, contextText string, history []models.ChatMessage) (<-chan Delta, error)
}

// CompletionRequest is the OpenAI-compatible chat completion body LM Studio accepts
type CompletionRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	Stream      bool                 `json:"stream"`
	Stop        []string             `json:"stop"`
}

// completionFrame covers the delta shapes emitted by OpenAI-compatible servers
type completionFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Text string `json:"text"`
	} `json:"choices"`
	Content string `json:"content"`
}

// CompletionStreamer handles streaming chat completions from LM Studio
type CompletionStreamer struct {
	baseURL    string
	model      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *log.Logger
}

// NewCompletionStreamer creates a new streamer; empty arguments fall back to the LM Studio defaults
func NewCompletionStreamer(baseURL, model string, logger *log.Logger) *CompletionStreamer {
	if baseURL == "" {
		baseURL = DefaultLLMBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[LLM] ", log.LstdFlags)
	}

	return &CompletionStreamer{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		// the request context bounds generation time
		httpClient: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 120 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		breaker: newBreaker("CompletionService", logger),
		logger:  logger,
	}
}

// BuildMessages assembles the system prompt, prior turns and the question
func BuildMessages(question, contextText string, history []models.ChatMessage) []models.ChatMessage {
	system := ungroundedInstructions
	if contextText != "" {
		system = groundedInstructions + "\n\nContext:\n" + contextText
	}

	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	messages := make([]models.ChatMessage, 0, len(history)+2)
	messages = append(messages, models.ChatMessage{Role: "system", Content: system})
	for _, turn := range history {
		if turn.Role != "user" && turn.Role != "assistant" {
			continue
		}
		messages = append(messages, turn)
	}
	messages = append(messages, models.ChatMessage{Role: "user", Content: question})
	return messages
}

// Stream sends one streaming completion request and returns the deltas as they arrive.
// A non-2xx answer fails here, before any delta. The channel closes when the body ends or ctx is cancelled.
func (s *CompletionStreamer) Stream(ctx context.Context, question, contextText string, history []models.ChatMessage) (<-chan Delta, error) {
	body := CompletionRequest{
		Model:       s.model,
		Messages:    BuildMessages(question, contextText, history),
		Temperature: 0.3,
		MaxTokens:   1024,
		Stream:      true,
		Stop:        stopMarkers,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, NewServiceError("stream", ErrCompletionService, fmt.Errorf("failed to marshal request: %w", err))
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/chat/completions", bytes.NewReader(jsonBody))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to send request to LM Studio: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("LM Studio returned status %d: %s", resp.StatusCode, string(data))
		}
		return resp, nil
	})
	if err != nil {
		return nil, NewServiceError("stream", ErrCompletionService, err)
	}

	resp := out.(*http.Response)
	deltas := make(chan Delta)
	go s.pump(ctx, resp.Body, deltas)
	return deltas, nil
}

// pump decodes the response body line by line into deltas
func (s *CompletionStreamer) pump(ctx context.Context, body io.ReadCloser, deltas chan<- Delta) {
	defer close(deltas)
	defer body.Close()

	// unblock a pending read when the caller goes away
	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer stop()

	reader := bufio.NewReader(body)
	for {
		line, readErr := reader.ReadString('\n')
		if text, ok := DecodeFrame(line); ok {
			select {
			case deltas <- Delta{Text: text}:
			case <-ctx.Done():
				return
			}
		}

		if readErr == nil {
			continue
		}
		if readErr == io.EOF || ctx.Err() != nil {
			return
		}

		s.logger.Printf("❌ Completion stream interrupted: %v", readErr)
		select {
		case deltas <- Delta{Err: NewServiceError("stream", ErrCompletionService, readErr)}:
		case <-ctx.Done():
		}
		return
	}
}

// DecodeFrame extracts the text delta from one framed line.
// It reports false for blank lines, the [DONE] sentinel, malformed JSON and empty deltas.
func DecodeFrame(line string) (string, bool) {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "data:")
	line = strings.TrimSpace(line)
	if line == "" || line == "[DONE]" {
		return "", false
	}

	var frame completionFrame
	if err := json.Unmarshal([]byte(line), &frame); err != nil {
		return "", false
	}

	var text string
	if len(frame.Choices) > 0 {
		text = frame.Choices[0].Delta.Content
		if text == "" {
			text = frame.Choices[0].Text
		}
	}
	if text == "" {
		text = frame.Content
	}
	return text, text != ""
}

// HealthCheck verifies LM Studio is running and has a model loaded
func (s *CompletionStreamer) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/models", nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("LM Studio not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("LM Studio returned status %d", resp.StatusCode)
	}
	return nil
}

var _ Streamer = (*CompletionStreamer)(nil)
