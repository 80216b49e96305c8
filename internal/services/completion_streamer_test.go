package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pdfqa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCompletionServer(t *testing.T, handler http.HandlerFunc) *CompletionStreamer {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewCompletionStreamer(server.URL, "test-model", testLogger())
}

func drain(t *testing.T, deltas <-chan Delta) ([]string, error) {
	t.Helper()
	var texts []string
	timeout := time.After(5 * time.Second)
	for {
		select {
		case d, ok := <-deltas:
			if !ok {
				return texts, nil
			}
			if d.Err != nil {
				return texts, d.Err
			}
			texts = append(texts, d.Text)
		case <-timeout:
			t.Fatal("stream did not finish")
			return texts, nil
		}
	}
}

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   string
		wantOK bool
	}{
		{"sse delta", `data: {"choices":[{"delta":{"content":"Hel"}}]}`, "Hel", true},
		{"bare json delta", `{"choices":[{"delta":{"content":"lo"}}]}`, "lo", true},
		{"text completion", `data: {"choices":[{"text":"abc"}]}`, "abc", true},
		{"top-level content", `{"content":"xyz"}`, "xyz", true},
		{"blank", "   ", "", false},
		{"done sentinel", "data: [DONE]", "", false},
		{"malformed", `data: {"choices":[{"delta":`, "", false},
		{"empty delta", `data: {"choices":[{"delta":{}}]}`, "", false},
		{"trailing newline", "data: {\"content\":\"n\"}\r\n", "n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeFrame(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildMessages(t *testing.T) {
	t.Run("ungrounded has no context section", func(t *testing.T) {
		msgs := BuildMessages("What?", "", nil)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].Role)
		assert.NotContains(t, msgs[0].Content, "Context:")
		assert.NotContains(t, msgs[0].Content, "only the provided context")
		assert.Equal(t, ungroundedInstructions, msgs[0].Content)
		assert.Equal(t, models.ChatMessage{Role: "user", Content: "What?"}, msgs[1])
	})

	t.Run("context appended verbatim", func(t *testing.T) {
		msgs := BuildMessages("What?", "chunk one\n\nchunk two", nil)
		assert.True(t, strings.HasPrefix(msgs[0].Content, groundedInstructions))
		assert.Contains(t, msgs[0].Content, "only the provided context")
		assert.Contains(t, msgs[0].Content, "\n\nContext:\nchunk one\n\nchunk two")
	})

	t.Run("history keeps the last turns in order", func(t *testing.T) {
		var history []models.ChatMessage
		for i := 0; i < 14; i++ {
			role := "user"
			if i%2 == 1 {
				role = "assistant"
			}
			history = append(history, models.ChatMessage{Role: role, Content: fmt.Sprintf("turn %d", i)})
		}

		msgs := BuildMessages("now", "", history)
		require.Len(t, msgs, maxHistoryTurns+2)
		assert.Equal(t, "turn 4", msgs[1].Content)
		assert.Equal(t, "turn 13", msgs[len(msgs)-2].Content)
		assert.Equal(t, "now", msgs[len(msgs)-1].Content)
	})
}

func TestStream_RequestShapeAndDeltas(t *testing.T) {
	var captured CompletionRequest
	streamer := setupCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	deltas, err := streamer.Stream(context.Background(), "Hi?", "ctx", nil)
	require.NoError(t, err)

	texts, err := drain(t, deltas)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, texts)

	assert.Equal(t, "test-model", captured.Model)
	assert.True(t, captured.Stream)
	assert.Equal(t, 0.3, captured.Temperature)
	assert.Equal(t, 1024, captured.MaxTokens)
	assert.Equal(t, []string{"<|eot_id|>", "<|im_end|>", "<|end_of_turn|>"}, captured.Stop)
}

func TestStream_SkipsMalformedFrame(t *testing.T) {
	streamer := setupCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"A\"}}]}\n")
		fmt.Fprint(w, "data: {not json\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"B\"}}]}\n")
	})

	deltas, err := streamer.Stream(context.Background(), "q", "", nil)
	require.NoError(t, err)

	texts, err := drain(t, deltas)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, texts)
}

func TestStream_NonSuccessFailsBeforeDeltas(t *testing.T) {
	streamer := setupCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no model loaded", http.StatusServiceUnavailable)
	})

	deltas, err := streamer.Stream(context.Background(), "q", "", nil)
	require.Error(t, err)
	assert.Nil(t, deltas)
	assert.True(t, errors.Is(err, ErrCompletionService))
}

func TestStream_CancelStopsEmission(t *testing.T) {
	release := make(chan struct{})
	streamer := setupCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"content\":\"first\"}\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	deltas, err := streamer.Stream(ctx, "q", "", nil)
	require.NoError(t, err)

	first := <-deltas
	assert.Equal(t, "first", first.Text)

	cancel()
	select {
	case _, ok := <-deltas:
		for ok {
			_, ok = <-deltas
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream not closed after cancel")
	}
}
