package services

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const (
	DefaultChunkTokens   = 600
	DefaultOverlapTokens = 100
	DefaultEncoding      = "cl100k_base"
)

// Tokenizer maps text to token ids and back
type Tokenizer interface {
	Encode(text string) []int
	Decode(ids []int) string
}

// TiktokenTokenizer is a BPE tokenizer whose ranks are embedded in the binary
type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

var setLoaderOnce sync.Once

// NewTiktokenTokenizer loads the named encoding without network access
func NewTiktokenTokenizer(encoding string) (*TiktokenTokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	setLoaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", encoding, err)
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

func (t *TiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *TiktokenTokenizer) Decode(ids []int) string {
	return t.enc.Decode(ids)
}

// Chunker splits a full document text into retrievable units
type Chunker interface {
	Split(text string) []string
}

// TokenChunker emits windows of at most maxTokens tokens, neighbours sharing overlap tokens
type TokenChunker struct {
	tokenizer Tokenizer
	maxTokens int
	overlap   int
}

// NewTokenChunker creates a chunker; overlap must be smaller than maxTokens
func NewTokenChunker(tokenizer Tokenizer, maxTokens, overlap int) (*TokenChunker, error) {
	if tokenizer == nil {
		return nil, fmt.Errorf("tokenizer is required")
	}
	if maxTokens <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", maxTokens)
	}
	if overlap < 0 || overlap >= maxTokens {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", overlap, maxTokens)
	}
	return &TokenChunker{
		tokenizer: tokenizer,
		maxTokens: maxTokens,
		overlap:   overlap,
	}, nil
}

// Split returns the chunks in document order. Empty text yields no chunks.
// Window edges are moved off tokens that start inside a multi-byte character,
// so every chunk decodes to valid UTF-8.
func (c *TokenChunker) Split(text string) []string {
	ids := c.tokenizer.Encode(text)
	n := len(ids)
	if n == 0 {
		return nil
	}

	step := c.maxTokens - c.overlap
	chunks := make([]string, 0, n/step+1)

	for start := 0; ; {
		end := c.windowEnd(ids, start)
		chunks = append(chunks, c.tokenizer.Decode(ids[start:end]))
		if end == n {
			break
		}
		start = c.nextStart(ids, start, end)
	}

	return chunks
}

// boundary reports whether a window may begin or end before token i
func (c *TokenChunker) boundary(ids []int, i int) bool {
	if i <= 0 || i >= len(ids) {
		return true
	}
	b := c.tokenizer.Decode(ids[i : i+1])
	return b == "" || utf8.RuneStart(b[0])
}

// windowEnd shrinks the window to a character boundary, growing it only when no
// boundary exists inside
func (c *TokenChunker) windowEnd(ids []int, start int) int {
	limit := start + c.maxTokens
	if limit >= len(ids) {
		return len(ids)
	}
	for end := limit; end > start; end-- {
		if c.boundary(ids, end) {
			return end
		}
	}
	end := limit + 1
	for !c.boundary(ids, end) {
		end++
	}
	return end
}

// nextStart backs up overlap tokens from end, then moves forward to a character boundary.
// The result is always past start and never before end-overlap.
func (c *TokenChunker) nextStart(ids []int, start, end int) int {
	next := end - c.overlap
	if next <= start {
		next = start + 1
	}
	for next < end && !c.boundary(ids, next) {
		next++
	}
	return next
}
