package services

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runeTokenizer treats every rune as one token
type runeTokenizer struct{}

func (runeTokenizer) Encode(text string) []int {
	runes := []rune(text)
	ids := make([]int, len(runes))
	for i, r := range runes {
		ids[i] = int(r)
	}
	return ids
}

func (runeTokenizer) Decode(ids []int) string {
	runes := make([]rune, len(ids))
	for i, id := range ids {
		runes[i] = rune(id)
	}
	return string(runes)
}

// tokenText returns n distinct-looking single-rune tokens
func tokenText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteRune(rune('a' + i%26))
	}
	return b.String()
}

func TestNewTokenChunker_Validation(t *testing.T) {
	_, err := NewTokenChunker(runeTokenizer{}, 600, 600)
	assert.Error(t, err)

	_, err = NewTokenChunker(runeTokenizer{}, 0, 0)
	assert.Error(t, err)

	_, err = NewTokenChunker(nil, 600, 100)
	assert.Error(t, err)

	_, err = NewTokenChunker(runeTokenizer{}, 600, 100)
	assert.NoError(t, err)
}

func TestTokenChunker_Split(t *testing.T) {
	chunker, err := NewTokenChunker(runeTokenizer{}, DefaultChunkTokens, DefaultOverlapTokens)
	require.NoError(t, err)

	tests := []struct {
		name       string
		tokens     int
		wantChunks int
	}{
		{"empty", 0, 0},
		{"single token", 1, 1},
		{"exactly one window", 600, 1},
		{"one past window", 601, 2},
		{"650 tokens", 650, 2},
		{"1100 tokens", 1100, 2},
		{"1101 tokens", 1101, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := chunker.Split(tokenText(tt.tokens))
			assert.Len(t, chunks, tt.wantChunks)
		})
	}
}

func TestTokenChunker_WindowBoundaries(t *testing.T) {
	chunker, err := NewTokenChunker(runeTokenizer{}, 600, 100)
	require.NoError(t, err)

	text := tokenText(650)
	runes := []rune(text)

	chunks := chunker.Split(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, string(runes[0:600]), chunks[0])
	assert.Equal(t, string(runes[500:650]), chunks[1])
}

func TestTokenChunker_CoverageAndOverlap(t *testing.T) {
	chunker, err := NewTokenChunker(runeTokenizer{}, 50, 10)
	require.NoError(t, err)

	text := tokenText(437)
	chunks := chunker.Split(text)

	// Rebuild by dropping each chunk's leading overlap
	var rebuilt strings.Builder
	for i, chunk := range chunks {
		runes := []rune(chunk)
		assert.LessOrEqual(t, len(runes), 50)
		if i == 0 {
			rebuilt.WriteString(chunk)
			continue
		}
		prev := []rune(chunks[i-1])
		assert.Equal(t, string(prev[len(prev)-10:]), string(runes[:10]), "chunk %d overlap", i)
		rebuilt.WriteString(string(runes[10:]))
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestTokenChunker_MultiByteTextStaysValidUTF8(t *testing.T) {
	tokenizer, err := NewTiktokenTokenizer(DefaultEncoding)
	require.NoError(t, err)
	chunker, err := NewTokenChunker(tokenizer, DefaultChunkTokens, DefaultOverlapTokens)
	require.NoError(t, err)

	text := strings.Repeat("日本語のテキスト処理は難しい😀🎉 ", 200)
	chunks := chunker.Split(text)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		require.True(t, utf8.ValidString(chunk), "chunk %d is not valid UTF-8", i)
		assert.Contains(t, text, chunk, "chunk %d", i)

		// stored payloads go through JSON; nothing may be replaced with U+FFFD
		raw, err := json.Marshal(map[string]string{"text": chunk})
		require.NoError(t, err)
		var decoded map[string]string
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, chunk, decoded["text"], "chunk %d", i)
	}

	assert.True(t, strings.HasPrefix(text, chunks[0]))
	assert.True(t, strings.HasSuffix(text, chunks[len(chunks)-1]))
}

// byteTokenizer emits one token per byte, so most tokens sit inside a character
type byteTokenizer struct{}

func (byteTokenizer) Encode(text string) []int {
	ids := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		ids[i] = int(text[i])
	}
	return ids
}

func (byteTokenizer) Decode(ids []int) string {
	b := make([]byte, len(ids))
	for i, id := range ids {
		b[i] = byte(id)
	}
	return string(b)
}

func TestTokenChunker_ByteTokensCoverText(t *testing.T) {
	chunker, err := NewTokenChunker(byteTokenizer{}, 10, 3)
	require.NoError(t, err)

	text := strings.Repeat("añ😀b", 30)
	chunks := chunker.Split(text)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		require.True(t, utf8.ValidString(chunk), "chunk %d", i)
		assert.LessOrEqual(t, len(chunk), 10, "chunk %d", i)
		assert.Contains(t, text, chunk, "chunk %d", i)
	}
	assert.True(t, strings.HasPrefix(text, chunks[0]))
	assert.True(t, strings.HasSuffix(text, chunks[len(chunks)-1]))
}
