package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordExtractor_ExtractKeywordStrings(t *testing.T) {
	ke := NewKeywordExtractor()

	text := "The contract defines the payment schedule. The payment schedule lists every invoice. " +
		"Each invoice must reference the contract number."

	keywords, err := ke.ExtractKeywordStrings(text, 3)
	require.NoError(t, err)
	require.NotEmpty(t, keywords)
	assert.LessOrEqual(t, len(keywords), 3)

	for _, kw := range keywords {
		assert.GreaterOrEqual(t, len(kw), 4)
		assert.Equal(t, strings.ToLower(kw), kw)
		assert.NotEqual(t, "the", kw)
	}

	expected := map[string]bool{"contract": true, "payment": true, "schedule": true, "invoice": true}
	found := false
	for _, kw := range keywords {
		found = found || expected[kw]
	}
	assert.True(t, found, "expected a document noun among %v", keywords)
}

func TestKeywordExtractor_EmptyText(t *testing.T) {
	ke := NewKeywordExtractor()

	keywords, err := ke.ExtractKeywordStrings("   \n ", 5)
	require.NoError(t, err)
	assert.Empty(t, keywords)
}

func TestKeywordExtractor_SkipsNumbersAndShortWords(t *testing.T) {
	ke := NewKeywordExtractor()

	assert.True(t, ke.shouldSkipWord("2024", "CD"))
	assert.True(t, ke.shouldSkipWord("cat", "NN"))
	assert.True(t, ke.shouldSkipWord("quickly", "RB"))
	assert.False(t, ke.shouldSkipWord("invoice", "NN"))
}

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"short", "abc", 10, "abc"},
		{"exact", "abcd", 4, "abcd"},
		{"ascii cut", "abcdef", 3, "abc"},
		{"cut after lead byte", "ab日本", 3, "ab"},
		{"cut inside 日", "ab日本", 4, "ab"},
		{"cut after 日", "ab日本", 5, "ab日"},
		{"cut inside emoji", "x😀", 3, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateUTF8(tt.text, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestKeywordExtractor_LongMultiByteInput(t *testing.T) {
	ke := NewKeywordExtractor()

	// the input cap lands inside a three-byte character
	text := strings.Repeat("a", maxKeywordInput-1) + strings.Repeat("日本語 contract ", 50)

	_, err := ke.ExtractKeywords(text)
	assert.NoError(t, err)
	assert.True(t, utf8.ValidString(truncateUTF8(text, maxKeywordInput)))
	assert.Len(t, truncateUTF8(text, maxKeywordInput), maxKeywordInput-1)
}
