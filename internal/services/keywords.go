package services

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"
)

// maxKeywordInput bounds how much of a document is POS-tagged
const maxKeywordInput = 20000

// KeywordExtractor picks the salient nouns of a document for the registry
type KeywordExtractor struct {
	// Common stop words to filter out
	stopWords map[string]bool
	// Minimum keyword length
	minLength int
}

// NewKeywordExtractor creates a new keyword extractor
func NewKeywordExtractor() *KeywordExtractor {
	stopWords := map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
		"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
		"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
		"this": true, "that": true, "these": true, "those": true, "page": true,
		"figure": true, "table": true, "section": true, "chapter": true,
	}

	return &KeywordExtractor{
		stopWords: stopWords,
		minLength: 4,
	}
}

// KeywordResult represents a keyword with its frequency and importance
type KeywordResult struct {
	Word      string  `json:"word"`
	Frequency int     `json:"frequency"`
	Score     float64 `json:"score"`
	PosTag    string  `json:"pos_tag"`
}

// ExtractKeywords scores nouns and named entities in text, best first
func (ke *KeywordExtractor) ExtractKeywords(text string) ([]KeywordResult, error) {
	text = truncateUTF8(text, maxKeywordInput)
	if strings.TrimSpace(text) == "" {
		return []KeywordResult{}, nil
	}

	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return nil, err
	}

	wordFreq := make(map[string]*KeywordResult)

	for _, tok := range doc.Tokens() {
		word := strings.ToLower(tok.Text)
		if ke.shouldSkipWord(word, tok.Tag) {
			continue
		}

		score := ke.calculateScore(tok.Tag)
		if existing, exists := wordFreq[word]; exists {
			existing.Frequency++
			existing.Score += score
		} else {
			wordFreq[word] = &KeywordResult{
				Word:      word,
				Frequency: 1,
				Score:     score,
				PosTag:    tok.Tag,
			}
		}
	}

	// Named entities get a boost
	for _, ent := range doc.Entities() {
		word := strings.ToLower(ent.Text)
		if len(word) < ke.minLength || ke.stopWords[word] {
			continue
		}
		if existing, exists := wordFreq[word]; exists {
			existing.Score += 2.0
		} else {
			wordFreq[word] = &KeywordResult{
				Word:      word,
				Frequency: 1,
				Score:     2.0,
				PosTag:    "NE_" + ent.Label,
			}
		}
	}

	keywords := make([]KeywordResult, 0, len(wordFreq))
	for _, result := range wordFreq {
		result.Score = result.Score * float64(result.Frequency)
		keywords = append(keywords, *result)
	}

	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Score != keywords[j].Score {
			return keywords[i].Score > keywords[j].Score
		}
		return keywords[i].Word < keywords[j].Word
	})

	return keywords, nil
}

// ExtractKeywordStrings returns just the top keyword strings
func (ke *KeywordExtractor) ExtractKeywordStrings(text string, limit int) ([]string, error) {
	keywords, err := ke.ExtractKeywords(text)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(keywords) > limit {
		keywords = keywords[:limit]
	}

	result := make([]string, len(keywords))
	for i, kw := range keywords {
		result[i] = kw.Word
	}
	return result, nil
}

// shouldSkipWord keeps only nouns of useful length
func (ke *KeywordExtractor) shouldSkipWord(word, posTag string) bool {
	if len(word) < ke.minLength {
		return true
	}
	if ke.stopWords[word] {
		return true
	}
	if ke.isPureNumber(word) || ke.isPunctuation(word) {
		return true
	}
	return !strings.HasPrefix(posTag, "NN")
}

// calculateScore assigns importance based on POS tag
func (ke *KeywordExtractor) calculateScore(posTag string) float64 {
	switch posTag {
	case "NNP", "NNPS":
		return 2.0
	case "NN", "NNS":
		return 1.5
	default:
		return 1.0
	}
}

// isPureNumber checks if string contains only digits
func (ke *KeywordExtractor) isPureNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

// isPunctuation checks if string contains only punctuation
func (ke *KeywordExtractor) isPunctuation(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return len(s) > 0
}

// truncateUTF8 cuts text to at most limit bytes without splitting a character
func truncateUTF8(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	n := limit
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}
