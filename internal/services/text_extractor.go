package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// TextExtractor turns raw document bytes into ordered page texts
type TextExtractor interface {
	ExtractPages(ctx context.Context, data []byte) ([]string, error)
}

// PDFTextExtractor extracts the text layer of a PDF. Image-only pages yield "".
type PDFTextExtractor struct{}

// NewPDFTextExtractor creates a new PDF text extractor
func NewPDFTextExtractor() *PDFTextExtractor {
	return &PDFTextExtractor{}
}

// ExtractPages returns one string per physical page
func (e *PDFTextExtractor) ExtractPages(ctx context.Context, data []byte) (pages []string, err error) {
	if len(data) == 0 {
		return nil, NewServiceError("extract", ErrExtraction, fmt.Errorf("empty file"))
	}

	// the parser panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = NewServiceError("extract", ErrExtraction, fmt.Errorf("malformed pdf: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, NewServiceError("extract", ErrExtraction, err)
	}

	numPages := reader.NumPage()
	pages = make([]string, 0, numPages)
	fonts := make(map[string]*pdf.Font)

	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			// unreadable content stream on an otherwise valid page
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return pages, nil
}
