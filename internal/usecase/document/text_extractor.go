package document

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PageText is the extracted text of one page, 1-based.
type PageText struct {
	Number int
	Text   string
}

type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// ExtractFromPDF decodes the PDF and returns the plain text of every page
// that yields any. Pages that fail to decode are skipped; scanned pages
// without a text layer simply produce nothing.
func (te *TextExtractor) ExtractFromPDF(data []byte) ([]PageText, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var pages []PageText
	numPages := reader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		pages = append(pages, PageText{Number: i, Text: text})
	}

	return pages, nil
}
