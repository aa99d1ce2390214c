package document

import (
	"strings"

	"ragchat-api/internal/domain/entity"
)

// Span is one chunk of the source text. Start is the rune offset of the span
// within the chunked text, which lets callers map spans back to pages and
// verify overlap stitching.
type Span struct {
	Text  string
	Start int
}

type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker producing spans of at most chunkSize runes,
// adjacent spans overlapping by chunkOverlap runes.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk splits text into overlapping spans, cutting preferentially at a
// paragraph break and otherwise at a sentence end within the trailing half of
// the window. Operating on runes keeps multi-byte characters intact. A text
// shorter than one chunk yields exactly one span.
func (c *Chunker) Chunk(text string) ([]Span, error) {
	if strings.TrimSpace(text) == "" {
		return nil, entity.ErrEmptyDocument
	}

	runes := []rune(text)
	n := len(runes)

	var spans []Span
	start := 0

	for start < n {
		end := start + c.chunkSize
		if end > n {
			end = n
		}

		// try to break at a natural boundary
		if end < n {
			cut := -1
			for i := end; i > start+c.chunkSize/2; i-- {
				if runes[i-1] == '\n' {
					cut = i
					break
				}
			}
			if cut == -1 {
				for i := end; i > start+c.chunkSize/2; i-- {
					r := runes[i-1]
					if r == '.' || r == '!' || r == '?' {
						cut = i
						break
					}
				}
			}
			if cut != -1 {
				end = cut
			}
		}

		spans = append(spans, Span{Text: string(runes[start:end]), Start: start})
		if end == n {
			break
		}

		// move start position with overlap
		newStart := end - c.chunkOverlap
		if newStart <= start {
			// ensure progress to avoid infinite loop
			newStart = start + 1
		}
		start = newStart
	}

	return spans, nil
}

// Overlap returns the configured overlap in runes.
func (c *Chunker) Overlap() int { return c.chunkOverlap }
