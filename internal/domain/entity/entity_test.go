package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentStatusTransitions(t *testing.T) {
	doc := Document{Status: StatusPending}
	assert.False(t, doc.Status.IsTerminal())
	assert.False(t, doc.Queryable())

	doc.Status = StatusIndexed
	assert.True(t, doc.Status.IsTerminal())
	assert.False(t, doc.Queryable(), "indexed without chunks is not queryable")

	doc.TotalChunks = 3
	assert.True(t, doc.Queryable())

	doc.Status = StatusFailed
	assert.True(t, doc.Status.IsTerminal())
	assert.False(t, doc.Queryable())
}

func TestSessionTitle(t *testing.T) {
	assert.Equal(t, "short question", SessionTitle("short question"))

	long := strings.Repeat("a", 80)
	title := SessionTitle(long)
	assert.Equal(t, strings.Repeat("a", 50)+"...", title)

	multibyte := strings.Repeat("й", 60)
	assert.Equal(t, strings.Repeat("й", 50)+"...", SessionTitle(multibyte))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "fits", Snippet("fits", 10))
	assert.Equal(t, "abcde...", Snippet("abcdefgh", 5))

	multibyte := strings.Repeat("語", 10)
	assert.Equal(t, strings.Repeat("語", 4)+"...", Snippet(multibyte, 4))
}

func TestRetrievedPassageSource(t *testing.T) {
	p := RetrievedPassage{
		ChunkID:      "c1",
		DocumentID:   "d1",
		DocumentName: "whitepaper.pdf",
		PageNumber:   7,
		Content:      strings.Repeat("x", 300),
		Similarity:   0.83,
	}
	src := p.Source()

	assert.Equal(t, "c1", src.ChunkID)
	assert.Equal(t, "whitepaper.pdf", src.DocumentName)
	assert.Equal(t, 7, src.PageNumber)
	assert.Equal(t, 0.83, src.Similarity)
	assert.Equal(t, strings.Repeat("x", 200)+"...", src.Snippet)
}

func TestIsPermanent(t *testing.T) {
	transient := &ExternalError{Capability: "embedding", Err: assert.AnError}
	assert.False(t, IsPermanent(transient))

	permanent := &ExternalError{Capability: "generation", Permanent: true, Err: assert.AnError}
	assert.True(t, IsPermanent(permanent))

	wrapped := &EmbeddingError{BatchStart: 0, BatchEnd: 64, Err: permanent}
	assert.True(t, IsPermanent(wrapped))

	assert.False(t, IsPermanent(assert.AnError))
	assert.False(t, IsPermanent(nil))
}
