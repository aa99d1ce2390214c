package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat-api/internal/adapter/repository/memory"
	"ragchat-api/internal/domain/entity"
)

// stubGenerator echoes a canned answer and records the prompts it saw.
type stubGenerator struct {
	mu      sync.Mutex
	answer  string
	err     error
	queries []string
	context string
}

func (g *stubGenerator) GenerateAnswer(ctx context.Context, query, docContext string, history []entity.ChatMessage) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.queries = append(g.queries, query)
	g.context = docContext
	return g.answer, nil
}

type chatFixture struct {
	uc       *ChatUsecase
	docs     *memory.DocumentRepository
	chunks   *memory.ChunkRepository
	chatRepo *memory.ChatRepository
	gen      *stubGenerator
}

func newChatFixture(t *testing.T, answerWithoutContext bool) *chatFixture {
	t.Helper()
	docs := memory.NewDocumentRepository()
	chunks := memory.NewChunkRepository(docs)
	chatRepo := memory.NewChatRepository()
	gen := &stubGenerator{answer: "the generated answer"}

	retriever := NewRetriever(&stubEmbedder{vector: []float32{1, 0, 0}}, chunks, docs, 5, 3, 0.5, nil)
	assembler := NewContextAssemblerWithCounter(10000, 10, charCounter)
	uc := NewChatUsecase(retriever, assembler, gen, chatRepo, answerWithoutContext, nil)

	return &chatFixture{uc: uc, docs: docs, chunks: chunks, chatRepo: chatRepo, gen: gen}
}

func (f *chatFixture) seedDocument(t *testing.T, ownerID, filename string, embedding []float32) string {
	t.Helper()
	docID := seedIndexedDocument(t, f.docs, ownerID, filename)
	seedChunk(t, f.chunks, docID, 0, 2, "relevant passage text", embedding)
	return docID
}

func TestSendMessage_AttributesSources(t *testing.T) {
	f := newChatFixture(t, true)
	docID := f.seedDocument(t, "alice", "manual.pdf", []float32{1, 0, 0})

	result, err := f.uc.SendMessage(context.Background(), "alice", "", "how does it work?")
	require.NoError(t, err)
	require.NotEmpty(t, result.ChatID)
	assert.Equal(t, "the generated answer", result.Answer)

	require.Len(t, result.Sources, 1)
	src := result.Sources[0]
	assert.Equal(t, docID, src.DocumentID)
	assert.Equal(t, "manual.pdf", src.DocumentName)
	assert.Equal(t, 2, src.PageNumber)
	assert.Greater(t, src.Similarity, 0.5)
	assert.Contains(t, src.Snippet, "relevant passage")

	msgs, err := f.uc.History(context.Background(), result.ChatID, "alice")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "how does it work?", msgs[0].Content)
	require.Len(t, msgs[1].Sources, 1)
	assert.Equal(t, docID, msgs[1].Sources[0].DocumentID)
}

func TestSendMessage_EmptyMessageRejected(t *testing.T) {
	f := newChatFixture(t, true)

	_, err := f.uc.SendMessage(context.Background(), "alice", "", "   \t ")
	assert.ErrorIs(t, err, entity.ErrMissingQuery)

	sessions, err := f.uc.ListSessions(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestSendMessage_DeclinesWithoutContextWhenConfigured(t *testing.T) {
	f := newChatFixture(t, false)

	result, err := f.uc.SendMessage(context.Background(), "alice", "", "anything indexed?")
	require.NoError(t, err)
	assert.Equal(t, declineNotice, result.Answer)
	assert.Empty(t, result.Sources)
	assert.Empty(t, f.gen.queries, "the generator must not be called for a declined turn")

	msgs, err := f.uc.History(context.Background(), result.ChatID, "alice")
	require.NoError(t, err)
	require.Len(t, msgs, 2, "declined turns are still part of the conversation")
	assert.Equal(t, declineNotice, msgs[1].Content)
}

func TestSendMessage_BudgetDroppedPassagesDoNotDecline(t *testing.T) {
	docs := memory.NewDocumentRepository()
	chunks := memory.NewChunkRepository(docs)
	chatRepo := memory.NewChatRepository()
	gen := &stubGenerator{answer: "the generated answer"}

	retriever := NewRetriever(&stubEmbedder{vector: []float32{1, 0, 0}}, chunks, docs, 5, 3, 0.5, nil)
	// a budget of one token fits no passage at all
	assembler := NewContextAssemblerWithCounter(1, 10, charCounter)
	uc := NewChatUsecase(retriever, assembler, gen, chatRepo, false, nil)

	docID := seedIndexedDocument(t, docs, "alice", "manual.pdf")
	seedChunk(t, chunks, docID, 0, 1, "relevant passage text", []float32{1, 0, 0})

	result, err := uc.SendMessage(context.Background(), "alice", "", "how does it work?")
	require.NoError(t, err)
	assert.Equal(t, "the generated answer", result.Answer,
		"retrieval found something, so the turn generates even though nothing fit the budget")
	assert.Empty(t, result.Sources)
	assert.Len(t, gen.queries, 1)
}

func TestSendMessage_AnswersFromGeneralKnowledgeWhenAllowed(t *testing.T) {
	f := newChatFixture(t, true)

	result, err := f.uc.SendMessage(context.Background(), "alice", "", "what is Go?")
	require.NoError(t, err)
	assert.Equal(t, "the generated answer", result.Answer)
	assert.Empty(t, result.Sources)
	assert.Empty(t, f.gen.context)
}

func TestSendMessage_ContinuesExistingChat(t *testing.T) {
	f := newChatFixture(t, true)

	first, err := f.uc.SendMessage(context.Background(), "alice", "", "first question")
	require.NoError(t, err)

	second, err := f.uc.SendMessage(context.Background(), "alice", first.ChatID, "second question")
	require.NoError(t, err)
	assert.Equal(t, first.ChatID, second.ChatID)

	msgs, err := f.uc.History(context.Background(), first.ChatID, "alice")
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestSendMessage_ForeignChatLooksMissing(t *testing.T) {
	f := newChatFixture(t, true)

	result, err := f.uc.SendMessage(context.Background(), "alice", "", "private question")
	require.NoError(t, err)

	_, err = f.uc.SendMessage(context.Background(), "mallory", result.ChatID, "what did alice ask?")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	msgs, err := f.uc.History(context.Background(), result.ChatID, "alice")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestSendMessage_NeverSearchesForeignDocuments(t *testing.T) {
	f := newChatFixture(t, true)
	f.seedDocument(t, "bob", "bobs-secrets.pdf", []float32{1, 0, 0})

	result, err := f.uc.SendMessage(context.Background(), "alice", "", "tell me everything")
	require.NoError(t, err)
	assert.Empty(t, result.Sources)
}

func TestSendMessage_ConcurrentTurnsOnSameChat(t *testing.T) {
	f := newChatFixture(t, true)

	first, err := f.uc.SendMessage(context.Background(), "alice", "", "opening question")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.SendMessage(context.Background(), "alice", first.ChatID, "concurrent question")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	msgs, err := f.uc.History(context.Background(), first.ChatID, "alice")
	require.NoError(t, err)
	require.Len(t, msgs, 6)

	// strict user/assistant alternation proves turns never interleaved
	for i, msg := range msgs {
		if i%2 == 0 {
			assert.Equal(t, entity.RoleUser, msg.Role, "message %d", i)
		} else {
			assert.Equal(t, entity.RoleAssistant, msg.Role, "message %d", i)
		}
	}

	sessions, err := f.uc.ListSessions(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 6, sessions[0].MessageCount)
}

func TestSendMessage_ChatLocksReclaimedAfterTurns(t *testing.T) {
	f := newChatFixture(t, true)

	first, err := f.uc.SendMessage(context.Background(), "alice", "", "opening question")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.SendMessage(context.Background(), "alice", first.ChatID, "another question")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	f.uc.locksMu.Lock()
	remaining := len(f.uc.locks)
	f.uc.locksMu.Unlock()
	assert.Zero(t, remaining, "no turn in flight means no lock entries")
}

func TestSendMessage_GenerationFailureKeepsQuestion(t *testing.T) {
	f := newChatFixture(t, true)

	first, err := f.uc.SendMessage(context.Background(), "alice", "", "opening question")
	require.NoError(t, err)

	genErr := &entity.ExternalError{Capability: "generation", Permanent: true, Err: errors.New("quota exhausted")}
	f.gen.err = genErr

	_, err = f.uc.SendMessage(context.Background(), "alice", first.ChatID, "doomed question")
	require.Error(t, err)
	var got *entity.ExternalError
	assert.ErrorAs(t, err, &got)

	msgs, histErr := f.uc.History(context.Background(), first.ChatID, "alice")
	require.NoError(t, histErr)
	require.Len(t, msgs, 4, "the failed turn still commits a full pair")
	assert.Equal(t, "doomed question", msgs[2].Content)
	assert.Equal(t, generationFailureNotice, msgs[3].Content)
}

func TestSendMessage_CancelledRequestPersistsNothing(t *testing.T) {
	f := newChatFixture(t, true)

	first, err := f.uc.SendMessage(context.Background(), "alice", "", "opening question")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.gen.err = context.Canceled

	_, err = f.uc.SendMessage(ctx, "alice", first.ChatID, "abandoned question")
	require.Error(t, err)

	msgs, histErr := f.uc.History(context.Background(), first.ChatID, "alice")
	require.NoError(t, histErr)
	assert.Len(t, msgs, 2, "an abandoned turn must leave no trace")
}

func TestDeleteChat_OwnerOnly(t *testing.T) {
	f := newChatFixture(t, true)

	result, err := f.uc.SendMessage(context.Background(), "alice", "", "to be deleted")
	require.NoError(t, err)

	err = f.uc.DeleteChat(context.Background(), result.ChatID, "mallory")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	require.NoError(t, f.uc.DeleteChat(context.Background(), result.ChatID, "alice"))

	_, err = f.uc.History(context.Background(), result.ChatID, "alice")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestSendMessage_LongMessageTitlesAreTruncated(t *testing.T) {
	f := newChatFixture(t, true)

	long := strings.Repeat("why ", 40)
	result, err := f.uc.SendMessage(context.Background(), "alice", "", long)
	require.NoError(t, err)

	sessions, err := f.uc.ListSessions(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, result.ChatID, sessions[0].ID)
	assert.LessOrEqual(t, len([]rune(sessions[0].Title)), 53)
	assert.True(t, strings.HasSuffix(sessions[0].Title, "..."))
}
