package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ragchat-api/internal/domain/entity"
	"ragchat-api/internal/domain/repository"
)

type Generator interface {
	GenerateAnswer(ctx context.Context, query, docContext string, history []entity.ChatMessage) (string, error)
}

// declineNotice is the assistant answer when retrieval finds nothing and the
// service is configured not to answer from general knowledge.
const declineNotice = "I could not find anything about that in your documents."

// generationFailureNotice stands in for the assistant answer when generation
// fails after retries: the user's question is still committed as part of a
// full turn.
const generationFailureNotice = "The answer could not be generated. Please try again."

// TurnResult is one completed chat turn.
type TurnResult struct {
	ChatID    string
	Answer    string
	Sources   []entity.MessageSource
	CreatedAt time.Time
}

type ChatUsecase struct {
	retriever *Retriever
	assembler *ContextAssembler
	generator Generator
	chatRepo  repository.ChatRepository

	answerWithoutContext bool
	logger               *slog.Logger

	// per-chat serialization: two turns on the same chat never interleave,
	// turns on different chats run in parallel
	locksMu sync.Mutex
	locks   map[string]*chatLock
}

// chatLock is reference-counted so the lock map shrinks back once no turn on
// the chat is in flight.
type chatLock struct {
	mu   sync.Mutex
	refs int
}

func NewChatUsecase(
	retriever *Retriever,
	assembler *ContextAssembler,
	generator Generator,
	chatRepo repository.ChatRepository,
	answerWithoutContext bool,
	logger *slog.Logger,
) *ChatUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatUsecase{
		retriever:            retriever,
		assembler:            assembler,
		generator:            generator,
		chatRepo:             chatRepo,
		answerWithoutContext: answerWithoutContext,
		logger:               logger,
		locks:                make(map[string]*chatLock),
	}
}

// SendMessage runs one chat turn: retrieve, assemble, generate, persist.
// An empty chatID lazily creates a session titled after the message. The turn
// is committed as a user+assistant pair or not at all; a cancelled request
// persists nothing.
func (uc *ChatUsecase) SendMessage(ctx context.Context, ownerID, chatID, message string) (*TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, entity.ErrMissingQuery
	}

	if chatID != "" {
		lock := uc.acquireLock(chatID)
		defer uc.releaseLock(chatID, lock)
	}

	var history []entity.ChatMessage
	if chatID != "" {
		var err error
		history, err = uc.chatRepo.History(ctx, chatID, ownerID)
		if err != nil {
			return nil, err
		}
	}

	passages, err := uc.retriever.Retrieve(ctx, ownerID, message)
	if err != nil {
		return nil, err
	}

	assembled := uc.assembler.Assemble(passages, history)

	var answer string
	var genErr error
	// the decline applies only when retrieval found nothing at all; passages
	// that were found but dropped by the budget still count as a hit
	if len(passages) == 0 && !uc.answerWithoutContext {
		answer = declineNotice
	} else {
		answer, genErr = uc.generator.GenerateAnswer(ctx, message, assembled.DocContext, assembled.History)
	}

	if genErr != nil {
		if ctx.Err() != nil {
			// caller is gone: abandon the turn, persist nothing
			return nil, genErr
		}
		// keep the question: commit the turn with a failure notice in the
		// assistant slot, then surface the error
		uc.logger.Error("generation failed", "chatId", chatID, "error", genErr)
		if _, appendErr := uc.chatRepo.AppendTurn(ctx, repository.AppendTurnParams{
			ChatID:           chatID,
			OwnerID:          ownerID,
			UserMessage:      entity.ChatMessage{Content: message},
			AssistantMessage: entity.ChatMessage{Content: generationFailureNotice},
		}); appendErr != nil {
			uc.logger.Error("failed to persist turn after generation failure", "chatId", chatID, "error", appendErr)
		}
		return nil, genErr
	}

	sources := make([]entity.MessageSource, 0, len(assembled.Included))
	for _, passage := range assembled.Included {
		sources = append(sources, passage.Source())
	}

	committedChatID, err := uc.chatRepo.AppendTurn(ctx, repository.AppendTurnParams{
		ChatID:      chatID,
		OwnerID:     ownerID,
		UserMessage: entity.ChatMessage{Content: message},
		AssistantMessage: entity.ChatMessage{
			Content: answer,
			Sources: sources,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist chat turn: %w", err)
	}

	return &TurnResult{
		ChatID:    committedChatID,
		Answer:    answer,
		Sources:   sources,
		CreatedAt: time.Now(),
	}, nil
}

func (uc *ChatUsecase) History(ctx context.Context, chatID, ownerID string) ([]entity.ChatMessage, error) {
	return uc.chatRepo.History(ctx, chatID, ownerID)
}

func (uc *ChatUsecase) ListSessions(ctx context.Context, ownerID string) ([]entity.ChatSession, error) {
	return uc.chatRepo.ListSessions(ctx, ownerID)
}

func (uc *ChatUsecase) DeleteChat(ctx context.Context, chatID, ownerID string) error {
	return uc.chatRepo.Delete(ctx, chatID, ownerID)
}

func (uc *ChatUsecase) acquireLock(chatID string) *chatLock {
	uc.locksMu.Lock()
	lock, ok := uc.locks[chatID]
	if !ok {
		lock = &chatLock{}
		uc.locks[chatID] = lock
	}
	lock.refs++
	uc.locksMu.Unlock()

	lock.mu.Lock()
	return lock
}

func (uc *ChatUsecase) releaseLock(chatID string, lock *chatLock) {
	lock.mu.Unlock()

	uc.locksMu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(uc.locks, chatID)
	}
	uc.locksMu.Unlock()
}
