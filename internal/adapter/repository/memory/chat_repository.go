package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ragchat-api/internal/domain/entity"
	"ragchat-api/internal/domain/repository"

	"github.com/google/uuid"
)

// ChatRepository keeps sessions and messages in process. A single mutex makes
// AppendTurn naturally atomic; the failpoint lets tests inject a fault between
// the two message writes and assert nothing leaked.
type ChatRepository struct {
	mu       sync.RWMutex
	sessions map[string]entity.ChatSession
	messages map[string][]entity.ChatMessage

	// invoked between staging the user and the assistant message; nil in
	// production
	failpoint func() error
}

func NewChatRepository() *ChatRepository {
	return &ChatRepository{
		sessions: make(map[string]entity.ChatSession),
		messages: make(map[string][]entity.ChatMessage),
	}
}

var _ repository.ChatRepository = (*ChatRepository)(nil)

func (r *ChatRepository) AppendTurn(ctx context.Context, params repository.AppendTurnParams) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	var session entity.ChatSession
	if params.ChatID == "" {
		session = entity.ChatSession{
			ID:        uuid.New().String(),
			OwnerID:   params.OwnerID,
			Title:     entity.SessionTitle(params.UserMessage.Content),
			CreatedAt: now,
		}
	} else {
		existing, ok := r.sessions[params.ChatID]
		if !ok || existing.OwnerID != params.OwnerID {
			return "", entity.ErrNotFound
		}
		session = existing
	}

	userMsg := params.UserMessage
	userMsg.ID = uuid.New().String()
	userMsg.ChatID = session.ID
	userMsg.Role = entity.RoleUser
	userMsg.CreatedAt = now

	assistantMsg := params.AssistantMessage
	assistantMsg.ID = uuid.New().String()
	assistantMsg.ChatID = session.ID
	assistantMsg.Role = entity.RoleAssistant
	assistantMsg.CreatedAt = now.Add(time.Millisecond)

	// stage everything before touching the maps so a failure publishes nothing
	if r.failpoint != nil {
		if err := r.failpoint(); err != nil {
			return "", err
		}
	}

	session.LastMessageAt = assistantMsg.CreatedAt
	session.MessageCount += 2
	r.sessions[session.ID] = session
	r.messages[session.ID] = append(r.messages[session.ID], userMsg, assistantMsg)

	return session.ID, nil
}

func (r *ChatRepository) History(ctx context.Context, chatID, ownerID string) ([]entity.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[chatID]
	if !ok || session.OwnerID != ownerID {
		return nil, entity.ErrNotFound
	}

	msgs := make([]entity.ChatMessage, len(r.messages[chatID]))
	copy(msgs, r.messages[chatID])
	return msgs, nil
}

func (r *ChatRepository) ListSessions(ctx context.Context, ownerID string) ([]entity.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []entity.ChatSession
	for _, s := range r.sessions {
		if s.OwnerID == ownerID {
			sessions = append(sessions, s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].LastMessageAt.Equal(sessions[j].LastMessageAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].LastMessageAt.After(sessions[j].LastMessageAt)
	})
	return sessions, nil
}

func (r *ChatRepository) Delete(ctx context.Context, chatID, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[chatID]
	if !ok || session.OwnerID != ownerID {
		return entity.ErrNotFound
	}
	delete(r.sessions, chatID)
	delete(r.messages, chatID)
	return nil
}
