package repository

import (
	"context"

	"ragchat-api/internal/domain/entity"
)

// AppendTurnParams carries one full chat turn. ChatID empty means "create a
// new session for this owner, titled after the user message".
type AppendTurnParams struct {
	ChatID           string
	OwnerID          string
	UserMessage      entity.ChatMessage
	AssistantMessage entity.ChatMessage
}

// ChatRepository persists chat sessions and their messages.
//
// AppendTurn commits the session upsert, both messages, the message-count
// increment and the last-message timestamp as one unit: a partially appended
// turn must never be observable. History, ListSessions and Delete are scoped
// to the calling owner and report entity.ErrNotFound without distinguishing
// "absent" from "owned by someone else".
type ChatRepository interface {
	AppendTurn(ctx context.Context, params AppendTurnParams) (chatID string, err error)
	History(ctx context.Context, chatID, ownerID string) ([]entity.ChatMessage, error)
	ListSessions(ctx context.Context, ownerID string) ([]entity.ChatSession, error)
	Delete(ctx context.Context, chatID, ownerID string) error
}
