package entity

import "time"

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type ChatSession struct {
	ID            string    `db:"id" json:"id"`
	OwnerID       string    `db:"owner_id" json:"ownerId"`
	Title         string    `db:"title" json:"title"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	LastMessageAt time.Time `db:"last_message_at" json:"lastMessageAt"`
	MessageCount  int       `db:"message_count" json:"messageCount"`
}

// MessageSource attributes part of an assistant answer to an indexed chunk.
// Fields are explicit rather than an open-ended map so callers get a stable
// shape.
type MessageSource struct {
	ChunkID      string  `json:"chunkId"`
	DocumentID   string  `json:"documentId"`
	DocumentName string  `json:"documentName"`
	PageNumber   int     `json:"pageNumber,omitempty"`
	Similarity   float64 `json:"similarity"`
	Snippet      string  `json:"snippet"`
}

// ChatMessage is append-only: once written it is never mutated. Sources is
// empty for user messages.
type ChatMessage struct {
	ID        string          `db:"id" json:"id"`
	ChatID    string          `db:"chat_id" json:"chatId"`
	Role      MessageRole     `db:"role" json:"role"`
	Content   string          `db:"content" json:"content"`
	Sources   []MessageSource `json:"sources,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

// SessionTitle derives a session title from the first user message.
func SessionTitle(firstMessage string) string {
	const maxTitle = 50
	runes := []rune(firstMessage)
	if len(runes) <= maxTitle {
		return firstMessage
	}
	return string(runes[:maxTitle]) + "..."
}
