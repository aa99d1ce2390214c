package dto

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type ChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
	ChatID  string `json:"chat_id,omitempty" validate:"omitempty,uuid4"`
}

// Validate returns per-field validation failures, empty when the request is
// well formed.
func (r *ChatRequest) Validate() map[string]string {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		errs := err.(validator.ValidationErrors)
		fields := make(map[string]string)
		for _, e := range errs {
			fields[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return fields
	}
	return nil
}

type SourceInfo struct {
	ChunkID      string  `json:"chunkId"`
	DocumentID   string  `json:"documentId"`
	DocumentName string  `json:"documentName"`
	PageNumber   int     `json:"pageNumber,omitempty"`
	Similarity   float64 `json:"similarity"`
	Snippet      string  `json:"snippet"`
}

type ChatResponse struct {
	Answer    string       `json:"answer"`
	ChatID    string       `json:"chatId"`
	Sources   []SourceInfo `json:"sources"`
	Timestamp time.Time    `json:"timestamp"`
}

type ChatSessionInfo struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	CreatedAt     time.Time `json:"createdAt"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	MessageCount  int       `json:"messageCount"`
}

type ChatMessageInfo struct {
	ID        string       `json:"id"`
	Role      string       `json:"role"`
	Content   string       `json:"content"`
	Sources   []SourceInfo `json:"sources,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}
