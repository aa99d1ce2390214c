package openai

import (
	"context"
	"fmt"
	"time"

	"ragchat-api/internal/domain/entity"
	"ragchat-api/pkg/retry"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = `You are a helpful AI assistant. Use the provided document context to answer the question.
If the answer is not in the context, say that you don't know based on the documents; do not make up an answer.
Answer clearly and concisely.`

const noContextPrompt = `You are a helpful AI assistant. No relevant documents were found for this question, so answer from general knowledge and mention that the answer is not based on the user's documents.`

type ChatConfig struct {
	Model   string
	Timeout time.Duration
	Retry   retry.Policy
}

type ChatClient struct {
	client *openai.Client
	cfg    ChatConfig
}

func NewChatClient(apiKey string, cfg ChatConfig) *ChatClient {
	return &ChatClient{
		client: openai.NewClient(apiKey),
		cfg:    cfg,
	}
}

// GenerateAnswer builds the full prompt (system instruction, document
// context, prior turns, current question) and returns the model's answer.
// Transient failures are retried per the configured policy.
func (c *ChatClient) GenerateAnswer(ctx context.Context, query, docContext string, history []entity.ChatMessage) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)

	system := systemPrompt
	if docContext == "" {
		system = noContextPrompt
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})

	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == entity.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	userPrompt := query
	if docContext != "" {
		userPrompt = fmt.Sprintf("Context from documents:\n%s\n\nQuestion: %s", docContext, query)
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userPrompt,
	})

	var answer string
	err := c.cfg.Retry.Do(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:       c.cfg.Model,
			Messages:    messages,
			Temperature: 0.3,
		})
		if err != nil {
			return classify("generation", err)
		}
		if len(resp.Choices) == 0 {
			return &entity.ExternalError{
				Capability: "generation",
				Err:        fmt.Errorf("no choices in completion response"),
			}
		}
		answer = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return answer, nil
}
