package handler

import (
	"ragchat-api/internal/delivery/http/dto"
	"ragchat-api/internal/domain/entity"
	"ragchat-api/internal/usecase/chat"

	"github.com/gofiber/fiber/v2"
)

type ChatHandler struct {
	chatUsecase *chat.ChatUsecase
}

func NewChatHandler(chatUsecase *chat.ChatUsecase) *ChatHandler {
	return &ChatHandler{chatUsecase: chatUsecase}
}

// Send godoc
// @Summary      Send a chat message
// @Description  Ask a question against your documents; omit chat_id to start a new chat
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body  dto.ChatRequest  true  "Message and optional chat id"
// @Success      200  {object}  dto.ChatResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/chat [post]
func (h *ChatHandler) Send(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("ownerID").(string)

	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON request")
	}
	if fields := req.Validate(); len(fields) > 0 {
		return ValidationError{Errors: fields}
	}

	result, err := h.chatUsecase.SendMessage(c.Context(), ownerID, req.ChatID, req.Message)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(dto.ChatResponse{
		Answer:    result.Answer,
		ChatID:    result.ChatID,
		Sources:   toSourceInfos(result.Sources),
		Timestamp: result.CreatedAt,
	})
}

// ListSessions godoc
// @Summary      List chat sessions
// @Tags         Chat
// @Produce      json
// @Success      200  {array}  dto.ChatSessionInfo
// @Router       /api/chats [get]
func (h *ChatHandler) ListSessions(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("ownerID").(string)

	sessions, err := h.chatUsecase.ListSessions(c.Context(), ownerID)
	if err != nil {
		return err
	}

	infos := make([]dto.ChatSessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, dto.ChatSessionInfo{
			ID:            s.ID,
			Title:         s.Title,
			CreatedAt:     s.CreatedAt,
			LastMessageAt: s.LastMessageAt,
			MessageCount:  s.MessageCount,
		})
	}
	return c.Status(fiber.StatusOK).JSON(infos)
}

// History godoc
// @Summary      Get chat history
// @Tags         Chat
// @Produce      json
// @Param        id  path  string  true  "Chat ID"
// @Success      200  {array}  dto.ChatMessageInfo
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/chat/{id}/history [get]
func (h *ChatHandler) History(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("ownerID").(string)
	chatID := c.Params("id")

	messages, err := h.chatUsecase.History(c.Context(), chatID, ownerID)
	if err != nil {
		return err
	}

	infos := make([]dto.ChatMessageInfo, 0, len(messages))
	for _, m := range messages {
		infos = append(infos, dto.ChatMessageInfo{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			Sources:   toSourceInfos(m.Sources),
			Timestamp: m.CreatedAt,
		})
	}
	return c.Status(fiber.StatusOK).JSON(infos)
}

// Delete godoc
// @Summary      Delete a chat session
// @Tags         Chat
// @Produce      json
// @Param        id  path  string  true  "Chat ID"
// @Success      200  {object}  dto.MessageResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/chat/{id} [delete]
func (h *ChatHandler) Delete(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("ownerID").(string)
	chatID := c.Params("id")

	if err := h.chatUsecase.DeleteChat(c.Context(), chatID, ownerID); err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(dto.MessageResponse{Message: "Chat deleted successfully"})
}

func toSourceInfos(sources []entity.MessageSource) []dto.SourceInfo {
	infos := make([]dto.SourceInfo, 0, len(sources))
	for _, s := range sources {
		infos = append(infos, dto.SourceInfo{
			ChunkID:      s.ChunkID,
			DocumentID:   s.DocumentID,
			DocumentName: s.DocumentName,
			PageNumber:   s.PageNumber,
			Similarity:   s.Similarity,
			Snippet:      s.Snippet,
		})
	}
	return infos
}
