package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/studyorbit/squadsync-backend/internal/handlers/ws"
	"github.com/studyorbit/squadsync-backend/internal/httpx"
	"github.com/studyorbit/squadsync-backend/internal/models"
	"github.com/studyorbit/squadsync-backend/internal/service"
	"github.com/studyorbit/squadsync-backend/internal/validation"
)

type ChatHandler struct {
	chatService *service.ChatService
	batcher     *service.ReceiptBatcher
	hub         *ws.Hub
}

func NewChatHandler(chatService *service.ChatService, batcher *service.ReceiptBatcher, hub *ws.Hub) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		batcher:     batcher,
		hub:         hub,
	}
}

type SendMessageRequest struct {
	ClientID string `json:"client_id"`
	Content  string `json:"content"`
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	squadID, err := parseID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_squad_id", "Invalid squad ID")
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	req.Content = validation.TrimAndLimit(req.Content, validation.MaxMessageLength())
	if req.Content == "" {
		return httpx.BadRequest(c, "missing_content", "Content is required")
	}

	message, err := h.chatService.Send(squadID, profileID, req.ClientID, req.Content)
	if err != nil {
		if errors.Is(err, service.ErrNotMember) {
			return httpx.Forbidden(c, "not_member", "You are not a member of this squad")
		}
		return httpx.Internal(c, "send_message_failed")
	}

	h.hub.BroadcastToSquad(squadID, ws.Frame("chat_message", message.ToResponse()))

	return c.Status(fiber.StatusCreated).JSON(message.ToResponse())
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	if _, err := httpx.LocalUint(c, "profileID"); err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	squadID, err := parseID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_squad_id", "Invalid squad ID")
	}

	messages, err := h.chatService.History(squadID)
	if err != nil {
		return httpx.Internal(c, "fetch_messages_failed")
	}

	responses := make([]models.ChatMessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, messages[i].ToResponse())
	}

	return c.JSON(fiber.Map{
		"messages": responses,
		"count":    len(responses),
	})
}

type MarkReadRequest struct {
	MessageIDs []uint `json:"message_ids"`
}

// MarkRead queues read marks into the debounced batcher; the response
// returns before the batch is flushed.
func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	if _, err := parseID(c, "id"); err != nil {
		return httpx.BadRequest(c, "invalid_squad_id", "Invalid squad ID")
	}

	var req MarkReadRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if len(req.MessageIDs) == 0 {
		return httpx.BadRequest(c, "missing_message_ids", "message_ids is required")
	}

	for _, messageID := range req.MessageIDs {
		h.batcher.Mark(messageID, profileID)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": len(req.MessageIDs)})
}

func (h *ChatHandler) ClearChat(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	squadID, err := parseID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_squad_id", "Invalid squad ID")
	}

	if err := h.chatService.ClearChat(squadID, profileID); err != nil {
		if errors.Is(err, service.ErrForbidden) {
			return httpx.Forbidden(c, "forbidden", "Only squad admins can clear chat")
		}
		return httpx.Internal(c, "clear_chat_failed")
	}

	h.hub.BroadcastToSquad(squadID, ws.Frame("chat_cleared", fiber.Map{"squad_id": squadID}))
	return c.JSON(fiber.Map{"message": "Chat cleared"})
}

func (h *ChatHandler) GetAnnouncements(c *fiber.Ctx) error {
	if _, err := httpx.LocalUint(c, "profileID"); err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	squadID, err := parseID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_squad_id", "Invalid squad ID")
	}

	announcements, err := h.chatService.Announcements(squadID, 5)
	if err != nil {
		return httpx.Internal(c, "fetch_announcements_failed")
	}

	return c.JSON(fiber.Map{
		"announcements": announcements,
		"count":         len(announcements),
	})
}
