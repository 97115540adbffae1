package handlers

import (
	"log"
	"os"

	"github.com/gofiber/websocket/v2"
	"github.com/studyorbit/squadsync-backend/internal/handlers/ws"
	"github.com/studyorbit/squadsync-backend/internal/service"
)

type WebSocketHandler struct {
	squadService   *service.SquadService
	chatService    *service.ChatService
	receiptBatcher *service.ReceiptBatcher
	hub            *ws.Hub
}

func NewWebSocketHandler(squadService *service.SquadService, chatService *service.ChatService, receiptBatcher *service.ReceiptBatcher, hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		squadService:   squadService,
		chatService:    chatService,
		receiptBatcher: receiptBatcher,
		hub:            hub,
	}
}

// GetHub returns the hub instance (useful for sending pushes from other handlers)
func (h *WebSocketHandler) GetHub() *ws.Hub {
	return h.hub
}

// HandleWebSocket runs the per-connection read loop. The connection is
// bound to the member's current squad at upgrade time; switching squads
// requires a reconnect.
func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	profileID := c.Locals("profileID").(uint)
	wsDebug := os.Getenv("WS_DEBUG") == "true"

	squad, err := h.squadService.GetSquadOfProfile(profileID)
	if err != nil || squad == nil {
		ws.SendError(c, "no_squad", "You must belong to a squad to connect", "")
		c.Close()
		return
	}
	squadID := squad.ID

	h.hub.Register(squadID, profileID, c)
	defer h.hub.Unregister(squadID, profileID)

	log.Printf("Profile %d connected via WebSocket (squad %d)", profileID, squadID)

	ctx := &ws.MessageContext{
		SquadID:        squadID,
		ProfileID:      profileID,
		Conn:           c,
		Hub:            h.hub,
		ChatService:    h.chatService,
		ReceiptBatcher: h.receiptBatcher,
	}

	for {
		messageType, messageBytes, err := c.ReadMessage()
		if err != nil {
			log.Printf("Error reading message from profile %d: %v", profileID, err)
			break
		}

		if wsDebug {
			log.Printf("ws_recv profile_id=%d frame_type=%d size=%d", profileID, messageType, len(messageBytes))
		}

		msg, err := ws.Deserialize(messageBytes)
		if err != nil {
			log.Printf("Error deserializing message from profile %d: %v", profileID, err)
			ws.SendError(c, "invalid_message", "Invalid message format", err.Error())
			continue
		}

		if err := msg.Process(ctx); err != nil {
			log.Printf("Error processing message %s from profile %d: %v", msg.GetType(), profileID, err)
			ws.SendError(c, "processing_failed", "Failed to process message", err.Error())
		}
	}

	log.Printf("Profile %d disconnected from WebSocket", profileID)
}
