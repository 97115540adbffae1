package service

import (
	"github.com/google/uuid"
	"github.com/studyorbit/squadsync-backend/internal/cache"
	"github.com/studyorbit/squadsync-backend/internal/models"
	"github.com/studyorbit/squadsync-backend/internal/repository"
)

const chatHistoryLimit = 50

type ChatService struct {
	messageRepo repository.MessageRepositoryInterface
	eventRepo   repository.EventRepositoryInterface
	squadRepo   repository.SquadRepositoryInterface
	squadCache  *cache.SquadCache
}

func NewChatService(
	messageRepo repository.MessageRepositoryInterface,
	eventRepo repository.EventRepositoryInterface,
	squadRepo repository.SquadRepositoryInterface,
	squadCache *cache.SquadCache,
) *ChatService {
	return &ChatService{
		messageRepo: messageRepo,
		eventRepo:   eventRepo,
		squadRepo:   squadRepo,
		squadCache:  squadCache,
	}
}

// Send appends a chat message and returns the stored row. The caller
// re-renders from the returned row; there is no optimistic append.
func (s *ChatService) Send(squadID, senderID uint, clientID, content string) (*models.ChatMessage, error) {
	isMember, err := s.squadRepo.IsMember(squadID, senderID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotMember
	}

	// Resend with a known client id returns the original row. Clients
	// that omit the id get a server-side one so repeated blanks never
	// collide on the (client_id, sender_id) unique index.
	if clientID == "" {
		clientID = uuid.NewString()
	} else if existing, err := s.messageRepo.FindByClientID(clientID, senderID); err == nil {
		return existing, nil
	}

	message := &models.ChatMessage{
		ClientID: clientID,
		SquadID:  squadID,
		SenderID: senderID,
		Content:  content,
	}
	if err := s.messageRepo.Create(message); err != nil {
		return nil, err
	}

	_ = s.squadCache.InvalidateChatHistory(squadID)

	return s.messageRepo.FindByID(message.ID)
}

// History returns the newest messages in ascending order for display.
// Only human chat appears here; structured events are fetched separately.
func (s *ChatService) History(squadID uint) ([]models.ChatMessage, error) {
	if cached, ok := s.squadCache.GetChatHistory(squadID); ok {
		return cached, nil
	}

	messages, err := s.messageRepo.FindSquadMessages(squadID, chatHistoryLimit)
	if err != nil {
		return nil, err
	}
	if len(messages) > 0 {
		_ = s.squadCache.SetChatHistory(squadID, messages)
	}
	return messages, nil
}

// ClearChat mass-deletes a squad's messages. Admin only.
func (s *ChatService) ClearChat(squadID, byID uint) error {
	role, err := s.squadRepo.GetMemberRole(squadID, byID)
	if err != nil {
		return err
	}
	if role != models.RoleAdmin && role != models.RoleOwner {
		return ErrForbidden
	}
	if err := s.messageRepo.DeleteBySquad(squadID); err != nil {
		return err
	}
	return s.squadCache.InvalidateChatHistory(squadID)
}

// Announcements returns recent exam announcement events; each carries
// its own deadline of CreatedAt plus the join window, computed by the
// caller against live settings.
func (s *ChatService) Announcements(squadID uint, limit int) ([]models.SquadEvent, error) {
	if limit <= 0 || limit > 20 {
		limit = 5
	}
	events, _, err := s.squadCache.AnnouncementsSWR(squadID, limit, func() ([]models.SquadEvent, error) {
		return s.eventRepo.FindAnnouncements(squadID, limit)
	})
	return events, err
}
