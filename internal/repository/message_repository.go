package repository

import (
	"github.com/studyorbit/squadsync-backend/internal/models"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *models.ChatMessage) error {
	return r.db.Create(message).Error
}

func (r *MessageRepository) FindByID(id uint) (*models.ChatMessage, error) {
	var message models.ChatMessage
	err := r.db.Preload("Sender").First(&message, id).Error
	return &message, err
}

func (r *MessageRepository) FindByClientID(clientID string, senderID uint) (*models.ChatMessage, error) {
	var message models.ChatMessage
	err := r.db.Preload("Sender").
		Where("client_id = ? AND sender_id = ?", clientID, senderID).
		First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// FindSquadMessages returns the newest messages in chronological order.
// The fetch is descending with a limit, then reversed for display.
func (r *MessageRepository) FindSquadMessages(squadID uint, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.Preload("Sender").
		Where("squad_id = ?", squadID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error

	// Reverse to get chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, err
}

func (r *MessageRepository) DeleteBySquad(squadID uint) error {
	return r.db.Where("squad_id = ?", squadID).Delete(&models.ChatMessage{}).Error
}
