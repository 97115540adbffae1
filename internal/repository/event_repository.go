package repository

import (
	"github.com/studyorbit/squadsync-backend/internal/models"
	"gorm.io/gorm"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(event *models.SquadEvent) error {
	return r.db.Create(event).Error
}

func (r *EventRepository) FindByChallenge(challengeID uint) ([]models.SquadEvent, error) {
	var events []models.SquadEvent
	err := r.db.Where("challenge_id = ?", challengeID).
		Order("created_at ASC, id ASC").
		Find(&events).Error
	return events, err
}

func (r *EventRepository) FindAnnouncements(squadID uint, limit int) ([]models.SquadEvent, error) {
	var events []models.SquadEvent
	err := r.db.Preload("Actor").
		Where("squad_id = ? AND kind = ?", squadID, models.EventAnnouncement).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
