package repository

import (
	"time"

	"github.com/studyorbit/squadsync-backend/internal/models"
	"gorm.io/gorm"
)

type ChallengeRepository struct {
	db *gorm.DB
}

func NewChallengeRepository(db *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

func (r *ChallengeRepository) Create(challenge *models.Challenge) error {
	return r.db.Create(challenge).Error
}

func (r *ChallengeRepository) FindByID(id uint) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := r.db.Preload("Creator").First(&challenge, id).Error; err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (r *ChallengeRepository) FindActiveBySquad(squadID uint) (*models.Challenge, error) {
	var challenge models.Challenge
	err := r.db.Where("squad_id = ? AND status = ?", squadID, models.ChallengeActive).
		First(&challenge).Error
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

// FindExpiredActive lists active challenges created before deadline,
// i.e. past their join window plus grace at the caller's clock.
func (r *ChallengeRepository) FindExpiredActive(deadline time.Time, limit int) ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := r.db.Where("status = ? AND created_at < ?", models.ChallengeActive, deadline).
		Order("created_at ASC").
		Limit(limit).
		Find(&challenges).Error
	return challenges, err
}

// FinalizeIfActive performs the at-most-once transition out of the active
// state. The WHERE clause on status is the only mutual exclusion: when a
// concurrent caller got there first, zero rows match and false is
// returned, which callers treat as a benign conflict.
func (r *ChallengeRepository) FinalizeIfActive(challengeID uint, status models.ChallengeStatus, points int, at time.Time) (bool, error) {
	result := r.db.Model(&models.Challenge{}).
		Where("id = ? AND status = ?", challengeID, models.ChallengeActive).
		Updates(map[string]interface{}{
			"status":         status,
			"awarded_points": points,
			"finalized_at":   at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
