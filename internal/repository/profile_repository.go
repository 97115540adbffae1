package repository

import (
	"time"

	"github.com/studyorbit/squadsync-backend/internal/models"
	"gorm.io/gorm"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Create(profile *models.Profile) error {
	return r.db.Create(profile).Error
}

func (r *ProfileRepository) FindByID(id uint) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.First(&profile, id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) FindByUsername(username string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.Where("LOWER(username) = LOWER(?)", username).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) TouchLastActive(profileID uint, at time.Time) error {
	return r.db.Model(&models.Profile{}).Where("id = ?", profileID).
		Update("last_active_at", at).Error
}
