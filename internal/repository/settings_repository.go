package repository

import (
	"github.com/studyorbit/squadsync-backend/internal/models"
	"gorm.io/gorm"
)

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get() (*models.SquadSettings, error) {
	var settings models.SquadSettings
	if err := r.db.First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *SettingsRepository) Save(settings *models.SquadSettings) error {
	return r.db.Save(settings).Error
}
