package repository

import (
	"github.com/studyorbit/squadsync-backend/internal/models"
	"gorm.io/gorm"
)

type SquadRepository struct {
	db *gorm.DB
}

func NewSquadRepository(db *gorm.DB) *SquadRepository {
	return &SquadRepository{db: db}
}

func (r *SquadRepository) Create(squad *models.Squad) error {
	return r.db.Create(squad).Error
}

func (r *SquadRepository) FindByID(id uint) (*models.Squad, error) {
	var squad models.Squad
	if err := r.db.Preload("Members.Profile").Preload("Owner").First(&squad, id).Error; err != nil {
		return nil, err
	}
	return &squad, nil
}

func (r *SquadRepository) FindByCodePrefix(prefix string, limit int) ([]models.Squad, error) {
	var squads []models.Squad
	err := r.db.Where("share_code LIKE ?", prefix+"%").
		Limit(limit).
		Preload("Owner").
		Find(&squads).Error
	return squads, err
}

func (r *SquadRepository) Rename(squadID uint, name string) error {
	return r.db.Model(&models.Squad{}).Where("id = ?", squadID).Update("name", name).Error
}

func (r *SquadRepository) TransferOwnership(squadID, newOwnerID uint) error {
	return r.db.Model(&models.Squad{}).Where("id = ?", squadID).Update("owner_id", newOwnerID).Error
}

func (r *SquadRepository) AddPoints(squadID uint, delta int) error {
	return r.db.Model(&models.Squad{}).Where("id = ?", squadID).
		Update("points", gorm.Expr("points + ?", delta)).Error
}

func (r *SquadRepository) AddMember(squadID, profileID uint, role models.SquadRole) error {
	member := models.SquadMember{
		SquadID:   squadID,
		ProfileID: profileID,
		Role:      role,
	}
	return r.db.Create(&member).Error
}

func (r *SquadRepository) RemoveMember(squadID, profileID uint) error {
	return r.db.Where("squad_id = ? AND profile_id = ?", squadID, profileID).Delete(&models.SquadMember{}).Error
}

func (r *SquadRepository) GetMembers(squadID uint) ([]models.Profile, error) {
	var members []models.Profile
	err := r.db.Joins("JOIN squad_members ON squad_members.profile_id = profiles.id").
		Where("squad_members.squad_id = ?", squadID).
		Find(&members).Error
	return members, err
}

func (r *SquadRepository) CountMembers(squadID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.SquadMember{}).Where("squad_id = ?", squadID).Count(&count).Error
	return count, err
}

func (r *SquadRepository) IsMember(squadID, profileID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.SquadMember{}).
		Where("squad_id = ? AND profile_id = ?", squadID, profileID).
		Count(&count).Error
	return count > 0, err
}

func (r *SquadRepository) GetMemberRole(squadID, profileID uint) (models.SquadRole, error) {
	var member models.SquadMember
	if err := r.db.Where("squad_id = ? AND profile_id = ?", squadID, profileID).First(&member).Error; err != nil {
		return "", err
	}
	return member.Role, nil
}

func (r *SquadRepository) FindSquadOfProfile(profileID uint) (*models.Squad, error) {
	var squad models.Squad
	err := r.db.Joins("JOIN squad_members ON squad_members.squad_id = squads.id").
		Where("squad_members.profile_id = ?", profileID).
		Preload("Owner").
		First(&squad).Error
	if err != nil {
		return nil, err
	}
	return &squad, nil
}

// DeleteCascade removes a squad and everything hanging off it in one
// transaction: members, chat, receipts, events, challenges, pomodoro.
func (r *SquadRepository) DeleteCascade(squadID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			DELETE FROM read_receipts
			WHERE message_id IN (SELECT id FROM chat_messages WHERE squad_id = ?)
		`, squadID).Error; err != nil {
			return err
		}
		if err := tx.Where("squad_id = ?", squadID).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("squad_id = ?", squadID).Delete(&models.SquadEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("squad_id = ?", squadID).Delete(&models.Challenge{}).Error; err != nil {
			return err
		}
		if err := tx.Where("squad_id = ?", squadID).Delete(&models.PomodoroSession{}).Error; err != nil {
			return err
		}
		if err := tx.Where("squad_id = ?", squadID).Delete(&models.SquadMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Squad{}, squadID).Error
	})
}
