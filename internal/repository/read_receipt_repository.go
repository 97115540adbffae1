package repository

import (
	"strings"

	"github.com/studyorbit/squadsync-backend/internal/models"
	"gorm.io/gorm"
)

type ReadReceiptRepository struct {
	db *gorm.DB
}

func NewReadReceiptRepository(db *gorm.DB) *ReadReceiptRepository {
	return &ReadReceiptRepository{db: db}
}

// UpsertBatch writes all queued receipts in a single statement. The
// composite primary key absorbs duplicates, so flushing the same pair
// twice is a no-op.
func (r *ReadReceiptRepository) UpsertBatch(receipts []models.ReadReceipt) error {
	if len(receipts) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(receipts))
	args := make([]interface{}, 0, len(receipts)*2)
	for _, rec := range receipts {
		placeholders = append(placeholders, "(?, ?, NOW())")
		args = append(args, rec.MessageID, rec.ProfileID)
	}

	query := `
		INSERT INTO read_receipts (message_id, profile_id, created_at)
		VALUES ` + strings.Join(placeholders, ", ") + `
		ON CONFLICT (message_id, profile_id) DO NOTHING
	`
	return r.db.Exec(query, args...).Error
}

func (r *ReadReceiptRepository) ListByProfile(squadID, profileID uint) ([]models.ReadReceipt, error) {
	var receipts []models.ReadReceipt
	err := r.db.
		Joins("JOIN chat_messages ON chat_messages.id = read_receipts.message_id").
		Where("chat_messages.squad_id = ? AND read_receipts.profile_id = ?", squadID, profileID).
		Find(&receipts).Error
	return receipts, err
}

func (r *ReadReceiptRepository) CountForMessage(messageID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.ReadReceipt{}).Where("message_id = ?", messageID).Count(&count).Error
	return count, err
}
