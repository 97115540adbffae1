package repository

import (
	"github.com/studyorbit/squadsync-backend/internal/models"
	"gorm.io/gorm"
)

type PomodoroRepository struct {
	db *gorm.DB
}

func NewPomodoroRepository(db *gorm.DB) *PomodoroRepository {
	return &PomodoroRepository{db: db}
}

// Upsert overwrites the squad's single session row in place.
func (r *PomodoroRepository) Upsert(session *models.PomodoroSession) error {
	return r.db.Exec(`
		INSERT INTO pomodoro_sessions (squad_id, starter_id, status, started_at, duration, updated_at)
		VALUES (?, ?, ?, ?, ?, NOW())
		ON CONFLICT (squad_id) DO UPDATE
		SET starter_id = EXCLUDED.starter_id,
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			duration = EXCLUDED.duration,
			updated_at = NOW()
	`, session.SquadID, session.StarterID, session.Status, session.StartedAt, session.Duration).Error
}

func (r *PomodoroRepository) FindBySquad(squadID uint) (*models.PomodoroSession, error) {
	var session models.PomodoroSession
	err := r.db.Where("squad_id = ?", squadID).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *PomodoroRepository) MarkFinished(squadID uint) error {
	return r.db.Model(&models.PomodoroSession{}).
		Where("squad_id = ?", squadID).
		Update("status", models.PomodoroFinished).Error
}
