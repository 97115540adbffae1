package service

import (
	"errors"
	"time"

	"github.com/studyorbit/squadsync-backend/internal/models"
	"github.com/studyorbit/squadsync-backend/internal/repository"
	"gorm.io/gorm"
)

type PomodoroService struct {
	pomodoroRepo repository.PomodoroRepositoryInterface
	squadRepo    repository.SquadRepositoryInterface

	now func() time.Time
}

func NewPomodoroService(
	pomodoroRepo repository.PomodoroRepositoryInterface,
	squadRepo repository.SquadRepositoryInterface,
) *PomodoroService {
	return &PomodoroService{
		pomodoroRepo: pomodoroRepo,
		squadRepo:    squadRepo,
		now:          time.Now,
	}
}

// Start overwrites the squad's session row in place; there is exactly
// one shared timer per squad and no history.
func (s *PomodoroService) Start(squadID, starterID uint, duration time.Duration) (*models.PomodoroSession, error) {
	isMember, err := s.squadRepo.IsMember(squadID, starterID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotMember
	}

	session := &models.PomodoroSession{
		SquadID:   squadID,
		StarterID: starterID,
		Status:    models.PomodoroRunning,
		StartedAt: s.now(),
		Duration:  duration,
	}
	if err := s.pomodoroRepo.Upsert(session); err != nil {
		return nil, err
	}
	return s.pomodoroRepo.FindBySquad(squadID)
}

// Snapshot reconstructs the viewer-facing state. A session whose end
// already passed is reported finished immediately; remaining never goes
// negative.
func (s *PomodoroService) Snapshot(squadID uint) (*models.PomodoroSnapshot, error) {
	session, err := s.pomodoroRepo.FindBySquad(squadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}

	remaining := session.StartedAt.Add(session.Duration).Sub(s.now())
	status := session.Status
	if remaining <= 0 {
		remaining = 0
		if status == models.PomodoroRunning {
			status = models.PomodoroFinished
			// Reconcile the row so later readers agree; best effort.
			_ = s.pomodoroRepo.MarkFinished(squadID)
			session.Status = status
		}
	}

	return &models.PomodoroSnapshot{
		SquadID:   session.SquadID,
		StarterID: session.StarterID,
		Status:    status,
		StartedAt: session.StartedAt,
		Duration:  session.Duration,
		Remaining: remaining,
		ChangeKey: session.ChangeKey(),
	}, nil
}

// Stop ends the session early. Only the starter or a squad admin/owner
// may stop; everyone else sees a disabled control client-side and a
// rejection here.
func (s *PomodoroService) Stop(squadID, byID uint) error {
	session, err := s.pomodoroRepo.FindBySquad(squadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoSession
		}
		return err
	}

	if session.StarterID != byID {
		role, err := s.squadRepo.GetMemberRole(squadID, byID)
		if err != nil {
			return err
		}
		if role != models.RoleAdmin && role != models.RoleOwner {
			return ErrForbidden
		}
	}

	return s.pomodoroRepo.MarkFinished(squadID)
}
