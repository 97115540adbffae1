package service

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/studyorbit/squadsync-backend/internal/models"
	"github.com/studyorbit/squadsync-backend/internal/repository"
	"github.com/studyorbit/squadsync-backend/internal/settings"
	"gorm.io/gorm"
)

type SquadService struct {
	squadRepo   repository.SquadRepositoryInterface
	profileRepo repository.ProfileRepositoryInterface
	settings    *settings.Cache
}

func NewSquadService(
	squadRepo repository.SquadRepositoryInterface,
	profileRepo repository.ProfileRepositoryInterface,
	settingsCache *settings.Cache,
) *SquadService {
	return &SquadService{
		squadRepo:   squadRepo,
		profileRepo: profileRepo,
		settings:    settingsCache,
	}
}

func (s *SquadService) CreateSquad(name string, ownerID uint, isPrivate bool) (*models.Squad, error) {
	// One squad per profile, owners included.
	if _, err := s.squadRepo.FindSquadOfProfile(ownerID); err == nil {
		return nil, ErrAlreadyInSquad
	}

	squad := &models.Squad{
		Name:      name,
		ShareCode: generateShareCode(),
		OwnerID:   ownerID,
		IsPrivate: isPrivate,
	}

	if err := s.squadRepo.Create(squad); err != nil {
		return nil, err
	}

	if err := s.squadRepo.AddMember(squad.ID, ownerID, models.RoleOwner); err != nil {
		return nil, err
	}

	return s.squadRepo.FindByID(squad.ID)
}

func (s *SquadService) JoinSquad(squadID, profileID uint) error {
	if _, err := s.squadRepo.FindByID(squadID); err != nil {
		return err
	}

	// A profile belongs to at most one squad.
	if _, err := s.squadRepo.FindSquadOfProfile(profileID); err == nil {
		return ErrAlreadyInSquad
	}

	count, err := s.squadRepo.CountMembers(squadID)
	if err != nil {
		return err
	}
	if count >= int64(s.settings.Get().MaxMembers) {
		return ErrSquadFull
	}

	return s.squadRepo.AddMember(squadID, profileID, models.RoleMember)
}

func (s *SquadService) LeaveSquad(squadID, profileID uint) error {
	return s.squadRepo.RemoveMember(squadID, profileID)
}

func (s *SquadService) KickMember(squadID, byID, targetID uint) error {
	if err := s.requireAdmin(squadID, byID); err != nil {
		return err
	}
	return s.squadRepo.RemoveMember(squadID, targetID)
}

func (s *SquadService) RenameSquad(squadID, byID uint, name string) error {
	if err := s.requireAdmin(squadID, byID); err != nil {
		return err
	}
	return s.squadRepo.Rename(squadID, name)
}

func (s *SquadService) TransferOwnership(squadID, byID, newOwnerID uint) error {
	squad, err := s.squadRepo.FindByID(squadID)
	if err != nil {
		return err
	}
	if squad.OwnerID != byID {
		return ErrForbidden
	}
	isMember, err := s.squadRepo.IsMember(squadID, newOwnerID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrNotMember
	}
	return s.squadRepo.TransferOwnership(squadID, newOwnerID)
}

func (s *SquadService) DeleteSquad(squadID, byID uint) error {
	squad, err := s.squadRepo.FindByID(squadID)
	if err != nil {
		return err
	}
	if squad.OwnerID != byID {
		return ErrForbidden
	}
	return s.squadRepo.DeleteCascade(squadID)
}

func (s *SquadService) GetSquad(squadID uint) (*models.Squad, error) {
	return s.squadRepo.FindByID(squadID)
}

func (s *SquadService) GetSquadOfProfile(profileID uint) (*models.Squad, error) {
	squad, err := s.squadRepo.FindSquadOfProfile(profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return squad, nil
}

// SearchByCode finds squads whose share code starts with the given
// prefix, matched case-insensitively.
func (s *SquadService) SearchByCode(prefix string, limit int) ([]models.Squad, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return []models.Squad{}, nil
	}
	if limit <= 0 || limit > 20 {
		limit = 10
	}
	return s.squadRepo.FindByCodePrefix(prefix, limit)
}

func (s *SquadService) GetMembers(squadID uint) ([]models.Profile, error) {
	return s.squadRepo.GetMembers(squadID)
}

func (s *SquadService) IsMember(squadID, profileID uint) (bool, error) {
	return s.squadRepo.IsMember(squadID, profileID)
}

func (s *SquadService) IsAdmin(squadID, profileID uint) (bool, error) {
	role, err := s.squadRepo.GetMemberRole(squadID, profileID)
	if err != nil {
		return false, err
	}
	return role == models.RoleAdmin || role == models.RoleOwner, nil
}

func (s *SquadService) AddPoints(squadID uint, delta int) error {
	return s.squadRepo.AddPoints(squadID, delta)
}

func (s *SquadService) requireAdmin(squadID, profileID uint) error {
	isAdmin, err := s.IsAdmin(squadID, profileID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return ErrForbidden
	}
	return nil
}

func generateShareCode() string {
	id := uuid.NewString()
	return strings.ToUpper(strings.ReplaceAll(id, "-", "")[:8])
}
