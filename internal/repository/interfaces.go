package repository

import (
	"time"

	"github.com/studyorbit/squadsync-backend/internal/models"
)

// ProfileRepositoryInterface defines the contract for profile repository operations
type ProfileRepositoryInterface interface {
	Create(profile *models.Profile) error
	FindByID(id uint) (*models.Profile, error)
	FindByUsername(username string) (*models.Profile, error)
	TouchLastActive(profileID uint, at time.Time) error
}

// SquadRepositoryInterface defines the contract for squad repository operations
type SquadRepositoryInterface interface {
	Create(squad *models.Squad) error
	FindByID(id uint) (*models.Squad, error)
	FindByCodePrefix(prefix string, limit int) ([]models.Squad, error)
	Rename(squadID uint, name string) error
	TransferOwnership(squadID, newOwnerID uint) error
	AddPoints(squadID uint, delta int) error
	AddMember(squadID, profileID uint, role models.SquadRole) error
	RemoveMember(squadID, profileID uint) error
	GetMembers(squadID uint) ([]models.Profile, error)
	CountMembers(squadID uint) (int64, error)
	IsMember(squadID, profileID uint) (bool, error)
	GetMemberRole(squadID, profileID uint) (models.SquadRole, error)
	FindSquadOfProfile(profileID uint) (*models.Squad, error)
	DeleteCascade(squadID uint) error
}

// MessageRepositoryInterface defines the contract for chat message repository operations
type MessageRepositoryInterface interface {
	Create(message *models.ChatMessage) error
	FindByID(id uint) (*models.ChatMessage, error)
	FindByClientID(clientID string, senderID uint) (*models.ChatMessage, error)
	FindSquadMessages(squadID uint, limit int) ([]models.ChatMessage, error)
	DeleteBySquad(squadID uint) error
}

// ReadReceiptRepositoryInterface defines the contract for read receipt operations
type ReadReceiptRepositoryInterface interface {
	UpsertBatch(receipts []models.ReadReceipt) error
	ListByProfile(squadID, profileID uint) ([]models.ReadReceipt, error)
	CountForMessage(messageID uint) (int64, error)
}

// EventRepositoryInterface defines the contract for squad event log operations
type EventRepositoryInterface interface {
	Append(event *models.SquadEvent) error
	FindByChallenge(challengeID uint) ([]models.SquadEvent, error)
	FindAnnouncements(squadID uint, limit int) ([]models.SquadEvent, error)
}

// ChallengeRepositoryInterface defines the contract for challenge repository operations
type ChallengeRepositoryInterface interface {
	Create(challenge *models.Challenge) error
	FindByID(id uint) (*models.Challenge, error)
	FindActiveBySquad(squadID uint) (*models.Challenge, error)
	FindExpiredActive(deadline time.Time, limit int) ([]models.Challenge, error)
	// FinalizeIfActive flips status away from active exactly once.
	// Returns false when a concurrent caller already finalized.
	FinalizeIfActive(challengeID uint, status models.ChallengeStatus, points int, at time.Time) (bool, error)
}

// PomodoroRepositoryInterface defines the contract for pomodoro session operations
type PomodoroRepositoryInterface interface {
	Upsert(session *models.PomodoroSession) error
	FindBySquad(squadID uint) (*models.PomodoroSession, error)
	MarkFinished(squadID uint) error
}

// SettingsRepositoryInterface defines the contract for global settings operations
type SettingsRepositoryInterface interface {
	Get() (*models.SquadSettings, error)
	Save(settings *models.SquadSettings) error
}
