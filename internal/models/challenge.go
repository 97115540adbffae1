package models

import (
	"time"

	"gorm.io/gorm"
)

type ChallengeStatus string

const (
	ChallengeActive    ChallengeStatus = "active"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeExpired   ChallengeStatus = "expired"
)

// Challenge is a time-boxed squad exam event. ExpiresAt is stored for
// display, but deadline decisions recompute from CreatedAt plus the
// currently cached settings, so a settings change shifts in-flight
// deadlines.
type Challenge struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	SquadID   uint            `gorm:"not null;index" json:"squad_id"`
	ExamID    uint            `gorm:"not null" json:"exam_id"`
	CreatorID uint            `gorm:"not null" json:"creator_id"`
	ExpiresAt time.Time       `gorm:"not null" json:"expires_at"`
	Status    ChallengeStatus `gorm:"type:varchar(20);default:'active';index" json:"status"`

	// AwardedPoints is set exactly once, by whichever caller wins the
	// finalize race.
	AwardedPoints int        `gorm:"not null;default:0" json:"awarded_points"`
	FinalizedAt   *time.Time `json:"finalized_at"`

	Creator Profile `gorm:"foreignKey:CreatorID" json:"creator"`
}

func (c *Challenge) IsTerminal() bool {
	return c.Status != ChallengeActive
}

type ParticipantState string

const (
	ParticipantJoined   ParticipantState = "joined"
	ParticipantFinished ParticipantState = "finished"
)

// Participant is derived at read time by replaying the challenge's event
// log; it is never stored as its own row.
type Participant struct {
	ProfileID uint             `json:"profile_id"`
	State     ParticipantState `json:"state"`
	Score     int              `json:"score"`
}

type ChallengeProgress struct {
	ChallengeID       uint          `json:"challenge_id"`
	SquadID           uint          `json:"squad_id"`
	Participants      []Participant `json:"participants"`
	FinishedCount     int           `json:"finished_count"`
	RequiredFinishers int           `json:"required_finishers"`
	MemberCount       int           `json:"member_count"`
	Succeeded         bool          `json:"succeeded"`
	ExpiresAt         time.Time     `json:"expires_at"`
	GraceEndsAt       time.Time     `json:"grace_ends_at"`
}
