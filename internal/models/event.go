package models

import "time"

type EventKind string

const (
	EventJoin         EventKind = "join"
	EventFinish       EventKind = "finish"
	EventAnnouncement EventKind = "announcement"
)

// SquadEvent is the structured event log that replaces sentinel strings
// embedded in chat text. Append-only; rows are never mutated.
//
// Kind-specific fields:
//   - join: ChallengeID
//   - finish: ChallengeID, Score
//   - announcement: ExamID, optional ChallengeID
type SquadEvent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	SquadID     uint      `gorm:"not null;index" json:"squad_id"`
	ActorID     uint      `gorm:"not null" json:"actor_id"`
	Kind        EventKind `gorm:"type:varchar(20);not null" json:"kind"`
	ChallengeID *uint     `gorm:"index" json:"challenge_id"`
	ExamID      *uint     `json:"exam_id"`
	Score       *int      `json:"score"`

	Actor Profile `gorm:"foreignKey:ActorID" json:"actor"`
}
