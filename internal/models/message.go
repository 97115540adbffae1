package models

import (
	"time"

	"gorm.io/gorm"
)

// ChatMessage is a plain human-readable squad chat row. Machine events
// (challenge joins, finishes, announcements) never appear here; they live
// in the squad_events table as structured rows.
type ChatMessage struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// ClientID deduplicates resends from flaky connections.
	ClientID string `gorm:"type:varchar(36);uniqueIndex:idx_client_sender;not null" json:"client_id"`

	SquadID  uint    `gorm:"not null;index" json:"squad_id"`
	SenderID uint    `gorm:"not null;uniqueIndex:idx_client_sender;index" json:"sender_id"`
	Sender   Profile `gorm:"foreignKey:SenderID" json:"sender"`

	Content string `gorm:"type:text;not null" json:"content"`
}

type ChatMessageResponse struct {
	ID        uint            `json:"id"`
	ClientID  string          `json:"client_id"`
	SquadID   uint            `json:"squad_id"`
	SenderID  uint            `json:"sender_id"`
	Sender    ProfileResponse `json:"sender"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

func (m *ChatMessage) ToResponse() ChatMessageResponse {
	return ChatMessageResponse{
		ID:        m.ID,
		ClientID:  m.ClientID,
		SquadID:   m.SquadID,
		SenderID:  m.SenderID,
		Sender:    m.Sender.ToResponse(),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

// ReadReceipt marks a message as seen by a profile. Rows are written in
// debounced batches; the composite primary key makes the batch upsert
// idempotent (ON CONFLICT DO NOTHING).
type ReadReceipt struct {
	MessageID uint      `gorm:"primaryKey" json:"message_id"`
	ProfileID uint      `gorm:"primaryKey" json:"profile_id"`
	CreatedAt time.Time `json:"created_at"`
}
