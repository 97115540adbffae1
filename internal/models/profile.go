package models

import (
	"time"

	"gorm.io/gorm"
)

type Profile struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
	Role        string `gorm:"not null;default:user" json:"role"`

	// LastActiveAt is the durable "last seen" timestamp, written when a
	// member connects to a squad presence channel and re-persisted
	// periodically while connected. Offline members keep their last value.
	LastActiveAt *time.Time `json:"last_active_at"`
}

type ProfileResponse struct {
	ID           uint       `json:"id"`
	Username     string     `json:"username"`
	DisplayName  string     `json:"display_name"`
	Avatar       string     `json:"avatar"`
	Role         string     `json:"role"`
	LastActiveAt *time.Time `json:"last_active_at"`
}

func (p *Profile) ToResponse() ProfileResponse {
	return ProfileResponse{
		ID:           p.ID,
		Username:     p.Username,
		DisplayName:  p.DisplayName,
		Avatar:       p.Avatar,
		Role:         p.Role,
		LastActiveAt: p.LastActiveAt,
	}
}
