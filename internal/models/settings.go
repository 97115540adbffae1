package models

import "time"

// SquadSettings is the single global tunables row. All squads read it
// through the settings cache; absence falls back to defaults.
type SquadSettings struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UpdatedAt time.Time `json:"updated_at"`

	JoinWindowMinutes  int `gorm:"not null;default:60" json:"join_window_minutes"`
	GraceMinutes       int `gorm:"not null;default:45" json:"grace_minutes"`
	MaxMembers         int `gorm:"not null;default:10" json:"max_members"`
	SuccessThresholdPc int `gorm:"not null;default:80" json:"success_threshold_pc"`
}
