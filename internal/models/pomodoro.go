package models

import (
	"fmt"
	"time"
)

type PomodoroStatus string

const (
	PomodoroRunning  PomodoroStatus = "running"
	PomodoroFinished PomodoroStatus = "finished"
)

// PomodoroSession is the single shared study timer per squad. Starting a
// new session overwrites the existing row; there is no history.
type PomodoroSession struct {
	SquadID   uint           `gorm:"primaryKey" json:"squad_id"`
	StarterID uint           `gorm:"not null" json:"starter_id"`
	Status    PomodoroStatus `gorm:"type:varchar(20);default:'running'" json:"status"`
	StartedAt time.Time      `gorm:"not null" json:"started_at"`
	Duration  time.Duration  `gorm:"not null" json:"duration"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ChangeKey is a composite of the fields that matter to a viewer. Pollers
// compare keys to avoid restarting local timers when nothing changed.
func (p *PomodoroSession) ChangeKey() string {
	return fmt.Sprintf("%d:%d:%s", p.StartedAt.UnixNano(), p.Duration, p.Status)
}

type PomodoroSnapshot struct {
	SquadID   uint           `json:"squad_id"`
	StarterID uint           `json:"starter_id"`
	Status    PomodoroStatus `json:"status"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Remaining time.Duration  `json:"remaining"`
	ChangeKey string         `json:"change_key"`
}
