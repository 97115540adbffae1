package models

import (
	"time"

	"gorm.io/gorm"
)

type SquadRole string

const (
	RoleOwner  SquadRole = "owner"
	RoleAdmin  SquadRole = "admin"
	RoleMember SquadRole = "member"
)

type Squad struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name      string `gorm:"size:100;not null" json:"name"`
	ShareCode string `gorm:"size:16;uniqueIndex;not null" json:"share_code"`
	OwnerID   uint   `gorm:"not null" json:"owner_id"`
	Points    int    `gorm:"not null;default:0" json:"points"`
	IsPrivate bool   `gorm:"default:false" json:"is_private"`

	// Associations
	Owner   Profile       `gorm:"foreignKey:OwnerID" json:"owner"`
	Members []SquadMember `gorm:"foreignKey:SquadID" json:"members"`
}

// SquadMember is the (squad, profile) membership pair. A profile belongs
// to at most one squad; the uniqueIndex on ProfileID enforces that.
type SquadMember struct {
	SquadID   uint      `gorm:"primaryKey" json:"squad_id"`
	ProfileID uint      `gorm:"primaryKey;uniqueIndex:idx_member_profile" json:"profile_id"`
	Role      SquadRole `gorm:"type:varchar(20);default:'member'" json:"role"`
	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joined_at"`

	Profile Profile `gorm:"foreignKey:ProfileID" json:"profile"`
	Squad   Squad   `gorm:"foreignKey:SquadID" json:"-"`
}

type SquadResponse struct {
	ID          uint              `json:"id"`
	Name        string            `json:"name"`
	ShareCode   string            `json:"share_code"`
	OwnerID     uint              `json:"owner_id"`
	Points      int               `json:"points"`
	IsPrivate   bool              `json:"is_private"`
	MemberCount int               `json:"member_count"`
	Members     []ProfileResponse `json:"members,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (s *Squad) ToResponse() SquadResponse {
	resp := SquadResponse{
		ID:          s.ID,
		Name:        s.Name,
		ShareCode:   s.ShareCode,
		OwnerID:     s.OwnerID,
		Points:      s.Points,
		IsPrivate:   s.IsPrivate,
		MemberCount: len(s.Members),
		CreatedAt:   s.CreatedAt,
	}
	for _, m := range s.Members {
		resp.Members = append(resp.Members, m.Profile.ToResponse())
	}
	return resp
}
