package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/studyorbit/squadsync-backend/internal/httpx"
	"github.com/studyorbit/squadsync-backend/internal/models"
	"github.com/studyorbit/squadsync-backend/internal/repository"
	"github.com/studyorbit/squadsync-backend/internal/settings"
	"gorm.io/gorm"
)

// SettingsHandler exposes the global challenge-timing tunables. Reads
// go through the cache; writes hit the row directly and invalidate it.
type SettingsHandler struct {
	settingsRepo  repository.SettingsRepositoryInterface
	settingsCache *settings.Cache
}

func NewSettingsHandler(settingsRepo repository.SettingsRepositoryInterface, settingsCache *settings.Cache) *SettingsHandler {
	return &SettingsHandler{settingsRepo: settingsRepo, settingsCache: settingsCache}
}

func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	values := h.settingsCache.Get()
	return c.JSON(fiber.Map{
		"join_window_minutes":  int(values.JoinWindow.Minutes()),
		"grace_minutes":        int(values.GracePeriod.Minutes()),
		"max_members":          values.MaxMembers,
		"success_threshold_pc": values.SuccessThreshold,
	})
}

type UpdateSettingsRequest struct {
	JoinWindowMinutes  *int `json:"join_window_minutes"`
	GraceMinutes       *int `json:"grace_minutes"`
	MaxMembers         *int `json:"max_members"`
	SuccessThresholdPc *int `json:"success_threshold_pc"`
}

// UpdateSettings patches the singleton row, creating it on first write.
// Omitted fields keep their stored value. Route-level RBAC restricts
// this to platform admins.
func (h *SettingsHandler) UpdateSettings(c *fiber.Ctx) error {
	var req UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	row, err := h.settingsRepo.Get()
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Internal(c, "fetch_settings_failed")
		}
		row = &models.SquadSettings{
			JoinWindowMinutes:  int(settings.DefaultJoinWindow.Minutes()),
			GraceMinutes:       int(settings.DefaultGracePeriod.Minutes()),
			MaxMembers:         settings.DefaultMaxMembers,
			SuccessThresholdPc: settings.DefaultSuccessThreshold,
		}
	}

	if req.JoinWindowMinutes != nil {
		if *req.JoinWindowMinutes < 1 || *req.JoinWindowMinutes > 24*60 {
			return httpx.BadRequest(c, "invalid_join_window", "Join window must be 1-1440 minutes")
		}
		row.JoinWindowMinutes = *req.JoinWindowMinutes
	}
	if req.GraceMinutes != nil {
		if *req.GraceMinutes < 1 || *req.GraceMinutes > 24*60 {
			return httpx.BadRequest(c, "invalid_grace", "Grace period must be 1-1440 minutes")
		}
		row.GraceMinutes = *req.GraceMinutes
	}
	if req.MaxMembers != nil {
		if *req.MaxMembers < 2 || *req.MaxMembers > 100 {
			return httpx.BadRequest(c, "invalid_max_members", "Max members must be 2-100")
		}
		row.MaxMembers = *req.MaxMembers
	}
	if req.SuccessThresholdPc != nil {
		if *req.SuccessThresholdPc < 1 || *req.SuccessThresholdPc > 100 {
			return httpx.BadRequest(c, "invalid_threshold", "Success threshold must be 1-100 percent")
		}
		row.SuccessThresholdPc = *req.SuccessThresholdPc
	}

	if err := h.settingsRepo.Save(row); err != nil {
		return httpx.Internal(c, "save_settings_failed")
	}

	h.settingsCache.Invalidate()
	return c.JSON(row)
}
