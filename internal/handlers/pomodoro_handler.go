package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/studyorbit/squadsync-backend/internal/handlers/ws"
	"github.com/studyorbit/squadsync-backend/internal/httpx"
	"github.com/studyorbit/squadsync-backend/internal/service"
	"github.com/studyorbit/squadsync-backend/internal/validation"
)

type PomodoroHandler struct {
	pomodoroService *service.PomodoroService
	hub             *ws.Hub
}

func NewPomodoroHandler(pomodoroService *service.PomodoroService, hub *ws.Hub) *PomodoroHandler {
	return &PomodoroHandler{pomodoroService: pomodoroService, hub: hub}
}

type StartPomodoroRequest struct {
	DurationMinutes int `json:"duration_minutes"`
}

// StartPomodoro starts (or restarts) the squad's shared timer and pushes
// the fresh snapshot to every connected member.
func (h *PomodoroHandler) StartPomodoro(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	squadID, err := parseID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_squad_id", "Invalid squad ID")
	}

	var req StartPomodoroRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	duration := time.Duration(req.DurationMinutes) * time.Minute
	if !validation.ValidatePomodoroDuration(duration) {
		return httpx.BadRequest(c, "invalid_duration", "Duration must be between 1 minute and 4 hours")
	}

	if _, err := h.pomodoroService.Start(squadID, profileID, duration); err != nil {
		if errors.Is(err, service.ErrNotMember) {
			return httpx.Forbidden(c, "not_member", "You are not a member of this squad")
		}
		return httpx.Internal(c, "start_pomodoro_failed")
	}

	h.broadcastSnapshot(squadID)
	snapshot, err := h.pomodoroService.Snapshot(squadID)
	if err != nil {
		return httpx.Internal(c, "fetch_pomodoro_failed")
	}
	return c.Status(fiber.StatusCreated).JSON(snapshot)
}

// GetPomodoro is the reconciliation read used on connect and after
// missed pushes. 404 means no session was ever started.
func (h *PomodoroHandler) GetPomodoro(c *fiber.Ctx) error {
	squadID, err := parseID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_squad_id", "Invalid squad ID")
	}

	snapshot, err := h.pomodoroService.Snapshot(squadID)
	if err != nil {
		if errors.Is(err, service.ErrNoSession) {
			return httpx.NotFound(c, "no_session", "No pomodoro session for this squad")
		}
		return httpx.Internal(c, "fetch_pomodoro_failed")
	}
	return c.JSON(snapshot)
}

func (h *PomodoroHandler) StopPomodoro(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	squadID, err := parseID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_squad_id", "Invalid squad ID")
	}

	if err := h.pomodoroService.Stop(squadID, profileID); err != nil {
		switch {
		case errors.Is(err, service.ErrNoSession):
			return httpx.NotFound(c, "no_session", "No pomodoro session for this squad")
		case errors.Is(err, service.ErrForbidden):
			return httpx.Forbidden(c, "forbidden", "Only the starter or an admin can stop the timer")
		default:
			return httpx.Internal(c, "stop_pomodoro_failed")
		}
	}

	h.broadcastSnapshot(squadID)
	return c.JSON(fiber.Map{"message": "Pomodoro stopped"})
}

func (h *PomodoroHandler) broadcastSnapshot(squadID uint) {
	snapshot, err := h.pomodoroService.Snapshot(squadID)
	if err != nil {
		return
	}
	h.hub.BroadcastToSquad(squadID, ws.Frame("pomodoro_update", snapshot))
}
