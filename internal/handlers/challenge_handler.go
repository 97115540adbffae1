package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/studyorbit/squadsync-backend/internal/handlers/ws"
	"github.com/studyorbit/squadsync-backend/internal/httpx"
	"github.com/studyorbit/squadsync-backend/internal/service"
	"github.com/studyorbit/squadsync-backend/internal/validation"
	"gorm.io/gorm"
)

type ChallengeHandler struct {
	challengeService *service.ChallengeService
	hub              *ws.Hub
}

func NewChallengeHandler(challengeService *service.ChallengeService, hub *ws.Hub) *ChallengeHandler {
	return &ChallengeHandler{challengeService: challengeService, hub: hub}
}

type StartChallengeRequest struct {
	ExamID uint `json:"exam_id"`
}

func (h *ChallengeHandler) StartChallenge(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	squadID, err := parseID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_squad_id", "Invalid squad ID")
	}

	var req StartChallengeRequest
	if err := c.BodyParser(&req); err != nil || req.ExamID == 0 {
		return httpx.BadRequest(c, "missing_exam_id", "exam_id is required")
	}

	challenge, err := h.challengeService.Start(squadID, req.ExamID, profileID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChallengeActive):
			return httpx.Conflict(c, "challenge_active", "An active challenge already exists")
		case errors.Is(err, service.ErrNotMember):
			return httpx.Forbidden(c, "not_member", "You are not a member of this squad")
		default:
			return httpx.Internal(c, "start_challenge_failed")
		}
	}

	h.hub.BroadcastToSquad(squadID, ws.Frame("challenge_update", challenge))

	return c.Status(fiber.StatusCreated).JSON(challenge)
}

func (h *ChallengeHandler) GetActiveChallenge(c *fiber.Ctx) error {
	if _, err := httpx.LocalUint(c, "profileID"); err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	squadID, err := parseID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_squad_id", "Invalid squad ID")
	}

	challenge, err := h.challengeService.ActiveChallenge(squadID)
	if err != nil {
		return httpx.Internal(c, "fetch_challenge_failed")
	}
	if challenge == nil {
		return httpx.NotFound(c, "no_active_challenge", "No active challenge")
	}
	return c.JSON(challenge)
}

func (h *ChallengeHandler) JoinChallenge(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	challengeID, err := parseID(c, "challenge_id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_challenge_id", "Invalid challenge ID")
	}

	if err := h.challengeService.Join(challengeID, profileID); err != nil {
		switch {
		case errors.Is(err, service.ErrJoinClosed):
			return httpx.Conflict(c, "join_closed", "Joining closed for this challenge")
		case errors.Is(err, service.ErrChallengeEnded):
			return httpx.Conflict(c, "challenge_ended", "Challenge is no longer active")
		case errors.Is(err, service.ErrNotMember):
			return httpx.Forbidden(c, "not_member", "You are not a member of this squad")
		case errors.Is(err, gorm.ErrRecordNotFound):
			return httpx.NotFound(c, "challenge_not_found", "Challenge not found")
		default:
			return httpx.Internal(c, "join_challenge_failed")
		}
	}

	h.broadcastProgress(challengeID)
	return c.JSON(fiber.Map{"message": "Joined challenge"})
}

type FinishChallengeRequest struct {
	Score int `json:"score"`
}

func (h *ChallengeHandler) FinishChallenge(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	challengeID, err := parseID(c, "challenge_id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_challenge_id", "Invalid challenge ID")
	}

	var req FinishChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if !validation.ValidateScore(req.Score) {
		return httpx.BadRequest(c, "invalid_score", "Score must be between 0 and 100")
	}

	if err := h.challengeService.Finish(challengeID, profileID, req.Score); err != nil {
		switch {
		case errors.Is(err, service.ErrChallengeEnded):
			return httpx.Conflict(c, "challenge_ended", "Challenge is no longer active")
		case errors.Is(err, service.ErrNotMember):
			return httpx.Forbidden(c, "not_member", "You are not a member of this squad")
		case errors.Is(err, gorm.ErrRecordNotFound):
			return httpx.NotFound(c, "challenge_not_found", "Challenge not found")
		default:
			return httpx.Internal(c, "finish_challenge_failed")
		}
	}

	h.broadcastProgress(challengeID)
	return c.JSON(fiber.Map{"message": "Finish recorded"})
}

func (h *ChallengeHandler) GetProgress(c *fiber.Ctx) error {
	if _, err := httpx.LocalUint(c, "profileID"); err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	challengeID, err := parseID(c, "challenge_id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_challenge_id", "Invalid challenge ID")
	}

	progress, err := h.challengeService.Progress(challengeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.NotFound(c, "challenge_not_found", "Challenge not found")
		}
		return httpx.Internal(c, "fetch_progress_failed")
	}
	return c.JSON(progress)
}

// FinalizeChallenge is the client-observable finalize path. A losing
// race is reported as success: a peer already finalized.
func (h *ChallengeHandler) FinalizeChallenge(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	challengeID, err := parseID(c, "challenge_id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_challenge_id", "Invalid challenge ID")
	}

	challenge, err := h.challengeService.Finalize(challengeID, profileID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyFinalized):
			// Conflict-as-success: a concurrent caller got there first.
			return c.JSON(fiber.Map{"message": "Challenge already finalized"})
		case errors.Is(err, service.ErrTooEarly):
			return httpx.Conflict(c, "grace_not_ended", "Challenge cannot be finalized before the grace period ends")
		case errors.Is(err, service.ErrNotMember):
			return httpx.Forbidden(c, "not_member", "You are not a member of this squad")
		case errors.Is(err, gorm.ErrRecordNotFound):
			return httpx.NotFound(c, "challenge_not_found", "Challenge not found")
		default:
			return httpx.Internal(c, "finalize_failed")
		}
	}

	h.hub.BroadcastToSquad(challenge.SquadID, ws.Frame("challenge_update", challenge))
	return c.JSON(challenge)
}

func (h *ChallengeHandler) EndChallenge(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	challengeID, err := parseID(c, "challenge_id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_challenge_id", "Invalid challenge ID")
	}

	challenge, err := h.challengeService.ManualEnd(challengeID, profileID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			return httpx.Forbidden(c, "forbidden", "Only squad admins can end a challenge")
		case errors.Is(err, service.ErrAlreadyFinalized):
			return c.JSON(fiber.Map{"message": "Challenge already finalized"})
		case errors.Is(err, gorm.ErrRecordNotFound):
			return httpx.NotFound(c, "challenge_not_found", "Challenge not found")
		default:
			return httpx.Internal(c, "end_challenge_failed")
		}
	}

	h.hub.BroadcastToSquad(challenge.SquadID, ws.Frame("challenge_update", challenge))
	return c.JSON(challenge)
}

func (h *ChallengeHandler) GetSummary(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	challengeID, err := parseID(c, "challenge_id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_challenge_id", "Invalid challenge ID")
	}

	summary, err := h.challengeService.ObserveSummary(challengeID, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.NotFound(c, "challenge_not_found", "Challenge not found")
		}
		return httpx.Internal(c, "fetch_summary_failed")
	}
	return c.JSON(summary)
}

func (h *ChallengeHandler) broadcastProgress(challengeID uint) {
	progress, err := h.challengeService.Progress(challengeID)
	if err != nil {
		return
	}
	h.hub.BroadcastToSquad(progress.SquadID, ws.Frame("challenge_progress", progress))
}
