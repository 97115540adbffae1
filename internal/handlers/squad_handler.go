package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/studyorbit/squadsync-backend/internal/cache"
	"github.com/studyorbit/squadsync-backend/internal/httpx"
	"github.com/studyorbit/squadsync-backend/internal/models"
	"github.com/studyorbit/squadsync-backend/internal/service"
	"github.com/studyorbit/squadsync-backend/internal/validation"
	"gorm.io/gorm"
)

type SquadHandler struct {
	squadService *service.SquadService
	squadCache   *cache.SquadCache
}

func NewSquadHandler(squadService *service.SquadService, squadCache *cache.SquadCache) *SquadHandler {
	return &SquadHandler{squadService: squadService, squadCache: squadCache}
}

type CreateSquadRequest struct {
	Name      string `json:"name"`
	IsPrivate bool   `json:"is_private"`
}

func (h *SquadHandler) CreateSquad(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var req CreateSquadRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if !validation.ValidateSquadName(req.Name) {
		return httpx.BadRequest(c, "invalid_name", "Squad name must be 2-100 characters")
	}

	squad, err := h.squadService.CreateSquad(req.Name, profileID, req.IsPrivate)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyInSquad) {
			return httpx.Conflict(c, "already_in_squad", "You already belong to a squad")
		}
		return httpx.Internal(c, "create_squad_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(squad.ToResponse())
}

func (h *SquadHandler) GetMySquad(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	squad, err := h.squadService.GetSquadOfProfile(profileID)
	if err != nil {
		return httpx.Internal(c, "fetch_squad_failed")
	}
	if squad == nil {
		return httpx.NotFound(c, "no_squad", "You do not belong to a squad")
	}
	return c.JSON(squad.ToResponse())
}

func (h *SquadHandler) GetSquad(c *fiber.Ctx) error {
	squadID, err := parseID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_squad_id", "Invalid squad ID")
	}

	squad, err := h.squadService.GetSquad(squadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.NotFound(c, "squad_not_found", "Squad not found")
		}
		return httpx.Internal(c, "fetch_squad_failed")
	}
	return c.JSON(squad.ToResponse())
}

// SearchByCode is the share-code prefix lookup used by the join flow.
func (h *SquadHandler) SearchByCode(c *fiber.Ctx) error {
	prefix := c.Query("code")
	if !validation.ValidateShareCodePrefix(prefix) {
		return httpx.BadRequest(c, "invalid_code", "Invalid share code")
	}

	squads, err := h.squadService.SearchByCode(prefix, 10)
	if err != nil {
		return httpx.Internal(c, "search_failed")
	}

	responses := make([]models.SquadResponse, 0, len(squads))
	for i := range squads {
		responses = append(responses, squads[i].ToResponse())
	}
	return c.JSON(fiber.Map{"squads": responses, "count": len(responses)})
}

func (h *SquadHandler) JoinSquad(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	squadID, err := parseID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_squad_id", "Invalid squad ID")
	}

	if err := h.squadService.JoinSquad(squadID, profileID); err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyInSquad):
			return httpx.Conflict(c, "already_in_squad", "You already belong to a squad")
		case errors.Is(err, service.ErrSquadFull):
			return httpx.Conflict(c, "squad_full", "Squad is full")
		case errors.Is(err, gorm.ErrRecordNotFound):
			return httpx.NotFound(c, "squad_not_found", "Squad not found")
		default:
			return httpx.Internal(c, "join_squad_failed")
		}
	}

	_ = h.squadCache.InvalidateMemberList(squadID)
	return c.JSON(fiber.Map{"message": "Joined squad successfully"})
}

func (h *SquadHandler) LeaveSquad(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	squadID, err := parseID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_squad_id", "Invalid squad ID")
	}

	if err := h.squadService.LeaveSquad(squadID, profileID); err != nil {
		return httpx.Internal(c, "leave_squad_failed")
	}

	_ = h.squadCache.InvalidateMemberList(squadID)
	return c.JSON(fiber.Map{"message": "Left squad successfully"})
}

func (h *SquadHandler) KickMember(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	squadID, err := parseID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_squad_id", "Invalid squad ID")
	}
	targetID, err := parseID(c, "member_id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_member_id", "Invalid member ID")
	}

	if err := h.squadService.KickMember(squadID, profileID, targetID); err != nil {
		if errors.Is(err, service.ErrForbidden) {
			return httpx.Forbidden(c, "forbidden", "Only squad admins can kick members")
		}
		return httpx.Internal(c, "kick_member_failed")
	}

	_ = h.squadCache.InvalidateMemberList(squadID)
	return c.JSON(fiber.Map{"message": "Member removed"})
}

type RenameSquadRequest struct {
	Name string `json:"name"`
}

func (h *SquadHandler) RenameSquad(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	squadID, err := parseID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_squad_id", "Invalid squad ID")
	}

	var req RenameSquadRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if !validation.ValidateSquadName(req.Name) {
		return httpx.BadRequest(c, "invalid_name", "Squad name must be 2-100 characters")
	}

	if err := h.squadService.RenameSquad(squadID, profileID, req.Name); err != nil {
		if errors.Is(err, service.ErrForbidden) {
			return httpx.Forbidden(c, "forbidden", "Only squad admins can rename")
		}
		return httpx.Internal(c, "rename_squad_failed")
	}
	return c.JSON(fiber.Map{"message": "Squad renamed"})
}

type TransferOwnershipRequest struct {
	NewOwnerID uint `json:"new_owner_id"`
}

func (h *SquadHandler) TransferOwnership(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	squadID, err := parseID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_squad_id", "Invalid squad ID")
	}

	var req TransferOwnershipRequest
	if err := c.BodyParser(&req); err != nil || req.NewOwnerID == 0 {
		return httpx.BadRequest(c, "invalid_request_body", "new_owner_id is required")
	}

	if err := h.squadService.TransferOwnership(squadID, profileID, req.NewOwnerID); err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			return httpx.Forbidden(c, "forbidden", "Only the owner can transfer ownership")
		case errors.Is(err, service.ErrNotMember):
			return httpx.BadRequest(c, "not_member", "New owner must be a squad member")
		default:
			return httpx.Internal(c, "transfer_failed")
		}
	}
	return c.JSON(fiber.Map{"message": "Ownership transferred"})
}

func (h *SquadHandler) DeleteSquad(c *fiber.Ctx) error {
	profileID, err := httpx.LocalUint(c, "profileID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	squadID, err := parseID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_squad_id", "Invalid squad ID")
	}

	if err := h.squadService.DeleteSquad(squadID, profileID); err != nil {
		if errors.Is(err, service.ErrForbidden) {
			return httpx.Forbidden(c, "forbidden", "Only the owner can delete the squad")
		}
		return httpx.Internal(c, "delete_squad_failed")
	}

	_ = h.squadCache.InvalidateMemberList(squadID)
	_ = h.squadCache.InvalidateChatHistory(squadID)
	return c.JSON(fiber.Map{"message": "Squad deleted"})
}

func (h *SquadHandler) GetMembers(c *fiber.Ctx) error {
	squadID, err := parseID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_squad_id", "Invalid squad ID")
	}

	if cached, ok := h.squadCache.GetMemberList(squadID); ok {
		return c.JSON(toProfileResponses(cached))
	}

	members, err := h.squadService.GetMembers(squadID)
	if err != nil {
		return httpx.Internal(c, "fetch_members_failed")
	}
	if len(members) > 0 {
		_ = h.squadCache.SetMemberList(squadID, members)
	}
	return c.JSON(toProfileResponses(members))
}

func toProfileResponses(profiles []models.Profile) []models.ProfileResponse {
	responses := make([]models.ProfileResponse, 0, len(profiles))
	for i := range profiles {
		responses = append(responses, profiles[i].ToResponse())
	}
	return responses
}

func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 32)
	return uint(id), err
}
