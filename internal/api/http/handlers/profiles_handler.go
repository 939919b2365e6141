package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/procurekit/procurement-service/internal/api/dto"
	"github.com/procurekit/procurement-service/internal/domain"
	"github.com/procurekit/procurement-service/internal/service"
	apperrors "github.com/procurekit/procurement-service/pkg/util/errorutil"
)

// ProfilesHandler exposes profile listing, switching and who-acts lookups.
type ProfilesHandler struct {
	auth        *service.AuthService
	assignments *service.AssignmentService
}

// NewProfilesHandler constructs handler.
func NewProfilesHandler(authService *service.AuthService, assignments *service.AssignmentService) *ProfilesHandler {
	return &ProfilesHandler{auth: authService, assignments: assignments}
}

// Me GET /auth/me.
func (h *ProfilesHandler) Me(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": profileResponse(principal.User)})
}

// ListProfiles GET /auth/profiles.
func (h *ProfilesHandler) ListProfiles(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	profiles, err := h.auth.ListProfiles(c.UserContext(), principal.Email)
	if err != nil {
		return err
	}
	items := make([]dto.ProfileResponse, 0, len(profiles))
	for i := range profiles {
		items = append(items, profileResponse(&profiles[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// SwitchProfile POST /auth/profiles/switch.
func (h *ProfilesHandler) SwitchProfile(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SwitchProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	issued, err := h.auth.SwitchProfile(c.UserContext(), principal.User, req.ProfileID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": authResponse(issued)})
}

// DevLogin POST /auth/dev-login.
func (h *ProfilesHandler) DevLogin(c *fiber.Ctx) error {
	var req dto.DevLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	issued, err := h.auth.DevLogin(c.UserContext(), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": authResponse(issued)})
}

// FlowAssignees GET /flow-assignees?team=.
func (h *ProfilesHandler) FlowAssignees(c *fiber.Ctx) error {
	team := domain.TeamName(strings.ToUpper(strings.TrimSpace(c.Query("team"))))
	assignees, err := h.assignments.FlowAssignees(c.UserContext(), team)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FlowAssigneesResponse{
		Team:           assignees.Team,
		Route:          assignees.Route,
		FunctionalHead: optionalProfile(assignees.FunctionalHead),
		L1Approver:     optionalProfile(assignees.L1Approver),
		CFO:            optionalProfile(assignees.CFO),
		CDO:            optionalProfile(assignees.CDO),
	}})
}

func authResponse(issued *service.IssuedToken) dto.AuthResponse {
	return dto.AuthResponse{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		Profile:   profileResponse(issued.Profile),
	}
}
