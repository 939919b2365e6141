package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/procurekit/procurement-service/internal/api/dto"
	"github.com/procurekit/procurement-service/internal/auth"
	"github.com/procurekit/procurement-service/internal/domain"
	"github.com/procurekit/procurement-service/internal/service"
	"github.com/procurekit/procurement-service/internal/workflow"
	apperrors "github.com/procurekit/procurement-service/pkg/util/errorutil"
)

const maxPageSize = 100

// TicketsHandler manages procurement ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	input := service.TicketCreateInput{
		TeamName:    domain.TeamName(req.TeamName),
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.TicketPriority(req.Priority),
		Details: domain.ProcurementDetails{
			RequesterName:        strings.TrimSpace(req.RequesterName),
			Department:           strings.TrimSpace(req.Department),
			ComponentDescription: req.ComponentDescription,
			BOMID:                req.BOMID,
			ProductID:            req.ProductID,
			ItemName:             req.ItemName,
			ProjectCustomer:      req.ProjectCustomer,
			NeedByDate:           parseDate(req.NeedByDate),
			ChargeCode:           req.ChargeCode,
			EstimatedCost:        req.EstimatedCost,
			Rate:                 req.Rate,
			Unit:                 req.Unit,
			EstimatedPODate:      parseDate(req.EstimatedPODate),
			PlaceOfDelivery:      req.PlaceOfDelivery,
			Quantity:             req.Quantity,
			DealName:             req.DealName,
		},
	}
	if req.CostCurrency != nil {
		currency := domain.CostCurrency(*req.CostCurrency)
		input.Details.CostCurrency = &currency
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), principal.User, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), principal.User, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateTicket PATCH /tickets/:id is the only way to move a ticket through the workflow.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	ticket, err := h.service.Transition(c.UserContext(), principal.User, c.Params("id"), workflow.Action(req.Action), req.Remarks)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListApprovals GET /tickets/:id/approvals.
func (h *TicketsHandler) ListApprovals(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	logs, err := h.service.ListApprovals(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": approvalResponses(logs)})
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{}
	for _, part := range splitList(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(part))
	}
	for _, part := range splitList(c.Query("priority")) {
		p := domain.TicketPriority(part)
		if p.Rank() < 0 {
			return filter, apperrors.NewValidationError("unknown priority", map[string]any{"priority": part})
		}
		filter.Priorities = append(filter.Priorities, p)
	}
	if teamName := strings.TrimSpace(c.Query("team")); teamName != "" {
		team := domain.TeamName(teamName)
		if !team.Valid() {
			return filter, apperrors.NewValidationError("unknown team", map[string]any{"team": teamName})
		}
		filter.Team = &team
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filter.SearchTerm = &q
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
