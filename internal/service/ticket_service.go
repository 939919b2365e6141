package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/procurekit/procurement-service/internal/domain"
	"github.com/procurekit/procurement-service/internal/events"
	"github.com/procurekit/procurement-service/internal/observability"
	"github.com/procurekit/procurement-service/internal/repository"
	"github.com/procurekit/procurement-service/internal/requestid"
	"github.com/procurekit/procurement-service/internal/workflow"
	apperrors "github.com/procurekit/procurement-service/pkg/util/errorutil"
)

const (
	defaultAutoCloseAfter = 48 * time.Hour
	defaultReaperBatch    = 200
	maxTitleLength        = 200
)

// TicketService coordinates ticket creation, listing and workflow transitions.
type TicketService struct {
	tickets        repository.TicketRepository
	approvals      repository.ApprovalLogRepository
	ids            *requestid.Generator
	dispatcher     events.Dispatcher
	metrics        *observability.Metrics
	logger         *zap.Logger
	now            func() time.Time
	autoCloseAfter time.Duration
	reaperBatch    int
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo      repository.TicketRepository
	ApprovalLogRepo repository.ApprovalLogRepository
	IDGenerator     *requestid.Generator
	Dispatcher      events.Dispatcher
	Metrics         *observability.Metrics
	Logger          *zap.Logger
	Clock           func() time.Time
	AutoCloseAfter  time.Duration
	ReaperBatchSize int
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	TeamName    domain.TeamName
	Title       string
	Description string
	Priority    domain.TicketPriority
	Details     domain.ProcurementDetails
}

// TicketListFilter describes listing filters; visibility is always applied on top.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Team       *domain.TeamName
	Priorities []domain.TicketPriority
	SearchTerm *string
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:        deps.TicketRepo,
		approvals:      deps.ApprovalLogRepo,
		ids:            deps.IDGenerator,
		dispatcher:     deps.Dispatcher,
		metrics:        deps.Metrics,
		logger:         deps.Logger,
		now:            deps.Clock,
		autoCloseAfter: deps.AutoCloseAfter,
		reaperBatch:    deps.ReaperBatchSize,
	}
	if s.ids == nil {
		s.ids = requestid.NewGenerator(deps.TicketRepo)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.autoCloseAfter <= 0 {
		s.autoCloseAfter = defaultAutoCloseAfter
	}
	if s.reaperBatch <= 0 {
		s.reaperBatch = defaultReaperBatch
	}
	return s
}

// CreateTicket stores a DRAFT ticket under a freshly generated request id.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !actor.Roles.HasAny(domain.RoleRequester, domain.RoleSuperAdmin) {
		return nil, apperrors.NewForbidden("only requesters can raise procurement requests")
	}
	if !input.TeamName.Valid() {
		return nil, apperrors.NewValidationError("unknown team", map[string]any{"team_name": string(input.TeamName)})
	}
	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > maxTitleLength {
		return nil, apperrors.NewValidationError("title is required and must be at most 200 characters", map[string]any{"field": "title"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if priority.Rank() < 0 {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(priority)})
	}
	details := input.Details
	if strings.TrimSpace(details.RequesterName) == "" {
		details.RequesterName = actor.DisplayName()
	}

	ticket := &domain.Ticket{
		RequesterID: actor.ID,
		TeamName:    input.TeamName,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusDraft,
		Priority:    priority,
		Details:     details,
	}

	attempts := 0
	_, err := s.ids.Generate(ctx, input.TeamName, func(ctx context.Context, requestID string) error {
		attempts++
		ticket.RequestID = requestID
		return s.tickets.Create(ctx, ticket)
	})
	if err != nil {
		if errors.Is(err, requestid.ErrExhausted) {
			s.logger.Error("request id space exhausted",
				zap.String("team", string(input.TeamName)),
				zap.Int("reservations", attempts))
			return nil, apperrors.NewRequestIDExhausted(err)
		}
		return nil, apperrors.MapError(err)
	}
	s.metrics.RecordRequestIDAttempts(attempts)

	s.publishEvent(ctx, events.Event{
		Type:   events.EventTicketCreated,
		Ticket: *ticket,
		Actor:  userActor(actor),
	})
	return ticket, nil
}

// ListTickets returns the page of tickets the actor may see.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	visibility := visibilityFor(actor)
	if visibility.Empty() {
		return []domain.Ticket{}, nil
	}
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		Visibility: visibility,
		Statuses:   filter.Statuses,
		Team:       filter.Team,
		Priorities: filter.Priorities,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// GetTicket fetches a ticket the actor is allowed to see.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !visibilityFor(actor).Allows(ticket) {
		return nil, apperrors.NewForbidden("you cannot view this request")
	}
	return ticket, nil
}

// ListApprovals returns the audit trail of a visible ticket, oldest first.
func (s *TicketService) ListApprovals(ctx context.Context, actor *domain.User, ticketID string) ([]domain.ApprovalLog, error) {
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	logs, err := s.approvals.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if logs == nil {
		logs = []domain.ApprovalLog{}
	}
	return logs, nil
}

// Transition applies a caller action. The status change and its audit entry
// commit together; notifications follow the commit and cannot undo it.
func (s *TicketService) Transition(ctx context.Context, actor *domain.User, ticketID string, action workflow.Action, remarks string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	plan, err := workflow.Decide(ticket, actorFromUser(actor), action, remarks)
	if err != nil {
		return nil, err
	}

	input := repository.TransitionInput{
		TicketID:         ticket.ID,
		Steps:            plan.Steps,
		Stamps:           plan.Stamps,
		At:               s.now().UTC(),
		RejectionRemarks: plan.RejectionRemarks,
	}
	if plan.Audit != nil {
		actorID := actor.ID
		input.Audit = &domain.ApprovalLog{
			TicketID:  ticket.ID,
			UserID:    &actorID,
			UserEmail: actor.Email,
			Action:    *plan.Audit,
			Remarks:   plan.Remarks,
		}
	}

	updated, err := s.apply(ctx, input)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordTransition(string(plan.Action), string(updated.Status))
	s.logger.Info("ticket transitioned",
		zap.String("ticket_id", updated.ID),
		zap.String("request_id", updated.RequestID),
		zap.String("action", string(plan.Action)),
		zap.String("from", string(ticket.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("actor_id", actor.ID))

	payload := events.TicketTransitionedPayload{
		Action: string(plan.Action),
		From:   ticket.Status,
		To:     updated.Status,
	}
	if plan.Remarks != nil {
		payload.Remarks = *plan.Remarks
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventTicketTransitioned,
		Ticket:  *updated,
		Actor:   userActor(actor),
		Payload: payload,
	})
	return updated, nil
}

// AutoCloseExpired closes every ticket that has waited in
// DELIVERED_TO_REQUESTER longer than the confirmation window. Each ticket is
// closed through a conditional write, so tickets confirmed concurrently are
// skipped rather than closed twice. It returns the number of tickets closed.
func (s *TicketService) AutoCloseExpired(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.autoCloseAfter)
	closed := 0
	var errs []error

	for {
		candidates, err := s.tickets.ListDeliveredBefore(ctx, cutoff, s.reaperBatch)
		if err != nil {
			return closed, apperrors.MapError(err)
		}

		batchClosed := 0
		for i := range candidates {
			if err := ctx.Err(); err != nil {
				return closed, err
			}
			ok, err := s.autoCloseOne(ctx, &candidates[i])
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if ok {
				batchClosed++
			}
		}
		closed += batchClosed

		if len(candidates) < s.reaperBatch || batchClosed == 0 {
			break
		}
	}

	s.metrics.RecordAutoClosed(closed)
	if closed > 0 {
		s.logger.Info("auto-closed delivered tickets", zap.Int("count", closed), zap.Time("cutoff", cutoff))
	}
	return closed, errors.Join(errs...)
}

func (s *TicketService) autoCloseOne(ctx context.Context, ticket *domain.Ticket) (bool, error) {
	plan, err := workflow.DecideAutoClose(ticket)
	if err != nil {
		return false, nil
	}
	updated, err := s.tickets.ApplyTransition(ctx, repository.TransitionInput{
		TicketID: ticket.ID,
		Steps:    plan.Steps,
		Stamps:   plan.Stamps,
		At:       s.now().UTC(),
	})
	if errors.Is(err, repository.ErrStaleStatus) {
		s.logger.Debug("auto-close skipped; ticket moved concurrently", zap.String("ticket_id", ticket.ID))
		return false, nil
	}
	if err != nil {
		s.logger.Error("auto-close failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return false, err
	}

	s.publishEvent(ctx, events.Event{
		Type:   events.EventTicketAutoClosed,
		Ticket: *updated,
		Payload: events.TicketTransitionedPayload{
			Action: "auto_close",
			From:   domain.TicketStatusDelivered,
			To:     updated.Status,
		},
	})
	return true, nil
}

func (s *TicketService) apply(ctx context.Context, input repository.TransitionInput) (*domain.Ticket, error) {
	updated, err := s.tickets.ApplyTransition(ctx, input)
	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, repository.ErrStaleStatus):
		return nil, apperrors.NewStateError("ticket status changed concurrently; reload and retry", map[string]any{"ticket_id": input.TicketID})
	case apperrors.IsNoRows(err):
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": input.TicketID})
	default:
		return nil, apperrors.MapError(err)
	}
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	// Handlers run after the durable write; their failures are logged by the
	// dispatcher and never surface to the caller.
	_ = s.dispatcher.Publish(ctx, event)
}

func userActor(user *domain.User) events.Actor {
	return events.Actor{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.DisplayName(),
	}
}

func actorFromUser(user *domain.User) workflow.Actor {
	return workflow.Actor{
		ID:    user.ID,
		Email: user.Email,
		Roles: user.Roles,
		Team:  user.Team,
	}
}

func visibilityFor(user *domain.User) workflow.Visibility {
	if user == nil {
		return workflow.Visibility{}
	}
	return workflow.VisibleTickets(user.ID, user.Roles, user.Team)
}
