package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/procurekit/procurement-service/internal/config"
	"github.com/procurekit/procurement-service/internal/domain"
	"github.com/procurekit/procurement-service/internal/events"
	"github.com/procurekit/procurement-service/internal/mailer"
	"github.com/procurekit/procurement-service/internal/observability"
	"github.com/procurekit/procurement-service/internal/repository"
	"github.com/procurekit/procurement-service/internal/workflow"
	apperrors "github.com/procurekit/procurement-service/pkg/util/errorutil"
)

const inboxSize = 20

// NotificationService records notifications for workflow events and hands
// rendered emails to the outbox.
type NotificationService struct {
	notifications repository.NotificationRepository
	templates     repository.EmailTemplateRepository
	users         repository.UserRepository
	queue         mailer.Queue
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	cfg           config.NotificationConfig
	now           func() time.Time
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	NotificationRepo  repository.NotificationRepository
	EmailTemplateRepo repository.EmailTemplateRepository
	UserRepo          repository.UserRepository
	Queue             mailer.Queue
	Dispatcher        events.Dispatcher
	Metrics           *observability.Metrics
	Logger            *zap.Logger
	Config            config.NotificationConfig
	Clock             func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	n := &NotificationService{
		notifications: deps.NotificationRepo,
		templates:     deps.EmailTemplateRepo,
		users:         deps.UserRepo,
		queue:         deps.Queue,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		cfg:           deps.Config,
		now:           deps.Clock,
	}
	if n.logger == nil {
		n.logger = zap.NewNop()
	}
	if n.now == nil {
		n.now = time.Now
	}
	return n
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketTransitioned, n.handleTicketTransitioned)
	n.dispatcher.Subscribe(events.EventTicketAutoClosed, n.handleTicketAutoClosed)
	n.dispatcher.Subscribe(events.EventCommentMentioned, n.handleCommentMentioned)
}

// Notify records the event for recipient, then makes a best-effort attempt to
// enqueue the matching email. Only the recording step can fail the call.
func (n *NotificationService) Notify(ctx context.Context, ticket *domain.Ticket, typ domain.NotificationType, recipient string, payload map[string]any) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return apperrors.NewValidationError("notification recipient is required", nil)
	}
	record := &domain.Notification{
		TicketID:  ticket.ID,
		Type:      typ,
		Recipient: recipient,
		Payload:   payload,
	}
	if err := n.notifications.Create(ctx, record); err != nil {
		return err
	}
	n.dispatchEmail(ctx, ticket, record)
	return nil
}

// Inbox returns the newest notifications addressed to email.
func (n *NotificationService) Inbox(ctx context.Context, email string) ([]domain.Notification, error) {
	items, err := n.notifications.ListByRecipient(ctx, strings.TrimSpace(email), inboxSize)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return items, nil
}

func (n *NotificationService) dispatchEmail(ctx context.Context, ticket *domain.Ticket, record *domain.Notification) {
	trigger, ok := mailer.TriggerFor(record.Type)
	if !ok {
		return
	}
	log := n.logger.With(
		zap.String("ticket_id", ticket.ID),
		zap.String("trigger", trigger),
		zap.String("recipient", record.Recipient))

	tpl, err := n.templates.FindEnabled(ctx, trigger, domain.TimelineImmediate)
	if err != nil {
		log.Warn("email template lookup failed", zap.Error(err))
		n.metrics.RecordEmail(trigger, "failed")
		return
	}
	if tpl == nil {
		n.metrics.RecordEmail(trigger, "skipped")
		return
	}

	recipients, err := n.resolveRecipients(ctx, ticket, record.Recipient)
	if err != nil {
		log.Warn("recipient resolution failed", zap.Error(err))
		n.metrics.RecordEmail(trigger, "failed")
		return
	}
	if len(recipients) == 0 {
		log.Debug("no email recipients resolved")
		n.metrics.RecordEmail(trigger, "skipped")
		return
	}

	values := templateValues(ticket, record.Payload)
	msg := mailer.Message{
		ID:         uuid.NewString(),
		TicketID:   ticket.ID,
		Trigger:    trigger,
		From:       n.cfg.EmailFrom,
		To:         recipients,
		Subject:    mailer.Render(tpl.SubjectTemplate, values),
		Body:       mailer.Render(tpl.BodyTemplate, values),
		EnqueuedAt: n.now().UTC(),
	}
	if n.queue == nil {
		return
	}
	if err := n.queue.Enqueue(ctx, msg); err != nil {
		log.Warn("email enqueue failed", zap.Error(err))
		n.metrics.RecordEmail(trigger, "failed")
	}
}

// resolveRecipients expands group tokens against the ticket's current state.
func (n *NotificationService) resolveRecipients(ctx context.Context, ticket *domain.Ticket, recipient string) ([]string, error) {
	if strings.Contains(recipient, "@") {
		return []string{recipient}, nil
	}

	var (
		users []domain.User
		err   error
	)
	switch recipient {
	case domain.RecipientProductionTeam:
		users, err = n.users.ListActiveByRole(ctx, domain.RoleProduction, nil)
	case domain.RecipientNextApprover:
		gate, ok := workflow.GateFor(ticket.Status)
		if !ok {
			return nil, nil
		}
		var team *domain.TeamName
		if gate.TeamRequired {
			t := ticket.TeamName
			team = &t
		}
		users, err = n.users.ListActiveByRole(ctx, gate.Role, team)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return uniqueEmails(users), nil
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	return n.Notify(ctx, &event.Ticket, domain.NotificationCreation, event.Actor.Email, map[string]any{
		"title":     event.Ticket.Title,
		"requestId": event.Ticket.RequestID,
	})
}

func (n *NotificationService) handleTicketTransitioned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketTransitionedPayload)
	if !ok {
		return errors.New("unexpected transition payload")
	}
	ticket := &event.Ticket
	base := map[string]any{
		"action":    payload.Action,
		"from":      string(payload.From),
		"to":        string(payload.To),
		"actedBy":   event.Actor.Email,
		"requestId": ticket.RequestID,
	}

	switch {
	case workflow.IsPendingApproval(payload.To):
		return n.Notify(ctx, ticket, domain.NotificationAssignment, domain.RecipientNextApprover, base)
	case payload.To == domain.TicketStatusAssignedToProduction:
		return n.Notify(ctx, ticket, domain.NotificationTeamAssignment, domain.RecipientProductionTeam, base)
	}

	requester, err := n.requesterEmail(ctx, ticket)
	if err != nil {
		return err
	}
	switch payload.To {
	case domain.TicketStatusDelivered:
		return n.Notify(ctx, ticket, domain.NotificationDelivery, requester, base)
	case domain.TicketStatusClosed:
		base["autoClosed"] = false
		return n.Notify(ctx, ticket, domain.NotificationClosure, requester, base)
	case domain.TicketStatusRejected:
		base["rejectionRemarks"] = payload.Remarks
		return n.Notify(ctx, ticket, domain.NotificationRejection, requester, base)
	}
	return nil
}

func (n *NotificationService) handleTicketAutoClosed(ctx context.Context, event events.Event) error {
	requester, err := n.requesterEmail(ctx, &event.Ticket)
	if err != nil {
		return err
	}
	return n.Notify(ctx, &event.Ticket, domain.NotificationClosure, requester, map[string]any{
		"requestId":  event.Ticket.RequestID,
		"autoClosed": true,
	})
}

func (n *NotificationService) handleCommentMentioned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CommentMentionedPayload)
	if !ok {
		return errors.New("unexpected mention payload")
	}
	return n.Notify(ctx, &event.Ticket, domain.NotificationMention, payload.MentionedEmail, map[string]any{
		"requestId":      event.Ticket.RequestID,
		"commentId":      payload.CommentID,
		"mentionedBy":    event.Actor.Name,
		"commentPreview": payload.BodyPreview,
	})
}

func (n *NotificationService) requesterEmail(ctx context.Context, ticket *domain.Ticket) (string, error) {
	user, err := n.users.GetByID(ctx, ticket.RequesterID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return "", apperrors.NewNotFound("requester", map[string]any{"user_id": ticket.RequesterID})
		}
		return "", err
	}
	return user.Email, nil
}

// templateValues builds placeholder values; payload entries win over ticket fields.
func templateValues(ticket *domain.Ticket, payload map[string]any) map[string]any {
	values := map[string]any{
		"ticketId":      ticket.ID,
		"requestId":     ticket.RequestID,
		"requesterName": ticket.Details.RequesterName,
		"ticketTitle":   ticket.Title,
		"status":        string(ticket.Status),
		"teamName":      string(ticket.TeamName),
	}
	if ticket.RejectionRemarks != nil {
		values["rejectionRemarks"] = *ticket.RejectionRemarks
	}
	for k, v := range payload {
		if k == "title" {
			values["ticketTitle"] = v
			continue
		}
		values[k] = v
	}
	return values
}

func uniqueEmails(users []domain.User) []string {
	seen := make(map[string]struct{}, len(users))
	out := make([]string, 0, len(users))
	for _, u := range users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, u.Email)
	}
	return out
}
