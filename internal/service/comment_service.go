package service

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/procurekit/procurement-service/internal/domain"
	"github.com/procurekit/procurement-service/internal/events"
	"github.com/procurekit/procurement-service/internal/repository"
	"github.com/procurekit/procurement-service/internal/workflow"
	apperrors "github.com/procurekit/procurement-service/pkg/util/errorutil"
)

const (
	maxCommentLength = 5000
	previewLength    = 140
)

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,})`)

// CommentService manages the discussion thread attached to a ticket.
type CommentService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// CommentDependencies bundles collaborators for the comment service.
type CommentDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	UserRepo    repository.UserRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewCommentService creates the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// AddComment posts a comment and notifies every active user mentioned as
// @email in its body. The author is never notified of their own mention.
func (s *CommentService) AddComment(ctx context.Context, actor *domain.User, ticketID, body string) (*domain.Comment, error) {
	ticket, err := s.discussableTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" || len(body) > maxCommentLength {
		return nil, apperrors.NewValidationError("comment body is required and must be at most 5000 characters", map[string]any{"field": "body"})
	}

	comment := &domain.Comment{TicketID: ticket.ID, UserID: actor.ID, Body: body}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.notifyMentions(ctx, actor, ticket, comment)
	return comment, nil
}

// ListComments returns the thread oldest first.
func (s *CommentService) ListComments(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Comment, error) {
	ticket, err := s.discussableTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	return comments, nil
}

// MentionCandidates lists active users that can be tagged, one per email.
func (s *CommentService) MentionCandidates(ctx context.Context, actor *domain.User, ticketID string) ([]domain.User, error) {
	if _, err := s.discussableTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	users, err := s.users.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	seen := make(map[string]struct{}, len(users))
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		key := strings.ToLower(u.Email)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, u)
	}
	return out, nil
}

// ExtractMentions returns the distinct lower-cased emails mentioned in body.
func ExtractMentions(body string) []string {
	matches := mentionPattern.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		email := strings.ToLower(strings.TrimRight(m[1], "."))
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

func (s *CommentService) notifyMentions(ctx context.Context, actor *domain.User, ticket *domain.Ticket, comment *domain.Comment) {
	if s.dispatcher == nil {
		return
	}
	mentioned := ExtractMentions(comment.Body)
	if len(mentioned) == 0 {
		return
	}
	users, err := s.users.ListActiveByEmails(ctx, mentioned)
	if err != nil {
		s.logger.Warn("mention lookup failed", zap.String("comment_id", comment.ID), zap.Error(err))
		return
	}
	author := strings.ToLower(actor.Email)
	for _, email := range uniqueEmails(users) {
		if strings.ToLower(email) == author {
			continue
		}
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:   events.EventCommentMentioned,
			Ticket: *ticket,
			Actor:  userActor(actor),
			Payload: events.CommentMentionedPayload{
				CommentID:      comment.ID,
				MentionedEmail: email,
				BodyPreview:    preview(comment.Body),
			},
		})
	}
}

// discussableTicket loads the ticket if the actor may read or write its
// thread: anyone who can see it, plus every approver and production user.
func (s *CommentService) discussableTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if visibilityFor(actor).Allows(ticket) {
		return ticket, nil
	}
	if actor.Roles.HasAny(append(workflow.ApproverRoles(), domain.RoleProduction)...) {
		return ticket, nil
	}
	return nil, apperrors.NewForbidden("you cannot discuss this request")
}

func preview(body string) string {
	runes := []rune(body)
	if len(runes) <= previewLength {
		return body
	}
	return string(runes[:previewLength]) + "..."
}
