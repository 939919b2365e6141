// Package memstore is an in-process implementation of the repository
// interfaces. It backs development runs without POSTGRES_DSN and the test
// suites, and mirrors the Postgres semantics that matter to the workflow:
// conditional status writes, a unique request id, and atomic audit inserts.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/procurekit/procurement-service/internal/domain"
	"github.com/procurekit/procurement-service/internal/repository"
	"github.com/procurekit/procurement-service/internal/workflow"
)

// Store holds every table behind one mutex.
type Store struct {
	mu            sync.RWMutex
	now           func() time.Time
	tickets       map[string]domain.Ticket
	requestIDs    map[string]string
	users         map[string]domain.User
	approvals     []domain.ApprovalLog
	notifications []domain.Notification
	templates     []domain.EmailTemplate
	comments      []domain.Comment

	// FailAuditWrites makes audit inserts fail, to exercise rollback.
	FailAuditWrites bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:        time.Now,
		tickets:    make(map[string]domain.Ticket),
		requestIDs: make(map[string]string),
		users:      make(map[string]domain.User),
	}
}

// SetClock overrides the clock used for created/updated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// PutUser inserts or replaces a user profile, assigning an id when empty.
func (s *Store) PutUser(user domain.User) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.ProfileName == "" {
		user.ProfileName = "Default"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
		user.UpdatedAt = user.CreatedAt
	}
	s.users[user.ID] = user
	return user
}

// PutTemplate inserts an email template.
func (s *Store) PutTemplate(tpl domain.EmailTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	if tpl.UpdatedAt.IsZero() {
		tpl.UpdatedAt = s.now()
	}
	s.templates = append(s.templates, tpl)
}

// Notifications returns a copy of every recorded notification.
func (s *Store) Notifications() []domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Notification(nil), s.notifications...)
}

// ApprovalLogs returns a copy of every audit entry.
func (s *Store) ApprovalLogs() []domain.ApprovalLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ApprovalLog(nil), s.approvals...)
}

// Tickets exposes the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// Users exposes the user repository view.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// ApprovalLogsRepo exposes the audit repository view.
func (s *Store) ApprovalLogsRepo() repository.ApprovalLogRepository { return approvalRepo{s} }

// NotificationsRepo exposes the notification repository view.
func (s *Store) NotificationsRepo() repository.NotificationRepository { return notificationRepo{s} }

// Templates exposes the email template repository view.
func (s *Store) Templates() repository.EmailTemplateRepository { return templateRepo{s} }

// Comments exposes the comment repository view.
func (s *Store) Comments() repository.CommentRepository { return commentRepo{s} }

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.requestIDs[ticket.RequestID]; taken {
		return repository.ErrDuplicateRequestID
	}
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = s.now()
	ticket.UpdatedAt = ticket.CreatedAt
	s.tickets[ticket.ID] = *ticket
	s.requestIDs[ticket.RequestID] = ticket.ID
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r ticketRepo) RequestIDExists(_ context.Context, requestID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.requestIDs[requestID]
	return ok, nil
}

func (r ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.Ticket
	for _, ticket := range r.s.tickets {
		t := ticket
		if !filter.Visibility.Allows(&t) {
			continue
		}
		if filter.Team != nil && t.TeamName != *filter.Team {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, t.Priority) {
			continue
		}
		if filter.SearchTerm != nil {
			term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			if term != "" && !strings.Contains(strings.ToLower(t.Title), term) && !strings.Contains(strings.ToLower(t.RequestID), term) {
				continue
			}
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.After(result[j].UpdatedAt) })

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return nil, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

func (r ticketRepo) ListDeliveredBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Ticket
	for _, t := range r.s.tickets {
		if t.Status == domain.TicketStatusDelivered && t.DeliveredAt != nil && t.DeliveredAt.Before(cutoff) {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DeliveredAt.Before(*result[j].DeliveredAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r ticketRepo) ApplyTransition(_ context.Context, in repository.TransitionInput) (*domain.Ticket, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[in.TicketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	for i, step := range in.Steps {
		if ticket.Status != step.From {
			return nil, repository.ErrStaleStatus
		}
		ticket.Status = step.To
		ticket.UpdatedAt = in.At
		at := in.At
		if i < len(in.Stamps) {
			switch in.Stamps[i] {
			case workflow.StampDelivered:
				ticket.DeliveredAt = &at
			case workflow.StampConfirmed:
				ticket.ConfirmedAt = &at
			case workflow.StampAutoClosed:
				ticket.AutoClosedAt = &at
			}
		}
		if step.To == domain.TicketStatusRejected && in.RejectionRemarks != nil {
			remarks := *in.RejectionRemarks
			ticket.RejectionRemarks = &remarks
		}
	}
	if in.Audit != nil {
		if s.FailAuditWrites {
			return nil, errAuditUnavailable
		}
		entry := *in.Audit
		entry.ID = uuid.NewString()
		entry.CreatedAt = in.At
		s.approvals = append(s.approvals, entry)
		*in.Audit = entry
	}
	s.tickets[ticket.ID] = ticket
	return &ticket, nil
}

type storeError string

func (e storeError) Error() string { return string(e) }

const errAuditUnavailable = storeError("memstore: audit log unavailable")

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}
