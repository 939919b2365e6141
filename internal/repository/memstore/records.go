package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/procurekit/procurement-service/internal/domain"
)

type approvalRepo struct{ s *Store }

func (r approvalRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.ApprovalLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.ApprovalLog
	for _, entry := range r.s.approvals {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n.ID = uuid.NewString()
	n.SentAt = r.s.now()
	r.s.notifications = append(r.s.notifications, *n)
	return nil
}

func (r notificationRepo) ListByRecipient(_ context.Context, recipient string, limit int) ([]domain.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	var result []domain.Notification
	for i := len(r.s.notifications) - 1; i >= 0 && len(result) < limit; i-- {
		if r.s.notifications[i].Recipient == recipient {
			result = append(result, r.s.notifications[i])
		}
	}
	return result, nil
}

type templateRepo struct{ s *Store }

func (r templateRepo) FindEnabled(_ context.Context, trigger string, timeline domain.TemplateTimeline) (*domain.EmailTemplate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var matches []domain.EmailTemplate
	for _, tpl := range r.s.templates {
		if tpl.Enabled && tpl.Trigger == trigger && tpl.Timeline == timeline {
			matches = append(matches, tpl)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].UpdatedAt.After(matches[j].UpdatedAt) })
	return &matches[0], nil
}

type commentRepo struct{ s *Store }

func (r commentRepo) Create(_ context.Context, c *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = r.s.now()
	if user, ok := r.s.users[c.UserID]; ok {
		c.AuthorName = user.Name
		c.AuthorMail = user.Email
	}
	r.s.comments = append(r.s.comments, *c)
	return nil
}

func (r commentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Comment
	for _, c := range r.s.comments {
		if c.TicketID == ticketID {
			result = append(result, c)
		}
	}
	return result, nil
}
