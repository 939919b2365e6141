package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/procurekit/procurement-service/internal/config"
	"github.com/procurekit/procurement-service/internal/domain"
	"github.com/procurekit/procurement-service/internal/events"
	"github.com/procurekit/procurement-service/internal/mailer"
	"github.com/procurekit/procurement-service/internal/repository/memstore"
	"github.com/procurekit/procurement-service/internal/requestid"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store         *memstore.Store
	clock         *fakeClock
	queue         *mailer.ChannelQueue
	tickets       *TicketService
	notifications *NotificationService
	comments      *CommentService

	requester  domain.User
	fhEng      domain.User
	l1Eng      domain.User
	l1Sales    domain.User
	cfo        domain.User
	cdo        domain.User
	production domain.User
	admin      domain.User
}

func team(t domain.TeamName) *domain.TeamName { return &t }

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	store := memstore.New()
	store.SetClock(clock.Now)
	queue := mailer.NewChannelQueue(64)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())

	h := &harness{store: store, clock: clock, queue: queue}
	h.notifications = NewNotificationService(NotificationDependencies{
		NotificationRepo:  store.NotificationsRepo(),
		EmailTemplateRepo: store.Templates(),
		UserRepo:          store.Users(),
		Queue:             queue,
		Dispatcher:        dispatcher,
		Config:            config.NotificationConfig{EmailFrom: "noreply@example.com"},
		Clock:             clock.Now,
	})
	h.notifications.RegisterHandlers()

	h.tickets = NewTicketService(TicketDependencies{
		TicketRepo:      store.Tickets(),
		ApprovalLogRepo: store.ApprovalLogsRepo(),
		IDGenerator:     requestid.NewGenerator(store.Tickets()),
		Dispatcher:      dispatcher,
		Clock:           clock.Now,
		AutoCloseAfter:  48 * time.Hour,
	})
	h.comments = NewCommentService(CommentDependencies{
		TicketRepo:  store.Tickets(),
		CommentRepo: store.Comments(),
		UserRepo:    store.Users(),
		Dispatcher:  dispatcher,
	})

	name := func(s string) *string { return &s }
	h.requester = store.PutUser(domain.User{Email: "req@example.com", Name: name("Riya Requester"), Roles: domain.RoleSet{domain.RoleRequester}, Team: team(domain.TeamEngineering), Active: true})
	h.fhEng = store.PutUser(domain.User{Email: "fh.eng@example.com", Roles: domain.RoleSet{domain.RoleFunctionalHead}, Team: team(domain.TeamEngineering), Active: true})
	h.l1Eng = store.PutUser(domain.User{Email: "l1.eng@example.com", Roles: domain.RoleSet{domain.RoleL1Approver}, Team: team(domain.TeamEngineering), Active: true})
	h.l1Sales = store.PutUser(domain.User{Email: "l1.sales@example.com", Roles: domain.RoleSet{domain.RoleL1Approver}, Team: team(domain.TeamSales), Active: true})
	h.cfo = store.PutUser(domain.User{Email: "cfo@example.com", Roles: domain.RoleSet{domain.RoleCFO}, Active: true})
	h.cdo = store.PutUser(domain.User{Email: "cdo@example.com", Roles: domain.RoleSet{domain.RoleCDO}, Active: true})
	h.production = store.PutUser(domain.User{Email: "prod@example.com", Roles: domain.RoleSet{domain.RoleProduction}, Active: true})
	h.admin = store.PutUser(domain.User{Email: "admin@example.com", Roles: domain.RoleSet{domain.RoleSuperAdmin}, Active: true})
	return h
}

func (h *harness) seedTemplates() {
	for trigger, subject := range map[string]string{
		"request_created":        "Request {{requestId}} created",
		"approval_pending":       "Request {{requestId}} awaits your approval",
		"assigned_to_production": "Request {{requestId}} assigned to production",
		"delivered_to_requester": "Request {{requestId}} delivered",
		"request_closed":         "Request {{requestId}} closed",
		"request_rejected":       "Request {{requestId}} rejected",
		"comment_mention":        "{{mentionedBy}} mentioned you on {{requestId}}",
	} {
		h.store.PutTemplate(domain.EmailTemplate{
			Name:            trigger,
			Trigger:         trigger,
			Timeline:        domain.TimelineImmediate,
			SubjectTemplate: subject,
			BodyTemplate:    "Hello {{requesterName}}: {{ticketTitle}} is {{status}}. {{rejectionRemarks}}",
			Enabled:         true,
		})
	}
}

func (h *harness) drainEmails() []mailer.Message {
	var out []mailer.Message
	for h.queue.Len() > 0 {
		msg, _ := h.queue.Dequeue(context.Background())
		out = append(out, msg)
	}
	return out
}

func (h *harness) notificationsOf(typ domain.NotificationType) []domain.Notification {
	var out []domain.Notification
	for _, n := range h.store.Notifications() {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}
