// Package mailer renders notification templates and moves the resulting
// messages through an outbox queue to an email transport.
package mailer

import (
	"time"

	"github.com/procurekit/procurement-service/internal/domain"
)

// Message is one rendered email waiting in the outbox.
type Message struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	Trigger    string    `json:"trigger"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Attempts   int       `json:"attempts"`
}

var triggerByType = map[domain.NotificationType]string{
	domain.NotificationCreation:       "request_created",
	domain.NotificationAssignment:     "approval_pending",
	domain.NotificationTeamAssignment: "assigned_to_production",
	domain.NotificationDelivery:       "delivered_to_requester",
	domain.NotificationClosure:        "request_closed",
	domain.NotificationRejection:      "request_rejected",
	domain.NotificationMention:        "comment_mention",
}

// TriggerFor maps a notification type to its email template trigger.
func TriggerFor(t domain.NotificationType) (string, bool) {
	trigger, ok := triggerByType[t]
	return trigger, ok
}
