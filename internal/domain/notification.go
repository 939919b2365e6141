package domain

import "time"

// NotificationType classifies a recorded notification event.
type NotificationType string

const (
	NotificationCreation       NotificationType = "creation"
	NotificationAssignment     NotificationType = "assignment"
	NotificationDelivery       NotificationType = "delivery"
	NotificationClosure        NotificationType = "closure"
	NotificationTeamAssignment NotificationType = "team_assignment"
	NotificationMention        NotificationType = "mention"
	NotificationRejection      NotificationType = "rejection"
)

// Group recipient tokens resolved to a list of addresses at dispatch time.
const (
	RecipientProductionTeam = "production_team"
	RecipientNextApprover   = "next_approver"
)

// Notification is an append-only record of an event for one recipient.
type Notification struct {
	ID        string
	TicketID  string
	Type      NotificationType
	Recipient string
	Payload   map[string]any
	SentAt    time.Time
}

// TemplateTimeline controls when a template fires relative to its trigger.
type TemplateTimeline string

const (
	TimelineImmediate TemplateTimeline = "immediate"
	TimelineAfter24h  TemplateTimeline = "after_24h"
	TimelineAfter48h  TemplateTimeline = "after_48h"
)

// EmailTemplate is an admin-managed subject/body pair with {{placeholder}} slots.
type EmailTemplate struct {
	ID              string
	Name            string
	Trigger         string
	Timeline        TemplateTimeline
	SubjectTemplate string
	BodyTemplate    string
	Enabled         bool
	UpdatedAt       time.Time
}
