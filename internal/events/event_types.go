package events

import (
	"time"

	"github.com/procurekit/procurement-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketTransitioned EventType = "ticket_transitioned"
	EventTicketAutoClosed   EventType = "ticket_auto_closed"
	EventCommentMentioned   EventType = "comment_mentioned"
)

// Actor encapsulates actor metadata for an event. System events carry an
// empty UserID.
type Actor struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Event represents a domain event emitted by services after their writes
// are committed.
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Ticket    domain.Ticket `json:"ticket"`
	Actor     Actor         `json:"actor"`
	Timestamp time.Time     `json:"timestamp"`
	Payload   interface{}   `json:"payload"`
}

// TicketTransitionedPayload describes a committed status change.
type TicketTransitionedPayload struct {
	Action  string              `json:"action"`
	From    domain.TicketStatus `json:"from"`
	To      domain.TicketStatus `json:"to"`
	Remarks string              `json:"remarks,omitempty"`
}

// CommentMentionedPayload identifies a mentioned user.
type CommentMentionedPayload struct {
	CommentID      string `json:"comment_id"`
	MentionedEmail string `json:"mentioned_email"`
	BodyPreview    string `json:"body_preview"`
}
