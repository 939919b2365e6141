package domain

import "time"

// Comment is a discussion entry on a ticket. It never changes ticket status.
type Comment struct {
	ID         string
	TicketID   string
	UserID     string
	AuthorName *string
	AuthorMail string
	Body       string
	CreatedAt  time.Time
}
