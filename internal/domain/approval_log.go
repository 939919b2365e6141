package domain

import "time"

// ApprovalAction is the decision recorded in the audit log.
type ApprovalAction string

const (
	ApprovalActionApproved ApprovalAction = "approved"
	ApprovalActionRejected ApprovalAction = "rejected"
)

// ApprovalLog is an immutable audit entry. The actor email is captured at
// decision time so the entry stays readable after the user changes.
type ApprovalLog struct {
	ID        string
	TicketID  string
	UserID    *string
	UserEmail string
	Action    ApprovalAction
	Remarks   *string
	CreatedAt time.Time
}
