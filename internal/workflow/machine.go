package workflow

import (
	"strings"

	"github.com/procurekit/procurement-service/internal/domain"
	apperrors "github.com/procurekit/procurement-service/pkg/util/errorutil"
)

// Action is a caller-requested transition.
type Action string

const (
	ActionSubmit         Action = "submit"
	ActionApprove        Action = "approved"
	ActionReject         Action = "rejected"
	ActionMarkDelivered  Action = "mark_delivered"
	ActionConfirmReceipt Action = "confirm_receipt"
)

// Valid reports whether a is a known caller action.
func (a Action) Valid() bool {
	switch a {
	case ActionSubmit, ActionApprove, ActionReject, ActionMarkDelivered, ActionConfirmReceipt:
		return true
	}
	return false
}

// Actor is the caller of a workflow operation.
type Actor struct {
	ID    string
	Email string
	Roles domain.RoleSet
	Team  *domain.TeamName
}

// Step is one conditional status write: it only applies while the stored
// status still equals From.
type Step struct {
	From domain.TicketStatus
	To   domain.TicketStatus
}

// Stamp names a timestamp column set alongside a step.
type Stamp int

const (
	StampNone Stamp = iota
	StampDelivered
	StampConfirmed
	StampAutoClosed
)

// Plan is the validated outcome of an action, ready to be persisted.
type Plan struct {
	Action           Action
	Steps            []Step
	Stamps           []Stamp
	Audit            *domain.ApprovalAction
	Remarks          *string
	RejectionRemarks *string
}

// FinalStatus is the status the ticket holds once every step has applied.
func (p Plan) FinalStatus() domain.TicketStatus {
	if len(p.Steps) == 0 {
		return ""
	}
	return p.Steps[len(p.Steps)-1].To
}

// Decide validates action against the ticket's current state and the actor,
// and returns the plan to persist. It performs no I/O.
func Decide(ticket *domain.Ticket, actor Actor, action Action, remarks string) (Plan, error) {
	remarks = strings.TrimSpace(remarks)
	switch action {
	case ActionSubmit:
		return decideSubmit(ticket, actor)
	case ActionApprove, ActionReject:
		return decideApproval(ticket, actor, action, remarks)
	case ActionMarkDelivered:
		return decideDelivered(ticket, actor)
	case ActionConfirmReceipt:
		return decideConfirm(ticket, actor)
	default:
		return Plan{}, apperrors.NewValidationError("invalid action", map[string]any{"action": string(action)})
	}
}

// DecideAutoClose is the reaper transition; it has no human actor.
func DecideAutoClose(ticket *domain.Ticket) (Plan, error) {
	if ticket.Status != domain.TicketStatusDelivered {
		return Plan{}, stateError(ticket, "only delivered tickets can be auto-closed")
	}
	return Plan{
		Steps:  []Step{{From: domain.TicketStatusDelivered, To: domain.TicketStatusClosed}},
		Stamps: []Stamp{StampAutoClosed},
	}, nil
}

func decideSubmit(ticket *domain.Ticket, actor Actor) (Plan, error) {
	if ticket.Status != domain.TicketStatusDraft {
		return Plan{}, stateError(ticket, "only draft tickets can be submitted")
	}
	if ticket.RequesterID != actor.ID {
		return Plan{}, apperrors.NewForbidden("only the requester can submit")
	}
	next, ok := InitialStatus(ticket.TeamName)
	if !ok {
		return Plan{}, apperrors.NewValidationError("ticket has no approval route for its team", nil)
	}
	return Plan{Action: ActionSubmit, Steps: []Step{{From: ticket.Status, To: next}}, Stamps: []Stamp{StampNone}}, nil
}

func decideApproval(ticket *domain.Ticket, actor Actor, action Action, remarks string) (Plan, error) {
	if !IsPendingApproval(ticket.Status) {
		return Plan{}, stateError(ticket, "ticket is not awaiting approval")
	}
	if action == ActionReject && remarks == "" {
		return Plan{}, apperrors.NewValidationError("rejection remarks are mandatory", map[string]any{"field": "remarks"})
	}
	if !CanAct(ticket.Status, ticket.TeamName, actor.Roles, actor.Team) {
		return Plan{}, apperrors.NewForbidden("not your stage to approve")
	}

	plan := Plan{Action: action}
	if remarks != "" {
		plan.Remarks = &remarks
	}
	if action == ActionReject {
		decision := domain.ApprovalActionRejected
		plan.Audit = &decision
		plan.RejectionRemarks = &remarks
		plan.Steps = []Step{{From: ticket.Status, To: domain.TicketStatusRejected}}
		plan.Stamps = []Stamp{StampNone}
		return plan, nil
	}

	next, ok := NextStatusOnApproval(ticket.Status, ticket.TeamName)
	if !ok {
		return Plan{}, stateError(ticket, "no approval route from current status")
	}
	decision := domain.ApprovalActionApproved
	plan.Audit = &decision
	plan.Steps = []Step{{From: ticket.Status, To: next}}
	plan.Stamps = []Stamp{StampNone}
	return plan, nil
}

func decideDelivered(ticket *domain.Ticket, actor Actor) (Plan, error) {
	if ticket.Status != domain.TicketStatusAssignedToProduction {
		return Plan{}, stateError(ticket, "ticket is not assigned to production")
	}
	if !actor.Roles.Has(domain.RoleProduction) {
		return Plan{}, apperrors.NewForbidden("only production can mark as delivered")
	}
	return Plan{
		Action: ActionMarkDelivered,
		Steps:  []Step{{From: ticket.Status, To: domain.TicketStatusDelivered}},
		Stamps: []Stamp{StampDelivered},
	}, nil
}

func decideConfirm(ticket *domain.Ticket, actor Actor) (Plan, error) {
	if ticket.Status != domain.TicketStatusDelivered {
		return Plan{}, stateError(ticket, "ticket has not been delivered")
	}
	if ticket.RequesterID != actor.ID {
		return Plan{}, apperrors.NewForbidden("only the requester can confirm receipt")
	}
	return Plan{
		Action: ActionConfirmReceipt,
		Steps: []Step{
			{From: domain.TicketStatusDelivered, To: domain.TicketStatusConfirmed},
			{From: domain.TicketStatusConfirmed, To: domain.TicketStatusClosed},
		},
		Stamps: []Stamp{StampConfirmed, StampNone},
	}, nil
}

func stateError(ticket *domain.Ticket, message string) error {
	return apperrors.NewStateError(message, map[string]any{"status": string(ticket.Status)})
}
