// Package workflow holds the procurement approval pipeline as data: which
// status a submitted ticket enters, what follows each approval, and which role
// is required to act at each stage.
package workflow

import "github.com/procurekit/procurement-service/internal/domain"

// Gate is the authorization requirement for acting on a pending status.
type Gate struct {
	Role         domain.Role
	TeamRequired bool
}

// initialStatusByTeam is where submit lands; SALES skips the functional head.
var initialStatusByTeam = map[domain.TeamName]domain.TicketStatus{
	domain.TeamInnovation:  domain.TicketStatusPendingFHApproval,
	domain.TeamEngineering: domain.TicketStatusPendingFHApproval,
	domain.TeamSales:       domain.TicketStatusPendingL1Approval,
}

// financeStageByTeam selects which of CFO or CDO signs off after L1.
var financeStageByTeam = map[domain.TeamName]domain.TicketStatus{
	domain.TeamInnovation:  domain.TicketStatusPendingCDOApproval,
	domain.TeamEngineering: domain.TicketStatusPendingCFOApproval,
	domain.TeamSales:       domain.TicketStatusPendingCFOApproval,
}

var nextStatusOnApproval = map[domain.TicketStatus]domain.TicketStatus{
	domain.TicketStatusPendingFHApproval:  domain.TicketStatusPendingL1Approval,
	domain.TicketStatusPendingCFOApproval: domain.TicketStatusAssignedToProduction,
	domain.TicketStatusPendingCDOApproval: domain.TicketStatusAssignedToProduction,
}

var approvalGates = map[domain.TicketStatus]Gate{
	domain.TicketStatusPendingFHApproval:  {Role: domain.RoleFunctionalHead, TeamRequired: true},
	domain.TicketStatusPendingL1Approval:  {Role: domain.RoleL1Approver, TeamRequired: true},
	domain.TicketStatusPendingCFOApproval: {Role: domain.RoleCFO},
	domain.TicketStatusPendingCDOApproval: {Role: domain.RoleCDO},
}

// allowedTransitions is the complete edge list of the state machine.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusDraft:                {domain.TicketStatusPendingFHApproval, domain.TicketStatusPendingL1Approval},
	domain.TicketStatusPendingFHApproval:    {domain.TicketStatusPendingL1Approval, domain.TicketStatusRejected},
	domain.TicketStatusPendingL1Approval:    {domain.TicketStatusPendingCFOApproval, domain.TicketStatusPendingCDOApproval, domain.TicketStatusRejected},
	domain.TicketStatusPendingCFOApproval:   {domain.TicketStatusAssignedToProduction, domain.TicketStatusRejected},
	domain.TicketStatusPendingCDOApproval:   {domain.TicketStatusAssignedToProduction, domain.TicketStatusRejected},
	domain.TicketStatusAssignedToProduction: {domain.TicketStatusDelivered},
	domain.TicketStatusDelivered:            {domain.TicketStatusConfirmed, domain.TicketStatusClosed},
	domain.TicketStatusConfirmed:            {domain.TicketStatusClosed},
	domain.TicketStatusClosed:               {},
	domain.TicketStatusRejected:             {},
}

// InitialStatus returns the status a draft enters on submit for team.
func InitialStatus(team domain.TeamName) (domain.TicketStatus, bool) {
	status, ok := initialStatusByTeam[team]
	return status, ok
}

// NextStatusOnApproval returns the status following an approval at current.
func NextStatusOnApproval(current domain.TicketStatus, team domain.TeamName) (domain.TicketStatus, bool) {
	if current == domain.TicketStatusPendingL1Approval {
		next, ok := financeStageByTeam[team]
		return next, ok
	}
	next, ok := nextStatusOnApproval[current]
	return next, ok
}

// GateFor returns the approval gate for a pending status.
func GateFor(status domain.TicketStatus) (Gate, bool) {
	gate, ok := approvalGates[status]
	return gate, ok
}

// IsPendingApproval reports whether status awaits an approve/reject decision.
func IsPendingApproval(status domain.TicketStatus) bool {
	_, ok := approvalGates[status]
	return ok
}

// IsValidTransition reports whether current -> next is an edge of the state machine.
func IsValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Route lists the approval stages a team's ticket passes through, in order.
func Route(team domain.TeamName) []domain.TicketStatus {
	status, ok := InitialStatus(team)
	if !ok {
		return nil
	}
	var route []domain.TicketStatus
	for IsPendingApproval(status) {
		route = append(route, status)
		next, ok := NextStatusOnApproval(status, team)
		if !ok {
			break
		}
		status = next
	}
	return route
}
