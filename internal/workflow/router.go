package workflow

import "github.com/procurekit/procurement-service/internal/domain"

// CanAct reports whether an actor holding roles (and affiliated with
// actorTeam) may approve or reject a ticket of team sitting at status. Roles
// are additive: any held role that satisfies the gate is enough.
func CanAct(status domain.TicketStatus, team domain.TeamName, actorRoles domain.RoleSet, actorTeam *domain.TeamName) bool {
	gate, ok := approvalGates[status]
	if !ok {
		return false
	}
	if !actorRoles.Has(gate.Role) {
		return false
	}
	if gate.TeamRequired {
		return actorTeam != nil && *actorTeam == team
	}
	return true
}

// StatusScope grants visibility of one status, optionally limited to a team.
type StatusScope struct {
	Status domain.TicketStatus
	Team   *domain.TeamName
}

// Visibility is the listing predicate for one actor. A ticket is visible when
// All is set, when it is owned by OwnerID, or when it matches any scope.
type Visibility struct {
	All     bool
	OwnerID string
	Scopes  []StatusScope
}

// Empty reports whether the predicate can match nothing but owned tickets.
func (v Visibility) Empty() bool {
	return !v.All && v.OwnerID == "" && len(v.Scopes) == 0
}

// Allows evaluates the predicate against a single ticket.
func (v Visibility) Allows(ticket *domain.Ticket) bool {
	if v.All {
		return true
	}
	if v.OwnerID != "" && ticket.RequesterID == v.OwnerID {
		return true
	}
	for _, scope := range v.Scopes {
		if scope.Status != ticket.Status {
			continue
		}
		if scope.Team == nil || *scope.Team == ticket.TeamName {
			return true
		}
	}
	return false
}

// roleStatuses are the statuses each non-requester role works on.
var roleStatuses = map[domain.Role][]domain.TicketStatus{
	domain.RoleFunctionalHead: {domain.TicketStatusPendingFHApproval},
	domain.RoleL1Approver:     {domain.TicketStatusPendingL1Approval},
	domain.RoleCFO:            {domain.TicketStatusPendingCFOApproval},
	domain.RoleCDO:            {domain.TicketStatusPendingCDOApproval},
	domain.RoleProduction:     {domain.TicketStatusAssignedToProduction, domain.TicketStatusDelivered},
}

// VisibleTickets builds the listing predicate for an actor. Every actor sees
// their own tickets; the remaining scopes are the union over held roles.
// Team-scoped roles without a team affiliation contribute nothing.
func VisibleTickets(actorID string, actorRoles domain.RoleSet, actorTeam *domain.TeamName) Visibility {
	vis := Visibility{OwnerID: actorID}
	if actorRoles.Has(domain.RoleSuperAdmin) {
		vis.All = true
		return vis
	}
	for _, role := range actorRoles {
		statuses, ok := roleStatuses[role]
		if !ok {
			continue
		}
		for _, status := range statuses {
			scope := StatusScope{Status: status}
			if gate, gated := approvalGates[status]; gated && gate.TeamRequired {
				if actorTeam == nil {
					continue
				}
				team := *actorTeam
				scope.Team = &team
			}
			vis.Scopes = append(vis.Scopes, scope)
		}
	}
	return vis
}

// ApproverRoles lists the roles that take part in the approval chain.
func ApproverRoles() []domain.Role {
	return []domain.Role{domain.RoleFunctionalHead, domain.RoleL1Approver, domain.RoleCFO, domain.RoleCDO}
}
