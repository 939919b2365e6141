package service

import (
	"context"

	"github.com/procurekit/procurement-service/internal/domain"
	"github.com/procurekit/procurement-service/internal/repository"
	"github.com/procurekit/procurement-service/internal/workflow"
	apperrors "github.com/procurekit/procurement-service/pkg/util/errorutil"
)

// FlowAssignees names the first active holder of each approval stage for a team.
type FlowAssignees struct {
	Team           domain.TeamName
	Route          []domain.TicketStatus
	FunctionalHead *domain.User
	L1Approver     *domain.User
	CFO            *domain.User
	CDO            *domain.User
}

// AssignmentService answers who will act on a team's requests.
type AssignmentService struct {
	users repository.UserRepository
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	UserRepo repository.UserRepository
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{users: deps.UserRepo}
}

// FlowAssignees resolves the approvers for team's route. Stages with no active
// holder are left nil.
func (s *AssignmentService) FlowAssignees(ctx context.Context, team domain.TeamName) (*FlowAssignees, error) {
	if !team.Valid() {
		return nil, apperrors.NewValidationError("unknown team", map[string]any{"team": string(team)})
	}
	out := &FlowAssignees{Team: team, Route: workflow.Route(team)}

	stages := []struct {
		role   domain.Role
		scoped bool
		dst    **domain.User
	}{
		{domain.RoleFunctionalHead, true, &out.FunctionalHead},
		{domain.RoleL1Approver, true, &out.L1Approver},
		{domain.RoleCFO, false, &out.CFO},
		{domain.RoleCDO, false, &out.CDO},
	}
	for _, stage := range stages {
		var scope *domain.TeamName
		if stage.scoped {
			scope = &team
		}
		users, err := s.users.ListActiveByRole(ctx, stage.role, scope)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if len(users) > 0 {
			u := users[0]
			*stage.dst = &u
		}
	}
	return out, nil
}
