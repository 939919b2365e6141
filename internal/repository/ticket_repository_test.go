package repository

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurekit/procurement-service/internal/domain"
	"github.com/procurekit/procurement-service/internal/requestid"
	"github.com/procurekit/procurement-service/internal/workflow"
)

func team(t domain.TeamName) *domain.TeamName { return &t }

func TestVisibilityClause(t *testing.T) {
	tests := []struct {
		name string
		vis  workflow.Visibility
		sql  string
		args []any
	}{
		{
			name: "all renders no predicate",
			vis:  workflow.Visibility{All: true, OwnerID: "ignored"},
			sql:  "",
		},
		{
			name: "empty predicate matches nothing",
			vis:  workflow.Visibility{},
			sql:  "FALSE",
		},
		{
			name: "owner only",
			vis:  workflow.Visibility{OwnerID: "u-1"},
			sql:  "(requester_id=$1)",
			args: []any{"u-1"},
		},
		{
			name: "team scoped and role only scopes",
			vis: workflow.Visibility{
				OwnerID: "u-1",
				Scopes: []workflow.StatusScope{
					{Status: domain.TicketStatusPendingL1Approval, Team: team(domain.TeamSales)},
					{Status: domain.TicketStatusPendingCFOApproval},
					{Status: domain.TicketStatusAssignedToProduction},
				},
			},
			sql: "(requester_id=$1 OR (status=$2 AND team_name=$3) OR status=$4 OR status=$5)",
			args: []any{
				"u-1",
				domain.TicketStatusPendingL1Approval, domain.TeamSales,
				domain.TicketStatusPendingCFOApproval,
				domain.TicketStatusAssignedToProduction,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var args []any
			assert.Equal(t, tt.sql, visibilityClause(tt.vis, &args))
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestVisibilityClauseContinuesPlaceholders(t *testing.T) {
	args := []any{"earlier"}
	sql := visibilityClause(workflow.Visibility{OwnerID: "u-1"}, &args)
	assert.Equal(t, "(requester_id=$2)", sql)
	assert.Equal(t, []any{"earlier", "u-1"}, args)
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"request id conflict", &pgconn.PgError{Code: "23505", ConstraintName: requestIDConstraint}, true},
		{"wrapped request id conflict", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: requestIDConstraint}), true},
		{"other unique constraint", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_profile_key"}, false},
		{"other pg error", &pgconn.PgError{Code: "23503", ConstraintName: requestIDConstraint}, false},
		{"plain error", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err, requestIDConstraint))
		})
	}
}

func TestDuplicateRequestIDRetriesAsCollision(t *testing.T) {
	assert.ErrorIs(t, ErrDuplicateRequestID, requestid.ErrTaken)
}

func TestRequestIDConstraintMatchesSchema(t *testing.T) {
	schema, err := os.ReadFile("../../migrations/001_init.sql")
	require.NoError(t, err)
	assert.Contains(t, string(schema), "CONSTRAINT "+requestIDConstraint+" UNIQUE")
}

func TestCheckID(t *testing.T) {
	assert.NoError(t, checkID("7c9e6679-7425-40de-944b-e07fc1f90ae7"))
	for _, id := range []string{"", "not-a-uuid", "123", "7c9e6679-7425-40de-944b"} {
		assert.ErrorIs(t, checkID(id), pgx.ErrNoRows, id)
	}
}
