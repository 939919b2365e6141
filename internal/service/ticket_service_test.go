package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurekit/procurement-service/internal/domain"
	"github.com/procurekit/procurement-service/internal/repository"
	"github.com/procurekit/procurement-service/internal/requestid"
	"github.com/procurekit/procurement-service/internal/workflow"
	apperrors "github.com/procurekit/procurement-service/pkg/util/errorutil"
)

func (h *harness) create(t *testing.T, teamName domain.TeamName) *domain.Ticket {
	t.Helper()
	ticket, err := h.tickets.CreateTicket(context.Background(), &h.requester, TicketCreateInput{
		TeamName: teamName,
		Title:    "Oscilloscope for lab 3",
	})
	require.NoError(t, err)
	return ticket
}

func (h *harness) act(t *testing.T, actor domain.User, ticketID string, action workflow.Action, remarks string) *domain.Ticket {
	t.Helper()
	ticket, err := h.tickets.Transition(context.Background(), &actor, ticketID, action, remarks)
	require.NoError(t, err)
	return ticket
}

func (h *harness) deliverEngineering(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket := h.create(t, domain.TeamEngineering)
	h.act(t, h.requester, ticket.ID, workflow.ActionSubmit, "")
	h.act(t, h.fhEng, ticket.ID, workflow.ActionApprove, "")
	h.act(t, h.l1Eng, ticket.ID, workflow.ActionApprove, "")
	h.act(t, h.cfo, ticket.ID, workflow.ActionApprove, "")
	return h.act(t, h.production, ticket.ID, workflow.ActionMarkDelivered, "")
}

func TestCreateTicketAssignsRequestID(t *testing.T) {
	h := newHarness(t)
	ticket := h.create(t, domain.TeamEngineering)

	assert.Equal(t, domain.TicketStatusDraft, ticket.Status)
	assert.Regexp(t, `^EN[1-9][0-9]{5}$`, ticket.RequestID)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, "Riya Requester", ticket.Details.RequesterName)
	require.Len(t, h.notificationsOf(domain.NotificationCreation), 1)
	assert.Equal(t, "req@example.com", h.notificationsOf(domain.NotificationCreation)[0].Recipient)
}

func TestCreateTicketValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.tickets.CreateTicket(ctx, &h.requester, TicketCreateInput{TeamName: "MARKETING", Title: "x"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.tickets.CreateTicket(ctx, &h.requester, TicketCreateInput{TeamName: domain.TeamSales, Title: "  "})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.tickets.CreateTicket(ctx, &h.cfo, TicketCreateInput{TeamName: domain.TeamSales, Title: "x"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestCreateTicketRequestIDExhausted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	fixed := requestid.NewGenerator(h.store.Tickets(), requestid.WithDraw(func() int { return 424242 }), requestid.WithMaxAttempts(5))
	h.tickets.ids = fixed

	first, err := h.tickets.CreateTicket(ctx, &h.requester, TicketCreateInput{TeamName: domain.TeamEngineering, Title: "first"})
	require.NoError(t, err)
	assert.Equal(t, "EN424242", first.RequestID)

	_, err = h.tickets.CreateTicket(ctx, &h.requester, TicketCreateInput{TeamName: domain.TeamEngineering, Title: "second"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeRequestIDExhausted))
	assert.ErrorIs(t, err, requestid.ErrExhausted)

	// A different team prefix does not collide.
	other, err := h.tickets.CreateTicket(ctx, &h.requester, TicketCreateInput{TeamName: domain.TeamSales, Title: "third"})
	require.NoError(t, err)
	assert.Equal(t, "SA424242", other.RequestID)
}

func TestEngineeringHappyPath(t *testing.T) {
	h := newHarness(t)
	h.seedTemplates()
	ticket := h.create(t, domain.TeamEngineering)
	requestID := ticket.RequestID

	ticket = h.act(t, h.requester, ticket.ID, workflow.ActionSubmit, "")
	assert.Equal(t, domain.TicketStatusPendingFHApproval, ticket.Status)

	ticket = h.act(t, h.fhEng, ticket.ID, workflow.ActionApprove, "looks fine")
	assert.Equal(t, domain.TicketStatusPendingL1Approval, ticket.Status)

	ticket = h.act(t, h.l1Eng, ticket.ID, workflow.ActionApprove, "")
	assert.Equal(t, domain.TicketStatusPendingCFOApproval, ticket.Status)

	ticket = h.act(t, h.cfo, ticket.ID, workflow.ActionApprove, "")
	assert.Equal(t, domain.TicketStatusAssignedToProduction, ticket.Status)
	teamNotes := h.notificationsOf(domain.NotificationTeamAssignment)
	require.Len(t, teamNotes, 1)
	assert.Equal(t, domain.RecipientProductionTeam, teamNotes[0].Recipient)

	h.clock.Advance(time.Hour)
	ticket = h.act(t, h.production, ticket.ID, workflow.ActionMarkDelivered, "")
	assert.Equal(t, domain.TicketStatusDelivered, ticket.Status)
	require.NotNil(t, ticket.DeliveredAt)
	assert.Equal(t, h.clock.Now(), *ticket.DeliveredAt)
	require.Len(t, h.notificationsOf(domain.NotificationDelivery), 1)
	assert.Equal(t, "req@example.com", h.notificationsOf(domain.NotificationDelivery)[0].Recipient)

	ticket = h.act(t, h.requester, ticket.ID, workflow.ActionConfirmReceipt, "")
	assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
	assert.NotNil(t, ticket.ConfirmedAt)
	assert.Nil(t, ticket.AutoClosedAt)
	assert.Equal(t, requestID, ticket.RequestID, "request id never changes")
	require.Len(t, h.notificationsOf(domain.NotificationClosure), 1)

	logs, err := h.tickets.ListApprovals(context.Background(), &h.admin, ticket.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	for _, entry := range logs {
		assert.Equal(t, domain.ApprovalActionApproved, entry.Action)
	}
	require.NotNil(t, logs[0].Remarks)
	assert.Equal(t, "looks fine", *logs[0].Remarks)

	emails := h.drainEmails()
	var productionMail, approvalMail bool
	for _, msg := range emails {
		if msg.Trigger == "assigned_to_production" {
			productionMail = true
			assert.Equal(t, []string{"prod@example.com"}, msg.To)
			assert.Equal(t, "Request "+requestID+" assigned to production", msg.Subject)
		}
		if msg.Trigger == "approval_pending" && msg.To[0] == "cfo@example.com" {
			approvalMail = true
		}
	}
	assert.True(t, productionMail, "production team is emailed as a group")
	assert.True(t, approvalMail, "next approver is resolved from the new status")
}

func TestSalesSkipsFunctionalHead(t *testing.T) {
	h := newHarness(t)
	ticket := h.create(t, domain.TeamSales)
	assert.Regexp(t, `^SA\d{6}$`, ticket.RequestID)

	ticket = h.act(t, h.requester, ticket.ID, workflow.ActionSubmit, "")
	assert.Equal(t, domain.TicketStatusPendingL1Approval, ticket.Status)

	_, err := h.tickets.Transition(context.Background(), &h.l1Eng, ticket.ID, workflow.ActionApprove, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "L1 gate is team scoped")

	ticket = h.act(t, h.l1Sales, ticket.ID, workflow.ActionApprove, "")
	assert.Equal(t, domain.TicketStatusPendingCFOApproval, ticket.Status)
}

func TestInnovationRoutesToCDO(t *testing.T) {
	h := newHarness(t)
	fhInn := h.store.PutUser(domain.User{Email: "fh.inn@example.com", Roles: domain.RoleSet{domain.RoleFunctionalHead, domain.RoleL1Approver}, Team: team(domain.TeamInnovation), Active: true})
	ticket := h.create(t, domain.TeamInnovation)

	h.act(t, h.requester, ticket.ID, workflow.ActionSubmit, "")
	h.act(t, fhInn, ticket.ID, workflow.ActionApprove, "")
	ticket = h.act(t, fhInn, ticket.ID, workflow.ActionApprove, "")
	assert.Equal(t, domain.TicketStatusPendingCDOApproval, ticket.Status)

	_, err := h.tickets.Transition(context.Background(), &h.cfo, ticket.ID, workflow.ActionApprove, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	ticket = h.act(t, h.cdo, ticket.ID, workflow.ActionApprove, "")
	assert.Equal(t, domain.TicketStatusAssignedToProduction, ticket.Status)
}

func TestRejectWithRemarks(t *testing.T) {
	h := newHarness(t)
	h.seedTemplates()
	ticket := h.create(t, domain.TeamEngineering)
	h.act(t, h.requester, ticket.ID, workflow.ActionSubmit, "")
	h.act(t, h.fhEng, ticket.ID, workflow.ActionApprove, "")
	h.drainEmails()

	ticket = h.act(t, h.l1Eng, ticket.ID, workflow.ActionReject, "Budget exceeded")
	assert.Equal(t, domain.TicketStatusRejected, ticket.Status)
	require.NotNil(t, ticket.RejectionRemarks)
	assert.Equal(t, "Budget exceeded", *ticket.RejectionRemarks)

	logs := h.store.ApprovalLogs()
	last := logs[len(logs)-1]
	assert.Equal(t, domain.ApprovalActionRejected, last.Action)
	require.NotNil(t, last.Remarks)
	assert.Equal(t, "Budget exceeded", *last.Remarks)
	assert.Equal(t, "l1.eng@example.com", last.UserEmail)

	rejections := h.notificationsOf(domain.NotificationRejection)
	require.Len(t, rejections, 1)
	assert.Equal(t, "req@example.com", rejections[0].Recipient)
	assert.Equal(t, "Budget exceeded", rejections[0].Payload["rejectionRemarks"])

	emails := h.drainEmails()
	require.Len(t, emails, 1)
	assert.Equal(t, "request_rejected", emails[0].Trigger)
	assert.Equal(t, []string{"req@example.com"}, emails[0].To)
	assert.Contains(t, emails[0].Body, "Budget exceeded")

	_, err := h.tickets.Transition(context.Background(), &h.cfo, ticket.ID, workflow.ActionApprove, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState), "rejected is terminal")
}

func TestRejectWithoutRemarksChangesNothing(t *testing.T) {
	h := newHarness(t)
	ticket := h.create(t, domain.TeamEngineering)
	h.act(t, h.requester, ticket.ID, workflow.ActionSubmit, "")
	before := len(h.store.ApprovalLogs())

	for _, remarks := range []string{"", "   "} {
		_, err := h.tickets.Transition(context.Background(), &h.fhEng, ticket.ID, workflow.ActionReject, remarks)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	}

	stored, err := h.store.Tickets().GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPendingFHApproval, stored.Status)
	assert.Len(t, h.store.ApprovalLogs(), before)
	assert.Empty(t, h.notificationsOf(domain.NotificationRejection))
}

func TestTransitionAuthorization(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.create(t, domain.TeamEngineering)

	_, err := h.tickets.Transition(ctx, &h.fhEng, ticket.ID, workflow.ActionSubmit, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "only the requester submits")

	_, err = h.tickets.Transition(ctx, &h.fhEng, ticket.ID, workflow.ActionApprove, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState), "draft is not pending approval")

	h.act(t, h.requester, ticket.ID, workflow.ActionSubmit, "")

	_, err = h.tickets.Transition(ctx, &h.requester, ticket.ID, workflow.ActionSubmit, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))

	_, err = h.tickets.Transition(ctx, &h.admin, ticket.ID, workflow.ActionApprove, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "super admin does not approve")

	_, err = h.tickets.Transition(ctx, &h.cfo, ticket.ID, workflow.ActionApprove, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "no skipping ahead")

	_, err = h.tickets.Transition(ctx, &h.production, ticket.ID, workflow.ActionMarkDelivered, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))

	_, err = h.tickets.Transition(ctx, &h.requester, ticket.ID, "teleport", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.tickets.Transition(ctx, &h.requester, "missing", workflow.ActionSubmit, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestConfirmOnlyByRequester(t *testing.T) {
	h := newHarness(t)
	ticket := h.deliverEngineering(t)

	_, err := h.tickets.Transition(context.Background(), &h.production, ticket.ID, workflow.ActionConfirmReceipt, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestConcurrentApprovalsExactlyOneWins(t *testing.T) {
	h := newHarness(t)
	second := h.store.PutUser(domain.User{Email: "fh2.eng@example.com", Roles: domain.RoleSet{domain.RoleFunctionalHead}, Team: team(domain.TeamEngineering), Active: true})
	ticket := h.create(t, domain.TeamEngineering)
	h.act(t, h.requester, ticket.ID, workflow.ActionSubmit, "")
	auditBefore := len(h.store.ApprovalLogs())

	approvers := []domain.User{h.fhEng, second, h.fhEng, second}
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for i := range approvers {
		wg.Add(1)
		go func(actor domain.User) {
			defer wg.Done()
			_, err := h.tickets.Transition(context.Background(), &actor, ticket.ID, workflow.ActionApprove, "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}(approvers[i])
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	for _, err := range failures {
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState) || apperrors.HasCode(err, apperrors.CodeForbidden), err)
	}
	assert.Len(t, h.store.ApprovalLogs(), auditBefore+1)

	stored, err := h.store.Tickets().GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPendingL1Approval, stored.Status)
}

func TestAuditFailureAbortsApproval(t *testing.T) {
	h := newHarness(t)
	ticket := h.create(t, domain.TeamEngineering)
	h.act(t, h.requester, ticket.ID, workflow.ActionSubmit, "")

	h.store.FailAuditWrites = true
	_, err := h.tickets.Transition(context.Background(), &h.fhEng, ticket.ID, workflow.ActionApprove, "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))

	stored, err := h.store.Tickets().GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPendingFHApproval, stored.Status)
	assert.Len(t, h.notificationsOf(domain.NotificationAssignment), 1, "only the submit notification exists")
}

func TestAutoCloseExpired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	start := h.clock.Now()

	stale := h.deliverEngineering(t)
	h.clock.Advance(2 * time.Hour)
	fresh := h.deliverEngineering(t)
	confirmed := h.deliverEngineering(t)

	h.clock.Advance(38 * time.Hour) // hour 40
	h.act(t, h.requester, confirmed.ID, workflow.ActionConfirmReceipt, "")

	h.clock.Advance(9 * time.Hour) // hour 49
	require.Equal(t, 49*time.Hour, h.clock.Now().Sub(start))

	closed, err := h.tickets.AutoCloseExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	got, err := h.store.Tickets().GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, got.Status)
	require.NotNil(t, got.AutoClosedAt)
	assert.Nil(t, got.ConfirmedAt)

	got, err = h.store.Tickets().GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusDelivered, got.Status, "47h old delivery stays open")

	got, err = h.store.Tickets().GetByID(ctx, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, got.Status)
	assert.Nil(t, got.AutoClosedAt)
	assert.NotNil(t, got.ConfirmedAt)

	closures := 0
	for _, n := range h.notificationsOf(domain.NotificationClosure) {
		if n.Payload["autoClosed"] == true {
			closures++
		}
	}
	assert.Equal(t, 1, closures)

	closed, err = h.tickets.AutoCloseExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, closed, "second run is a no-op")
}

func TestAutoCloseSkipsConcurrentConfirmation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.deliverEngineering(t)
	h.clock.Advance(72 * time.Hour)

	snapshot, err := h.store.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	h.act(t, h.requester, ticket.ID, workflow.ActionConfirmReceipt, "")

	ok, err := h.tickets.autoCloseOne(ctx, snapshot)
	require.NoError(t, err)
	assert.False(t, ok, "stale snapshot must not close twice")

	got, err := h.store.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AutoClosedAt)
}

func TestVisibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	draft := h.create(t, domain.TeamEngineering)
	pending := h.create(t, domain.TeamEngineering)
	h.act(t, h.requester, pending.ID, workflow.ActionSubmit, "")

	list, err := h.tickets.ListTickets(ctx, &h.requester, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = h.tickets.ListTickets(ctx, &h.fhEng, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, pending.ID, list[0].ID)

	list, err = h.tickets.ListTickets(ctx, &h.l1Sales, TicketListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = h.tickets.GetTicket(ctx, &h.fhEng, draft.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = h.tickets.GetTicket(ctx, &h.admin, draft.ID)
	assert.NoError(t, err)

	_, err = h.tickets.GetTicket(ctx, &h.admin, "nope")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

// uncastableIDs answers every lookup the way Postgres does for a path id that
// is not a UUID.
type uncastableIDs struct {
	repository.TicketRepository
}

func (uncastableIDs) GetByID(context.Context, string) (*domain.Ticket, error) {
	return nil, &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}
}

func TestMalformedTicketIDIsNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tickets := uncastableIDs{TicketRepository: h.store.Tickets()}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:      tickets,
		ApprovalLogRepo: h.store.ApprovalLogsRepo(),
		Clock:           h.clock.Now,
	})
	comments := NewCommentService(CommentDependencies{
		TicketRepo:  tickets,
		CommentRepo: h.store.Comments(),
		UserRepo:    h.store.Users(),
	})

	_, err := svc.GetTicket(ctx, &h.admin, "not-a-uuid")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "get: %v", err)

	_, err = svc.ListApprovals(ctx, &h.admin, "not-a-uuid")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "approvals: %v", err)

	_, err = svc.Transition(ctx, &h.requester, "not-a-uuid", workflow.ActionSubmit, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "transition: %v", err)

	_, err = comments.ListComments(ctx, &h.admin, "not-a-uuid")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "comments: %v", err)
}
