package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procurekit/procurement-service/internal/domain"
	"github.com/procurekit/procurement-service/internal/workflow"
)

// TicketFilter captures listing parameters. Visibility is always applied.
type TicketFilter struct {
	Visibility workflow.Visibility
	Statuses   []domain.TicketStatus
	Team       *domain.TeamName
	Priorities []domain.TicketPriority
	SearchTerm *string
	Limit      int
	Offset     int
}

// TransitionInput describes one atomic workflow write: a chain of conditional
// status steps, the timestamps they stamp, and an optional audit entry.
type TransitionInput struct {
	TicketID         string
	Steps            []workflow.Step
	Stamps           []workflow.Stamp
	At               time.Time
	RejectionRemarks *string
	Audit            *domain.ApprovalLog
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	RequestIDExists(ctx context.Context, requestID string) (bool, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListDeliveredBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error)
	ApplyTransition(ctx context.Context, in TransitionInput) (*domain.Ticket, error)
}

var stampColumns = map[workflow.Stamp]string{
	workflow.StampDelivered:  "delivered_at",
	workflow.StampConfirmed:  "confirmed_at",
	workflow.StampAutoClosed: "auto_closed_at",
}

const ticketColumns = `id, request_id, requester_id, team_name, title, description, status, priority,
        requester_name, department, component_description, bom_id, product_id, item_name, project_customer,
        need_by_date, charge_code, cost_currency, estimated_cost, rate, unit, estimated_po_date,
        place_of_delivery, quantity, deal_name, rejection_remarks,
        created_at, updated_at, delivered_at, confirmed_at, auto_closed_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (request_id, requester_id, team_name, title, description, status, priority,
            requester_name, department, component_description, bom_id, product_id, item_name, project_customer,
            need_by_date, charge_code, cost_currency, estimated_cost, rate, unit, estimated_po_date,
            place_of_delivery, quantity, deal_name)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
        RETURNING id, created_at, updated_at`
	d := ticket.Details
	err := r.pool.QueryRow(ctx, query,
		ticket.RequestID,
		ticket.RequesterID,
		ticket.TeamName,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		d.RequesterName,
		d.Department,
		d.ComponentDescription,
		d.BOMID,
		d.ProductID,
		d.ItemName,
		d.ProjectCustomer,
		d.NeedByDate,
		d.ChargeCode,
		d.CostCurrency,
		d.EstimatedCost,
		d.Rate,
		d.Unit,
		d.EstimatedPODate,
		d.PlaceOfDelivery,
		d.Quantity,
		d.DealName,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if isUniqueViolation(err, requestIDConstraint) {
		return ErrDuplicateRequestID
	}
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return getTicket(ctx, r.pool, id)
}

func getTicket(ctx context.Context, q pgxQuerier, id string) (*domain.Ticket, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &tickets[0], nil
}

func (r *ticketRepository) RequestIDExists(ctx context.Context, requestID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE request_id=$1)`, requestID).Scan(&exists)
	return exists, err
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if vis := visibilityClause(filter.Visibility, &args); vis != "" {
		clauses = append(clauses, vis)
	}
	if filter.Team != nil {
		args = append(args, *filter.Team)
		clauses = append(clauses, fmt.Sprintf("team_name=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(request_id) LIKE %s)", placeholder, placeholder))
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// visibilityClause renders a workflow.Visibility as an OR of predicates.
func visibilityClause(vis workflow.Visibility, args *[]any) string {
	if vis.All {
		return ""
	}
	var parts []string
	if vis.OwnerID != "" {
		*args = append(*args, vis.OwnerID)
		parts = append(parts, fmt.Sprintf("requester_id=$%d", len(*args)))
	}
	for _, scope := range vis.Scopes {
		*args = append(*args, scope.Status)
		statusArg := len(*args)
		if scope.Team == nil {
			parts = append(parts, fmt.Sprintf("status=$%d", statusArg))
			continue
		}
		*args = append(*args, *scope.Team)
		parts = append(parts, fmt.Sprintf("(status=$%d AND team_name=$%d)", statusArg, len(*args)))
	}
	if len(parts) == 0 {
		return "FALSE"
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func (r *ticketRepository) ListDeliveredBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 500
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets
        WHERE status=$1 AND delivered_at IS NOT NULL AND delivered_at < $2
        ORDER BY delivered_at ASC LIMIT %d`, ticketColumns, limit)
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusDelivered, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ApplyTransition(ctx context.Context, in TransitionInput) (*domain.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for i, step := range in.Steps {
		sets := []string{"status=$1", "updated_at=$2"}
		if i < len(in.Stamps) {
			if column, ok := stampColumns[in.Stamps[i]]; ok {
				sets = append(sets, column+"=$2")
			}
		}
		args := []any{step.To, in.At, in.TicketID, step.From}
		if step.To == domain.TicketStatusRejected && in.RejectionRemarks != nil {
			args = append(args, *in.RejectionRemarks)
			sets = append(sets, fmt.Sprintf("rejection_remarks=$%d", len(args)))
		}
		query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id=$3 AND status=$4`, strings.Join(sets, ", "))
		cmd, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		if cmd.RowsAffected() == 0 {
			return nil, ErrStaleStatus
		}
	}

	if in.Audit != nil {
		if err := insertApprovalLog(ctx, tx, in.Audit); err != nil {
			return nil, fmt.Errorf("write approval log: %w", err)
		}
	}

	ticket, err := getTicket(ctx, tx, in.TicketID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		d := &ticket.Details
		if err := rows.Scan(
			&ticket.ID,
			&ticket.RequestID,
			&ticket.RequesterID,
			&ticket.TeamName,
			&ticket.Title,
			&ticket.Description,
			&ticket.Status,
			&ticket.Priority,
			&d.RequesterName,
			&d.Department,
			&d.ComponentDescription,
			&d.BOMID,
			&d.ProductID,
			&d.ItemName,
			&d.ProjectCustomer,
			&d.NeedByDate,
			&d.ChargeCode,
			&d.CostCurrency,
			&d.EstimatedCost,
			&d.Rate,
			&d.Unit,
			&d.EstimatedPODate,
			&d.PlaceOfDelivery,
			&d.Quantity,
			&d.DealName,
			&ticket.RejectionRemarks,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.DeliveredAt,
			&ticket.ConfirmedAt,
			&ticket.AutoClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
