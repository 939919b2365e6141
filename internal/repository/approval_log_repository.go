package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procurekit/procurement-service/internal/domain"
)

// ApprovalLogRepository reads the approval audit trail. Entries are written
// only inside TicketRepository.ApplyTransition.
type ApprovalLogRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ApprovalLog, error)
}

type approvalLogRepository struct {
	pool *pgxpool.Pool
}

// NewApprovalLogRepository builds repository.
func NewApprovalLogRepository(pool *pgxpool.Pool) ApprovalLogRepository {
	return &approvalLogRepository{pool: pool}
}

func insertApprovalLog(ctx context.Context, q pgxQuerier, entry *domain.ApprovalLog) error {
	const query = `
        INSERT INTO approval_logs (ticket_id, user_id, user_email, action, remarks)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		entry.TicketID,
		entry.UserID,
		entry.UserEmail,
		entry.Action,
		entry.Remarks,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *approvalLogRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ApprovalLog, error) {
	const query = `
        SELECT id, ticket_id, user_id, user_email, action, remarks, created_at
        FROM approval_logs WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ApprovalLog
	for rows.Next() {
		var entry domain.ApprovalLog
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.UserID,
			&entry.UserEmail,
			&entry.Action,
			&entry.Remarks,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
