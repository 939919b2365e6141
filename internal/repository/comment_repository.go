package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procurekit/procurement-service/internal/domain"
)

// CommentRepository persists the ticket discussion thread.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        WITH inserted AS (
            INSERT INTO comments (ticket_id, user_id, body) VALUES ($1,$2,$3)
            RETURNING id, user_id, created_at
        )
        SELECT inserted.id, inserted.created_at, u.name, u.email
        FROM inserted JOIN users u ON u.id = inserted.user_id`
	return r.pool.QueryRow(ctx, query, comment.TicketID, comment.UserID, comment.Body).
		Scan(&comment.ID, &comment.CreatedAt, &comment.AuthorName, &comment.AuthorMail)
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	const query = `
        SELECT c.id, c.ticket_id, c.user_id, u.name, u.email, c.body, c.created_at
        FROM comments c JOIN users u ON u.id = c.user_id
        WHERE c.ticket_id=$1 ORDER BY c.created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.TicketID, &c.UserID, &c.AuthorName, &c.AuthorMail, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
