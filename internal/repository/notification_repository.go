package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procurekit/procurement-service/internal/domain"
)

// NotificationRepository stores append-only notification records.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByRecipient(ctx context.Context, recipient string, limit int) ([]domain.Notification, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (ticket_id, type, recipient, payload)
        VALUES ($1,$2,$3,$4)
        RETURNING id, sent_at`
	return r.pool.QueryRow(ctx, query, n.TicketID, n.Type, n.Recipient, n.Payload).Scan(&n.ID, &n.SentAt)
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipient string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
        SELECT id, ticket_id, type, recipient, payload, sent_at
        FROM notifications WHERE recipient=$1 ORDER BY sent_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, recipient, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.TicketID, &n.Type, &n.Recipient, &n.Payload, &n.SentAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
