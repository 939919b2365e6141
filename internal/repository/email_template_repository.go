package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procurekit/procurement-service/internal/domain"
)

// EmailTemplateRepository looks up admin-configured templates.
type EmailTemplateRepository interface {
	// FindEnabled returns the most recently updated enabled template, or nil.
	FindEnabled(ctx context.Context, trigger string, timeline domain.TemplateTimeline) (*domain.EmailTemplate, error)
}

type emailTemplateRepository struct {
	pool *pgxpool.Pool
}

// NewEmailTemplateRepository builds repository.
func NewEmailTemplateRepository(pool *pgxpool.Pool) EmailTemplateRepository {
	return &emailTemplateRepository{pool: pool}
}

func (r *emailTemplateRepository) FindEnabled(ctx context.Context, trigger string, timeline domain.TemplateTimeline) (*domain.EmailTemplate, error) {
	const query = `
        SELECT id, name, trigger, timeline, subject_template, body_template, enabled, updated_at
        FROM email_templates WHERE trigger=$1 AND timeline=$2 AND enabled=true
        ORDER BY updated_at DESC LIMIT 1`
	var tpl domain.EmailTemplate
	err := r.pool.QueryRow(ctx, query, trigger, timeline).Scan(
		&tpl.ID,
		&tpl.Name,
		&tpl.Trigger,
		&tpl.Timeline,
		&tpl.SubjectTemplate,
		&tpl.BodyTemplate,
		&tpl.Enabled,
		&tpl.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}
