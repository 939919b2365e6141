package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procurekit/procurement-service/internal/domain"
)

// UserRepository defines read access to user profiles. Profiles are managed
// by administration tooling outside this service.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	ListProfilesByEmail(ctx context.Context, email string) ([]domain.User, error)
	ListActiveByRole(ctx context.Context, role domain.Role, team *domain.TeamName) ([]domain.User, error)
	ListActiveByEmails(ctx context.Context, emails []string) ([]domain.User, error)
	ListActive(ctx context.Context) ([]domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, email, name, profile_name, roles, team, status, created_at, updated_at`

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	users, err := r.query(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &users[0], nil
}

func (r *userRepository) ListProfilesByEmail(ctx context.Context, email string) ([]domain.User, error) {
	return r.query(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email)=$1 AND status=true ORDER BY created_at ASC`,
		strings.ToLower(strings.TrimSpace(email)))
}

func (r *userRepository) ListActiveByRole(ctx context.Context, role domain.Role, team *domain.TeamName) ([]domain.User, error) {
	args := []any{string(role)}
	query := `SELECT ` + userColumns + ` FROM users WHERE status=true AND $1 = ANY(roles)`
	if team != nil {
		args = append(args, *team)
		query += fmt.Sprintf(" AND team=$%d", len(args))
	}
	query += " ORDER BY created_at ASC"
	return r.query(ctx, query, args...)
}

func (r *userRepository) ListActiveByEmails(ctx context.Context, emails []string) ([]domain.User, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	lowered := make([]string, 0, len(emails))
	for _, e := range emails {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(e)))
	}
	return r.query(ctx,
		`SELECT `+userColumns+` FROM users WHERE status=true AND LOWER(email) = ANY($1) ORDER BY email, created_at`,
		lowered)
}

func (r *userRepository) ListActive(ctx context.Context) ([]domain.User, error) {
	return r.query(ctx, `SELECT `+userColumns+` FROM users WHERE status=true ORDER BY name NULLS LAST, email`)
}

func (r *userRepository) query(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var (
			user  domain.User
			roles []string
		)
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Name,
			&user.ProfileName,
			&roles,
			&user.Team,
			&user.Active,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		user.Roles = domain.ParseRoles(roles)
		result = append(result, user)
	}
	return result, rows.Err()
}
