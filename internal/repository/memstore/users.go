package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/procurekit/procurement-service/internal/domain"
)

type userRepo struct{ s *Store }

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r userRepo) ListProfilesByEmail(_ context.Context, email string) ([]domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.filter(func(u domain.User) bool {
		return u.Active && strings.ToLower(u.Email) == email
	}), nil
}

func (r userRepo) ListActiveByRole(_ context.Context, role domain.Role, team *domain.TeamName) ([]domain.User, error) {
	return r.filter(func(u domain.User) bool {
		if !u.Active || !u.Roles.Has(role) {
			return false
		}
		return team == nil || (u.Team != nil && *u.Team == *team)
	}), nil
}

func (r userRepo) ListActiveByEmails(_ context.Context, emails []string) ([]domain.User, error) {
	wanted := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		wanted[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	return r.filter(func(u domain.User) bool {
		_, ok := wanted[strings.ToLower(u.Email)]
		return u.Active && ok
	}), nil
}

func (r userRepo) ListActive(_ context.Context) ([]domain.User, error) {
	return r.filter(func(u domain.User) bool { return u.Active }), nil
}

func (r userRepo) filter(keep func(domain.User) bool) []domain.User {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.User
	for _, u := range r.s.users {
		if keep(u) {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}
