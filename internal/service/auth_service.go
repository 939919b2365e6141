package service

import (
	"context"
	"strings"
	"time"

	"github.com/procurekit/procurement-service/internal/auth"
	"github.com/procurekit/procurement-service/internal/config"
	"github.com/procurekit/procurement-service/internal/domain"
	"github.com/procurekit/procurement-service/internal/repository"
	apperrors "github.com/procurekit/procurement-service/pkg/util/errorutil"
)

// AuthService issues access tokens for profiles. Primary sign-in happens at
// the identity provider in front of the service; tokens minted here serve
// profile switching and development logins.
type AuthService struct {
	users    repository.UserRepository
	tokenMgr *auth.TokenManager
	devLogin bool
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
}

// IssuedToken is a signed access token for one profile.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	Profile   *domain.User
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:    deps.UserRepo,
		tokenMgr: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		devLogin: cfg.App.Env == "development",
	}
}

// ListProfiles returns every active profile sharing the caller's email.
func (s *AuthService) ListProfiles(ctx context.Context, email string) ([]domain.User, error) {
	profiles, err := s.users.ListProfilesByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if profiles == nil {
		profiles = []domain.User{}
	}
	return profiles, nil
}

// SwitchProfile issues a token for another active profile with the same email.
func (s *AuthService) SwitchProfile(ctx context.Context, current *domain.User, profileID string) (*IssuedToken, error) {
	if current == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	target, err := s.users.GetByID(ctx, profileID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewNotFound("profile", map[string]any{"profile_id": profileID})
		}
		return nil, apperrors.MapError(err)
	}
	if !strings.EqualFold(target.Email, current.Email) {
		return nil, apperrors.NewForbidden("profile belongs to another account")
	}
	if !target.Active {
		return nil, apperrors.NewForbidden("profile is disabled")
	}
	return s.issue(target)
}

// DevLogin issues a token for the first active profile of email. It is only
// available when APP_ENV is development.
func (s *AuthService) DevLogin(ctx context.Context, email string) (*IssuedToken, error) {
	if !s.devLogin {
		return nil, apperrors.NewNotFound("route", nil)
	}
	profiles, err := s.users.ListProfilesByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(profiles) == 0 {
		return nil, apperrors.NewUnauthorized("no active profile for email")
	}
	return s.issue(&profiles[0])
}

func (s *AuthService) issue(profile *domain.User) (*IssuedToken, error) {
	token, exp, err := s.tokenMgr.GenerateToken(profile.ID, profile.Email)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &IssuedToken{Token: token, ExpiresAt: exp, Profile: profile}, nil
}

// TokenManager exposes the token manager for the auth middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
