package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/procurekit/procurement-service/internal/domain"
	"github.com/procurekit/procurement-service/internal/repository/memstore"
	apperrors "github.com/procurekit/procurement-service/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 30)

	token, exp, err := tm.GenerateToken("profile-1", "fh@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "profile-1", claims.ProfileID)
	assert.Equal(t, "fh@example.com", claims.Email)

	_, err = NewTokenManager("other", 30).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenExpiry(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	token, _, err := tm.GenerateToken("profile-1", "a@example.com")
	require.NoError(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestVerifySecret(t *testing.T) {
	hash, err := HashSecret("s3cret", bcrypt.MinCost)
	require.NoError(t, err)

	cases := []struct {
		name       string
		configured string
		provided   string
		want       bool
	}{
		{"plain match", "s3cret", "s3cret", true},
		{"plain mismatch", "s3cret", "nope", false},
		{"bcrypt match", hash, "s3cret", true},
		{"bcrypt mismatch", hash, "nope", false},
		{"nothing configured", "", "s3cret", false},
		{"nothing provided", "s3cret", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, VerifySecret(tc.configured, tc.provided))
		})
	}
}

func newTestApp(t *testing.T) (*fiber.App, *TokenManager, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	tm := NewTokenManager("secret", 60)
	mw := NewAuthMiddleware(tm, store.Users())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	app.Get("/me", mw.Handle, RequireAnyRole(), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.User.ID)
	})
	app.Get("/finance", mw.Handle, RequireAnyRole(domain.RoleCFO, domain.RoleCDO), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	app.Post("/cron", RequireCronSecret("s3cret"), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app, tm, store
}

func TestMiddleware(t *testing.T) {
	app, tm, store := newTestApp(t)
	active := store.PutUser(domain.User{Email: "req@example.com", Roles: domain.RoleSet{domain.RoleRequester}, Active: true})
	disabled := store.PutUser(domain.User{Email: "gone@example.com", Roles: domain.RoleSet{domain.RoleRequester}})

	activeToken, _, err := tm.GenerateToken(active.ID, active.Email)
	require.NoError(t, err)
	disabledToken, _, err := tm.GenerateToken(disabled.ID, disabled.Email)
	require.NoError(t, err)
	mismatchToken, _, err := tm.GenerateToken(active.ID, "someone@example.com")
	require.NoError(t, err)

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/me", "", http.StatusUnauthorized},
		{"malformed header", "/me", "Token abc", http.StatusUnauthorized},
		{"garbage token", "/me", "Bearer abc", http.StatusUnauthorized},
		{"active profile", "/me", "Bearer " + activeToken, http.StatusOK},
		{"disabled profile", "/me", "Bearer " + disabledToken, http.StatusUnauthorized},
		{"email mismatch", "/me", "Bearer " + mismatchToken, http.StatusUnauthorized},
		{"missing role", "/finance", "Bearer " + activeToken, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestCronSecretGuard(t *testing.T) {
	app, _, _ := newTestApp(t)

	for header, want := range map[string]int{
		"":              http.StatusUnauthorized,
		"Bearer wrong":  http.StatusUnauthorized,
		"Bearer s3cret": http.StatusNoContent,
	} {
		req := httptest.NewRequest(http.MethodPost, "/cron", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, header)
	}
}
