package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/procurekit/procurement-service/internal/domain"
	apperrors "github.com/procurekit/procurement-service/pkg/util/errorutil"
)

// RequireAnyRole ensures the caller is authenticated and, when roles are
// given, holds at least one of them.
func RequireAnyRole(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(roles) == 0 || principal.User.Roles.HasAny(roles...) {
			return c.Next()
		}
		return apperrors.NewForbidden("insufficient role")
	}
}
