package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/procurekit/procurement-service/pkg/util/errorutil"
)

// HashSecret returns a bcrypt hash suitable for CRON_SECRET.
func HashSecret(secret string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifySecret compares provided against configured, which is either a
// bcrypt hash or the plain secret.
func VerifySecret(configured, provided string) bool {
	if configured == "" || provided == "" {
		return false
	}
	if strings.HasPrefix(configured, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(provided)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(provided)) == 1
}

// RequireCronSecret guards operator endpoints with a shared bearer secret.
// With no secret configured the endpoint is closed.
func RequireCronSecret(configured string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return err
		}
		if !VerifySecret(configured, token) {
			return apperrors.NewUnauthorized("invalid cron secret")
		}
		return c.Next()
	}
}
