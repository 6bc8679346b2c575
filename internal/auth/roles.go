package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cityreport/incident-service/internal/domain"
	apperrors "github.com/cityreport/incident-service/pkg/util/errorutil"
)

// RequirePermission rejects callers the policy does not grant perm.
func RequirePermission(policy *Policy, perm domain.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := CallerFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("missing identity")
		}
		if !policy.Allowed(caller, perm) {
			return apperrors.NewForbidden("insufficient permissions")
		}
		return c.Next()
	}
}
