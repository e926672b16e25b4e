package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/greenhatah/hotspot_pay/internal/auth"
)

const operatorLocal = "operator"

// OperatorAuth requires a bearer access token issued by svc. With a nil
// service every request is rejected, so operator routes stay closed when no
// operator account is configured.
func OperatorAuth(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if svc == nil {
			return fiber.NewError(http.StatusUnauthorized, "operator login disabled")
		}
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		operator, err := svc.Verify(strings.TrimSpace(authz[len("Bearer "):]))
		if errors.Is(err, auth.ErrExpiredToken) {
			return fiber.NewError(http.StatusUnauthorized, "token expired")
		}
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(operatorLocal, operator)
		return c.Next()
	}
}

// OperatorFrom returns the operator authenticated by OperatorAuth.
func OperatorFrom(c *fiber.Ctx) string {
	op, _ := c.Locals(operatorLocal).(string)
	return op
}
