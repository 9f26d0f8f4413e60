package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/higher/admin-access/internal/core/domain"
	"github.com/higher/admin-access/internal/core/ports"
)

// RequireGrant allows the request only when the authenticated caller holds
// operation. It must be mounted after Authenticate.
func RequireGrant(access ports.AccessService, operation string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := IdentityFrom(c)
			if !ok {
				return domain.ErrMissingCredential
			}
			if err := access.Check(c.Request().Context(), identity.UserID, operation); err != nil {
				return err
			}
			return next(c)
		}
	}
}
