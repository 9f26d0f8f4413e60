package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/higher/admin-access/internal/api/middleware"
	"github.com/higher/admin-access/internal/core/domain"
)

// ctxIdentity returns the caller bound by the Authenticate middleware. Its
// absence means the route was mounted without the gate, which is reported as
// a missing credential rather than trusted.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok || id.UserID <= 0 {
		return domain.Identity{}, domain.ErrMissingCredential
	}
	return id, nil
}

// bindAndValidate decodes the request body into req and runs the struct validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewValidationError("body", "invalid payload")
	}
	return c.Validate(req)
}
