package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/higher/admin-access/internal/core/domain"
	"github.com/higher/admin-access/internal/core/ports"
)

const identityKey = "identity"

// Authenticate resolves the bearer token to an identity and stores it in the
// echo context. Requests without a bearer token fail with
// domain.ErrMissingCredential; rejected tokens with domain.ErrInvalidToken.
func Authenticate(auth ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c)
			if !ok {
				return domain.ErrMissingCredential
			}

			identity, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(identityKey, identity)
			return next(c)
		}
	}
}

// OptionalAuthenticate behaves like Authenticate when an Authorization header
// is present and lets the request through anonymously when it is not.
func OptionalAuthenticate(auth ports.AuthService) echo.MiddlewareFunc {
	required := Authenticate(auth)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withAuth := required(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return next(c)
			}
			return withAuth(c)
		}
	}
}

// IdentityFrom returns the identity bound by Authenticate.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get(identityKey).(domain.Identity)
	return id, ok
}

func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
