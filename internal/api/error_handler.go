package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/higher/admin-access/internal/core/domain"
)

// ErrorResponse is the canonical error envelope for all API errors.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status and a stable code.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "code": "<kind>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, ErrorResponse) {
	// Echo's own errors (router 404/405, body limit, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, ErrorResponse{Error: fmt.Sprintf("%v", he.Message), Code: httpErrorCode(he.Code)}
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Code: "validation_error", Fields: verr.Fields}
	}

	var cerr *domain.ConflictError
	if errors.As(err, &cerr) {
		resp := ErrorResponse{Error: cerr.Error(), Code: "conflict"}
		if cerr.Field != "" {
			resp.Fields = map[string]string{cerr.Field: "already registered"}
		}
		return http.StatusConflict, resp
	}

	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		return http.StatusUnauthorized, ErrorResponse{Error: "authorization required", Code: "missing_credential"}
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusForbidden, ErrorResponse{Error: "invalid or expired token", Code: "credential_rejected"}
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden, ErrorResponse{Error: "access denied", Code: "access_denied"}
	case errors.Is(err, domain.ErrProtectedIdentity):
		return http.StatusForbidden, ErrorResponse{Error: domain.ErrProtectedIdentity.Error(), Code: "protected_identity"}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "user not found", Code: "not_found"}
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, ErrorResponse{Error: "user already exists", Code: "conflict"}
	case errors.Is(err, domain.ErrIncorrectCredential):
		return http.StatusBadRequest, ErrorResponse{Error: "invalid credentials", Code: "incorrect_credential"}
	case errors.Is(err, domain.ErrPasswordResetRequired):
		return http.StatusForbidden, ErrorResponse{Error: "password reset required", Code: "password_reset_required"}
	case errors.Is(err, domain.ErrAccountInactive):
		return http.StatusForbidden, ErrorResponse{Error: "account is inactive", Code: "account_inactive"}
	case errors.Is(err, domain.ErrStoreTimeout):
		log.Warn().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("store timeout")
		return http.StatusServiceUnavailable, ErrorResponse{Error: "service temporarily unavailable", Code: "store_timeout"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "internal_error"}
}

func httpErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "missing_credential"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	if status >= http.StatusInternalServerError {
		return "internal_error"
	}
	return "http_error"
}
