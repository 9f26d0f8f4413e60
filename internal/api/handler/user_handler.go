package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/higher/admin-access/internal/core/domain"
	"github.com/higher/admin-access/internal/core/ports"
)

type UserHandler struct {
	authService ports.AuthService
}

func NewUserHandler(authService ports.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

type setPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type setStatusRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
	Active *bool `json:"active" validate:"required"`
}

// List returns every account except the super-administrator.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.User
// @Failure      401  {object}  api.ErrorResponse
// @Failure      403  {object}  api.ErrorResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.authService.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	if users == nil {
		users = []*domain.User{}
	}
	return c.JSON(http.StatusOK, users)
}

// SetPassword sets another user's password and forces a reset on next login.
//
// @Summary      Set a user's password
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      setPasswordRequest  true  "Target email and new password"
// @Success      200   {object}  replaceAccessResponse
// @Failure      400   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Failure      404   {object}  api.ErrorResponse
// @Router       /users/password [put]
func (h *UserHandler) SetPassword(c echo.Context) error {
	actor, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req setPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	userID, err := h.authService.AdminSetPassword(c.Request().Context(), actor, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, replaceAccessResponse{Message: "Password updated successfully", UserID: userID})
}

// SetStatus activates or deactivates an account.
//
// @Summary      Activate or deactivate a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      setStatusRequest  true  "Target id and status"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Failure      404   {object}  api.ErrorResponse
// @Router       /users/status [put]
func (h *UserHandler) SetStatus(c echo.Context) error {
	actor, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req setStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.SetStatus(c.Request().Context(), actor, req.UserID, *req.Active); err != nil {
		return err
	}

	msg := "User deactivated"
	if *req.Active {
		msg = "User activated"
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msg})
}
