package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/higher/admin-access/internal/core/domain"
	"github.com/higher/admin-access/internal/core/ports"
)

type AccessHandler struct {
	accessService ports.AccessService
}

func NewAccessHandler(accessService ports.AccessService) *AccessHandler {
	return &AccessHandler{accessService: accessService}
}

type replaceAccessRequest struct {
	UserID    int64    `json:"user_id" validate:"omitempty,gt=0"`
	Email     string   `json:"email" validate:"omitempty,email"`
	APIAccess []string `json:"api_access" validate:"required,dive,max=100"`
}

type replaceAccessResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

type verifyAccessRequest struct {
	UserID int64    `json:"user_id" validate:"required,gt=0"`
	Pages  []string `json:"pages" validate:"required,dive,max=100"`
}

type listAccessResponse struct {
	UserID    int64    `json:"userId"`
	APIAccess []string `json:"api_access"`
}

// Replace swaps the target user's grants for the given set.
//
// @Summary      Replace a user's grants
// @Tags         access
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      replaceAccessRequest  true  "Target and new grant set"
// @Success      200   {object}  replaceAccessResponse
// @Failure      400   {object}  api.ErrorResponse
// @Failure      401   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Failure      404   {object}  api.ErrorResponse
// @Failure      503   {object}  api.ErrorResponse
// @Router       /access [put]
func (h *AccessHandler) Replace(c echo.Context) error {
	actor, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req replaceAccessRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	userID, err := h.accessService.Replace(c.Request().Context(), ports.ReplaceGrantsInput{
		Actor:      actor,
		UserID:     req.UserID,
		Email:      req.Email,
		Operations: req.APIAccess,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, replaceAccessResponse{Message: "Access updated successfully", UserID: userID})
}

// Verify reports, for each page name, whether the user holds it.
//
// @Summary      Bulk access check
// @Tags         access
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      verifyAccessRequest  true  "User and candidate operations"
// @Success      200   {object}  map[string]bool
// @Failure      400   {object}  api.ErrorResponse
// @Failure      401   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Router       /access/verify [post]
func (h *AccessHandler) Verify(c echo.Context) error {
	var req verifyAccessRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.accessService.Verify(c.Request().Context(), req.UserID, req.Pages)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// List returns the operations granted to a user.
//
// @Summary      List a user's grants
// @Tags         access
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  path      int  true  "User ID"
// @Success      200      {object}  listAccessResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Router       /access/{user_id} [get]
func (h *AccessHandler) List(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return domain.NewValidationError("user_id", "user_id must be a positive integer")
	}

	ops, err := h.accessService.List(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	if ops == nil {
		ops = []string{}
	}

	return c.JSON(http.StatusOK, listAccessResponse{UserID: userID, APIAccess: ops})
}
