package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/higher/admin-access/internal/api/middleware"
	"github.com/higher/admin-access/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type signupRequest struct {
	FirstName       string   `json:"first_name" validate:"required,max=50"`
	LastName        string   `json:"last_name" validate:"required,max=50"`
	Email           string   `json:"email" validate:"required,email,max=255"`
	Phone           string   `json:"phone_no" validate:"required,max=20"`
	Password        string   `json:"password" validate:"required"`
	ConfirmPassword string   `json:"confirm_password,omitempty" validate:"omitempty,eqfield=Password"`
	APIAccess       []string `json:"api_access,omitempty" validate:"omitempty,dive,max=100"`
}

type signupResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Message   string    `json:"message"`
	UserID    int64     `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type introspectRequest struct {
	Token string `json:"token" validate:"required"`
}

type introspectResponse struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
}

type resetPasswordRequest struct {
	Email           string `json:"email" validate:"required"`
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Signup creates a user account, optionally with initial grants.
//
// @Summary      Register a new user
// @Description  Initial api_access grants require a bearer token holding update_access.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "User registration details"
// @Success      201   {object}  signupResponse
// @Failure      400   {object}  api.ErrorResponse
// @Failure      401   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Failure      409   {object}  api.ErrorResponse
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := ports.SignupInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Password:   req.Password,
		Operations: req.APIAccess,
	}
	if actor, ok := middleware.IdentityFrom(c); ok {
		in.Actor = &actor
	}

	user, err := h.authService.Signup(c.Request().Context(), in)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, signupResponse{Message: "User registered successfully", UserID: user.ID})
}

// Login authenticates a user and returns a signed token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Failure      404   {object}  api.ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{
		Message:   "Login successful",
		UserID:    res.UserID,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	})
}

// Introspect decodes a token without calling a protected route.
//
// @Summary      Introspect a token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      introspectRequest  true  "Token to check"
// @Success      200   {object}  introspectResponse
// @Failure      400   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Router       /auth/introspect [post]
func (h *AuthHandler) Introspect(c echo.Context) error {
	var req introspectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	id, err := h.authService.Authenticate(c.Request().Context(), req.Token)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, introspectResponse{UserID: id.UserID, Email: id.Email})
}

// ResetPassword replaces the caller's own password.
//
// @Summary      Reset own password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Current and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Failure      404   {object}  api.ErrorResponse
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.ResetPassword(c.Request().Context(), req.Email, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Password reset successfully"})
}
