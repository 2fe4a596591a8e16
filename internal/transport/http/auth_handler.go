package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sci-com/scicom-api/internal/service"
	"github.com/sci-com/scicom-api/internal/util"
)

type AuthHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

// RegisterAuth mounts the /auth routes. limiter guards the unauthenticated
// endpoints and may be nil.
func RegisterAuth(e *echo.Echo, auth *service.AuthService, limiter echo.MiddlewareFunc, logger *zap.Logger) {
	handler := &AuthHandler{auth: auth, logger: logger}

	var middlewares []echo.MiddlewareFunc
	if limiter != nil {
		middlewares = append(middlewares, limiter)
	}

	public := e.Group("/auth", middlewares...)
	public.POST("/register", handler.register)
	public.POST("/login", handler.login)
	public.POST("/verifyEmail", handler.verifyEmail)
	public.POST("/resendVerification", handler.resendVerification)
	public.POST("/resetPassword", handler.resetPassword)
	public.POST("/setPassword", handler.setPassword)

	protected := e.Group("/auth", RequireAuth(auth))
	protected.POST("/changePassword", handler.changePassword)
	protected.POST("/logout", handler.logout)
}

func (h *AuthHandler) register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, util.Error("username, email and password are required"))
	}

	if _, err := h.auth.Register(c.Request().Context(), service.RegisterInput{
		Username:     req.Username,
		Email:        req.Email,
		Password:     req.Password,
		IsPolitician: req.IsPolitician,
	}); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"status": "ok"})
}

func (h *AuthHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	result, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, tokenResponse(result))
}

func (h *AuthHandler) verifyEmail(c echo.Context) error {
	var req EmailTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	result, err := h.auth.VerifyEmail(c.Request().Context(), req.Email, req.Token)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, tokenResponse(result))
}

func (h *AuthHandler) resendVerification(c echo.Context) error {
	var req EmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	h.auth.ResendVerification(c.Request().Context(), req.Email)
	return c.JSON(http.StatusOK, util.Envelope{})
}

func (h *AuthHandler) resetPassword(c echo.Context) error {
	var req EmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	h.auth.RequestPasswordReset(c.Request().Context(), req.Email)
	return c.JSON(http.StatusOK, util.Envelope{})
}

func (h *AuthHandler) setPassword(c echo.Context) error {
	var req SetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	updated, err := h.auth.ConfirmPasswordReset(c.Request().Context(), req.Email, req.Token, req.Password)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"updated": updated})
}

func (h *AuthHandler) changePassword(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if req.OriginalPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, util.Error("originalPassword and newPassword are required"))
	}

	if err := h.auth.ChangePassword(c.Request().Context(), user.ID, req.OriginalPassword, req.NewPassword); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"status": "ok"})
}

func (h *AuthHandler) logout(c echo.Context) error {
	if err := h.auth.Logout(c.Request().Context(), currentToken(c)); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"status": "ok"})
}

func tokenResponse(result *service.AuthResult) TokenResponse {
	return TokenResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.UTC(),
		User:      result.User,
	}
}
