package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/query"
	"github.com/sci-com/scicom-api/internal/service"
	"github.com/sci-com/scicom-api/internal/util"
)

type ApplicationHandler struct {
	applications *service.ApplicationService
	logger       *zap.Logger
}

func RegisterApplications(e *echo.Echo, auth *service.AuthService, applications *service.ApplicationService, logger *zap.Logger) {
	handler := &ApplicationHandler{applications: applications, logger: logger}

	protected := e.Group("/application", RequireAuth(auth))
	protected.GET("", handler.list)
	protected.POST("", handler.apply)
	protected.GET("/:id", handler.get)
	protected.DELETE("/:id", handler.withdraw)
	protected.POST("/:id/accept", handler.accept)
	protected.POST("/:id/reject", handler.reject)
}

func (h *ApplicationHandler) list(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	result, err := h.applications.List(c.Request().Context(), user, query.FromValues(c.QueryParams()))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, PageResponse{Results: result.Results, Total: result.Total, TotalPages: result.TotalPages})
}

func (h *ApplicationHandler) apply(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	var req ApplicationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	projectID, err := uuid.Parse(strings.TrimSpace(req.Project))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("project must be a valid UUID"))
	}

	application, err := h.applications.Apply(c.Request().Context(), user, projectID, req.Answers)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, application)
}

func (h *ApplicationHandler) get(c echo.Context) error {
	return h.withApplication(c, func(user *domain.User, id uuid.UUID) (*domain.Application, error) {
		return h.applications.Get(c.Request().Context(), user, id)
	})
}

func (h *ApplicationHandler) accept(c echo.Context) error {
	return h.withApplication(c, func(user *domain.User, id uuid.UUID) (*domain.Application, error) {
		return h.applications.Accept(c.Request().Context(), user, id)
	})
}

func (h *ApplicationHandler) reject(c echo.Context) error {
	return h.withApplication(c, func(user *domain.User, id uuid.UUID) (*domain.Application, error) {
		return h.applications.Reject(c.Request().Context(), user, id)
	})
}

func (h *ApplicationHandler) withdraw(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid application id"))
	}

	if err := h.applications.Withdraw(c.Request().Context(), user, id); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"id": id, "status": "withdrawn"})
}

func (h *ApplicationHandler) withApplication(c echo.Context, fn func(*domain.User, uuid.UUID) (*domain.Application, error)) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid application id"))
	}

	application, err := fn(user, id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, application)
}
