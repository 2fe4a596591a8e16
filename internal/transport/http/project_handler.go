package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/query"
	"github.com/sci-com/scicom-api/internal/service"
	"github.com/sci-com/scicom-api/internal/util"
)

const formFieldProjectFile = "file"

type ProjectHandler struct {
	projects *service.ProjectService
	logger   *zap.Logger
}

func RegisterProjects(e *echo.Echo, auth *service.AuthService, projects *service.ProjectService, logger *zap.Logger) {
	handler := &ProjectHandler{projects: projects, logger: logger}

	e.GET("/project/:id/file", handler.downloadFile)

	protected := e.Group("/project", RequireAuth(auth))
	protected.GET("", handler.list)
	protected.POST("", handler.create)
	protected.GET("/:id", handler.get)
	protected.PUT("/:id", handler.update)
	protected.DELETE("/:id", handler.delete)
	protected.POST("/:id/status", handler.setStatus)
	protected.POST("/:id/file", handler.uploadFile)
	protected.GET("/:id/applications", handler.applications)
}

func (h *ProjectHandler) list(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	result, err := h.projects.List(c.Request().Context(), user, query.FromValues(c.QueryParams()))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, PageResponse{Results: result.Results, Total: result.Total, TotalPages: result.TotalPages})
}

func (h *ProjectHandler) create(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	input, err := bindProjectInput(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}

	project, err := h.projects.Create(c.Request().Context(), user, input)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, project)
}

func (h *ProjectHandler) get(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	id, err := projectID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}

	detail, err := h.projects.Get(c.Request().Context(), user, id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *ProjectHandler) update(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	id, err := projectID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	input, err := bindProjectInput(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}

	project, err := h.projects.Update(c.Request().Context(), user, id, input)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) delete(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	id, err := projectID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}

	if err := h.projects.Delete(c.Request().Context(), user, id); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"id": id, "status": "deleted"})
}

func (h *ProjectHandler) setStatus(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	id, err := projectID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	status := domain.ProjectStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	project, err := h.projects.SetStatus(c.Request().Context(), user, id, status)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) uploadFile(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	id, err := projectID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}

	upload, file, err := formUpload(c, formFieldProjectFile)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("unable to read file"))
	}
	if upload == nil {
		return c.JSON(http.StatusBadRequest, util.Error("file is required"))
	}
	defer file.Close()

	project, err := h.projects.UploadFile(c.Request().Context(), user, id, *upload)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) downloadFile(c echo.Context) error {
	id, err := projectID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	body, info, err := h.projects.OpenFile(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return streamObject(c, body, info, "application/pdf")
}

func (h *ProjectHandler) applications(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	id, err := projectID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}

	applications, err := h.projects.Applications(c.Request().Context(), user, id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, applications)
}

func projectID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		return uuid.Nil, errors.New("invalid project id")
	}
	return id, nil
}

func bindProjectInput(c echo.Context) (service.ProjectInput, error) {
	var req ProjectRequest
	if err := c.Bind(&req); err != nil {
		return service.ProjectInput{}, errors.New("invalid request body")
	}
	return projectInput(req)
}

func projectInput(req ProjectRequest) (service.ProjectInput, error) {
	input := service.ProjectInput{
		Title:       req.Title,
		Description: req.Description,
		Nature:      req.Nature,
		State:       req.State,
		Tags:        req.Tags,
		Salary:      req.Salary,
		Questions:   req.Questions,
	}
	var err error
	if input.From, err = optionalDate("from", req.From); err != nil {
		return input, err
	}
	if input.To, err = optionalDate("to", req.To); err != nil {
		return input, err
	}
	return input, nil
}

func optionalDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := query.ParseDate(*raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a date", field)
	}
	return &t, nil
}
