package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/query"
	"github.com/sci-com/scicom-api/internal/service"
	"github.com/sci-com/scicom-api/internal/util"
)

type SearchHandler struct {
	search *service.SearchService
	logger *zap.Logger
}

func RegisterSearch(e *echo.Echo, auth *service.AuthService, search *service.SearchService, logger *zap.Logger) {
	handler := &SearchHandler{search: search, logger: logger}

	protected := e.Group("/search", RequireAuth(auth))
	protected.GET("", handler.run)
	protected.POST("", handler.run)
}

// run accepts the payload as a JSON body or as query parameters.
func (h *SearchHandler) run(c echo.Context) error {
	var req query.SearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid search payload"))
	}

	result, err := h.search.Search(c.Request().Context(), req)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ConstantsResponse lists the enumerations clients render in forms.
type ConstantsResponse struct {
	GermanStates      []string                   `json:"germanStates"`
	ProjectStatus     []domain.ProjectStatus     `json:"projectStatus"`
	ProjectType       []domain.ProjectNature     `json:"projectType"`
	ApplicationStatus []domain.ApplicationStatus `json:"applicationStatus"`
}

func RegisterConstants(e *echo.Echo) {
	response := ConstantsResponse{
		GermanStates:      domain.GermanStates,
		ProjectStatus:     domain.ProjectStatuses,
		ProjectType:       domain.ProjectNatures,
		ApplicationStatus: domain.ApplicationStatuses,
	}
	e.GET("/constants", func(c echo.Context) error {
		return c.JSON(http.StatusOK, response)
	})
}
