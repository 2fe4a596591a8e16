package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sci-com/scicom-api/internal/query"
	"github.com/sci-com/scicom-api/internal/service"
	"github.com/sci-com/scicom-api/internal/util"
)

// errorStatus maps service errors to a status code. Unknown errors map to 500.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountNotVerified),
		errors.Is(err, service.ErrSessionInactive):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrPoliticianOnly),
		errors.Is(err, service.ErrStudentOnly),
		errors.Is(err, service.ErrProjectCreatorOnly),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrTokenMismatch):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrProjectNotFound),
		errors.Is(err, service.ErrApplicationNotFound),
		errors.Is(err, service.ErrBookmarkNotFound),
		errors.Is(err, service.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUserAlreadyExists),
		errors.Is(err, service.ErrApplicationExists),
		errors.Is(err, service.ErrBookmarkAlreadyExists),
		errors.Is(err, service.ErrApplicationNotPending),
		errors.Is(err, service.ErrProjectNotOpen),
		errors.Is(err, service.ErrInvalidStatusTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrAcademicEmailRequired),
		errors.Is(err, service.ErrPasswordTooWeak),
		errors.Is(err, query.ErrEmptyQuery):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err in the error envelope. Internal errors are logged
// and answered with a generic message.
func writeError(c echo.Context, logger *zap.Logger, err error) error {
	var invalid *query.ValidationError
	if errors.As(err, &invalid) {
		return c.JSON(http.StatusBadRequest, util.InvalidFields("invalid query", invalid.Fields))
	}
	var denied *service.FieldsNotAllowedError
	if errors.As(err, &denied) {
		return c.JSON(http.StatusBadRequest, util.InvalidFields("fields not allowed for this role", denied.Fields))
	}

	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		return c.JSON(status, util.Error("internal error"))
	}
	return c.JSON(status, util.Error(err.Error()))
}
