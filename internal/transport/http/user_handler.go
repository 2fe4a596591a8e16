package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sci-com/scicom-api/internal/media"
	"github.com/sci-com/scicom-api/internal/query"
	"github.com/sci-com/scicom-api/internal/repository/ports"
	"github.com/sci-com/scicom-api/internal/service"
	"github.com/sci-com/scicom-api/internal/util"
)

const (
	formFieldAvatar = "avatar"
	formFieldCV     = "CV"
)

type UserHandler struct {
	users     *service.UserService
	bookmarks *service.BookmarkService
	logger    *zap.Logger
}

func RegisterUsers(e *echo.Echo, auth *service.AuthService, users *service.UserService, bookmarks *service.BookmarkService, logger *zap.Logger) {
	handler := &UserHandler{users: users, bookmarks: bookmarks, logger: logger}

	public := e.Group("/user")
	public.GET("/:username/avatar", handler.avatar)
	public.GET("/:username/CV", handler.cv)

	protected := e.Group("/user", RequireAuth(auth))
	protected.GET("", handler.search)
	protected.POST("", handler.update)
	protected.DELETE("", handler.delete)
	protected.GET("/bookmarks", handler.listBookmarks)
	protected.POST("/bookmarks", handler.saveBookmark)
	protected.DELETE("/bookmarks/:project_id", handler.removeBookmark)
	protected.GET("/:username", handler.get)
	protected.GET("/:username/projects", handler.projects)
}

func (h *UserHandler) search(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	result, err := h.users.Search(c.Request().Context(), user, query.FromValues(c.QueryParams()))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	if result.Self != nil {
		return c.JSON(http.StatusOK, result.Self)
	}
	return c.JSON(http.StatusOK, PageResponse{Results: result.Results, Total: result.Total, TotalPages: result.TotalPages})
}

func (h *UserHandler) get(c echo.Context) error {
	user, err := h.users.Get(c.Request().Context(), c.Param("username"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) update(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	values, err := c.FormParams()
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid form data"))
	}
	input := profileInput(values)

	avatar, avatarFile, err := formUpload(c, formFieldAvatar)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("unable to read avatar"))
	}
	if avatarFile != nil {
		defer avatarFile.Close()
	}
	cv, cvFile, err := formUpload(c, formFieldCV)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("unable to read CV"))
	}
	if cvFile != nil {
		defer cvFile.Close()
	}
	input.Avatar = avatar
	input.CV = cv

	updated, err := h.users.Update(c.Request().Context(), user, input)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *UserHandler) delete(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	if err := h.users.Delete(c.Request().Context(), user); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"status": "removed"})
}

func (h *UserHandler) projects(c echo.Context) error {
	projects, err := h.users.Projects(c.Request().Context(), c.Param("username"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, projects)
}

func (h *UserHandler) avatar(c echo.Context) error {
	body, info, err := h.users.OpenAvatar(c.Request().Context(), c.Param("username"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return streamObject(c, body, info, "image/png")
}

func (h *UserHandler) cv(c echo.Context) error {
	body, info, err := h.users.OpenCV(c.Request().Context(), c.Param("username"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return streamObject(c, body, info, "application/pdf")
}

func (h *UserHandler) listBookmarks(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	result, err := h.bookmarks.List(c.Request().Context(), user, query.FromValues(c.QueryParams()))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, PageResponse{Results: result.Items, Total: result.Total, TotalPages: result.TotalPages})
}

func (h *UserHandler) saveBookmark(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	var req BookmarkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	projectID, err := uuid.Parse(strings.TrimSpace(req.ProjectID))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("project_id must be a valid UUID"))
	}

	bookmark, err := h.bookmarks.Save(c.Request().Context(), user, projectID)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, util.Data("bookmark", bookmark))
}

func (h *UserHandler) removeBookmark(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	projectID, err := uuid.Parse(strings.TrimSpace(c.Param("project_id")))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("project_id must be a valid UUID"))
	}
	if err := h.bookmarks.Remove(c.Request().Context(), user, projectID); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, util.Envelope{"project_id": projectID, "status": "removed"})
}

// profileInput picks the profile fields present in the form. Fields that are
// absent stay nil so the profile keeps its stored value.
func profileInput(values url.Values) service.ProfileInput {
	field := func(key string) *string {
		if _, ok := values[key]; !ok {
			return nil
		}
		v := values.Get(key)
		return &v
	}
	input := service.ProfileInput{
		FirstName:  field("firstName"),
		LastName:   field("lastName"),
		Phone:      field("phone"),
		Website:    field("website"),
		LinkedIn:   field("linkedIn"),
		City:       field("city"),
		State:      field("state"),
		Title:      field("title"),
		Position:   field("position"),
		University: field("university"),
	}
	if major, ok := values["major"]; ok {
		input.Major = splitList(major)
	}
	return input
}

// splitList accepts repeated keys as well as comma separated values.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if t := strings.TrimSpace(part); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

// formUpload opens the file of a multipart field. A missing field yields a
// nil upload. The caller closes the returned file.
func formUpload(c echo.Context, field string) (*media.Upload, multipart.File, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, err
	}
	return &media.Upload{
		Reader:      file,
		Size:        header.Size,
		FileName:    header.Filename,
		ContentType: header.Header.Get(echo.HeaderContentType),
	}, file, nil
}

func streamObject(c echo.Context, body io.ReadCloser, info ports.ObjectInfo, fallbackType string) error {
	defer body.Close()
	contentType := info.ContentType
	if contentType == "" {
		contentType = fallbackType
	}
	if info.Size > 0 {
		c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(info.Size, 10))
	}
	return c.Stream(http.StatusOK, contentType, body)
}
