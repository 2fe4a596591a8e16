package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	requestBodyLogKey  = "http.request.body.summary"
	responseBodyLogKey = "http.response.body.summary"
	maxLoggedBody      = 2048
	maxPreviewEntries  = 8

	redacted = "redacted"
	binary   = "binary"
)

// registerLogging emits one access log line per request with redacted body
// summaries. Keys containing "password" or "token" never reach the log.
func registerLogging(e *echo.Echo, logger *zap.Logger) {
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			userID := "anonymous"
			if user, ok := CurrentUser(c); ok {
				userID = user.ID.String()
			}

			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Int64("latency_ms", v.Latency.Milliseconds()),
				zap.String("user_id", userID),
			}
			if summary := c.Get(requestBodyLogKey); summary != nil {
				fields = append(fields, zap.Any("request_body", summary))
			}
			if summary := c.Get(responseBodyLogKey); summary != nil {
				fields = append(fields, zap.Any("response_body", summary))
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}

			switch {
			case v.Status >= 500:
				logger.Error("http request", fields...)
			case v.Status >= 400:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
			return nil
		},
	}))

	e.Use(middleware.BodyDumpWithConfig(middleware.BodyDumpConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || strings.HasPrefix(c.Path(), "/swagger")
		},
		Handler: func(c echo.Context, reqBody, resBody []byte) {
			if summary := sanitizeBody(reqBody, c.Request().Header.Get(echo.HeaderContentType)); summary != nil {
				c.Set(requestBodyLogKey, summary)
			}
			if summary := sanitizeBody(resBody, c.Response().Header().Get(echo.HeaderContentType)); summary != nil {
				c.Set(responseBodyLogKey, summary)
			}
		},
	}))
}

func sensitiveKey(key string) bool {
	key = strings.ToLower(key)
	return strings.Contains(key, "password") || strings.Contains(key, "token")
}

func sanitizeBody(body []byte, contentType string) any {
	if len(body) == 0 {
		return nil
	}
	mediaType, params, _ := mime.ParseMediaType(strings.TrimSpace(contentType))

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		return sanitizeMultipart(body, params["boundary"])
	case mediaType == echo.MIMEApplicationForm:
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return binary
		}
		fields := make(map[string]any, len(values))
		for key, vals := range values {
			for _, v := range vals {
				addFormField(fields, key, sanitizeValue(key, v))
			}
		}
		return limitSize(fields)
	case mediaType == echo.MIMEApplicationJSON || json.Valid(body):
		var data any
		if err := json.Unmarshal(body, &data); err == nil {
			return limitSize(sanitizeJSON(data, ""))
		}
	}

	if containsBinaryBytes(body) {
		return binary
	}
	return clampString(string(body))
}

func sanitizeJSON(value any, key string) any {
	if key != "" && sensitiveKey(key) {
		return redacted
	}
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = sanitizeJSON(val, k)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = sanitizeJSON(item, key)
		}
		return out
	case string:
		return sanitizeValue(key, v)
	default:
		return v
	}
}

func sanitizeValue(key, value string) string {
	if sensitiveKey(key) {
		return redacted
	}
	if containsBinaryBytes([]byte(value)) {
		return binary
	}
	return clampString(value)
}

func sanitizeMultipart(body []byte, boundary string) any {
	if boundary == "" {
		return binary
	}
	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	fields := make(map[string]any)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return binary
		}
		name := part.FormName()
		switch {
		case name == "":
		case part.FileName() != "":
			addFormField(fields, name, binary)
		default:
			data, err := io.ReadAll(io.LimitReader(part, maxLoggedBody+1))
			if err != nil {
				addFormField(fields, name, binary)
			} else {
				addFormField(fields, name, sanitizeValue(name, string(data)))
			}
		}
		_ = part.Close()
	}
	if len(fields) == 0 {
		return binary
	}
	return limitSize(fields)
}

// limitSize replaces oversized summaries with a preview of their keys.
func limitSize(value any) any {
	buf, err := json.Marshal(value)
	if err != nil || len(buf) <= maxLoggedBody {
		return value
	}
	m, ok := value.(map[string]any)
	if !ok {
		return map[string]any{"_truncated": true}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > maxPreviewEntries {
		keys = keys[:maxPreviewEntries]
	}
	return map[string]any{"_truncated": true, "_fields": keys}
}

func containsBinaryBytes(data []byte) bool {
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			return true
		}
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return true
		}
		data = data[size:]
	}
	return false
}

func clampString(value string) string {
	if len(value) <= maxLoggedBody {
		return value
	}
	truncated := value[:maxLoggedBody]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "...(truncated)"
}

func addFormField(fields map[string]any, key string, value any) {
	existing, ok := fields[key]
	if !ok {
		fields[key] = value
		return
	}
	if items, isList := existing.([]any); isList {
		fields[key] = append(items, value)
		return
	}
	fields[key] = []any{existing, value}
}
