package http

import (
	"bytes"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSanitizeBodyRedactsJSONSecrets(t *testing.T) {
	body := []byte(`{"username":"anna","password":"hunter2","nested":{"resetToken":"abc"}}`)

	summary, ok := sanitizeBody(body, echo.MIMEApplicationJSON).(map[string]any)
	if !ok {
		t.Fatalf("expected map summary, got %T", summary)
	}
	if summary["username"] != "anna" {
		t.Fatalf("expected username to be kept, got %v", summary["username"])
	}
	if summary["password"] != redacted {
		t.Fatalf("expected password to be redacted, got %v", summary["password"])
	}
	nested := summary["nested"].(map[string]any)
	if nested["resetToken"] != redacted {
		t.Fatalf("expected nested token to be redacted, got %v", nested["resetToken"])
	}
}

func TestSanitizeBodyForm(t *testing.T) {
	summary, ok := sanitizeBody([]byte("email=anna%40tum.de&newPassword=x"), echo.MIMEApplicationForm).(map[string]any)
	if !ok {
		t.Fatalf("expected map summary, got %T", summary)
	}
	if summary["email"] != "anna@tum.de" || summary["newPassword"] != redacted {
		t.Fatalf("unexpected summary %v", summary)
	}
}

func TestSanitizeBodyMultipartMarksFiles(t *testing.T) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("city", "Berlin")
	part, _ := w.CreateFormFile("CV", "cv.pdf")
	_, _ = part.Write([]byte("%PDF-1.4\x00\x01"))
	_ = w.Close()

	summary, ok := sanitizeBody(buf.Bytes(), w.FormDataContentType()).(map[string]any)
	if !ok {
		t.Fatalf("expected map summary, got %T", summary)
	}
	if summary["city"] != "Berlin" {
		t.Fatalf("expected city field, got %v", summary["city"])
	}
	if summary["CV"] != binary {
		t.Fatalf("expected file part to be marked binary, got %v", summary["CV"])
	}
}

func TestSanitizeBodyEmptyAndBinary(t *testing.T) {
	if sanitizeBody(nil, echo.MIMEApplicationJSON) != nil {
		t.Fatal("expected nil summary for empty body")
	}
	if got := sanitizeBody([]byte{0xff, 0xfe, 0x00}, "application/octet-stream"); got != binary {
		t.Fatalf("expected binary marker, got %v", got)
	}
}

func TestClampString(t *testing.T) {
	long := strings.Repeat("ä", maxLoggedBody)
	got := clampString(long)
	if !strings.HasSuffix(got, "...(truncated)") {
		t.Fatalf("expected truncated suffix, got %q", got[len(got)-20:])
	}
	if len(got) > maxLoggedBody+len("...(truncated)") {
		t.Fatalf("clamped string too long: %d", len(got))
	}
}
