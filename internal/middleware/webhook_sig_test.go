package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newSignedServer(secret string) *echo.Echo {
	e := echo.New()
	e.Use(WebhookAuth("/join-room", func() string { return secret }))
	e.POST("/join-room", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "healthy")
	})
	return e
}

func TestWebhookAuthAcceptsValidSignature(t *testing.T) {
	e := newSignedServer("s3cret")
	body := `{"room_name":"interview-1"}`

	req := httptest.NewRequest(http.MethodPost, "/join-room", strings.NewReader(body))
	req.Header.Set(SignatureHeader, Sign("s3cret", []byte(body)))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestWebhookAuthRejectsBadSignature(t *testing.T) {
	e := newSignedServer("s3cret")
	body := `{"room_name":"interview-1"}`

	req := httptest.NewRequest(http.MethodPost, "/join-room", strings.NewReader(body))
	req.Header.Set(SignatureHeader, Sign("wrong-secret", []byte(body)))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWebhookAuthRejectsMissingSignature(t *testing.T) {
	e := newSignedServer("s3cret")

	req := httptest.NewRequest(http.MethodPost, "/join-room", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWebhookAuthSkipsOtherPaths(t *testing.T) {
	e := newSignedServer("s3cret")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected unsigned health check to pass, got %d", rec.Code)
	}
}
