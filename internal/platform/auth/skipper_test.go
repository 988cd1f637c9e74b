package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestIsPublicPath(t *testing.T) {
	public := []string{"/health", "/health/db"}
	for _, p := range public {
		if !IsPublicPath(p) {
			t.Errorf("expected %s to be public", p)
		}
	}

	private := []string{
		"/api/v1/intake",
		"/api/v1/handoffs",
		"/api/v1/provider/validate-intake-code",
		"/",
		"",
	}
	for _, p := range private {
		if IsPublicPath(p) {
			t.Errorf("expected %s to require auth", p)
		}
	}
}

func TestAuthSkipper(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/health")

	if !AuthSkipper(c) {
		t.Error("expected /health to be skipped")
	}

	c.SetPath("/api/v1/intake")
	if AuthSkipper(c) {
		t.Error("expected /api/v1/intake to require auth")
	}
}
