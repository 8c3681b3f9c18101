package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/pandeptwidyaop/school-portal/internal/middleware"
)

func TestLogger_RecordsRequestFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	logger, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(middleware.Logger(logger))
	r.GET("/api/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/missing", nil))

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry")
	}
	if entry.Level != logrus.WarnLevel {
		t.Errorf("expected warn level for 404, got %s", entry.Level)
	}
	if entry.Data["status"] != http.StatusNotFound {
		t.Errorf("expected status field 404, got %v", entry.Data["status"])
	}
	if entry.Data["path"] != "/api/missing" {
		t.Errorf("expected path field, got %v", entry.Data["path"])
	}
}

func TestBodySizeLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(middleware.BodySizeLimit(16))
	r.POST("/api/school", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/school", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/school", strings.NewReader(strings.Repeat("x", 64))))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/school", strings.NewReader("{}")))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for small body, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/school", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected GET to bypass limit, got %d", w.Code)
	}
}

func TestBodySizeLimit_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(middleware.BodySizeLimit(0))
	r.POST("/api/restore", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/restore", strings.NewReader(strings.Repeat("x", 4096))))
	if w.Code != http.StatusOK {
		t.Errorf("expected zero limit to accept any body, got %d", w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(middleware.SecurityHeaders("/portal/api"))
	r.GET("/portal/api/backup", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/portal/api/backup", nil))
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected X-Frame-Options DENY")
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Error("expected API responses to be uncached")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Header().Get("Cache-Control") != "" {
		t.Error("expected no cache header outside the API")
	}
}

func TestPathPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(middleware.PathPrefix("/portal"))
	var got string
	r.GET("/x", func(c *gin.Context) { got = c.GetString("path_prefix") })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))
	if got != "/portal" {
		t.Errorf("expected /portal, got %q", got)
	}
}
