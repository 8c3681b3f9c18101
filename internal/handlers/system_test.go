package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/school-portal/internal/handlers"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping() error { return p.err }

type fakeSchedule struct{ next time.Time }

func (s fakeSchedule) Spec() string { return "0 2 * * *" }

func (s fakeSchedule) NextRun() (time.Time, bool) { return s.next, !s.next.IsZero() }

func TestSystemHandler_Status(t *testing.T) {
	gin.SetMode(gin.TestMode)

	next := time.Date(2030, 1, 1, 2, 0, 0, 0, time.UTC)
	handler := handlers.NewSystemHandler(fakePinger{}, fakeSchedule{next: next}, true, false)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/system/status", nil)

	handler.Status(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	response := decode(t, w)
	if response["database_status"] != "ok" {
		t.Errorf("expected database ok, got %v", response["database_status"])
	}
	if response["backup_schedule"] != "0 2 * * *" {
		t.Errorf("unexpected schedule %v", response["backup_schedule"])
	}
	if response["next_backup"] != "2030-01-01T02:00:00Z" {
		t.Errorf("unexpected next backup %v", response["next_backup"])
	}
	if response["offsite_enabled"] != true {
		t.Error("expected offsite enabled")
	}
}

func TestSystemHandler_StatusDatabaseDown(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := handlers.NewSystemHandler(fakePinger{err: errors.New("closed")}, nil, false, false)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/system/status", nil)

	handler.Status(c)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
	if decode(t, w)["database_status"] != "unavailable" {
		t.Error("expected database unavailable")
	}
}

func TestSystemHandler_StatusReportsBackupVolume(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	handler := handlers.NewSystemHandler(fakePinger{}, nil, false, false).
		WithBackupVolume(filepath.Join(dir, "backups"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/system/status", nil)

	handler.Status(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	volume, ok := decode(t, w)["backup_volume"].(map[string]interface{})
	if !ok {
		t.Fatal("expected backup_volume in status")
	}
	if volume["path"] != dir {
		t.Errorf("expected volume measured at %q, got %v", dir, volume["path"])
	}
	if total, _ := volume["total"].(float64); total <= 0 {
		t.Errorf("expected positive total, got %v", volume["total"])
	}
	if _, ok := volume["low_space"].(bool); !ok {
		t.Error("expected low_space flag")
	}
}

func TestSystemHandler_StatusWithoutBackupVolume(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := handlers.NewSystemHandler(fakePinger{}, nil, false, false)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/system/status", nil)

	handler.Status(c)

	if _, ok := decode(t, w)["backup_volume"]; ok {
		t.Error("expected no backup_volume when no directory is configured")
	}
}
