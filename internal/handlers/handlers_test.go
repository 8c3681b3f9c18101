package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pandeptwidyaop/school-portal/internal/config"
	"github.com/pandeptwidyaop/school-portal/internal/database"
	"github.com/pandeptwidyaop/school-portal/internal/handlers"
	"github.com/pandeptwidyaop/school-portal/internal/logging"
	"github.com/pandeptwidyaop/school-portal/internal/models"
	"github.com/pandeptwidyaop/school-portal/internal/services"
)

type testServer struct {
	engine    *gin.Engine
	cfg       *config.Config
	live      *database.DB
	store     *services.BackupStore
	backups   *services.BackupService
	scheduler *recordingScheduler
}

type recordingScheduler struct {
	applied []models.SystemSettings
}

func (s *recordingScheduler) Apply(settings models.SystemSettings) error {
	s.applied = append(s.applied, settings)
	return nil
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	livePath := filepath.Join(root, "portal.db")

	live, err := database.New(livePath)
	if err != nil {
		t.Fatalf("failed to open live store: %v", err)
	}
	t.Cleanup(func() { _ = live.Close() })
	if err := live.Migrate(); err != nil {
		t.Fatalf("failed to migrate live store: %v", err)
	}

	_, err = live.Exec(`
		CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
		CREATE TABLE settings (key TEXT PRIMARY KEY, value TEXT);
		INSERT INTO users (id, name) VALUES (1, 'Ani'), (2, 'Budi'), (3, 'Citra');
		INSERT INTO settings (key, value) VALUES ('theme', 'dark');
	`)
	if err != nil {
		t.Fatalf("failed to seed live store: %v", err)
	}

	cfg := &config.Config{
		Database: config.DatabaseConfig{URL: "file:" + livePath},
		Backup:   config.BackupConfig{Dir: filepath.Join(root, "backups")},
	}

	catalog, err := database.OpenCatalog(cfg.Backup.CatalogPath())
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	t.Cleanup(func() { _ = catalog.Close() })

	log := logging.Discard()
	store := services.NewBackupStore(catalog)
	backups := services.NewBackupService(store, cfg, log)
	backups.SetLiveStore(live)

	auditService := services.NewAuditService(live, log)
	scheduler := &recordingScheduler{}

	backupHandler := handlers.NewBackupHandler(backups, auditService, log)
	settingsService := services.NewSettingsService(live)
	restoreHandler := handlers.NewRestoreHandler(backups, settingsService, auditService, scheduler, log)
	settingsHandler := handlers.NewSettingsHandler(settingsService, auditService, scheduler, log)
	schoolHandler := handlers.NewSchoolHandler(services.NewSchoolService(live), auditService, log)
	auditHandler := handlers.NewAuditHandler(auditService)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/backup", backupHandler.Create)
	api.GET("/backup", backupHandler.List)
	api.GET("/backup/download", backupHandler.Download)
	api.POST("/restore", restoreHandler.Restore)
	api.GET("/restore", restoreHandler.List)
	api.GET("/system-settings", settingsHandler.Get)
	api.PUT("/system-settings", settingsHandler.Update)
	api.GET("/school", schoolHandler.List)
	api.POST("/school", schoolHandler.Create)
	api.GET("/school/:id", schoolHandler.Get)
	api.PUT("/school/:id", schoolHandler.Update)
	api.DELETE("/school/:id", schoolHandler.Delete)
	api.GET("/audit-logs", auditHandler.List)

	return &testServer{
		engine:    r,
		cfg:       cfg,
		live:      live,
		store:     store,
		backups:   backups,
		scheduler: scheduler,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", w.Body.String(), err)
	}
	return response
}

func (s *testServer) count(t *testing.T, table string) int {
	t.Helper()

	var n int
	if err := s.live.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()

	if w.Code != status {
		t.Errorf("expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
	response := decode(t, w)
	if response["error"] != message {
		t.Errorf("expected error %q, got %v", message, response["error"])
	}
}
