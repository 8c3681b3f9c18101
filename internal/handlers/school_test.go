package handlers_test

import (
	"net/http"
	"strings"
	"testing"
)

func contains(s, sub string) bool { return strings.Contains(s, sub) }

func TestSchoolHandler_CRUD(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, "POST", "/api/school", map[string]string{"name": "SMP Nusantara", "motto": "Belajar"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	school := decode(t, w)["school"].(map[string]interface{})
	id := school["id"].(string)

	w = srv.do(t, "GET", "/api/school/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if got := decode(t, w)["school"].(map[string]interface{})["motto"]; got != "Belajar" {
		t.Errorf("expected motto Belajar, got %v", got)
	}

	w = srv.do(t, "PUT", "/api/school/"+id, map[string]string{"name": "SMP Nusantara 2"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = srv.do(t, "GET", "/api/school", nil)
	schools, _ := decode(t, w)["schools"].([]interface{})
	if len(schools) != 1 {
		t.Fatalf("expected 1 school, got %d", len(schools))
	}

	w = srv.do(t, "DELETE", "/api/school/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if decode(t, w)["message"] != "School deleted successfully" {
		t.Error("expected delete message")
	}

	w = srv.do(t, "DELETE", "/api/school/"+id, nil)
	expectError(t, w, http.StatusNotFound, "School not found")
}

func TestSchoolHandler_Errors(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, "POST", "/api/school", map[string]string{"address": "Jl. Merdeka"})
	expectError(t, w, http.StatusBadRequest, "School name is required")

	srv.do(t, "POST", "/api/school", map[string]string{"name": "SD Pelita"})
	w = srv.do(t, "POST", "/api/school", map[string]string{"name": "sd pelita"})
	expectError(t, w, http.StatusConflict, "School with this name already exists")

	w = srv.do(t, "GET", "/api/school/unknown", nil)
	expectError(t, w, http.StatusNotFound, "School not found")

	w = srv.do(t, "PUT", "/api/school/unknown", map[string]string{"name": "Anything"})
	expectError(t, w, http.StatusNotFound, "School not found")

	w = srv.do(t, "POST", "/api/school", map[string]string{"name": "SD Bintang", "email": "not-an-email"})
	expectError(t, w, http.StatusBadRequest, "email address is invalid")
}
