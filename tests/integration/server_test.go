package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/config"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/database"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/models"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/server"
)

// setupFullServer builds the same router as cmd/bookcanvas-server on an
// in-memory SQLite database.
func setupFullServer(t *testing.T) http.Handler {
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	cfg.Database.DSN = ":memory:"
	cfg.Server.BaseURL = "https://canvas.example"

	db, err := database.Open(cfg.Database)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	srv, err := server.New(cfg, db, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to build server: %v", err)
	}
	return srv.Handler()
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func register(t *testing.T, router http.Handler, email string) string {
	t.Helper()
	resp := doJSON(t, router, "POST", "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "password123",
		"name":     "Test User",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d: %s", email, resp.Code, resp.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return out.Token
}

func decodeID(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out.ID
}

// TestServerStartup fails if route registration panics on conflicting
// wildcards.
func TestServerStartup(t *testing.T) {
	if setupFullServer(t) == nil {
		t.Fatal("Expected router to be created")
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := setupFullServer(t)

	for _, path := range []string{"/health", "/api/health"} {
		t.Run(path, func(t *testing.T) {
			resp := doJSON(t, router, "GET", path, "", nil)
			if resp.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", resp.Code)
			}
		})
	}
}

func TestProtectedEndpointsRequireAuth(t *testing.T) {
	router := setupFullServer(t)

	protectedEndpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/canvases"},
		{"POST", "/api/canvases"},
		{"GET", "/api/canvases/abc"},
		{"POST", "/api/canvases/abc/groups"},
		{"PUT", "/api/canvases/abc/share"},
		{"GET", "/api/canvases/abc/export"},
		{"GET", "/api/canvases/abc/live"},
		{"GET", "/api/api-keys"},
		{"GET", "/api/auth/me"},
	}

	for _, endpoint := range protectedEndpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			resp := doJSON(t, router, endpoint.method, endpoint.path, "", nil)
			if resp.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401 for %s %s, got %d", endpoint.method, endpoint.path, resp.Code)
			}
		})
	}
}

func TestPublicEndpointsNoAuth(t *testing.T) {
	router := setupFullServer(t)

	publicEndpoints := []struct {
		method       string
		path         string
		expectedCode int
	}{
		{"POST", "/api/auth/register", http.StatusBadRequest},
		{"POST", "/api/auth/login", http.StatusBadRequest},
		{"GET", "/api/share/missing", http.StatusNotFound},
		{"GET", "/share/missing", http.StatusNotFound},
	}

	for _, endpoint := range publicEndpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			resp := doJSON(t, router, endpoint.method, endpoint.path, "", nil)
			if resp.Code != endpoint.expectedCode {
				t.Errorf("Expected status %d for %s %s, got %d", endpoint.expectedCode, endpoint.method, endpoint.path, resp.Code)
			}
		})
	}
}

// TestShareFlow walks a canvas from creation to anonymous read.
func TestShareFlow(t *testing.T) {
	router := setupFullServer(t)
	alice := register(t, router, "alice@example.com")
	bob := register(t, router, "bob@example.com")

	resp := doJSON(t, router, "POST", "/api/canvases", alice, map[string]string{"title": "Reading"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create canvas: status %d: %s", resp.Code, resp.Body.String())
	}
	canvasID := decodeID(t, resp)

	// No groups yet: the bookmark is refused with guidance.
	resp = doJSON(t, router, "POST", "/api/canvases/"+canvasID+"/bookmarks", alice, map[string]string{
		"title": "Go", "url": "https://go.dev",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bookmark without group: expected 400, got %d", resp.Code)
	}

	resp = doJSON(t, router, "POST", "/api/canvases/"+canvasID+"/groups", alice, map[string]any{"title": "Docs"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create group: status %d: %s", resp.Code, resp.Body.String())
	}
	groupID := decodeID(t, resp)

	resp = doJSON(t, router, "POST", "/api/canvases/"+canvasID+"/bookmarks", alice, map[string]string{
		"group_id": groupID, "title": "Go", "url": "https://go.dev",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create bookmark: status %d: %s", resp.Code, resp.Body.String())
	}

	// Private canvases are invisible to strangers and anonymous readers.
	if resp := doJSON(t, router, "GET", "/api/share/"+canvasID, "", nil); resp.Code != http.StatusNotFound {
		t.Errorf("private share read: expected 404, got %d", resp.Code)
	}
	if resp := doJSON(t, router, "PUT", "/api/canvases/"+canvasID+"/share", bob, map[string]bool{"is_public": true}); resp.Code == http.StatusOK {
		t.Errorf("non-owner toggle should fail")
	}

	resp = doJSON(t, router, "PUT", "/api/canvases/"+canvasID+"/share", alice, map[string]bool{"is_public": true})
	if resp.Code != http.StatusOK {
		t.Fatalf("share: status %d: %s", resp.Code, resp.Body.String())
	}
	var shared struct {
		ShareURL string `json:"share_url"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &shared); err != nil {
		t.Fatalf("decode share response: %v", err)
	}
	if want := "https://canvas.example/share/" + canvasID; shared.ShareURL != want {
		t.Errorf("share url = %q, want %q", shared.ShareURL, want)
	}

	resp = doJSON(t, router, "GET", "/share/"+canvasID, "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("public read: status %d", resp.Code)
	}
	var tree struct {
		Groups []struct {
			Bookmarks []struct {
				URL string `json:"url"`
			} `json:"bookmarks"`
		} `json:"groups"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &tree); err != nil {
		t.Fatalf("decode tree: %v", err)
	}
	if len(tree.Groups) != 1 || len(tree.Groups[0].Bookmarks) != 1 || tree.Groups[0].Bookmarks[0].URL != "https://go.dev" {
		t.Errorf("unexpected public tree: %s", resp.Body.String())
	}

	// Cascade delete removes the canvas from the public endpoint too.
	if resp := doJSON(t, router, "DELETE", "/api/canvases/"+canvasID, alice, nil); resp.Code != http.StatusOK && resp.Code != http.StatusNoContent {
		t.Fatalf("delete canvas: status %d", resp.Code)
	}
	if resp := doJSON(t, router, "GET", "/share/"+canvasID, "", nil); resp.Code != http.StatusNotFound {
		t.Errorf("deleted canvas: expected 404, got %d", resp.Code)
	}
}
