package canvases

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/auth"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/config"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/database"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/models"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/remotesync"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/session"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/store"
)

type testEnv struct {
	db       *gorm.DB
	router   *gin.Engine
	tokens   *auth.Tokens
	sessions *session.Registry
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func setupTestEnv(t *testing.T) *testEnv {
	db := setupTestDB(t)
	tokens, err := auth.NewTokens(config.AuthConfig{JWTSecret: "test-secret"})
	if err != nil {
		t.Fatalf("NewTokens failed: %v", err)
	}
	sessions := session.NewRegistry(remotesync.New(store.NewGormStore(db), nil))
	t.Cleanup(sessions.Wait)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	api.Use(auth.AuthMiddleware(tokens))
	NewHandler(sessions, nil).RegisterRoutes(api)

	return &testEnv{db: db, router: r, tokens: tokens, sessions: sessions}
}

func createTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	hash, _ := auth.HashPassword("password123")
	user := models.User{Email: email, PasswordHash: hash, Name: "Test User"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func (e *testEnv) authHeader(user models.User) string {
	token, _ := e.tokens.GenerateToken(user.ID, user.Email)
	return "Bearer " + token
}

func (e *testEnv) do(method, path string, user models.User, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", e.authHeader(user))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createCanvas(t *testing.T, user models.User, title string) CanvasResponse {
	w := e.do("POST", "/api/canvases", user, CreateCanvasRequest{Title: title})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp CanvasResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func (e *testEnv) createGroup(t *testing.T, user models.User, canvasID string, req CreateGroupRequest) GroupResponse {
	w := e.do("POST", "/api/canvases/"+canvasID+"/groups", user, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp GroupResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func TestCreateAndListCanvases(t *testing.T) {
	env := setupTestEnv(t)
	alice := createTestUser(t, env.db, "alice@example.com")
	bob := createTestUser(t, env.db, "bob@example.com")

	env.createCanvas(t, alice, "Home")
	env.createCanvas(t, alice, "Work")
	env.createCanvas(t, bob, "Home")

	w := env.do("GET", "/api/canvases", alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var list []CanvasResponse
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 2 {
		t.Fatalf("Expected 2 canvases, got %d", len(list))
	}
	for _, c := range list {
		if c.IsPublic {
			t.Errorf("Canvas %s should start private", c.Title)
		}
	}
}

func TestCreateCanvasDuplicateTitle(t *testing.T) {
	env := setupTestEnv(t)
	alice := createTestUser(t, env.db, "alice@example.com")
	env.createCanvas(t, alice, "Home")

	w := env.do("POST", "/api/canvases", alice, CreateCanvasRequest{Title: "Home"})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}

	w = env.do("POST", "/api/canvases", alice, CreateCanvasRequest{Title: "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for blank title, got %d", w.Code)
	}
}

func TestCanvasScenario(t *testing.T) {
	env := setupTestEnv(t)
	alice := createTestUser(t, env.db, "alice@example.com")
	canvas := env.createCanvas(t, alice, "Demo")

	// No groups yet: bookmark creation is refused with guidance.
	w := env.do("POST", "/api/canvases/"+canvas.ID+"/bookmarks", alice, CreateBookmarkRequest{
		Title: "X", URL: "https://x.test",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	var errBody map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &errBody)
	if errBody["error"] != session.GuidanceCreateGroupFirst {
		t.Errorf("Expected guidance message, got %v", errBody["error"])
	}

	group := env.createGroup(t, alice, canvas.ID, CreateGroupRequest{Title: "Reading", PositionX: 50, PositionY: 50})
	if group.Width != 300 || group.Height != 200 {
		t.Errorf("Expected default size 300x200, got %vx%v", group.Width, group.Height)
	}

	w = env.do("POST", "/api/canvases/"+canvas.ID+"/bookmarks", alice, CreateBookmarkRequest{
		GroupID: group.ID, Title: "X", URL: "https://x.test",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var bookmark BookmarkResponse
	json.Unmarshal(w.Body.Bytes(), &bookmark)
	if bookmark.PositionX != 70 || bookmark.PositionY != 90 {
		t.Errorf("Expected position (70,90), got (%v,%v)", bookmark.PositionX, bookmark.PositionY)
	}

	x, y := 110.0, 100.0
	w = env.do("PUT", "/api/canvases/"+canvas.ID+"/bookmarks/"+bookmark.ID+"/position", alice, PositionRequest{X: &x, Y: &y})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	env.sessions.Wait()

	var stored models.Bookmark
	env.db.Where("id = ?", bookmark.ID).First(&stored)
	if stored.PositionX != 110 || stored.PositionY != 100 {
		t.Errorf("Expected stored position (110,100), got (%v,%v)", stored.PositionX, stored.PositionY)
	}

	w = env.do("GET", "/api/canvases/"+canvas.ID, alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var tree TreeResponse
	json.Unmarshal(w.Body.Bytes(), &tree)
	if len(tree.Groups) != 1 || len(tree.Groups[0].Bookmarks) != 1 {
		t.Fatalf("Unexpected tree: %+v", tree)
	}
	if tree.Groups[0].Bookmarks[0].PositionX != 110 {
		t.Errorf("Expected tree to carry new position")
	}
}

func TestCanvasHiddenFromOtherUsers(t *testing.T) {
	env := setupTestEnv(t)
	alice := createTestUser(t, env.db, "alice@example.com")
	bob := createTestUser(t, env.db, "bob@example.com")
	canvas := env.createCanvas(t, alice, "Private")

	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/canvases/" + canvas.ID},
		{"PATCH", "/api/canvases/" + canvas.ID},
		{"DELETE", "/api/canvases/" + canvas.ID},
		{"POST", "/api/canvases/" + canvas.ID + "/groups"},
	} {
		w := env.do(tc.method, tc.path, bob, gin.H{"title": "Hijack"})
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected status 404, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestRenameCanvas(t *testing.T) {
	env := setupTestEnv(t)
	alice := createTestUser(t, env.db, "alice@example.com")
	canvas := env.createCanvas(t, alice, "Home")
	env.createCanvas(t, alice, "Work")

	w := env.do("PATCH", "/api/canvases/"+canvas.ID, alice, UpdateCanvasRequest{Title: "Work"})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}

	w = env.do("PATCH", "/api/canvases/"+canvas.ID, alice, UpdateCanvasRequest{Title: "Garden"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp CanvasResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Title != "Garden" {
		t.Errorf("Expected title Garden, got %s", resp.Title)
	}
}

func TestGroupMoveResizeAndEdit(t *testing.T) {
	env := setupTestEnv(t)
	alice := createTestUser(t, env.db, "alice@example.com")
	canvas := env.createCanvas(t, alice, "Home")
	group := env.createGroup(t, alice, canvas.ID, CreateGroupRequest{Title: "Tools"})
	base := "/api/canvases/" + canvas.ID + "/groups/" + group.ID

	w, h := 50.0, 40.0
	resp := env.do("PUT", base+"/size", alice, SizeRequest{Width: &w, Height: &h})
	if resp.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", resp.Code)
	}
	var resized GroupResponse
	json.Unmarshal(resp.Body.Bytes(), &resized)
	if resized.Width != 200 || resized.Height != 100 {
		t.Errorf("Expected clamped size 200x100, got %vx%v", resized.Width, resized.Height)
	}

	x, y := 10.0, 20.0
	if resp := env.do("PUT", base+"/position", alice, PositionRequest{X: &x, Y: &y}); resp.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", resp.Code)
	}

	title := "Tooling"
	resp = env.do("PATCH", base, alice, UpdateGroupRequest{Title: &title})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	env.sessions.Wait()

	var stored models.Group
	env.db.Where("id = ?", group.ID).First(&stored)
	if stored.Title != "Tooling" || stored.Width != 200 || stored.PositionX != 10 || stored.PositionY != 20 {
		t.Errorf("Unexpected stored group: %+v", stored)
	}

	if resp := env.do("PUT", base+"/position", alice, gin.H{"x": 1}); resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing y, got %d", resp.Code)
	}
}

func TestDeleteCanvasCascades(t *testing.T) {
	env := setupTestEnv(t)
	alice := createTestUser(t, env.db, "alice@example.com")
	canvas := env.createCanvas(t, alice, "Home")
	for _, title := range []string{"A", "B"} {
		group := env.createGroup(t, alice, canvas.ID, CreateGroupRequest{Title: title})
		for i := 0; i < 2; i++ {
			w := env.do("POST", "/api/canvases/"+canvas.ID+"/bookmarks", alice, CreateBookmarkRequest{
				GroupID: group.ID, Title: "link", URL: "https://example.com",
			})
			if w.Code != http.StatusCreated {
				t.Fatalf("Expected status 201, got %d", w.Code)
			}
		}
	}

	w := env.do("DELETE", "/api/canvases/"+canvas.ID, alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var groups, bookmarks, canvases int64
	env.db.Model(&models.Group{}).Count(&groups)
	env.db.Model(&models.Bookmark{}).Count(&bookmarks)
	env.db.Model(&models.Canvas{}).Count(&canvases)
	if groups != 0 || bookmarks != 0 || canvases != 0 {
		t.Errorf("Expected everything deleted, got %d canvases %d groups %d bookmarks", canvases, groups, bookmarks)
	}

	if w := env.do("GET", "/api/canvases/"+canvas.ID, alice, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", w.Code)
	}
}

func TestDeleteGroupAndBookmark(t *testing.T) {
	env := setupTestEnv(t)
	alice := createTestUser(t, env.db, "alice@example.com")
	canvas := env.createCanvas(t, alice, "Home")
	group := env.createGroup(t, alice, canvas.ID, CreateGroupRequest{Title: "A"})

	w := env.do("POST", "/api/canvases/"+canvas.ID+"/bookmarks", alice, CreateBookmarkRequest{
		GroupID: group.ID, Title: "one", URL: "https://one.example.com",
	})
	var b BookmarkResponse
	json.Unmarshal(w.Body.Bytes(), &b)

	if w := env.do("DELETE", "/api/canvases/"+canvas.ID+"/bookmarks/"+b.ID, alice, nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := env.do("DELETE", "/api/canvases/"+canvas.ID+"/bookmarks/"+b.ID, alice, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for second delete, got %d", w.Code)
	}
	if w := env.do("DELETE", "/api/canvases/"+canvas.ID+"/groups/"+group.ID, alice, nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestSearchBookmarks(t *testing.T) {
	env := setupTestEnv(t)
	alice := createTestUser(t, env.db, "alice@example.com")
	canvas := env.createCanvas(t, alice, "Home")
	group := env.createGroup(t, alice, canvas.ID, CreateGroupRequest{Title: "A"})
	for _, b := range []CreateBookmarkRequest{
		{GroupID: group.ID, Title: "Go documentation", URL: "https://go.dev/doc"},
		{GroupID: group.ID, Title: "Hacker News", URL: "https://news.ycombinator.com"},
	} {
		if w := env.do("POST", "/api/canvases/"+canvas.ID+"/bookmarks", alice, b); w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d", w.Code)
		}
	}

	w := env.do("GET", "/api/canvases/"+canvas.ID+"/search?q=hacker", alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var results []struct {
		Bookmark BookmarkResponse `json:"bookmark"`
	}
	json.Unmarshal(w.Body.Bytes(), &results)
	if len(results) != 1 || results[0].Bookmark.Title != "Hacker News" {
		t.Errorf("Unexpected results: %+v", results)
	}

	if w := env.do("GET", "/api/canvases/"+canvas.ID+"/search", alice, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without query, got %d", w.Code)
	}
}
