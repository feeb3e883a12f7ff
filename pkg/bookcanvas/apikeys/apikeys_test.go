package apikeys

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/auth"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/config"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func setupTestTokens(t *testing.T) *auth.Tokens {
	tokens, err := auth.NewTokens(config.AuthConfig{JWTSecret: "test-secret"})
	if err != nil {
		t.Fatalf("NewTokens failed: %v", err)
	}
	return tokens
}

func createTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	hash, _ := auth.HashPassword("password123")
	user := models.User{Email: email, PasswordHash: hash, Name: "Test User"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func setupTestRouter(db *gorm.DB, tokens *auth.Tokens) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	api.Use(CombinedAuthMiddleware(db, tokens))
	NewHandler(db).RegisterRoutes(api)
	whoami := func(c *gin.Context) {
		id, _ := auth.GetUserID(c)
		email, _ := auth.GetEmail(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "email": email})
	}
	api.GET("/whoami", whoami)
	api.POST("/whoami", whoami)
	return r
}

func getAuthHeader(tokens *auth.Tokens, user models.User) string {
	token, _ := tokens.GenerateToken(user.ID, user.Email)
	return "Bearer " + token
}

func issueKey(t *testing.T, r http.Handler, authHeader string, req IssueRequest) IssuedKey {
	t.Helper()
	body, _ := json.Marshal(req)
	httpReq, _ := http.NewRequest("POST", "/api/api-keys", bytes.NewBuffer(body))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", authHeader)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httpReq)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp IssuedKey
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func call(r http.Handler, method, path, authHeader string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIssueAPIKey(t *testing.T) {
	db := setupTestDB(t)
	tokens := setupTestTokens(t)
	router := setupTestRouter(db, tokens)
	user := createTestUser(t, db, "test@example.com")

	resp := issueKey(t, router, getAuthHeader(tokens, user), IssueRequest{Description: "  CLI export "})

	if !strings.HasPrefix(resp.Key, Prefix) {
		t.Errorf("Expected key to start with %q, got %q", Prefix, resp.Key)
	}
	if len(resp.Key) != len(Prefix)+SecretBytes*2 {
		t.Errorf("Expected key length %d, got %d", len(Prefix)+SecretBytes*2, len(resp.Key))
	}
	if resp.KeyPrefix != resp.Key[:DisplayLength] {
		t.Errorf("Expected prefix %s, got %s", resp.Key[:DisplayLength], resp.KeyPrefix)
	}
	if resp.Description != "CLI export" {
		t.Errorf("Expected trimmed description, got %q", resp.Description)
	}
	if resp.ReadOnly {
		t.Error("Keys are writable unless asked otherwise")
	}

	var stored models.APIKey
	db.Where("id = ?", resp.ID).First(&stored)
	if stored.KeyHash == resp.Key || stored.KeyHash == "" {
		t.Error("Key must be stored hashed")
	}
}

func TestIssueWithoutBody(t *testing.T) {
	db := setupTestDB(t)
	tokens := setupTestTokens(t)
	router := setupTestRouter(db, tokens)
	user := createTestUser(t, db, "nobody@example.com")

	w := call(router, "POST", "/api/api-keys", getAuthHeader(tokens, user))
	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestListAPIKeysOnlyOwn(t *testing.T) {
	db := setupTestDB(t)
	tokens := setupTestTokens(t)
	router := setupTestRouter(db, tokens)
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	issueKey(t, router, getAuthHeader(tokens, alice), IssueRequest{Description: "one"})
	issueKey(t, router, getAuthHeader(tokens, alice), IssueRequest{Description: "two", ReadOnly: true})
	issueKey(t, router, getAuthHeader(tokens, bob), IssueRequest{Description: "bob's"})

	w := call(router, "GET", "/api/api-keys", getAuthHeader(tokens, alice))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var keys []KeyView
	json.Unmarshal(w.Body.Bytes(), &keys)
	if len(keys) != 2 {
		t.Fatalf("Expected 2 keys, got %d", len(keys))
	}
	if strings.Contains(w.Body.String(), `"key":`) {
		t.Error("Listing must not expose secrets")
	}
}

func TestRevokeAPIKey(t *testing.T) {
	db := setupTestDB(t)
	tokens := setupTestTokens(t)
	router := setupTestRouter(db, tokens)
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	key := issueKey(t, router, getAuthHeader(tokens, alice), IssueRequest{})

	if w := call(router, "DELETE", "/api/api-keys/"+key.ID, getAuthHeader(tokens, bob)); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for another user's key, got %d", w.Code)
	}
	if w := call(router, "DELETE", "/api/api-keys/"+key.ID, getAuthHeader(tokens, alice)); w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if w := call(router, "GET", "/api/whoami", "Bearer "+key.Key); w.Code != http.StatusUnauthorized {
		t.Errorf("Revoked key: expected status 401, got %d", w.Code)
	}
}

func TestAPIKeyAuthenticates(t *testing.T) {
	db := setupTestDB(t)
	tokens := setupTestTokens(t)
	router := setupTestRouter(db, tokens)
	user := createTestUser(t, db, "keyuser@example.com")

	key := issueKey(t, router, getAuthHeader(tokens, user), IssueRequest{})

	w := call(router, "GET", "/api/whoami", "Bearer "+key.Key)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var who map[string]string
	json.Unmarshal(w.Body.Bytes(), &who)
	if who["id"] != user.ID || who["email"] != "keyuser@example.com" {
		t.Errorf("Unexpected identity: %v", who)
	}

	var stored models.APIKey
	db.Where("id = ?", key.ID).First(&stored)
	if stored.LastUsedAt == nil {
		t.Error("Expected last_used_at to be set")
	}

	if w := call(router, "POST", "/api/whoami", "Bearer "+key.Key); w.Code != http.StatusOK {
		t.Errorf("Writable key: expected status 200 on POST, got %d", w.Code)
	}
}

func TestReadOnlyKeyRefusesMutations(t *testing.T) {
	db := setupTestDB(t)
	tokens := setupTestTokens(t)
	router := setupTestRouter(db, tokens)
	user := createTestUser(t, db, "reader@example.com")

	key := issueKey(t, router, getAuthHeader(tokens, user), IssueRequest{ReadOnly: true})
	if !key.ReadOnly {
		t.Fatal("Expected a read-only key")
	}

	if w := call(router, "GET", "/api/whoami", "Bearer "+key.Key); w.Code != http.StatusOK {
		t.Errorf("GET: expected status 200, got %d", w.Code)
	}
	if w := call(router, "POST", "/api/whoami", "Bearer "+key.Key); w.Code != http.StatusForbidden {
		t.Errorf("POST: expected status 403, got %d", w.Code)
	}
}

func TestInvalidCredentials(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, setupTestTokens(t))

	for _, header := range []string{"", "Bearer deadbeef", "Bearer a.b.c", "Bearer " + Prefix + "deadbeef", "Basic xyz"} {
		if w := call(router, "GET", "/api/whoami", header); w.Code != http.StatusUnauthorized {
			t.Errorf("%q: expected status 401, got %d", header, w.Code)
		}
	}
}
