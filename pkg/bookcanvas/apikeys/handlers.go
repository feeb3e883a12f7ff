package apikeys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/auth"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/models"
)

const (
	// Prefix marks a bearer token as an API key rather than a JWT.
	Prefix = "bc_"
	// SecretBytes is the amount of randomness in a key.
	SecretBytes = 32
	// DisplayLength is how much of the key is kept in clear for listing.
	DisplayLength = len(Prefix) + 8
)

// Handler manages the caller's API keys
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new API keys handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// KeyView is an API key without its secret
type KeyView struct {
	ID          string     `json:"id"`
	KeyPrefix   string     `json:"key_prefix"`
	Description string     `json:"description"`
	ReadOnly    bool       `json:"read_only"`
	LastUsedAt  *time.Time `json:"last_used_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IssueRequest is the body of POST /api-keys
type IssueRequest struct {
	Description string `json:"description"`
	ReadOnly    bool   `json:"read_only"`
}

// IssuedKey carries the secret. It is returned once, at creation.
type IssuedKey struct {
	KeyView
	Key string `json:"key"`
}

func newSecret() (string, error) {
	buf := make([]byte, SecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return Prefix + hex.EncodeToString(buf), nil
}

func digest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func viewOf(k models.APIKey) KeyView {
	return KeyView{
		ID:          k.ID,
		KeyPrefix:   k.KeyPrefix,
		Description: k.Description,
		ReadOnly:    k.ReadOnly,
		LastUsedAt:  k.LastUsedAt,
		CreatedAt:   k.CreatedAt,
	}
}

// Issue mints a key for the signed-in user.
func (h *Handler) Issue(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req IssueRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	secret, err := newSecret()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate API key"})
		return
	}

	key := models.APIKey{
		UserID:      userID,
		KeyHash:     digest(secret),
		KeyPrefix:   secret[:DisplayLength],
		Description: strings.TrimSpace(req.Description),
		ReadOnly:    req.ReadOnly,
	}
	if err := h.db.Create(&key).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store API key"})
		return
	}

	c.JSON(http.StatusCreated, IssuedKey{KeyView: viewOf(key), Key: secret})
}

// List shows the caller's keys, newest first.
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var keys []models.APIKey
	if err := h.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&keys).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch API keys"})
		return
	}

	views := make([]KeyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, viewOf(k))
	}
	c.JSON(http.StatusOK, views)
}

// Revoke deletes one of the caller's keys.
func (h *Handler) Revoke(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	res := h.db.Where("id = ? AND user_id = ?", c.Param("id"), userID).Delete(&models.APIKey{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke API key"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "API key not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Lookup finds the stored record of a raw key.
func Lookup(db *gorm.DB, secret string) (*models.APIKey, error) {
	var key models.APIKey
	if err := db.Preload("User").Where("key_hash = ?", digest(secret)).First(&key).Error; err != nil {
		return nil, err
	}
	return &key, nil
}

// Touch records that a key was just used.
func Touch(db *gorm.DB, id string) error {
	return db.Model(&models.APIKey{}).Where("id = ?", id).Update("last_used_at", time.Now()).Error
}

func safeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// CombinedAuthMiddleware accepts a JWT or an API key as the bearer token.
// Tokens starting with Prefix are API keys; read-only keys are refused on
// anything but safe methods.
func CombinedAuthMiddleware(db *gorm.DB, tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		if !strings.HasPrefix(token, Prefix) {
			claims, err := tokens.ValidateToken(token)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				return
			}
			auth.SetUser(c, claims.UserID, claims.Email)
			c.Next()
			return
		}

		key, err := Lookup(db, token)
		if err != nil || key.User.ID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}
		if key.ReadOnly && !safeMethod(c.Request.Method) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "API key is read-only"})
			return
		}
		// A failed timestamp write does not block the request.
		_ = Touch(db, key.ID)

		auth.SetUser(c, key.User.ID, key.User.Email)
		c.Next()
	}
}

// RegisterRoutes registers API key routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/api-keys", h.Issue)
	rg.GET("/api-keys", h.List)
	rg.DELETE("/api-keys/:id", h.Revoke)
}
