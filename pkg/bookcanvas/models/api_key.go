package models

import "time"

// APIKey is a long-lived credential for scripts and the CLI. Read-only keys
// may fetch and export canvases but never mutate them.
type APIKey struct {
	Base
	UserID      string     `gorm:"not null;index;type:varchar(36)" json:"user_id"`
	KeyHash     string     `gorm:"not null" json:"-"`
	KeyPrefix   string     `gorm:"not null" json:"key_prefix"` // First few chars for identification
	Description string     `json:"description"`
	ReadOnly    bool       `gorm:"not null;default:false" json:"read_only"`
	LastUsedAt  *time.Time `json:"last_used_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"-"`
}
