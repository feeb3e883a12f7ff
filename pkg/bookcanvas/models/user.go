package models

// User represents an account that owns canvases
type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `json:"-"`
	Name         string `gorm:"not null" json:"name"`

	// Relationships
	Canvases []Canvas `gorm:"foreignKey:UserID" json:"canvases,omitempty"`
	APIKeys  []APIKey `gorm:"foreignKey:UserID" json:"api_keys,omitempty"`
}
