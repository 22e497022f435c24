package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents an account that owns recipes, tags and ingredients
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Name         string         `gorm:"not null;size:255" json:"name"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	IsStaff      bool           `gorm:"not null;default:false" json:"is_staff"`
	IsSuperuser  bool           `gorm:"not null;default:false" json:"is_superuser"`

	// Relationships
	Recipes     []Recipe     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Tags        []Tag        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Ingredients []Ingredient `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	APIKeys     []APIKey     `gorm:"foreignKey:UserID" json:"-"`
}

// NormalizeEmail lower-cases the domain part of an address and trims
// surrounding whitespace. The local part is kept as given.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}
