package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recipe represents a recipe owned by a single user.
// UserID is set on creation and never changed afterwards.
type Recipe struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	Title         string          `gorm:"not null;size:255" json:"title"`
	Description   string          `gorm:"type:text" json:"description"`
	TimeMinutes   int             `gorm:"not null" json:"time_minutes"`
	Price         decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"price"`
	Link          string          `gorm:"size:255" json:"link"`
	Image         string          `gorm:"size:255" json:"image"`         // blob name, empty when unset
	ImageBlurHash string          `gorm:"size:64" json:"image_blurhash"` // placeholder computed on upload

	// Relationships
	User        User         `gorm:"foreignKey:UserID" json:"-"`
	Tags        []Tag        `gorm:"many2many:recipe_tags;" json:"tags,omitempty"`
	Ingredients []Ingredient `gorm:"many2many:recipe_ingredients;" json:"ingredients,omitempty"`
}
