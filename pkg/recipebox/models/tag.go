package models

import "time"

// Tag is a per-user label attached to recipes.
// (user_id, name) is unique so get-or-create can rely on the index.
type Tag struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_tags_user_name" json:"user_id"`
	Name      string    `gorm:"not null;size:255;uniqueIndex:idx_tags_user_name" json:"name"`

	// Relationships
	User    User     `gorm:"foreignKey:UserID" json:"-"`
	Recipes []Recipe `gorm:"many2many:recipe_tags;" json:"-"`
}

func (t Tag) GetID() uint      { return t.ID }
func (t Tag) GetName() string  { return t.Name }
func (t Tag) GetOwnerID() uint { return t.UserID }

// Ingredient has the same shape as Tag but is an independent association target.
type Ingredient struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_ingredients_user_name" json:"user_id"`
	Name      string    `gorm:"not null;size:255;uniqueIndex:idx_ingredients_user_name" json:"name"`

	// Relationships
	User    User     `gorm:"foreignKey:UserID" json:"-"`
	Recipes []Recipe `gorm:"many2many:recipe_ingredients;" json:"-"`
}

func (i Ingredient) GetID() uint      { return i.ID }
func (i Ingredient) GetName() string  { return i.Name }
func (i Ingredient) GetOwnerID() uint { return i.UserID }
