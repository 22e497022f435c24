package models

// Label is the constraint shared by Tag and Ingredient: a named record owned
// by one user and linked to recipes through a join table.
type Label interface {
	Tag | Ingredient
	GetID() uint
	GetName() string
	GetOwnerID() uint
}

// LabelKind describes where a label type lives in the schema.
type LabelKind struct {
	Noun        string // singular, used in error messages
	Table       string
	JoinTable   string
	JoinColumn  string // column in JoinTable referencing Table
	Association string // field name on Recipe
}

var (
	tagKind = LabelKind{
		Noun:        "tag",
		Table:       "tags",
		JoinTable:   "recipe_tags",
		JoinColumn:  "tag_id",
		Association: "Tags",
	}
	ingredientKind = LabelKind{
		Noun:        "ingredient",
		Table:       "ingredients",
		JoinTable:   "recipe_ingredients",
		JoinColumn:  "ingredient_id",
		Association: "Ingredients",
	}
)

// KindOf returns the schema description for T.
func KindOf[T Label]() LabelKind {
	var v T
	if _, ok := any(v).(Tag); ok {
		return tagKind
	}
	return ingredientKind
}

// NewLabel builds an unsaved T owned by userID.
func NewLabel[T Label](userID uint, name string) T {
	var v T
	switch p := any(&v).(type) {
	case *Tag:
		p.UserID = userID
		p.Name = name
	case *Ingredient:
		p.UserID = userID
		p.Name = name
	}
	return v
}
