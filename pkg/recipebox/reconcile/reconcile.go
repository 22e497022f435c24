// Package reconcile maps the tag and ingredient names submitted with a recipe
// onto the caller's existing records, creating the ones that are missing.
package reconcile

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mikepea/recipebox/pkg/recipebox/apperr"
	"github.com/mikepea/recipebox/pkg/recipebox/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NameInput is one element of a recipe's "tags" or "ingredients" list.
type NameInput struct {
	Name string `json:"name"`
}

// Names extracts the names from items, preserving order.
func Names(items []NameInput) []string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	return names
}

// Dedupe returns names with later repeats removed. Matching is exact.
func Dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Resolve returns one record of type T per distinct name, owned by userID,
// in first-seen order. Missing records are created; existing ones are reused.
//
// Each insert is conditional on the (user_id, name) unique index, so two
// requests resolving the same new name at once still end up with one row.
// Names are matched case-sensitively and must not be blank.
func Resolve[T models.Label](tx *gorm.DB, userID uint, names []string) ([]T, error) {
	kind := models.KindOf[T]()
	names = Dedupe(names)
	if len(names) == 0 {
		return []T{}, nil
	}
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return nil, apperr.Validationf(kind.Table, "%s name may not be blank", kind.Noun)
		}
		if utf8.RuneCountInString(n) > 255 {
			return nil, apperr.Validationf(kind.Table, "%s name may not exceed 255 characters", kind.Noun)
		}
	}

	for _, n := range names {
		row := models.NewLabel[T](userID, n)
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return nil, fmt.Errorf("create %s %q: %w", kind.Noun, n, err)
		}
	}

	var rows []T
	if err := tx.Where("user_id = ? AND name IN ?", userID, names).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load %s records: %w", kind.Noun, err)
	}

	byName := make(map[string]T, len(rows))
	for _, r := range rows {
		byName[r.GetName()] = r
	}
	out := make([]T, 0, len(names))
	for _, n := range names {
		r, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("%s %q missing after insert", kind.Noun, n)
		}
		out = append(out, r)
	}
	return out, nil
}

// Apply updates one association of recipe according to items:
//
//   - nil: leave the links untouched
//   - empty: remove every link
//   - otherwise: replace the links with the resolved records
//
// Records that lose their last link are kept.
func Apply[T models.Label](tx *gorm.DB, recipe *models.Recipe, items *[]NameInput) error {
	if items == nil {
		return nil
	}
	kind := models.KindOf[T]()
	assoc := tx.Model(recipe).Association(kind.Association)

	if len(*items) == 0 {
		if err := assoc.Clear(); err != nil {
			return fmt.Errorf("clear %s links: %w", kind.Noun, err)
		}
		return nil
	}

	records, err := Resolve[T](tx, recipe.UserID, Names(*items))
	if err != nil {
		return err
	}
	if err := assoc.Replace(records); err != nil {
		return fmt.Errorf("replace %s links: %w", kind.Noun, err)
	}
	return nil
}
