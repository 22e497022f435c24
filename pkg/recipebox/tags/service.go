// Package tags exposes list, rename and delete for the caller's tags and
// ingredients. Both kinds share one generic implementation.
package tags

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mikepea/recipebox/pkg/recipebox/apperr"
	"github.com/mikepea/recipebox/pkg/recipebox/models"
	"github.com/mikepea/recipebox/pkg/recipebox/ownership"
	"gorm.io/gorm"
)

// Service manages records of kind T owned by a single caller per call.
type Service[T models.Label] struct {
	db   *gorm.DB
	kind models.LabelKind
}

// NewService creates a service for T
func NewService[T models.Label](db *gorm.DB) *Service[T] {
	return &Service[T]{db: db, kind: models.KindOf[T]()}
}

// List returns owner's records ordered by name descending. With assignedOnly
// set, only records linked to at least one of owner's recipes are returned,
// each once.
func (s *Service[T]) List(ctx context.Context, owner uint, assignedOnly bool) ([]T, error) {
	k := s.kind
	q := s.db.WithContext(ctx).Scopes(ownership.Owned(owner))
	if assignedOnly {
		assigned := s.db.Table(k.JoinTable).
			Select(k.JoinTable+"."+k.JoinColumn).
			Joins("JOIN recipes ON recipes.id = "+k.JoinTable+".recipe_id").
			Where("recipes.user_id = ?", owner)
		q = q.Where(k.Table+".id IN (?)", assigned)
	}

	var out []T
	if err := q.Order(k.Table + ".name DESC").Order(k.Table + ".id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", k.Table, err)
	}
	return out, nil
}

// Get returns one of owner's records.
func (s *Service[T]) Get(ctx context.Context, owner, id uint) (*T, error) {
	return ownership.First[T](ctx, s.db, owner, id)
}

// Rename changes the name of one of owner's records. The new name must not
// be blank or already used by another of owner's records of the same kind.
func (s *Service[T]) Rename(ctx context.Context, owner, id uint, name string) (*T, error) {
	k := s.kind
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation("name", "may not be blank")
	}
	if utf8.RuneCountInString(name) > 255 {
		return nil, apperr.Validation("name", "ensure this field has no more than 255 characters")
	}

	var out *T
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := ownership.First[T](ctx, tx, owner, id)
		if err != nil {
			return err
		}
		if (*rec).GetName() == name {
			out = rec
			return nil
		}

		var clash int64
		if err := tx.Model(new(T)).
			Where("user_id = ? AND name = ? AND id <> ?", owner, name, id).
			Count(&clash).Error; err != nil {
			return err
		}
		if clash > 0 {
			return apperr.Validationf("name", "%s with this name already exists", k.Noun)
		}

		if err := tx.Model(rec).Update("name", name).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Validationf("name", "%s with this name already exists", k.Noun)
			}
			return fmt.Errorf("rename %s: %w", k.Noun, err)
		}
		out, err = ownership.First[T](ctx, tx, owner, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes one of owner's records after detaching it from every recipe.
func (s *Service[T]) Delete(ctx context.Context, owner, id uint) error {
	k := s.kind
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := ownership.First[T](ctx, tx, owner, id)
		if err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM "+k.JoinTable+" WHERE "+k.JoinColumn+" = ?", id).Error; err != nil {
			return fmt.Errorf("detach %s: %w", k.Noun, err)
		}
		if err := tx.Delete(rec).Error; err != nil {
			return fmt.Errorf("delete %s: %w", k.Noun, err)
		}
		return nil
	})
}
