// Package recipes implements per-user recipe CRUD and image upload.
package recipes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mikepea/recipebox/pkg/recipebox/apperr"
	"github.com/mikepea/recipebox/pkg/recipebox/logger"
	"github.com/mikepea/recipebox/pkg/recipebox/media"
	"github.com/mikepea/recipebox/pkg/recipebox/models"
	"github.com/mikepea/recipebox/pkg/recipebox/ownership"
	"github.com/mikepea/recipebox/pkg/recipebox/reconcile"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxTitleLength = 255
	maxLinkLength  = 255
	// imagePrefix groups recipe images inside the blob store.
	imagePrefix = "recipe/"
)

// maxPrice is the first value a decimal(5,2) column cannot hold.
var maxPrice = decimal.NewFromInt(1000)

// RecipeInput carries the writable fields of a recipe. Nil fields were not
// supplied. Tags and Ingredients follow reconcile.Apply: nil leaves links
// untouched, an empty slice clears them.
type RecipeInput struct {
	Title       *string
	Description *string
	TimeMinutes *int
	Price       *decimal.Decimal
	Link        *string
	Tags        *[]reconcile.NameInput
	Ingredients *[]reconcile.NameInput
}

// ListFilter narrows List. Empty id slices do not filter.
type ListFilter struct {
	TagIDs        []uint
	IngredientIDs []uint
	Limit         int
	Offset        int
}

// Service is the recipe CRUD surface. Every method is scoped to the owner it
// is given; records of other users behave as if they did not exist.
type Service struct {
	db             *gorm.DB
	store          media.BlobStore
	maxUploadBytes int64
}

// NewService creates a recipe service. maxUploadBytes <= 0 disables the size cap.
func NewService(db *gorm.DB, store media.BlobStore, maxUploadBytes int64) *Service {
	return &Service{db: db, store: store, maxUploadBytes: maxUploadBytes}
}

func preloadByID(db *gorm.DB) *gorm.DB {
	return db.Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: clause.PrimaryKey}})
}

func validate(in RecipeInput, partial bool) error {
	if !partial {
		switch {
		case in.Title == nil:
			return apperr.Validation("title", "this field is required")
		case in.TimeMinutes == nil:
			return apperr.Validation("time_minutes", "this field is required")
		case in.Price == nil:
			return apperr.Validation("price", "this field is required")
		}
	}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return apperr.Validation("title", "may not be blank")
		}
		if utf8.RuneCountInString(*in.Title) > maxTitleLength {
			return apperr.Validationf("title", "ensure this field has no more than %d characters", maxTitleLength)
		}
	}
	if in.TimeMinutes != nil && *in.TimeMinutes < 0 {
		return apperr.Validation("time_minutes", "must be zero or greater")
	}
	if in.Price != nil {
		if err := validatePrice(*in.Price); err != nil {
			return err
		}
	}
	if in.Link != nil && utf8.RuneCountInString(*in.Link) > maxLinkLength {
		return apperr.Validationf("link", "ensure this field has no more than %d characters", maxLinkLength)
	}
	return nil
}

// validatePrice enforces decimal(5,2): at most two fractional digits and
// three integer digits.
func validatePrice(p decimal.Decimal) error {
	if !p.Equal(p.Round(2)) {
		return apperr.Validation("price", "ensure that there are no more than 2 decimal places")
	}
	if p.Abs().GreaterThanOrEqual(maxPrice) {
		return apperr.Validation("price", "ensure that there are no more than 5 digits in total")
	}
	return nil
}

// List returns owner's recipes, newest id first. Tag and ingredient filters
// match recipes linked to any of the given ids and never repeat a recipe.
func (s *Service) List(ctx context.Context, owner uint, f ListFilter) ([]models.Recipe, error) {
	q := s.db.WithContext(ctx).
		Scopes(ownership.Owned(owner)).
		Preload("Tags", preloadByID).
		Preload("Ingredients", preloadByID)

	if len(f.TagIDs) > 0 {
		q = q.Where("recipes.id IN (?)",
			s.db.Table("recipe_tags").Select("recipe_id").Where("tag_id IN ?", f.TagIDs))
	}
	if len(f.IngredientIDs) > 0 {
		q = q.Where("recipes.id IN (?)",
			s.db.Table("recipe_ingredients").Select("recipe_id").Where("ingredient_id IN ?", f.IngredientIDs))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var recipes []models.Recipe
	if err := q.Order("recipes.id DESC").Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return recipes, nil
}

// Get returns one of owner's recipes with its tags and ingredients.
func (s *Service) Get(ctx context.Context, owner, id uint) (*models.Recipe, error) {
	return s.get(s.db.WithContext(ctx), owner, id)
}

func (s *Service) get(db *gorm.DB, owner, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := db.Scopes(ownership.Owned(owner), ownership.ByID(id)).
		Preload("Tags", preloadByID).
		Preload("Ingredients", preloadByID).
		Take(&recipe).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

// Create stores a new recipe owned by owner. Title, time and price are required.
func (s *Service) Create(ctx context.Context, owner uint, in RecipeInput) (*models.Recipe, error) {
	if err := validate(in, false); err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		UserID:      owner,
		Title:       *in.Title,
		TimeMinutes: *in.TimeMinutes,
		Price:       in.Price.Round(2),
	}
	if in.Description != nil {
		recipe.Description = *in.Description
	}
	if in.Link != nil {
		recipe.Link = *in.Link
	}

	var out *models.Recipe
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return fmt.Errorf("create recipe: %w", err)
		}
		if err := applyLinks(tx, &recipe, in); err != nil {
			return err
		}
		var err error
		out, err = s.get(tx, owner, recipe.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update changes one of owner's recipes. A full update (partial=false)
// requires title, time and price; a partial update accepts any subset.
// The owner never changes.
func (s *Service) Update(ctx context.Context, owner, id uint, in RecipeInput, partial bool) (*models.Recipe, error) {
	var out *models.Recipe
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe, err := ownership.First[models.Recipe](ctx, tx, owner, id)
		if err != nil {
			return err
		}
		if err := validate(in, partial); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.Title != nil {
			updates["title"] = *in.Title
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if in.TimeMinutes != nil {
			updates["time_minutes"] = *in.TimeMinutes
		}
		if in.Price != nil {
			updates["price"] = in.Price.Round(2)
		}
		if in.Link != nil {
			updates["link"] = *in.Link
		}
		if len(updates) > 0 {
			if err := tx.Model(recipe).Omit(clause.Associations).Updates(updates).Error; err != nil {
				return fmt.Errorf("update recipe: %w", err)
			}
		}

		if err := applyLinks(tx, recipe, in); err != nil {
			return err
		}
		out, err = s.get(tx, owner, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func applyLinks(tx *gorm.DB, recipe *models.Recipe, in RecipeInput) error {
	if err := reconcile.Apply[models.Tag](tx, recipe, in.Tags); err != nil {
		return err
	}
	return reconcile.Apply[models.Ingredient](tx, recipe, in.Ingredients)
}

// Delete removes one of owner's recipes and its links, then its image.
// Tags and ingredients survive.
func (s *Service) Delete(ctx context.Context, owner, id uint) error {
	var image string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe, err := ownership.First[models.Recipe](ctx, tx, owner, id)
		if err != nil {
			return err
		}
		image = recipe.Image
		if err := tx.Model(recipe).Association("Tags").Clear(); err != nil {
			return fmt.Errorf("clear tags: %w", err)
		}
		if err := tx.Model(recipe).Association("Ingredients").Clear(); err != nil {
			return fmt.Errorf("clear ingredients: %w", err)
		}
		if err := tx.Delete(recipe).Error; err != nil {
			return fmt.Errorf("delete recipe: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.removeBlob(ctx, image)
	return nil
}

// UploadImage validates data as an image and attaches it to one of owner's
// recipes, replacing any previous image. Nothing changes when the data is not
// a decodable JPEG, PNG, GIF or WebP image.
//
// The recipe row is re-read under a row lock in the same transaction as the
// update, so of two concurrent uploads the loser's image is the one removed.
func (s *Service) UploadImage(ctx context.Context, owner, id uint, data []byte) (*models.Recipe, error) {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, apperr.Validation("image", "no file was submitted")
	}
	if s.maxUploadBytes > 0 && int64(len(data)) > s.maxUploadBytes {
		return nil, apperr.Validationf("image", "file larger than %d bytes", s.maxUploadBytes)
	}

	info, err := media.InspectImage(data)
	if err != nil {
		if errors.Is(err, media.ErrNotImage) || errors.Is(err, media.ErrImageTooLarge) {
			return nil, apperr.Validation("image", err.Error())
		}
		return nil, err
	}

	name := imagePrefix + uuid.NewString() + info.Extension()
	if err := s.store.Save(ctx, name, data, info.ContentType); err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	var previous string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe, err := ownership.First[models.Recipe](ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), owner, id)
		if err != nil {
			return err
		}
		previous = recipe.Image
		err = tx.Model(&models.Recipe{}).
			Scopes(ownership.Owned(owner), ownership.ByID(recipe.ID)).
			Updates(map[string]interface{}{
				"image":           name,
				"image_blur_hash": info.BlurHash,
			}).Error
		if err != nil {
			return fmt.Errorf("attach image: %w", err)
		}
		return nil
	})
	if err != nil {
		s.removeBlob(ctx, name)
		return nil, err
	}

	s.removeBlob(ctx, previous)
	return s.Get(ctx, owner, id)
}

// ImageURL returns the public URL of a recipe's image, or "" when unset.
func (s *Service) ImageURL(r *models.Recipe) string {
	if r.Image == "" || s.store == nil {
		return ""
	}
	return s.store.URL(r.Image)
}

func (s *Service) removeBlob(ctx context.Context, name string) {
	if name == "" || s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, name); err != nil {
		logger.FromContext(ctx).Warn("Failed to delete image blob",
			zap.String("blob", name), zap.Error(err))
	}
}
