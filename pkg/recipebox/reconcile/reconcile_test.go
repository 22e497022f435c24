package reconcile

import (
	"strings"
	"sync"
	"testing"

	"github.com/mikepea/recipebox/pkg/recipebox/apperr"
	"github.com/mikepea/recipebox/pkg/recipebox/models"
	"github.com/mikepea/recipebox/pkg/recipebox/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func tagNames(tags []models.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Name
	}
	return out
}

func createRecipe(t *testing.T, db *gorm.DB, userID uint) *models.Recipe {
	t.Helper()
	r := &models.Recipe{UserID: userID, Title: "Soup", TimeMinutes: 5, Price: decimal.RequireFromString("1.50")}
	require.NoError(t, db.Create(r).Error)
	return r
}

func linkedTags(t *testing.T, db *gorm.DB, r *models.Recipe) []string {
	t.Helper()
	var tags []models.Tag
	require.NoError(t, db.Model(r).Order("name").Association("Tags").Find(&tags))
	return tagNames(tags)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "A"}, Dedupe([]string{"b", "a", "b", "A", "a"}))
	assert.Empty(t, Dedupe(nil))
}

func TestResolveReusesAndCreates(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "user@example.com")
	other := testutil.CreateUser(t, db, "other@example.com")

	existing := models.Tag{UserID: user.ID, Name: "Thai"}
	require.NoError(t, db.Create(&existing).Error)
	foreign := models.Tag{UserID: other.ID, Name: "Dinner"}
	require.NoError(t, db.Create(&foreign).Error)

	got, err := Resolve[models.Tag](db, user.ID, []string{"Thai", "Dinner", "Thai"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"Thai", "Dinner"}, tagNames(got))
	assert.Equal(t, existing.ID, got[0].ID)
	assert.NotEqual(t, foreign.ID, got[1].ID)
	assert.Equal(t, user.ID, got[1].UserID)

	var count int64
	db.Model(&models.Tag{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(2), count)
	db.Model(&models.Tag{}).Where("user_id = ?", other.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestResolveIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "user@example.com")

	first, err := Resolve[models.Ingredient](db, user.ID, []string{"Salt", "Pepper"})
	require.NoError(t, err)
	second, err := Resolve[models.Ingredient](db, user.ID, []string{"Pepper", "Salt"})
	require.NoError(t, err)

	assert.Equal(t, first[0].ID, second[1].ID)
	assert.Equal(t, first[1].ID, second[0].ID)

	var count int64
	db.Model(&models.Ingredient{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestResolveCaseSensitive(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "user@example.com")

	got, err := Resolve[models.Tag](db, user.ID, []string{"thai", "Thai"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestResolveRejectsBlank(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "user@example.com")

	_, err := Resolve[models.Tag](db, user.ID, []string{"Thai", "  "})
	assert.True(t, apperr.IsValidation(err))
}

func TestResolveLengthInCharacters(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "user@example.com")

	tags, err := Resolve[models.Tag](db, user.ID, []string{strings.Repeat("é", 255)})
	require.NoError(t, err)
	require.Len(t, tags, 1)

	_, err = Resolve[models.Tag](db, user.ID, []string{strings.Repeat("é", 256)})
	assert.True(t, apperr.IsValidation(err))
}

func TestResolveConcurrent(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "user@example.com")

	const workers = 8
	var wg sync.WaitGroup
	ids := make([][]uint, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = db.Transaction(func(tx *gorm.DB) error {
				tags, err := Resolve[models.Tag](tx, user.ID, []string{"Thai", "Dinner"})
				for _, tag := range tags {
					ids[i] = append(ids[i], tag.ID)
				}
				return err
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var count int64
	db.Model(&models.Tag{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestApplyTriState(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "user@example.com")
	recipe := createRecipe(t, db, user.ID)

	items := []NameInput{{Name: "Thai"}, {Name: "Dinner"}}
	require.NoError(t, Apply[models.Tag](db, recipe, &items))
	assert.Equal(t, []string{"Dinner", "Thai"}, linkedTags(t, db, recipe))

	// nil leaves links alone
	require.NoError(t, Apply[models.Tag](db, recipe, nil))
	assert.Equal(t, []string{"Dinner", "Thai"}, linkedTags(t, db, recipe))

	// replace
	items = []NameInput{{Name: "Lunch"}}
	require.NoError(t, Apply[models.Tag](db, recipe, &items))
	assert.Equal(t, []string{"Lunch"}, linkedTags(t, db, recipe))

	// empty clears but keeps the tag rows
	items = []NameInput{}
	require.NoError(t, Apply[models.Tag](db, recipe, &items))
	assert.Empty(t, linkedTags(t, db, recipe))

	var count int64
	db.Model(&models.Tag{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(3), count)
}

func TestApplyLeavesOtherAssociation(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "user@example.com")
	recipe := createRecipe(t, db, user.ID)

	tags := []NameInput{{Name: "Thai"}}
	ingredients := []NameInput{{Name: "Basil"}, {Name: "Basil"}}
	require.NoError(t, Apply[models.Tag](db, recipe, &tags))
	require.NoError(t, Apply[models.Ingredient](db, recipe, &ingredients))

	empty := []NameInput{}
	require.NoError(t, Apply[models.Ingredient](db, recipe, &empty))

	assert.Equal(t, []string{"Thai"}, linkedTags(t, db, recipe))
	assert.Zero(t, db.Model(recipe).Association("Ingredients").Count())
}
