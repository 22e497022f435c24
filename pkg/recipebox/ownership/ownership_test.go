package ownership

import (
	"context"
	"testing"

	"github.com/mikepea/recipebox/pkg/recipebox/apperr"
	"github.com/mikepea/recipebox/pkg/recipebox/models"
	"github.com/mikepea/recipebox/pkg/recipebox/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner@example.com")
	other := testutil.CreateUser(t, db, "other@example.com")
	ctx := context.Background()

	recipe := models.Recipe{UserID: owner.ID, Title: "Curry", TimeMinutes: 30, Price: decimal.RequireFromString("5.00")}
	require.NoError(t, db.Create(&recipe).Error)
	tag := models.Tag{UserID: owner.ID, Name: "Thai"}
	require.NoError(t, db.Create(&tag).Error)
	require.NoError(t, db.Model(&recipe).Association("Tags").Append(&tag))

	got, err := First[models.Recipe](ctx, db, owner.ID, recipe.ID, "Tags")
	require.NoError(t, err)
	assert.Equal(t, "Curry", got.Title)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "Thai", got.Tags[0].Name)

	_, err = First[models.Recipe](ctx, db, other.ID, recipe.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = First[models.Recipe](ctx, db, owner.ID, recipe.ID+100)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = First[models.Tag](ctx, db, other.ID, tag.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestOwnedWithJoin(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner@example.com")
	other := testutil.CreateUser(t, db, "other@example.com")

	for _, u := range []uint{owner.ID, other.ID} {
		r := models.Recipe{UserID: u, Title: "R", TimeMinutes: 1, Price: decimal.Zero}
		require.NoError(t, db.Create(&r).Error)
		tag := models.Tag{UserID: u, Name: "Thai"}
		require.NoError(t, db.Create(&tag).Error)
		require.NoError(t, db.Model(&r).Association("Tags").Append(&tag))
	}

	// Both tables have user_id; the scope must pick the statement's table.
	var tags []models.Tag
	err := db.Scopes(Owned(owner.ID)).
		Joins("JOIN recipe_tags ON recipe_tags.tag_id = tags.id").
		Joins("JOIN recipes ON recipes.id = recipe_tags.recipe_id").
		Find(&tags).Error
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, owner.ID, tags[0].UserID)
}
