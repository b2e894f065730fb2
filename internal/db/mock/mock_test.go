package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vialerp/models"
)

func TestNewSeedsExpectedRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := New(ctx)
	require.NoError(t, err)

	var ingredients []models.Ingredient
	require.NoError(t, db.WithContext(ctx).Find(&ingredients).Error)
	assert.Len(t, ingredients, 4)

	var mug models.Product
	require.NoError(t, db.WithContext(ctx).Preload("Recipe").Where("code = ?", MugCode).First(&mug).Error)
	assert.Len(t, mug.Recipe, 4)

	var design models.Product
	require.NoError(t, db.WithContext(ctx).Preload("Recipe").Where("code = ?", DesignCode).First(&design).Error)
	assert.Empty(t, design.Recipe, "the design product has no recipe")

	var combos int64
	require.NoError(t, db.WithContext(ctx).Model(&models.DerivedCombination{}).Count(&combos).Error)
	assert.Zero(t, combos, "no derived combinations before sync")
}

func TestNewReturnsIsolatedDatabases(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	first, err := New(ctx)
	require.NoError(t, err)
	second, err := New(ctx)
	require.NoError(t, err)

	require.NoError(t, first.WithContext(ctx).Where("code = ?", DesignCode).Delete(&models.Product{}).Error)

	var count int64
	require.NoError(t, second.WithContext(ctx).Model(&models.Product{}).Count(&count).Error)
	assert.Equal(t, int64(2), count, "second database untouched")
}
