package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Networkcaretaker/real-estate-backend/internal/database"
	"github.com/Networkcaretaker/real-estate-backend/internal/model"
)

// These tests need a disposable PostgreSQL database in TEST_DATABASE_URL.
func testRepos(t *testing.T) (*PropertyRepository, *ImageRepository) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := database.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, database.EnsureSchema(ctx, pool))
	return NewPropertyRepository(pool), NewImageRepository(pool)
}

func TestPropertyUpsertMerge(t *testing.T) {
	props, _ := testRepos(t)
	ctx := context.Background()
	id := "test-" + uuid.NewString()

	p := &model.Property{ID: id, Title: "first", WebsiteStatus: model.StatusDisabled,
		Features: map[string][]string{}, Flags: model.DefaultFlags(), Media: model.DefaultMedia()}
	created, err := props.UpsertProperty(ctx, p)
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, props.UpdatePropertyAIMeta(ctx, id, []model.CopyVersion{{Version: "concise", Title: "x"}}))

	again := *p
	again.Title = "second"
	created, err = props.UpsertProperty(ctx, &again)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := props.GetProperty(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Title)
	require.Len(t, got.AIMeta, 1)
	assert.Equal(t, "concise", got.AIMeta[0].Version)

	_, err = props.GetProperty(ctx, "missing-"+uuid.NewString())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestImageOrdinalUnique(t *testing.T) {
	props, images := testRepos(t)
	ctx := context.Background()
	pid := "test-" + uuid.NewString()
	_, err := props.UpsertProperty(ctx, &model.Property{ID: pid, Features: map[string][]string{}, Media: model.DefaultMedia()})
	require.NoError(t, err)

	img := &model.Image{ID: uuid.NewString(), PropertyID: pid, Ordinal: 1, Filename: pid + "-01.jpg",
		URLs: map[model.Variant]string{model.VariantLarge: "http://x/large"}}
	require.NoError(t, images.CreateImage(ctx, img))
	dup := *img
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, images.CreateImage(ctx, &dup), model.ErrConflict)

	title := "Pool"
	updated, err := images.UpdateImage(ctx, pid, img.ID, model.ImageUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Pool", updated.Title)
	assert.Equal(t, "http://x/large", updated.URLs[model.VariantLarge])

	names, err := images.ImageFilenames(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, []string{pid + "-01.jpg"}, names)
}
